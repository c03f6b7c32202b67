package repository

import (
	"carrental/pkg/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestBuildFilter(t *testing.T) {
	minPrice, maxPrice := 1000.0, 5000.0

	tests := []struct {
		name   string
		filter model.CarFilter
		want   bson.M
	}{
		{name: "empty", filter: model.CarFilter{}, want: bson.M{}},
		{name: "status", filter: model.CarFilter{Status: "available"}, want: bson.M{"status": "available"}},
		{
			name:   "make is escaped and case-insensitive",
			filter: model.CarFilter{Make: "Merc.des"},
			want:   bson.M{"make": primitive.Regex{Pattern: `Merc\.des`, Options: "i"}},
		},
		{
			name:   "price range",
			filter: model.CarFilter{MinPrice: &minPrice, MaxPrice: &maxPrice},
			want:   bson.M{"price_per_day": bson.M{"$gte": 1000.0, "$lte": 5000.0}},
		},
		{
			name:   "min only",
			filter: model.CarFilter{Model: "axio", MinPrice: &minPrice},
			want: bson.M{
				"model":         primitive.Regex{Pattern: "axio", Options: "i"},
				"price_per_day": bson.M{"$gte": 1000.0},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildFilter(tt.filter))
		})
	}
}

func TestImagesFilter(t *testing.T) {
	id := primitive.NewObjectID()

	assert.Equal(t, bson.M{"_id": id, "images.3": bson.M{"$exists": false}}, ImagesFilter(id, 2, 5))
	assert.Equal(t, bson.M{"_id": id, "images.0": bson.M{"$exists": false}}, ImagesFilter(id, 5, 5))
}
