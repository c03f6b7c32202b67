package validators

import (
	"carrental/pkg/config"

	"go.mongodb.org/mongo-driver/bson"
)

var PaymentValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"booking_id",
			"user_id",
			"amount",
			"method",
			"status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"booking_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"user_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"amount": bson.M{
				"bsonType":         "number",
				"exclusiveMinimum": true,
				"minimum":          0,
			},

			"method": bson.M{
				"bsonType": "string",
				"enum":     config.PaymentMethods,
			},

			"status": bson.M{
				"bsonType": "string",
				"enum":     config.PaymentStatuses,
			},

			"transaction_id": bson.M{
				"bsonType":  "string",
				"maxLength": 100,
			},

			"paid_at": bson.M{
				"bsonType": "date",
			},

			"refunded_at": bson.M{
				"bsonType": "date",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
