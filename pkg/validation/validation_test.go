package validation

import (
	"testing"
	"time"

	"carrental/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := New()
	require.NoError(t, err)
	return v
}

func TestStruct_Car(t *testing.T) {
	v := newValidator(t)

	valid := model.Car{
		Make:            "Toyota",
		Model:           "Corolla",
		ManufactureYear: 2020,
		LicensePlate:    "KDA 123A",
		PricePerDay:     3000,
		Status:          "available",
	}
	require.NoError(t, v.Struct(&valid))

	tests := []struct {
		name      string
		mutate    func(c *model.Car)
		wantField string
		wantMsg   string
	}{
		{name: "missing make", mutate: func(c *model.Car) { c.Make = "" }, wantField: "make", wantMsg: "make is required"},
		{name: "bad status", mutate: func(c *model.Car) { c.Status = "sold" }, wantField: "status", wantMsg: "status must be one of: available, rented, maintenance"},
		{name: "lowercase plate", mutate: func(c *model.Car) { c.LicensePlate = "kda 123a" }, wantField: "license_plate"},
		{name: "zero price", mutate: func(c *model.Car) { c.PricePerDay = 0 }, wantField: "price_per_day"},
		{name: "bad image url", mutate: func(c *model.Car) { c.Images = []string{"not a url"} }, wantField: "images[0]", wantMsg: "images[0] must be a valid URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			car := valid
			tt.mutate(&car)

			err := v.Struct(&car)
			require.Error(t, err)

			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.wantField, verrs[0].Field)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, verrs[0].Message)
			}
		})
	}
}

func TestStruct_BookingEndBeforeStart(t *testing.T) {
	v := newValidator(t)
	start := time.Date(2030, 1, 10, 0, 0, 0, 0, time.UTC)

	b := model.Booking{
		CarID:     "507f1f77bcf86cd799439011",
		UserID:    "507f1f77bcf86cd799439012",
		StartDate: start,
		EndDate:   start.Add(-24 * time.Hour),
		Status:    "pending",
	}

	err := v.Struct(&b)
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "end_date", verrs[0].Field)
	assert.Equal(t, "end_date must be after start_date", verrs[0].Message)
}

func TestStruct_PaymentRequest(t *testing.T) {
	v := newValidator(t)

	err := v.Struct(&model.PaymentRequest{BookingID: "nope", PaymentMethod: "cash"})
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 2)
}

func TestVar(t *testing.T) {
	v := newValidator(t)

	assert.NoError(t, v.Var("phone_number", "+254712345678", "e164"))

	err := v.Var("phone_number", "0712", "e164")
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "phone_number", verrs[0].Field)
	assert.Contains(t, verrs[0].Message, "phone_number must be in E.164 format")
}

func TestValidationErrors_Error(t *testing.T) {
	assert.Equal(t, "", ValidationErrors{}.Error())
	assert.Equal(t, "validation failed: 1 error(s): [email: taken]", Field("email", "taken").Error())
}
