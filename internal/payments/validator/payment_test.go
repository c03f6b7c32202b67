package validator

import (
	"carrental/pkg/config"
	"carrental/pkg/model"
	"carrental/pkg/validation"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{config.PaymentPending, config.PaymentCompleted, true},
		{config.PaymentPending, config.PaymentFailed, true},
		{config.PaymentPending, config.PaymentRefunded, false},
		{config.PaymentCompleted, config.PaymentFailed, false},
		{config.PaymentCompleted, config.PaymentRefunded, false},
		{config.PaymentFailed, config.PaymentCompleted, false},
		{config.PaymentRefunded, config.PaymentPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestValidateRequest(t *testing.T) {
	v, err := validation.New()
	require.NoError(t, err)
	pv := NewPaymentValidator(v)

	tests := []struct {
		name    string
		req     model.PaymentRequest
		wantErr bool
	}{
		{name: "mpesa", req: model.PaymentRequest{BookingID: "64b7f0c2a1b2c3d4e5f60730", PaymentMethod: config.MethodMpesa}},
		{name: "bank transfer with reference", req: model.PaymentRequest{BookingID: "64b7f0c2a1b2c3d4e5f60730", PaymentMethod: config.MethodBankTransfer, TransactionID: "QK12AB34CD"}},
		{name: "unknown method", req: model.PaymentRequest{BookingID: "64b7f0c2a1b2c3d4e5f60730", PaymentMethod: "cash"}, wantErr: true},
		{name: "bad booking id", req: model.PaymentRequest{BookingID: "42", PaymentMethod: config.MethodCard}, wantErr: true},
		{name: "missing method", req: model.PaymentRequest{BookingID: "64b7f0c2a1b2c3d4e5f60730"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := pv.ValidateRequest(&tt.req)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
