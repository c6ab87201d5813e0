package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("product 7: %w", ErrNotFound), KindNotFound},
		{fmt.Errorf("stock: %w", ErrInsufficientStock), KindInsufficientStock},
		{fmt.Errorf("bca: %w", ErrUnsupportedBank), KindUnsupportedBank},
		{fmt.Errorf("qty: %w", ErrInvalidRequest), KindInvalidRequest},
		{fmt.Errorf("timeout: %w", ErrPaymentGateway), KindPaymentGateway},
		{fmt.Errorf("paid: %w", ErrInvalidState), KindInvalidState},
		{errors.New("boom"), KindInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Kind(tt.err))
	}
}

func TestOwner(t *testing.T) {
	assert.Equal(t, "user:42", UserOwner(42).Key())
	assert.Equal(t, "guest:abc", GuestOwner(" abc ").Key())
	assert.NoError(t, UserOwner(1).Validate())
	assert.NoError(t, GuestOwner("g-1").Validate())
	assert.ErrorIs(t, Owner{}.Validate(), ErrInvalidRequest)
	assert.ErrorIs(t, Owner{UserID: 1, GuestID: "g"}.Validate(), ErrInvalidRequest)
}

func TestCanAdvanceFulfillment(t *testing.T) {
	tests := []struct {
		name          string
		current, next string
		want          bool
	}{
		{"start", "", FulfillmentAwaitingStaff, true},
		{"start skipping", "", FulfillmentToBeShipped, true},
		{"forward", FulfillmentAwaitingStaff, FulfillmentToBeShipped, true},
		{"skip forward", FulfillmentToBeShipped, FulfillmentReceived, true},
		{"same", FulfillmentBooked, FulfillmentBooked, false},
		{"backward", FulfillmentReceived, FulfillmentBooked, false},
		{"unknown", "", "shipped", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanAdvanceFulfillment(tt.current, tt.next))
		})
	}
}

func TestPaymentStatusClasses(t *testing.T) {
	assert.True(t, IsSuccessStatus(PaymentSettlement))
	assert.True(t, IsSuccessStatus(PaymentCapture))
	assert.False(t, IsSuccessStatus(PaymentPending))
	assert.True(t, IsFailureStatus(PaymentExpire))
	assert.False(t, IsFailureStatus(PaymentSettlement))
}
