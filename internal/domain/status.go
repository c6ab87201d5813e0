package domain

const (
	CartOpen            = "open"
	CartAwaitingPayment = "awaiting_payment"
	CartPaid            = "paid"
)

const (
	FulfillmentAwaitingStaff = "menunggu pegawai"
	FulfillmentToBeShipped   = "akan dikirim"
	FulfillmentBooked        = "sudah dibooking"
	FulfillmentReceived      = "diterima pembeli"
)

var fulfillmentOrder = map[string]int{
	FulfillmentAwaitingStaff: 1,
	FulfillmentToBeShipped:   2,
	FulfillmentBooked:        3,
	FulfillmentReceived:      4,
}

func IsFulfillmentStatus(s string) bool {
	_, ok := fulfillmentOrder[s]
	return ok
}

// CanAdvanceFulfillment allows forward moves only; steps may be skipped.
// An empty current status means fulfillment has not started.
func CanAdvanceFulfillment(current, next string) bool {
	n, ok := fulfillmentOrder[next]
	if !ok {
		return false
	}
	if current == "" {
		return true
	}
	return n > fulfillmentOrder[current]
}

const (
	PaymentPending    = "pending"
	PaymentSettlement = "settlement"
	PaymentCapture    = "capture"
	PaymentDeny       = "deny"
	PaymentExpire     = "expire"
	PaymentCancel     = "cancel"
	PaymentFailure    = "failure"
)

func IsSuccessStatus(s string) bool {
	return s == PaymentSettlement || s == PaymentCapture
}

func IsFailureStatus(s string) bool {
	switch s {
	case PaymentDeny, PaymentExpire, PaymentCancel, PaymentFailure:
		return true
	}
	return false
}

const (
	PurposeCart       = "cart"
	PurposeMembership = "membership"
	PurposeTopUp      = "topup"
	PurposeDirect     = "direct"
)

const (
	UserTypeMember   = "pengguna"
	MembershipActive = "aktif"
)
