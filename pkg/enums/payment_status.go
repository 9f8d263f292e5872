package enums

// PaymentStatus tracks the money side of an order.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

var paymentStatusByName = map[string]PaymentStatus{
	"PENDING":  PaymentStatusPending,
	"PAID":     PaymentStatusPaid,
	"REFUNDED": PaymentStatusRefunded,
}

// String implements fmt.Stringer.
func (s PaymentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PaymentStatus.
func (s PaymentStatus) IsValid() bool {
	_, ok := paymentStatusByName[string(s)]
	return ok
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	if status, ok := paymentStatusByName[lookupKey(value)]; ok {
		return status, nil
	}
	return "", &ParseError{Kind: "payment status", Value: value}
}
