package enums

// OrderStatus tracks an order through its lifecycle.
type OrderStatus string

const (
	OrderStatusProcessing      OrderStatus = "PROCESSING"
	OrderStatusShipped         OrderStatus = "SHIPPED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
	OrderStatusReturnRequested OrderStatus = "RETURN_REQUESTED"
	OrderStatusReturned        OrderStatus = "RETURNED"
)

var orderStatusByName = map[string]OrderStatus{
	"PROCESSING":       OrderStatusProcessing,
	"SHIPPED":          OrderStatusShipped,
	"CANCELLED":        OrderStatusCancelled,
	"RETURN_REQUESTED": OrderStatusReturnRequested,
	"RETURNED":         OrderStatusReturned,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	_, ok := orderStatusByName[string(s)]
	return ok
}

// IsTerminal reports whether no lifecycle transition leaves the status.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCancelled || s == OrderStatusReturned
}

// ParseOrderStatus converts raw input into an OrderStatus. Matching ignores case
// and surrounding whitespace.
func ParseOrderStatus(value string) (OrderStatus, error) {
	if status, ok := orderStatusByName[lookupKey(value)]; ok {
		return status, nil
	}
	return "", &ParseError{Kind: "order status", Value: value}
}
