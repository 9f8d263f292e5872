package enums

// PaymentMethod enumerates the checkout payment options.
type PaymentMethod string

const (
	PaymentMethodCreditCard PaymentMethod = "CREDIT_CARD"
	PaymentMethodSofort     PaymentMethod = "SOFORT"
	PaymentMethodKlarna     PaymentMethod = "KLARNA"
	PaymentMethodSEPA       PaymentMethod = "SEPA"
)

// paymentMethodByToken includes the aliases accepted from clients.
var paymentMethodByToken = map[string]PaymentMethod{
	"CREDIT_CARD": PaymentMethodCreditCard,
	"CARD":        PaymentMethodCreditCard,
	"SOFORT":      PaymentMethodSofort,
	"KLARNA":      PaymentMethodKlarna,
	"SEPA":        PaymentMethodSEPA,
}

var stripeTypeByMethod = map[PaymentMethod]string{
	PaymentMethodCreditCard: "card",
	PaymentMethodSofort:     "sofort",
	PaymentMethodKlarna:     "klarna",
	PaymentMethodSEPA:       "sepa_debit",
}

// String implements fmt.Stringer.
func (m PaymentMethod) String() string {
	return string(m)
}

// IsValid reports whether the value is a canonical PaymentMethod.
func (m PaymentMethod) IsValid() bool {
	_, ok := stripeTypeByMethod[m]
	return ok
}

// StripeType returns the Stripe payment_method_types value for the method.
func (m PaymentMethod) StripeType() string {
	return stripeTypeByMethod[m]
}

// ParsePaymentMethod normalizes a client token. CARD is accepted for CREDIT_CARD.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	if method, ok := paymentMethodByToken[lookupKey(value)]; ok {
		return method, nil
	}
	return "", &ParseError{Kind: "payment method", Value: value}
}
