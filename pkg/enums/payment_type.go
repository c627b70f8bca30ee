package enums

import "fmt"

// PaymentType distinguishes what a payment attempt is collecting.
type PaymentType string

const (
	PaymentTypeOrderDeposit PaymentType = "order_deposit"
	PaymentTypeOrderFull    PaymentType = "order_full"
	PaymentTypeSubscription PaymentType = "subscription"
)

var validPaymentTypes = []PaymentType{
	PaymentTypeOrderDeposit,
	PaymentTypeOrderFull,
	PaymentTypeSubscription,
}

// String implements fmt.Stringer.
func (p PaymentType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentType.
func (p PaymentType) IsValid() bool {
	for _, candidate := range validPaymentTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsOrderScoped reports whether the type targets an order rather than a
// subscription.
func (p PaymentType) IsOrderScoped() bool {
	return p == PaymentTypeOrderDeposit || p == PaymentTypeOrderFull
}

// ParsePaymentType converts raw input into a PaymentType.
func ParsePaymentType(value string) (PaymentType, error) {
	for _, candidate := range validPaymentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment type %q", value)
}
