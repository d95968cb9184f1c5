package enums

import "fmt"

// PaymentMethod describes the rail a payment claim travels on.
type PaymentMethod string

const (
	PaymentMethodInstant        PaymentMethod = "instant"
	PaymentMethodManualWallet   PaymentMethod = "manual_wallet"
	PaymentMethodManualTransfer PaymentMethod = "manual_transfer"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodInstant,
	PaymentMethodManualWallet,
	PaymentMethodManualTransfer,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}

// IsManual reports whether the method requires admin verification.
func (p PaymentMethod) IsManual() bool {
	return p == PaymentMethodManualWallet || p == PaymentMethodManualTransfer
}
