package enums

import "fmt"

// CreditMovementType classifies an entry in the seller credit ledger.
type CreditMovementType string

const (
	CreditMovementTypePurchase      CreditMovementType = "purchase"
	CreditMovementTypePayment       CreditMovementType = "payment"
	CreditMovementTypeReferralBonus CreditMovementType = "referral_bonus"
	CreditMovementTypeAdjustment    CreditMovementType = "adjustment"
)

var validCreditMovementTypes = []CreditMovementType{
	CreditMovementTypePurchase,
	CreditMovementTypePayment,
	CreditMovementTypeReferralBonus,
	CreditMovementTypeAdjustment,
}

// String implements fmt.Stringer.
func (c CreditMovementType) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CreditMovementType.
func (c CreditMovementType) IsValid() bool {
	for _, candidate := range validCreditMovementTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCreditMovementType converts raw input into a CreditMovementType.
func ParseCreditMovementType(value string) (CreditMovementType, error) {
	for _, candidate := range validCreditMovementTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid credit movement type %q", value)
}
