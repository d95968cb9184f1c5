package auth

import (
	"github.com/angelmondragon/tradeledger/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID    uuid.UUID
	AccountID *uuid.UUID
	Role      enums.Role
	JTI       string
}

// AccessTokenClaims represents the typed JWT issued by the identity service.
// AccountID is the buyer or seller account the user is acting for; admins may omit it.
type AccessTokenClaims struct {
	UserID    uuid.UUID  `json:"user_id"`
	AccountID *uuid.UUID `json:"account_id,omitempty"`
	Role      enums.Role `json:"role"`
	jwt.RegisteredClaims
}
