package auth

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/tradeledger/pkg/enums"
	"github.com/angelmondragon/tradeledger/pkg/outbox"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID    uuid.UUID
	AccountID *uuid.UUID
	Role      enums.Role
}

// ActorFromClaims builds an Actor from verified token claims.
func ActorFromClaims(claims *AccessTokenClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{UserID: claims.UserID, AccountID: claims.AccountID, Role: claims.Role}
}

func (a Actor) IsAdmin() bool {
	return a.Role == enums.RoleAdmin
}

// Owns reports whether the actor acts for the given account.
func (a Actor) Owns(accountID uuid.UUID) bool {
	return a.AccountID != nil && *a.AccountID == accountID
}

// Ref converts the actor into the outbox envelope form.
func (a Actor) Ref() *outbox.ActorRef {
	if a.UserID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: a.UserID, AccountID: a.AccountID, Role: string(a.Role)}
}
