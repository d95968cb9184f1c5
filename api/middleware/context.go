package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradeledger/pkg/auth"
	"github.com/angelmondragon/tradeledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeledger/pkg/errors"
)

type contextKey string

const ctxActor contextKey = "actor"

// WithActor stores the authenticated caller on the context.
func WithActor(ctx context.Context, actor auth.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}

// ActorFromContext returns the caller seeded by Auth, or an Unauthorized error.
func ActorFromContext(ctx context.Context) (auth.Actor, error) {
	if ctx != nil {
		if actor, ok := ctx.Value(ctxActor).(auth.Actor); ok && actor.UserID != uuid.Nil {
			return actor, nil
		}
	}
	return auth.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
}

func UserIDFromContext(ctx context.Context) string {
	actor, err := ActorFromContext(ctx)
	if err != nil {
		return ""
	}
	return actor.UserID.String()
}

func RoleFromContext(ctx context.Context) enums.Role {
	actor, err := ActorFromContext(ctx)
	if err != nil {
		return ""
	}
	return actor.Role
}

func AccountIDFromContext(ctx context.Context) string {
	actor, err := ActorFromContext(ctx)
	if err != nil || actor.AccountID == nil {
		return ""
	}
	return actor.AccountID.String()
}
