package payments

import (
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/tradeledger/pkg/errors"
)

func ptr[T any](v T) *T {
	return &v
}

func uuidFor(n byte) uuid.UUID {
	var id uuid.UUID
	id[15] = n
	return id
}

func reasonOf(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Reason()
	}
	return ""
}
