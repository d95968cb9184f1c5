package outbox

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradeledger/pkg/db/dbtest"
	"github.com/angelmondragon/tradeledger/pkg/db/models"
	"github.com/angelmondragon/tradeledger/pkg/enums"
	"github.com/angelmondragon/tradeledger/pkg/logger"
)

func TestEmitWritesEnvelope(t *testing.T) {
	client := dbtest.NewSQLite(t)
	repo := NewRepository(client.DB())
	svc := NewService(repo, logger.Nop())
	aggregateID := uuid.New()
	actor := &ActorRef{UserID: uuid.New(), Role: "admin"}

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   aggregateID,
			Actor:         actor,
			Data:          map[string]int{"total_cents": 500},
		})
	})
	require.NoError(t, err)

	rows, err := repo.ListByAggregate(nil, aggregateID)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)
	assert.Equal(t, actor.UserID, envelope.Actor.UserID)
	assert.JSONEq(t, `{"total_cents":500}`, string(envelope.Data))
}

func TestEmitRequiresTransaction(t *testing.T) {
	svc := NewService(NewRepository(nil), logger.Nop())
	err := svc.Emit(context.Background(), nil, DomainEvent{EventType: enums.EventOrderPaid})
	assert.Error(t, err)
}

func TestEmitBestEffortKeepsTransactionUsable(t *testing.T) {
	client := dbtest.NewSQLite(t)
	svc := NewService(NewRepository(client.DB()), logger.Nop())
	sellerID := uuid.New()

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		if err := tx.Exec("DROP TABLE outbox_events").Error; err != nil {
			return err
		}
		svc.EmitBestEffort(context.Background(), tx, DomainEvent{
			EventType:     enums.EventPaymentResolved,
			AggregateType: enums.AggregatePayment,
			AggregateID:   uuid.New(),
			Data:          map[string]string{"status": "verified"},
		})
		return tx.Exec(
			"INSERT INTO seller_credits (seller_id, credit_limit_cents, balance_debt_cents, max_cart_percentage, active, created_at, updated_at) VALUES (?, 0, 0, 10, true, ?, ?)",
			sellerID, time.Now().UTC(), time.Now().UTC(),
		).Error
	})
	require.NoError(t, err, "a failed notification must not fail the core transaction")

	var count int64
	require.NoError(t, client.DB().Model(&models.SellerCredit{}).Where("seller_id = ?", sellerID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	client := dbtest.NewSQLite(t)
	repo := NewRepository(client.DB())
	svc := NewService(repo, logger.Nop())
	ctx := context.Background()
	aggregateID := uuid.New()

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		for i := 0; i < 2; i++ {
			if err := svc.Emit(ctx, tx, DomainEvent{
				EventType:     enums.EventOrderPlaced,
				AggregateType: enums.AggregateOrder,
				AggregateID:   aggregateID,
				Data:          map[string]int{"n": i},
			}); err != nil {
				return err
			}
		}
		return nil
	}))

	var claimed []models.OutboxEvent
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := repo.FetchUnpublishedForPublish(tx, 10, 3)
		claimed = rows
		return err
	}))
	require.Len(t, claimed, 2)

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := repo.MarkPublishedTx(tx, claimed[0].ID); err != nil {
			return err
		}
		return repo.MarkTerminalTx(tx, claimed[1].ID, assert.AnError, 3)
	}))

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := repo.FetchUnpublishedForPublish(tx, 10, 3)
		if err != nil {
			return err
		}
		assert.Empty(t, rows, "published and terminal rows are not fetched again")
		return nil
	}))

	deleted, err := repo.DeletePublishedBefore(nil, time.Now().UTC().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestDLQInsertTruncatesMessage(t *testing.T) {
	client := dbtest.NewSQLite(t)
	dlq := NewDLQRepository(client.DB())
	eventID := uuid.New()
	long := strings.Repeat("x", maxDLQErrorLen+50)

	require.NoError(t, client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return dlq.InsertTx(tx, models.OutboxDLQ{
			EventID:       eventID,
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{}`),
			ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
			ErrorMessage:  &long,
			AttemptCount:  3,
		})
	}))

	found, err := dlq.FindByEventID(context.Background(), eventID)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.NotNil(t, found.ErrorMessage)
	assert.Len(t, *found.ErrorMessage, maxDLQErrorLen)

	missing, err := dlq.FindByEventID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}
