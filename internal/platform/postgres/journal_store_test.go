//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/eventhost/internal/events"
	"github.com/phrazzld/eventhost/internal/platform/postgres"
	"github.com/phrazzld/eventhost/internal/store"
	"github.com/phrazzld/eventhost/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresJournal(t *testing.T) {
	db := testdb.Open(t)
	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		testJournal(t, tx)
	})
}

func testJournal(t *testing.T, tx *sql.Tx) {
	journal := postgres.NewPostgresJournal(tx)
	ctx := context.Background()

	first, err := events.NewEvent("orders.created", map[string]int{"order": 1})
	require.NoError(t, err)
	second, err := events.NewEvent("orders.shipped", nil)
	require.NoError(t, err)

	require.NoError(t, journal.SaveEvent(ctx, first))
	require.NoError(t, journal.SaveEvent(ctx, second))

	t.Run("pending events", func(t *testing.T) {
		pending, err := journal.GetPendingEvents(ctx)
		require.NoError(t, err)

		ids := make([]uuid.UUID, 0, len(pending))
		for _, e := range pending {
			ids = append(ids, e.ID)
		}
		assert.Contains(t, ids, first.ID)
		assert.Contains(t, ids, second.ID)
	})

	t.Run("update status", func(t *testing.T) {
		require.NoError(t, journal.UpdateEventStatus(ctx, first.ID, events.StatusFailed, "handler error"))

		record, err := journal.GetEvent(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, events.StatusFailed, record.Status)
		assert.Equal(t, "handler error", record.ErrorMessage)
		assert.Equal(t, "orders.created", record.Event.Topic)
		assert.JSONEq(t, `{"order": 1}`, string(record.Event.Payload))
	})

	t.Run("unknown event", func(t *testing.T) {
		_, err := journal.GetEvent(ctx, uuid.New())
		assert.ErrorIs(t, err, events.ErrEventNotFound)

		assert.NoError(t, journal.UpdateEventStatus(ctx, uuid.New(), events.StatusDelivered, ""))
	})

	// Runs last: a failed insert aborts the surrounding transaction
	t.Run("duplicate save", func(t *testing.T) {
		err := journal.SaveEvent(ctx, first)
		assert.ErrorIs(t, err, store.ErrDuplicate)
	})
}
