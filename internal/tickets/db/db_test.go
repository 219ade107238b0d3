package db_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"fest-ticketing/internal/models"
	"fest-ticketing/internal/tickets/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) (*db.DB, *bun.DB) {
	// Connect to an in-memory SQLite DB for testing
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = bunDB.NewCreateTable().Model((*models.Ticket)(nil)).Exec(context.Background())
	if err != nil {
		t.Fatalf("Failed to create tickets table: %v", err)
	}

	_, err = bunDB.NewCreateTable().Model((*models.PartyTicket)(nil)).Exec(context.Background())
	if err != nil {
		t.Fatalf("Failed to create party_tickets table: %v", err)
	}

	return &db.DB{Bun: bunDB}, bunDB
}

func makeBatch(orderID, email string, quantity int, status string) []models.Ticket {
	now := time.Now()
	tickets := make([]models.Ticket, 0, quantity)
	for i := 1; i <= quantity; i++ {
		tickets = append(tickets, models.Ticket{
			TicketID:      fmt.Sprintf("FEST-%s-%d", orderID, i),
			OrderID:       orderID,
			StudentName:   "Asha Rao",
			Email:         email,
			Department:    "CSE",
			Semester:      "5",
			StayTiming:    "full_day",
			OrderQuantity: quantity,
			TicketNumber:  i,
			TicketPrice:   549,
			Status:        status,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}
	return tickets
}

func TestCreateBatchAndByOrder(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	err := store.CreateBatch(ctx, makeBatch("order_1", "a@example.com", 4, models.StatusPending))
	require.NoError(t, err)

	tickets, err := store.ByOrder(ctx, "order_1")
	require.NoError(t, err)
	require.Len(t, tickets, 4)

	// Ticket numbers cover 1..Q exactly once, in order.
	for i, ticket := range tickets {
		assert.Equal(t, i+1, ticket.TicketNumber)
		assert.Equal(t, 4, ticket.OrderQuantity)
		assert.Equal(t, models.StatusPending, ticket.Status)
	}
}

func TestCreateBatchIsAtomic(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	batch := makeBatch("order_dup", "a@example.com", 3, models.StatusPending)
	// Duplicate primary key in the same batch forces the insert to fail.
	batch[2].TicketID = batch[0].TicketID

	err := store.CreateBatch(ctx, batch)
	require.Error(t, err)

	tickets, err := store.ByOrder(ctx, "order_dup")
	require.NoError(t, err)
	assert.Empty(t, tickets, "failed batch must not leave partial rows")
}

func TestConfirmByOrderReportsRowsAffected(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	require.NoError(t, store.CreateBatch(ctx, makeBatch("order_2", "b@example.com", 3, models.StatusPending)))

	affected, err := store.ConfirmByOrder(ctx, "order_2", "pay_123")
	require.NoError(t, err)
	assert.Equal(t, int64(3), affected)

	tickets, err := store.ByOrder(ctx, "order_2")
	require.NoError(t, err)
	for _, ticket := range tickets {
		assert.Equal(t, models.StatusConfirmed, ticket.Status)
		assert.Equal(t, "pay_123", ticket.PaymentID)
	}

	// Second confirm finds nothing transitionable.
	affected, err = store.ConfirmByOrder(ctx, "order_2", "pay_123")
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)
}

func TestConfirmByOrderCoversOfflinePending(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	require.NoError(t, store.CreateBatch(ctx, makeBatch("offline-xyz", "c@example.com", 2, models.StatusOfflinePending)))

	affected, err := store.ConfirmByOrder(ctx, "offline-xyz", "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)
}

func TestConfirmedByEmail(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	require.NoError(t, store.CreateBatch(ctx, makeBatch("order_3", "d@example.com", 2, models.StatusPending)))
	require.NoError(t, store.CreateBatch(ctx, makeBatch("order_4", "d@example.com", 1, models.StatusPending)))

	// Nothing confirmed yet.
	tickets, err := store.ConfirmedByEmail(ctx, "d@example.com")
	require.NoError(t, err)
	assert.Empty(t, tickets)

	_, err = store.ConfirmByOrder(ctx, "order_3", "pay_9")
	require.NoError(t, err)

	tickets, err = store.ConfirmedByEmail(ctx, "d@example.com")
	require.NoError(t, err)
	assert.Len(t, tickets, 2)
}

func TestOfflinePendingExcluding(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	require.NoError(t, store.CreateBatch(ctx, makeBatch("offline-1", "keep@example.com", 2, models.StatusOfflinePending)))
	require.NoError(t, store.CreateBatch(ctx, makeBatch("offline-2", "admin@example.com", 1, models.StatusOfflinePending)))
	require.NoError(t, store.CreateBatch(ctx, makeBatch("order_paid", "keep@example.com", 1, models.StatusConfirmed)))

	tickets, err := store.OfflinePendingExcluding(ctx, []string{"admin@example.com"})
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	for _, ticket := range tickets {
		assert.Equal(t, "keep@example.com", ticket.Email)
		assert.Equal(t, models.StatusOfflinePending, ticket.Status)
	}

	// Empty exclusion list returns everything offline_pending.
	tickets, err = store.OfflinePendingExcluding(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, tickets, 3)
}

func TestCountByStatus(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	require.NoError(t, store.CreateBatch(ctx, makeBatch("order_5", "e@example.com", 3, models.StatusPending)))
	_, err := store.ConfirmByOrder(ctx, "order_5", "pay_5")
	require.NoError(t, err)
	require.NoError(t, store.CreateBatch(ctx, makeBatch("order_6", "e@example.com", 2, models.StatusPending)))

	confirmed, err := store.CountByStatus(ctx, models.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, 3, confirmed)

	pending, err := store.CountByStatus(ctx, models.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, 2, pending)
}

func TestPartyTicketLifecycle(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	ticket := models.PartyTicket{
		TicketID:    "PARTY-abc123",
		OrderID:     "order_party_1",
		Name:        "Ravi Kumar",
		Email:       "ravi@example.com",
		Phone:       "9999999999",
		TicketCount: 2,
		TicketPrice: 499,
		Status:      models.StatusPending,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	require.NoError(t, store.CreatePartyTicket(ctx, ticket))

	found, err := store.PartyByOrder(ctx, "order_party_1")
	require.NoError(t, err)
	assert.Equal(t, "PARTY-abc123", found.TicketID)

	affected, err := store.ConfirmPartyByOrder(ctx, "order_party_1", "pay_party")
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	// Replay is a no-op.
	affected, err = store.ConfirmPartyByOrder(ctx, "order_party_1", "pay_party")
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)

	found, err = store.PartyByOrder(ctx, "order_party_1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, found.Status)
	assert.Equal(t, "pay_party", found.PaymentID)
}
