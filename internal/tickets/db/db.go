package db

import (
	"context"
	"database/sql"
	"time"

	"fest-ticketing/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// transitionable are the statuses a confirm is allowed to move from.
// Conditional updates over this set are what make webhook replays and
// concurrent duplicate deliveries safe.
var transitionable = []string{models.StatusPending, models.StatusOfflinePending}

// ---------------- MAIN EVENT TICKETS ----------------

// CreateBatch inserts all tickets of one order inside a transaction so
// a failure never leaves a partial batch visible.
func (d *DB) CreateBatch(ctx context.Context, tickets []models.Ticket) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&tickets).Exec(ctx)
		return err
	})
}

// ByOrder fetches every ticket sharing an order id, in batch position order.
func (d *DB) ByOrder(ctx context.Context, orderID string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("order_id = ?", orderID).
		Order("ticket_number ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// ByOrderAndStatus fetches the tickets of an order currently in the given status.
func (d *DB) ByOrderAndStatus(ctx context.Context, orderID, status string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("order_id = ?", orderID).
		Where("status = ?", status).
		Order("ticket_number ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// ConfirmByOrder transitions every pending/offline_pending ticket of an
// order to confirmed, stamping the payment id, and reports how many
// rows actually changed. Already-confirmed rows are untouched, so a
// second call for the same order returns 0.
func (d *DB) ConfirmByOrder(ctx context.Context, orderID, paymentID string) (int64, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Ticket)(nil)).
		Set("status = ?", models.StatusConfirmed).
		Set("payment_id = ?", paymentID).
		Set("updated_at = ?", time.Now()).
		Where("order_id = ?", orderID).
		Where("status IN (?)", bun.In(transitionable)).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ConfirmedByEmail returns a purchaser's confirmed tickets, newest first.
func (d *DB) ConfirmedByEmail(ctx context.Context, email string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("email = ?", email).
		Where("status = ?", models.StatusConfirmed).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// OfflinePendingExcluding returns all offline_pending tickets whose
// purchaser email is not in the exclusion list.
func (d *DB) OfflinePendingExcluding(ctx context.Context, excluded []string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	q := d.Bun.NewSelect().
		Model(&tickets).
		Where("status = ?", models.StatusOfflinePending)
	if len(excluded) > 0 {
		q = q.Where("email NOT IN (?)", bun.In(excluded))
	}
	if err := q.Order("created_at ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return tickets, nil
}

// CountByStatus counts tickets in a given status. Confirmed count
// doubles as the sold-tickets total and the early-bird consumption.
func (d *DB) CountByStatus(ctx context.Context, status string) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		Where("status = ?", status).
		Count(ctx)
}

// CountEarlyBird counts early-bird tickets in a live status. The count
// is what consumes slots against the configured limit.
func (d *DB) CountEarlyBird(ctx context.Context) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		Where("is_early_bird = ?", true).
		Where("status IN (?)", bun.In([]string{models.StatusPending, models.StatusOfflinePending, models.StatusConfirmed})).
		Count(ctx)
}

// DeleteByOrder removes every ticket of an order. Used only as
// best-effort cleanup when batch creation fails mid-way on stores
// without transactions.
func (d *DB) DeleteByOrder(ctx context.Context, orderID string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Ticket)(nil)).
		Where("order_id = ?", orderID).
		Exec(ctx)
	return err
}

// ---------------- PARTY TICKETS ----------------

func (d *DB) CreatePartyTicket(ctx context.Context, ticket models.PartyTicket) error {
	_, err := d.Bun.NewInsert().Model(&ticket).Exec(ctx)
	return err
}

func (d *DB) PartyByOrder(ctx context.Context, orderID string) (*models.PartyTicket, error) {
	var ticket models.PartyTicket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("order_id = ?", orderID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// ConfirmPartyByOrder is the single-row analogue of ConfirmByOrder.
func (d *DB) ConfirmPartyByOrder(ctx context.Context, orderID, paymentID string) (int64, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.PartyTicket)(nil)).
		Set("status = ?", models.StatusConfirmed).
		Set("payment_id = ?", paymentID).
		Set("updated_at = ?", time.Now()).
		Where("order_id = ?", orderID).
		Where("status = ?", models.StatusPending).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
