package webhook_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"testing"

	"fest-ticketing/internal/logger"
	"fest-ticketing/internal/models"
	"fest-ticketing/internal/webhook"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "whsec_test"

type fakeStore struct {
	tickets      []models.Ticket
	party        []models.PartyTicket
	confirmCalls int
}

func (f *fakeStore) ConfirmByOrder(ctx context.Context, orderID, paymentID string) (int64, error) {
	f.confirmCalls++
	var affected int64
	for i, t := range f.tickets {
		if t.OrderID == orderID && (t.Status == models.StatusPending || t.Status == models.StatusOfflinePending) {
			f.tickets[i].Status = models.StatusConfirmed
			f.tickets[i].PaymentID = paymentID
			affected++
		}
	}
	return affected, nil
}

func (f *fakeStore) ByOrder(ctx context.Context, orderID string) ([]models.Ticket, error) {
	var out []models.Ticket
	for _, t := range f.tickets {
		if t.OrderID == orderID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) ConfirmPartyByOrder(ctx context.Context, orderID, paymentID string) (int64, error) {
	f.confirmCalls++
	for i := range f.party {
		if f.party[i].OrderID == orderID && f.party[i].Status == models.StatusPending {
			f.party[i].Status = models.StatusConfirmed
			f.party[i].PaymentID = paymentID
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeStore) PartyByOrder(ctx context.Context, orderID string) (*models.PartyTicket, error) {
	for i := range f.party {
		if f.party[i].OrderID == orderID {
			return &f.party[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

type fakeNotifier struct {
	confirmations []string
	partyMails    []string
	lastBatch     []models.Ticket
}

func (f *fakeNotifier) SendConfirmation(email string, tickets []models.Ticket) error {
	f.confirmations = append(f.confirmations, email)
	f.lastBatch = tickets
	return nil
}

func (f *fakeNotifier) SendPartyConfirmation(email string, ticket models.PartyTicket) error {
	f.partyMails = append(f.partyMails, email)
	return nil
}

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func capturedBody(orderID, paymentID string, notes string) []byte {
	return []byte(fmt.Sprintf(`{
		"event": "payment.captured",
		"payload": {"payment": {"entity": {
			"id": %q, "order_id": %q, "amount": 109800, "status": "captured",
			"notes": {%s}
		}}}
	}`, paymentID, orderID, notes))
}

func pendingBatch(orderID string, quantity int) []models.Ticket {
	tickets := make([]models.Ticket, 0, quantity)
	for i := 1; i <= quantity; i++ {
		tickets = append(tickets, models.Ticket{
			TicketID:     fmt.Sprintf("FEST-%d", i),
			OrderID:      orderID,
			StudentName:  "Asha Rao",
			Email:        "asha@example.com",
			TicketNumber: i,
			Status:       models.StatusPending,
		})
	}
	return tickets
}

func newReconciler(store *fakeStore, mail *fakeNotifier) *webhook.Reconciler {
	return webhook.NewReconciler(secret, store, mail, logger.NewLogger())
}

func TestReconcileTamperedSignature(t *testing.T) {
	store := &fakeStore{tickets: pendingBatch("order_1", 2)}
	rec := newReconciler(store, &fakeNotifier{})

	body := capturedBody("order_1", "pay_1", `"customerEmail": "asha@example.com"`)
	err := rec.Reconcile(context.Background(), body, sign(append(body, ' ')))

	var serr *webhook.SignatureError
	require.ErrorAs(t, err, &serr)
	assert.Zero(t, store.confirmCalls, "a rejected delivery must not touch the store")
	for _, ticket := range store.tickets {
		assert.Equal(t, models.StatusPending, ticket.Status)
	}
}

func TestReconcileIgnoresOtherEvents(t *testing.T) {
	store := &fakeStore{tickets: pendingBatch("order_1", 1)}
	rec := newReconciler(store, &fakeNotifier{})

	body := []byte(`{"event": "payment.authorized", "payload": {"payment": {"entity": {"order_id": "order_1"}}}}`)
	require.NoError(t, rec.Reconcile(context.Background(), body, sign(body)))
	assert.Zero(t, store.confirmCalls)
}

func TestReconcileConfirmsBatch(t *testing.T) {
	store := &fakeStore{tickets: pendingBatch("order_1", 3)}
	mail := &fakeNotifier{}
	rec := newReconciler(store, mail)

	body := capturedBody("order_1", "pay_1", `"ticketQuantity": "3"`)
	require.NoError(t, rec.Reconcile(context.Background(), body, sign(body)))

	for _, ticket := range store.tickets {
		assert.Equal(t, models.StatusConfirmed, ticket.Status)
		assert.Equal(t, "pay_1", ticket.PaymentID)
	}

	// One email, to the batch's shared address, carrying all tickets.
	require.Equal(t, []string{"asha@example.com"}, mail.confirmations)
	assert.Len(t, mail.lastBatch, 3)
}

func TestReconcileDuplicateDeliverySendsOneEmail(t *testing.T) {
	store := &fakeStore{tickets: pendingBatch("order_1", 2)}
	mail := &fakeNotifier{}
	rec := newReconciler(store, mail)

	body := capturedBody("order_1", "pay_1", ``)
	require.NoError(t, rec.Reconcile(context.Background(), body, sign(body)))
	require.NoError(t, rec.Reconcile(context.Background(), body, sign(body)))

	assert.Len(t, mail.confirmations, 1, "duplicate delivery must not re-notify")
}

func TestReconcileUnknownOrderIsAnomaly(t *testing.T) {
	store := &fakeStore{}
	mail := &fakeNotifier{}
	rec := newReconciler(store, mail)

	body := capturedBody("order_ghost", "pay_1", ``)
	// Acknowledged: retrying cannot make the tickets appear.
	require.NoError(t, rec.Reconcile(context.Background(), body, sign(body)))
	assert.Empty(t, mail.confirmations)
}

func TestReconcileUnknownOrderTypeIsAcknowledged(t *testing.T) {
	store := &fakeStore{tickets: pendingBatch("order_1", 1)}
	rec := newReconciler(store, &fakeNotifier{})

	body := capturedBody("order_1", "pay_1", `"order_type": "merch_drop"`)
	require.NoError(t, rec.Reconcile(context.Background(), body, sign(body)))
	assert.Zero(t, store.confirmCalls)
	assert.Equal(t, models.StatusPending, store.tickets[0].Status)
}

func TestReconcilePartyOrder(t *testing.T) {
	store := &fakeStore{party: []models.PartyTicket{{
		TicketID:    "PARTY-1",
		OrderID:     "order_party",
		Name:        "Ravi Kumar",
		Email:       "ravi@example.com",
		TicketCount: 2,
		Status:      models.StatusPending,
	}}}
	mail := &fakeNotifier{}
	rec := newReconciler(store, mail)

	body := capturedBody("order_party", "pay_p1", `"order_type": "dj_party"`)
	require.NoError(t, rec.Reconcile(context.Background(), body, sign(body)))

	assert.Equal(t, models.StatusConfirmed, store.party[0].Status)
	assert.Equal(t, "pay_p1", store.party[0].PaymentID)
	assert.Equal(t, []string{"ravi@example.com"}, mail.partyMails)
	assert.Empty(t, mail.confirmations)

	// Replay: confirmed already, no second email.
	require.NoError(t, rec.Reconcile(context.Background(), body, sign(body)))
	assert.Len(t, mail.partyMails, 1)
}

func TestReconcileCoversOfflinePending(t *testing.T) {
	batch := pendingBatch("offline-abc", 2)
	for i := range batch {
		batch[i].Status = models.StatusOfflinePending
	}
	store := &fakeStore{tickets: batch}
	mail := &fakeNotifier{}
	rec := newReconciler(store, mail)

	body := capturedBody("offline-abc", "pay_1", ``)
	require.NoError(t, rec.Reconcile(context.Background(), body, sign(body)))

	for _, ticket := range store.tickets {
		assert.Equal(t, models.StatusConfirmed, ticket.Status)
	}
	assert.Len(t, mail.confirmations, 1)
}
