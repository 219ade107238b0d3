package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"fest-ticketing/internal/logger"
	"fest-ticketing/internal/models"
)

// EventPaymentCaptured is the only gateway event that mutates state.
const EventPaymentCaptured = "payment.captured"

// SignatureError means the delivery failed HMAC verification. Nothing
// was parsed and nothing was written.
type SignatureError struct{}

func (e *SignatureError) Error() string {
	return "webhook signature verification failed"
}

// TicketStore is the slice of the store the reconciler needs.
type TicketStore interface {
	ConfirmByOrder(ctx context.Context, orderID, paymentID string) (int64, error)
	ByOrder(ctx context.Context, orderID string) ([]models.Ticket, error)
	ConfirmPartyByOrder(ctx context.Context, orderID, paymentID string) (int64, error)
	PartyByOrder(ctx context.Context, orderID string) (*models.PartyTicket, error)
}

type Notifier interface {
	SendConfirmation(email string, tickets []models.Ticket) error
	SendPartyConfirmation(email string, ticket models.PartyTicket) error
}

type Publisher interface {
	PublishOrderConfirmed(event models.OrderEvent) error
}

type Invalidator interface {
	Invalidate(ctx context.Context)
}

// Reconciler turns verified payment.captured deliveries into confirmed
// ticket batches. Duplicate deliveries are expected from the gateway;
// the conditional update's affected-row count is the notify-once guard.
type Reconciler struct {
	secret    []byte
	Store     TicketStore
	Notifier  Notifier
	Publisher Publisher   // nil when Kafka is disabled
	Cache     Invalidator // nil when Redis is disabled
	Log       *logger.Logger
}

func NewReconciler(secret string, store TicketStore, notifier Notifier, log *logger.Logger) *Reconciler {
	return &Reconciler{
		secret:   []byte(secret),
		Store:    store,
		Notifier: notifier,
		Log:      log,
	}
}

// Reconcile verifies and applies one webhook delivery. rawBody must be
// the exact bytes received on the wire: the signature is computed over
// the serialized form, and re-serializing a parsed object breaks it.
//
// A nil return acknowledges the delivery. Only signature failures and
// store errors are returned, because those are the cases where making
// the gateway retry can help.
func (r *Reconciler) Reconcile(ctx context.Context, rawBody []byte, signature string) error {
	mac := hmac.New(sha256.New, r.secret)
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return &SignatureError{}
	}

	var event models.WebhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		r.Log.LogAnomaly("-", fmt.Sprintf("signed webhook with unparseable body: %v", err))
		return nil
	}

	if event.Event != EventPaymentCaptured {
		r.Log.LogWebhook("IGNORED", "-", fmt.Sprintf("event %q has no handler", event.Event))
		return nil
	}

	payment := event.Payload.Payment.Entity
	if payment.OrderID == "" {
		r.Log.LogAnomaly("-", "payment.captured without an order id")
		return nil
	}

	switch payment.Notes[models.NoteOrderType] {
	case "":
		return r.confirmMain(ctx, payment)
	case models.OrderTypeParty:
		return r.confirmParty(ctx, payment)
	default:
		r.Log.LogAnomaly(payment.OrderID, fmt.Sprintf("unknown order_type %q in notes", payment.Notes[models.NoteOrderType]))
		return nil
	}
}

func (r *Reconciler) confirmMain(ctx context.Context, payment models.PaymentEntity) error {
	affected, err := r.Store.ConfirmByOrder(ctx, payment.OrderID, payment.ID)
	if err != nil {
		return fmt.Errorf("confirm order %s: %w", payment.OrderID, err)
	}

	if affected == 0 {
		tickets, err := r.Store.ByOrder(ctx, payment.OrderID)
		if err != nil {
			return err
		}
		if len(tickets) == 0 {
			r.Log.LogAnomaly(payment.OrderID, "captured payment has no matching tickets")
			return nil
		}
		r.Log.LogWebhook("DUPLICATE", payment.OrderID, "already confirmed, skipping notification")
		return nil
	}

	r.invalidate(ctx)
	r.Log.LogWebhook("CONFIRMED", payment.OrderID, fmt.Sprintf("%d ticket(s) confirmed by payment %s", affected, payment.ID))

	tickets, err := r.Store.ByOrder(ctx, payment.OrderID)
	if err != nil {
		r.Log.Error("WEBHOOK", fmt.Sprintf("Confirmed %s but could not load batch for email: %v", payment.OrderID, err))
		return nil
	}

	r.publish(models.OrderEvent{
		OrderID:  payment.OrderID,
		Email:    tickets[0].Email,
		Quantity: len(tickets),
		Amount:   payment.Amount,
	})

	if err := r.Notifier.SendConfirmation(tickets[0].Email, tickets); err != nil {
		// Tickets stay confirmed; a missed email is recoverable via
		// the resend endpoint.
		r.Log.Error("MAIL", fmt.Sprintf("Failed to send confirmation for %s: %v", payment.OrderID, err))
	}
	return nil
}

func (r *Reconciler) confirmParty(ctx context.Context, payment models.PaymentEntity) error {
	affected, err := r.Store.ConfirmPartyByOrder(ctx, payment.OrderID, payment.ID)
	if err != nil {
		return fmt.Errorf("confirm party order %s: %w", payment.OrderID, err)
	}

	if affected == 0 {
		_, err := r.Store.PartyByOrder(ctx, payment.OrderID)
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.LogAnomaly(payment.OrderID, "captured party payment has no matching pass")
			return nil
		}
		if err != nil {
			return err
		}
		r.Log.LogWebhook("DUPLICATE", payment.OrderID, "party pass already confirmed, skipping notification")
		return nil
	}

	r.Log.LogWebhook("CONFIRMED", payment.OrderID, fmt.Sprintf("party pass confirmed by payment %s", payment.ID))

	ticket, err := r.Store.PartyByOrder(ctx, payment.OrderID)
	if err != nil {
		r.Log.Error("WEBHOOK", fmt.Sprintf("Confirmed party order %s but could not load pass for email: %v", payment.OrderID, err))
		return nil
	}

	r.publish(models.OrderEvent{
		OrderID:   payment.OrderID,
		Email:     ticket.Email,
		Quantity:  ticket.TicketCount,
		Amount:    payment.Amount,
		OrderType: models.OrderTypeParty,
	})

	if err := r.Notifier.SendPartyConfirmation(ticket.Email, *ticket); err != nil {
		r.Log.Error("MAIL", fmt.Sprintf("Failed to send party confirmation for %s: %v", payment.OrderID, err))
	}
	return nil
}

func (r *Reconciler) publish(event models.OrderEvent) {
	if r.Publisher == nil {
		return
	}
	if err := r.Publisher.PublishOrderConfirmed(event); err != nil {
		r.Log.Error("KAFKA", fmt.Sprintf("Failed to publish confirmed event for %s: %v", event.OrderID, err))
	}
}

func (r *Reconciler) invalidate(ctx context.Context) {
	if r.Cache != nil {
		r.Cache.Invalidate(ctx)
	}
}
