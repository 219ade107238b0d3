package orders

import (
	"context"
	"fmt"

	"fest-ticketing/internal/models"
	"fest-ticketing/internal/utils"
)

// ReserveOffline holds a batch without touching the payment gateway.
// Payment happens at the ticket desk; the reservation sits in
// offline_pending until an admin confirms it.
func (s *Service) ReserveOffline(ctx context.Context, req PurchaseRequest) (*ReserveResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	quote, err := s.Pricing.Quote(req.TicketQuantity)
	if err != nil {
		return nil, &ValidationError{Field: "ticketQuantity", Reason: err.Error()}
	}

	orderID := utils.GenerateOfflineOrderID()
	if err := s.Store.CreateBatch(ctx, buildBatch(orderID, req, quote, models.StatusOfflinePending)); err != nil {
		return nil, fmt.Errorf("persist offline reservation: %w", err)
	}

	s.Log.LogOrder("OFFLINE", orderID, fmt.Sprintf("%d ticket(s) held for %s", req.TicketQuantity, req.Email))
	s.publishReserved(models.OrderEvent{
		OrderID:  orderID,
		Email:    req.Email,
		Quantity: req.TicketQuantity,
		Amount:   quote.AmountSubunits(),
		Offline:  true,
	})

	// The reservation stands even if the reminder cannot be sent.
	if err := s.Notifier.SendReminder(req.Email, models.ReminderInfo{
		Name:           req.StudentName,
		OrderID:        orderID,
		TotalAmount:    quote.TotalRounded(),
		TicketQuantity: req.TicketQuantity,
	}); err != nil {
		s.Log.Error("MAIL", fmt.Sprintf("Failed to send offline reminder for %s: %v", orderID, err))
	}

	return &ReserveResult{
		OrderID:   orderID,
		Amount:    quote.TotalRounded(),
		Currency:  "INR",
		Breakdown: quote.Breakdown,
	}, nil
}

// ConfirmOfflineOrder moves an offline reservation to confirmed and
// sends the confirmation email once. Replaying the confirm is a no-op:
// the conditional update reports zero rows and no mail goes out.
func (s *Service) ConfirmOfflineOrder(ctx context.Context, orderID string) error {
	affected, err := s.Store.ConfirmByOrder(ctx, orderID, "offline")
	if err != nil {
		return fmt.Errorf("confirm offline order %s: %w", orderID, err)
	}

	if affected == 0 {
		tickets, err := s.Store.ByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if len(tickets) == 0 {
			return &NotFoundError{OrderID: orderID}
		}
		s.Log.LogOrder("CONFIRM", orderID, "already confirmed, nothing to do")
		return nil
	}

	s.invalidateSold(ctx)
	s.Log.LogOrder("CONFIRM", orderID, fmt.Sprintf("%d ticket(s) confirmed offline", affected))

	tickets, err := s.Store.ByOrder(ctx, orderID)
	if err != nil {
		s.Log.Error("ORDER", fmt.Sprintf("Confirmed %s but could not load batch for email: %v", orderID, err))
		return nil
	}

	s.publishConfirmed(models.OrderEvent{
		OrderID:  orderID,
		Email:    tickets[0].Email,
		Quantity: len(tickets),
		Offline:  true,
	})

	if err := s.Notifier.SendConfirmation(tickets[0].Email, tickets); err != nil {
		s.Log.Error("MAIL", fmt.Sprintf("Failed to send confirmation for %s: %v", orderID, err))
	}
	return nil
}

// ResendOfflineReminder re-sends the payment reminder for one
// still-pending offline reservation.
func (s *Service) ResendOfflineReminder(ctx context.Context, orderID string) error {
	tickets, err := s.Store.ByOrderAndStatus(ctx, orderID, models.StatusOfflinePending)
	if err != nil {
		return err
	}
	if len(tickets) == 0 {
		return &NotFoundError{OrderID: orderID}
	}

	if err := s.Notifier.SendReminder(tickets[0].Email, reminderFor(tickets)); err != nil {
		return fmt.Errorf("resend reminder for %s: %w", orderID, err)
	}
	s.Log.LogOrder("REMINDER", orderID, "reminder re-sent")
	return nil
}

// BulkSendOfflineReminders sweeps every offline_pending reservation,
// skipping the configured exclusion list, and sends one reminder per
// order. A failed send is logged and the sweep continues. Returns how
// many reminders went out.
func (s *Service) BulkSendOfflineReminders(ctx context.Context) (int, error) {
	tickets, err := s.Store.OfflinePendingExcluding(ctx, s.Exclusions)
	if err != nil {
		return 0, err
	}

	grouped := make(map[string][]models.Ticket)
	order := make([]string, 0)
	for _, ticket := range tickets {
		if _, ok := grouped[ticket.OrderID]; !ok {
			order = append(order, ticket.OrderID)
		}
		grouped[ticket.OrderID] = append(grouped[ticket.OrderID], ticket)
	}

	sent := 0
	for _, orderID := range order {
		batch := grouped[orderID]
		if err := s.Notifier.SendReminder(batch[0].Email, reminderFor(batch)); err != nil {
			s.Log.Error("MAIL", fmt.Sprintf("Bulk reminder failed for %s: %v", orderID, err))
			continue
		}
		sent++
	}

	s.Log.Info("ADMIN", fmt.Sprintf("Bulk reminder sweep: %d order(s) pending, %d reminder(s) sent", len(order), sent))
	return sent, nil
}

// ResendConfirmation re-sends the confirmation email for an
// already-confirmed order, trying the main family first and the party
// family second.
func (s *Service) ResendConfirmation(ctx context.Context, orderID string) error {
	tickets, err := s.Store.ByOrderAndStatus(ctx, orderID, models.StatusConfirmed)
	if err != nil {
		return err
	}
	if len(tickets) > 0 {
		if err := s.Notifier.SendConfirmation(tickets[0].Email, tickets); err != nil {
			return fmt.Errorf("resend confirmation for %s: %w", orderID, err)
		}
		s.Log.LogOrder("RESEND", orderID, "confirmation re-sent")
		return nil
	}

	party, err := s.Store.PartyByOrder(ctx, orderID)
	if err != nil || party.Status != models.StatusConfirmed {
		return &NotFoundError{OrderID: orderID}
	}
	if err := s.Notifier.SendPartyConfirmation(party.Email, *party); err != nil {
		return fmt.Errorf("resend party confirmation for %s: %w", orderID, err)
	}
	s.Log.LogOrder("RESEND", orderID, "party confirmation re-sent")
	return nil
}

func reminderFor(tickets []models.Ticket) models.ReminderInfo {
	var total int64
	for _, ticket := range tickets {
		total += ticket.TicketPrice
	}
	return models.ReminderInfo{
		Name:           tickets[0].StudentName,
		OrderID:        tickets[0].OrderID,
		TotalAmount:    total,
		TicketQuantity: len(tickets),
	}
}
