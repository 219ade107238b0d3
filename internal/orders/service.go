package orders

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"fest-ticketing/internal/logger"
	"fest-ticketing/internal/models"
	"fest-ticketing/internal/pricing"
	"fest-ticketing/internal/utils"
)

// TicketStore is the persistence surface the service depends on.
type TicketStore interface {
	CreateBatch(ctx context.Context, tickets []models.Ticket) error
	ByOrder(ctx context.Context, orderID string) ([]models.Ticket, error)
	ByOrderAndStatus(ctx context.Context, orderID, status string) ([]models.Ticket, error)
	ConfirmByOrder(ctx context.Context, orderID, paymentID string) (int64, error)
	ConfirmedByEmail(ctx context.Context, email string) ([]models.Ticket, error)
	OfflinePendingExcluding(ctx context.Context, excluded []string) ([]models.Ticket, error)
	CountByStatus(ctx context.Context, status string) (int, error)
	CountEarlyBird(ctx context.Context) (int, error)
	CreatePartyTicket(ctx context.Context, ticket models.PartyTicket) error
	PartyByOrder(ctx context.Context, orderID string) (*models.PartyTicket, error)
	ConfirmPartyByOrder(ctx context.Context, orderID, paymentID string) (int64, error)
}

// Gateway creates remote payment orders.
type Gateway interface {
	CreateOrder(ctx context.Context, opts models.GatewayOrderOptions) (*models.GatewayOrder, error)
}

// Notifier sends transactional mail.
type Notifier interface {
	SendConfirmation(email string, tickets []models.Ticket) error
	SendPartyConfirmation(email string, ticket models.PartyTicket) error
	SendReminder(email string, info models.ReminderInfo) error
}

// Publisher streams order lifecycle events.
type Publisher interface {
	PublishOrderReserved(event models.OrderEvent) error
	PublishOrderConfirmed(event models.OrderEvent) error
}

// SoldCounter serves the cached ticket counters.
type SoldCounter interface {
	TotalSold(ctx context.Context) (int, error)
	EarlyBirdRemaining(ctx context.Context, limit int) (int, error)
	Invalidate(ctx context.Context)
}

type Service struct {
	Store          TicketStore
	Gateway        Gateway
	Notifier       Notifier
	Publisher      Publisher // nil when Kafka is disabled
	Sold           SoldCounter
	Pricing        *pricing.Engine
	PartyPrice     int64
	EarlyBirdLimit int
	// Exclusions are emails the bulk reminder sweep skips.
	Exclusions []string
	Log        *logger.Logger
}

// PurchaseRequest is a main-event ticket purchase.
type PurchaseRequest struct {
	StudentName    string `json:"studentName"`
	Email          string `json:"email"`
	Department     string `json:"department"`
	Semester       string `json:"semester"`
	StayTiming     string `json:"stayTiming"`
	TicketQuantity int    `json:"ticketQuantity"`
}

func (r *PurchaseRequest) validate() error {
	for field, value := range map[string]string{
		"studentName": r.StudentName,
		"email":       r.Email,
		"department":  r.Department,
		"semester":    r.Semester,
	} {
		if strings.TrimSpace(value) == "" {
			return &ValidationError{Field: field, Reason: "required"}
		}
	}
	return nil
}

// PartyRequest is a side-event pass purchase.
type PartyRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	TicketCount int    `json:"ticketCount"`
}

func (r *PartyRequest) validate(max int) error {
	for field, value := range map[string]string{
		"name":  r.Name,
		"email": r.Email,
		"phone": r.Phone,
	} {
		if strings.TrimSpace(value) == "" {
			return &ValidationError{Field: field, Reason: "required"}
		}
	}
	if r.TicketCount < 1 || r.TicketCount > max {
		return &ValidationError{Field: "ticketCount", Reason: fmt.Sprintf("must be between 1 and %d", max)}
	}
	return nil
}

// ReserveResult is returned to the client so it can open checkout.
type ReserveResult struct {
	OrderID   string                  `json:"orderId"`
	Amount    int64                   `json:"amount"`
	Currency  string                  `json:"currency"`
	Breakdown []pricing.BreakdownLine `json:"breakdown,omitempty"`
}

// Reserve prices the purchase, creates a gateway order and persists the
// ticket batch in pending state. The gateway sees the exact total
// rounded once to subunits; each row stores its own rounded unit price.
func (s *Service) Reserve(ctx context.Context, req PurchaseRequest) (*ReserveResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	quote, err := s.Pricing.Quote(req.TicketQuantity)
	if err != nil {
		return nil, &ValidationError{Field: "ticketQuantity", Reason: err.Error()}
	}

	order, err := s.Gateway.CreateOrder(ctx, models.GatewayOrderOptions{
		Amount:   quote.AmountSubunits(),
		Currency: "INR",
		Receipt:  utils.GenerateReceiptID("ticket"),
		Notes: map[string]string{
			models.NoteTicketQuantity: strconv.Itoa(req.TicketQuantity),
			models.NoteCustomerEmail:  req.Email,
			models.NoteCustomerName:   req.StudentName,
		},
	})
	if err != nil {
		return nil, &UpstreamError{Op: "create gateway order", Err: err}
	}

	if err := s.Store.CreateBatch(ctx, buildBatch(order.ID, req, quote, models.StatusPending)); err != nil {
		failure := &PartialFailure{OrderID: order.ID, Email: req.Email, Amount: order.Amount, Err: err}
		s.Log.Error("ORDER", failure.Error())
		return nil, failure
	}

	s.Log.LogOrder("RESERVED", order.ID, fmt.Sprintf("%d ticket(s) pending for %s", req.TicketQuantity, req.Email))
	s.publishReserved(models.OrderEvent{
		OrderID:  order.ID,
		Email:    req.Email,
		Quantity: req.TicketQuantity,
		Amount:   order.Amount,
	})

	return &ReserveResult{
		OrderID:   order.ID,
		Amount:    order.Amount,
		Currency:  order.Currency,
		Breakdown: quote.Breakdown,
	}, nil
}

// ReserveParty reserves a side-event pass: one row covering the whole
// batch, flat per-head price, tagged order_type=dj_party so the webhook
// path can tell the families apart.
func (s *Service) ReserveParty(ctx context.Context, req PartyRequest) (*ReserveResult, error) {
	if err := req.validate(s.Pricing.MaxPerOrder); err != nil {
		return nil, err
	}

	amount := s.PartyPrice * int64(req.TicketCount) * 100

	order, err := s.Gateway.CreateOrder(ctx, models.GatewayOrderOptions{
		Amount:   amount,
		Currency: "INR",
		Receipt:  utils.GenerateReceiptID("party"),
		Notes: map[string]string{
			models.NoteOrderType:      models.OrderTypeParty,
			models.NoteTicketQuantity: strconv.Itoa(req.TicketCount),
			models.NoteCustomerEmail:  req.Email,
			models.NoteCustomerName:   req.Name,
		},
	})
	if err != nil {
		return nil, &UpstreamError{Op: "create gateway order", Err: err}
	}

	ticket := models.PartyTicket{
		TicketID:    utils.GenerateTicketID("PARTY"),
		OrderID:     order.ID,
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		TicketCount: req.TicketCount,
		TicketPrice: s.PartyPrice,
		Status:      models.StatusPending,
	}
	if err := s.Store.CreatePartyTicket(ctx, ticket); err != nil {
		failure := &PartialFailure{OrderID: order.ID, Email: req.Email, Amount: order.Amount, Err: err}
		s.Log.Error("ORDER", failure.Error())
		return nil, failure
	}

	s.Log.LogOrder("RESERVED", order.ID, fmt.Sprintf("party pass pending for %s (admits %d)", req.Email, req.TicketCount))
	s.publishReserved(models.OrderEvent{
		OrderID:   order.ID,
		Email:     req.Email,
		Quantity:  req.TicketCount,
		Amount:    order.Amount,
		OrderType: models.OrderTypeParty,
	})

	return &ReserveResult{OrderID: order.ID, Amount: order.Amount, Currency: order.Currency}, nil
}

// OrderGroup is one purchase in a user's ticket history.
type OrderGroup struct {
	OrderID string          `json:"orderId"`
	Tickets []models.Ticket `json:"tickets"`
}

// UserTickets returns a purchaser's confirmed tickets grouped by order,
// newest purchase first.
func (s *Service) UserTickets(ctx context.Context, email string) ([]OrderGroup, error) {
	if strings.TrimSpace(email) == "" {
		return nil, &ValidationError{Field: "email", Reason: "required"}
	}

	tickets, err := s.Store.ConfirmedByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	groups := make([]OrderGroup, 0)
	index := make(map[string]int)
	for _, ticket := range tickets {
		i, ok := index[ticket.OrderID]
		if !ok {
			i = len(groups)
			index[ticket.OrderID] = i
			groups = append(groups, OrderGroup{OrderID: ticket.OrderID})
		}
		groups[i].Tickets = append(groups[i].Tickets, ticket)
	}
	return groups, nil
}

// TotalSold returns the confirmed-ticket count, from cache when wired.
func (s *Service) TotalSold(ctx context.Context) (int, error) {
	if s.Sold != nil {
		return s.Sold.TotalSold(ctx)
	}
	return s.Store.CountByStatus(ctx, models.StatusConfirmed)
}

// EarlyBirdStatus reports how many early-bird slots remain under the
// configured limit, never below zero.
func (s *Service) EarlyBirdStatus(ctx context.Context) (int, error) {
	if s.Sold != nil {
		return s.Sold.EarlyBirdRemaining(ctx, s.EarlyBirdLimit)
	}
	consumed, err := s.Store.CountEarlyBird(ctx)
	if err != nil {
		return 0, err
	}
	if consumed >= s.EarlyBirdLimit {
		return 0, nil
	}
	return s.EarlyBirdLimit - consumed, nil
}

func buildBatch(orderID string, req PurchaseRequest, quote *pricing.Quote, status string) []models.Ticket {
	tickets := make([]models.Ticket, 0, len(quote.Units))
	for i, unit := range quote.Units {
		tickets = append(tickets, models.Ticket{
			TicketID:      utils.GenerateTicketID("FEST"),
			OrderID:       orderID,
			StudentName:   req.StudentName,
			Email:         req.Email,
			Department:    req.Department,
			Semester:      req.Semester,
			StayTiming:    req.StayTiming,
			OrderQuantity: len(quote.Units),
			TicketNumber:  i + 1,
			TicketPrice:   unit.StoredPrice,
			IsEarlyBird:   unit.EarlyBird,
			Status:        status,
		})
	}
	return tickets
}

func (s *Service) publishReserved(event models.OrderEvent) {
	if s.Publisher == nil {
		return
	}
	if err := s.Publisher.PublishOrderReserved(event); err != nil {
		s.Log.Error("KAFKA", fmt.Sprintf("Failed to publish reserved event for %s: %v", event.OrderID, err))
	}
}

func (s *Service) publishConfirmed(event models.OrderEvent) {
	if s.Publisher == nil {
		return
	}
	if err := s.Publisher.PublishOrderConfirmed(event); err != nil {
		s.Log.Error("KAFKA", fmt.Sprintf("Failed to publish confirmed event for %s: %v", event.OrderID, err))
	}
}

func (s *Service) invalidateSold(ctx context.Context) {
	if s.Sold != nil {
		s.Sold.Invalidate(ctx)
	}
}
