package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Ticket statuses. A batch moves pending (or offline_pending) to
// confirmed together; cancelled and failed are terminal side states.
const (
	StatusPending        = "pending"
	StatusOfflinePending = "offline_pending"
	StatusConfirmed      = "confirmed"
	StatusCancelled      = "cancelled"
	StatusFailed         = "failed"
)

// Ticket is one seat/pass. Tickets bought together share an OrderID and
// carry TicketNumber 1..OrderQuantity, unique per (order_id, ticket_number).
type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	TicketID      string    `bun:"ticket_id,pk" json:"ticketId"`
	OrderID       string    `bun:"order_id,notnull" json:"orderId"`
	StudentName   string    `bun:"student_name,notnull" json:"studentName"`
	Email         string    `bun:"email,notnull" json:"email"`
	Department    string    `bun:"department,notnull" json:"department"`
	Semester      string    `bun:"semester,notnull" json:"semester"`
	StayTiming    string    `bun:"stay_timing" json:"stayTiming"`
	OrderQuantity int       `bun:"order_quantity,notnull" json:"orderQuantity"`
	TicketNumber  int       `bun:"ticket_number,notnull" json:"ticketNumber"`
	TicketPrice   int64     `bun:"ticket_price,notnull" json:"ticketPrice"`
	IsEarlyBird   bool      `bun:"is_early_bird" json:"isEarlyBird"`
	Status        string    `bun:"status,notnull" json:"status"`
	PaymentID     string    `bun:"payment_id" json:"paymentId,omitempty"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt     time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updatedAt"`
}

// PartyTicket is the side-event pass: one row covers the whole batch.
type PartyTicket struct {
	bun.BaseModel `bun:"table:party_tickets"`

	TicketID    string    `bun:"ticket_id,pk" json:"ticketId"`
	OrderID     string    `bun:"order_id,notnull" json:"orderId"`
	Name        string    `bun:"name,notnull" json:"name"`
	Email       string    `bun:"email,notnull" json:"email"`
	Phone       string    `bun:"phone,notnull" json:"phone"`
	TicketCount int       `bun:"ticket_count,notnull" json:"ticketCount"`
	TicketPrice int64     `bun:"ticket_price,notnull" json:"ticketPrice"`
	Status      string    `bun:"status,notnull" json:"status"`
	PaymentID   string    `bun:"payment_id" json:"paymentId,omitempty"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updatedAt"`
}

// ReminderInfo is the payload for an offline payment reminder email.
type ReminderInfo struct {
	Name           string `json:"name"`
	OrderID        string `json:"orderId"`
	TotalAmount    int64  `json:"totalAmount"`
	TicketQuantity int    `json:"ticketQuantity"`
}
