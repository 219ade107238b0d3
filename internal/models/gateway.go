package models

// Keys used in the notes map attached at order creation. The webhook
// payload echoes notes verbatim; order_type is the only way the
// reconciler can tell ticket families apart.
const (
	NoteOrderType      = "order_type"
	NoteTicketQuantity = "ticketQuantity"
	NoteCustomerEmail  = "customerEmail"
	NoteCustomerName   = "customerName"

	OrderTypeParty = "dj_party"
)

// GatewayOrderOptions is the request body for creating a gateway order.
// Amount is in currency subunits (paise).
type GatewayOrderOptions struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes"`
}

// GatewayOrder is the gateway's view of a created order.
type GatewayOrder struct {
	ID        string            `json:"id"`
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	Receipt   string            `json:"receipt"`
	Status    string            `json:"status"`
	Notes     map[string]string `json:"notes"`
	CreatedAt int64             `json:"created_at"`
}

// WebhookEvent mirrors the gateway's webhook envelope for the event
// kinds this service consumes.
type WebhookEvent struct {
	Event   string         `json:"event"`
	Payload WebhookPayload `json:"payload"`
}

type WebhookPayload struct {
	Payment WebhookPaymentWrapper `json:"payment"`
}

type WebhookPaymentWrapper struct {
	Entity PaymentEntity `json:"entity"`
}

// PaymentEntity is the captured payment inside a webhook delivery.
type PaymentEntity struct {
	ID      string            `json:"id"`
	OrderID string            `json:"order_id"`
	Amount  int64             `json:"amount"`
	Status  string            `json:"status"`
	Notes   map[string]string `json:"notes"`
}
