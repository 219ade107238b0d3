package models

// OrderEvent is the payload streamed to Kafka when an order is reserved
// or confirmed. Downstream consumers (analytics, dispatch) key on OrderID.
type OrderEvent struct {
	EventID   string `json:"eventId"`
	OrderID   string `json:"orderId"`
	Email     string `json:"email"`
	Quantity  int    `json:"quantity"`
	Amount    int64  `json:"amount"`
	OrderType string `json:"orderType,omitempty"`
	Offline   bool   `json:"offline,omitempty"`
}
