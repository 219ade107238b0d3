package orders

import "fmt"

// ValidationError rejects a request before any outbound call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// UpstreamError wraps a payment gateway failure. No tickets exist when
// this is returned.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// PartialFailure means a gateway order was created but the matching
// tickets could not be persisted. The gateway side now holds an order
// with no tickets behind it, which operators must reconcile by hand.
type PartialFailure struct {
	OrderID string
	Email   string
	Amount  int64
	Err     error
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("gateway order %s (%s, %d subunits) created but tickets not persisted: %v",
		e.OrderID, e.Email, e.Amount, e.Err)
}

func (e *PartialFailure) Unwrap() error { return e.Err }

// NotFoundError reports an admin operation against an order id that has
// no rows in the expected state.
type NotFoundError struct {
	OrderID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no matching tickets for order %s", e.OrderID)
}
