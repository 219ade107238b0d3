package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrQuantityOutOfRange is returned before any price is computed when
// the requested quantity falls outside [1, MaxPerOrder].
var ErrQuantityOutOfRange = errors.New("ticket quantity out of range")

// Engine computes deterministic per-unit prices for a purchase. It has
// no side effects; callers decide which variant applies.
type Engine struct {
	Regular     decimal.Decimal
	Early       decimal.Decimal
	MaxPerOrder int
}

func NewEngine(regular, early int64, maxPerOrder int) *Engine {
	return &Engine{
		Regular:     decimal.NewFromInt(regular),
		Early:       decimal.NewFromInt(early),
		MaxPerOrder: maxPerOrder,
	}
}

// Unit is one priced ticket position within an order.
type Unit struct {
	// Price is the exact unit price before storage rounding.
	Price decimal.Decimal
	// StoredPrice is the integer price persisted on the ticket row,
	// rounded at the point of storage. The gateway amount is NOT the
	// sum of stored prices; it is the exact total rounded once.
	StoredPrice int64
	EarlyBird   bool
}

// BreakdownLine groups consecutive units sharing a price, for display.
type BreakdownLine struct {
	Tickets int             `json:"tickets"`
	Price   decimal.Decimal `json:"price"`
}

// Quote is an ordered sequence of unit prices plus their exact sum.
type Quote struct {
	Units     []Unit
	Total     decimal.Decimal
	Breakdown []BreakdownLine
}

// AmountSubunits converts the exact total to currency subunits (paise),
// rounding once. This is the amount sent to the payment gateway.
func (q *Quote) AmountSubunits() int64 {
	return q.Total.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// TotalRounded is the total rounded to whole currency units, used in
// reminder emails and offline receipts.
func (q *Quote) TotalRounded() int64 {
	return q.Total.Round(0).IntPart()
}

func (e *Engine) checkQuantity(quantity int) error {
	if quantity < 1 || quantity > e.MaxPerOrder {
		return fmt.Errorf("%w: must be between 1 and %d, got %d", ErrQuantityOutOfRange, e.MaxPerOrder, quantity)
	}
	return nil
}

// Quote prices an order under the group-discount variant: flat regular
// price, except the 4th ticket of a 4-ticket order is 20% off and the
// 5th ticket of a 5-ticket order is 30% off.
func (e *Engine) Quote(quantity int) (*Quote, error) {
	if err := e.checkQuantity(quantity); err != nil {
		return nil, err
	}

	units := make([]Unit, 0, quantity)
	for i := 0; i < quantity; i++ {
		price := e.Regular
		switch {
		case quantity == 4 && i == 3:
			price = e.Regular.Mul(decimal.New(80, -2))
		case quantity == 5 && i == 4:
			price = e.Regular.Mul(decimal.New(70, -2))
		}
		units = append(units, Unit{
			Price:       price,
			StoredPrice: price.Round(0).IntPart(),
		})
	}

	return e.build(units), nil
}

// EarlyBirdQuote prices an order under the early-bird variant: the
// first min(remaining, quantity) units at the early rate, the rest at
// regular. remaining below zero is treated as zero.
func (e *Engine) EarlyBirdQuote(quantity, remaining int) (*Quote, error) {
	if err := e.checkQuantity(quantity); err != nil {
		return nil, err
	}
	if remaining < 0 {
		remaining = 0
	}

	earlyCount := remaining
	if earlyCount > quantity {
		earlyCount = quantity
	}

	units := make([]Unit, 0, quantity)
	for i := 0; i < quantity; i++ {
		if i < earlyCount {
			units = append(units, Unit{
				Price:       e.Early,
				StoredPrice: e.Early.IntPart(),
				EarlyBird:   true,
			})
		} else {
			units = append(units, Unit{
				Price:       e.Regular,
				StoredPrice: e.Regular.IntPart(),
			})
		}
	}

	return e.build(units), nil
}

func (e *Engine) build(units []Unit) *Quote {
	total := decimal.Zero
	var breakdown []BreakdownLine
	for _, u := range units {
		total = total.Add(u.Price)
		if n := len(breakdown); n > 0 && breakdown[n-1].Price.Equal(u.Price) {
			breakdown[n-1].Tickets++
		} else {
			breakdown = append(breakdown, BreakdownLine{Tickets: 1, Price: u.Price})
		}
	}
	return &Quote{Units: units, Total: total, Breakdown: breakdown}
}
