package pricing_test

import (
	"testing"

	"fest-ticketing/internal/pricing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine() *pricing.Engine {
	return pricing.NewEngine(549, 494, 5)
}

func TestQuoteTotals(t *testing.T) {
	engine := newEngine()

	cases := []struct {
		quantity int
		total    string
		subunits int64
	}{
		{1, "549", 54900},
		{2, "1098", 109800},
		{3, "1647", 164700},
		{4, "1866.6", 186660},
		{5, "2304.3", 230430},
	}

	for _, tc := range cases {
		quote, err := engine.Quote(tc.quantity)
		require.NoError(t, err, "quantity %d", tc.quantity)

		expected, err := decimal.NewFromString(tc.total)
		require.NoError(t, err)

		assert.True(t, quote.Total.Equal(expected),
			"quantity %d: expected total %s, got %s", tc.quantity, tc.total, quote.Total)
		assert.Equal(t, tc.subunits, quote.AmountSubunits(), "quantity %d", tc.quantity)
		assert.Len(t, quote.Units, tc.quantity)
	}
}

func TestQuoteDiscountedUnitStoredPrices(t *testing.T) {
	engine := newEngine()

	// 4th of 4 is 20% off: 439.2 stored as 439
	quote, err := engine.Quote(4)
	require.NoError(t, err)
	assert.Equal(t, int64(549), quote.Units[0].StoredPrice)
	assert.Equal(t, int64(549), quote.Units[2].StoredPrice)
	assert.Equal(t, int64(439), quote.Units[3].StoredPrice)

	// 5th of 5 is 30% off: 384.3 stored as 384
	quote, err = engine.Quote(5)
	require.NoError(t, err)
	assert.Equal(t, int64(549), quote.Units[3].StoredPrice)
	assert.Equal(t, int64(384), quote.Units[4].StoredPrice)

	// Stored prices round per unit while the gateway amount rounds the
	// exact total once, so the two may legitimately disagree.
	var storedSum int64
	for _, u := range quote.Units {
		storedSum += u.StoredPrice
	}
	assert.Equal(t, int64(2580), storedSum)
	assert.Equal(t, int64(230430), quote.AmountSubunits())
}

func TestQuoteBreakdown(t *testing.T) {
	engine := newEngine()

	quote, err := engine.Quote(4)
	require.NoError(t, err)
	require.Len(t, quote.Breakdown, 2)
	assert.Equal(t, 3, quote.Breakdown[0].Tickets)
	assert.True(t, quote.Breakdown[0].Price.Equal(decimal.NewFromInt(549)))
	assert.Equal(t, 1, quote.Breakdown[1].Tickets)
	assert.True(t, quote.Breakdown[1].Price.Equal(decimal.RequireFromString("439.2")))

	quote, err = engine.Quote(3)
	require.NoError(t, err)
	require.Len(t, quote.Breakdown, 1)
	assert.Equal(t, 3, quote.Breakdown[0].Tickets)
}

func TestQuoteRejectsOutOfRangeQuantity(t *testing.T) {
	engine := newEngine()

	for _, quantity := range []int{0, -1, 6, 100} {
		_, err := engine.Quote(quantity)
		assert.ErrorIs(t, err, pricing.ErrQuantityOutOfRange, "quantity %d", quantity)

		_, err = engine.EarlyBirdQuote(quantity, 10)
		assert.ErrorIs(t, err, pricing.ErrQuantityOutOfRange, "quantity %d", quantity)
	}
}

func TestEarlyBirdQuoteSplits(t *testing.T) {
	engine := newEngine()

	// No slots left: everything at regular.
	quote, err := engine.EarlyBirdQuote(3, 0)
	require.NoError(t, err)
	for _, u := range quote.Units {
		assert.False(t, u.EarlyBird)
		assert.Equal(t, int64(549), u.StoredPrice)
	}
	assert.True(t, quote.Total.Equal(decimal.NewFromInt(1647)))

	// Plenty of slots: everything at the early rate.
	quote, err = engine.EarlyBirdQuote(3, 50)
	require.NoError(t, err)
	for _, u := range quote.Units {
		assert.True(t, u.EarlyBird)
		assert.Equal(t, int64(494), u.StoredPrice)
	}
	assert.True(t, quote.Total.Equal(decimal.NewFromInt(1482)))

	// Mixed: first two early, last two regular, counts sum to quantity.
	quote, err = engine.EarlyBirdQuote(4, 2)
	require.NoError(t, err)
	early, regular := 0, 0
	for _, u := range quote.Units {
		if u.EarlyBird {
			early++
		} else {
			regular++
		}
	}
	assert.Equal(t, 2, early)
	assert.Equal(t, 2, regular)
	assert.True(t, quote.Units[0].EarlyBird)
	assert.True(t, quote.Units[1].EarlyBird)
	assert.False(t, quote.Units[2].EarlyBird)
	assert.True(t, quote.Total.Equal(decimal.NewFromInt(494*2+549*2)))

	// Negative remaining behaves like zero.
	quote, err = engine.EarlyBirdQuote(2, -5)
	require.NoError(t, err)
	assert.False(t, quote.Units[0].EarlyBird)
}
