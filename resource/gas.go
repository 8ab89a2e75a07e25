package resource

import "github.com/wippyai/wasm-sandbox/errors"

// Gas meters abstract computation units against a fixed budget.
// Exact budget consumption is not exhaustion: Consume fails only when
// the total would exceed the limit.
type Gas struct {
	used      uint64
	limit     uint64
	exhausted bool
}

// NewGas creates a meter with a fresh counter and the given budget.
func NewGas(limit uint64) *Gas {
	return &Gas{limit: limit}
}

// Consume charges amount units. On exhaustion the amount is still added
// so the returned error records the exceeding value, and every
// subsequent Consume fails until Reset.
func (g *Gas) Consume(amount uint64) error {
	if g.exhausted || g.used+amount > g.limit {
		g.exhausted = true
		g.used += amount
		return errors.GasExhausted(g.used, g.limit)
	}
	g.used += amount
	return nil
}

// Used returns the units consumed so far, including any exceeding amount.
func (g *Gas) Used() uint64 {
	return g.used
}

// Limit returns the budget.
func (g *Gas) Limit() uint64 {
	return g.limit
}

// Exhausted reports whether the budget has been blown.
func (g *Gas) Exhausted() bool {
	return g.exhausted
}

// Reset restores the meter to a fresh state with the same limit.
func (g *Gas) Reset() {
	g.used = 0
	g.exhausted = false
}
