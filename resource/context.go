package resource

import "sync"

// Context is the per-execution bundle of a gas meter, a deadline checker
// and the host errors accumulated during the call. The executor creates
// a fresh one for every execute and attaches it where the import
// closures can reach it; it is detached on every exit path.
type Context struct {
	Gas        *Gas
	Deadline   *Deadline
	HostErrors []error
}

// NewContext creates a context with a fresh gas counter and a deadline
// checker that has not been started. A nil clock selects the monotonic
// default.
func NewContext(gasLimit uint64, deadlineMS int64, clock Clock) *Context {
	return &Context{
		Gas:      NewGas(gasLimit),
		Deadline: NewDeadline(deadlineMS, clock),
	}
}

// Charge runs the host-call boundary checks in contract order: gas is
// charged first, then the deadline is checked. The returned error is the
// internal signal; callers unwind with it and the executor maps it.
func (c *Context) Charge(amount uint64) error {
	if err := c.Gas.Consume(amount); err != nil {
		return err
	}
	return c.Deadline.Check()
}

// RecordHostError remembers a host handler failure for diagnosis at the
// execute boundary.
func (c *Context) RecordHostError(err error) {
	c.HostErrors = append(c.HostErrors, err)
}

// Holder hands the current execution context to import closures. The
// closures are bound once at instantiation but must observe the context
// the executor attached moments before the call; indirection through the
// holder is what makes that work. The mutex only guards the pointer
// swap — execution itself is single-threaded by contract.
type Holder struct {
	mu  sync.Mutex
	ctx *Context
}

// Set attaches ctx as the current execution context.
func (h *Holder) Set(ctx *Context) {
	h.mu.Lock()
	h.ctx = ctx
	h.mu.Unlock()
}

// Clear detaches the current context.
func (h *Holder) Clear() {
	h.mu.Lock()
	h.ctx = nil
	h.mu.Unlock()
}

// Current returns the attached context, or nil outside an execution.
func (h *Holder) Current() *Context {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ctx
}
