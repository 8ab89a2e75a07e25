package resource

import (
	"testing"

	"github.com/wippyai/wasm-sandbox/errors"
)

func TestContext_ChargeOrder(t *testing.T) {
	// Gas is charged before the deadline is checked: when both budgets
	// are blown on the same boundary, the gas signal wins.
	c := &manualClock{}
	ctx := NewContext(0, 100, c.clock())
	ctx.Deadline.Start()
	c.now = 500

	err := ctx.Charge(1)
	if err == nil {
		t.Fatal("expected a signal")
	}
	if !errors.IsCode(err, errors.CodeGasExhausted) {
		t.Errorf("code = %q, want GAS_EXHAUSTED (gas charges first)", errors.CodeOf(err))
	}
}

func TestContext_ChargeChecksDeadline(t *testing.T) {
	c := &manualClock{}
	ctx := NewContext(1000, 100, c.clock())
	ctx.Deadline.Start()

	c.now = 101
	err := ctx.Charge(1)
	if !errors.IsCode(err, errors.CodeTimeout) {
		t.Errorf("code = %q, want TIMEOUT", errors.CodeOf(err))
	}
	// the gas was still charged before the deadline fired
	if ctx.Gas.Used() != 1 {
		t.Errorf("gas used = %d, want 1", ctx.Gas.Used())
	}
}

func TestContext_ChargeWithinBudgets(t *testing.T) {
	c := &manualClock{}
	ctx := NewContext(10, 100, c.clock())
	ctx.Deadline.Start()

	for i := 0; i < 10; i++ {
		if err := ctx.Charge(1); err != nil {
			t.Fatalf("charge %d failed: %v", i, err)
		}
	}
	if ctx.Gas.Used() != 10 {
		t.Errorf("gas used = %d, want 10", ctx.Gas.Used())
	}
}

func TestContext_RecordHostError(t *testing.T) {
	ctx := NewContext(1, 1, nil)
	ctx.RecordHostError(errors.HostFunction("f", "boom"))
	if len(ctx.HostErrors) != 1 {
		t.Fatalf("HostErrors len = %d, want 1", len(ctx.HostErrors))
	}
}

func TestHolder(t *testing.T) {
	var h Holder
	if h.Current() != nil {
		t.Error("fresh holder should be empty")
	}

	ctx := NewContext(1, 1, nil)
	h.Set(ctx)
	if h.Current() != ctx {
		t.Error("Current should return the attached context")
	}

	h.Clear()
	if h.Current() != nil {
		t.Error("Clear should detach")
	}
}

func TestBuildMetrics(t *testing.T) {
	c := &manualClock{}
	ctx := NewContext(100, 250, c.clock())
	ctx.Deadline.Start()
	ctx.Charge(7)
	c.now = 42

	m := BuildMetrics(ctx, fakeMemory(65536), 100000)
	if m.GasUsed != 7 || m.GasLimit != 100 {
		t.Errorf("gas = (%d, %d), want (7, 100)", m.GasUsed, m.GasLimit)
	}
	if m.MemoryUsedBytes != 65536 || m.MemoryLimitBytes != 100000 {
		t.Errorf("memory = (%d, %d), want (65536, 100000)", m.MemoryUsedBytes, m.MemoryLimitBytes)
	}
	if m.ExecutionMS != 42 || m.ExecutionLimitMS != 250 {
		t.Errorf("time = (%d, %d), want (42, 250)", m.ExecutionMS, m.ExecutionLimitMS)
	}
}
