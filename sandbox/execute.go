package sandbox

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-sandbox/errors"
	"github.com/wippyai/wasm-sandbox/resource"
)

// Result is the tagged outcome of one execute call. Exactly one of
// Value (with Err nil) or Err is meaningful; Metrics is always fully
// populated, including on failure. GasUsed and DurationMS mirror the
// metrics for convenience.
type Result struct {
	Value      any
	Metrics    resource.Metrics
	GasUsed    uint64
	DurationMS int64
	Err        *errors.Error
}

// OK reports whether the execution succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Execute dispatches a named export with a payload. It never returns a
// raised error: every failure mode, including resource exhaustion, is a
// tagged value in the Result.
//
// A numeric payload (number, slice of numbers, or nil) is passed
// directly as arguments. Anything else is serialized as JSON, written
// into linear memory via the module's __alloc export, and the function
// is invoked with (ptr, len); the return is unpacked as ptr in the low
// 16 bits and len in the upper 16, and when len is non-zero that range
// is read back as JSON.
func (s *Sandbox) Execute(ctx context.Context, id, action string, payload any) Result {
	return s.ExecuteWithClock(ctx, id, action, payload, nil)
}

// ExecuteWithClock is Execute with an injected deadline clock. A nil
// clock selects the monotonic default; tests supply a manual one.
func (s *Sandbox) ExecuteWithClock(ctx context.Context, id, action string, payload any, clock resource.Clock) Result {
	st, err := s.lookup(id)
	if err != nil {
		return Result{Err: errors.InstanceDestroyed(id)}
	}
	if st.status == StatusDestroyed {
		return Result{Metrics: st.metrics, Err: errors.InstanceDestroyed(id)}
	}
	if st.status != StatusLoaded && st.status != StatusRunning {
		return Result{Metrics: st.metrics, Err: errors.Trap(errors.TrapInvalidState,
			"cannot execute in state %q", st.status)}
	}
	if st.instance == nil {
		return Result{Metrics: st.metrics, Err: errors.Trap(errors.TrapNoInstance,
			"instance %s has no live module", id)}
	}
	fn := st.instance.ExportedFunction(action)
	if fn == nil {
		return Result{Metrics: st.metrics, Err: errors.Trap(errors.TrapMissingExport,
			"no export named %q", action)}
	}

	rc := resource.NewContext(st.cfg.MaxGas, st.cfg.MaxExecutionMS, clock)
	rc.Deadline.Start()
	st.exec.Set(rc)

	prev := st.status
	st.status = StatusRunning
	defer func() {
		st.status = prev
		st.exec.Clear()
	}()

	value, callErr := s.dispatch(ctx, st, fn, payload)

	metrics := resource.BuildMetrics(rc, st.memory(), st.cfg.MaxMemoryBytes)
	st.metrics = metrics

	result := Result{
		Metrics:    metrics,
		GasUsed:    metrics.GasUsed,
		DurationMS: metrics.ExecutionMS,
	}

	switch {
	case callErr != nil:
		result.Err = classifyCallError(rc, callErr)
	default:
		if check := resource.CheckMemory(st.memory(), st.cfg.MaxMemoryBytes); check.Exceeded {
			result.Err = errors.MemoryExceeded(check.Used, check.Limit)
		} else {
			result.Value = value
		}
	}

	s.log.Debug("execute finished",
		zap.String("id", id),
		zap.String("action", action),
		zap.Bool("ok", result.OK()),
		zap.Uint64("gas_used", result.GasUsed),
		zap.Int64("duration_ms", result.DurationMS))

	return result
}

// classifyCallError converts a failed call into the typed error. The
// resource context is the source of truth: the unwind may have been
// rewrapped by the engine, but the meters were marked before it began.
func classifyCallError(rc *resource.Context, callErr error) *errors.Error {
	switch {
	case rc.Gas.Exhausted():
		return errors.GasExhausted(rc.Gas.Used(), rc.Gas.Limit())
	case rc.Deadline.TimedOut():
		return timeoutError(rc, callErr)
	case len(rc.HostErrors) > 0:
		// a host handler failed mid-execution: surfaced as a runtime
		// trap, not HOST_FUNCTION_ERROR, which is reserved for
		// instantiation-time failures
		return errors.Trap(errors.TrapRuntimeError, "%s", rc.HostErrors[len(rc.HostErrors)-1].Error())
	default:
		if se, ok := errors.AsError(callErr); ok {
			return se
		}
		return errors.TrapFrom(callErr)
	}
}

// timeoutError prefers the elapsed value recorded when the deadline
// fired; the wall clock has kept moving since.
func timeoutError(rc *resource.Context, callErr error) *errors.Error {
	if se, ok := errors.AsError(callErr); ok && se.Code == errors.CodeTimeout {
		return se
	}
	return errors.Timeout(rc.Deadline.ElapsedMS(), rc.Deadline.LimitMS())
}
