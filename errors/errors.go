package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Code identifies the failure class of a sandbox error.
type Code string

const (
	CodeGasExhausted      Code = "GAS_EXHAUSTED"       // computation budget exceeded
	CodeMemoryExceeded    Code = "MEMORY_EXCEEDED"     // post-execution memory check failed
	CodeTimeout           Code = "TIMEOUT"             // wall-clock budget exceeded
	CodeWasmTrap          Code = "WASM_TRAP"           // runtime fault or synthetic pseudo-trap
	CodeInvalidModule     Code = "INVALID_MODULE"      // validation, compilation or import isolation
	CodeHostFunction      Code = "HOST_FUNCTION_ERROR" // host handler failed during instantiation
	CodeInstanceDestroyed Code = "INSTANCE_DESTROYED"  // operation on a destroyed instance
	CodeSnapshot          Code = "SNAPSHOT_ERROR"      // snapshot create or restore failed
)

// TrapKind distinguishes real engine traps from synthetic pseudo-traps
// the executor raises for precondition failures.
type TrapKind string

const (
	TrapInvalidState  TrapKind = "invalid_state"
	TrapNoInstance    TrapKind = "no_instance"
	TrapMissingExport TrapKind = "missing_export"
	TrapRuntimeError  TrapKind = "runtime_error"
)

// Error is the structured error type used throughout the sandbox.
// Only the fields relevant to the Code are populated.
type Error struct {
	Cause        error
	Code         Code
	Detail       string
	TrapKind     TrapKind
	FunctionName string
	InstanceID   string
	GasUsed      uint64
	GasLimit     uint64
	MemoryUsed   uint64
	MemoryLimit  uint64
	ElapsedMS    int64
	LimitMS      int64
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Code))
	b.WriteByte(']')

	if e.TrapKind != "" {
		b.WriteByte(' ')
		b.WriteString(string(e.TrapKind))
	}

	if e.Detail != "" {
		if e.TrapKind != "" {
			b.WriteString(": ")
		} else {
			b.WriteByte(' ')
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. Two sandbox errors match
// when their codes are equal, so errors.Is(err, &Error{Code: c}) works as
// a class check regardless of the typed fields.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// AsError unwraps err to a sandbox *Error if one is in its chain.
func AsError(err error) (*Error, bool) {
	var se *Error
	if stderrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// CodeOf returns the sandbox code in err's chain, or "" if none.
func CodeOf(err error) Code {
	if se, ok := AsError(err); ok {
		return se.Code
	}
	return ""
}

// IsCode reports whether err carries the given sandbox code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// Convenience constructors, one per failure class

// GasExhausted reports a blown computation budget. used carries the
// exceeding value, not the limit, so callers can see how far over
// budget the execution went.
func GasExhausted(used, limit uint64) *Error {
	return &Error{
		Code:     CodeGasExhausted,
		GasUsed:  used,
		GasLimit: limit,
		Detail:   fmt.Sprintf("gas limit exceeded: used %d of %d", used, limit),
	}
}

// MemoryExceeded reports a failed post-execution memory check.
func MemoryExceeded(used, limit uint64) *Error {
	return &Error{
		Code:        CodeMemoryExceeded,
		MemoryUsed:  used,
		MemoryLimit: limit,
		Detail:      fmt.Sprintf("memory limit exceeded: %d bytes used, limit %d", used, limit),
	}
}

// Timeout reports a blown wall-clock budget. elapsed carries the
// exceeding value.
func Timeout(elapsedMS, limitMS int64) *Error {
	return &Error{
		Code:      CodeTimeout,
		ElapsedMS: elapsedMS,
		LimitMS:   limitMS,
		Detail:    fmt.Sprintf("execution timed out after %dms, limit %dms", elapsedMS, limitMS),
	}
}

// Trap creates a WASM trap error with the given kind.
func Trap(kind TrapKind, format string, args ...any) *Error {
	return &Error{
		Code:     CodeWasmTrap,
		TrapKind: kind,
		Detail:   fmt.Sprintf(format, args...),
	}
}

// TrapFrom wraps an engine-level fault as a runtime_error trap.
func TrapFrom(cause error) *Error {
	return &Error{
		Code:     CodeWasmTrap,
		TrapKind: TrapRuntimeError,
		Detail:   cause.Error(),
		Cause:    cause,
	}
}

// InvalidModule reports a validation, compilation or import isolation
// failure with a precise reason.
func InvalidModule(format string, args ...any) *Error {
	return &Error{
		Code:   CodeInvalidModule,
		Detail: fmt.Sprintf(format, args...),
	}
}

// InvalidModuleCause wraps an engine diagnostic as an invalid module error.
func InvalidModuleCause(detail string, cause error) *Error {
	return &Error{
		Code:   CodeInvalidModule,
		Detail: detail,
		Cause:  cause,
	}
}

// HostFunction reports a host handler failure detected during
// instantiation. Failures during execute surface as runtime_error traps
// instead; that asymmetry is part of the public contract.
func HostFunction(name, message string) *Error {
	return &Error{
		Code:         CodeHostFunction,
		FunctionName: name,
		Detail:       fmt.Sprintf("host function %q failed: %s", name, message),
	}
}

// InstanceDestroyed reports an operation on a destroyed instance.
func InstanceDestroyed(id string) *Error {
	return &Error{
		Code:       CodeInstanceDestroyed,
		InstanceID: id,
		Detail:     fmt.Sprintf("instance %s is destroyed", id),
	}
}

// Snapshot reports a snapshot create or restore failure. The detail is
// free text but always contains one of the documented reason tokens
// (magic, version, header, truncated, memory size, corrupted, destroyed)
// so callers can substring-match.
func Snapshot(format string, args ...any) *Error {
	return &Error{
		Code:   CodeSnapshot,
		Detail: fmt.Sprintf(format, args...),
	}
}

// UnknownInstance reports a registry lookup miss. This is not one of the
// eight coded classes: an unknown ID is a caller bug, not a sandbox
// failure mode, so it surfaces as a plain error.
func UnknownInstance(id string) error {
	return fmt.Errorf("unknown instance %q", id)
}
