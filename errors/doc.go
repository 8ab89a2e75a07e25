// Package errors provides structured error types for the wasm-sandbox library.
//
// Every failure surfaced by the sandbox carries a Code identifying one of
// eight failure classes, plus typed fields for the class (gas counters,
// memory sizes, elapsed time, trap kind). The same type doubles as the
// internal control-flow signal raised from host-call wrappers when a
// resource budget is exceeded; the executor converts signals into tagged
// results before they can reach a caller.
//
// Use the convenience constructors:
//
//	err := errors.GasExhausted(51, 50)
//	err := errors.Trap(errors.TrapMissingExport, "no export named %q", name)
//
// All errors implement the standard error interface. Is matches on Code,
// so callers can classify with stdlib errors.Is, or with the IsCode
// shorthand:
//
//	if stderrors.Is(err, &errors.Error{Code: errors.CodeInvalidModule}) { ... }
//	if errors.IsCode(err, errors.CodeInvalidModule) { ... }
package errors
