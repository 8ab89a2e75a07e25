// Package resource implements per-execution resource enforcement for the
// sandbox: the gas meter, the wall-clock deadline checker, linear-memory
// usage checks, and the execution Context that bundles them for one
// execute call.
//
// Gas is charged at host-call boundaries only (1 unit per call); the
// deadline is the backstop for pure compute loops. Both checks run inside
// host-function wrappers before the wrapped body executes. When a budget
// is blown the meter marks itself exhausted and returns a typed error
// carrying the exceeding value; the wrapper turns that into an unwind and
// the executor converts it into a tagged result. The signals never reach
// an embedder as a raised error.
//
// The deadline clock is injectable so tests can drive time by hand; the
// default reads the host monotonic clock. The guest has no access to
// either.
//
// Pressure is a stateless advisory helper that grades memory usage
// against its limit. It sits alongside the enforcement machinery and is
// never consulted by it.
package resource
