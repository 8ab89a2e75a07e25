// Package prng implements the Mulberry32 deterministic generator used as
// the sandbox's only entropy source.
//
// Mulberry32 keeps its entire state in one 32-bit word, which makes it
// trivially serializable into snapshots and bit-exact to reproduce across
// implementations. The step function is prescriptive: every shift is an
// unsigned 32-bit shift and every multiply wraps at 32 bits, matching
// JavaScript's Math.imul and >>> operators so snapshots interoperate with
// embedders in other languages.
package prng
