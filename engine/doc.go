// Package engine integrates the wazero runtime with the sandbox's
// determinism and resource contracts.
//
// Each sandbox instance owns one Engine, which owns one wazero runtime:
// no memory, module cache or host binding is ever shared between
// instances. The env host module is wired when the instance is created,
// before any guest bytes exist: the instance's linear memory, the
// injected timestamp (__get_time), the seeded generator (__get_random),
// and every configured host function. Loading a module then runs three
// checks — the byte-level shape check, wazero compilation, and import
// isolation — and instantiates the guest against that env. Every function
// binding is wrapped to charge gas and check the deadline before its
// body runs.
//
// Wrappers abort guest execution by panicking with a typed sandbox
// error; wazero surfaces the unwind as an error from Call, and the
// executor reads the execution context to classify it. The panic values
// never escape the sandbox boundary.
package engine
