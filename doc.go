// Package wasmsandbox provides an embeddable WebAssembly sandbox that
// executes untrusted bytecode under strict determinism and bounded
// resources.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct
// responsibilities:
//
//	wasm-sandbox/
//	├── sandbox/    High-level API: registry, lifecycle, executor
//	├── engine/     wazero integration, import isolation, env wiring
//	├── resource/   Gas meter, deadline checker, memory checks, metrics
//	├── prng/       Mulberry32 deterministic generator
//	├── snapshot/   WSNP binary codec for suspend/resume
//	└── errors/     Structured sandbox error types
//
// # Quick Start
//
//	sb := sandbox.New()
//	defer sb.Close(ctx)
//
//	inst, err := sb.Create(ctx, sandbox.Config{
//	    MaxMemoryBytes: 1 << 20,
//	    MaxGas:         1_000_000,
//	    MaxExecutionMS: 5_000,
//	    EventTimestamp: eventTime.UnixMilli(),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if _, err := sb.Load(ctx, inst.ID, wasmBytes); err != nil {
//	    log.Fatal(err)
//	}
//
//	res := sb.Execute(ctx, inst.ID, "run", []int64{42})
//	if res.OK() {
//	    fmt.Println(res.Value, res.GasUsed)
//	}
//
// # Determinism
//
// The guest sees no clock, no entropy, no filesystem and no network:
// __get_time returns the configured event timestamp, __get_random draws
// from a seeded Mulberry32 generator, and import isolation rejects every
// other host surface at load time. Together with the snapshot codec this
// makes execution byte-reproducible: capture memory, generator state and
// the gas counter with Snapshot, and Restore rewinds those three to the
// captured values. Guest globals are not part of a snapshot.
//
// # Thread Safety
//
// A Sandbox is safe for concurrent Create/Destroy of distinct
// instances. A single instance is NOT safe for concurrent method calls;
// callers serialize access per instance.
package wasmsandbox
