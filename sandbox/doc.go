// Package sandbox is the public API of the deterministic WebAssembly
// sandbox: bounded-resource, byte-reproducible execution of untrusted
// modules with suspend/resume via binary snapshots.
//
// A Sandbox owns a registry of isolated instances. Each instance owns
// its engine, linear memory, compiled module and seeded generator;
// nothing is shared between instances. The lifecycle is a fixed state
// machine:
//
//	created ──load──► loaded ──execute──► running ──► loaded
//	                    │  ▲                            │
//	                 suspend └──restore──┐              ▼
//	                    ▼                │          destroyed
//	                 suspended ──────────┘
//
// Execute returns a tagged Result rather than an error because resource
// exhaustion is an expected outcome, not an exceptional one; every other
// operation returns an error on failure. Destroy never fails and is
// idempotent.
//
// Determinism: the guest sees no clock, no entropy and no ambient
// authority. __get_time returns the configured event timestamp,
// __get_random the next output of a Mulberry32 generator seeded from
// the config, and the import validator rejects everything else at load.
// Two instances with equal configs and modules produce equal results.
//
// Callers must not invoke two methods on the same instance
// concurrently; distinct instances are fully independent.
package sandbox
