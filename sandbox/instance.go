package sandbox

import (
	"github.com/wippyai/wasm-sandbox/engine"
	"github.com/wippyai/wasm-sandbox/prng"
	"github.com/wippyai/wasm-sandbox/resource"
)

// Instance is the read-only projection of an instance handed to
// callers. It is a value snapshot: the ID is the durable handle, the
// rest reflects the moment it was taken.
type Instance struct {
	ID      string
	Config  Config
	Status  Status
	Metrics resource.Metrics
}

// instanceState is the mutable state behind a projection. The registry
// exclusively owns the map; the instance exclusively owns its engine,
// env wiring, module, guest and generator.
type instanceState struct {
	id      string
	cfg     Config
	status  Status
	metrics resource.Metrics

	engine   *engine.Engine
	env      *engine.Env
	module   *engine.Module
	instance *engine.Instance

	rng  *prng.Mulberry32
	exec resource.Holder
}

// project takes a read-only snapshot.
func (st *instanceState) project() *Instance {
	return &Instance{
		ID:      st.id,
		Config:  st.cfg,
		Status:  st.status,
		Metrics: st.metrics,
	}
}

// memory returns the live linear memory, or nil before env wiring or
// after destroy.
func (st *instanceState) memory() resource.MemorySizer {
	if st.env == nil {
		return nil
	}
	return st.env.Memory()
}
