package sandbox

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-sandbox/engine"
	"github.com/wippyai/wasm-sandbox/errors"
	"github.com/wippyai/wasm-sandbox/prng"
	"github.com/wippyai/wasm-sandbox/resource"
	"github.com/wippyai/wasm-sandbox/snapshot"
)

// Sandbox owns the instance registry. The registry map is writable only
// through Create and Destroy; per-instance state is touched only by the
// executor and the snapshot operations, under the contract that the
// caller does not invoke two methods on the same instance concurrently.
type Sandbox struct {
	mu        sync.RWMutex
	instances map[string]*instanceState
	nextID    uint64
	log       *zap.Logger
}

// Option configures a Sandbox.
type Option func(*Sandbox)

// WithLogger injects a logger for lifecycle diagnostics. The default is
// a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Sandbox) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates an empty sandbox.
func New(opts ...Option) *Sandbox {
	s := &Sandbox{
		instances: make(map[string]*instanceState),
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// lookup returns the live state for id. Destroyed instances are kept in
// the registry so operations on them fail with INSTANCE_DESTROYED
// rather than an unknown-instance error.
func (s *Sandbox) lookup(id string) (*instanceState, error) {
	s.mu.RLock()
	st, ok := s.instances[id]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.UnknownInstance(id)
	}
	return st, nil
}

// Create allocates a new isolated instance: a dedicated engine, the env
// wiring with linear memory sized to the configured cap, and a fresh
// generator seeded from the config. The returned projection is in
// status created.
func (s *Sandbox) Create(ctx context.Context, cfg Config) (*Instance, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	maxPages := engine.MaxPages(cfg.MaxMemoryBytes)
	eng, err := engine.New(ctx, maxPages)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	st := &instanceState{
		cfg:    cfg,
		status: StatusCreated,
		engine: eng,
		rng:    prng.New(cfg.DeterministicSeed),
		metrics: resource.Metrics{
			MemoryLimitBytes: cfg.MaxMemoryBytes,
			GasLimit:         cfg.MaxGas,
			ExecutionLimitMS: cfg.MaxExecutionMS,
		},
	}

	env, err := eng.WireEnv(ctx, &engine.Bindings{
		MemoryMaxPages: maxPages,
		Timestamp:      cfg.EventTimestamp,
		NextRandom:     st.rng.Next,
		Exec:           &st.exec,
		HostFunctions:  cfg.hostFunctions(),
	})
	if err != nil {
		eng.Close(ctx)
		return nil, err
	}
	st.env = env

	s.mu.Lock()
	st.id = fmt.Sprintf("sandbox-%d", s.nextID)
	s.nextID++
	s.instances[st.id] = st
	s.mu.Unlock()

	s.log.Debug("instance created",
		zap.String("id", st.id),
		zap.Uint64("max_memory_bytes", cfg.MaxMemoryBytes),
		zap.Uint64("max_gas", cfg.MaxGas),
		zap.Int64("max_execution_ms", cfg.MaxExecutionMS))

	return st.project(), nil
}

// Load validates, compiles and instantiates a module into the instance:
// shape check, engine compilation, import isolation, instantiation. On
// success the instance is loaded and the import report is returned.
func (s *Sandbox) Load(ctx context.Context, id string, wasm []byte) (*engine.ImportReport, error) {
	st, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	if st.status == StatusDestroyed {
		return nil, errors.InstanceDestroyed(id)
	}
	if st.status != StatusCreated {
		return nil, fmt.Errorf("load: instance %s is %s, want created", id, st.status)
	}

	mod, err := st.engine.Compile(ctx, wasm, st.cfg.hostNames())
	if err != nil {
		return nil, err
	}

	inst, err := mod.Instantiate(ctx)
	if err != nil {
		mod.Close(ctx)
		return nil, err
	}

	st.module = mod
	st.instance = inst
	st.metrics.MemoryUsedBytes = resource.UsageBytes(st.memory())
	st.status = StatusLoaded

	report := mod.Report()
	s.log.Debug("module loaded",
		zap.String("id", id),
		zap.Int("imports", report.Total),
		zap.Int("host_imports", report.HostFunctions))

	return report, nil
}

// Exports lists the loaded module's exported function names.
func (s *Sandbox) Exports(id string) ([]string, error) {
	st, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	if st.status == StatusDestroyed {
		return nil, errors.InstanceDestroyed(id)
	}
	if st.module == nil {
		return nil, fmt.Errorf("exports: instance %s has no module loaded", id)
	}
	return st.module.ExportNames(), nil
}

// Suspend parks a loaded instance. A suspended instance accepts
// snapshot, restore and destroy.
func (s *Sandbox) Suspend(id string) error {
	st, err := s.lookup(id)
	if err != nil {
		return err
	}
	if st.status == StatusDestroyed {
		return errors.InstanceDestroyed(id)
	}
	if st.status != StatusLoaded {
		return fmt.Errorf("suspend: instance %s is %s, want loaded", id, st.status)
	}
	st.status = StatusSuspended
	return nil
}

// Metrics returns the instance's current resource metrics with live
// memory usage.
func (s *Sandbox) Metrics(id string) (resource.Metrics, error) {
	st, err := s.lookup(id)
	if err != nil {
		return resource.Metrics{}, err
	}
	if st.status == StatusDestroyed {
		return resource.Metrics{}, errors.InstanceDestroyed(id)
	}
	m := st.metrics
	m.MemoryUsedBytes = resource.UsageBytes(st.memory())
	return m, nil
}

// Snapshot captures the complete execution state — linear memory,
// generator state, gas counter and the injected timestamp — as a WSNP
// buffer. Legal only when the instance is loaded or suspended.
func (s *Sandbox) Snapshot(id string) ([]byte, error) {
	st, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	if st.status == StatusDestroyed {
		return nil, errors.InstanceDestroyed(id)
	}
	if st.status != StatusLoaded && st.status != StatusSuspended {
		return nil, errors.Snapshot("cannot snapshot instance in state %q, want loaded or suspended", st.status)
	}
	if st.env == nil {
		return nil, errors.Snapshot("instance memory is corrupted or missing")
	}

	mem := st.env.Memory()
	view, ok := mem.Read(0, mem.Size())
	if !ok {
		return nil, errors.Snapshot("memory read failed, instance corrupted")
	}
	memory := make([]byte, len(view))
	copy(memory, view)

	data, err := snapshot.Encode(snapshot.State{
		Memory:    memory,
		PRNG:      st.rng.State(),
		Timestamp: st.cfg.EventTimestamp,
		GasUsed:   st.metrics.GasUsed,
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("snapshot taken",
		zap.String("id", id),
		zap.Int("bytes", len(data)))

	return data, nil
}

// Restore replaces the instance's execution state from a WSNP buffer.
// Validation is strict and ordered; any failure leaves the instance
// untouched. The snapshot's memory image must exactly match the
// instance's current memory size. On success the instance is loaded.
func (s *Sandbox) Restore(id string, data []byte) error {
	st, err := s.lookup(id)
	if err != nil {
		return err
	}
	if st.status == StatusDestroyed {
		return errors.InstanceDestroyed(id)
	}
	if st.status != StatusLoaded && st.status != StatusSuspended {
		return errors.Snapshot("cannot restore instance in state %q, want loaded or suspended", st.status)
	}
	if st.env == nil {
		return errors.Snapshot("instance memory is corrupted or missing")
	}

	state, err := snapshot.Decode(data)
	if err != nil {
		return err
	}

	mem := st.env.Memory()
	if uint64(len(state.Memory)) != uint64(mem.Size()) {
		return errors.Snapshot("snapshot memory size %d does not match instance memory size %d",
			len(state.Memory), mem.Size())
	}

	if !mem.Write(0, state.Memory) {
		return errors.Snapshot("memory write failed, instance corrupted")
	}
	st.rng.SetState(state.PRNG)
	st.metrics.GasUsed = state.GasUsed
	st.status = StatusLoaded

	s.log.Debug("snapshot restored",
		zap.String("id", id),
		zap.Int("bytes", len(data)))

	return nil
}

// Destroy releases the instance's module, guest, env wiring and engine.
// It never fails: unknown IDs and already-destroyed instances are
// no-ops.
func (s *Sandbox) Destroy(ctx context.Context, id string) {
	s.mu.RLock()
	st, ok := s.instances[id]
	s.mu.RUnlock()
	if !ok || st.status == StatusDestroyed {
		return
	}

	if st.instance != nil {
		st.instance.Close(ctx)
	}
	if st.module != nil {
		st.module.Close(ctx)
	}
	if st.env != nil {
		st.env.Close(ctx)
	}
	if st.engine != nil {
		st.engine.Close(ctx)
	}

	st.instance = nil
	st.module = nil
	st.env = nil
	st.engine = nil
	st.exec.Clear()
	st.status = StatusDestroyed

	s.log.Debug("instance destroyed", zap.String("id", id))
}

// Instances returns projections of all non-destroyed instances, sorted
// by ID.
func (s *Sandbox) Instances() []*Instance {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Instance, 0, len(s.instances))
	for _, st := range s.instances {
		if st.status == StatusDestroyed {
			continue
		}
		out = append(out, st.project())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of non-destroyed instances.
func (s *Sandbox) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, st := range s.instances {
		if st.status != StatusDestroyed {
			n++
		}
	}
	return n
}

// Close destroys every remaining instance. The sandbox is unusable
// afterwards only by convention; Create still works, matching the
// registry's create/destroy-only write discipline.
func (s *Sandbox) Close(ctx context.Context) error {
	s.mu.RLock()
	ids := make([]string, 0, len(s.instances))
	for id := range s.instances {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	for _, id := range ids {
		s.Destroy(ctx, id)
	}
	return nil
}
