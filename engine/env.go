package engine

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-sandbox/errors"
	"github.com/wippyai/wasm-sandbox/resource"
)

// Bindings carries everything the import wirer injects into env.
type Bindings struct {
	// MemoryMaxPages is the hard page ceiling for env.memory.
	MemoryMaxPages uint32

	// Timestamp is the caller-supplied "now", returned verbatim by
	// every __get_time call.
	Timestamp int64

	// NextRandom yields the next value of the instance's generator.
	NextRandom func() uint32

	// Exec supplies the per-execution resource context at call time.
	// Outside an execution it yields nil and wrappers skip charging,
	// which is what instantiation-time calls get.
	Exec *resource.Holder

	// HostFunctions are the caller-declared functions, each placed at
	// env.<Name>.
	HostFunctions []HostFunction
}

// charge runs the host-call boundary checks and unwinds on a blown
// budget. The panic value is the typed signal already recorded on the
// meter; the executor classifies from the context, not from the unwind.
func charge(exec *resource.Holder) {
	rc := exec.Current()
	if rc == nil {
		return
	}
	if err := rc.Charge(1); err != nil {
		panic(err)
	}
}

// Env is the instantiated import surface: the host module holding the
// Go closures, the synthetic env module re-exporting them alongside the
// linear memory, and the memory handle itself.
type Env struct {
	host   api.Module
	env    api.Module
	memory api.Memory
}

// Memory returns the linear memory the guest will import.
func (e *Env) Memory() api.Memory {
	return e.memory
}

// Close releases the env and host modules.
func (e *Env) Close(ctx context.Context) error {
	var first error
	for _, mod := range []api.Module{e.env, e.host} {
		if mod == nil {
			continue
		}
		if err := mod.Close(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// WireEnv registers the host closures and instantiates the env module,
// allocating the linear memory. Runs at instance creation, before any
// guest bytes exist: the sandbox owns its memory for its whole life.
//
// The Go closures live in a private host module and a synthetic env
// module re-exports them under their env names, because wazero host
// modules cannot export memories.
func (e *Engine) WireEnv(ctx context.Context, b *Bindings) (*Env, error) {
	host := e.runtime.NewHostModuleBuilder(hostModuleName)

	host.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			charge(b.Exec)
			stack[0] = api.EncodeI32(int32(b.Timestamp))
		}), nil, []api.ValueType{api.ValueTypeI32}).
		Export("__get_time")

	host.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			charge(b.Exec)
			stack[0] = uint64(b.NextRandom())
		}), nil, []api.ValueType{api.ValueTypeI32}).
		Export("__get_random")

	funcs := []envFunc{
		{name: "__get_time", results: []byte{api.ValueTypeI32}},
		{name: "__get_random", results: []byte{api.ValueTypeI32}},
	}

	for _, hf := range b.HostFunctions {
		hf := hf
		host.NewFunctionBuilder().
			WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, _ api.Module, stack []uint64) {
				charge(b.Exec)

				args := make([]uint64, len(hf.Params))
				copy(args, stack[:len(hf.Params)])

				results, err := hf.Handler(ctx, args)
				if err != nil {
					decorated := errors.HostFunction(hf.Name, err.Error())
					if rc := b.Exec.Current(); rc != nil {
						rc.RecordHostError(decorated)
					}
					panic(decorated)
				}

				for i := range hf.Results {
					if i < len(results) {
						stack[i] = results[i]
					} else {
						stack[i] = 0
					}
				}
			}), wazeroTypes(hf.Params), wazeroTypes(hf.Results)).
			Export(hf.Name)

		funcs = append(funcs, envFunc{
			name:    hf.Name,
			params:  wazeroTypes(hf.Params),
			results: wazeroTypes(hf.Results),
		})
	}

	hostMod, err := host.Instantiate(ctx)
	if err != nil {
		return nil, errors.InvalidModuleCause("host module instantiation failed", err)
	}

	compiled, err := e.runtime.CompileModule(ctx, buildEnvModule(funcs, b.MemoryMaxPages))
	if err != nil {
		hostMod.Close(ctx)
		return nil, errors.InvalidModuleCause("env module compilation failed", err)
	}

	envMod, err := e.runtime.InstantiateModule(ctx, compiled,
		wazero.NewModuleConfig().WithName("env"))
	if err != nil {
		hostMod.Close(ctx)
		return nil, errors.InvalidModuleCause("env module instantiation failed", err)
	}

	return &Env{
		host:   hostMod,
		env:    envMod,
		memory: envMod.ExportedMemory("memory"),
	}, nil
}
