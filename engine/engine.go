package engine

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// PageSize is the WebAssembly linear memory page size.
const PageSize = 65536

// ValueType identifies a WASM numeric value type in host function
// signatures.
type ValueType byte

const (
	I32 ValueType = iota
	I64
	F32
	F64
)

func (v ValueType) wazero() api.ValueType {
	switch v {
	case I64:
		return api.ValueTypeI64
	case F32:
		return api.ValueTypeF32
	case F64:
		return api.ValueTypeF64
	default:
		return api.ValueTypeI32
	}
}

func wazeroTypes(vs []ValueType) []api.ValueType {
	if len(vs) == 0 {
		return nil
	}
	out := make([]api.ValueType, len(vs))
	for i, v := range vs {
		out[i] = v.wazero()
	}
	return out
}

// HostFunction declares one caller-supplied function injected at
// env.<Name>. The Name field is authoritative regardless of how the
// declaration was keyed by the caller. The handler receives the guest's
// raw stack values and returns raw stack values.
type HostFunction struct {
	Name    string
	Params  []ValueType
	Results []ValueType
	Handler func(ctx context.Context, args []uint64) ([]uint64, error)
}

// Engine wraps one wazero runtime. Every sandbox instance owns its own
// Engine; nothing is shared across instances.
type Engine struct {
	runtime wazero.Runtime
}

// MaxPages converts a byte cap to a page ceiling: ceil(bytes/PageSize),
// at least 1 page because the initial allocation is always one page.
func MaxPages(maxBytes uint64) uint32 {
	pages := (maxBytes + PageSize - 1) / PageSize
	if pages == 0 {
		pages = 1
	}
	return uint32(pages)
}

// New creates an engine whose runtime caps every memory at maxPages.
// The page cap is the hard ceiling; the caller's byte cap may sit below
// it and is enforced by the post-execution memory check.
func New(ctx context.Context, maxPages uint32) (*Engine, error) {
	cfg := wazero.NewRuntimeConfig().WithMemoryLimitPages(maxPages)
	return &Engine{runtime: wazero.NewRuntimeWithConfig(ctx, cfg)}, nil
}

// Close releases the runtime and every module instantiated in it.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}
