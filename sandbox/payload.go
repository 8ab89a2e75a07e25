package sandbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-sandbox/errors"
)

// dispatch routes the payload through one of the two argument-passing
// disciplines: direct numeric arguments, or JSON via linear memory.
func (s *Sandbox) dispatch(ctx context.Context, st *instanceState, fn api.Function, payload any) (any, error) {
	if nums, ok := collectNumbers(payload); ok {
		results, err := callFunction(ctx, fn, encodeArgs(fn, nums)...)
		if err != nil {
			return nil, err
		}
		return decodeDirectResult(fn, results), nil
	}
	return s.dispatchSerialized(ctx, st, fn, payload)
}

// callFunction invokes fn and converts any unwind from a host wrapper
// back into an error. The engine usually does this itself; the recover
// is the boundary guarantee either way.
func callFunction(ctx context.Context, fn api.Function, args ...uint64) (results []uint64, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if rerr, ok := rec.(error); ok {
				err = rerr
				return
			}
			err = fmt.Errorf("wasm call panicked: %v", rec)
		}
	}()
	return fn.Call(ctx, args...)
}

// number is a normalized numeric payload element.
type number struct {
	i       int64
	f       float64
	isFloat bool
}

func asNumber(v any) (number, bool) {
	switch n := v.(type) {
	case int:
		return number{i: int64(n)}, true
	case int8:
		return number{i: int64(n)}, true
	case int16:
		return number{i: int64(n)}, true
	case int32:
		return number{i: int64(n)}, true
	case int64:
		return number{i: n}, true
	case uint:
		return number{i: int64(n)}, true
	case uint8:
		return number{i: int64(n)}, true
	case uint16:
		return number{i: int64(n)}, true
	case uint32:
		return number{i: int64(n)}, true
	case uint64:
		return number{i: int64(n)}, true
	case float32:
		return number{f: float64(n), isFloat: true}, true
	case float64:
		return number{f: n, isFloat: true}, true
	default:
		return number{}, false
	}
}

// collectNumbers reports whether the payload selects direct mode: nil,
// a single number, or a homogeneous slice of numbers. Anything else
// falls through to the serialized discipline.
func collectNumbers(payload any) ([]number, bool) {
	if payload == nil {
		return nil, true
	}

	if n, ok := asNumber(payload); ok {
		return []number{n}, true
	}

	switch vs := payload.(type) {
	case []int:
		out := make([]number, len(vs))
		for i, v := range vs {
			out[i] = number{i: int64(v)}
		}
		return out, true
	case []int32:
		out := make([]number, len(vs))
		for i, v := range vs {
			out[i] = number{i: int64(v)}
		}
		return out, true
	case []int64:
		out := make([]number, len(vs))
		for i, v := range vs {
			out[i] = number{i: v}
		}
		return out, true
	case []uint32:
		out := make([]number, len(vs))
		for i, v := range vs {
			out[i] = number{i: int64(v)}
		}
		return out, true
	case []uint64:
		out := make([]number, len(vs))
		for i, v := range vs {
			out[i] = number{i: int64(v)}
		}
		return out, true
	case []float64:
		out := make([]number, len(vs))
		for i, v := range vs {
			out[i] = number{f: v, isFloat: true}
		}
		return out, true
	case []any:
		out := make([]number, len(vs))
		for i, v := range vs {
			n, ok := asNumber(v)
			if !ok {
				return nil, false
			}
			out[i] = n
		}
		return out, true
	}

	return nil, false
}

// encodeArgs encodes the normalized numbers for the function's declared
// parameter types. A count mismatch is left for the engine to report.
func encodeArgs(fn api.Function, nums []number) []uint64 {
	params := fn.Definition().ParamTypes()
	args := make([]uint64, len(nums))
	for i, n := range nums {
		var t api.ValueType = api.ValueTypeI32
		if i < len(params) {
			t = params[i]
		}
		args[i] = encodeArg(n, t)
	}
	return args
}

func encodeArg(n number, t api.ValueType) uint64 {
	switch t {
	case api.ValueTypeI64:
		if n.isFloat {
			return uint64(int64(n.f))
		}
		return uint64(n.i)
	case api.ValueTypeF32:
		if n.isFloat {
			return api.EncodeF32(float32(n.f))
		}
		return api.EncodeF32(float32(n.i))
	case api.ValueTypeF64:
		if n.isFloat {
			return api.EncodeF64(n.f)
		}
		return api.EncodeF64(float64(n.i))
	default:
		if n.isFloat {
			return api.EncodeI32(int32(n.f))
		}
		return api.EncodeI32(int32(n.i))
	}
}

// decodeDirectResult maps the raw stack values back to a Go value: nil
// for no results, a typed scalar for one, and the raw slice for
// multi-value returns.
func decodeDirectResult(fn api.Function, results []uint64) any {
	if len(results) == 0 {
		return nil
	}
	if len(results) > 1 {
		return results
	}

	types := fn.Definition().ResultTypes()
	if len(types) == 0 {
		return results[0]
	}
	switch types[0] {
	case api.ValueTypeI64:
		return int64(results[0])
	case api.ValueTypeF32:
		return api.DecodeF32(results[0])
	case api.ValueTypeF64:
		return api.DecodeF64(results[0])
	default:
		return api.DecodeI32(results[0])
	}
}

// dispatchSerialized implements linear-memory mode: the payload is
// serialized as UTF-8 JSON, placed via __alloc, and the export is
// invoked with (ptr, len). A non-empty result is packed as ptr in the
// low 16 bits and len in the upper 16, which bounds serialized results
// to 64 KiB addresses; that packing is the existing ABI and is kept
// as-is.
func (s *Sandbox) dispatchSerialized(ctx context.Context, st *instanceState, fn api.Function, payload any) (any, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Trap(errors.TrapRuntimeError, "payload serialization failed: %v", err)
	}

	alloc := st.instance.ExportedFunction("__alloc")
	if alloc == nil {
		return nil, errors.Trap(errors.TrapRuntimeError, "serialized payloads require an __alloc export")
	}

	allocRes, err := callFunction(ctx, alloc, uint64(uint32(len(data))))
	if err != nil {
		return nil, err
	}
	if len(allocRes) == 0 {
		return nil, errors.Trap(errors.TrapRuntimeError, "__alloc returned no pointer")
	}
	ptr := api.DecodeU32(allocRes[0])

	mem := st.env.Memory()
	if !mem.Write(ptr, data) {
		return nil, errors.Trap(errors.TrapRuntimeError,
			"payload write of %d bytes at %d is out of bounds", len(data), ptr)
	}

	results, err := callFunction(ctx, fn, uint64(ptr), uint64(uint32(len(data))))
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	packed := api.DecodeU32(results[0])
	resultPtr := packed & 0xFFFF
	resultLen := packed >> 16
	if resultLen == 0 {
		return nil, nil
	}

	view, ok := mem.Read(resultPtr, resultLen)
	if !ok {
		return nil, errors.Trap(errors.TrapRuntimeError,
			"result range (%d, %d) is out of bounds", resultPtr, resultLen)
	}

	var value any
	if err := json.Unmarshal(view, &value); err != nil {
		return nil, errors.Trap(errors.TrapRuntimeError, "result deserialization failed: %v", err)
	}
	return value, nil
}
