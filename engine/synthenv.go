package engine

// The env module the guest imports from cannot be a plain wazero host
// module: host modules cannot export memories. Instead the engine
// synthesizes a minimal binary that imports every sandbox function from
// the real host module, re-exports each under its env name, and defines
// the linear memory with the configured page ceiling.

// hostModuleName is where the Go closures actually live. Guests cannot
// import it: the validator admits only the env namespace.
const hostModuleName = "sandbox_host"

// envFunc is one function the synthetic env module re-exports.
type envFunc struct {
	name    string
	params  []byte
	results []byte
}

// uleb128 encodes v as an unsigned LEB128 byte sequence.
func uleb128(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}

func name(s string) []byte {
	return append(uleb128(uint32(len(s))), s...)
}

func section(id byte, payload []byte) []byte {
	out := []byte{id}
	out = append(out, uleb128(uint32(len(payload)))...)
	return append(out, payload...)
}

// buildEnvModule assembles the synthetic env binary: one type and one
// import per function, a memory of [1, maxPages] pages, and exports for
// every function plus "memory". Imported function indices are exported
// directly; no code section is needed.
func buildEnvModule(funcs []envFunc, maxPages uint32) []byte {
	wasm := []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}

	// type section: one functype per function
	var types []byte
	types = append(types, uleb128(uint32(len(funcs)))...)
	for _, f := range funcs {
		types = append(types, 0x60)
		types = append(types, uleb128(uint32(len(f.params)))...)
		types = append(types, f.params...)
		types = append(types, uleb128(uint32(len(f.results)))...)
		types = append(types, f.results...)
	}
	wasm = append(wasm, section(0x01, types)...)

	// import section: every function from the host module
	var imports []byte
	imports = append(imports, uleb128(uint32(len(funcs)))...)
	for i, f := range funcs {
		imports = append(imports, name(hostModuleName)...)
		imports = append(imports, name(f.name)...)
		imports = append(imports, 0x00)
		imports = append(imports, uleb128(uint32(i))...)
	}
	wasm = append(wasm, section(0x02, imports)...)

	// memory section: one memory, min 1 page, explicit max
	var memory []byte
	memory = append(memory, 0x01)       // count
	memory = append(memory, 0x01)       // limits flag: min and max present
	memory = append(memory, uleb128(1)...)
	memory = append(memory, uleb128(maxPages)...)
	wasm = append(wasm, section(0x05, memory)...)

	// export section: functions by env name, then the memory
	var exports []byte
	exports = append(exports, uleb128(uint32(len(funcs))+1)...)
	for i, f := range funcs {
		exports = append(exports, name(f.name)...)
		exports = append(exports, 0x00)
		exports = append(exports, uleb128(uint32(i))...)
	}
	exports = append(exports, name("memory")...)
	exports = append(exports, 0x02, 0x00)
	wasm = append(wasm, section(0x07, exports)...)

	return wasm
}
