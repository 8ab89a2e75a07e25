// Package wasmtest provides hand-assembled WebAssembly binaries for the
// sandbox test suites. Modules are built instruction by instruction;
// the tiny encoders here only take care of section framing and LEB128
// lengths so the fixtures stay byte-accurate without magic-number
// arithmetic in every test.
package wasmtest

// Value type bytes.
const (
	i32 = 0x7F
	i64 = 0x7E
)

// Section IDs.
const (
	secType   = 0x01
	secImport = 0x02
	secFunc   = 0x03
	secMemory = 0x05
	secGlobal = 0x06
	secExport = 0x07
	secStart  = 0x08
	secCode   = 0x0A
)

func u(v uint32) []byte {
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

func str(s string) []byte {
	return append(u(uint32(len(s))), s...)
}

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// vec prefixes the concatenated items with their count.
func vec(items ...[]byte) []byte {
	return cat(append([][]byte{u(uint32(len(items)))}, items...)...)
}

func sect(id byte, body []byte) []byte {
	return cat([]byte{id}, u(uint32(len(body))), body)
}

// module frames the sections with magic and version.
func module(sections ...[]byte) []byte {
	return cat(append([][]byte{{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}}, sections...)...)
}

func functype(params, results []byte) []byte {
	return cat([]byte{0x60}, u(uint32(len(params))), params, u(uint32(len(results))), results)
}

func importFunc(mod, name string, typeIdx uint32) []byte {
	return cat(str(mod), str(name), []byte{0x00}, u(typeIdx))
}

// importMemory declares a memory import with min 1 page and no max,
// which matches any memory the sandbox provides.
func importMemory(mod, name string) []byte {
	return cat(str(mod), str(name), []byte{0x02, 0x00}, u(1))
}

func exportFunc(name string, funcIdx uint32) []byte {
	return cat(str(name), []byte{0x00}, u(funcIdx))
}

// body frames one code entry: locals vector then instructions.
func body(locals, code []byte) []byte {
	content := cat(locals, code)
	return cat(u(uint32(len(content))), content)
}

func noLocals() []byte {
	return []byte{0x00}
}

// localsI32 declares one group of n i32 locals.
func localsI32(n uint32) []byte {
	return cat([]byte{0x01}, u(n), []byte{i32})
}
