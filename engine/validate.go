package engine

import (
	"bytes"

	"github.com/tetratelabs/wazero"

	"github.com/wippyai/wasm-sandbox/errors"
)

var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6D}

// blockedNamespaces are import namespaces that grant ambient authority.
// Any import from one of these fails validation outright.
var blockedNamespaces = []string{
	"wasi_snapshot_preview1",
	"wasi_unstable",
	"wasi",
}

// systemImports are the env names the sandbox itself provides.
var systemImports = map[string]bool{
	"memory":       true,
	"__get_time":   true,
	"__get_random": true,
}

// ImportReport summarizes a module's declared imports after validation.
// Useful for diagnostics and audit logs; the executor does not need it.
type ImportReport struct {
	Total          int
	HostFunctions  int
	SystemProvided int
}

// checkShape runs the byte-level checks that precede compilation.
func checkShape(wasm []byte) error {
	if len(wasm) == 0 {
		return errors.InvalidModule("module bytes are empty")
	}
	if len(wasm) < 8 {
		return errors.InvalidModule("module too small: %d bytes, a WASM binary is at least 8", len(wasm))
	}
	if !bytes.Equal(wasm[0:4], wasmMagic) {
		return errors.InvalidModule("missing \\0asm magic bytes, got % X", wasm[0:4])
	}
	return nil
}

// namedImport is one declared import, kind-erased.
type namedImport struct {
	module string
	name   string
}

func declaredImports(compiled wazero.CompiledModule) []namedImport {
	var imports []namedImport
	for _, fd := range compiled.ImportedFunctions() {
		mod, name, ok := fd.Import()
		if ok {
			imports = append(imports, namedImport{module: mod, name: name})
		}
	}
	for _, md := range compiled.ImportedMemories() {
		mod, name, ok := md.Import()
		if ok {
			imports = append(imports, namedImport{module: mod, name: name})
		}
	}
	return imports
}

// validateImports is the determinism gate: every declared import must be
// env.memory, env.__get_time, env.__get_random, or a configured host
// function. WASI namespaces are rejected by name so the reason is
// explicit about why.
func validateImports(compiled wazero.CompiledModule, hostNames map[string]bool) (*ImportReport, error) {
	report := &ImportReport{}

	for _, imp := range declaredImports(compiled) {
		report.Total++

		for _, ns := range blockedNamespaces {
			if imp.module == ns {
				return nil, errors.InvalidModule(
					"import %s.%s is blocked: %s grants ambient authority", imp.module, imp.name, ns)
			}
		}

		if imp.module != "env" {
			return nil, errors.InvalidModule(
				"import namespace %q is not allowed, only \"env\" imports are permitted", imp.module)
		}

		switch {
		case systemImports[imp.name]:
			report.SystemProvided++
		case hostNames[imp.name]:
			report.HostFunctions++
		default:
			return nil, errors.InvalidModule("undeclared import env.%s", imp.name)
		}
	}

	return report, nil
}
