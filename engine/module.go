package engine

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-sandbox/errors"
)

// Compile runs the load pipeline up to (not including) instantiation:
// shape check, wazero compilation, import isolation. hostNames lists the
// configured host function names admitted within env.
func (e *Engine) Compile(ctx context.Context, wasm []byte, hostNames map[string]bool) (*Module, error) {
	if err := checkShape(wasm); err != nil {
		return nil, err
	}

	compiled, err := e.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, errors.InvalidModuleCause("module compilation failed", err)
	}

	report, err := validateImports(compiled, hostNames)
	if err != nil {
		compiled.Close(ctx)
		return nil, err
	}

	Logger().Debug("module compiled",
		zap.Int("imports", report.Total),
		zap.Int("host_imports", report.HostFunctions),
		zap.Int("system_imports", report.SystemProvided))

	return &Module{engine: e, compiled: compiled, report: report}, nil
}

// Module is a compiled, import-validated module ready to instantiate.
type Module struct {
	engine   *Engine
	compiled wazero.CompiledModule
	report   *ImportReport
}

// Report returns the import summary produced during validation.
func (m *Module) Report() *ImportReport {
	return m.report
}

// ExportNames lists the module's exported functions, sorted.
func (m *Module) ExportNames() []string {
	defs := m.compiled.ExportedFunctions()
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close releases the compiled module.
func (m *Module) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}

// Instantiate creates the guest instance. The env module must already
// be wired in the same engine so the guest's imports resolve against it.
func (m *Module) Instantiate(ctx context.Context) (*Instance, error) {
	guest, err := instantiateGuest(ctx, m.engine.runtime, m.compiled)
	if err != nil {
		return nil, classifyInstantiationError(err)
	}
	return &Instance{guest: guest}, nil
}

// instantiateGuest isolates the panic boundary: a host function called
// from the guest's start section unwinds through here.
func instantiateGuest(ctx context.Context, r wazero.Runtime, compiled wazero.CompiledModule) (mod api.Module, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if rerr, ok := rec.(error); ok {
				err = rerr
				return
			}
			err = errors.InvalidModule("instantiation panicked: %v", rec)
		}
	}()
	return r.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName("sandbox"))
}

var hostFailurePattern = regexp.MustCompile(`host function "([^"]+)" failed`)

// classifyInstantiationError maps an instantiation failure onto the
// error taxonomy: typed sandbox errors pass through, the decorated host
// failure form becomes HOST_FUNCTION_ERROR with the name extracted,
// import complaints and everything else become INVALID_MODULE.
func classifyInstantiationError(err error) error {
	if se, ok := errors.AsError(err); ok {
		return se
	}

	msg := err.Error()
	if m := hostFailurePattern.FindStringSubmatch(msg); m != nil {
		return errors.HostFunction(m[1], msg)
	}
	if strings.Contains(msg, "import") {
		return errors.InvalidModuleCause("import resolution failed", err)
	}
	return errors.InvalidModuleCause("module instantiation failed", err)
}

// Instance is a live guest module.
type Instance struct {
	guest api.Module
}

// ExportedFunction returns the named export, or nil.
func (i *Instance) ExportedFunction(name string) api.Function {
	return i.guest.ExportedFunction(name)
}

// Close releases the guest module.
func (i *Instance) Close(ctx context.Context) error {
	return i.guest.Close(ctx)
}
