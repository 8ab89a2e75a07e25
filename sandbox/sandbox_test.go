package sandbox

import (
	"context"
	"strings"
	"testing"

	"github.com/wippyai/wasm-sandbox/errors"
	"github.com/wippyai/wasm-sandbox/internal/wasmtest"
)

func testConfig() Config {
	return Config{
		MaxMemoryBytes:    1 << 20,
		MaxGas:            1_000_000,
		MaxExecutionMS:    10_000,
		DeterministicSeed: 42,
		EventTimestamp:    1_700_000_000_000,
	}
}

func mustCreate(t *testing.T, s *Sandbox, cfg Config) *Instance {
	t.Helper()
	inst, err := s.Create(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return inst
}

func mustLoad(t *testing.T, s *Sandbox, id string, wasm []byte) {
	t.Helper()
	if _, err := s.Load(context.Background(), id, wasm); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestCreate_ProjectionAndIDs(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close(ctx)

	a := mustCreate(t, s, testConfig())
	b := mustCreate(t, s, testConfig())

	if a.ID != "sandbox-0" || b.ID != "sandbox-1" {
		t.Errorf("ids = %q, %q, want sandbox-0, sandbox-1", a.ID, b.ID)
	}
	if a.Status != StatusCreated {
		t.Errorf("status = %s, want created", a.Status)
	}
	if a.Metrics.GasLimit != testConfig().MaxGas {
		t.Errorf("metrics gas limit = %d, want %d", a.Metrics.GasLimit, testConfig().MaxGas)
	}
	if a.Metrics.GasUsed != 0 || a.Metrics.ExecutionMS != 0 {
		t.Error("fresh metrics should have zero usage")
	}
}

func TestCreate_InvalidConfig(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close(ctx)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero memory", func(c *Config) { c.MaxMemoryBytes = 0 }},
		{"zero deadline", func(c *Config) { c.MaxExecutionMS = 0 }},
		{"missing timestamp", func(c *Config) { c.EventTimestamp = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			if _, err := s.Create(ctx, cfg); err == nil {
				t.Error("Create should reject the config")
			}
		})
	}
}

func TestLoad_Transitions(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close(ctx)

	inst := mustCreate(t, s, testConfig())

	report, err := s.Load(ctx, inst.ID, wasmtest.Add())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if report.Total != 0 {
		t.Errorf("add module import total = %d, want 0", report.Total)
	}

	// a second load is not a legal transition
	if _, err := s.Load(ctx, inst.ID, wasmtest.Add()); err == nil {
		t.Error("Load on a loaded instance should fail")
	}
}

func TestLoad_ImportReport(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close(ctx)

	inst := mustCreate(t, s, testConfig())
	report, err := s.Load(ctx, inst.ID, wasmtest.Fib())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if report.Total != 1 || report.SystemProvided != 1 || report.HostFunctions != 0 {
		t.Errorf("report = %+v, want 1 total, 1 system", *report)
	}
}

func TestLoad_ShapeErrors(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close(ctx)

	tests := []struct {
		name string
		wasm []byte
	}{
		{"empty", nil},
		{"too short", []byte{0x00, 0x61, 0x73}},
		{"wrong magic", []byte{'n', 'o', 'p', 'e', 0x01, 0x00, 0x00, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := mustCreate(t, s, testConfig())
			_, err := s.Load(ctx, inst.ID, tt.wasm)
			if !errors.IsCode(err, errors.CodeInvalidModule) {
				t.Errorf("err = %v, want INVALID_MODULE", err)
			}
		})
	}
}

func TestLoad_WASIRejected(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close(ctx)

	inst := mustCreate(t, s, testConfig())
	_, err := s.Load(ctx, inst.ID, wasmtest.WASIImport())
	if !errors.IsCode(err, errors.CodeInvalidModule) {
		t.Fatalf("err = %v, want INVALID_MODULE", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "wasi_snapshot_preview1") {
		t.Errorf("reason %q should name the namespace", msg)
	}
	if !strings.Contains(msg, "blocked") {
		t.Errorf("reason %q should say blocked", msg)
	}
}

func TestLoad_ForeignNamespaceRejected(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close(ctx)

	inst := mustCreate(t, s, testConfig())
	_, err := s.Load(ctx, inst.ID, wasmtest.ForeignNamespaceImport())
	if !errors.IsCode(err, errors.CodeInvalidModule) {
		t.Fatalf("err = %v, want INVALID_MODULE", err)
	}
	if !strings.Contains(err.Error(), `"foo"`) {
		t.Errorf("reason %q should name the namespace", err.Error())
	}
}

func TestLoad_UndeclaredEnvImportRejected(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close(ctx)

	inst := mustCreate(t, s, testConfig())
	_, err := s.Load(ctx, inst.ID, wasmtest.UndeclaredEnvImport())
	if !errors.IsCode(err, errors.CodeInvalidModule) {
		t.Fatalf("err = %v, want INVALID_MODULE", err)
	}
	if !strings.Contains(err.Error(), "undeclared") {
		t.Errorf("reason %q should say undeclared", err.Error())
	}
}

func TestDestroy_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := New()

	inst := mustCreate(t, s, testConfig())
	mustLoad(t, s, inst.ID, wasmtest.Add())

	s.Destroy(ctx, inst.ID)
	s.Destroy(ctx, inst.ID) // no-op
	s.Destroy(ctx, "never-existed")

	if _, err := s.Metrics(inst.ID); !errors.IsCode(err, errors.CodeInstanceDestroyed) {
		t.Errorf("Metrics after destroy = %v, want INSTANCE_DESTROYED", err)
	}
	if _, err := s.Load(ctx, inst.ID, wasmtest.Add()); !errors.IsCode(err, errors.CodeInstanceDestroyed) {
		t.Errorf("Load after destroy = %v, want INSTANCE_DESTROYED", err)
	}
	if _, err := s.Snapshot(inst.ID); !errors.IsCode(err, errors.CodeInstanceDestroyed) {
		t.Errorf("Snapshot after destroy = %v, want INSTANCE_DESTROYED", err)
	}
}

func TestSuspend(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close(ctx)

	inst := mustCreate(t, s, testConfig())

	if err := s.Suspend(inst.ID); err == nil {
		t.Error("Suspend on created should fail")
	}

	mustLoad(t, s, inst.ID, wasmtest.Add())
	if err := s.Suspend(inst.ID); err != nil {
		t.Fatalf("Suspend: %v", err)
	}

	res := s.Execute(ctx, inst.ID, "add", []int64{1, 2})
	if res.OK() || res.Err.TrapKind != errors.TrapInvalidState {
		t.Errorf("execute on suspended = %+v, want invalid_state trap", res.Err)
	}
}

func TestInstancesAndLen(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close(ctx)

	a := mustCreate(t, s, testConfig())
	b := mustCreate(t, s, testConfig())

	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}

	s.Destroy(ctx, a.ID)
	if s.Len() != 1 {
		t.Errorf("Len after destroy = %d, want 1", s.Len())
	}

	list := s.Instances()
	if len(list) != 1 || list[0].ID != b.ID {
		t.Errorf("Instances = %v, want just %s", list, b.ID)
	}
}

func TestUnknownInstance(t *testing.T) {
	s := New()

	if _, err := s.Metrics("sandbox-99"); err == nil {
		t.Error("Metrics on unknown id should fail")
	}
	if _, err := s.Load(context.Background(), "sandbox-99", wasmtest.Add()); err == nil {
		t.Error("Load on unknown id should fail")
	}
}

func TestMetrics_LiveMemoryUsage(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close(ctx)

	inst := mustCreate(t, s, testConfig())
	mustLoad(t, s, inst.ID, wasmtest.Add())

	m, err := s.Metrics(inst.ID)
	if err != nil {
		t.Fatalf("Metrics: %v", err)
	}
	if m.MemoryUsedBytes != 65536 {
		t.Errorf("memory used = %d, want one page (65536)", m.MemoryUsedBytes)
	}
	if m.MemoryLimitBytes != testConfig().MaxMemoryBytes {
		t.Errorf("memory limit = %d, want %d", m.MemoryLimitBytes, testConfig().MaxMemoryBytes)
	}
}

func TestExports(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close(ctx)

	inst := mustCreate(t, s, testConfig())

	if _, err := s.Exports(inst.ID); err == nil {
		t.Error("Exports before load should fail")
	}

	mustLoad(t, s, inst.ID, wasmtest.Echo())
	names, err := s.Exports(inst.ID)
	if err != nil {
		t.Fatalf("Exports: %v", err)
	}
	want := []string{"__alloc", "echo"}
	if len(names) != len(want) {
		t.Fatalf("Exports = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Exports[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestClose_DestroysEverything(t *testing.T) {
	ctx := context.Background()
	s := New()

	a := mustCreate(t, s, testConfig())
	b := mustCreate(t, s, testConfig())

	if err := s.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len after Close = %d, want 0", s.Len())
	}
	for _, id := range []string{a.ID, b.ID} {
		if _, err := s.Metrics(id); !errors.IsCode(err, errors.CodeInstanceDestroyed) {
			t.Errorf("Metrics(%s) after Close = %v, want INSTANCE_DESTROYED", id, err)
		}
	}
}
