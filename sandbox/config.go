package sandbox

import (
	"fmt"

	"github.com/wippyai/wasm-sandbox/engine"
)

// Config fixes an instance's budgets and determinism inputs. It is
// immutable once bound to an instance. No field defaults to a clock
// read: the event timestamp is caller-supplied and required.
type Config struct {
	// MaxMemoryBytes caps linear memory. The page ceiling handed to the
	// engine is ceil(MaxMemoryBytes/65536); the byte cap itself is
	// enforced by the post-execution check and may sit below one page.
	MaxMemoryBytes uint64

	// MaxGas is the computation budget. One unit is charged per
	// host-call boundary.
	MaxGas uint64

	// MaxExecutionMS is the wall-clock budget per execute, checked at
	// host-call boundaries.
	MaxExecutionMS int64

	// HostFunctions are injected at env.<Name>. The function's own Name
	// field is authoritative; an empty Name inherits the map key.
	HostFunctions map[string]engine.HostFunction

	// DeterministicSeed seeds the instance's generator.
	DeterministicSeed uint32

	// EventTimestamp is the caller-supplied "now" in milliseconds since
	// epoch, returned by every __get_time call. Required.
	EventTimestamp int64
}

// validate rejects configs the sandbox cannot honor.
func (c Config) validate() error {
	if c.MaxMemoryBytes == 0 {
		return fmt.Errorf("invalid config: max memory bytes must be positive")
	}
	if c.MaxExecutionMS <= 0 {
		return fmt.Errorf("invalid config: max execution ms must be positive")
	}
	if c.EventTimestamp <= 0 {
		return fmt.Errorf("invalid config: event timestamp is required")
	}
	for key, hf := range c.HostFunctions {
		if hf.Name == "" && key == "" {
			return fmt.Errorf("invalid config: host function with empty name")
		}
		if hf.Handler == nil {
			return fmt.Errorf("invalid config: host function %q has no handler", hf.Name)
		}
	}
	return nil
}

// hostFunctions returns the declared functions with names normalized:
// the Name field wins, an empty Name inherits the map key.
func (c Config) hostFunctions() []engine.HostFunction {
	if len(c.HostFunctions) == 0 {
		return nil
	}
	out := make([]engine.HostFunction, 0, len(c.HostFunctions))
	for key, hf := range c.HostFunctions {
		if hf.Name == "" {
			hf.Name = key
		}
		out = append(out, hf)
	}
	return out
}

// hostNames returns the set of env names admitted by import isolation
// on top of the system imports.
func (c Config) hostNames() map[string]bool {
	fns := c.hostFunctions()
	if len(fns) == 0 {
		return nil
	}
	names := make(map[string]bool, len(fns))
	for _, hf := range fns {
		names[hf.Name] = true
	}
	return names
}
