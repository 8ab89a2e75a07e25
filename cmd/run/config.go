package main

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"

	"github.com/wippyai/wasm-sandbox/sandbox"
)

// runConfig is the CLI's sandbox configuration, resolved by layering
// hardcoded defaults, an optional YAML file (--config), WSB_-prefixed
// environment variables and finally command-line flags.
type runConfig struct {
	MaxMemoryBytes uint64 `koanf:"max-memory-bytes"`
	MaxGas         uint64 `koanf:"max-gas"`
	MaxExecutionMS int64  `koanf:"max-execution-ms"`
	Seed           uint32 `koanf:"seed"`
	EventTimestamp int64  `koanf:"event-timestamp"`
}

const (
	defaultMaxMemoryBytes = 16 << 20
	defaultMaxGas         = 1_000_000
	defaultMaxExecutionMS = 5_000
)

func loadConfig(cmd *cobra.Command) (runConfig, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"max-memory-bytes": defaultMaxMemoryBytes,
		"max-gas":          defaultMaxGas,
		"max-execution-ms": defaultMaxExecutionMS,
		"seed":             0,
		"event-timestamp":  0,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return runConfig{}, err
		}
	}

	k.Load(env.Provider("WSB_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "WSB_")), "_", "-")
	}), nil)

	k.Load(posflag.Provider(cmd.Flags(), ".", k), nil)

	var cfg runConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return runConfig{}, err
	}

	// the core requires a caller-supplied timestamp; the CLI is the
	// caller, so an unset value means "now"
	if cfg.EventTimestamp == 0 {
		cfg.EventTimestamp = time.Now().UnixMilli()
	}

	return cfg, nil
}

func (c runConfig) sandboxConfig() sandbox.Config {
	return sandbox.Config{
		MaxMemoryBytes:    c.MaxMemoryBytes,
		MaxGas:            c.MaxGas,
		MaxExecutionMS:    c.MaxExecutionMS,
		DeterministicSeed: c.Seed,
		EventTimestamp:    c.EventTimestamp,
	}
}
