package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-sandbox/resource"
	"github.com/wippyai/wasm-sandbox/sandbox"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <file.wasm>",
		Short: "Execute a WASM module in the deterministic sandbox",
		Long: `Execute a WASM module under the sandbox's resource limits.

Limits come from defaults, an optional YAML config file, WSB_* environment
variables and flags, in that order of precedence.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0])
		},
		SilenceUsage: true,
	}

	flags := cmd.Flags()
	flags.String("config", "", "path to YAML config file")
	flags.String("func", "", "exported function to call")
	flags.String("args", "", "comma-separated numeric arguments")
	flags.String("payload", "", "JSON payload (serialized mode unless numeric)")
	flags.Bool("list", false, "list exported functions and exit")
	flags.BoolP("interactive", "i", false, "interactive mode with TUI")
	flags.Bool("verbose", false, "enable debug logging")
	flags.String("snapshot-out", "", "write a snapshot to this file after the call")
	flags.String("restore-from", "", "restore a snapshot from this file before the call")
	flags.Uint64("max-memory-bytes", defaultMaxMemoryBytes, "linear memory cap in bytes")
	flags.Uint64("max-gas", defaultMaxGas, "gas budget (1 unit per host call)")
	flags.Int64("max-execution-ms", defaultMaxExecutionMS, "wall-clock budget per call")
	flags.Uint32("seed", 0, "deterministic PRNG seed")
	flags.Int64("event-timestamp", 0, "injected timestamp in ms since epoch (default: now)")

	return cmd
}

func run(cmd *cobra.Command, wasmFile string) error {
	ctx := context.Background()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := zap.NewNop()
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logger, err = zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer logger.Sync()
	}

	if interactive, _ := cmd.Flags().GetBool("interactive"); interactive {
		return runInteractive(wasmFile, cfg, logger)
	}

	data, err := os.ReadFile(wasmFile)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	sb := sandbox.New(sandbox.WithLogger(logger))
	defer sb.Close(ctx)

	inst, err := sb.Create(ctx, cfg.sandboxConfig())
	if err != nil {
		return err
	}

	report, err := sb.Load(ctx, inst.ID, data)
	if err != nil {
		return err
	}

	fmt.Printf("Module: %s\n", wasmFile)
	fmt.Printf("Imports: %d (%d system, %d host)\n",
		report.Total, report.SystemProvided, report.HostFunctions)

	exports, err := sb.Exports(inst.ID)
	if err != nil {
		return err
	}

	if listOnly, _ := cmd.Flags().GetBool("list"); listOnly {
		fmt.Println("\nExported functions:")
		for _, name := range exports {
			fmt.Printf("  %s\n", name)
		}
		return nil
	}

	if restorePath, _ := cmd.Flags().GetString("restore-from"); restorePath != "" {
		snap, err := os.ReadFile(restorePath)
		if err != nil {
			return fmt.Errorf("read snapshot: %w", err)
		}
		if err := sb.Restore(inst.ID, snap); err != nil {
			return err
		}
		fmt.Printf("Restored snapshot from %s\n", restorePath)
	}

	funcName, _ := cmd.Flags().GetString("func")
	if funcName == "" {
		return fmt.Errorf("no function specified; use --func or --list")
	}

	argsCSV, _ := cmd.Flags().GetString("args")
	payloadJSON, _ := cmd.Flags().GetString("payload")
	payload, err := buildPayload(argsCSV, payloadJSON)
	if err != nil {
		return err
	}

	res := sb.Execute(ctx, inst.ID, funcName, payload)
	printResult(funcName, res)

	if snapPath, _ := cmd.Flags().GetString("snapshot-out"); snapPath != "" {
		snap, err := sb.Snapshot(inst.ID)
		if err != nil {
			return err
		}
		if err := os.WriteFile(snapPath, snap, 0o644); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
		fmt.Printf("Snapshot written to %s (%d bytes)\n", snapPath, len(snap))
	}

	if !res.OK() {
		return fmt.Errorf("execution failed: %s", res.Err.Code)
	}
	return nil
}

// buildPayload turns the CLI input into an execute payload: an explicit
// JSON payload is decoded as is (serialized mode unless it decodes to a
// number or an array of numbers, which the sandbox passes directly),
// comma-separated numbers select direct mode, neither means no arguments.
func buildPayload(argsCSV, payloadJSON string) (any, error) {
	if payloadJSON != "" {
		var payload any
		if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
			return nil, fmt.Errorf("parse payload: %w", err)
		}
		return payload, nil
	}

	if argsCSV == "" {
		return nil, nil
	}

	parts := strings.Split(argsCSV, ",")
	ints := make([]int64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("argument %q is not an integer", p)
		}
		ints = append(ints, v)
	}
	return ints, nil
}

func printResult(funcName string, res sandbox.Result) {
	if res.OK() {
		fmt.Printf("\n%s => %v\n", funcName, res.Value)
	} else {
		fmt.Printf("\n%s failed: %v\n", funcName, res.Err)
	}
	printMetrics(res.Metrics)
}

func printMetrics(m resource.Metrics) {
	fmt.Printf("  gas:      %d / %d\n", m.GasUsed, m.GasLimit)
	fmt.Printf("  memory:   %d / %d bytes (%s)\n",
		m.MemoryUsedBytes, m.MemoryLimitBytes,
		resource.Pressure(m.MemoryUsedBytes, m.MemoryLimitBytes))
	fmt.Printf("  elapsed:  %d / %d ms\n", m.ExecutionMS, m.ExecutionLimitMS)
}
