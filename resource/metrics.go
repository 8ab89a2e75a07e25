package resource

// Metrics is the read-only resource usage projection emitted with every
// execution result and by the metrics operation. Always fully populated,
// including on failure.
type Metrics struct {
	MemoryUsedBytes  uint64 `json:"memory_used_bytes"`
	MemoryLimitBytes uint64 `json:"memory_limit_bytes"`
	GasUsed          uint64 `json:"gas_used"`
	GasLimit         uint64 `json:"gas_limit"`
	ExecutionMS      int64  `json:"execution_ms"`
	ExecutionLimitMS int64  `json:"execution_limit_ms"`
}

// BuildMetrics assembles a Metrics value from the execution context and
// the live linear memory.
func BuildMetrics(c *Context, mem MemorySizer, memoryLimit uint64) Metrics {
	return Metrics{
		MemoryUsedBytes:  UsageBytes(mem),
		MemoryLimitBytes: memoryLimit,
		GasUsed:          c.Gas.Used(),
		GasLimit:         c.Gas.Limit(),
		ExecutionMS:      c.Deadline.ElapsedMS(),
		ExecutionLimitMS: c.Deadline.LimitMS(),
	}
}
