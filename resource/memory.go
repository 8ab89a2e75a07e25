package resource

// MemorySizer reports the current byte size of a linear memory buffer.
// wazero's api.Memory satisfies it.
type MemorySizer interface {
	Size() uint32
}

// MemoryCheck is the result of grading memory usage against a limit.
// Only Exceeded == true is an error condition.
type MemoryCheck struct {
	Used     uint64
	Limit    uint64
	Exceeded bool
}

// UsageBytes returns the buffer length of mem, or 0 for a nil memory.
func UsageBytes(mem MemorySizer) uint64 {
	if mem == nil {
		return 0
	}
	return uint64(mem.Size())
}

// CheckMemory grades current usage against limit. Usage equal to the
// limit passes; the engine's own page maximum may sit above the caller's
// byte cap, which is why this check runs after execution rather than
// being delegated to the engine.
func CheckMemory(mem MemorySizer, limit uint64) MemoryCheck {
	used := UsageBytes(mem)
	return MemoryCheck{
		Used:     used,
		Limit:    limit,
		Exceeded: used > limit,
	}
}
