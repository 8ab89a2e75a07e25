package snapshot

import (
	"bytes"
	"encoding/binary"
	"encoding/json"

	"github.com/wippyai/wasm-sandbox/errors"
	"github.com/wippyai/wasm-sandbox/prng"
)

// Version is the current wire format version.
const Version byte = 0x01

// headerSize covers magic, version and the memory length field.
const headerSize = 4 + 1 + 4

var magic = []byte{'W', 'S', 'N', 'P'}

// State is the complete captured execution state: everything that,
// together with the module bytes, reproduces subsequent execution
// byte-for-byte.
type State struct {
	Memory    []byte
	PRNG      prng.State
	Timestamp int64
	GasUsed   uint64
}

// stateBlob is the JSON wire shape of the non-memory state. Field order
// is part of the format: encoding/json emits struct fields in
// declaration order, which keeps Encode byte-stable.
type stateBlob struct {
	PRNGState prng.State `json:"prngState"`
	Timestamp int64      `json:"timestamp"`
	GasUsed   uint64     `json:"gasUsed"`
}

// Encode serializes s into a WSNP v1 buffer.
func Encode(s State) ([]byte, error) {
	blob, err := json.Marshal(stateBlob{
		PRNGState: s.PRNG,
		Timestamp: s.Timestamp,
		GasUsed:   s.GasUsed,
	})
	if err != nil {
		return nil, errors.Snapshot("state could not be serialized, snapshot corrupted: %v", err)
	}

	buf := make([]byte, 0, headerSize+len(s.Memory)+4+len(blob))
	out := bytes.NewBuffer(buf)

	out.Write(magic)
	out.WriteByte(Version)

	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], uint32(len(s.Memory)))
	out.Write(u32[:])
	out.Write(s.Memory)

	binary.LittleEndian.PutUint32(u32[:], uint32(len(blob)))
	out.Write(u32[:])
	out.Write(blob)

	return out.Bytes(), nil
}

// Decode parses and validates a WSNP buffer. Validation order is fixed:
// total length, magic, version, memory bounds, state bounds, JSON.
// The returned memory slice is a copy; data is not retained.
func Decode(data []byte) (State, error) {
	if len(data) < headerSize {
		return State{}, errors.Snapshot("snapshot truncated: %d bytes is smaller than the %d byte header", len(data), headerSize)
	}

	if !bytes.Equal(data[0:4], magic) {
		return State{}, errors.Snapshot("invalid magic bytes % X, want % X", data[0:4], magic)
	}

	if data[4] != Version {
		return State{}, errors.Snapshot("unsupported snapshot version 0x%02X, want 0x%02X", data[4], Version)
	}

	memLen := binary.LittleEndian.Uint32(data[5:9])
	memEnd := uint64(headerSize) + uint64(memLen)
	if memEnd+4 > uint64(len(data)) {
		return State{}, errors.Snapshot("snapshot truncated: memory length %d exceeds buffer", memLen)
	}

	stateLen := binary.LittleEndian.Uint32(data[memEnd : memEnd+4])
	stateStart := memEnd + 4
	if stateStart+uint64(stateLen) > uint64(len(data)) {
		return State{}, errors.Snapshot("snapshot truncated: state length %d exceeds buffer", stateLen)
	}

	var blob stateBlob
	if err := json.Unmarshal(data[stateStart:stateStart+uint64(stateLen)], &blob); err != nil {
		return State{}, errors.Snapshot("snapshot state corrupted: %v", err)
	}

	memory := make([]byte, memLen)
	copy(memory, data[headerSize:memEnd])

	return State{
		Memory:    memory,
		PRNG:      blob.PRNGState,
		Timestamp: blob.Timestamp,
		GasUsed:   blob.GasUsed,
	}, nil
}
