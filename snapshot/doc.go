// Package snapshot implements the WSNP v1 binary codec for suspended
// sandbox state.
//
// A snapshot is a contiguous buffer:
//
//	offset  size  content
//	0       4     magic "WSNP"
//	4       1     version 0x01
//	5       4     memory_len, uint32 little-endian
//	9       N     linear memory, raw copy
//	9+N     4     state_len, uint32 little-endian
//	13+N    M     state blob, UTF-8 JSON
//
// The state blob is {"prngState":{"current":u32},"timestamp":n,"gasUsed":n}.
// Field names and ordering are stable for all versions <= 1; encoders in
// other languages must produce the same bytes for the same state.
//
// Decode validates strictly and in order (length, magic, version, region
// bounds, JSON) and returns nothing on failure, so a rejected snapshot
// never leaves a half-restored instance behind.
package snapshot
