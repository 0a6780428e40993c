package packet

import (
	"encoding/binary"
	"math"
)

// Sample is the set of sample datatypes Pack can serialize, mirroring the
// DataType values that carry a fixed-width encoding.
type Sample interface {
	int32 | int64 | float32 | float64
}

// Pack serializes samples into the little-endian byte blob the import wire
// format requires (SPEC_FULL.md section 6): "the blob is little-endian
// packed (native on little-endian hosts; a byte-reversing packer runs on
// big-endian hosts". That is original_source/testing/utilities.hpp's
// pack<T>(), which swaps bytes only on a big-endian host so its output is
// always little-endian; Go's encoding/binary already abstracts host byte
// order, so one code path reproduces pack<T>()'s behavior on every
// platform without a runtime endianness branch.
//
// Test fixtures are Pack's only caller: the real upstream's wire bytes are
// produced by its generated protobuf stub, which is out of scope here (see
// SPEC_FULL.md section 1).
func Pack[T Sample](samples []T) []byte {
	width := sampleWidth[T]()
	buf := make([]byte, len(samples)*width)
	for i, s := range samples {
		packOne(buf[i*width:(i+1)*width], s)
	}
	return buf
}

func sampleWidth[T Sample]() int {
	var zero T
	switch any(zero).(type) {
	case int32, float32:
		return 4
	default:
		return 8
	}
}

func packOne[T Sample](dst []byte, s T) {
	switch v := any(s).(type) {
	case int32:
		binary.LittleEndian.PutUint32(dst, uint32(v))
	case int64:
		binary.LittleEndian.PutUint64(dst, uint64(v))
	case float32:
		binary.LittleEndian.PutUint32(dst, math.Float32bits(v))
	case float64:
		binary.LittleEndian.PutUint64(dst, math.Float64bits(v))
	}
}
