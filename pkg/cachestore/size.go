package cachestore

import (
	"bytes"
	"encoding/gob"
)

// fixedOverhead approximates the bookkeeping cost of a cache entry (key
// pointer, timestamps, map slot) that isn't captured by the value's own
// size. It's added on top of every computed approximateByteSize.
const fixedOverhead = 48

// approximateByteSize estimates the number of bytes a value occupies, per
// spec.md §4.4: 8 for numeric, 4 for bool, 2*length for strings, and the
// gob-encoded size for anything else (structured values).
func approximateByteSize(value interface{}) int64 {
	switch v := value.(type) {
	case nil:
		return fixedOverhead
	case bool:
		return 4 + fixedOverhead
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return 8 + fixedOverhead
	case string:
		return int64(2*len(v)) + fixedOverhead
	case []byte:
		return int64(len(v)) + fixedOverhead
	default:
		return gobSize(v) + fixedOverhead
	}
}

// gobSize returns the gob-encoded size of v, or a conservative fallback if
// the value can't be gob-encoded (e.g. it carries unexported fields or
// interfaces gob can't register).
func gobSize(v interface{}) int64 {
	buf := &bytes.Buffer{}
	enc := gob.NewEncoder(buf)
	if err := enc.Encode(v); err != nil {
		return 256
	}
	return int64(buf.Len())
}
