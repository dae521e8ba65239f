package ftl

import "sync"

// DefaultMaxStringLen is the default capacity of the scratch buffer strings are
// decoded into. The backend does not emit longer strings in practice.
const DefaultMaxStringLen = 4096

var stringBufPool = &sync.Pool{
	New: func() any {
		return make([]byte, 0, DefaultMaxStringLen)
	},
}

func acquireStringBuf(capacity int) []byte {
	if capacity != DefaultMaxStringLen {
		return make([]byte, 0, capacity)
	}
	return stringBufPool.Get().([]byte)[:0]
}

func releaseStringBuf(b []byte) {
	if cap(b) == DefaultMaxStringLen {
		stringBufPool.Put(b[:0])
	}
}
