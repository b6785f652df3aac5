package pools

import (
	"bytes"
	"sync"
)

var bufferPool = sync.Pool{
	New: func() any {
		return new(bytes.Buffer)
	},
}

// GetBuffer returns an empty buffer from the pool.
func GetBuffer() *bytes.Buffer {
	return bufferPool.Get().(*bytes.Buffer)
}

// PutBuffer resets buf and returns it to the pool. Buffers that grew past
// MaxPool are dropped.
func PutBuffer(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > MaxPool {
		return
	}
	buf.Reset()
	bufferPool.Put(buf)
}
