package pools

import (
	"math/bits"
	"sync"
)

// Size classes are powers of two from MinClass to MaxPool.
const (
	MinClass = 64
	MaxPool  = 1 << 22 // slices above 4 MiB are left to the GC
)

var numClasses = bits.Len(uint(MaxPool)) - bits.Len(uint(MinClass)) + 1

// BytePool provides size-class based pooling for byte slices.
type BytePool struct {
	classes []sync.Pool
}

// NewBytePool creates a new byte pool.
func NewBytePool() *BytePool {
	p := &BytePool{classes: make([]sync.Pool, numClasses)}
	for i := range p.classes {
		size := MinClass << i
		p.classes[i].New = func() any {
			b := make([]byte, 0, size)
			return &b
		}
	}
	return p
}

// classFor returns the index of the smallest class holding size bytes,
// or -1 when size exceeds MaxPool.
func classFor(size int) int {
	if size > MaxPool {
		return -1
	}
	if size <= MinClass {
		return 0
	}
	return bits.Len(uint(size-1)) - bits.Len(uint(MinClass-1))
}

// Get returns an empty byte slice with capacity of at least size.
func (p *BytePool) Get(size int) []byte {
	c := classFor(size)
	if c < 0 {
		return make([]byte, 0, size)
	}
	bp, ok := p.classes[c].Get().(*[]byte)
	if !ok || cap(*bp) < size {
		return make([]byte, 0, size)
	}
	return (*bp)[:0]
}

// GetSized returns a zeroed byte slice with exactly the requested length.
func (p *BytePool) GetSized(size int) []byte {
	b := p.Get(size)[:size]
	clear(b)
	return b
}

// Put returns a byte slice to the pool. Slices whose capacity is not an
// exact size class are dropped so that Get never hands out a short slice.
func (p *BytePool) Put(b []byte) {
	c := cap(b)
	if c < MinClass || c > MaxPool || c&(c-1) != 0 {
		return
	}
	b = b[:0]
	p.classes[classFor(c)].Put(&b)
}

var defaultBytePool = NewBytePool()

// GetBytes returns a byte slice from the default pool.
func GetBytes(size int) []byte {
	return defaultBytePool.Get(size)
}

// GetBytesSized returns a zeroed byte slice with exact length from the default pool.
func GetBytesSized(size int) []byte {
	return defaultBytePool.GetSized(size)
}

// PutBytes returns a byte slice to the default pool.
func PutBytes(b []byte) {
	defaultBytePool.Put(b)
}
