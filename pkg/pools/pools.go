// Package pools provides object pooling for reducing GC pressure in the
// per-iteration communication paths.
//
//   - BytePool: size-class pooling for ghost-exchange arenas and packed
//     send buffers, which are reallocated on every partition/clean
//   - BufferPool: pooled bytes.Buffer values backing record encoders
package pools
