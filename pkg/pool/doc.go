// Package pool implements type-safe object pooling for the data logger's
// hot paths.
//
// # Core Types
//
//   - Pool[T]: generic pool over sync.Pool with allocation statistics
//   - BufferPool: byte buffers bucketed by capacity, used for frame
//     encoding and decoding
//   - ChannelPool[T]: reusable buffered channels, used for flush
//     completion signals
//
// # Usage Patterns
//
// A session keeps one Pool of column batches per group. When a batch is
// handed to the flush worker a recycled batch takes its place, so steady
// state appends allocate nothing:
//
//	batches := pool.New(
//	    func() *columnar.Batch { b, _ := columnar.NewBatch(specs, 1024); return b },
//	    func(b *columnar.Batch) { b.Reset() },
//	)
//	next := batches.Get()
//	// ... worker persists the previous batch, then:
//	batches.Put(prev)
//
// Objects must not be used after Put.
package pool
