package pool

import (
	"sync"
	"sync/atomic"
)

// Pool represents a generic object pool with type safety.
// It wraps sync.Pool with statistics tracking and an optional reset hook.
// The pool is safe for concurrent use.
//
// Type parameter T can be any type, but pointer types are recommended
// for efficiency.
type Pool[T any] struct {
	pool  sync.Pool
	new   func() T
	reset func(T)
	stats struct {
		allocated int64
		inUse     int64
		gets      int64
	}
}

// New creates a new typed pool with custom allocation and reset functions.
// The new function is called when the pool is empty and a new object is needed.
// The reset function is called before an object is returned to the pool.
//
// Example:
//
//	batches := pool.New(
//	    func() *columnar.Batch { return newBatch(group) },
//	    func(b *columnar.Batch) { b.Reset() },
//	)
func New[T any](new func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{
		new:   new,
		reset: reset,
	}
	p.pool.New = func() interface{} {
		atomic.AddInt64(&p.stats.allocated, 1)
		return new()
	}
	return p
}

// Get retrieves an object from the pool, creating one if the pool is empty.
// The returned object should be handed back with Put when no longer needed.
func (p *Pool[T]) Get() T {
	atomic.AddInt64(&p.stats.inUse, 1)
	atomic.AddInt64(&p.stats.gets, 1)
	return p.pool.Get().(T)
}

// Put resets obj and returns it to the pool for reuse.
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	atomic.AddInt64(&p.stats.inUse, -1)
	p.pool.Put(obj)
}

// Stats represents pool statistics for monitoring and optimization.
type Stats struct {
	// Allocated is the total number of objects created by the pool
	Allocated int64
	// InUse is the current number of objects checked out from the pool
	InUse int64
	// Hits is the number of Get calls served by a recycled object
	Hits int64
	// Misses is the number of Get calls that had to allocate
	Misses int64
}

// Stats returns a snapshot of the pool counters.
func (p *Pool[T]) Stats() Stats {
	allocated := atomic.LoadInt64(&p.stats.allocated)
	gets := atomic.LoadInt64(&p.stats.gets)
	hits := gets - allocated
	if hits < 0 {
		hits = 0
	}
	return Stats{
		Allocated: allocated,
		InUse:     atomic.LoadInt64(&p.stats.inUse),
		Hits:      hits,
		Misses:    allocated,
	}
}

// BufferPool manages byte buffer pooling with size-based buckets.
// It maintains one pool per bucket size and selects the smallest bucket
// that fits a request. Frame payloads vary with the flush budget, so the
// buckets span 4KB to 64MB.
type BufferPool struct {
	pools []*Pool[[]byte]
	sizes []int
}

// NewBufferPool creates a buffer pool with power-of-4 buckets from 4KB to
// 64MB. Larger buffers are allocated directly without pooling.
func NewBufferPool() *BufferPool {
	sizes := []int{
		4 << 10,  // 4KB
		16 << 10, // 16KB
		64 << 10, // 64KB
		256 << 10,
		1 << 20, // 1MB
		4 << 20,
		16 << 20,
		64 << 20, // 64MB
	}

	pools := make([]*Pool[[]byte], len(sizes))
	for i, size := range sizes {
		size := size
		pools[i] = New(
			func() []byte { return make([]byte, 0, size) },
			nil,
		)
	}
	return &BufferPool{
		pools: pools,
		sizes: sizes,
	}
}

// Get returns an empty buffer with capacity of at least size.
//
// Example:
//
//	buf := bufferPool.Get(2048) // len 0, cap 4KB
//	defer bufferPool.Put(buf)
func (p *BufferPool) Get(size int) []byte {
	for i, s := range p.sizes {
		if s >= size {
			return p.pools[i].Get()[:0]
		}
	}
	return make([]byte, 0, size)
}

// Put returns a buffer to the bucket matching its capacity. Buffers that
// don't match any bucket, including ones grown by append, are dropped.
func (p *BufferPool) Put(buf []byte) {
	size := cap(buf)
	for i, s := range p.sizes {
		if s == size {
			p.pools[i].Put(buf[:0])
			return
		}
	}
}

// Stats returns per-bucket statistics keyed by bucket size in bytes.
func (p *BufferPool) Stats() map[int]Stats {
	out := make(map[int]Stats, len(p.sizes))
	for i, s := range p.sizes {
		out[s] = p.pools[i].Stats()
	}
	return out
}

// GlobalBufferPool provides size-based byte buffer pooling for frame I/O.
var GlobalBufferPool = NewBufferPool()
