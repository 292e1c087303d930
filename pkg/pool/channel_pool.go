package pool

import (
	"sync"
)

// ChannelPool provides pooling for channels to reduce allocations
type ChannelPool[T any] struct {
	pool sync.Pool
	size int
}

// NewChannelPool creates a new channel pool with specified buffer size
func NewChannelPool[T any](size int) *ChannelPool[T] {
	return &ChannelPool[T]{
		size: size,
		pool: sync.Pool{
			New: func() interface{} {
				return make(chan T, size)
			},
		},
	}
}

// Get retrieves a channel from the pool
func (p *ChannelPool[T]) Get() chan T {
	ch, ok := p.pool.Get().(chan T)
	if !ok {
		return make(chan T, p.size)
	}
	return ch
}

// Put returns a channel to the pool after draining it. Closed channels
// must not be returned.
func (p *ChannelPool[T]) Put(ch chan T) {
	if ch == nil {
		return
	}

drainLoop:
	for len(ch) > 0 {
		select {
		case <-ch:
		default:
			break drainLoop
		}
	}

	p.pool.Put(ch)
}
