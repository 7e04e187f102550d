// Package pool provides typed object pooling for the hot paths of the
// dashboard: binding parquet rows during ingestion and encoding JSON.
//
// Pool[T] wraps sync.Pool with a reset hook and usage statistics:
//
//	args := pool.Values.Get()
//	defer pool.Values.Put(args)
//	*args = append(*args, rowOrd, name)
//
// Objects must not be used after Put.
package pool

import (
	"bytes"
	"sync"
	"sync/atomic"
)

// maxPooledBuffer is the largest buffer capacity returned to Buffers.
const maxPooledBuffer = 1 << 20

// Pool is a generic object pool. It is safe for concurrent use.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(T)
	keep  func(T) bool

	gets   atomic.Int64
	misses atomic.Int64
	inUse  atomic.Int64
}

// New creates a pool. reset, when non-nil, clears an object before it is
// pooled again.
func New[T any](newFn func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{reset: reset}
	p.pool.New = func() any {
		p.misses.Add(1)
		return newFn()
	}
	return p
}

// Get returns a pooled object or a new one.
func (p *Pool[T]) Get() T {
	p.gets.Add(1)
	p.inUse.Add(1)
	return p.pool.Get().(T)
}

// Put resets obj and returns it to the pool. Objects rejected by the keep
// predicate are dropped.
func (p *Pool[T]) Put(obj T) {
	p.inUse.Add(-1)
	if p.keep != nil && !p.keep(obj) {
		return
	}
	if p.reset != nil {
		p.reset(obj)
	}
	p.pool.Put(obj)
}

// Stats describes pool usage.
type Stats struct {
	Gets   int64
	Misses int64
	InUse  int64
}

// Stats returns a snapshot of pool usage. Misses counts objects the pool had
// to allocate.
func (p *Pool[T]) Stats() Stats {
	return Stats{
		Gets:   p.gets.Load(),
		Misses: p.misses.Load(),
		InUse:  p.inUse.Load(),
	}
}

var (
	// Values pools the per-row argument slices bound to insert statements.
	Values = New(
		func() *[]any {
			s := make([]any, 0, 32)
			return &s
		},
		func(s *[]any) {
			clear(*s)
			*s = (*s)[:0]
		},
	)

	// Buffers pools byte buffers for encoding. Buffers that grew past 1 MiB
	// are not kept.
	Buffers = func() *Pool[*bytes.Buffer] {
		p := New(
			func() *bytes.Buffer { return bytes.NewBuffer(make([]byte, 0, 4096)) },
			func(b *bytes.Buffer) { b.Reset() },
		)
		p.keep = func(b *bytes.Buffer) bool { return b.Cap() <= maxPooledBuffer }
		return p
	}()
)
