// Package cache memoizes data-access results by operation, source-set
// fingerprint and parameters.
//
// Entries are never evicted. A fingerprint change makes old entries
// unreachable rather than stale, so the table only grows for the life of the
// process. Concurrent lookups of the same missing key share one computation.
//
//	key, _ := cache.NewKey("summary_stats", fp)
//	v, err := cache.Memo(ctx, table, key, func(ctx context.Context) (*columnar.Result, error) {
//		return engine.Query(ctx, paths, summarySQL)
//	})
//
// Cached values are shared between callers and must not be mutated.
package cache

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/errors"
	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/json"
	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/metrics"
)

// Key identifies one memoized result.
type Key struct {
	Op          string
	Fingerprint string
	Params      string
}

// NewKey builds a key for op over fingerprint. params are encoded as JSON, so
// maps produce the same key regardless of iteration order.
func NewKey(op, fingerprint string, params ...any) (Key, error) {
	k := Key{Op: op, Fingerprint: fingerprint}
	if len(params) == 0 {
		return k, nil
	}
	b, err := json.Marshal(params)
	if err != nil {
		return Key{}, errors.Wrap(err, errors.ErrorTypeValidation, "failed to encode cache key parameters").
			WithDetail("operation", op)
	}
	k.Params = string(b)
	return k, nil
}

func (k Key) String() string {
	var b strings.Builder
	b.Grow(len(k.Op) + len(k.Fingerprint) + len(k.Params) + 2)
	b.WriteString(k.Op)
	b.WriteByte('|')
	b.WriteString(k.Fingerprint)
	b.WriteByte('|')
	b.WriteString(k.Params)
	return b.String()
}

// Table is a concurrency-safe memo table.
type Table struct {
	mu      sync.RWMutex
	entries map[Key]any
	group   singleflight.Group
	logger  *zap.Logger
}

// New creates an empty table.
func New(logger *zap.Logger) *Table {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Table{
		entries: make(map[Key]any),
		logger:  logger,
	}
}

// Get returns the value stored under key.
func (t *Table) Get(key Key) (any, bool) {
	t.mu.RLock()
	v, ok := t.entries[key]
	t.mu.RUnlock()
	return v, ok
}

// Len returns the number of stored entries.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Do returns the value stored under key, computing and storing it with fn on
// a miss. Errors from fn are returned to every waiting caller and not stored.
//
// fn runs detached from ctx's cancellation: a caller that gives up gets
// ctx's error back, while the shared computation carries on for the callers
// still waiting on it.
func (t *Table) Do(ctx context.Context, key Key, fn func(context.Context) (any, error)) (any, error) {
	if v, ok := t.Get(key); ok {
		metrics.CacheLookups.WithLabelValues(key.Op, metrics.CacheHit).Inc()
		return v, nil
	}
	metrics.CacheLookups.WithLabelValues(key.Op, metrics.CacheMiss).Inc()

	detached := context.WithoutCancel(ctx)
	ch := t.group.DoChan(key.String(), func() (any, error) {
		// another flight may have finished between Get and DoChan
		if v, ok := t.Get(key); ok {
			return v, nil
		}
		v, err := fn(detached)
		if err != nil {
			return nil, err
		}
		t.mu.Lock()
		t.entries[key] = v
		n := len(t.entries)
		t.mu.Unlock()
		metrics.CacheEntries.Set(float64(n))
		return v, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), errors.ErrorTypeQuery, "caller abandoned memoized computation").
			WithDetail("operation", key.Op)
	}

	if res.Err != nil {
		t.logger.Debug("memoized computation failed",
			zap.String("operation", key.Op),
			zap.String("fingerprint", key.Fingerprint),
			zap.Error(res.Err))
		return nil, res.Err
	}
	if res.Shared {
		t.logger.Debug("shared in-flight computation",
			zap.String("operation", key.Op),
			zap.String("fingerprint", key.Fingerprint))
	}
	return res.Val, nil
}

// Memo is Do with a typed result.
func Memo[T any](ctx context.Context, t *Table, key Key, fn func(context.Context) (T, error)) (T, error) {
	v, err := t.Do(ctx, key, func(ctx context.Context) (any, error) { return fn(ctx) })
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
