package columnar

import (
	"context"
	"sync"
	"sync/atomic"
)

// Connector owns the process-wide engine. It is constructed once by the
// application and passed to every component that queries source files.
type Connector struct {
	opts   Options
	open   func(context.Context, Options) (*Engine, error)
	once   sync.Once
	engine *Engine
	err    error
	opens  atomic.Int32
	ready  atomic.Bool
}

// NewConnector returns a connector that opens its engine with opts on first use.
func NewConnector(opts Options) *Connector {
	return &Connector{opts: opts, open: Open}
}

// Connection returns the shared engine, creating it on the first call. The
// first call's outcome is final: a creation error is returned to every caller
// and never retried. Creation ignores ctx's cancellation, so a first caller
// that goes away cannot leave the engine permanently failed.
func (c *Connector) Connection(ctx context.Context) (Querier, error) {
	e, err := c.Engine(ctx)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Engine is Connection with the concrete engine type.
func (c *Connector) Engine(ctx context.Context) (*Engine, error) {
	c.once.Do(func() {
		c.opens.Add(1)
		c.engine, c.err = c.open(context.WithoutCancel(ctx), c.opts)
		c.ready.Store(c.err == nil)
	})
	return c.engine, c.err
}

// Opened reports whether the engine has been created successfully.
func (c *Connector) Opened() bool {
	return c.ready.Load()
}

// Stats reports engine stats, or zero stats when the engine was never opened.
func (c *Connector) Stats() Stats {
	if !c.Opened() {
		return Stats{}
	}
	return c.engine.Stats()
}

// Close closes the engine if it was opened.
func (c *Connector) Close() error {
	if !c.Opened() {
		return nil
	}
	return c.engine.Close()
}
