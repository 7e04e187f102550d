package columnar

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/errors"
	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/testutil"
)

func TestConnectorSingleInstance(t *testing.T) {
	c := NewConnector(Options{Logger: testutil.TestLogger(t)})
	t.Cleanup(func() { _ = c.Close() })

	assert.False(t, c.Opened())
	assert.Equal(t, Stats{}, c.Stats())

	ctx := testutil.TestContext(t)
	engines := make([]Querier, 16)
	var wg sync.WaitGroup
	for i := range engines {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q, err := c.Connection(ctx)
			assert.NoError(t, err)
			engines[i] = q
		}(i)
	}
	wg.Wait()

	assert.True(t, c.Opened())
	assert.Equal(t, int32(1), c.opens.Load())
	for _, q := range engines[1:] {
		assert.Same(t, engines[0], q)
	}
}

func TestConnectorErrorIsSticky(t *testing.T) {
	boom := stderrors.New("boom")
	c := NewConnector(Options{})
	c.open = func(context.Context, Options) (*Engine, error) {
		return nil, errors.Wrap(boom, errors.ErrorTypeConnection, "failed to open columnar engine")
	}

	for i := 0; i < 3; i++ {
		q, err := c.Connection(context.Background())
		require.Error(t, err)
		assert.Nil(t, q)
		assert.ErrorIs(t, err, boom)
	}
	assert.Equal(t, int32(1), c.opens.Load())
	assert.False(t, c.Opened())
	assert.NoError(t, c.Close())
}

func TestConnectorUnopenableDSN(t *testing.T) {
	c := NewConnector(Options{DSN: "file:/nonexistent/dir/iqc.db", Logger: testutil.TestLogger(t)})

	_, err := c.Connection(testutil.TestContext(t))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConnection))

	_, again := c.Connection(testutil.TestContext(t))
	assert.Same(t, err, again)
}

func TestConnectorOpenIgnoresCallerCancellation(t *testing.T) {
	c := NewConnector(Options{Logger: testutil.TestLogger(t)})
	t.Cleanup(func() { _ = c.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	q, err := c.Connection(ctx)
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.True(t, c.Opened())

	again, err := c.Connection(context.Background())
	require.NoError(t, err)
	assert.Same(t, q, again)
}

func TestConnectorOpenGetsLiveContext(t *testing.T) {
	c := NewConnector(Options{})
	var openErr error
	c.open = func(ctx context.Context, _ Options) (*Engine, error) {
		openErr = ctx.Err()
		return nil, errors.New(errors.ErrorTypeConnection, "no engine in this test")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Connection(ctx)
	require.Error(t, err)
	assert.NoError(t, openErr)
}
