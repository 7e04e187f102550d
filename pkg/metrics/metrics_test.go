package metrics

import (
	"errors"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTimerObserveQuery(t *testing.T) {
	before := promtest.CollectAndCount(QueryDuration)

	timer := NewTimer("metrics_test_op")
	time.Sleep(time.Millisecond)
	d := timer.ObserveQuery(nil)
	assert.GreaterOrEqual(t, d, time.Millisecond)

	NewTimer("metrics_test_op").ObserveQuery(errors.New("boom"))

	// one series per (operation, status) pair
	assert.Equal(t, before+2, promtest.CollectAndCount(QueryDuration))
}

func TestCacheLookupsCounter(t *testing.T) {
	c := CacheLookups.WithLabelValues("metrics_test", CacheHit)
	start := promtest.ToFloat64(c)
	c.Inc()
	assert.Equal(t, start+1, promtest.ToFloat64(c))
}
