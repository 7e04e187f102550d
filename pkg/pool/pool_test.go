package pool

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoolResetsAndCounts(t *testing.T) {
	p := New(func() *[]int { s := make([]int, 0, 4); return &s }, func(s *[]int) { *s = (*s)[:0] })

	s := p.Get()
	*s = append(*s, 1, 2, 3)
	assert.Equal(t, int64(1), p.Stats().InUse)
	p.Put(s)

	again := p.Get()
	assert.Empty(t, *again)
	p.Put(again)

	st := p.Stats()
	assert.Equal(t, int64(2), st.Gets)
	assert.Equal(t, int64(0), st.InUse)
	assert.GreaterOrEqual(t, st.Misses, int64(1))
}

func TestValuesCleared(t *testing.T) {
	v := Values.Get()
	*v = append(*v, "mol_001", int64(3))
	Values.Put(v)

	next := Values.Get()
	defer Values.Put(next)
	assert.Len(t, *next, 0)
}

func TestBuffersDropLarge(t *testing.T) {
	b := Buffers.Get()
	b.Write(bytes.Repeat([]byte{'x'}, maxPooledBuffer+1))
	assert.False(t, Buffers.keep(b))
	Buffers.Put(b)

	small := Buffers.Get()
	defer Buffers.Put(small)
	assert.Equal(t, 0, small.Len())
}
