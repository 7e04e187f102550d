package json

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalSortsMapKeys(t *testing.T) {
	b, err := Marshal(map[string]any{"task": "opt", "formula": "H2O"})
	require.NoError(t, err)
	assert.Equal(t, `{"formula":"H2O","task":"opt"}`, string(b))

	var out []float64
	require.NoError(t, Unmarshal([]byte(`[1595.1, 3657]`), &out))
	assert.Equal(t, []float64{1595.1, 3657}, out)
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, []string{"mol_001"}))
	assert.Equal(t, "[\"mol_001\"]\n", buf.String())
}

func TestWriteEncodeFailureLeavesWriterUntouched(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Write(&buf, func() {}))
	assert.Zero(t, buf.Len())
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestWritePropagatesWriterError(t *testing.T) {
	assert.EqualError(t, Write(brokenWriter{}, 1), "closed")
}
