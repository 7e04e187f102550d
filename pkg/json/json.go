// Package json is the dashboard's JSON codec, backed by goccy/go-json with
// pooled encode buffers.
package json

import (
	"io"

	gojson "github.com/goccy/go-json"

	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/pool"
)

// Marshal encodes v. Map keys are sorted, so equal maps encode identically.
func Marshal(v any) ([]byte, error) {
	return gojson.Marshal(v)
}

// Unmarshal decodes data into v.
func Unmarshal(data []byte, v any) error {
	return gojson.Unmarshal(data, v)
}

// Write encodes v followed by a newline to w in a single write, so a failed
// encoding leaves w untouched.
func Write(w io.Writer, v any) error {
	buf := pool.Buffers.Get()
	defer pool.Buffers.Put(buf)

	enc := gojson.NewEncoder(buf)
	if err := enc.Encode(v); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}
