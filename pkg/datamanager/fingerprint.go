package datamanager

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"
)

// EmptyFingerprint identifies the empty source file set.
var EmptyFingerprint = fingerprint(nil)

// fingerprint hashes the ordered (path, size, mtime) triples of paths. A path
// that cannot be stat-ed contributes a missing marker instead.
func fingerprint(paths []string) string {
	d := xxhash.New()
	var buf [8]byte
	for _, p := range paths {
		_, _ = d.WriteString(p)
		_, _ = d.Write([]byte{0})

		info, err := os.Stat(p)
		if err != nil {
			_, _ = d.WriteString("missing")
			_, _ = d.Write([]byte{0})
			continue
		}
		binary.LittleEndian.PutUint64(buf[:], uint64(info.Size()))
		_, _ = d.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], uint64(info.ModTime().UnixNano()))
		_, _ = d.Write(buf[:])
	}
	return fmt.Sprintf("%016x", d.Sum64())
}
