package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
)

// Reader hashes everything read through it. Used to digest uploads while they
// stream to object storage.
type Reader struct {
	r io.Reader
	h hash.Hash
	n int64
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, h: sha256.New()}
}

func (d *Reader) Read(p []byte) (int, error) {
	n, err := d.r.Read(p)
	if n > 0 {
		d.h.Write(p[:n])
		d.n += int64(n)
	}
	return n, err
}

// Sum returns the hex SHA-256 of the bytes read so far.
func (d *Reader) Sum() string {
	return hex.EncodeToString(d.h.Sum(nil))
}

// N returns the number of bytes read so far.
func (d *Reader) N() int64 { return d.n }
