package storage

import (
	"fmt"
	"slices"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// float32Size is the width of a raw float32.
const float32Size = 4

// encoder appends mus-encoded fields to buf.
type encoder struct {
	buf []byte
}

// next extends buf by size bytes and returns the new tail.
func (e *encoder) next(size int) []byte {
	start := len(e.buf)
	e.buf = slices.Grow(e.buf, size)[:start+size]
	return e.buf[start:]
}

func (e *encoder) string(v string) {
	ord.String.Marshal(v, e.next(ord.String.Size(v)))
}

func (e *encoder) uint64(v uint64) {
	varint.Uint64.Marshal(v, e.next(varint.Uint64.Size(v)))
}

// time stores t as Unix microseconds.
func (e *encoder) time(t time.Time) {
	v := t.UnixMicro()
	varint.Int64.Marshal(v, e.next(varint.Int64.Size(v)))
}

func (e *encoder) vector(v []float32) {
	varint.Int.Marshal(len(v), e.next(varint.Int.Size(len(v))))
	for _, f := range v {
		raw.Float32.Marshal(f, e.next(raw.Float32.Size(f)))
	}
}

// decoder reads mus-encoded fields from buf. The first failure sticks and
// later reads return zero values.
type decoder struct {
	buf []byte
	err error
}

func (d *decoder) advance(n int, err error) {
	if err != nil {
		d.err = fmt.Errorf("%w: %w", ErrSerializationFailed, err)
		return
	}
	d.buf = d.buf[n:]
}

func (d *decoder) string() string {
	if d.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(d.buf)
	d.advance(n, err)
	return v
}

func (d *decoder) uint64() uint64 {
	if d.err != nil {
		return 0
	}
	v, n, err := varint.Uint64.Unmarshal(d.buf)
	d.advance(n, err)
	return v
}

func (d *decoder) time() time.Time {
	if d.err != nil {
		return time.Time{}
	}
	v, n, err := varint.Int64.Unmarshal(d.buf)
	d.advance(n, err)
	if d.err != nil {
		return time.Time{}
	}
	return time.UnixMicro(v).UTC()
}

func (d *decoder) vector() []float32 {
	if d.err != nil {
		return nil
	}
	length, n, err := varint.Int.Unmarshal(d.buf)
	d.advance(n, err)
	if d.err != nil {
		return nil
	}
	if length < 0 || length > len(d.buf)/float32Size {
		d.err = fmt.Errorf("%w: vector length %d exceeds %d remaining bytes", ErrSerializationFailed, length, len(d.buf))
		return nil
	}
	if length == 0 {
		return nil
	}

	v := make([]float32, length)
	for i := range v {
		f, n, err := raw.Float32.Unmarshal(d.buf)
		d.advance(n, err)
		if d.err != nil {
			return nil
		}
		v[i] = f
	}
	return v
}

// finish reports the first decoding error, or trailing bytes.
func (d *decoder) finish() error {
	if d.err != nil {
		return d.err
	}
	if len(d.buf) != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrSerializationFailed, len(d.buf))
	}
	return nil
}
