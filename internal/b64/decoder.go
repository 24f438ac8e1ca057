// Package b64 decodes a base64 stream that arrives through Write calls of
// arbitrary size.
package b64

import (
	"encoding/base64"
	"io"
)

// Decoder is an io.WriteCloser that decodes standard base64 and writes the
// decoded bytes to the underlying writer. Line breaks and horizontal white
// space in the input are ignored.
type Decoder struct {
	w       io.Writer
	quantum [4]byte
	n       int
	buf     []byte
	err     error
}

func NewDecoder(w io.Writer) *Decoder {
	return &Decoder{w: w}
}

func (d *Decoder) Write(p []byte) (int, error) {
	if d.err != nil {
		return 0, d.err
	}

	src := make([]byte, 0, d.n+len(p))
	src = append(src, d.quantum[:d.n]...)
	for _, c := range p {
		switch c {
		case '\r', '\n', ' ', '\t':
			continue
		}
		src = append(src, c)
	}

	full := len(src) / 4 * 4
	d.n = copy(d.quantum[:], src[full:])

	if err := d.decode(src[:full]); err != nil {
		return 0, err
	}

	return len(p), nil
}

// Close decodes whatever is left of an unpadded final quantum. It does not
// close the underlying writer.
func (d *Decoder) Close() error {
	if d.err != nil {
		return d.err
	}
	if d.n == 0 {
		return nil
	}

	src := make([]byte, 4)
	copy(src, d.quantum[:d.n])
	for i := d.n; i < 4; i++ {
		src[i] = '='
	}
	d.n = 0

	return d.decode(src)
}

func (d *Decoder) decode(src []byte) error {
	if len(src) == 0 {
		return nil
	}

	size := base64.StdEncoding.DecodedLen(len(src))
	if cap(d.buf) < size {
		d.buf = make([]byte, size)
	}
	d.buf = d.buf[:size]

	n, err := base64.StdEncoding.Decode(d.buf, src)
	if err != nil {
		// padding may close a quantum in the middle of the stream when
		// separately encoded chunks were concatenated
		n, err = decodeQuanta(d.buf, src)
		if err != nil {
			d.err = err
			return err
		}
	}

	if _, err := d.w.Write(d.buf[:n]); err != nil {
		d.err = err
		return err
	}

	return nil
}

func decodeQuanta(dst, src []byte) (int, error) {
	n := 0
	for i := 0; i < len(src); i += 4 {
		m, err := base64.StdEncoding.Decode(dst[n:], src[i:i+4])
		if err != nil {
			return n, err
		}
		n += m
	}

	return n, nil
}
