package formdispenser

import (
	"errors"
	"io"

	"github.com/mazrean/formdispenser/internal/b64"
)

// Part is a file part. Reading it yields the decoded payload and io.EOF once
// the closing boundary of the part has been seen. If the body fails first,
// Read returns the body's error.
type Part struct {
	Name     string
	FileName string
	Header   Header
	// TransferEncoding is the lower-cased content-transfer-encoding, or "".
	TransferEncoding string

	r *io.PipeReader
}

func (p *Part) Read(b []byte) (int, error) {
	return p.r.Read(b)
}

// Close tells the Dispenser that the rest of the payload is not wanted. The
// remaining bytes of the part are discarded without failing the body.
func (p *Part) Close() error {
	return p.r.Close()
}

// partWriter is the Dispenser's end of a Part.
type partWriter struct {
	pw        *io.PipeWriter
	w         io.Writer
	decoder   *b64.Decoder
	discarded bool
}

func newPart(name, fileName string, header Header, encoding string) (*Part, *partWriter) {
	pr, pw := io.Pipe()

	part := &Part{
		Name:             name,
		FileName:         fileName,
		Header:           header,
		TransferEncoding: encoding,
		r:                pr,
	}

	w := &partWriter{
		pw: pw,
		w:  pw,
	}
	if encoding == "base64" {
		w.decoder = b64.NewDecoder(pw)
		w.w = w.decoder
	}

	return part, w
}

// write blocks until the reader has taken every byte.
func (w *partWriter) write(p []byte) {
	if w.discarded {
		return
	}

	if _, err := w.w.Write(p); err != nil {
		w.discard(err)
	}
}

func (w *partWriter) end() {
	if w.discarded {
		return
	}

	if w.decoder != nil {
		if err := w.decoder.Close(); err != nil {
			w.discard(err)
			return
		}
	}
	_ = w.pw.Close()
}

func (w *partWriter) fail(err error) {
	_ = w.pw.CloseWithError(err)
}

// discard stops delivery. Errors other than a closed reader, such as a
// corrupt base64 payload, are passed on to the reader.
func (w *partWriter) discard(err error) {
	w.discarded = true
	if !errors.Is(err, io.ErrClosedPipe) {
		_ = w.pw.CloseWithError(err)
	}
}
