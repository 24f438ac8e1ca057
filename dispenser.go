package formdispenser

import (
	"bytes"
	"log/slog"

	"github.com/mazrean/formdispenser/internal/needle"
)

/*
RFC 2046 (http://tools.ietf.org/html/rfc2046)

multipart-body = [preamble CRLF]
                 dash-boundary *( SPACE / HTAB ) CRLF body-part
                 *( CRLF dash-boundary *( SPACE / HTAB ) CRLF body-part )
                 CRLF dash-boundary "--" *( SPACE / HTAB )
                 [CRLF epilogue]

dash-boundary  = "--" boundary
body-part      = MIME-part-headers [CRLF *OCTET]
*/

var crlf = []byte("\r\n")

// Dispenser decodes a multipart/form-data body written to it in chunks of
// any size and dispatches preamble, fields, file parts and epilogue to its
// Sink.
//
// A Dispenser is not safe for concurrent use. A Sink may call Write, Close
// and Abort from within Dispatch; nested writes are queued and processed in
// order once the current write returns from the Sink. The epilogue and close
// events of Close are dispatched after the Dispenser has closed, so calls
// made from them see a closed Dispenser.
type Dispenser struct {
	boundary string
	state    state
	err      error

	parts   *needle.Scanner
	lines   *needle.Scanner
	held    []byte
	headers headerAccumulator
	field   *field
	part    *partWriter

	bytes    int64
	count    int
	maxBytes DataSize
	maxParts int

	sink   Sink
	logger *slog.Logger

	writing      bool
	queue        [][]byte
	closePending bool
}

// New returns a Dispenser for the given boundary, the value of the boundary
// parameter of the request's Content-Type.
func New(boundary string, options ...Option) (*Dispenser, error) {
	if boundary == "" {
		return nil, ErrEmptyBoundary
	}

	c := dispenserConfig()
	for _, opt := range options {
		opt(&c)
	}

	sink := c.sink
	if sink == nil {
		sink = discardSink{}
	}

	return &Dispenser{
		boundary: boundary,
		state:    statePreamble,
		// CRLF before the first boundary is optional
		parts:    needle.New([]byte("--" + boundary)),
		lines:    needle.New(crlf),
		maxBytes: c.maxBytes,
		maxParts: c.maxParts,
		sink:     sink,
		logger:   c.logger,
	}, nil
}

// Write feeds the next chunk of the body. It returns once every payload byte
// of the chunk has been taken by the reader of its Part.
//
// The write that fails the body returns the error. Later writes are discarded
// and report success; Err returns the error.
func (d *Dispenser) Write(p []byte) (int, error) {
	switch d.state {
	case stateFailed:
		return len(p), nil
	case stateClosed:
		return 0, ErrClosed
	}

	if d.writing {
		d.queue = append(d.queue, bytes.Clone(p))
		return len(p), nil
	}

	d.writing = true
	err := d.write(p)
	for err == nil && len(d.queue) > 0 {
		next := d.queue[0]
		d.queue = d.queue[1:]
		err = d.write(next)
	}
	d.queue = nil
	d.writing = false

	if err != nil {
		return 0, err
	}

	if d.closePending {
		d.closePending = false
		if err := d.Close(); err != nil {
			return len(p), err
		}
	}

	return len(p), nil
}

func (d *Dispenser) write(p []byte) error {
	if d.state == stateFailed {
		return nil
	}

	d.bytes += int64(len(p))
	if exceeds(DataSize(d.bytes), d.maxBytes) {
		return d.fail(ErrTooLarge)
	}

	if _, err := d.parts.Write(p, boundaryHandler{d}); err != nil {
		return d.fail(err)
	}

	return nil
}

// Close signals the end of the body. The last part must have been closed by
// the final boundary. Close returns the terminal error, if any, and may be
// called more than once.
func (d *Dispenser) Close() error {
	switch d.state {
	case stateFailed:
		return d.err
	case stateClosed:
		return nil
	}

	if d.writing {
		d.closePending = true
		return nil
	}

	// the boundary scan must finish before the line scan so that trailing
	// header or boundary text is seen in order
	if err := d.parts.Flush(boundaryHandler{d}); err != nil {
		return d.fail(err)
	}
	if err := d.lines.Flush(lineHandler{d}); err != nil {
		return d.fail(err)
	}

	var epilogue []byte
	switch d.state {
	case stateEpilogue:
		epilogue, d.held = d.held, nil
	case stateBoundary:
		if len(d.held) == 0 {
			return d.fail(ErrMissingEndBoundary)
		}
		if string(d.held) != "--" {
			return d.fail(ErrBoundaryTrailerAtEnd)
		}
	case stateFailed:
		return d.err
	default:
		return d.fail(ErrIncomplete)
	}

	// closed before any dispatch so a Sink calling Close gets nil
	d.state = stateClosed
	if len(epilogue) > 0 {
		d.sink.Dispatch(Event{Kind: EventEpilogue, Value: string(epilogue)})
	}
	d.logger.Debug("multipart body closed", slog.Int("parts", d.count), slog.Int64("bytes", d.bytes))
	d.sink.Dispatch(Event{Kind: EventClose})

	return nil
}

// Abort fails the body because its source failed. A nil cause reports a
// client abort. Abort has no effect once the body has closed or failed.
func (d *Dispenser) Abort(cause error) error {
	switch d.state {
	case stateFailed:
		return d.err
	case stateClosed:
		return nil
	}

	if cause == nil {
		return d.fail(ErrAborted)
	}

	return d.fail(wrapError(ErrAborted, cause))
}

// Err returns the terminal error, or nil.
func (d *Dispenser) Err() error {
	return d.err
}

// BytesWritten returns the number of body bytes received so far.
func (d *Dispenser) BytesWritten() int64 {
	return d.bytes
}

func (d *Dispenser) fail(err error) error {
	if d.state == stateFailed {
		return d.err
	}

	d.err = err
	d.logger.Debug("multipart body failed",
		slog.String("state", d.state.String()),
		slog.Any("error", err),
	)
	d.state = stateFailed

	if d.part != nil {
		d.part.fail(err)
		d.part = nil
	}
	d.field = nil
	d.held = nil
	d.headers.reset()

	d.sink.Dispatch(Event{Kind: EventError, Err: err})

	return err
}

func (d *Dispenser) emit(ev Event) {
	if d.state == stateFailed {
		return
	}

	d.sink.Dispatch(ev)
}

// boundaryHandler receives the segments between boundaries.
type boundaryHandler struct {
	d *Dispenser
}

func (h boundaryHandler) Haystack(chunk []byte) error {
	d := h.d

	switch d.state {
	case stateFailed:
		return d.err
	case statePreamble:
		d.held = append(d.held, chunk...)
	case statePayload:
		d.payload(chunk)
	default:
		// boundary line, headers and epilogue go through the line scan
		rest, err := d.lines.Write(chunk, lineHandler{d})
		if err != nil {
			return err
		}
		if len(rest) > 0 {
			d.payload(rest)
		}
	}

	return nil
}

func (h boundaryHandler) Needle() error {
	d := h.d
	if d.state == stateFailed {
		return d.err
	}

	if err := d.lines.Flush(lineHandler{d}); err != nil {
		return err
	}

	if d.state == statePreamble {
		if len(d.held) > 0 {
			if !bytes.HasSuffix(d.held, crlf) {
				return ErrPreambleTerminator
			}

			if preamble := d.held[:len(d.held)-len(crlf)]; len(preamble) > 0 {
				d.emit(Event{Kind: EventPreamble, Value: string(preamble)})
			}
			d.held = d.held[:0]
		}

		// every later boundary starts on a new line
		d.parts.SetNeedle([]byte("\r\n--" + d.boundary))
	} else {
		d.count++
		if exceeds(d.count, d.maxParts) {
			return ErrTooManyParts
		}
	}

	if d.state == stateHeader {
		// the header block never ended, the part is dropped
		d.headers.reset()
		d.held = d.held[:0]
	}

	d.state = stateBoundary
	d.endPart()

	return nil
}

// payload routes part content: file bytes to the part stream, field bytes to
// held.
func (d *Dispenser) payload(chunk []byte) {
	if d.part != nil {
		d.part.write(chunk)
		return
	}

	d.held = append(d.held, chunk...)
}

// lineHandler receives the CRLF separated lines of the boundary line, the
// header block and the epilogue.
type lineHandler struct {
	d *Dispenser
}

func (h lineHandler) Haystack(chunk []byte) error {
	d := h.d
	if d.state == stateFailed {
		return d.err
	}

	d.held = append(d.held, chunk...)

	return nil
}

func (h lineHandler) Needle() error {
	d := h.d

	switch d.state {
	case stateFailed:
		return d.err
	case stateBoundary:
		trailer := stripHorizontalSpace(d.held)
		d.held = d.held[:0]

		switch string(trailer) {
		case "":
			d.state = stateHeader
		case "--":
			d.state = stateEpilogue
		default:
			return ErrBoundaryTrailer
		}
	case stateHeader:
		if len(d.held) > 0 {
			err := d.headers.line(d.held)
			d.held = d.held[:0]
			return err
		}

		// an empty line ends the header block
		d.state = statePayload
		if err := d.dispatch(); err != nil {
			return err
		}

		// the rest of the segment is payload
		return needle.ErrHalt
	default:
		d.held = append(d.held, crlf...)
	}

	return nil
}

func stripHorizontalSpace(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		if c != ' ' && c != '\t' {
			out = append(out, c)
		}
	}

	return out
}
