package formdispenser

import (
	"bytes"
	"strings"

	"github.com/mazrean/formdispenser/content"
)

// HeaderField is one header line of a part, name lower-cased.
type HeaderField struct {
	Name  string
	Value string
}

// Header holds a part's header fields in the order they first appeared.
// Names are lower-cased and values trimmed. A repeated field replaces the
// earlier value.
type Header struct {
	fields []HeaderField
}

// Get returns the value of the named field, or "" when it is absent.
func (h Header) Get(name string) string {
	v, _ := h.Lookup(name)
	return v
}

// Lookup returns the value of the named field and whether it is present.
func (h Header) Lookup(name string) (string, bool) {
	name = strings.ToLower(name)
	for _, f := range h.fields {
		if f.Name == name {
			return f.Value, true
		}
	}

	return "", false
}

// Fields returns a copy of the header fields.
func (h Header) Fields() []HeaderField {
	return append([]HeaderField(nil), h.fields...)
}

// Len returns the number of distinct fields.
func (h Header) Len() int {
	return len(h.fields)
}

// ContentType returns the value of the "Content-Type" header field.
// If there are no values associated with the key, ContentType returns "".
func (h Header) ContentType() string {
	return h.Get("content-type")
}

// Name returns the value of the "name" parameter in the "Content-Disposition" header field.
// If there are no values associated with the key, Name returns "".
func (h Header) Name() string {
	d, _ := content.ParseDisposition(h.Get("content-disposition"))
	return d.Name
}

// FileName returns the value of the "filename" parameter in the "Content-Disposition" header field.
// If there are no values associated with the key, FileName returns "".
func (h Header) FileName() string {
	d, _ := content.ParseDisposition(h.Get("content-disposition"))
	return d.FileName
}

func (h *Header) set(name, value string) {
	for i := range h.fields {
		if h.fields[i].Name == name {
			h.fields[i].Value = value
			return
		}
	}
	h.fields = append(h.fields, HeaderField{Name: name, Value: value})
}

// reservedHeaderNames are rejected as header keys.
var reservedHeaderNames = map[string]struct{}{
	"__proto__":   {},
	"constructor": {},
	"prototype":   {},
}

// headerAccumulator assembles one part's header block line by line.
type headerAccumulator struct {
	pending []byte
	header  Header
}

func (a *headerAccumulator) line(l []byte) error {
	if l[0] == ' ' || l[0] == '\t' {
		if len(a.pending) == 0 {
			return ErrHeaderContinuation
		}
		// the first white space character is replaced by a single space
		a.pending = append(a.pending, ' ')
		a.pending = append(a.pending, l[1:]...)
		return nil
	}

	if err := a.flush(); err != nil {
		return err
	}
	a.pending = append(a.pending[:0], l...)

	return nil
}

func (a *headerAccumulator) flush() error {
	if len(a.pending) == 0 {
		return nil
	}

	sep := bytes.IndexByte(a.pending, ':')
	switch {
	case sep < 0:
		return ErrHeaderColon
	case sep == 0:
		return ErrHeaderName
	}

	name := strings.ToLower(string(a.pending[:sep]))
	if _, ok := reservedHeaderNames[name]; ok {
		return ErrHeaderReserved
	}

	a.header.set(name, strings.TrimSpace(string(a.pending[sep+1:])))
	a.pending = a.pending[:0]

	return nil
}

// take flushes the pending line and hands over the finished header block.
func (a *headerAccumulator) take() (Header, error) {
	if err := a.flush(); err != nil {
		return Header{}, err
	}

	h := a.header
	a.header = Header{}

	return h, nil
}

func (a *headerAccumulator) reset() {
	a.pending = a.pending[:0]
	a.header = Header{}
}
