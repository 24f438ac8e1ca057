package formdispenser

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/mazrean/formdispenser/content"
)

// field is the field whose value is being collected in held.
type field struct {
	name   string
	header Header
}

// dispatch turns a finished header block into a field or a part. A part is
// emitted before any of its payload so the consumer can start reading.
func (d *Dispenser) dispatch() error {
	header, err := d.headers.take()
	if err != nil {
		return err
	}

	disposition, err := content.ParseDisposition(header.Get("content-disposition"))
	if err != nil {
		return wrapError(ErrDisposition, err)
	}

	if !disposition.HasFileName {
		d.field = &field{
			name:   disposition.Name,
			header: header,
		}
		return nil
	}

	encoding, err := transferEncoding(header.Get("content-transfer-encoding"))
	if err != nil {
		return err
	}

	part, w := newPart(disposition.Name, disposition.FileName, header, encoding)
	d.part = w

	d.logger.Debug("part opened",
		slog.String("name", part.Name),
		slog.String("filename", part.FileName),
		slog.String("encoding", encoding),
	)
	d.emit(Event{
		Kind:   EventPart,
		Name:   part.Name,
		Header: header,
		Part:   part,
	})

	return nil
}

func transferEncoding(v string) (string, error) {
	encoding := strings.ToLower(strings.TrimSpace(v))
	switch encoding {
	case "", "binary", "7bit", "8bit", "base64":
		return encoding, nil
	default:
		return "", wrapError(ErrTransferEncoding, fmt.Errorf("unsupported encoding %q", v))
	}
}

// endPart ends the open part stream or emits the collected field.
func (d *Dispenser) endPart() {
	switch {
	case d.part != nil:
		d.part.end()
		d.part = nil
	case d.field != nil:
		d.emit(Event{
			Kind:   EventField,
			Name:   d.field.name,
			Value:  string(d.held),
			Header: d.field.header,
		})
		d.field = nil
		d.held = d.held[:0]
	}
}
