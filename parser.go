package formdispenser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mazrean/formdispenser/internal/gate"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrTooManyHeaders is returned when the headers are more than MaxHeaders.
	ErrTooManyHeaders = errors.New("too many headers")
	// ErrTooLargeForm is returned when the form is too large for the parser to handle within the memory limit.
	ErrTooLargeForm = errors.New("too large form")
)

// Parser collects the fields of a multipart/form-data body and streams the
// parts that have a registered hook.
type Parser struct {
	boundary string
	valueMap map[string][]Value
	hookMap  map[string]streamHook
	preamble string
	epilogue string
	config
}

func NewParser(boundary string, options ...Option) *Parser {
	c := parserConfig()
	for _, opt := range options {
		opt(&c)
	}

	return &Parser{
		boundary: boundary,
		valueMap: make(map[string][]Value),
		hookMap:  make(map[string]streamHook),
		config:   c,
	}
}

// Parse parses the multipart form from r.
func (p *Parser) Parse(r io.Reader) error {
	return p.ParseContext(context.Background(), r)
}

// ParseContext parses the multipart form from r. Cancelling ctx aborts the
// body; ParseContext returns once every started hook has returned.
func (p *Parser) ParseContext(ctx context.Context, r io.Reader) (err error) {
	sp := newSpooler(&p.config)
	defer func() {
		// capture the error of Close()
		if closeErr := sp.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	hooks := make(map[string]gate.Hook[string, *streamParam, *spooledParam], len(p.hookMap))
	for name, hook := range p.hookMap {
		hooks[name] = gateHook(hook)
	}
	g := gate.New(hooks, sp.spool)

	err = p.parse(ctx, r, g)

	for name, n := range g.Pending() {
		p.logger.Debug("hook requirements not met",
			slog.String("name", name),
			slog.Int("skipped", n),
		)
	}

	return err
}

func (p *Parser) parse(ctx context.Context, r io.Reader, g gate.IGate[string, *streamParam, *spooledParam]) error {
	eg, ctx := errgroup.WithContext(ctx)

	events := make(chan Event)
	d, err := New(p.boundary,
		WithMaxParts(p.maxParts),
		WithMaxBytes(p.maxBytes),
		WithLogger(p.logger),
		WithSink(chanSink{ctx: ctx, events: events}),
	)
	if err != nil {
		return err
	}

	eg.Go(func() error {
		defer close(events)
		return p.pump(ctx, r, d)
	})
	eg.Go(func() error {
		return p.consume(ctx, events, g)
	})

	return eg.Wait()
}

// pump copies the body into the Dispenser.
func (p *Parser) pump(ctx context.Context, r io.Reader, d *Dispenser) error {
	buf := make([]byte, p.readSize)
	for {
		if err := ctx.Err(); err != nil {
			return d.Abort(err)
		}

		n, err := r.Read(buf)
		if n > 0 {
			if _, err := d.Write(buf[:n]); err != nil {
				return err
			}
		}

		switch {
		case errors.Is(err, io.EOF):
			return d.Close()
		case err != nil:
			return d.Abort(err)
		}
	}
}

func (p *Parser) consume(ctx context.Context, events <-chan Event, g gate.IGate[string, *streamParam, *spooledParam]) error {
	maxHeaders := p.maxHeaders
	for ev := range events {
		switch ev.Kind {
		case EventPreamble:
			p.preamble = ev.Value
		case EventEpilogue:
			p.epilogue = ev.Value
		case EventError:
			return ev.Err
		case EventClose:
			return nil
		case EventField, EventPart:
			if maxHeaders != Unlimited {
				if maxHeaders < ev.Header.Len() {
					closePart(ev)
					return ErrTooManyHeaders
				}
				maxHeaders -= ev.Header.Len()
			}

			err := p.handle(ev, g)
			closePart(ev)
			if err != nil {
				return err
			}

			if err := g.Release(ev.Name); err != nil {
				return fmt.Errorf("failed to run satisfied hook: %w", err)
			}
		}
	}

	// the pump stops without a terminal event only when ctx is done
	return ctx.Err()
}

func (p *Parser) handle(ev Event, g gate.IGate[string, *streamParam, *spooledParam]) error {
	var r io.Reader
	if ev.Part != nil {
		r = ev.Part
	} else {
		r = strings.NewReader(ev.Value)
	}

	if g.Has(ev.Name) {
		ran, err := g.Pass(ev.Name, &streamParam{
			r: r,
			h: ev.Header,
		})
		if err != nil {
			return fmt.Errorf("failed to run or set hook: %w", err)
		}
		p.logger.Debug("hook", slog.String("name", ev.Name), slog.Bool("ran", ran))

		return nil
	}

	if exceeds(DataSize(len(ev.Name)), p.maxMemSize) {
		return ErrTooLargeForm
	}
	p.spend(DataSize(len(ev.Name)))

	b := new(bytes.Buffer)
	if p.maxMemSize == Unlimited {
		if _, err := io.Copy(b, r); err != nil {
			return fmt.Errorf("failed to copy part: %w", err)
		}
	} else {
		n, err := io.CopyN(b, r, int64(p.maxMemSize)+1)
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to copy part: %w", err)
		}
		if DataSize(n) > p.maxMemSize {
			return ErrTooLargeForm
		}
	}
	p.spend(DataSize(b.Len()))

	p.valueMap[ev.Name] = append(p.valueMap[ev.Name], Value{
		content: b.Bytes(),
		header:  ev.Header,
	})

	return nil
}

func (p *Parser) spend(n DataSize) {
	if p.maxMemSize != Unlimited {
		p.maxMemSize -= n
	}
}

func closePart(ev Event) {
	if ev.Part != nil {
		_ = ev.Part.Close()
	}
}

// chanSink hands events from the pump to the consumer.
type chanSink struct {
	ctx    context.Context
	events chan<- Event
}

// Dispatch drops the event once the consumer is gone. A dropped part is
// closed so the Dispenser discards its payload.
func (s chanSink) Dispatch(ev Event) {
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
		closePart(ev)
	}
}
