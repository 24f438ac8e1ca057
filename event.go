package formdispenser

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -source=$GOFILE -destination=internal/mock/$GOFILE -package=mock

type EventKind int

const (
	EventPreamble EventKind = iota
	EventField
	EventPart
	EventEpilogue
	EventClose
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventPreamble:
		return "preamble"
	case EventField:
		return "field"
	case EventPart:
		return "part"
	case EventEpilogue:
		return "epilogue"
	case EventClose:
		return "close"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one unit decoded from a multipart body.
//
//   - EventPreamble, EventEpilogue: Value holds the text.
//   - EventField: Name, Value and Header describe the field.
//   - EventPart: Name, Header and Part describe the file part; Part streams
//     its payload.
//   - EventError: Err holds the terminal error.
type Event struct {
	Kind   EventKind
	Name   string
	Value  string
	Header Header
	Part   *Part
	Err    error
}

// Sink receives the events of a Dispenser in body order. Exactly one
// EventClose or EventError ends the sequence.
//
// Dispatch runs on the goroutine that writes to the Dispenser. The payload of
// a Part is written after Dispatch returns, so the part must be read or closed
// by another goroutine or the writer blocks.
type Sink interface {
	Dispatch(ev Event)
}

type SinkFunc func(ev Event)

func (f SinkFunc) Dispatch(ev Event) {
	f(ev)
}

// discardSink drops every event and closes every part.
type discardSink struct{}

func (discardSink) Dispatch(ev Event) {
	if ev.Part != nil {
		_ = ev.Part.Close()
	}
}
