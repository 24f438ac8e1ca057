package formdispenser

type state int

const (
	// statePreamble lasts until the first boundary is found.
	statePreamble state = iota
	// stateBoundary waits for the end of a boundary line, which may only
	// carry white space or the closing "--".
	stateBoundary
	stateHeader
	statePayload
	stateEpilogue
	stateClosed
	// stateFailed is terminal. Writes are accepted and discarded.
	stateFailed
)

func (s state) String() string {
	switch s {
	case statePreamble:
		return "preamble"
	case stateBoundary:
		return "boundary"
	case stateHeader:
		return "header"
	case statePayload:
		return "payload"
	case stateEpilogue:
		return "epilogue"
	case stateClosed:
		return "closed"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
