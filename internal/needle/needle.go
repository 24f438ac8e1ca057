// Package needle splits a chunked byte stream at every occurrence of a
// delimiter. Matching survives arbitrary chunking: a delimiter split across
// two writes is still reported as a single needle.
package needle

import (
	"bytes"
	"errors"
)

// ErrHalt may be returned by Handler.Needle to stop scanning the current
// write. Write then returns the bytes that follow the needle unscanned.
var ErrHalt = errors.New("needle: halt")

// Handler receives the events produced by a Scanner.
//
// Chunks passed to Haystack are only valid for the duration of the call.
type Handler interface {
	Haystack(chunk []byte) error
	Needle() error
}

// Scanner is a streaming Boyer-Moore-Horspool matcher.
type Scanner struct {
	needle []byte
	skip   [256]int
	// tail holds the end of the previous write that is a proper prefix of
	// the needle and may still complete into a match.
	tail []byte
}

func New(needle []byte) *Scanner {
	s := &Scanner{}
	s.SetNeedle(needle)

	return s
}

// SetNeedle replaces the delimiter. Held partial-match bytes are kept and
// are matched against the new needle on the next write.
func (s *Scanner) SetNeedle(needle []byte) {
	if len(needle) == 0 {
		panic("needle: empty needle")
	}

	s.needle = bytes.Clone(needle)

	last := len(needle) - 1
	for i := range s.skip {
		s.skip[i] = len(needle)
	}
	for i := 0; i < last; i++ {
		s.skip[needle[i]] = last - i
	}
}

// Needle returns the current delimiter.
func (s *Scanner) Needle() []byte {
	return s.needle
}

// Buffered returns the number of bytes held back as a possible partial match.
func (s *Scanner) Buffered() int {
	return len(s.tail)
}

// Write scans p, reporting haystack chunks and needles to h in stream order.
// Bytes that may be the start of a needle are held back until the next Write
// or Flush. If h.Needle returns ErrHalt the rest of the write is returned
// without being scanned.
func (s *Scanner) Write(p []byte, h Handler) ([]byte, error) {
	data := p
	if len(s.tail) > 0 {
		data = append(s.tail, p...)
		s.tail = s.tail[:0]
	}

	for {
		i := s.index(data)
		if i < 0 {
			break
		}

		if i > 0 {
			if err := h.Haystack(data[:i]); err != nil {
				return nil, err
			}
		}
		data = data[i+len(s.needle):]

		if err := h.Needle(); err != nil {
			if errors.Is(err, ErrHalt) {
				return data, nil
			}
			return nil, err
		}
	}

	k := s.partial(data)
	if n := len(data) - k; n > 0 {
		if err := h.Haystack(data[:n]); err != nil {
			return nil, err
		}
	}
	s.tail = append(s.tail[:0], data[len(data)-k:]...)

	return nil, nil
}

// Flush reports any held partial match as a final haystack chunk.
func (s *Scanner) Flush(h Handler) error {
	if len(s.tail) == 0 {
		return nil
	}

	chunk := bytes.Clone(s.tail)
	s.tail = s.tail[:0]

	return h.Haystack(chunk)
}

func (s *Scanner) index(data []byte) int {
	n := len(s.needle)
	last := n - 1
	for i := 0; i+n <= len(data); {
		c := data[i+last]
		if c == s.needle[last] && bytes.Equal(data[i:i+last], s.needle[:last]) {
			return i
		}
		i += s.skip[c]
	}

	return -1
}

// partial returns the length of the longest suffix of data that is a proper
// prefix of the needle.
func (s *Scanner) partial(data []byte) int {
	k := min(len(s.needle)-1, len(data))
	for ; k > 0; k-- {
		if bytes.Equal(data[len(data)-k:], s.needle[:k]) {
			return k
		}
	}

	return 0
}
