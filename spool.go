package formdispenser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

type streamParam struct {
	r io.Reader
	h Header
}

type spooledParam struct {
	content io.ReadCloser
	header  Header
}

// spooler keeps the content of parts whose hook is still waiting for its
// required parts. Small contents stay in memory, larger ones share a single
// temporary file.
type spooler struct {
	config   *config
	offset   int64
	file     *os.File
	filePath string
}

func newSpooler(c *config) *spooler {
	return &spooler{
		config: c,
	}
}

var bufPool = sync.Pool{
	New: func() any {
		return new(bytes.Buffer)
	},
}

func (sp *spooler) spool(param *streamParam) (*spooledParam, error) {
	buf, ok := bufPool.Get().(*bytes.Buffer)
	if !ok {
		buf = new(bytes.Buffer)
	}
	buf.Reset()

	memLimit := sp.memLimit()
	var (
		n   int64
		err error
	)
	if memLimit == Unlimited {
		n, err = io.Copy(buf, param.r)
	} else {
		n, err = io.CopyN(buf, param.r, int64(memLimit)+1)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		bufPool.Put(buf)
		return nil, fmt.Errorf("failed to copy: %w", err)
	}

	if memLimit != Unlimited && DataSize(n) > memLimit {
		content, err := sp.spill(buf, param.r)
		bufPool.Put(buf)
		if err != nil {
			return nil, err
		}

		return &spooledParam{
			content: content,
			header:  param.h,
		}, nil
	}

	size := DataSize(buf.Len())
	sp.reserve(size)

	return &spooledParam{
		content: customReadCloser{
			Reader: buf,
			closeFunc: func() error {
				bufPool.Put(buf)
				sp.reserve(-size)
				return nil
			},
		},
		header: param.h,
	}, nil
}

// spill appends the buffered head and the rest of r to the temporary file.
func (sp *spooler) spill(head *bytes.Buffer, r io.Reader) (io.ReadCloser, error) {
	if sp.file == nil {
		f, err := os.CreateTemp("", "formdispenser-")
		if err != nil {
			return nil, fmt.Errorf("failed to create temp file: %w", err)
		}
		sp.file = f
		sp.filePath = f.Name()
	}

	headSize, err := io.Copy(sp.file, head)
	if err != nil {
		return nil, fmt.Errorf("failed to write: %w", err)
	}

	restSize, err := io.Copy(sp.file, r)
	if err != nil {
		return nil, fmt.Errorf("failed to copy: %w", err)
	}

	size := headSize + restSize
	content := io.NopCloser(io.NewSectionReader(sp.file, sp.offset, size))
	sp.offset += size

	return content, nil
}

func (sp *spooler) memLimit() DataSize {
	switch {
	case sp.config.maxMemSize == Unlimited:
		return sp.config.maxMemFileSize
	case sp.config.maxMemFileSize == Unlimited:
		return sp.config.maxMemSize
	default:
		return min(sp.config.maxMemFileSize, sp.config.maxMemSize)
	}
}

// reserve takes size bytes from the memory budgets, or gives them back when
// size is negative.
func (sp *spooler) reserve(size DataSize) {
	if sp.config.maxMemSize != Unlimited {
		sp.config.maxMemSize -= size
	}
	if sp.config.maxMemFileSize != Unlimited {
		sp.config.maxMemFileSize -= size
	}
}

func (sp *spooler) Close() error {
	if sp.file == nil {
		return nil
	}

	closeErr := sp.file.Close()
	removeErr := os.Remove(sp.filePath)

	return errors.Join(closeErr, removeErr)
}

// gateHook runs a registered hook for the gate. Replay closes the spooled
// content, which gives its memory back to the budget.
type gateHook streamHook

func (h gateHook) Stream(param *streamParam) error {
	return h.fn(param.r, param.h)
}

func (h gateHook) Replay(param *spooledParam) error {
	defer param.content.Close()

	return h.fn(param.content, param.header)
}

func (h gateHook) Requires() []string {
	return h.requireParts
}

type customReadCloser struct {
	io.Reader
	closeFunc func() error
}

func (cc customReadCloser) Close() error {
	return cc.closeFunc()
}
