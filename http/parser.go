package httpform

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/mazrean/formdispenser"
	"github.com/mazrean/formdispenser/content"
)

type Parser struct {
	*formdispenser.Parser
	reader io.Reader
	ctx    context.Context
}

func NewParser(req *http.Request, options ...formdispenser.Option) (*Parser, error) {
	boundary, err := formBoundary(req.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}

	return &Parser{
		Parser: formdispenser.NewParser(boundary, options...),
		reader: req.Body,
		ctx:    req.Context(),
	}, nil
}

// Parse parses the request body. It stops when the request context is done.
func (p *Parser) Parse() error {
	return p.Parser.ParseContext(p.ctx, p.reader)
}

func formBoundary(contentType string) (string, error) {
	t, err := content.ParseType(contentType)
	switch {
	case errors.Is(err, content.ErrMissingBoundary):
		return "", http.ErrMissingBoundary
	case err != nil, t.Mime != "multipart/form-data":
		return "", http.ErrNotMultipart
	}

	return t.Boundary, nil
}
