package ginform

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/mazrean/formdispenser"
	"github.com/mazrean/formdispenser/content"
)

type Parser struct {
	*formdispenser.Parser
	reader io.Reader
	ctx    context.Context
}

func NewParser(c *gin.Context, options ...formdispenser.Option) (*Parser, error) {
	t, err := content.ParseType(c.GetHeader("Content-Type"))
	switch {
	case errors.Is(err, content.ErrMissingBoundary):
		return nil, http.ErrMissingBoundary
	case err != nil, t.Mime != binding.MIMEMultipartPOSTForm:
		return nil, http.ErrNotMultipart
	}

	return &Parser{
		Parser: formdispenser.NewParser(t.Boundary, options...),
		reader: c.Request.Body,
		ctx:    c.Request.Context(),
	}, nil
}

func (p *Parser) Parse() error {
	return p.Parser.ParseContext(p.ctx, p.reader)
}

// AbortWithError aborts the request with the status that fits a Parse error.
func AbortWithError(c *gin.Context, err error) {
	_ = c.AbortWithError(formdispenser.StatusCode(err), err)
}
