package echoform

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mazrean/formdispenser"
	"github.com/mazrean/formdispenser/content"
)

type Parser struct {
	*formdispenser.Parser
	reader io.Reader
	ctx    context.Context
}

func NewParser(c echo.Context, options ...formdispenser.Option) (*Parser, error) {
	t, err := content.ParseType(c.Request().Header.Get(echo.HeaderContentType))
	switch {
	case errors.Is(err, content.ErrMissingBoundary):
		return nil, http.ErrMissingBoundary
	case err != nil, t.Mime != echo.MIMEMultipartForm:
		return nil, http.ErrNotMultipart
	}

	return &Parser{
		Parser: formdispenser.NewParser(t.Boundary, options...),
		reader: c.Request().Body,
		ctx:    c.Request().Context(),
	}, nil
}

func (p *Parser) Parse() error {
	return p.Parser.ParseContext(p.ctx, p.reader)
}

// HTTPError converts a Parse error into an *echo.HTTPError with the status
// that fits it.
func HTTPError(err error) *echo.HTTPError {
	return echo.NewHTTPError(formdispenser.StatusCode(err), err.Error()).SetInternal(err)
}
