// Package content parses the header values that frame a multipart/form-data
// body: the request Content-Type and each part's Content-Disposition.
package content

import (
	"errors"
	"fmt"
	"mime"
	"strings"
)

var (
	ErrInvalidType     = errors.New("invalid content-type header")
	ErrMissingBoundary = errors.New("invalid content-type header: multipart missing boundary")

	ErrMissingDisposition = errors.New("missing content-disposition header")
	ErrInvalidDisposition = errors.New("invalid content-disposition header format")
	ErrMissingParameters  = errors.New("invalid content-disposition header missing parameters")
	ErrMissingName        = errors.New("invalid content-disposition header missing name")
	ErrInvalidExtended    = errors.New("invalid content-disposition header format includes invalid parameters")
)

// Type is a parsed Content-Type header value.
type Type struct {
	Mime     string
	Boundary string
	Params   map[string]string
}

// ParseType parses a Content-Type value. A multipart/* type must carry a
// boundary parameter.
func ParseType(v string) (Type, error) {
	mediaType, params, err := mime.ParseMediaType(v)
	if err != nil {
		return Type{}, fmt.Errorf("%w: %w", ErrInvalidType, err)
	}

	t := Type{
		Mime:   mediaType,
		Params: params,
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary, ok := params["boundary"]
		if !ok || boundary == "" {
			return Type{}, ErrMissingBoundary
		}
		t.Boundary = boundary
	}

	return t, nil
}

// Disposition is a parsed form-data Content-Disposition header value.
type Disposition struct {
	Name     string
	FileName string
	// HasFileName reports whether a filename parameter was present, even an
	// empty one. It separates file parts from plain fields.
	HasFileName bool
}

// ParseDisposition parses a form-data Content-Disposition value. Both the
// quoted filename and the RFC 5987 filename* forms are understood; when both
// are given the extended one wins.
func ParseDisposition(v string) (Disposition, error) {
	if strings.TrimSpace(v) == "" {
		return Disposition{}, ErrMissingDisposition
	}

	dispositionType, params, err := mime.ParseMediaType(v)
	if err != nil {
		if errors.Is(err, mime.ErrInvalidMediaParameter) && hasExtendedFileName(v) {
			return Disposition{}, fmt.Errorf("%w: %w", ErrInvalidExtended, err)
		}
		return Disposition{}, fmt.Errorf("%w: %w", ErrInvalidDisposition, err)
	}
	if dispositionType != "form-data" {
		return Disposition{}, ErrInvalidDisposition
	}
	if len(params) == 0 {
		return Disposition{}, ErrMissingParameters
	}

	name, ok := params["name"]
	if !ok {
		return Disposition{}, ErrMissingName
	}

	fileName, hasFileName := params["filename"]
	if !hasFileName && hasExtendedFileName(v) {
		// mime drops extended values it cannot decode
		return Disposition{}, ErrInvalidExtended
	}

	return Disposition{
		Name:        name,
		FileName:    fileName,
		HasFileName: hasFileName,
	}, nil
}

func hasExtendedFileName(v string) bool {
	return strings.Contains(strings.ToLower(v), "filename*")
}
