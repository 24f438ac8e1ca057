package content_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mazrean/formdispenser/content"
)

func TestParseType(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		value    string
		mime     string
		boundary string
		err      error
	}{
		{
			name:     "quoted boundary",
			value:    `multipart/form-data; boundary="AaB03x"`,
			mime:     "multipart/form-data",
			boundary: "AaB03x",
		},
		{
			name:     "token boundary with extra params",
			value:    `Multipart/Form-Data; boundary=AaB03x; charset=utf-8; random=foobar`,
			mime:     "multipart/form-data",
			boundary: "AaB03x",
		},
		{
			name:     "boundary with equal sign",
			value:    `multipart/form-data; boundary="AaB=03x"`,
			mime:     "multipart/form-data",
			boundary: "AaB=03x",
		},
		{
			name:  "not multipart",
			value: "application/json; charset=utf-8",
			mime:  "application/json",
		},
		{
			name:  "multipart without boundary",
			value: "multipart/form-data",
			err:   content.ErrMissingBoundary,
		},
		{
			name:  "malformed",
			value: "multipart/form-data; boundary",
			err:   content.ErrInvalidType,
		},
		{
			name:  "empty",
			value: "",
			err:   content.ErrInvalidType,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			typ, err := content.ParseType(tc.value)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.mime, typ.Mime)
			assert.Equal(t, tc.boundary, typ.Boundary)
		})
	}
}

func TestParseDisposition(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		value    string
		expected content.Disposition
		err      error
	}{
		{
			name:     "field",
			value:    `form-data; name="field1"`,
			expected: content.Disposition{Name: "field1"},
		},
		{
			name:     "file",
			value:    `form-data; name="pics"; filename="file1.txt"`,
			expected: content.Disposition{Name: "pics", FileName: "file1.txt", HasFileName: true},
		},
		{
			name:     "empty filename",
			value:    `form-data; name="file"; filename=""`,
			expected: content.Disposition{Name: "file", FileName: "", HasFileName: true},
		},
		{
			name:     "case insensitive type",
			value:    `Form-Data; Name="field"`,
			expected: content.Disposition{Name: "field"},
		},
		{
			name:     "extended filename",
			value:    `form-data; name="file"; filename*=utf-8''%E2%82%AC%20rates.txt`,
			expected: content.Disposition{Name: "file", FileName: "€ rates.txt", HasFileName: true},
		},
		{
			name:     "extended filename wins",
			value:    `form-data; name="file"; filename="fallback.txt"; filename*=UTF-8''real.txt`,
			expected: content.Disposition{Name: "file", FileName: "real.txt", HasFileName: true},
		},
		{
			name:  "missing",
			value: "  ",
			err:   content.ErrMissingDisposition,
		},
		{
			name:  "not form-data",
			value: `attachment; name="field"`,
			err:   content.ErrInvalidDisposition,
		},
		{
			name:  "missing parameters",
			value: "form-data",
			err:   content.ErrMissingParameters,
		},
		{
			name:  "missing name",
			value: `form-data; filename="file.txt"`,
			err:   content.ErrMissingName,
		},
		{
			name:  "malformed extended value",
			value: `form-data; name="file"; filename*=utf-8''%ZZ`,
			err:   content.ErrInvalidExtended,
		},
		{
			name:  "malformed parameters",
			value: `form-data; name`,
			err:   content.ErrInvalidDisposition,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			d, err := content.ParseDisposition(tc.value)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expected, d)
		})
	}
}
