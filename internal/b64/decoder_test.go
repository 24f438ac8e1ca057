package b64

import (
	"bytes"
	"encoding/base64"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeChunks(t *testing.T, chunks ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	d := NewDecoder(&out)
	for _, chunk := range chunks {
		if _, err := d.Write([]byte(chunk)); err != nil {
			return out.String(), err
		}
	}
	if err := d.Close(); err != nil {
		return out.String(), err
	}

	return out.String(), nil
}

func TestDecoder(t *testing.T) {
	t.Parallel()

	plain := "this is the content of the file"
	encoded := base64.StdEncoding.EncodeToString([]byte(plain))

	t.Run("single write", func(t *testing.T) {
		t.Parallel()

		got, err := decodeChunks(t, encoded)
		require.NoError(t, err)
		assert.Equal(t, plain, got)
	})

	t.Run("byte writes", func(t *testing.T) {
		t.Parallel()

		got, err := decodeChunks(t, strings.Split(encoded, "")...)
		require.NoError(t, err)
		assert.Equal(t, plain, got)
	})

	t.Run("line breaks", func(t *testing.T) {
		t.Parallel()

		wrapped := encoded[:10] + "\r\n" + encoded[10:20] + "\n \t" + encoded[20:]
		got, err := decodeChunks(t, wrapped)
		require.NoError(t, err)
		assert.Equal(t, plain, got)
	})

	t.Run("unpadded tail", func(t *testing.T) {
		t.Parallel()

		got, err := decodeChunks(t, base64.RawStdEncoding.EncodeToString([]byte("ab")))
		require.NoError(t, err)
		assert.Equal(t, "ab", got)
	})

	t.Run("concatenated padded chunks", func(t *testing.T) {
		t.Parallel()

		got, err := decodeChunks(t, base64.StdEncoding.EncodeToString([]byte("a"))+base64.StdEncoding.EncodeToString([]byte("bcd")))
		require.NoError(t, err)
		assert.Equal(t, "abcd", got)
	})

	t.Run("corrupt input", func(t *testing.T) {
		t.Parallel()

		_, err := decodeChunks(t, "ab*d")
		var corrupt base64.CorruptInputError
		assert.ErrorAs(t, err, &corrupt)
	})
}

func TestDecoderWriteError(t *testing.T) {
	t.Parallel()

	d := NewDecoder(errWriter{})
	_, err := d.Write([]byte("YWJj"))
	require.ErrorIs(t, err, io.ErrClosedPipe)

	// the error is sticky
	_, err = d.Write([]byte("YWJj"))
	assert.ErrorIs(t, err, io.ErrClosedPipe)
	assert.ErrorIs(t, d.Close(), io.ErrClosedPipe)
}

type errWriter struct{}

func (errWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }
