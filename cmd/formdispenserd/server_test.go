package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mazrean/formdispenser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type formFile struct {
	field, name, content string
}

func newForm(t *testing.T, fields map[string]string, files []formFile) (string, []byte) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, value := range fields {
		require.NoError(t, mw.WriteField(name, value))
	}
	for _, f := range files {
		w, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = io.WriteString(w, f.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	return mw.FormDataContentType(), buf.Bytes()
}

func newServer(t *testing.T, options ...OptionFunc) (*Server, string) {
	t.Helper()

	dir := t.TempDir()
	s, err := NewServer("127.0.0.1:0", dir, options...)
	require.NoError(t, err)

	return s, dir
}

func upload(s *Server, contentType string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	return rec
}

func storedFiles(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}

	return names
}

func TestServer_Upload(t *testing.T) {
	t.Parallel()

	s, dir := newServer(t)

	contentType, body := newForm(t,
		map[string]string{"name": "mazrean"},
		[]formFile{
			{field: "icon", name: "icon.png", content: "icon contents"},
			{field: "doc", name: "../../etc/passwd", content: "not a passwd"},
		},
	)

	rec := upload(s, contentType, bytes.NewReader(body))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res uploadResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))

	assert.Equal(t, map[string][]string{"name": {"mazrean"}}, res.Fields)
	require.Len(t, res.Files, 2)
	assert.Len(t, storedFiles(t, dir), 2)

	contents := map[string]string{}
	for _, f := range res.Files {
		assert.True(t, strings.HasPrefix(f.Path, "/files/"), f.Path)
		assert.NotContains(t, strings.TrimPrefix(f.Path, "/files/"), "/")

		b, err := os.ReadFile(filepath.Join(dir, filepath.Base(f.Path)))
		require.NoError(t, err)
		assert.Equal(t, int64(len(b)), f.Size)
		contents[f.Field] = string(b)

		req := httptest.NewRequest(http.MethodGet, f.Path, nil)
		get := httptest.NewRecorder()
		s.ServeHTTP(get, req)
		assert.Equal(t, http.StatusOK, get.Code)
		assert.Equal(t, string(b), get.Body.String())
	}
	assert.Equal(t, map[string]string{
		"icon": "icon contents",
		"doc":  "not a passwd",
	}, contents)
}

func TestServer_UploadPreambleEpilogue(t *testing.T) {
	t.Parallel()

	s, _ := newServer(t)

	body := strings.ReplaceAll(`hello
--b
Content-Disposition: form-data; name="a"

1
--b--
bye`, "\n", "\r\n")

	rec := upload(s, "multipart/form-data; boundary=b", strings.NewReader(body))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res uploadResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "hello", res.Preamble)
	assert.Equal(t, "bye", res.Epilogue)
	assert.Equal(t, map[string][]string{"a": {"1"}}, res.Fields)
	assert.Empty(t, res.Files)
}

func TestServer_UploadErrors(t *testing.T) {
	t.Parallel()

	contentType, body := newForm(t,
		map[string]string{"name": "mazrean"},
		[]formFile{
			{field: "icon", name: "icon.png", content: strings.Repeat("x", 1024)},
		},
	)

	tests := []struct {
		description string
		options     []OptionFunc
		contentType string
		body        []byte
		status      int
	}{
		{
			description: "not multipart",
			contentType: "application/json",
			body:        []byte(`{}`),
			status:      http.StatusBadRequest,
		},
		{
			description: "missing boundary",
			contentType: "multipart/form-data",
			body:        body,
			status:      http.StatusBadRequest,
		},
		{
			description: "missing end boundary",
			contentType: contentType,
			body:        body[:len(body)-len("--\r\n")-30],
			status:      http.StatusBadRequest,
		},
		{
			description: "body too large",
			options:     []OptionFunc{WithMaxBytes(formdispenser.DataSize(len(body) - 1))},
			contentType: contentType,
			body:        body,
			status:      http.StatusRequestEntityTooLarge,
		},
		{
			description: "too many parts",
			options:     []OptionFunc{WithMaxParts(1)},
			contentType: contentType,
			body:        body,
			status:      http.StatusRequestEntityTooLarge,
		},
		{
			description: "file too large",
			options:     []OptionFunc{WithMaxFileSize(1023)},
			contentType: contentType,
			body:        body,
			status:      http.StatusRequestEntityTooLarge,
		},
	}

	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			t.Parallel()

			s, dir := newServer(t, test.options...)

			rec := upload(s, test.contentType, bytes.NewReader(test.body))
			assert.Equal(t, test.status, rec.Code, rec.Body.String())
			assert.Empty(t, storedFiles(t, dir))
		})
	}
}

func TestServer_UploadFileSizeLimit(t *testing.T) {
	t.Parallel()

	s, dir := newServer(t, WithMaxFileSize(4))

	contentType, body := newForm(t, nil, []formFile{
		{field: "a", name: "a.txt", content: "1234"},
	})

	rec := upload(s, contentType, bytes.NewReader(body))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Len(t, storedFiles(t, dir), 1)
}

type failingReader struct {
	r   io.Reader
	err error
}

func (r *failingReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if err == io.EOF {
		return n, r.err
	}

	return n, err
}

func TestServer_UploadBodyError(t *testing.T) {
	t.Parallel()

	s, dir := newServer(t)

	contentType, body := newForm(t, nil, []formFile{
		{field: "a", name: "a.txt", content: "contents"},
	})

	rec := upload(s, contentType, &failingReader{
		r:   bytes.NewReader(body[:len(body)/2]),
		err: io.ErrUnexpectedEOF,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), formdispenser.ErrAborted.Message)
	assert.Empty(t, storedFiles(t, dir))
}

func TestServer_Serve(t *testing.T) {
	t.Parallel()

	s, _ := newServer(t, WithShutdownTimeout(time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Serve(ctx)
	}()

	var addr net.Addr
	select {
	case addr = <-s.Ready():
	case err := <-errChan:
		t.Fatalf("failed to serve: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	contentType, body := newForm(t, map[string]string{"a": "1"}, nil)
	res, err := http.Post(fmt.Sprintf("http://%s/upload", addr), contentType, bytes.NewReader(body))
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusCreated, res.StatusCode)

	cancel()
	select {
	case err := <-errChan:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
