package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mazrean/formdispenser"
	"github.com/mazrean/formdispenser/content"
	echoform "github.com/mazrean/formdispenser/echo"
	"github.com/mazrean/formdispenser/internal/logging"
	"golang.org/x/sync/errgroup"
)

var errFileTooLarge = &formdispenser.Error{Kind: formdispenser.KindLimit, Message: "maximum file size exceeded"}

type Server struct {
	addr            string
	uploadDir       string
	maxBytes        formdispenser.DataSize
	maxParts        int
	maxFileSize     formdispenser.DataSize
	shutdownTimeout time.Duration
	logger          *slog.Logger
	echo            *echo.Echo
	readyChan       chan net.Addr
}

type OptionFunc func(s *Server) error

func WithMaxBytes(maxBytes formdispenser.DataSize) OptionFunc {
	return func(s *Server) error {
		s.maxBytes = maxBytes
		return nil
	}
}

func WithMaxParts(maxParts int) OptionFunc {
	return func(s *Server) error {
		s.maxParts = maxParts
		return nil
	}
}

func WithMaxFileSize(maxFileSize formdispenser.DataSize) OptionFunc {
	return func(s *Server) error {
		s.maxFileSize = maxFileSize
		return nil
	}
}

func WithShutdownTimeout(timeout time.Duration) OptionFunc {
	return func(s *Server) error {
		s.shutdownTimeout = timeout
		return nil
	}
}

func WithLogger(logger *slog.Logger) OptionFunc {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

func NewServer(addr, uploadDir string, options ...OptionFunc) (*Server, error) {
	s := &Server{
		addr:            addr,
		uploadDir:       uploadDir,
		maxBytes:        formdispenser.Unlimited,
		maxParts:        formdispenser.Unlimited,
		maxFileSize:     formdispenser.Unlimited,
		shutdownTimeout: 10 * time.Second,
		logger:          logging.Discard(),
		readyChan:       make(chan net.Addr, 1),
	}
	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(s.accessLog)
	e.POST("/upload", s.upload)
	e.Static("/files", uploadDir)
	s.echo = e

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Ready yields the listening address once Serve has bound it.
func (s *Server) Ready() <-chan net.Addr {
	return s.readyChan
}

// Serve listens on the server address until ctx is done, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 30 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			// running uploads outlive ctx until the shutdown timeout
			return context.WithoutCancel(ctx)
		},
	}

	eg, innerCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		s.logger.Info("listening", slog.String("addr", ln.Addr().String()))
		s.readyChan <- ln.Addr()

		err := srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	eg.Go(func() error {
		<-innerCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()

		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func (s *Server) accessLog(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		s.logger.Info("request",
			slog.String("method", c.Request().Method),
			slog.String("path", c.Request().URL.Path),
			slog.Int("status", c.Response().Status),
			slog.Int64("size", c.Response().Size),
			slog.Duration("duration", time.Since(start)),
		)

		return nil
	}
}

type storedFile struct {
	Field       string `json:"field"`
	FileName    string `json:"filename"`
	ContentType string `json:"content_type,omitempty"`
	Path        string `json:"path"`
	Size        int64  `json:"size"`
}

type uploadResult struct {
	Preamble string              `json:"preamble,omitempty"`
	Fields   map[string][]string `json:"fields"`
	Files    []storedFile        `json:"files"`
	Epilogue string              `json:"epilogue,omitempty"`
}

// upload streams every file part of the body into the upload directory.
func (s *Server) upload(c echo.Context) error {
	t, err := content.ParseType(c.Request().Header.Get(echo.HeaderContentType))
	if err != nil || t.Mime != echo.MIMEMultipartForm {
		return echo.NewHTTPError(http.StatusBadRequest, http.ErrNotMultipart.Error())
	}

	logger := s.logger.With(slog.String("remote", c.RealIP()))

	var (
		mu  sync.Mutex
		res = uploadResult{
			Fields: make(map[string][]string),
			Files:  []storedFile{},
		}
	)
	eg, ctx := errgroup.WithContext(c.Request().Context())

	d, err := formdispenser.New(t.Boundary,
		formdispenser.WithMaxBytes(s.maxBytes),
		formdispenser.WithMaxParts(s.maxParts),
		formdispenser.WithLogger(logger),
		formdispenser.WithSink(formdispenser.SinkFunc(func(ev formdispenser.Event) {
			switch ev.Kind {
			case formdispenser.EventPreamble:
				res.Preamble = ev.Value
			case formdispenser.EventEpilogue:
				res.Epilogue = ev.Value
			case formdispenser.EventField:
				mu.Lock()
				res.Fields[ev.Name] = append(res.Fields[ev.Name], ev.Value)
				mu.Unlock()
			case formdispenser.EventPart:
				part := ev.Part
				eg.Go(func() error {
					f, err := s.store(ctx, part)
					if err != nil {
						return err
					}

					mu.Lock()
					res.Files = append(res.Files, f)
					mu.Unlock()

					return nil
				})
			}
		})),
	)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	_, err = io.Copy(d, c.Request().Body)
	switch {
	case err != nil && d.Err() == nil:
		// the body failed, not the multipart framing
		err = d.Abort(err)
	case err == nil:
		err = d.Close()
	}

	if storeErr := eg.Wait(); err == nil {
		err = storeErr
	}

	if err != nil {
		s.remove(res.Files)
		logger.Warn("upload failed", slog.Any("error", err))
		return echoform.HTTPError(err)
	}

	logger.Info("upload stored",
		slog.Int("fields", len(res.Fields)),
		slog.Int("files", len(res.Files)),
	)

	return c.JSON(http.StatusCreated, res)
}

func (s *Server) store(ctx context.Context, part *formdispenser.Part) (storedFile, error) {
	defer part.Close()

	name := filepath.Base(part.FileName)
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = "upload"
	}

	f, err := os.CreateTemp(s.uploadDir, "*-"+name)
	if err != nil {
		return storedFile{}, fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	var r io.Reader = part
	if s.maxFileSize != formdispenser.Unlimited {
		r = io.LimitReader(part, int64(s.maxFileSize)+1)
	}

	n, err := io.Copy(f, contextReader{ctx: ctx, r: r})
	if err == nil && s.maxFileSize != formdispenser.Unlimited && n > int64(s.maxFileSize) {
		err = errFileTooLarge
	}
	if err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return storedFile{}, fmt.Errorf("failed to store %s: %w", part.FileName, err)
	}

	base := filepath.Base(f.Name())
	s.logger.Debug("file stored",
		slog.String("field", part.Name),
		slog.String("path", base),
		slog.Int64("size", n),
	)

	return storedFile{
		Field:       part.Name,
		FileName:    part.FileName,
		ContentType: part.Header.ContentType(),
		Path:        "/files/" + base,
		Size:        n,
	}, nil
}

func (s *Server) remove(files []storedFile) {
	for _, f := range files {
		path := filepath.Join(s.uploadDir, filepath.Base(f.Path))
		if err := os.Remove(path); err != nil {
			s.logger.Warn("failed to remove file", slog.String("path", path), slog.Any("error", err))
		}
	}
}

// contextReader stops reading once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (r contextReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}

	return r.r.Read(p)
}
