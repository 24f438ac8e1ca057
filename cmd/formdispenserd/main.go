// Command formdispenserd accepts multipart/form-data uploads over HTTP and
// stores every file part on disk as it streams in.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/mazrean/formdispenser"
)

type CLI struct {
	Listen          string        `name:"listen" help:"Address and port to listen on." env:"FORMDISPENSERD_LISTEN" default:"[::0]:8080"`
	UploadDir       string        `name:"upload-dir" help:"Directory the uploaded files are stored in." env:"FORMDISPENSERD_UPLOAD_DIR" default:"uploads"`
	Config          string        `name:"config" help:"Path to the YAML configuration file." env:"FORMDISPENSERD_CONFIG" optional:""`
	MaxBytes        Size          `name:"max-bytes" help:"Maximum size of a request body." env:"FORMDISPENSERD_MAX_BYTES" default:"unlimited"`
	MaxParts        int           `name:"max-parts" help:"Maximum number of parts in a request body." env:"FORMDISPENSERD_MAX_PARTS" default:"-1"`
	MaxFileSize     Size          `name:"max-file-size" help:"Maximum size of a stored file." env:"FORMDISPENSERD_MAX_FILE_SIZE" default:"unlimited"`
	ShutdownTimeout time.Duration `name:"shutdown-timeout" help:"Time to wait for running uploads on shutdown." env:"FORMDISPENSERD_SHUTDOWN_TIMEOUT" default:"10s"`
	LogLevel        slog.Level    `name:"log-level" help:"Log level." env:"FORMDISPENSERD_LOG_LEVEL" default:"INFO" enum:"DEBUG,INFO,WARN,ERROR"`
}

func (CLI *CLI) initLogger(*kong.Context) *slog.Logger {
	var handler slog.Handler
	if isatty.IsTerminal(os.Stdout.Fd()) {
		handler = tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{Level: CLI.LogLevel})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: CLI.LogLevel})
	}
	return slog.New(handler)
}

func (CLI *CLI) initConfig(kongCtx *kong.Context, logger *slog.Logger) {
	if CLI.Config == "" {
		return
	}

	logger.Info("loading configuration", slog.String("path", CLI.Config))
	config, err := LoadConfigFromYAMLFile(CLI.Config)
	if err != nil {
		kongCtx.FatalIfErrorf(err)
	}

	if config.UploadDir != "" {
		CLI.UploadDir = config.UploadDir
	}
	if config.MaxBytes != nil {
		CLI.MaxBytes = *config.MaxBytes
	}
	if config.MaxParts != nil {
		CLI.MaxParts = *config.MaxParts
	}
	if config.MaxFileSize != nil {
		CLI.MaxFileSize = *config.MaxFileSize
	}
}

func (CLI *CLI) initServer(kongCtx *kong.Context, logger *slog.Logger) *Server {
	server, err := NewServer(
		CLI.Listen,
		CLI.UploadDir,
		WithMaxBytes(formdispenser.DataSize(CLI.MaxBytes)),
		WithMaxParts(CLI.MaxParts),
		WithMaxFileSize(formdispenser.DataSize(CLI.MaxFileSize)),
		WithShutdownTimeout(CLI.ShutdownTimeout),
		WithLogger(logger),
	)
	if err != nil {
		kongCtx.FatalIfErrorf(err)
	}
	return server
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer cancel()
	var CLI CLI
	kongCtx := kong.Parse(&CLI)
	logger := CLI.initLogger(kongCtx)
	CLI.initConfig(kongCtx, logger)
	server := CLI.initServer(kongCtx, logger)

	serveCtx, stop := context.WithCancel(ctx)
	defer stop()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT)
	go func() {
		count := 0
	outer:
		for {
			select {
			case <-ctx.Done():
				break outer
			case <-sigChan:
				count += 1
				if count == 1 {
					kongCtx.Printf("Received SIGINT, shutting down...")
					stop()
				} else {
					kongCtx.Printf("Received SIGINT again, forcing shutdown...")
					os.Exit(1)
				}
			}
		}
	}()
	err := server.Serve(serveCtx)
	if err != nil {
		kongCtx.FatalIfErrorf(err)
	}
}
