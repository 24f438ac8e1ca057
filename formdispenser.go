package formdispenser

import (
	"io"
	"log/slog"

	"github.com/mazrean/formdispenser/internal/logging"
)

type config struct {
	maxBytes       DataSize
	maxParts       int
	maxHeaders     int
	maxMemSize     DataSize
	maxMemFileSize DataSize
	readSize       int
	logger         *slog.Logger
	sink           Sink
}

type Option func(*config)

type DataSize int64

const (
	_ DataSize = 1 << (iota * 10)
	KB
	MB
	GB
)

// Unlimited disables a size or count limit.
const Unlimited = -1

const (
	defaultMaxParts       = 10000
	defaultMaxHeaders     = 10000
	defaultMaxMemSize     = 32 * MB
	defaultMaxMemFileSize = 32 * MB
	defaultReadSize       = 32 * KB
)

func dispenserConfig() config {
	return config{
		maxBytes:       Unlimited,
		maxParts:       Unlimited,
		maxHeaders:     Unlimited,
		maxMemSize:     Unlimited,
		maxMemFileSize: Unlimited,
		readSize:       int(defaultReadSize),
		logger:         logging.Discard(),
	}
}

func parserConfig() config {
	c := dispenserConfig()
	c.maxParts = defaultMaxParts
	c.maxHeaders = defaultMaxHeaders
	c.maxMemSize = defaultMaxMemSize
	c.maxMemFileSize = defaultMaxMemFileSize

	return c
}

// WithMaxBytes sets the maximum number of body bytes accepted.
// default: Unlimited
func WithMaxBytes(maxBytes DataSize) Option {
	return func(c *config) {
		c.maxBytes = maxBytes
	}
}

// WithMaxParts sets the maximum number of parts to be parsed.
// default: Unlimited for a Dispenser, 10000 for a Parser
func WithMaxParts(maxParts int) Option {
	return func(c *config) {
		c.maxParts = maxParts
	}
}

// WithMaxHeaders sets the maximum number of part header fields a Parser accepts in total.
// default: 10000
func WithMaxHeaders(maxHeaders int) Option {
	return func(c *config) {
		c.maxHeaders = maxHeaders
	}
}

// WithMaxMemSize sets the maximum memory size a Parser uses for values.
// default: 32MB
func WithMaxMemSize(maxMemSize DataSize) Option {
	return func(c *config) {
		c.maxMemSize = maxMemSize
	}
}

// WithMaxMemFileSize sets the maximum memory size a Parser uses to hold a file
// part whose hook is still waiting for its required parts. Larger parts spill
// to a temporary file.
// default: 32MB
func WithMaxMemFileSize(maxMemFileSize DataSize) Option {
	return func(c *config) {
		c.maxMemFileSize = maxMemFileSize
	}
}

// WithReadSize sets the size of the reads a Parser issues on the body.
// default: 32KB
func WithReadSize(readSize DataSize) Option {
	return func(c *config) {
		if readSize > 0 {
			c.readSize = int(readSize)
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSink sets the receiver of a Dispenser's events. A Parser installs its
// own sink and ignores this option.
func WithSink(sink Sink) Option {
	return func(c *config) {
		c.sink = sink
	}
}

func exceeds[T ~int | ~int64](value, limit T) bool {
	return limit != Unlimited && value > limit
}

type Value struct {
	content []byte
	header  Header
}

// Unwrap returns the content and header of the value.
func (v Value) Unwrap() (string, Header) {
	return string(v.content), v.header
}

// UnwrapRaw returns the raw content and header of the value.
func (v Value) UnwrapRaw() ([]byte, Header) {
	return v.content, v.header
}

type StreamHookFunc = func(r io.Reader, header Header) error

type streamHook struct {
	fn           StreamHookFunc
	requireParts []string
}
