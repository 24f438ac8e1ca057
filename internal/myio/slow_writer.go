// Package myio holds io helpers for tests.
package myio

import (
	"io"
	"time"
)

const defaultDelay = 50 * time.Nanosecond

type slowWriter struct {
	delay time.Duration
}

// SlowWriter returns a writer that sleeps 50ns per byte written, to stand in
// for a slow storage backend.
func SlowWriter() io.Writer {
	return SlowWriterWithDelay(defaultDelay)
}

func SlowWriterWithDelay(delay time.Duration) io.Writer {
	return &slowWriter{delay: delay}
}

func (w *slowWriter) Write(p []byte) (n int, err error) {
	time.Sleep(time.Duration(len(p)) * w.delay)
	return len(p), nil
}
