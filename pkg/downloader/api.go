// Package downloader provides the retrieval mechanisms a fetch can fall back
// between. Each mechanism makes one attempt at copying a remote file to a
// local path and reports how that attempt ended.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"ff/pkg/display"
	"ff/pkg/source"
)

var (
	// ErrUnavailable means the mechanism cannot run in this environment at
	// all, e.g. its executable is not installed. The fetcher remembers it.
	ErrUnavailable = errors.New("mechanism unavailable")
	// ErrNotApplicable means the mechanism declined this particular request.
	ErrNotApplicable = errors.New("mechanism not applicable")
)

// Mechanism is one way of retrieving a file.
//
// Attempt returns the path of the produced file on success. An error
// wrapping ErrUnavailable or ErrNotApplicable classifies the failure; any
// other error is a transfer failure that may not repeat on a later call.
type Mechanism interface {
	Name() string
	Attempt(ctx context.Context, src *source.Descriptor, target string, opts Options) (string, error)
}

// Prober is implemented by mechanisms that can tell up front whether they
// are able to run at all. A non-nil error wraps ErrUnavailable.
type Prober interface {
	Probe() error
}

// Options carries the per-call settings shared by all mechanisms.
type Options struct {
	// Passive selects passive FTP data connections.
	Passive bool
	// Verbose lets subprocess output through to Stderr.
	Verbose bool
	// From is the contact address, used as the anonymous FTP password and
	// sent in the HTTP From header.
	From string
	// UserAgent identifies HTTP capable mechanisms.
	UserAgent string
	// Timeout bounds a single attempt where the mechanism supports it. Zero means none.
	Timeout time.Duration
	// Task receives stage and progress updates. May be nil.
	Task display.Task
	// Stderr receives subprocess output in verbose mode.
	Stderr io.Writer
}

func unavailable(name string, err error) error {
	return fmt.Errorf("%s: %w: %v", name, ErrUnavailable, err)
}

func notApplicable(name, reason string) error {
	return fmt.Errorf("%s: %w: %s", name, ErrNotApplicable, reason)
}
