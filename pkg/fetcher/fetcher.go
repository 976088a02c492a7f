// Package fetcher retrieves a single remote file by walking the mechanisms
// registered for its scheme, in priority order, until one delivers.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"ff/pkg/display"
	"ff/pkg/downloader"
	"ff/pkg/lock"
	"ff/pkg/registry"
	"ff/pkg/source"

	"github.com/google/uuid"
)

var (
	// ErrNoMechanismSucceeded is returned when every candidate mechanism
	// for the scheme was skipped or failed.
	ErrNoMechanismSucceeded = errors.New("no mechanism succeeded")
	// ErrEmptyFilename is returned for URIs that name a directory.
	ErrEmptyFilename = errors.New("uri has no file name")
)

// DirectoryCreateError means the destination directory could not be made.
type DirectoryCreateError struct {
	Dir string
	Err error
}

func (e *DirectoryCreateError) Error() string {
	return fmt.Sprintf("cannot create destination %q: %v", e.Dir, e.Err)
}

func (e *DirectoryCreateError) Unwrap() error { return e.Err }

// Fetcher runs fetch requests against a shared Registry.
// A Fetcher is safe for concurrent use as long as its mechanisms are.
// Immutable
type Fetcher struct {
	reg   *registry.Registry
	mechs map[string]downloader.Mechanism
	disp  display.Display
	opts  downloader.Options
}

// New creates a Fetcher. opts is handed to every mechanism attempt; its
// Task field is filled per call.
func New(reg *registry.Registry, mechs map[string]downloader.Mechanism, disp display.Display, opts downloader.Options) *Fetcher {
	if disp == nil {
		disp = display.Discard()
	}
	return &Fetcher{
		reg:   reg,
		mechs: mechs,
		disp:  disp,
		opts:  opts,
	}
}

// Registry returns the registry the Fetcher consults.
func (f *Fetcher) Registry() *registry.Registry { return f.reg }

// Probe asks every mechanism that supports it whether it can run here and
// marks the ones that cannot as failed, so fetches skip them without trying.
func (f *Fetcher) Probe() {
	for name, mech := range f.mechs {
		p, ok := mech.(downloader.Prober)
		if !ok || !f.reg.IsAllowed(name) {
			continue
		}
		if err := p.Probe(); err != nil {
			slog.Debug("mechanism unavailable", "mechanism", name, "error", err)
			f.reg.MarkFailed(name)
		}
	}
}

// Fetch retrieves src into dest and returns the absolute path of the file.
//
// dest is created if missing. Partially written files from failed
// mechanisms may be left behind.
func (f *Fetcher) Fetch(ctx context.Context, src *source.Descriptor, dest string) (string, error) {
	if err := os.MkdirAll(dest, 0755); err != nil {
		return "", &DirectoryCreateError{Dir: dest, Err: err}
	}
	if src.OutputFile() == "" {
		return "", fmt.Errorf("%s: %w", src.URI(), ErrEmptyFilename)
	}

	target := filepath.Join(dest, src.OutputFile())
	log := slog.With("fetch", uuid.NewString(), "uri", src.URI())

	task := f.disp.StartTask(src.OutputFile())
	defer task.Done()

	opts := f.opts
	opts.Task = task

	var path string
	err := lock.With(ctx, target, func() error {
		var err error
		path, err = f.try(ctx, log, src, target, opts)
		return err
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

func (f *Fetcher) try(ctx context.Context, log *slog.Logger, src *source.Descriptor, target string, opts downloader.Options) (string, error) {
	for _, name := range f.reg.MechanismsFor(src.Scheme()) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if !f.reg.IsAllowed(name) {
			log.Debug("skipping mechanism", "mechanism", name)
			continue
		}
		mech, ok := f.mechs[name]
		if !ok {
			log.Debug("no adapter for mechanism", "mechanism", name)
			continue
		}

		opts.Task.SetStage(name, target)
		produced, err := mech.Attempt(ctx, src, target, opts)
		switch {
		case errors.Is(err, downloader.ErrUnavailable):
			log.Debug("mechanism unavailable", "mechanism", name, "error", err)
			f.reg.MarkFailed(name)
			continue
		case errors.Is(err, downloader.ErrNotApplicable):
			log.Debug("mechanism not applicable", "mechanism", name, "error", err)
			continue
		case err != nil:
			log.Warn("mechanism failed", "mechanism", name, "error", err)
			opts.Task.Log(fmt.Sprintf("%s failed: %v", name, err))
			continue
		}

		if err := verify(produced); err != nil {
			log.Warn("mechanism reported success without a file", "mechanism", name, "path", produced, "error", err)
			f.reg.MarkFailed(name)
			continue
		}

		abs, err := filepath.Abs(produced)
		if err != nil {
			return "", err
		}
		log.Info("fetched", "mechanism", name, "path", abs)
		return abs, nil
	}
	return "", fmt.Errorf("%s: %w", src.URI(), ErrNoMechanismSucceeded)
}

func verify(path string) error {
	if path == "" {
		return errors.New("no path reported")
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s is empty", path)
	}
	return nil
}
