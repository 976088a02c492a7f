package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"ff/pkg/common"
	"ff/pkg/display"
	"ff/pkg/registry"
	"ff/pkg/source"

	"github.com/dustin/go-humanize"
)

// Immutable
type httpLib struct {
	client *http.Client
}

// NewHTTPLib returns the in-process HTTP mechanism. It also serves file
// URIs through http.NewFileTransport.
func NewHTTPLib() Mechanism {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.RegisterProtocol("file", http.NewFileTransport(http.Dir("/")))
	return &httpLib{
		client: &http.Client{
			Transport: tr,
			Timeout:   0, // Handled by context
		},
	}
}

func (h *httpLib) Name() string { return registry.HTTPLib }

func (h *httpLib) Attempt(ctx context.Context, src *source.Descriptor, target string, opts Options) (string, error) {
	switch src.Scheme() {
	case common.SchemeHTTP, common.SchemeHTTPS, common.SchemeFile:
	default:
		return "", notApplicable(h.Name(), "no client for scheme "+src.Scheme().String())
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URI(), nil)
	if err != nil {
		return "", err
	}
	if opts.UserAgent != "" {
		req.Header.Set("User-Agent", opts.UserAgent)
	}
	if opts.From != "" && src.Scheme() != common.SchemeFile {
		req.Header.Set("From", opts.From)
	}

	if src.Scheme() == common.SchemeFile {
		done, err := checkLocalSource(filepath.FromSlash(req.URL.Path), target)
		if err != nil {
			return "", err
		}
		if done {
			return target, nil
		}
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bad status: %s", resp.Status)
	}

	pw := &progressWriter{
		task:  opts.Task,
		total: resp.ContentLength,
		start: time.Now(),
	}
	if err := save(target, io.TeeReader(resp.Body, pw)); err != nil {
		return "", err
	}
	return target, nil
}

// checkLocalSource refuses anything but a regular file, since the file
// transport would serve a directory as an HTML listing. done is true when
// name already is target, which must not be rewritten while it is read.
func checkLocalSource(name, target string) (done bool, err error) {
	info, err := os.Stat(name)
	if err != nil {
		return false, err
	}
	if !info.Mode().IsRegular() {
		return false, fmt.Errorf("%s is not a regular file", name)
	}
	if ti, err := os.Stat(target); err == nil && os.SameFile(info, ti) {
		return true, nil
	}
	return false, nil
}

// save copies r into a temporary file beside target and renames it over
// target once the copy completed. target is untouched on error.
func save(target string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	_, err = io.Copy(tmp, r)
	if err == nil {
		err = tmp.Chmod(0644)
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}

// Mutable
type progressWriter struct {
	task    display.Task
	total   int64
	written int64
	start   time.Time
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n := len(p)
	pw.written += int64(n)
	if pw.task == nil {
		return n, nil
	}

	if pw.total > 0 {
		percent := int((float64(pw.written) / float64(pw.total)) * 100)
		elapsed := time.Since(pw.start).Seconds()
		speed := float64(pw.written) / elapsed
		msg := fmt.Sprintf("%s / %s (%s/s)",
			humanize.Bytes(uint64(pw.written)),
			humanize.Bytes(uint64(pw.total)),
			humanize.Bytes(uint64(speed)))
		pw.task.Progress(percent, msg)
	} else {
		pw.task.Progress(-1, fmt.Sprintf("%s downloaded", humanize.Bytes(uint64(pw.written))))
	}

	return n, nil
}
