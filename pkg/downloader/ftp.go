package downloader

import (
	"context"
	"io"
	"net"
	"time"

	"ff/pkg/common"
	"ff/pkg/registry"
	"ff/pkg/source"

	"github.com/jlaffaye/ftp"
)

const defaultFTPPort = "21"

// Immutable
type ftpLib struct{}

// NewFTPLib returns the in-process anonymous FTP mechanism.
// The client only speaks passive mode.
func NewFTPLib() Mechanism {
	return &ftpLib{}
}

func (f *ftpLib) Name() string { return registry.FTPLib }

func (f *ftpLib) Attempt(ctx context.Context, src *source.Descriptor, target string, opts Options) (string, error) {
	if src.Scheme() != common.SchemeFTP {
		return "", notApplicable(f.Name(), "not an ftp uri")
	}
	if !opts.Passive {
		return "", notApplicable(f.Name(), "active mode not supported")
	}

	dialOpts := []ftp.DialOption{ftp.DialWithContext(ctx)}
	if opts.Timeout > 0 {
		dialOpts = append(dialOpts, ftp.DialWithTimeout(opts.Timeout))
	}
	c, err := ftp.Dial(ftpAddr(src.Host()), dialOpts...)
	if err != nil {
		return "", err
	}
	defer c.Quit()

	if err := c.Login("anonymous", opts.From); err != nil {
		return "", err
	}

	var total int64 = -1
	if size, err := c.FileSize(src.RemotePath()); err == nil {
		total = size
	}

	r, err := c.Retr(src.RemotePath())
	if err != nil {
		return "", err
	}
	defer r.Close()

	pw := &progressWriter{task: opts.Task, total: total, start: time.Now()}
	if err := save(target, io.TeeReader(r, pw)); err != nil {
		return "", err
	}
	return target, nil
}

func ftpAddr(host string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, defaultFTPPort)
}
