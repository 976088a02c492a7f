package downloader

import (
	"context"
	"fmt"
	"io"
	"math"
	"net"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"ff/pkg/common"
	"ff/pkg/registry"
	"ff/pkg/source"
)

// Replaceable so tests can point tools at fixtures.
var lookPath = exec.LookPath

// invocation is one run of an external download tool.
type invocation struct {
	args []string
	// stdin is piped to the tool when non-empty.
	stdin string
	// toStdout means the tool writes the payload to standard output.
	toStdout bool
	// output is where the tool leaves the file; defaults to the target.
	output string
}

// Immutable
type toolMechanism struct {
	name   string
	binary string
	plan   func(src *source.Descriptor, target string, opts Options) invocation
}

func (t *toolMechanism) Name() string { return t.name }

func (t *toolMechanism) Probe() error {
	if _, err := lookPath(t.binary); err != nil {
		return unavailable(t.name, err)
	}
	return nil
}

func (t *toolMechanism) Attempt(ctx context.Context, src *source.Descriptor, target string, opts Options) (string, error) {
	bin, err := lookPath(t.binary)
	if err != nil {
		return "", unavailable(t.name, err)
	}

	inv := t.plan(src, target, opts)
	cmd := exec.CommandContext(ctx, bin, inv.args...)
	cmd.Env = toolEnv(opts)

	var stderr io.Writer
	if opts.Verbose {
		stderr = opts.Stderr
		if stderr == nil {
			stderr = os.Stderr
		}
	}
	cmd.Stderr = stderr
	cmd.Stdout = stderr
	if inv.stdin != "" {
		cmd.Stdin = strings.NewReader(inv.stdin)
	}

	var out *os.File
	if inv.toStdout {
		out, err = os.Create(target)
		if err != nil {
			return "", err
		}
		cmd.Stdout = out
	}

	if opts.Task != nil {
		opts.Task.Log(fmt.Sprintf("running %s %s", bin, strings.Join(inv.args, " ")))
	}
	err = cmd.Run()
	if out != nil {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", t.name, err)
	}

	if inv.output != "" {
		return inv.output, nil
	}
	return target, nil
}

// toolEnv passes the passive mode choice to the subprocess only.
func toolEnv(opts Options) []string {
	env := os.Environ()
	if opts.Passive {
		env = append(env, "FTP_PASSIVE=1")
	} else {
		env = append(env, "FTP_PASSIVE=0")
	}
	return env
}

// seconds rounds the timeout up to whole seconds, at least one.
func seconds(opts Options) string {
	n := int(math.Ceil(opts.Timeout.Seconds()))
	if n < 1 {
		n = 1
	}
	return strconv.Itoa(n)
}

// NewWget returns the wget mechanism.
func NewWget() Mechanism {
	return &toolMechanism{name: registry.Wget, binary: "wget", plan: wgetPlan}
}

func wgetPlan(src *source.Descriptor, target string, opts Options) invocation {
	var args []string
	if !opts.Verbose {
		args = append(args, "--quiet")
	}
	if opts.Timeout > 0 {
		args = append(args, "--timeout="+seconds(opts))
	}
	if opts.UserAgent != "" {
		args = append(args, "--user-agent="+opts.UserAgent)
	}
	switch src.Scheme() {
	case common.SchemeFTP:
		if opts.Passive {
			args = append(args, "--passive-ftp")
		} else {
			args = append(args, "--no-passive-ftp")
		}
		if opts.From != "" {
			args = append(args, "--ftp-user=anonymous", "--ftp-password="+opts.From)
		}
	default:
		if opts.From != "" {
			args = append(args, "--header=From: "+opts.From)
		}
	}
	args = append(args, "--output-document="+target, src.URI())
	return invocation{args: args}
}

// NewCurl returns the curl mechanism.
func NewCurl() Mechanism {
	return &toolMechanism{name: registry.Curl, binary: "curl", plan: curlPlan}
}

func curlPlan(src *source.Descriptor, target string, opts Options) invocation {
	args := []string{"--fail", "--location"}
	if opts.Verbose {
		args = append(args, "--verbose")
	} else {
		args = append(args, "--silent", "--show-error")
	}
	if opts.Timeout > 0 {
		args = append(args, "--max-time", seconds(opts))
	}
	if opts.UserAgent != "" {
		args = append(args, "--user-agent", opts.UserAgent)
	}
	switch src.Scheme() {
	case common.SchemeFTP:
		if !opts.Passive {
			args = append(args, "--ftp-port", "-")
		}
		if opts.From != "" {
			args = append(args, "--user", "anonymous:"+opts.From)
		}
	default:
		if opts.From != "" {
			args = append(args, "--header", "From: "+opts.From)
		}
	}
	args = append(args, "--output", target, src.URI())
	return invocation{args: args}
}

// NewLynx returns the lynx mechanism. lynx dumps the document to stdout.
func NewLynx() Mechanism {
	return &toolMechanism{name: registry.Lynx, binary: "lynx", plan: lynxPlan}
}

func lynxPlan(src *source.Descriptor, target string, opts Options) invocation {
	args := []string{"-source"}
	if opts.UserAgent != "" {
		args = append(args, "-useragent="+opts.UserAgent)
	}
	if opts.Timeout > 0 {
		args = append(args, "-connect_timeout="+seconds(opts))
	}
	args = append(args, src.URI())
	return invocation{args: args, toStdout: true}
}

// NewNcFTP returns the ncftpget mechanism.
func NewNcFTP() Mechanism {
	return &toolMechanism{name: registry.NcFTP, binary: "ncftpget", plan: ncftpPlan}
}

func ncftpPlan(src *source.Descriptor, target string, opts Options) invocation {
	var args []string
	if !opts.Verbose {
		args = append(args, "-V")
	}
	if opts.Passive {
		args = append(args, "-F")
	} else {
		args = append(args, "-E")
	}
	if opts.Timeout > 0 {
		args = append(args, "-t", seconds(opts))
	}
	args = append(args, "-u", "anonymous")
	if opts.From != "" {
		args = append(args, "-p", opts.From)
	}

	host := src.Host()
	if h, port, err := net.SplitHostPort(host); err == nil {
		host = h
		args = append(args, "-P", port)
	}

	// ncftpget names the local copy after the remote file.
	dir := filepath.Dir(target)
	args = append(args, host, dir, src.RemotePath())
	return invocation{args: args, output: filepath.Join(dir, path.Base(src.RemotePath()))}
}

// NewFTP returns the plain ftp client mechanism. Success is reported once
// the client exits; the fetcher's size check is what verifies the file.
func NewFTP() Mechanism {
	return &toolMechanism{name: registry.FTP, binary: "ftp", plan: ftpPlan}
}

func ftpPlan(src *source.Descriptor, target string, opts Options) invocation {
	args := []string{"-n"}
	if opts.Passive {
		args = append(args, "-p")
	}
	host := src.Host()
	if h, port, err := net.SplitHostPort(host); err == nil {
		args = append(args, h, port)
	} else {
		args = append(args, host)
	}

	var script strings.Builder
	fmt.Fprintf(&script, "user anonymous %s\n", opts.From)
	script.WriteString("binary\n")
	fmt.Fprintf(&script, "cd %s\n", src.Path())
	fmt.Fprintf(&script, "get %s %s\n", src.File(), target)
	script.WriteString("quit\n")
	return invocation{args: args, stdin: script.String()}
}

// NewRsync returns the rsync mechanism.
func NewRsync() Mechanism {
	return &toolMechanism{name: registry.Rsync, binary: "rsync", plan: rsyncPlan}
}

func rsyncPlan(src *source.Descriptor, target string, opts Options) invocation {
	args := []string{"--copy-links", "--times"}
	if opts.Verbose {
		args = append(args, "--verbose")
	} else {
		args = append(args, "--quiet")
	}
	if opts.Timeout > 0 {
		args = append(args, "--timeout="+seconds(opts))
	}
	args = append(args, src.URI(), target)
	return invocation{args: args}
}
