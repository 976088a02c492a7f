// Package source decomposes fetch URIs and holds the immutable description
// of the remote file a fetch request refers to.
package source

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"ff/pkg/common"
)

// ErrParse is matched by every error returned from Parse.
var ErrParse = errors.New("malformed uri")

// ParseError describes why a URI could not be decomposed.
type ParseError struct {
	URI    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed uri %q: %s", e.URI, e.Reason)
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// Fields are the parts of a URI as produced by Parse.
type Fields struct {
	Scheme common.Scheme
	Host   string
	// Path is the directory portion. It starts and ends with "/".
	Path string
	// File is the leaf name; empty when the URI ends in "/".
	File string
}

// Parse splits uri into scheme, host, directory path and file name.
// The scheme is lower-cased but not checked: an unknown one such as
// "gopher" is kept as is and simply has no mechanisms.
//
// URIs are always treated as slash separated, whatever the host OS.
func Parse(uri string) (*Fields, error) {
	raw, rest, ok := strings.Cut(uri, "://")
	if !ok {
		// file:/path is accepted as well as file:///path
		if len(uri) > 5 && strings.EqualFold(uri[:5], "file:") && uri[5] == '/' {
			raw, rest, ok = uri[:4], uri[5:], true
		}
	}
	if !ok || raw == "" {
		return nil, &ParseError{URI: uri, Reason: "no scheme"}
	}

	f := &Fields{Scheme: common.Scheme(strings.ToLower(raw))}

	var p string
	if f.Scheme == common.SchemeFile {
		if rest == "" {
			return nil, &ParseError{URI: uri, Reason: "empty file path"}
		}
		if !strings.HasPrefix(rest, "/") {
			return nil, &ParseError{URI: uri, Reason: "file path is not absolute"}
		}
		p = rest
	} else {
		i := strings.Index(rest, "/")
		if i < 0 {
			return nil, &ParseError{URI: uri, Reason: "no path component"}
		}
		f.Host = rest[:i]
		p = rest[i:]
	}

	f.Path, f.File = path.Split(p)
	return f, nil
}

// Descriptor is the source of one fetch request.
// Immutable
type Descriptor struct {
	uri    string
	scheme common.Scheme
	host   string
	path   string
	file   string
}

// New builds a Descriptor from parsed fields and the original URI.
func New(uri string, f Fields) (*Descriptor, error) {
	if uri == "" {
		return nil, errors.New("missing uri")
	}
	if f.Scheme == "" {
		return nil, errors.New("missing scheme")
	}
	d := &Descriptor{
		uri:    uri,
		scheme: f.Scheme,
		host:   f.Host,
		path:   f.Path,
		file:   f.File,
	}
	if d.scheme == common.SchemeFile {
		d.host = ""
	}
	return d, nil
}

// FromURI parses uri and wraps the result in a Descriptor.
func FromURI(uri string) (*Descriptor, error) {
	f, err := Parse(uri)
	if err != nil {
		return nil, err
	}
	return New(uri, *f)
}

func (d *Descriptor) URI() string           { return d.uri }
func (d *Descriptor) Scheme() common.Scheme { return d.scheme }
func (d *Descriptor) Host() string          { return d.host }
func (d *Descriptor) Path() string          { return d.path }
func (d *Descriptor) File() string          { return d.file }

// RemotePath is the full path on the remote side, Path()+File().
func (d *Descriptor) RemotePath() string { return d.path + d.file }

// OutputFile is the local file name for the download: File() without any
// query string or fragment.
func (d *Descriptor) OutputFile() string {
	name := d.file
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	return name
}

func (d *Descriptor) String() string { return d.uri }
