// Package registry holds the per-scheme mechanism priority tables together
// with the process-wide blacklist and failure cache consulted by every fetch.
package registry

import (
	"slices"
	"sort"
	"sync"

	"ff/pkg/common"
)

// Mechanism names.
const (
	HTTPLib = "httplib"
	FTPLib  = "ftplib"
	Wget    = "wget"
	Curl    = "curl"
	Lynx    = "lynx"
	NcFTP   = "ncftp"
	FTP     = "ftp"
	Rsync   = "rsync"
)

// DefaultBlacklist names mechanisms that are never attempted unless the
// blacklist is replaced. The plain ftp client has no usable error reporting.
var DefaultBlacklist = []string{FTP}

// DefaultOrder returns a fresh copy of the built-in priority tables.
func DefaultOrder() map[common.Scheme][]string {
	return map[common.Scheme][]string{
		common.SchemeHTTP:  {HTTPLib, Wget, Curl, Lynx},
		common.SchemeHTTPS: {HTTPLib, Wget, Curl, Lynx},
		common.SchemeFTP:   {HTTPLib, FTPLib, Wget, Curl, NcFTP, FTP},
		common.SchemeFile:  {HTTPLib},
		common.SchemeRsync: {Rsync},
	}
}

var binaries = map[string]bool{
	Wget: true, Curl: true, Lynx: true, NcFTP: true, FTP: true, Rsync: true,
}

// IsBinary reports whether the named mechanism shells out to a command line tool.
func IsBinary(name string) bool { return binaries[name] }

// Registry maps schemes to ordered mechanism names and remembers which
// mechanisms must not be tried. It is safe for concurrent use.
// Mutable
type Registry struct {
	mu        sync.Mutex
	order     map[common.Scheme][]string
	blacklist map[string]bool
	failed    map[string]bool
}

// Option configures a Registry at construction.
type Option func(*Registry)

// WithOrder replaces the mechanism table of one scheme.
func WithOrder(scheme common.Scheme, names ...string) Option {
	return func(r *Registry) {
		r.order[scheme] = slices.Clone(names)
	}
}

// WithBlacklist replaces the default blacklist.
func WithBlacklist(names ...string) Option {
	return func(r *Registry) {
		r.blacklist = toSet(names)
	}
}

// WithPreferBin moves command line mechanisms ahead of library mechanisms
// in every table, keeping relative order otherwise.
func WithPreferBin() Option {
	return func(r *Registry) {
		for scheme, names := range r.order {
			sort.SliceStable(names, func(i, j int) bool {
				return IsBinary(names[i]) && !IsBinary(names[j])
			})
			r.order[scheme] = names
		}
	}
}

// New creates a Registry with the default tables and blacklist, then applies opts in order.
func New(opts ...Option) *Registry {
	r := &Registry{
		order:     DefaultOrder(),
		blacklist: toSet(DefaultBlacklist),
		failed:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// MechanismsFor returns the ordered mechanism names for scheme.
// Unknown schemes yield an empty slice.
func (r *Registry) MechanismsFor(scheme common.Scheme) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.order[scheme])
}

// IsAllowed is false for blacklisted mechanisms and for mechanisms marked failed.
func (r *Registry) IsAllowed(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.blacklist[name] && !r.failed[name]
}

// MarkFailed records name as unusable until ClearFailures is called.
func (r *Registry) MarkFailed(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed[name] = true
}

// ClearFailures forgets every mechanism marked failed.
func (r *Registry) ClearFailures() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.failed)
}

// IsFailed reports whether name was marked failed.
func (r *Registry) IsFailed(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failed[name]
}

// IsBlacklisted reports whether name is on the blacklist.
func (r *Registry) IsBlacklisted(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.blacklist[name]
}

// Failed returns the sorted names currently in the failure cache.
func (r *Registry) Failed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedKeys(r.failed)
}

// Blacklist returns the sorted blacklisted names.
func (r *Registry) Blacklist() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedKeys(r.blacklist)
}

// SetBlacklist replaces the blacklist.
func (r *Registry) SetBlacklist(names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blacklist = toSet(names)
}

// SetOrder replaces the mechanism table for scheme.
func (r *Registry) SetOrder(scheme common.Scheme, names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order[scheme] = slices.Clone(names)
}

// Schemes returns the schemes that have a table, sorted.
func (r *Registry) Schemes() []common.Scheme {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]common.Scheme, 0, len(r.order))
	for s := range r.order {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

func toSet(names []string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		if v {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}
