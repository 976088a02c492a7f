package fetcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"ff/pkg/common"
	"ff/pkg/downloader"
	"ff/pkg/registry"
	"ff/pkg/source"

	"github.com/google/go-cmp/cmp"
)

// stubMechanism records calls and answers with a fixed outcome.
type stubMechanism struct {
	name string
	// err is returned when set.
	err error
	// content is written to the target on success; empty writes nothing.
	content string
	// produced overrides the returned path.
	produced string

	mu    sync.Mutex
	calls int
	opts  downloader.Options
}

func (s *stubMechanism) Name() string { return s.name }

func (s *stubMechanism) Attempt(ctx context.Context, src *source.Descriptor, target string, opts downloader.Options) (string, error) {
	s.mu.Lock()
	s.calls++
	s.opts = opts
	s.mu.Unlock()

	if s.err != nil {
		return "", s.err
	}
	if s.content != "" {
		if err := os.WriteFile(target, []byte(s.content), 0644); err != nil {
			return "", err
		}
	}
	if s.produced != "" {
		return s.produced, nil
	}
	return target, nil
}

func (s *stubMechanism) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func unavailableErr() error {
	return errors.Join(downloader.ErrUnavailable, errors.New("binary not found"))
}

func newFetcher(reg *registry.Registry, mechs ...*stubMechanism) *Fetcher {
	m := make(map[string]downloader.Mechanism)
	for _, s := range mechs {
		m[s.name] = s
	}
	return New(reg, m, nil, downloader.Options{Passive: true, From: "me@example.test"})
}

func mustDescriptor(t *testing.T, uri string) *source.Descriptor {
	t.Helper()
	d, err := source.FromURI(uri)
	if err != nil {
		t.Fatalf("FromURI(%q) failed: %v", uri, err)
	}
	return d
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestFetchOrder(t *testing.T) {
	a := &stubMechanism{name: "a", content: "from a"}
	b := &stubMechanism{name: "b", err: errors.New("connection reset")}
	c := &stubMechanism{name: "c", content: "from c"}

	reg := registry.New(registry.WithOrder(common.SchemeHTTP, "a", "b", "c"), registry.WithBlacklist())
	reg.MarkFailed("a")
	f := newFetcher(reg, a, b, c)

	dest := t.TempDir()
	got, err := f.Fetch(context.Background(), mustDescriptor(t, "http://example.test/a/b.txt"), dest)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if want := filepath.Join(dest, "b.txt"); got != want {
		t.Errorf("Fetch returned %q, want %q", got, want)
	}

	if a.Calls() != 0 {
		t.Errorf("a was invoked %d times, want 0", a.Calls())
	}
	if b.Calls() != 1 {
		t.Errorf("b was invoked %d times, want 1", b.Calls())
	}
	if c.Calls() != 1 {
		t.Errorf("c was invoked %d times, want 1", c.Calls())
	}

	// transfer failures are not remembered
	if reg.IsFailed("b") {
		t.Errorf("b must not be marked failed after a transfer failure")
	}

	data, _ := os.ReadFile(got)
	if string(data) != "from c" {
		t.Errorf("content = %q", data)
	}
}

func TestFetchFirstSuccessWins(t *testing.T) {
	a := &stubMechanism{name: "a", content: "from a"}
	b := &stubMechanism{name: "b", content: "from b"}
	reg := registry.New(registry.WithOrder(common.SchemeHTTP, "a", "b"))
	f := newFetcher(reg, a, b)

	if _, err := f.Fetch(context.Background(), mustDescriptor(t, "http://example.test/x.txt"), t.TempDir()); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if b.Calls() != 0 {
		t.Errorf("b must not be attempted after a succeeded")
	}
}

func TestFetchEndToEnd(t *testing.T) {
	tests := []struct {
		name       string
		failErr    error
		wantMarked bool
	}{
		{"unavailable", unavailableErr(), true},
		{"transfer failure", errors.New("503 service unavailable"), false},
		{"not applicable", errors.Join(downloader.ErrNotApplicable, errors.New("wrong scheme")), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fails := &stubMechanism{name: "stubThatFails", err: tt.failErr}
			succeeds := &stubMechanism{name: "stubThatSucceeds", content: "payload"}
			reg := registry.New(registry.WithOrder(common.SchemeHTTP, fails.name, succeeds.name))
			f := newFetcher(reg, fails, succeeds)

			dest := filepath.Join(t.TempDir(), "fresh")
			got, err := f.Fetch(context.Background(), mustDescriptor(t, "http://example.test/a/b.txt"), dest)
			if err != nil {
				t.Fatalf("Fetch failed: %v", err)
			}
			if want := filepath.Join(dest, "b.txt"); got != want {
				t.Errorf("Fetch returned %q, want %q", got, want)
			}
			info, err := os.Stat(got)
			if err != nil || info.Size() == 0 {
				t.Errorf("fetched file missing or empty: %v", err)
			}
			if reg.IsFailed(fails.name) != tt.wantMarked {
				t.Errorf("IsFailed(%s) = %v, want %v", fails.name, reg.IsFailed(fails.name), tt.wantMarked)
			}
			if diff := cmp.Diff([]string{"b.txt"}, dirEntries(t, dest)); diff != "" {
				t.Errorf("destination contents mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFetchUnavailableRemembered(t *testing.T) {
	missing := &stubMechanism{name: "missing", err: unavailableErr()}
	ok := &stubMechanism{name: "ok", content: "payload"}
	reg := registry.New(registry.WithOrder(common.SchemeHTTP, missing.name, ok.name))
	f := newFetcher(reg, missing, ok)

	for i := 0; i < 3; i++ {
		if _, err := f.Fetch(context.Background(), mustDescriptor(t, "http://example.test/x.txt"), t.TempDir()); err != nil {
			t.Fatalf("Fetch %d failed: %v", i, err)
		}
	}
	if missing.Calls() != 1 {
		t.Errorf("unavailable mechanism probed %d times, want 1", missing.Calls())
	}

	reg.ClearFailures()
	if _, err := f.Fetch(context.Background(), mustDescriptor(t, "http://example.test/x.txt"), t.TempDir()); err != nil {
		t.Fatal(err)
	}
	if missing.Calls() != 2 {
		t.Errorf("after ClearFailures mechanism probed %d times, want 2", missing.Calls())
	}
}

func TestFetchExhausted(t *testing.T) {
	stubA := &stubMechanism{name: "stubA", err: errors.New("timeout")}
	stubB := &stubMechanism{name: "stubB", err: errors.New("refused")}
	reg := registry.New(registry.WithOrder(common.SchemeFTP, stubA.name, stubB.name))
	f := newFetcher(reg, stubA, stubB)

	dest := t.TempDir()
	_, err := f.Fetch(context.Background(), mustDescriptor(t, "ftp://cpan.org/pub/mirror/index.txt"), dest)
	if !errors.Is(err, ErrNoMechanismSucceeded) {
		t.Fatalf("Expected ErrNoMechanismSucceeded, got: %v", err)
	}
	if entries := dirEntries(t, dest); len(entries) != 0 {
		t.Errorf("destination should be empty, got %v", entries)
	}
	if stubA.Calls() != 1 || stubB.Calls() != 1 {
		t.Errorf("calls = %d, %d, want 1, 1", stubA.Calls(), stubB.Calls())
	}
}

func TestFetchUnknownScheme(t *testing.T) {
	f := newFetcher(registry.New())
	_, err := f.Fetch(context.Background(), mustDescriptor(t, "gopher://example.test/x.txt"), t.TempDir())
	if !errors.Is(err, ErrNoMechanismSucceeded) {
		t.Fatalf("Expected ErrNoMechanismSucceeded, got: %v", err)
	}
}

func TestFetchBlacklisted(t *testing.T) {
	banned := &stubMechanism{name: "banned", content: "payload"}
	reg := registry.New(registry.WithOrder(common.SchemeHTTP, banned.name), registry.WithBlacklist(banned.name))
	f := newFetcher(reg, banned)

	_, err := f.Fetch(context.Background(), mustDescriptor(t, "http://example.test/x.txt"), t.TempDir())
	if !errors.Is(err, ErrNoMechanismSucceeded) {
		t.Fatalf("Expected ErrNoMechanismSucceeded, got: %v", err)
	}
	if banned.Calls() != 0 {
		t.Errorf("blacklisted mechanism was invoked")
	}
}

func TestFetchVerifiesProducedFile(t *testing.T) {
	tests := []struct {
		name string
		liar *stubMechanism
	}{
		{"no file", &stubMechanism{name: "liar"}},
		{"empty file", &stubMechanism{name: "liar", produced: "EMPTY"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dest := t.TempDir()
			if tt.liar.produced == "EMPTY" {
				empty := filepath.Join(t.TempDir(), "empty")
				if err := os.WriteFile(empty, nil, 0644); err != nil {
					t.Fatal(err)
				}
				tt.liar.produced = empty
			}
			honest := &stubMechanism{name: "honest", content: "payload"}
			reg := registry.New(registry.WithOrder(common.SchemeHTTP, tt.liar.name, honest.name))
			f := newFetcher(reg, tt.liar, honest)

			got, err := f.Fetch(context.Background(), mustDescriptor(t, "http://example.test/x.txt"), dest)
			if err != nil {
				t.Fatalf("Fetch failed: %v", err)
			}
			if got != filepath.Join(dest, "x.txt") {
				t.Errorf("Fetch returned %q", got)
			}
			if !reg.IsFailed(tt.liar.name) {
				t.Errorf("mechanism claiming success without a file should be marked failed")
			}
		})
	}
}

func TestFetchProducedPathElsewhere(t *testing.T) {
	other := filepath.Join(t.TempDir(), "renamed.txt")
	if err := os.WriteFile(other, []byte("payload"), 0644); err != nil {
		t.Fatal(err)
	}
	m := &stubMechanism{name: "m", produced: other}
	f := newFetcher(registry.New(registry.WithOrder(common.SchemeHTTP, m.name)), m)

	got, err := f.Fetch(context.Background(), mustDescriptor(t, "http://example.test/x.txt"), t.TempDir())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if got != other {
		t.Errorf("Fetch returned %q, want %q", got, other)
	}
}

func TestFetchRelativeDestIsAbsolute(t *testing.T) {
	t.Chdir(t.TempDir())
	m := &stubMechanism{name: "m", content: "payload"}
	f := newFetcher(registry.New(registry.WithOrder(common.SchemeHTTP, m.name)), m)

	got, err := f.Fetch(context.Background(), mustDescriptor(t, "http://example.test/x.txt"), "downloads")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if !filepath.IsAbs(got) {
		t.Errorf("Fetch returned relative path %q", got)
	}
}

func TestFetchDirectoryCreateError(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	f := newFetcher(registry.New())

	_, err := f.Fetch(context.Background(), mustDescriptor(t, "http://example.test/x.txt"), filepath.Join(blocker, "sub"))
	var dce *DirectoryCreateError
	if !errors.As(err, &dce) {
		t.Fatalf("Expected DirectoryCreateError, got: %v", err)
	}
}

func TestFetchEmptyFilename(t *testing.T) {
	m := &stubMechanism{name: "m", content: "payload"}
	f := newFetcher(registry.New(registry.WithOrder(common.SchemeHTTP, m.name)), m)

	_, err := f.Fetch(context.Background(), mustDescriptor(t, "http://example.test/dir/"), t.TempDir())
	if !errors.Is(err, ErrEmptyFilename) {
		t.Fatalf("Expected ErrEmptyFilename, got: %v", err)
	}
	if m.Calls() != 0 {
		t.Errorf("no mechanism should run for an empty file name")
	}
}

func TestFetchPassesOptions(t *testing.T) {
	m := &stubMechanism{name: "m", content: "payload"}
	f := newFetcher(registry.New(registry.WithOrder(common.SchemeFTP, m.name)), m)

	if _, err := f.Fetch(context.Background(), mustDescriptor(t, "ftp://cpan.org/pub/x.txt"), t.TempDir()); err != nil {
		t.Fatal(err)
	}
	if !m.opts.Passive || m.opts.From != "me@example.test" {
		t.Errorf("options not passed through: %+v", m.opts)
	}
	if m.opts.Task == nil {
		t.Errorf("Task should be set for each attempt")
	}
}

func TestFetchConcurrent(t *testing.T) {
	missing := &stubMechanism{name: "missing", err: unavailableErr()}
	ok := &stubMechanism{name: "ok", content: "payload"}
	reg := registry.New(registry.WithOrder(common.SchemeHTTP, missing.name, ok.name))
	f := newFetcher(reg, missing, ok)

	dest := t.TempDir()
	var wg sync.WaitGroup
	for _, name := range []string{"a.txt", "b.txt", "c.txt", "d.txt", "a.txt"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			if _, err := f.Fetch(context.Background(), mustDescriptor(t, "http://example.test/"+name), dest); err != nil {
				t.Errorf("Fetch(%s) failed: %v", name, err)
			}
		}(name)
	}
	wg.Wait()

	if !reg.IsFailed(missing.name) {
		t.Errorf("unavailable mechanism should be marked failed")
	}
	if diff := cmp.Diff([]string{"a.txt", "b.txt", "c.txt", "d.txt"}, dirEntries(t, dest)); diff != "" {
		t.Errorf("destination contents mismatch (-want +got):\n%s", diff)
	}
}

// probingStub is a stubMechanism that also answers Probe.
type probingStub struct {
	stubMechanism
	probeErr error
}

func (p *probingStub) Probe() error { return p.probeErr }

func TestProbe(t *testing.T) {
	missing := &probingStub{stubMechanism: stubMechanism{name: "missing", content: "x"}, probeErr: unavailableErr()}
	present := &probingStub{stubMechanism: stubMechanism{name: "present", content: "x"}}
	plain := &stubMechanism{name: "plain", content: "x"}

	reg := registry.New(registry.WithOrder(common.SchemeHTTP, missing.name, present.name, plain.name))
	f := New(reg, map[string]downloader.Mechanism{
		missing.name: missing,
		present.name: present,
		plain.name:   plain,
	}, nil, downloader.Options{})

	f.Probe()
	if diff := cmp.Diff([]string{"missing"}, reg.Failed()); diff != "" {
		t.Errorf("Failed() mismatch (-want +got):\n%s", diff)
	}

	if _, err := f.Fetch(context.Background(), mustDescriptor(t, "http://example.test/x.txt"), t.TempDir()); err != nil {
		t.Fatal(err)
	}
	if missing.Calls() != 0 {
		t.Errorf("probed-out mechanism should not be attempted")
	}
	if present.Calls() != 1 {
		t.Errorf("present.Calls() = %d, want 1", present.Calls())
	}
}

func TestFetchLocalFileIntoItsOwnDirectory(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "data.txt")
	content := make([]byte, 4<<20)
	for i := range content {
		content[i] = byte(i)
	}
	if err := os.WriteFile(name, content, 0644); err != nil {
		t.Fatal(err)
	}

	f := New(registry.New(), downloader.Defaults(), nil, downloader.Options{})
	got, err := f.Fetch(context.Background(), mustDescriptor(t, "file://"+filepath.ToSlash(name)), dir)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if got != name {
		t.Errorf("Fetch returned %q, want %q", got, name)
	}
	data, _ := os.ReadFile(name)
	if len(data) != len(content) {
		t.Errorf("source has %d bytes after fetch, want %d", len(data), len(content))
	}
}

func TestFetchLocalDirectoryFails(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "sub"), 0755); err != nil {
		t.Fatal(err)
	}

	dest := t.TempDir()
	f := New(registry.New(), downloader.Defaults(), nil, downloader.Options{})
	_, err := f.Fetch(context.Background(), mustDescriptor(t, "file://"+filepath.ToSlash(root)+"/sub"), dest)
	if !errors.Is(err, ErrNoMechanismSucceeded) {
		t.Errorf("Expected ErrNoMechanismSucceeded, got: %v", err)
	}
	if entries := dirEntries(t, dest); len(entries) != 0 {
		t.Errorf("destination should stay empty, got %v", entries)
	}
}
