package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"ff/pkg/registry"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
)

// ReadOnly defines the read-only interface for Config.
// Immutable
type ReadOnly interface {
	GetConfigDir() string
	GetConfigFile() string
	GetDestination() string
	GetFrom() string
	GetUserAgent() string
	GetBlacklist() []string
	GetTimeout() time.Duration
	IsPassive() bool
	IsVerbose() bool
	PreferBin() bool
	Freeze()
	Checkout() Writable
}

// Writable defines the writable interface for Config.
// Mutable
type Writable interface {
	ReadOnly
	SetDestination(string)
	SetPassive(bool)
	SetVerbose(bool)
	SetPreferBin(bool)
	SetTimeout(time.Duration)
	SetFrom(string)
}

// Config holds the resolved settings for one ff process.
// Mutable
type Config struct {
	configDir   string
	configFile  string
	destination string

	passive   bool
	verbose   bool
	preferBin bool
	from      string
	userAgent string
	blacklist []string
	timeout   time.Duration

	frozen bool
	edited bool
}

var _ ReadOnly = (*Config)(nil)
var _ Writable = (*Config)(nil)

func (c *Config) GetConfigDir() string      { return c.configDir }
func (c *Config) GetConfigFile() string     { return c.configFile }
func (c *Config) GetDestination() string    { return c.destination }
func (c *Config) GetFrom() string           { return c.from }
func (c *Config) GetUserAgent() string      { return c.userAgent }
func (c *Config) GetBlacklist() []string    { return slices.Clone(c.blacklist) }
func (c *Config) GetTimeout() time.Duration { return c.timeout }
func (c *Config) IsPassive() bool           { return c.passive }
func (c *Config) IsVerbose() bool           { return c.verbose }
func (c *Config) PreferBin() bool           { return c.preferBin }

func (c *Config) mutate() {
	if c.frozen {
		panic("cannot modify frozen config")
	}
}

func (c *Config) SetDestination(s string) {
	c.mutate()
	c.destination = s
}

func (c *Config) SetPassive(b bool) {
	c.mutate()
	c.passive = b
}

func (c *Config) SetVerbose(b bool) {
	c.mutate()
	c.verbose = b
}

func (c *Config) SetPreferBin(b bool) {
	c.mutate()
	c.preferBin = b
}

func (c *Config) SetTimeout(d time.Duration) {
	c.mutate()
	c.timeout = d
}

func (c *Config) SetFrom(s string) {
	c.mutate()
	c.from = s
}

func (c *Config) Freeze() {
	c.frozen = true
}

func (c *Config) Checkout() Writable {
	if c.frozen {
		panic("cannot checkout from frozen config")
	}
	if c.edited {
		panic("config already checked out")
	}
	c.edited = true
	return c
}

func defaults(configDir string) *Config {
	return &Config{
		configDir:   configDir,
		configFile:  filepath.Join(configDir, "config.toml"),
		destination: xdg.UserDirs.Download,
		passive:     true,
		from:        DefaultFrom,
		userAgent:   DefaultUserAgent(),
		blacklist:   slices.Clone(registry.DefaultBlacklist),
	}
}

// Init builds the configuration from the XDG config directory.
// path selects an explicit settings file; when empty, config.toml in the
// XDG config directory is read if it exists.
func Init(path string) (ReadOnly, error) {
	c := defaults(filepath.Join(xdg.ConfigHome, "ff"))

	explicit := path != ""
	if explicit {
		c.configFile = path
	}

	if err := c.load(explicit); err != nil {
		return nil, err
	}
	return c, nil
}

// NewTestConfig returns defaults rooted at dir, without reading any file.
func NewTestConfig(dir string) *Config {
	c := defaults(filepath.Join(dir, "config"))
	c.destination = filepath.Join(dir, "downloads")
	return c
}

func (c *Config) load(required bool) error {
	var s Settings
	if _, err := toml.DecodeFile(c.configFile, &s); err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config %s: %w", c.configFile, err)
	}
	return c.apply(&s)
}

func (c *Config) apply(s *Settings) error {
	if s.Passive != nil {
		c.passive = *s.Passive
	}
	if s.Verbose != nil {
		c.verbose = *s.Verbose
	}
	if s.From != "" {
		c.from = s.From
	}
	if s.UserAgent != "" {
		c.userAgent = s.UserAgent
	}
	if s.Blacklist != nil {
		c.blacklist = slices.Clone(*s.Blacklist)
	}
	c.preferBin = c.preferBin || s.PreferBin
	if s.Timeout != "" {
		d, err := time.ParseDuration(s.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", s.Timeout, err)
		}
		if d < 0 {
			return fmt.Errorf("invalid timeout %q: must not be negative", s.Timeout)
		}
		c.timeout = d
	}
	if s.Destination != "" {
		c.destination = expandHome(s.Destination)
	}
	return nil
}

func expandHome(p string) string {
	if len(p) > 1 && p[0] == '~' && p[1] == '/' {
		return filepath.Join(xdg.Home, p[2:])
	}
	if p == "~" {
		return xdg.Home
	}
	return p
}
