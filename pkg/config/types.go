// Package config manages ff's settings and directories.
// It follows XDG specifications for the settings file and default download location.
package config

import (
	"ff/pkg/common"
)

// OSType represents a target operating system.
type OSType = common.OSType

// ArchType represents a target CPU architecture.
type ArchType = common.ArchType

// ParseOS converts a string representation of an operating system into an OSType.
func ParseOS(os string) (OSType, error) {
	return common.ParseOS(os)
}

// ParseArch converts a string representation of a CPU architecture into an ArchType.
func ParseArch(arch string) (ArchType, error) {
	return common.ParseArch(arch)
}

// DefaultFrom is the placeholder contact address.
const DefaultFrom = "ff@example.com"

// Settings is the on-disk form of config.toml.
type Settings struct {
	// Passive selects passive FTP transfers.
	Passive *bool `toml:"passive"`
	// Verbose lets tool output through and enables debug logs.
	Verbose *bool `toml:"verbose"`
	// From is the anonymous FTP password and HTTP From header.
	From string `toml:"from"`
	// UserAgent overrides the default HTTP user agent.
	UserAgent string `toml:"user_agent"`
	// Blacklist replaces the default list of disabled mechanisms when set.
	Blacklist *[]string `toml:"blacklist"`
	// PreferBin puts command line tools ahead of libraries.
	PreferBin bool `toml:"prefer_bin"`
	// Timeout bounds each mechanism attempt, e.g. "30s".
	Timeout string `toml:"timeout"`
	// Destination is the default download directory.
	Destination string `toml:"destination"`
}
