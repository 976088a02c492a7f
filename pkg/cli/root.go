// Package cli wires ff's commands to the fetcher.
package cli

import (
	"fmt"
	"log/slog"

	"ff/pkg/config"
	"ff/pkg/display"
	"ff/pkg/downloader"
	"ff/pkg/fetcher"
	"ff/pkg/registry"

	"github.com/spf13/cobra"
)

// globals are the flags shared by every command.
type globals struct {
	configPath string
	verbose    bool
}

// NewRootCommand builds the ff command tree. Progress and logs go to disp.
func NewRootCommand(disp display.Display) *cobra.Command {
	g := &globals{}
	theme := DefaultTheme()

	cmd := &cobra.Command{
		Use:           "ff",
		Short:         "ff - fetch a single remote file, falling back between mechanisms",
		Version:       config.BuildVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(c *cobra.Command, args []string) error {
			if g.verbose {
				slog.SetLogLoggerLevel(slog.LevelDebug)
				disp.SetVerbose(true)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Show tool output and debug logs")
	cmd.PersistentFlags().StringVar(&g.configPath, "config", "", "Settings file (default $XDG_CONFIG_HOME/ff/config.toml)")

	cmd.AddCommand(
		newGetCommand(g, disp),
		newMechanismsCommand(g, disp, theme),
		newVersionCommand(),
	)
	return cmd
}

// loadConfig reads the settings and returns a checked out copy the
// command may adjust from its flags before freezing.
func (g *globals) loadConfig(disp display.Display) (config.Writable, error) {
	cfg, err := config.Init(g.configPath)
	if err != nil {
		return nil, fmt.Errorf("error initializing config: %w", err)
	}
	w := cfg.Checkout()
	if g.verbose {
		w.SetVerbose(true)
	}
	if w.IsVerbose() {
		slog.SetLogLoggerLevel(slog.LevelDebug)
		disp.SetVerbose(true)
	}
	return w, nil
}

func newRegistry(cfg config.ReadOnly) *registry.Registry {
	opts := []registry.Option{registry.WithBlacklist(cfg.GetBlacklist()...)}
	if cfg.PreferBin() {
		opts = append(opts, registry.WithPreferBin())
	}
	return registry.New(opts...)
}

func newFetcher(cfg config.ReadOnly, disp display.Display) *fetcher.Fetcher {
	return fetcher.New(newRegistry(cfg), downloader.Defaults(), disp, downloader.Options{
		Passive:   cfg.IsPassive(),
		Verbose:   cfg.IsVerbose(),
		From:      cfg.GetFrom(),
		UserAgent: cfg.GetUserAgent(),
		Timeout:   cfg.GetTimeout(),
	})
}
