package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"ff/pkg/common"
	"ff/pkg/display"
	"ff/pkg/source"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type getFlags struct {
	dest      string
	passive   bool
	preferBin bool
	from      string
	timeout   string
	jobs      int
}

func newGetCommand(g *globals, disp display.Display) *cobra.Command {
	f := &getFlags{}

	cmd := &cobra.Command{
		Use:   "get URI...",
		Short: "Fetch files into a directory",
		Example: "  ff get http://example.com/pub/file.tar.gz\n" +
			"  ff get --dest /tmp ftp://ftp.cpan.org/pub/CPAN/index.html file:///etc/hosts",
		Args: cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(disp)
			if err != nil {
				return err
			}

			flags := c.Flags()
			if flags.Changed("dest") {
				cfg.SetDestination(f.dest)
			}
			if flags.Changed("passive") {
				cfg.SetPassive(f.passive)
			}
			if flags.Changed("prefer-bin") {
				cfg.SetPreferBin(f.preferBin)
			}
			if flags.Changed("from") {
				cfg.SetFrom(f.from)
			}
			if flags.Changed("timeout") {
				d, err := parseTimeout(f.timeout)
				if err != nil {
					return err
				}
				cfg.SetTimeout(d)
			}
			cfg.Freeze()

			if cfg.GetDestination() == "" {
				return fmt.Errorf("no destination directory: use --dest")
			}

			// Parse everything first so a typo fails before any transfer.
			srcs := make([]*source.Descriptor, len(args))
			for i, uri := range args {
				srcs[i], err = source.FromURI(uri)
				if err != nil {
					return err
				}
			}

			ft := newFetcher(cfg, disp)
			results := make([]common.FetchResult, len(srcs))
			errs := make([]error, len(srcs))

			var eg errgroup.Group
			eg.SetLimit(max(f.jobs, 1))
			for i, src := range srcs {
				eg.Go(func() error {
					path, err := ft.Fetch(c.Context(), src, cfg.GetDestination())
					if err != nil {
						errs[i] = err
						return nil
					}
					results[i] = common.FetchResult{URI: src.URI(), Path: path}
					if info, err := os.Stat(path); err == nil {
						results[i].Size = info.Size()
					}
					return nil
				})
			}
			_ = eg.Wait()

			// Bare paths go to stdout for scripts; the summary goes to the display.
			out := c.OutOrStdout()
			summary := &common.Output{Table: &common.Table{Header: []string{"URI", "PATH", "SIZE"}}}
			for _, r := range results {
				if r.Path == "" {
					continue
				}
				fmt.Fprintln(out, r.Path)
				summary.Table.Rows = append(summary.Table.Rows, []string{r.URI, r.Path, humanize.Bytes(uint64(r.Size))})
			}
			if len(summary.Table.Rows) > 0 {
				disp.Render(summary)
			}
			return errors.Join(errs...)
		},
	}

	cmd.Flags().StringVarP(&f.dest, "dest", "d", "", "Destination directory (default from config, else the XDG download dir)")
	cmd.Flags().BoolVar(&f.passive, "passive", true, "Use passive FTP")
	cmd.Flags().BoolVar(&f.preferBin, "prefer-bin", false, "Try command line tools before libraries")
	cmd.Flags().StringVar(&f.from, "from", "", "Contact address sent as FTP password and HTTP From header")
	cmd.Flags().StringVar(&f.timeout, "timeout", "", "Per-mechanism timeout, e.g. 30s")
	cmd.Flags().IntVarP(&f.jobs, "jobs", "j", 4, "Number of files fetched at once")
	return cmd
}

func parseTimeout(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid --timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid --timeout: %s is negative", s)
	}
	return d, nil
}
