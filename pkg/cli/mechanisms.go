package cli

import (
	"strconv"
	"strings"

	"ff/pkg/common"
	"ff/pkg/display"
	"ff/pkg/registry"

	"github.com/spf13/cobra"
)

func newMechanismsCommand(g *globals, disp display.Display, theme *Theme) *cobra.Command {
	var probe bool

	cmd := &cobra.Command{
		Use:   "mechanisms [scheme]",
		Short: "List the retrieval mechanisms tried for each scheme, in order",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(disp)
			if err != nil {
				return err
			}
			cfg.Freeze()
			ft := newFetcher(cfg, disp)
			reg := ft.Registry()
			if probe {
				ft.Probe()
			}

			schemes := reg.Schemes()
			if len(args) == 1 {
				s, err := common.ParseScheme(args[0])
				if err != nil {
					return err
				}
				schemes = []common.Scheme{s}
			}

			out := &common.Output{
				Table: &common.Table{Header: []string{"SCHEME", "ORDER", "MECHANISM", "KIND", "STATE"}},
			}
			for _, s := range schemes {
				for i, name := range reg.MechanismsFor(s) {
					out.Table.Rows = append(out.Table.Rows, []string{
						s.String(), strconv.Itoa(i + 1), name, kind(name), state(reg, theme, name),
					})
				}
			}
			if bl := reg.Blacklist(); len(bl) > 0 {
				out.KV = append(out.KV, common.KV{Key: "blacklist", Value: strings.Join(bl, ", ")})
			}
			disp.Render(out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&probe, "probe", false, "Check which mechanisms can run here and mark the rest failed")
	return cmd
}

func kind(name string) string {
	if registry.IsBinary(name) {
		return "binary"
	}
	return "library"
}

func state(reg *registry.Registry, theme *Theme, name string) string {
	switch {
	case reg.IsBlacklisted(name):
		return theme.Styled(theme.Yellow, "blacklisted")
	case reg.IsFailed(name):
		return theme.Styled(theme.Red, "failed")
	default:
		return theme.Styled(theme.Green, "allowed")
	}
}
