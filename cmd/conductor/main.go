package main

import (
	"fmt"
	"os"

	"github.com/janoschsimon/Digital-Director/internal/logging"
	"github.com/janoschsimon/Digital-Director/preset"
	"github.com/janoschsimon/Digital-Director/rules"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type globalFlags struct {
	config string
	debug  bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "conductor",
		Short: "Render expressive performances from quantized note files",
		Long: `conductor shapes timing, velocity and duration of quantized voices,
builds per-phrase dynamics curves and inserts articulation keyswitches.

Configuration is a directory with rules, dynamics and articulations files
(.json, .yaml or .yml). Without --config the built-in defaults are used.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&g.config, "config", "c", "", "Configuration directory (default: built-in presets)")
	root.PersistentFlags().BoolVar(&g.debug, "debug", false, "Enable debug logging with rule detail")

	root.AddCommand(newRenderCmd(g), newValidateCmd(g), newArticulateCmd(g))
	return root
}

func (g *globalFlags) bundle() (*preset.Bundle, error) {
	if g.config == "" {
		return preset.Default()
	}
	return preset.LoadDir(g.config)
}

func newValidateCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load and check a configuration directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := g.bundle()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			src := g.config
			if src == "" {
				src = "built-in"
			}
			fmt.Fprintf(out, "configuration %s OK\n", src)
			for _, cat := range rules.Categories {
				fmt.Fprintf(out, "  %-6s rules: %v\n", cat, b.Rules.Combinator.Enabled(cat))
			}
			lo, hi := b.Dynamics.Velocity.Range()
			fmt.Fprintf(out, "  dynamic range: %.0f..%.0f\n", lo, hi)
			fmt.Fprintf(out, "  instruments: %v\n", b.Catalog.Instruments())
			logging.New(cmd.ErrOrStderr(), g.debug).Debug("configuration loaded", "source", src)
			return nil
		},
	}
}
