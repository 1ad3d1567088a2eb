package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/ancientlore/inkwell/site"
	"github.com/spf13/cobra"
)

func newBuildCmd(g *globals) *cobra.Command {
	var (
		minify bool
		strict bool
		drafts bool
		output string
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the site into the output directory",
		Long: `build renders every published item and the listing pages, copies the
theme and site assets, and replaces the output directory in one step. If
anything fails the output directory is left as it was.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if output != "" {
				cfg.OutputDir = output
			}
			b := site.NewBuilder(cfg, g.logger)
			b.Minify = b.Minify || minify
			b.Strict = b.Strict || strict
			b.Drafts = drafts

			res, err := b.Build(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Built %d pages into %s in %s\n", res.Pages, b.Output.Dir(), res.Duration.Round(time.Millisecond))
			if n := len(res.Skipped); n > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Skipped %d content files that could not be parsed\n", n)
			}
			return nil
		},
	}

	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	fs.BoolVar(&minify, "minify", false, "Minify HTML, CSS, JavaScript, JSON, SVG and XML output.")
	fs.BoolVar(&strict, "strict", false, "Fail on the first content file that cannot be parsed.")
	fs.BoolVar(&drafts, "draft", false, "Include drafts.")
	fs.StringVar(&output, "output", "", "Output directory relative to the site root, overriding outputDir.")
	g.addFlags(cmd, fs, false)
	return cmd
}
