package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/serial-plotter/backend/internal/export"
	"github.com/serial-plotter/backend/internal/ingest"
	"github.com/serial-plotter/backend/internal/parser"
	"github.com/serial-plotter/backend/internal/source"
	"github.com/spf13/cobra"
)

type parseOptions struct {
	strict bool
	noAuto bool
	window int
	csv    bool
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "serialplot",
		Short:         "Offline tools for serial plotter captures",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newParseCmd(), newSimulateCmd())
	return root
}

func newParseCmd() *cobra.Command {
	var opts parseOptions
	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Parse a capture and print a per-variable summary",
		Long: `Feeds every line of a capture (or stdin when no file is given) through
the same pipeline the server uses, then prints the resulting variables
with their colours and statistics. Gzip captures are not unpacked here;
pipe them through zcat.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "stdin"
			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("opening capture: %w", err)
				}
				defer f.Close()
				name, in = args[0], f
			}
			return runParse(cmd, name, in, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "use strict name:value tokenizing")
	cmd.Flags().BoolVar(&opts.noAuto, "no-auto", false, "do not create variables that no header declared")
	cmd.Flags().IntVar(&opts.window, "window", 0, "statistics window in samples (0 = all)")
	cmd.Flags().BoolVar(&opts.csv, "csv", false, "write the aligned series as CSV instead of a summary")
	return cmd
}

func runParse(cmd *cobra.Command, name string, in io.Reader, opts parseOptions) error {
	pipeOpts := ingest.DefaultOptions()
	pipeOpts.AutoVariableUpdate = !opts.noAuto
	if opts.strict {
		tk, err := parser.GetGlobalRegistry().GetTokenizerByName(parser.ModeStrict)
		if err != nil {
			return err
		}
		pipeOpts.Tokenizer = tk
	}
	p := ingest.New(pipeOpts)

	if err := source.NewReaderSource(name, in).Run(cmd.Context(), p.ProcessLine); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.csv {
		return export.SeriesCSV(out, p.AlignedSnapshot())
	}

	c := p.Counters()
	fmt.Fprintf(out, "%s: %d lines (%d data, %d header, %d ignored), %d samples\n",
		name, c.Lines, c.DataLines, c.HeaderLines, c.IgnoredLines, c.Samples)
	if c.Dropped > 0 {
		fmt.Fprintf(out, "%d values dropped by closed auto update\n", c.Dropped)
	}
	renderSummary(out, p.VariableConfig(), p.Stats(opts.window))
	return nil
}

func newSimulateCmd() *cobra.Command {
	cfg := source.DefaultSimulatorConfig()
	var lines int
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Print synthetic sine wave output",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if lines <= 0 {
				return fmt.Errorf("--lines must be positive")
			}
			sim := source.NewSimulator(cfg)
			_, err := io.WriteString(cmd.OutOrStdout(), strings.Join(sim.Lines(lines), "\n")+"\n")
			return err
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 200, "number of sample ticks to print")
	cmd.Flags().IntVar(&cfg.HeaderEvery, "header-every", cfg.HeaderEvery, "repeat the header every N ticks")
	cmd.Flags().Float64Var(&cfg.Step, "step", cfg.Step, "phase step per tick")
	return cmd
}
