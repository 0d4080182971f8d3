package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/zeusync/drgpu/internal/core/analysis"
	"github.com/zeusync/drgpu/internal/core/config"
	"github.com/zeusync/drgpu/internal/core/observability/diag"
	"github.com/zeusync/drgpu/internal/core/observability/log"
	"github.com/zeusync/drgpu/internal/core/sourcemap"
	"github.com/zeusync/drgpu/internal/injector"
	"github.com/zeusync/drgpu/internal/render"
	"github.com/zeusync/drgpu/internal/report"
	"github.com/zeusync/drgpu/internal/server"
)

type analyzeOptions struct {
	report      string
	output      string
	source      string
	config      string
	id          int
	allKernels  bool
	format      string
	outDir      string
	parallelism int
}

var logLevel string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "drgpu",
		Short: "Attribute GPU kernel stalls to their causes",
		Long: `drgpu reads the raw CSV page of an Nsight Compute report and builds a tree that
breaks the idle issue cycles of a kernel down into stall reasons, memory units and
source lines, with suggestions attached where a known pattern applies.

Examples:
  drgpu analyze -i report.csv                   # first kernel, gtx1650 profile, dots/report.svg
  drgpu analyze -i report.csv -c a100 --id 2    # third kernel on an A100
  drgpu analyze -i report.csv --all-kernels --format json
  drgpu serve --addr :8080`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(newAnalyzeCmd(), newConfigsCmd(), newServeCmd())
	return root
}

func newAnalyzeCmd() *cobra.Command {
	o := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze -i REPORT",
		Short: "Build the bottleneck tree of one or all kernels of a report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalyze(cmd.Context(), o, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.report, "report-path", "i", "", "raw CSV report exported by Nsight Compute")
	f.StringVarP(&o.output, "output", "o", "", "output file name without extension (default: report name)")
	f.StringVarP(&o.source, "source", "s", "", "per-line source CSV exported by Nsight Compute")
	f.StringVarP(&o.config, "memoryconfig", "c", "", "GPU profile name or configuration file (default: "+config.DefaultProfile+")")
	f.IntVar(&o.id, "id", 0, "index of the kernel to analyze")
	f.BoolVar(&o.allKernels, "all-kernels", false, "analyze every kernel of the report")
	f.StringVar(&o.format, "format", string(render.FormatSVG), "output format: svg, dot or json")
	f.StringVar(&o.outDir, "out-dir", "dots", "directory receiving the output files")
	f.IntVar(&o.parallelism, "parallelism", runtime.NumCPU(), "kernels analyzed at once with --all-kernels")
	_ = cmd.MarkFlagRequired("report-path")
	return cmd
}

func runAnalyze(ctx context.Context, o *analyzeOptions, out io.Writer) error {
	format, err := render.ParseFormat(o.format)
	if err != nil {
		return err
	}
	if o.config == "" {
		fmt.Fprintf(out, "No GPU configuration given, using %s as the default GPU configuration.\n", config.DefaultProfile)
	}

	app, err := injector.InitializeApp(o.config, log.ParseLevel(logLevel))
	if err != nil {
		return err
	}
	defer app.Logger.Sync()

	fmt.Fprintf(out, "Report path: %s\n", o.report)
	if o.source != "" {
		fmt.Fprintf(out, "Source path: %s\n", o.source)
	}

	kernels, err := report.NewReader(app.Config, app.Logger).ReadFile(o.report)
	if err != nil {
		return err
	}
	var src *sourcemap.Source
	if o.source != "" {
		if src, err = report.ReadSourceFile(o.source); err != nil {
			return err
		}
	}

	selected := kernels
	if !o.allKernels || src != nil {
		k, err := report.Select(kernels, o.id)
		if err != nil {
			return err
		}
		if !o.allKernels {
			selected = []*report.Kernel{k}
		}
	}

	analyses := make([]*analysis.Analysis, len(selected))
	for i, k := range selected {
		analyses[i] = analysis.New(k.ShortName(), k.Stats)
		// the source report describes the kernel chosen with --id
		if src != nil && k.Index == o.id {
			analyses[i].WithSource(src)
		}
	}

	results, err := app.Engine.RunBatch(ctx, analyses, o.parallelism)
	if err != nil {
		return err
	}

	name := outputName(o)
	for i, res := range results {
		filename := name
		if o.allKernels {
			filename = fmt.Sprintf("%s_%d", name, selected[i].Index)
		}
		diags := diag.NewCollector(app.Logger)
		path, err := render.WriteFile(ctx, o.outDir, filename, res, format, diags)
		if err != nil {
			return errors.Wrapf(err, "render kernel %s", res.KernelName)
		}
		if n := len(res.Diagnostics) + diags.Len(); n > 0 {
			fmt.Fprintf(out, "%s: tree built with %d diagnostics\n", res.KernelName, n)
		}
		fmt.Fprintf(out, "save to %s\n", path)
	}
	return nil
}

func outputName(o *analyzeOptions) string {
	if o.output != "" {
		return o.output
	}
	base := filepath.Base(o.report)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func newConfigsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configs",
		Short: "List the embedded GPU profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range config.List() {
				marker := " "
				if name == config.DefaultProfile {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, name)
			}
			return nil
		},
	}
}

func newServeCmd() *cobra.Command {
	cfg := server.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve analyses over HTTP and WebSocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&cfg.ListenAddr, "addr", cfg.ListenAddr, "listen address")
	cmd.Flags().Int64Var(&cfg.MaxReportSize, "max-report-size", cfg.MaxReportSize, "largest accepted report in bytes")
	return cmd
}

func runServe(ctx context.Context, cfg server.Config) error {
	srv := injector.InitializeServer(cfg, log.ParseLevel(logLevel))
	if err := srv.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	return srv.Stop(context.Background())
}
