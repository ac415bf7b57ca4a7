// Command i3mconv converts a directory tree of engine scene files
// (.gltf, .glb, .ntsm) into i3m documents, mirroring the tree.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/netisu/i3m/config"
	"github.com/netisu/i3m/convert"
	"github.com/netisu/i3m/loader"
)

func main() {
	os.Exit(execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the command line args and returns the exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var (
		cfgPath string
		flags   = config.Default()
		code    = convert.ExitOK
	)
	cmd := &cobra.Command{
		Use:           "i3mconv -i <input-dir> -o <output-dir>",
		Short:         "Recursively convert engine scene files to i3m documents",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolve(cmd, cfgPath, flags)
			if err != nil {
				return err
			}
			code = run(cmd.Context(), cfg, stdout, stderr)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&cfgPath, "config", "c", "", "config file (.toml, .yaml)")
	f.StringVarP(&flags.Source, "input-dir", "i", "", "directory containing source scene files")
	f.StringVarP(&flags.Dest, "output-dir", "o", "", "directory where converted files are saved")
	f.StringSliceVar(&flags.Extensions, "ext", flags.Extensions, "source file extensions")
	f.StringVar(&flags.TargetExt, "target-ext", flags.TargetExt, "extension of converted files")
	f.IntVarP(&flags.Concurrency, "concurrency", "j", flags.Concurrency, "number of concurrent conversions")
	f.BoolVar(&flags.DryRun, "dry-run", false, "convert without writing files")
	f.BoolVarP(&flags.Verbose, "verbose", "v", false, "enable verbose logging")
	f.BoolVar(&flags.Watch, "watch", false, "keep running and reconvert changed files")
	f.BoolVar(&flags.ValidateMesh, "validate-mesh", false, "decode embedded meshes while loading")
	f.StringVar(&flags.LogFormat, "log-format", flags.LogFormat, "log format: text or json")

	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "i3mconv:", err)
		return convert.ExitFatal
	}
	return code
}

// resolve layers the config file and explicitly set flags over the
// defaults.
func resolve(cmd *cobra.Command, path string, flags config.Config) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}
	f := cmd.Flags()
	set := func(name string, apply func()) {
		if f.Changed(name) {
			apply()
		}
	}
	set("input-dir", func() { cfg.Source = flags.Source })
	set("output-dir", func() { cfg.Dest = flags.Dest })
	set("ext", func() { cfg.Extensions = flags.Extensions })
	set("target-ext", func() { cfg.TargetExt = flags.TargetExt })
	set("concurrency", func() { cfg.Concurrency = flags.Concurrency })
	set("dry-run", func() { cfg.DryRun = flags.DryRun })
	set("verbose", func() { cfg.Verbose = flags.Verbose })
	set("watch", func() { cfg.Watch = flags.Watch })
	set("validate-mesh", func() { cfg.ValidateMesh = flags.ValidateMesh })
	set("log-format", func() { cfg.LogFormat = flags.LogFormat })

	if err := cfg.ExpandPaths(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.Verbose {
		opts.Level = slog.LevelDebug
	}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func run(ctx context.Context, cfg config.Config, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(cfg, stderr)
	conv := &convert.Converter{
		Registry: convert.DefaultRegistry(),
		Env:      &loader.Env{Logger: logger, ValidateMesh: cfg.ValidateMesh},
		Logger:   logger,
		DryRun:   cfg.DryRun,
	}
	opts := convert.Options{
		Source:      cfg.Source,
		Dest:        cfg.Dest,
		Extensions:  cfg.Extensions,
		TargetExt:   cfg.TargetExt,
		Concurrency: cfg.Concurrency,
	}

	rep, err := convert.Run(ctx, conv, opts)
	if err != nil {
		logger.Error("run failed", "err", err)
		return convert.ExitFatal
	}
	rep.Print(stdout)

	if cfg.Watch {
		if err := convert.Watch(ctx, conv, opts, rep); err != nil {
			logger.Error("watch failed", "err", err)
			if errors.Is(err, convert.ErrFatal) {
				return convert.ExitFatal
			}
		}
		rep.Print(stdout)
	}

	if rep.ExitCode() != convert.ExitOK && !cfg.DryRun {
		fmt.Fprintln(stdout, "\nTip: check the log for details on failed conversions.")
	}
	return rep.ExitCode()
}
