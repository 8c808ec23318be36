package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/mrclmr/vocalprep/internal/audio"
	"github.com/mrclmr/vocalprep/internal/config"
	"github.com/mrclmr/vocalprep/internal/log"
	"github.com/mrclmr/vocalprep/internal/split"

	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// app carries what the commands share: the injected side effects and the
// configuration resolved before a command runs.
type app struct {
	execCmdCtx audio.ExecCmdCtx
	lookuper   envconfig.Lookuper
	stdout     io.Writer
	stderr     io.Writer

	flags flags
	cfg   *config.Config
}

type flags struct {
	configPath    string
	outputDir     string
	logLevel      string
	logFormat     string
	noProgress    bool
	sourceDir     string
	segmentLength time.Duration
	jobs          int
	evalFraction  float64
	holdoutCount  int
	holdoutLabels []string
	seed          uint64
}

func ExecuteContext(ctx context.Context, version string) error {
	a := &app{
		execCmdCtx: audio.ToExecCmdCtx(exec.CommandContext),
		lookuper:   envconfig.OsLookuper(),
		stdout:     os.Stdout,
		stderr:     os.Stderr,
	}
	return newRootCmd(version, a).ExecuteContext(ctx)
}

func newRootCmd(version string, a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Version:           version,
		Use:               "vocalprep",
		Short:             "Prepare a speaker classification dataset from audio recordings",
		Long:              "Segment recordings into fixed-length clips, write a labeled manifest and split it into train and validation lists.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[skipConfig] != "" {
				return nil
			}
			return a.configure(cmd)
		},
	}
	rootCmd.SetOut(a.stdout)
	rootCmd.SetErr(a.stderr)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&a.flags.configPath, "config", "c", "", "configuration file (yaml)")
	pf.StringVarP(&a.flags.outputDir, "output-dir", "o", "", "directory of clips and generated lists")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "debug, info, warn or error")
	pf.StringVar(&a.flags.logFormat, "log-format", "", "plain, text or json")
	pf.BoolVar(&a.flags.noProgress, "no-progress", false, "disable progress bars")
	_ = rootCmd.RegisterFlagCompletionFunc("config", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"yml", "yaml"}, cobra.ShellCompDirectiveFilterFileExt
	})

	exampleCmd := &cobra.Command{
		Use:               "example",
		Short:             "Print example configuration yaml",
		Args:              cobra.NoArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		Annotations:       map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprint(cmd.OutOrStdout(), config.Example())
			return err
		},
	}

	rootCmd.AddCommand(
		newRunCmd(a),
		newSegmentCmd(a),
		newManifestCmd(a),
		newSplitCmd(a),
		newPublishCmd(a),
		exampleCmd,
		newManCmd(rootCmd),
	)
	return rootCmd
}

const skipConfig = "skip-config"

func addSegmentFlags(a *app, fs *pflag.FlagSet) {
	fs.StringVarP(&a.flags.sourceDir, "source", "s", "", "directory of source recordings")
	fs.DurationVar(&a.flags.segmentLength, "segment-length", 0, "length of each clip")
	fs.IntVarP(&a.flags.jobs, "jobs", "j", 0, "speakers processed in parallel")
}

func addSplitFlags(a *app, fs *pflag.FlagSet) {
	fs.Float64Var(&a.flags.evalFraction, "eval-fraction", 0, "fraction of rows for validation")
	fs.IntVar(&a.flags.holdoutCount, "holdout-count", 0, "number of randomly chosen labels held out for validation")
	fs.StringSliceVar(&a.flags.holdoutLabels, "holdout-labels", nil, "labels held out for validation")
	fs.Uint64Var(&a.flags.seed, "seed", 0, "random seed, 0 picks one")
}

// configure resolves defaults, file, environment and flags, then installs the logger.
func (a *app) configure(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Context(), a.flags.configPath, a.lookuper)
	if err != nil {
		return err
	}
	if err := a.applyFlags(cmd.Flags(), cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := log.New(a.stdout, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	slog.Debug("configuration", "config", cfg)

	a.cfg = cfg
	return nil
}

func (a *app) applyFlags(fs *pflag.FlagSet, cfg *config.Config) error {
	f := a.flags
	if fs.Changed("output-dir") {
		cfg.OutputDir = f.outputDir
	}
	if fs.Changed("log-level") {
		if err := cfg.LogLevel.UnmarshalText([]byte(f.logLevel)); err != nil {
			return fmt.Errorf("--log-level: %w", err)
		}
	}
	if fs.Changed("log-format") {
		cfg.LogFormat = f.logFormat
	}
	if fs.Changed("no-progress") {
		cfg.Progress = !f.noProgress
	}
	if fs.Changed("source") {
		cfg.SourceDir = f.sourceDir
	}
	if fs.Changed("segment-length") {
		cfg.SegmentLength = f.segmentLength
	}
	if fs.Changed("jobs") {
		cfg.Jobs = f.jobs
	}

	if fs.Changed("holdout-count") && fs.Changed("holdout-labels") {
		return fmt.Errorf("%w: --holdout-count and --holdout-labels", split.ErrConflictingPolicies)
	}
	if fs.Changed("holdout-count") {
		cfg.Split.HoldoutCount = f.holdoutCount
		cfg.Split.HoldoutLabels = nil
	}
	if fs.Changed("holdout-labels") {
		cfg.Split.HoldoutLabels = f.holdoutLabels
		cfg.Split.HoldoutCount = 0
	}
	if fs.Changed("eval-fraction") {
		if cfg.Split.HoldoutCount != 0 || len(cfg.Split.HoldoutLabels) > 0 {
			return fmt.Errorf("%w: --eval-fraction with a label holdout", split.ErrConflictingPolicies)
		}
		cfg.Split.EvalFraction = f.evalFraction
	}
	if fs.Changed("seed") {
		cfg.Split.Seed = f.seed
	}
	return nil
}

func (a *app) progressOut() io.Writer {
	if !a.cfg.Progress {
		return nil
	}
	return a.stderr
}
