package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"scenegen/internal/bootstrap"
	"scenegen/internal/domain"
	"scenegen/internal/infra"
	"scenegen/internal/pregen"
)

// Exit codes reported to the shell.
const (
	exitOK          = 0
	exitPartial     = 1
	exitFailed      = 2
	exitInterrupted = 130
)

// sequentialLimit is the largest pending set processed one at a time.
const sequentialLimit = 4

type options struct {
	force      bool
	portraitID string
	buildType  string
	dryRun     bool
	logFile    string
}

// Execute parses the command line, runs the selected command and returns the
// process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var opts options
	code := exitOK
	root := &cobra.Command{
		Use:           "pregen",
		Short:         "Pre-generate first scenes for every portrait and build combination",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := runGenerate(cmd.Context(), opts)
			code = c
			return err
		},
	}
	flags := root.PersistentFlags()
	flags.BoolVar(&opts.force, "force", false, "regenerate scenes that already exist")
	flags.StringVar(&opts.portraitID, "portrait-id", "", "only this preset portrait (m1..m4, f1..f4)")
	flags.StringVar(&opts.buildType, "build-type", "", "only this build type (warrior, mage, rogue, ranger)")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "list pending combinations without generating")
	flags.StringVar(&opts.logFile, "log-file", "", "also write JSON logs to this rotating file")

	root.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the stored status of every combination",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), opts)
		},
	})

	err := root.ExecuteContext(ctx)
	if ctx.Err() != nil {
		fmt.Fprintln(os.Stderr, "\ninterrupted")
		return exitInterrupted
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "pregen: %v\n", err)
		if code == exitOK {
			code = exitFailed
		}
	}
	return code
}

func setup(ctx context.Context, opts options) (*bootstrap.Services, *infra.Logger, error) {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	if opts.logFile != "" {
		cfg.LogFile = opts.logFile
	}
	logger := infra.NewLoggerWithFile(cfg.AppEnv, cfg.LogFile).With().Str("cmd", "pregen").Logger()

	svc, err := bootstrap.Build(ctx, cfg, &logger)
	if err != nil {
		return nil, nil, err
	}
	return svc, &logger, nil
}

func runGenerate(ctx context.Context, opts options) (int, error) {
	combos, err := parseFilters(opts.portraitID, opts.buildType)
	if err != nil {
		return exitFailed, err
	}

	svc, logger, err := setup(ctx, opts)
	if err != nil {
		return exitFailed, err
	}
	defer svc.Close(context.Background())

	if !opts.dryRun && !svc.StoryReady() {
		return exitFailed, errors.New("GEMINI_API_KEY is not configured")
	}

	plan := svc.Engine.Plan(ctx, combos, opts.force)
	if opts.dryRun {
		writePlan(os.Stdout, plan)
		return exitOK, nil
	}
	if len(plan.Pending) == 0 {
		fmt.Fprintf(os.Stdout, "All %d scenes already generated.\n", plan.Total)
		return exitOK, nil
	}

	logger.Info().
		Int("total", plan.Total).
		Int("pending", len(plan.Pending)).
		Bool("force", opts.force).
		Msg("pregen: starting generation")

	bar := newProgressBar(os.Stderr, len(plan.Pending))
	var run domain.BatchRun
	if len(plan.Pending) <= sequentialLimit {
		run = svc.Engine.ExecuteSequential(ctx, plan, bar.advance)
	} else {
		run = svc.Engine.Execute(ctx, plan, bar.advance)
	}

	writeSummary(os.Stdout, run)
	if err := pregen.RunError(ctx, run); err != nil {
		logger.Warn().Err(err).Msg("pregen: run finished with failures")
	}
	return exitCode(run), nil
}

func runStatus(ctx context.Context, opts options) error {
	svc, _, err := setup(ctx, opts)
	if err != nil {
		return err
	}
	defer svc.Close(context.Background())

	rows, err := svc.Store.List(ctx)
	if err != nil {
		return fmt.Errorf("list scenes: %w", err)
	}
	writeStatus(os.Stdout, rows)
	return nil
}
