package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"reddigest/internal/config"
	"reddigest/internal/digest"
	"reddigest/internal/notifier"
	"reddigest/internal/scheduler"
	"reddigest/internal/source"
	"reddigest/internal/summarizer"
)

const usage = `Usage: reddigest [-window week] [-dry-run] <community> [<post_limit>]

Summarizes the top posts of a Reddit community as a dialogue and posts it to
the configured channel.

`

var errUsage = errors.New("invalid arguments")

type args struct {
	community string
	limit     int
	window    string
	dryRun    bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(argv []string, stdout, stderr io.Writer) int {
	a, err := parseArgs(argv, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stderr, err)
		}
		return 1
	}

	if err = godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(stderr, "load .env: %v\n", err)
		return 1
	}

	overrides := map[string]string{}
	if a.window != "" {
		overrides["TIME_WINDOW"] = a.window
	}
	if a.dryRun {
		overrides["DRY_RUN"] = "true"
	}

	cfg, err := config.Load(overrides)
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}

	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.LogLevelValue()}))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()

	d, n, err := build(ctx, cfg, stdout, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize",
			"error", err,
			"engine", cfg.AI.Engine,
			"source", cfg.ContentSource,
			"notifier", cfg.Notifier)

		return 1
	}
	defer notifier.Close(n)

	if cfg.Schedule != "" {
		return runScheduled(ctx, cfg.Schedule, d, a, log)
	}

	if _, err = d.Run(ctx, a.community, a.limit); err != nil {
		log.ErrorContext(ctx, "Failed to post digest",
			"error", err,
			"community", a.community,
			"limit", a.limit,
			"elapsedSeconds", time.Since(start).Seconds())

		return 1
	}

	log.InfoContext(ctx, "Done",
		"community", a.community,
		"dryRun", cfg.DryRun,
		"elapsedSeconds", time.Since(start).Seconds())

	return 0
}

func runScheduled(ctx context.Context, spec string, d *digest.Digest, a args, log *slog.Logger) int {
	sched := scheduler.New(ctx, spec, func(ctx context.Context) error {
		_, err := d.Run(ctx, a.community, a.limit)
		return err
	}, log)

	if err := sched.Start(); err != nil {
		log.ErrorContext(ctx, "Failed to start scheduler",
			"error", err,
			"spec", spec,
			"timezone", scheduler.Timezone)

		return 1
	}
	log.InfoContext(ctx, "Scheduler is started",
		"spec", spec,
		"timezone", scheduler.Timezone,
		"community", a.community,
		"next", sched.Next())

	<-ctx.Done()
	log.InfoContext(ctx, "Shutdown signal is received",
		"error", ctx.Err())

	sched.Stop()
	log.InfoContext(ctx, "Scheduler is stopped")

	return 0
}

func parseArgs(argv []string, stderr io.Writer) (args, error) {
	var a args

	fs := flag.NewFlagSet("reddigest", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	fs.StringVar(&a.window, "window", "", "top listing time window: hour, day, week, month, year or all (default TIME_WINDOW)")
	fs.BoolVar(&a.dryRun, "dry-run", false, "print messages instead of sending them")

	if err := fs.Parse(argv); err != nil {
		return args{}, err
	}

	rest := fs.Args()
	if len(rest) == 0 || len(rest) > 2 {
		fs.Usage()
		return args{}, errUsage
	}

	community, err := source.NormalizeCommunity(rest[0])
	if err != nil {
		fs.Usage()
		return args{}, err
	}
	a.community = community

	a.limit = source.DefaultLimit
	if len(rest) == 2 {
		limit, convErr := strconv.Atoi(rest[1])
		if convErr != nil || limit <= 0 {
			fs.Usage()
			return args{}, fmt.Errorf("post limit must be a positive integer (got %q)", rest[1])
		}
		a.limit = limit
	}

	if a.window != "" {
		if err = config.ValidateTimeWindow(a.window); err != nil {
			fs.Usage()
			return args{}, err
		}
	}

	return a, nil
}

// build wires the components. The returned notifier is owned by the caller,
// who closes it after the last run.
func build(
	ctx context.Context,
	cfg config.Config,
	stdout io.Writer,
	log *slog.Logger,
) (*digest.Digest, notifier.Notifier, error) {
	src, err := newSource(ctx, cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("create source: %w", err)
	}

	sum, err := summarizer.New(ctx, cfg.AI, log)
	if err != nil {
		return nil, nil, fmt.Errorf("create summarizer: %w", err)
	}

	var n notifier.Notifier
	opts := []digest.Option{digest.WithWindow(cfg.TimeWindow)}

	if cfg.DryRun {
		n = notifier.NewWriter(stdout)
	} else {
		n, err = notifier.New(cfg, log)
		if err != nil {
			return nil, nil, fmt.Errorf("create notifier: %w", err)
		}
		opts = append(opts, digest.WithOutput(stdout))
	}

	log.InfoContext(ctx, "Components are initialized",
		"engine", cfg.AI.Engine,
		"model", cfg.AI.Model,
		"source", cfg.ContentSource,
		"notifier", cfg.Notifier,
		"dryRun", cfg.DryRun)

	return digest.New(src, sum, n, log, opts...), n, nil
}

func newSource(ctx context.Context, cfg config.Config, log *slog.Logger) (source.Source, error) {
	switch cfg.ContentSource {
	case config.SourceReddit:
		return source.NewReddit(ctx, cfg.Reddit, log)
	case config.SourceRSS:
		return source.NewRSS(cfg.Reddit.UserAgent, log), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnsupportedSource, cfg.ContentSource)
	}
}
