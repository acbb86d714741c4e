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
	"syscall"
	"time"

	"github.com/nomis52/clubboard/board"
	"github.com/nomis52/clubboard/buildinfo"
	"github.com/nomis52/clubboard/clients/activityclient"
	"github.com/nomis52/clubboard/config"
	"github.com/nomis52/clubboard/logging"
	"github.com/nomis52/clubboard/metrics"
)

const flushTimeout = 10 * time.Second

// Commands understood by the CLI.
const (
	cmdList       = "list"
	cmdSignup     = "signup"
	cmdUnregister = "unregister"
)

type Args struct {
	ConfigPath  string
	EnvFile     string
	ShowVersion bool
	Command     string
	Email       string
	Activity    string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	args, err := parseArgs(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	if args.ShowVersion {
		showVersion(os.Stdout)
		return nil
	}

	if err := config.LoadEnvFile(args.EnvFile); err != nil {
		return err
	}

	cfg, err := config.LoadConfig(args.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Close()

	client, err := activityclient.New(cfg.API.BaseURL,
		activityclient.WithTimeout(cfg.API.Timeout),
		activityclient.WithLogger(logger.Logger),
	)
	if err != nil {
		return fmt.Errorf("failed to create activities client: %w", err)
	}

	// Metrics are only pushed when a remote write endpoint is configured.
	var registry *metrics.PushRegistry
	var boardMetrics *metrics.BoardMetrics
	if cfg.Monitoring.VictoriaMetricsURL != "" {
		hostname, err := os.Hostname()
		if err != nil {
			return fmt.Errorf("failed to get hostname: %w", err)
		}
		registry = metrics.NewPushRegistry(metrics.PushConfig{
			URL:      cfg.Monitoring.VictoriaMetricsURL,
			Prefix:   cfg.Monitoring.MetricsPrefix,
			Job:      cfg.Monitoring.JobName,
			Instance: hostname,
		})
		boardMetrics, err = metrics.NewBoardMetrics(registry)
		if err != nil {
			return fmt.Errorf("failed to create metrics: %w", err)
		}
	}

	b := board.New(client, boardOptions(cfg, logger.Logger, boardMetrics)...)
	defer b.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opErr := execute(ctx, b, args)

	if err := board.RenderText(os.Stdout, b.Snapshot()); err != nil {
		return fmt.Errorf("failed to print board: %w", err)
	}

	if registry != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()
		if err := registry.Flush(flushCtx); err != nil {
			logger.Warn("failed to push metrics", "error", err)
		}
	}

	return opErr
}

// boardOptions configures a board from cfg the same way the server does.
func boardOptions(cfg config.Config, logger *slog.Logger, m *metrics.BoardMetrics) []board.Option {
	return []board.Option{
		board.WithLogger(logger),
		board.WithMetrics(m),
		board.WithMessageTTLs(cfg.Board.SignupMessageTTL, cfg.Board.UnregisterMessageTTL),
		board.WithStaleRenderGuard(!cfg.Board.KeepStaleRenders),
		board.WithHideCancellation(!cfg.Board.UntrackedHideTimers),
	}
}

// execute loads the board the way a page load does, then performs the
// requested operation on it.
func execute(ctx context.Context, b *board.Board, args Args) error {
	if _, err := b.FetchAndRender(ctx); err != nil && args.Command == cmdList {
		return err
	}

	switch args.Command {
	case cmdList:
		return nil
	case cmdSignup:
		return b.HandleSignup(ctx, args.Email, args.Activity)
	case cmdUnregister:
		return b.HandleUnregister(ctx, args.Activity, args.Email)
	default:
		return fmt.Errorf("unknown command %q", args.Command)
	}
}

func showVersion(w io.Writer) {
	props := buildinfo.Get()
	fmt.Fprintf(w, "clubboard %s\n", props.Version)
	fmt.Fprintf(w, "Built: %s\n", props.BuildTime)
	fmt.Fprintf(w, "Commit: %s\n", props.GitCommit)
}

func parseArgs(argv []string) (Args, error) {
	global := flag.NewFlagSet("clubboard", flag.ContinueOnError)
	configPath := global.String("config", "", "Path to config file (defaults apply when empty)")
	configPathShort := global.String("c", "", "Path to config file (shorthand)")
	envFile := global.String("env-file", ".env", "Path to a .env file with environment overrides")
	showVersion := global.Bool("version", false, "Show version information")
	versionShort := global.Bool("v", false, "Show version information (shorthand)")

	global.Usage = func() {
		out := global.Output()
		fmt.Fprintf(out, "Usage: clubboard [options] <list|signup|unregister> [--email E --activity A]\n")
		fmt.Fprintf(out, "\nExtracurricular Activity Board\n\n")
		fmt.Fprintf(out, "Options:\n")
		global.PrintDefaults()
		fmt.Fprintf(out, "\nExamples:\n")
		fmt.Fprintf(out, "  clubboard -c config.yaml list\n")
		fmt.Fprintf(out, "  clubboard signup --email emma@mergington.edu --activity \"Chess Club\"\n")
		fmt.Fprintf(out, "  clubboard unregister --email emma@mergington.edu --activity \"Chess Club\"\n")
	}

	if err := global.Parse(argv); err != nil {
		return Args{}, err
	}

	args := Args{
		ConfigPath:  *configPath,
		EnvFile:     *envFile,
		ShowVersion: *showVersion || *versionShort,
	}
	if args.ConfigPath == "" {
		args.ConfigPath = *configPathShort
	}
	if args.ShowVersion {
		return args, nil
	}

	if global.NArg() == 0 {
		global.Usage()
		return Args{}, fmt.Errorf("a command is required")
	}
	args.Command = global.Arg(0)

	cmd := flag.NewFlagSet(args.Command, flag.ContinueOnError)
	cmd.SetOutput(global.Output())
	email := cmd.String("email", "", "Student email")
	activity := cmd.String("activity", "", "Activity name")
	if err := cmd.Parse(global.Args()[1:]); err != nil {
		return Args{}, err
	}
	args.Email = *email
	args.Activity = *activity

	switch args.Command {
	case cmdList:
	case cmdSignup, cmdUnregister:
		if args.Email == "" || args.Activity == "" {
			return Args{}, fmt.Errorf("%s requires --email and --activity", args.Command)
		}
	default:
		return Args{}, fmt.Errorf("unknown command %q", args.Command)
	}

	return args, nil
}
