package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nomis52/clubboard/buildinfo"
	"github.com/nomis52/clubboard/config"
	"github.com/nomis52/clubboard/logging"
	"github.com/nomis52/clubboard/server"
)

type Args struct {
	ConfigPath string
	EnvFile    string
	ListenAddr string
	Title      string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	args := parseArgs()

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

	props := buildinfo.Get()
	logger.Info("clubboard server started",
		"version", props.Version,
		"git_commit", props.GitCommit,
		"config_path", args.ConfigPath,
	)

	opts := []server.Option{
		server.WithLogger(logger.Logger),
		server.WithTitle(args.Title),
	}
	if args.ListenAddr != "" {
		opts = append(opts, server.WithListenAddr(args.ListenAddr))
	}

	srv, err := server.New(cfg, opts...)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}

func parseArgs() Args {
	configPath := flag.String("config", "", "Path to config file (defaults apply when empty)")
	configPathShort := flag.String("c", "", "Path to config file (shorthand)")
	envFile := flag.String("env-file", ".env", "Path to a .env file with environment overrides")
	listenAddr := flag.String("listen", "", "Listen address, overrides the config")
	title := flag.String("title", "", "Page heading")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nClubboard Server - Extracurricular Activity Board\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment:\n")
		fmt.Fprintf(os.Stderr, "  %s, %s, %s\n", config.EnvAPIURL, config.EnvListenAddr, config.EnvLogLevel)
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --config /etc/clubboard/config.yaml\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -c config.yaml --listen :9090\n", os.Args[0])
	}

	flag.Parse()

	path := *configPath
	if path == "" && *configPathShort != "" {
		path = *configPathShort
	}

	return Args{
		ConfigPath: path,
		EnvFile:    *envFile,
		ListenAddr: *listenAddr,
		Title:      *title,
	}
}
