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

	"github.com/mymonad/aura/internal/config"
)

// flagOverrides holds command-line values that override the config file.
type flagOverrides struct {
	owner    string
	socket   string
	httpAddr string
	backend  string
	keysDir  string
	logLevel string
	devSetup bool
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "setup" {
		os.Exit(setupMain(os.Args[2:]))
	}
	os.Exit(runMain(os.Args[1:]))
}

func newLogger(w io.Writer, level *slog.LevelVar) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

func setupMain(args []string) int {
	fs := flag.NewFlagSet("setup", flag.ExitOnError)
	keysDir := fs.String("keys", config.DefaultPaths().KeysDir, "Directory to write circuit keys into")
	fs.Parse(args)

	var level slog.LevelVar
	logger := newLogger(os.Stdout, &level)
	if err := runSetup(config.ExpandPath(*keysDir), logger); err != nil {
		logger.Error("setup failed", "error", err)
		return 1
	}
	return 0
}

func runMain(args []string) int {
	fs := flag.NewFlagSet("aura-node", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to TOML configuration file (default: ~/.config/aura/node.toml if present)")
	var o flagOverrides
	fs.StringVar(&o.owner, "owner", "", "Base58 principal of the ledger owner")
	fs.StringVar(&o.socket, "socket", "", "Unix socket path for RPC (default: ~/.local/share/aura/node.sock)")
	fs.StringVar(&o.httpAddr, "http", "", "HTTP gateway listen address, \"off\" to disable")
	fs.StringVar(&o.backend, "zk-backend", "", "Proof verification backend: plonk, accept, reject")
	fs.StringVar(&o.keysDir, "keys", "", "Directory holding circuit keys")
	fs.BoolVar(&o.devSetup, "dev-setup", false, "Compile circuits at startup when keys are missing (unsafe)")
	fs.StringVar(&o.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.Parse(args)

	var level slog.LevelVar
	logger := newLogger(os.Stdout, &level)

	cfgPath, cfg, err := buildConfig(*configPath, o)
	if err != nil {
		logger.Error("failed to build configuration", "error", err)
		return 1
	}
	lvl, _ := config.ParseLevel(cfg.Logging.Level)
	level.Set(lvl)

	paths := config.DefaultPaths()
	if err := paths.EnsureDirectories(); err != nil {
		logger.Error("failed to create directories", "error", err)
		return 1
	}

	// Set up signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig.String())
		cancel()
	}()

	if cfgPath != "" {
		watcher, err := config.NewWatcher(cfgPath, &level, logger)
		if err != nil {
			logger.Warn("config hot reload disabled", "error", err)
		} else {
			defer watcher.Close()
			go watcher.Start(ctx)
		}
	}

	daemon, err := NewDaemon(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to create daemon", "error", err)
		return 1
	}

	if err := daemon.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("daemon error", "error", err)
		return 1
	}

	logger.Info("daemon stopped gracefully")
	return 0
}

// buildConfig loads the config file, if any, and applies flag overrides.
// It returns the path of the file actually loaded.
func buildConfig(configPath string, o flagOverrides) (string, *config.NodeConfig, error) {
	if configPath == "" {
		if def := config.DefaultPaths().ConfigFile; fileExists(def) {
			configPath = def
		}
	}

	var cfg *config.NodeConfig
	if configPath != "" {
		loaded, err := config.LoadNodeConfig(configPath)
		if err != nil {
			return "", nil, fmt.Errorf("failed to load config file: %w", err)
		}
		cfg = loaded
	} else {
		defaults := config.DefaultNodeConfig()
		defaults.ApplyEnv()
		cfg = &defaults
	}

	if o.owner != "" {
		cfg.Ledger.Owner = o.owner
	}
	if o.socket != "" {
		cfg.RPC.Socket = config.ExpandPath(o.socket)
	}
	switch o.httpAddr {
	case "":
	case "off":
		cfg.HTTP.Enabled = false
	default:
		cfg.HTTP.Enabled = true
		cfg.HTTP.Listen = o.httpAddr
	}
	if o.backend != "" {
		cfg.ZK.Backend = o.backend
	}
	if o.keysDir != "" {
		cfg.ZK.KeysDir = config.ExpandPath(o.keysDir)
	}
	if o.devSetup {
		cfg.ZK.DevSetup = true
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return "", nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return configPath, cfg, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
