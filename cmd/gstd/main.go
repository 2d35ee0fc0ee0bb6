// Command gstd is the pipeline control daemon: it loads configuration,
// opens the daemon and engine trace logs, and serves the resource tree
// over whichever transports are enabled (line-protocol socket,
// Unix-domain socket, HTTP/JSON) until it receives a shutdown signal.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/ridgerun/gstd/internal/buildinfo"
	"github.com/ridgerun/gstd/internal/command"
	"github.com/ridgerun/gstd/internal/config"
	"github.com/ridgerun/gstd/internal/defaults"
	"github.com/ridgerun/gstd/internal/engine"
	"github.com/ridgerun/gstd/internal/paths"
	"github.com/ridgerun/gstd/internal/session"
	"github.com/ridgerun/gstd/internal/transport/httpapi"
	"github.com/ridgerun/gstd/internal/transport/socket"
	"github.com/ridgerun/gstd/internal/transport/unixsock"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if flag.NArg() > 0 {
		switch flag.Arg(0) {
		case "run", "serve":
			runServe(logger, *configPath)
		case "init":
			target := "gstd.yaml"
			if flag.NArg() > 1 {
				target = flag.Arg(1)
			}
			runInit(target)
		case "version":
			fmt.Println(buildinfo.String())
			for k, v := range buildinfo.RuntimeInfo() {
				fmt.Printf("  %-12s %s\n", k+":", v)
			}
		default:
			fmt.Fprintf(os.Stderr, "unknown command: %s\n", flag.Arg(0))
			os.Exit(1)
		}
		return
	}

	fmt.Println("gstd - pipeline control daemon")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  run       Start the daemon")
	fmt.Println("  init      Write a default config file")
	fmt.Println("  version   Show version")
	fmt.Println()
	fmt.Println("Flags:")
	flag.PrintDefaults()
}

func runInit(target string) {
	if _, err := os.Stat(target); err == nil {
		fmt.Fprintf(os.Stderr, "refusing to overwrite existing file: %s\n", target)
		os.Exit(1)
	}
	if err := os.WriteFile(target, defaults.ConfigYAML, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", target, err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s\n", target)
}

func runServe(logger *slog.Logger, configPath string) {
	logger.Info("starting gstd", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "branch", buildinfo.GitBranch)

	cfg := loadConfig(logger, configPath)

	resolver := paths.New(cfg.RunDir, cfg.LogDir)
	if err := resolver.EnsureDirs(); err != nil {
		logger.Error("failed to create run/log directories", "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.LogLevel != "" {
		if l, err := config.ParseLogLevel(cfg.LogLevel); err == nil {
			level = l
		}
	}
	handlerOpts := &slog.HandlerOptions{Level: level, ReplaceAttr: config.ReplaceLogLevelNames}

	daemonFile, err := openLogFile(resolver.DaemonLog())
	if err != nil {
		logger.Error("failed to open daemon log", "error", err)
		os.Exit(1)
	}
	defer daemonFile.Close()
	daemonLogger := slog.New(slog.NewTextHandler(daemonFile, handlerOpts))

	engineFile, err := openLogFile(resolver.EngineLog())
	if err != nil {
		logger.Error("failed to open engine log", "error", err)
		os.Exit(1)
	}
	defer engineFile.Close()
	engineLogger := slog.New(slog.NewTextHandler(engineFile, handlerOpts))
	command.SetLogger(engineLogger)

	daemonLogger.Info("gstd starting",
		"version", buildinfo.Version,
		"socket_enabled", cfg.Socket.Enabled,
		"unix_enabled", cfg.Unix.Enabled,
		"http_enabled", cfg.HTTP.Enabled,
		"workers_per_transport", cfg.Workers.PerTransport,
	)

	pidPath := resolver.PidFile()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		daemonLogger.Error("failed to write pid file", "path", pidPath, "error", err)
		os.Exit(1)
	}
	defer os.Remove(pidPath)
	daemonLogger.Info("pid file written", "path", pidPath, "pid", os.Getpid())

	root := session.Get(engine.NewSimulated())
	seedDebugConfig(context.Background(), root, cfg.Debug, daemonLogger)

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	if cfg.Socket.Enabled {
		srv := socket.New(daemonLogger, root, cfg.Workers.PerTransport)
		addr := fmt.Sprintf("%s:%d", cfg.Socket.Address, cfg.Socket.Port)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.ListenAndServe(ctx, addr); err != nil {
				daemonLogger.Error("socket transport stopped", "error", err)
			}
		}()
	}
	if cfg.Unix.Enabled {
		srv := unixsock.New(daemonLogger, root, cfg.Workers.PerTransport)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.ListenAndServe(ctx, cfg.Unix.BasePath, cfg.Unix.NumListeners); err != nil {
				daemonLogger.Error("unix transport stopped", "error", err)
			}
		}()
	}
	if cfg.HTTP.Enabled {
		srv := httpapi.New(daemonLogger, root, cfg.Workers.PerTransport)
		addr := fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.ListenAndServe(ctx, addr); err != nil {
				daemonLogger.Error("http transport stopped", "error", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	daemonLogger.Info("shutdown signal received")
	cancel()
	wg.Wait()
	daemonLogger.Info("gstd stopped")
}

// loadConfig resolves and loads the config file, falling back to
// config.Default when none was found and none was explicitly
// requested (a fresh checkout can still run without one).
func loadConfig(logger *slog.Logger, configPath string) *config.Config {
	cfgPath, err := config.FindConfig(configPath)
	if err != nil {
		if configPath != "" {
			logger.Error("config", "error", err)
			os.Exit(1)
		}
		logger.Warn("no config file found, using built-in defaults", "error", err)
		return config.Default()
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "path", cfgPath, "error", err)
		os.Exit(1)
	}
	logger.Info("config loaded", "path", cfgPath)
	return cfg
}

func openLogFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}

// seedDebugConfig applies the config file's initial debug settings by
// issuing the same update commands a client would, so daemon startup
// exercises the same code path as runtime control.
func seedDebugConfig(ctx context.Context, root *session.Session, cfg config.DebugConfig, logger *slog.Logger) {
	if cfg.Enable {
		command.Execute(ctx, root, "update /debug/enable true")
	}
	if cfg.Color {
		command.Execute(ctx, root, "update /debug/color true")
	}
	if cfg.Threshold != "" {
		out := command.Execute(ctx, root, "update /debug/threshold "+cfg.Threshold)
		logger.Debug("debug threshold seeded", "threshold", cfg.Threshold, "result", out)
	}
}
