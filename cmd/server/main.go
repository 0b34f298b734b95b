// Command server is the process entry point: parse flags, load the
// directive-file config, wire up logging, take the data-directory
// lock, build the server, and run until signaled.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/faizanhussain2310/goredis-core/internal/config"
	"github.com/faizanhussain2310/goredis-core/internal/server"
)

func main() {
	if err := newServeCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	var (
		configFile string
		port       int
		bind       string
		dir        string
	)

	cmd := &cobra.Command{
		Use:   "goredis-server [config-file]",
		Short: "An in-memory networked key-value store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				configFile = args[0]
			}
			return run(configFile, port, bind, dir)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&port, "port", 0, "override the configured port (0 = use config)")
	flags.StringVar(&bind, "bind", "", "override the configured bind address")
	flags.StringVar(&dir, "dir", "", "override the configured working directory")

	return cmd
}

func run(configFile string, portOverride int, bindOverride, dirOverride string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if portOverride != 0 {
		cfg.Port = portOverride
	}
	if bindOverride != "" {
		cfg.Bind = bindOverride
	}
	if dirOverride != "" {
		cfg.Dir = dirOverride
	}

	log, err := newLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer log.Sync()

	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return fmt.Errorf("dir: %w", err)
	}

	// Guard the data directory so two instances never share a dir, the
	// way a real deployment's pidfile does; flock releases automatically
	// when the process exits even on a crash.
	lockPath := cfg.PidFile
	if lockPath == "" {
		lockPath = filepath.Join(cfg.Dir, "goredis-server.lock")
	}
	fl := flock.New(lockPath)
	locked, err := fl.TryLock()
	if err != nil {
		return fmt.Errorf("lock %s: %w", lockPath, err)
	}
	if !locked {
		return fmt.Errorf("lock %s: already held by another instance", lockPath)
	}
	defer fl.Unlock()

	srv, err := server.New(cfg, log)
	if err != nil {
		return fmt.Errorf("server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("received shutdown signal")
		cancel()
		srv.Shutdown()
	}()

	log.Info("starting", zap.Int("port", cfg.Port), zap.String("bind", cfg.Bind))
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func newLogger(level, file string) (*zap.Logger, error) {
	var lvl zapcore.Level
	switch level {
	case "debug":
		lvl = zapcore.DebugLevel
	case "warning":
		lvl = zapcore.WarnLevel
	case "notice", "":
		lvl = zapcore.InfoLevel
	default:
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	if file != "" && file != "stdout" {
		cfg.OutputPaths = []string{file}
	}
	return cfg.Build()
}
