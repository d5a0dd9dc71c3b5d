package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"tubeferry/internal/catalog"
	"tubeferry/internal/config"
	"tubeferry/internal/daemon"
	"tubeferry/internal/engine"
	"tubeferry/internal/ipc"
	"tubeferry/internal/logging"
	"tubeferry/internal/notifications"
	"tubeferry/internal/preflight"
	"tubeferry/internal/queue"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
	// ShutdownTimeout bounds how long running downloads get to exit.
	ShutdownTimeout time.Duration
}

// PIDFileName is written next to the lock file while the daemon runs.
const PIDFileName = "tubeferryd.pid"

// Run starts the tubeferry daemon and blocks until it is signaled or asked
// to shut down over IPC.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 30 * time.Second
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg, false)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logPreflight(logger, cfg)

	runCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pidPath := filepath.Join(cfg.Paths.StateDir, PIDFileName)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	stores, err := queue.OpenStores(runCtx, cfg)
	if err != nil {
		logger.Error("open queue stores", logging.Error(err))
		return err
	}
	defer stores.Close()

	ytdlp, err := engine.New(cfg.Downloads.YtdlpBinary,
		engine.WithExtraArgs(cfg.ExtraArgs()),
		engine.WithTimeouts(cfg.Downloads.SocketTimeout, cfg.Downloads.ProbeTimeout),
		engine.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("init yt-dlp client: %w", err)
	}

	spotify := catalog.NewClient(cfg.Spotify, catalog.WithClientLogger(logging.NewComponentLogger(logger, "spotify")))
	resolver := catalog.NewResolver(cfg.Spotify, spotify, ytdlp, logger)

	q, err := queue.New(cfg, stores, ytdlp,
		queue.WithNotifier(notifications.New(cfg, logger)),
		queue.WithResolver(resolver),
		queue.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("create queue: %w", err)
	}

	d, err := daemon.New(cfg, q, resolver, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Start(runCtx); err != nil {
		return err
	}

	ipcServer, err := ipc.NewServer(runCtx, cfg.SocketPath(), d, logger, cancel)
	if err != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
		d.Stop(stopCtx)
		stopCancel()
		return fmt.Errorf("start IPC server: %w", err)
	}
	ipcServer.Serve()
	logger.Info("tubeferry daemon ready", logging.String("socket", cfg.SocketPath()))

	<-runCtx.Done()
	logger.Info("tubeferry daemon shutting down")

	// IPC and the queue wind down in parallel.
	stopCtx, stopCancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
	defer stopCancel()
	var g errgroup.Group
	g.Go(func() error {
		ipcServer.Close()
		return nil
	})
	g.Go(func() error {
		d.Stop(stopCtx)
		return stopCtx.Err()
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logging.WarnWithContext(logger, "shutdown did not complete cleanly", "daemon_shutdown_incomplete",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "interrupted downloads are re-queued on next start"),
		)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logPreflight(logger *slog.Logger, cfg *config.Config) {
	for _, dep := range preflight.CheckSystemDeps(cfg) {
		attrs := []logging.Attr{
			logging.String("dependency", dep.Name),
			logging.String("command", dep.Command),
			logging.Bool("available", dep.Available),
		}
		if dep.Available || dep.Optional {
			attrs = append(attrs, logging.String(logging.FieldEventType, "dependency_snapshot"))
			logger.Info("dependency check", logging.Args(attrs...)...)
			continue
		}
		logging.WarnWithContext(logger, "required dependency missing", "dependency_missing",
			append(attrs,
				logging.String("detail", dep.Detail),
				logging.String(logging.FieldErrorHint, "install yt-dlp or set downloads.ytdlp_binary"),
			)...)
	}
	for _, result := range preflight.RunAll(cfg) {
		if result.Passed {
			logger.Debug("preflight passed", logging.String("check", result.Name), logging.String("detail", result.Detail))
			continue
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "fix the path or permissions in the config file"),
		)
	}
	spotify := preflight.CheckSpotifyFromConfig(cfg)
	logger.Info("catalog resolver", logging.Bool("spotify_api", spotify.Passed), logging.String("detail", spotify.Detail))
}
