package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flowmesh/mockgps/internal/config"
	"github.com/flowmesh/mockgps/internal/location"
	"github.com/flowmesh/mockgps/internal/logger"
	"github.com/flowmesh/mockgps/internal/metrics"
	"github.com/flowmesh/mockgps/internal/replay"
	"github.com/flowmesh/mockgps/internal/storage/cursor"
	"github.com/flowmesh/mockgps/internal/track"
	"github.com/flowmesh/mockgps/internal/tracing"
	"github.com/flowmesh/mockgps/internal/version"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(2)
	}

	if cfg.ShowVersion {
		fmt.Println(version.String())
		return
	}

	if err := logger.Init(cfg.LoggerConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		log := logger.Logger()
		log.Error().Err(err).Msg("mockgps exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	log := logger.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	info := version.Get()
	log.Info().
		Str("version", info.Version).
		Str("commit", info.GitCommit).
		Str("track", cfg.Track.Name).
		Str("file", cfg.Track.File).
		Msg("Starting mockgps")

	provider, err := tracing.NewProvider(cfg.TracingConfig(info.Version))
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Failed to flush traces")
		}
	}()

	collector := metrics.NewCollector()
	collector.RegisterRuntime()
	replayMetrics := metrics.NewReplayMetrics(collector)

	if cfg.Metrics.Enabled {
		server := metrics.NewServer(cfg.Metrics.Addr, cfg.Metrics.Path, collector)
		if err := server.Start(ctx); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Stop(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("Failed to stop metrics server")
			}
		}()
	}

	store, err := cursor.Open(cfg.CursorConfig())
	if err != nil {
		return fmt.Errorf("failed to open cursor store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close cursor store")
		}
	}()

	src, err := track.OpenFile(cfg.Track.File)
	if err != nil {
		return err
	}
	defer src.Close()

	manager := replay.NewManager(
		cursor.WithMetrics(store, cfg.Cursor.Backend, replayMetrics),
		replay.Options{Delay: cfg.Track.Delay, Metrics: replayMetrics},
	)

	if cfg.Reset {
		if err := manager.Reset(ctx, cfg.Track.Name); err != nil {
			return err
		}
	}

	broadcaster, display := newBroadcaster(cfg.Track.Name, os.Stdout)

	session, err := manager.Start(ctx, replay.StartRequest{
		Track:      cfg.Track.Name,
		Source:     src,
		Sink:       broadcaster,
		StartIndex: cfg.StartIndex(),
	})
	if err != nil {
		return fmt.Errorf("failed to start replay: %w", err)
	}

	select {
	case <-session.Done():
	case <-ctx.Done():
		log.Info().Msg("Received shutdown signal")
	}

	// waits for the final cursor save
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := manager.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop replay: %w", err)
	}

	index, err := manager.Cursor(shutdownCtx, cfg.Track.Name)
	if err != nil {
		return err
	}
	stats := session.Stats()
	log.Info().
		Str("state", session.State().String()).
		Int64("emitted", stats.Emitted).
		Int64("skipped", stats.Skipped).
		Int("cursor", index).
		Msg("mockgps stopped")

	if last, ok := display.Last(); ok {
		fmt.Fprintf(os.Stderr, "last location\n%s\n", location.Render(last))
	}

	return session.Err()
}

// newBroadcaster wires the log, JSON-lines and display observers. Location
// updates go to out; logs have their own writer.
func newBroadcaster(trackName string, out io.Writer) (*location.Broadcaster, *location.DisplayObserver) {
	display := location.NewDisplayObserver(nil)

	broadcaster := location.NewBroadcaster(trackName)
	broadcaster.Register(location.NewLogObserver())
	broadcaster.Register(location.NewJSONObserver(out))
	broadcaster.Register(display)

	return broadcaster, display
}
