// Package main provides the server entry point.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/vibefm/vibefm/internal/api/rest"
	"github.com/vibefm/vibefm/internal/app/player"
	"github.com/vibefm/vibefm/internal/app/resolve"
	"github.com/vibefm/vibefm/internal/domain/track"
	"github.com/vibefm/vibefm/internal/infra/config"
	"github.com/vibefm/vibefm/internal/infra/logger"
	"github.com/vibefm/vibefm/internal/infra/mpv"
	"github.com/vibefm/vibefm/internal/infra/storage"
	"github.com/vibefm/vibefm/internal/infra/youtube"
)

var (
	app        = kingpin.New("vibefm-server", "vibefm playback server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: console)").String()
	noRestore  = app.Flag("no-restore", "Skip restoring the saved player snapshot").Bool()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{Level: "info", Output: "console"}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = "file"
		loggerConfig.File = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic("failed to initialize logger: " + err.Error())
	}

	zlog.Info().Msgf("loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	store, err := storage.New(afero.NewOsFs(), cfg.Storage.Dir)
	if err != nil {
		return errors.Wrap(err, "failed to open storage")
	}

	ytClient, err := youtube.New(youtube.Config{
		APIKey:         cfg.YouTube.APIKey,
		MaxResults:     cfg.YouTube.MaxResults,
		RequestsPerSec: cfg.YouTube.RequestsPerSec,
		Region:         cfg.YouTube.PreferredRegion,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create youtube client")
	}

	searcher, err := resolve.NewVideoSearcher(ytClient, cfg.YouTube.MaxDurationSec)
	if err != nil {
		return errors.Wrap(err, "failed to create searcher")
	}

	adapter, err := newAdapter(cfg.Adapter)
	if err != nil {
		return errors.Wrap(err, "failed to create playback adapter")
	}

	session := player.NewSession(adapter, resolve.New(searcher), player.Config{
		ProbeTimeout:     cfg.Player.ProbeTimeout(),
		ProgressInterval: cfg.Player.ProgressInterval(),
		SeekGrace:        cfg.Player.SeekGrace(),
		InitialVolume:    cfg.Player.InitialVolume,
		RecordRecent: func(t track.Track) {
			if err := store.RecordRecent(t); err != nil {
				zlog.Warn().Msgf("failed to record recent track %s: %v", t.ID, err)
			}
		},
	})
	defer func() {
		if err := session.Close(); err != nil {
			zlog.Error().Msgf("failed to close session: %v", err)
		}
	}()

	if !*noRestore {
		restoreSnapshot(session, store)
	}
	defer saveSnapshot(session, store)

	mux := http.NewServeMux()
	rest.New(session, store, searcher).Register(mux)

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: h2c.NewHandler(mux, &http2.Server{}),
	}

	serverErrCh := make(chan error, 1)
	go func() {
		zlog.Info().Msgf("starting server: addr=%s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		zlog.Info().Msgf("received %s, shutting down...", sig)
	case err := <-serverErrCh:
		return errors.Wrap(err, "server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("failed to shutdown server: %v", err)
	}

	return nil
}

// newAdapter builds the configured playback backend. Only mpv today,
// the type switch mirrors where a second backend would slot in.
func newAdapter(cfg config.AdapterConfig) (player.Adapter, error) {
	switch cfg.Type {
	case "mpv":
		return mpv.New(cfg.Settings)
	default:
		return nil, errors.Newf("unknown adapter type %q", cfg.Type)
	}
}

func restoreSnapshot(session *player.Session, store *storage.Store) {
	snap, err := store.LoadSnapshot()
	if err != nil {
		if !errors.Is(err, storage.ErrNoSnapshot) {
			zlog.Warn().Msgf("failed to load snapshot: %v", err)
		}
		return
	}
	session.Restore(snap)
	zlog.Info().Msgf("restored snapshot: %d queued tracks", len(snap.Queue))
}

func saveSnapshot(session *player.Session, store *storage.Store) {
	if err := store.SaveSnapshot(session.Snapshot()); err != nil {
		zlog.Error().Msgf("failed to save snapshot: %v", err)
	}
}
