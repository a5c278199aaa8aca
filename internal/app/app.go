package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"TopArtistsTracker/internal/config"
	"TopArtistsTracker/internal/domain"
	"TopArtistsTracker/internal/httpapi"
	"TopArtistsTracker/internal/infrastructure/parser"
	"TopArtistsTracker/internal/infrastructure/scheduler"
	"TopArtistsTracker/internal/infrastructure/spotify"
	"TopArtistsTracker/internal/infrastructure/storage"
	"TopArtistsTracker/internal/infrastructure/telegram"
	"TopArtistsTracker/internal/logging"
	"TopArtistsTracker/internal/ports"
	"TopArtistsTracker/internal/render"
	"TopArtistsTracker/internal/scanner"
	"TopArtistsTracker/internal/usecase"
)

const stopTimeout = 30 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg        config.Config
	logger     *slog.Logger
	out        io.Writer
	repository ports.SnapshotRepository
	db         *sql.DB
	history    *usecase.Pipeline
}

// New opens the snapshot store. Upstream sources are built on demand so
// read-only commands work without Spotify credentials.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger, out io.Writer) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	if out == nil {
		out = os.Stdout
	}

	a := &Application{cfg: cfg, logger: baseLogger, out: out}
	if err := a.openRepository(ctx); err != nil {
		return nil, err
	}
	a.history = usecase.NewPipeline(usecase.PipelineDeps{
		Repository: a.repository,
		Logger:     a.component("history"),
	})
	return a, nil
}

// Close releases the snapshot store.
func (a *Application) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

func (a *Application) component(name string) *slog.Logger {
	return a.logger.With("component", name)
}

func (a *Application) openRepository(ctx context.Context) error {
	loc := a.cfg.Scheduler.Location()
	switch a.cfg.Storage.Driver {
	case config.StorageSQLite:
		db, err := storage.OpenSQLite(ctx, a.cfg.Storage.DSN)
		if err != nil {
			return err
		}
		a.db = db
		a.repository = storage.NewSQLiteRepository(db, loc)
	default:
		a.repository = storage.NewCSVRepository(a.cfg.Storage.Dir, loc)
	}
	a.component("storage").Debug("snapshot store ready", "driver", a.cfg.Storage.Driver)
	return nil
}

func (a *Application) renderer() ports.Renderer {
	if a.cfg.Render.Format == "json" {
		return render.NewJSONRenderer(a.out)
	}
	return render.NewTableRenderer(a.out, render.Order(a.cfg.Render.Order))
}

func (a *Application) source(ctx context.Context) (ports.ArtistSource, error) {
	registry := scanner.NewRegistry()
	registry.Register(parser.NewChartScanner(nil, a.cfg.Source.HTML, a.component("scanner.html")))

	if a.cfg.Source.Kind == config.SourceSpotify {
		spotifyCfg := a.cfg.Source.Spotify
		tokens, err := spotify.TokenSource(ctx, spotify.OAuthConfig(spotifyCfg), spotify.NewFileTokenStore(spotifyCfg.TokenFile))
		if err != nil {
			return nil, err
		}
		client := spotify.NewClient(spotifyCfg, tokens, a.component("spotify"))
		registry.Register(spotify.NewScanner(client, spotifyCfg.TimeRange, spotifyCfg.PageSize))
	}

	return scanner.NewStrategySource(registry, a.cfg.Source.Kind, nil, a.component("source")), nil
}

func (a *Application) capturePipeline(ctx context.Context) (*usecase.Pipeline, error) {
	source, err := a.source(ctx)
	if err != nil {
		return nil, err
	}

	var notifier ports.Notifier
	if a.cfg.Notifications.Telegram.Enabled() {
		tg, err := telegram.NewNotifier(a.cfg.Notifications.Telegram)
		if err != nil {
			return nil, err
		}
		notifier = tg
	}

	return usecase.NewPipeline(usecase.PipelineDeps{
		Source:     source,
		Repository: a.repository,
		Renderer:   a.renderer(),
		Notifier:   notifier,
		Logger:     a.component("pipeline"),
	}), nil
}

// Run captures today's ranking once and prints the comparison.
func (a *Application) Run(ctx context.Context) (domain.Report, error) {
	pipeline, err := a.capturePipeline(ctx)
	if err != nil {
		return domain.Report{}, err
	}
	now := time.Now().In(a.cfg.Scheduler.Location())
	return pipeline.ProcessDay(ctx, now)
}

// Daemon captures on the configured cron schedule until ctx is cancelled.
func (a *Application) Daemon(ctx context.Context) error {
	pipeline, err := a.capturePipeline(ctx)
	if err != nil {
		return err
	}
	driver, err := scheduler.NewCronScheduler(a.cfg.Scheduler.CronExpression, a.cfg.Scheduler.Location(), a.component("scheduler"))
	if err != nil {
		return err
	}

	sched := usecase.NewScheduler(driver, pipeline, a.component("scheduler"))
	if err := sched.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return sched.Stop(stopCtx)
}

// Login runs the Spotify authorization flow and returns the user's name.
func (a *Application) Login(ctx context.Context, announce func(authURL string)) (string, error) {
	spotifyCfg := a.cfg.Source.Spotify
	if spotifyCfg.ClientID == "" || spotifyCfg.ClientSecret == "" {
		return "", errors.New("spotify client id and secret are required")
	}

	oauthCfg := spotify.OAuthConfig(spotifyCfg)
	login := spotify.NewLogin(oauthCfg, spotify.NewFileTokenStore(spotifyCfg.TokenFile), a.component("login"))
	tok, err := login.Run(ctx, announce)
	if err != nil {
		return "", err
	}

	client := spotify.NewClient(spotifyCfg, oauthCfg.TokenSource(ctx, tok), a.component("spotify"))
	profile, err := client.Profile(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch profile: %w", err)
	}
	return profile.Name(), nil
}

// Show prints a stored day compared with the day before it.
func (a *Application) Show(ctx context.Context, day time.Time) error {
	report, err := a.history.Report(ctx, day)
	if err != nil {
		return err
	}
	return a.renderer().Render(ctx, report)
}

// Diff prints the comparison of two stored days.
func (a *Application) Diff(ctx context.Context, day, against time.Time) error {
	report, err := a.history.Compare(ctx, day, against)
	if err != nil {
		return err
	}
	return a.renderer().Render(ctx, report)
}

// Days lists the stored days.
func (a *Application) Days(ctx context.Context) ([]time.Time, error) {
	return a.history.Days(ctx)
}

// Serve runs the read-only HTTP API until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	server := httpapi.NewServer(a.history, a.cfg.Scheduler.Location(), a.component("httpapi"))
	return server.ListenAndServe(ctx, a.cfg.Server.Addr)
}

// Location is the timezone days are interpreted in.
func (a *Application) Location() *time.Location {
	return a.cfg.Scheduler.Location()
}
