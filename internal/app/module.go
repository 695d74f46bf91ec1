package app

import (
	"context"

	"github.com/matheus3301/wxread/internal/bus"
	"github.com/matheus3301/wxread/internal/config"
	"github.com/matheus3301/wxread/internal/export"
	"github.com/matheus3301/wxread/internal/locate"
	"github.com/matheus3301/wxread/internal/logging"
	"github.com/matheus3301/wxread/internal/reader"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Params holds the command-line inputs passed to the fx module. Non-empty
// override fields take precedence over the config file.
type Params struct {
	ConfigPath string // empty = config.DefaultPath()
	BackupDir  string
	Layout     string
	UserDir    string
	OutputDir  string
	LogLevel   string
}

// Deps is everything a command may use once the app has started.
type Deps struct {
	fx.In

	Config   *config.Config
	Logger   *zap.Logger
	Reader   *reader.Reader
	Exporter *export.Exporter
	Events   *bus.Bus
}

// Module returns the fx module composing config, logging, the snapshot
// reader, the exporter and its progress bus. The reader is closed when the app stops.
func Module(p Params) fx.Option {
	return fx.Module("wxread",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideLocator,
			provideReader,
			bus.New,
			provideExporter,
		),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	path := p.ConfigPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	override(&cfg.BackupDir, p.BackupDir)
	override(&cfg.Layout, p.Layout)
	override(&cfg.UserDir, p.UserDir)
	override(&cfg.OutputDir, p.OutputDir)
	override(&cfg.LogLevel, p.LogLevel)
	return cfg, nil
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.LogLevel, cfg.LogPath)
}

func provideLocator(cfg *config.Config) (locate.Locator, error) {
	return cfg.Locator()
}

func provideReader(lc fx.Lifecycle, loc locate.Locator, logger *zap.Logger) (*reader.Reader, error) {
	r, err := reader.Open(loc, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			if err := r.Close(); err != nil {
				logger.Warn("error closing reader", zap.Error(err))
				return err
			}
			logger.Debug("reader closed")
			return nil
		},
	})
	return r, nil
}

func provideExporter(r *reader.Reader, cfg *config.Config, b *bus.Bus, logger *zap.Logger) *export.Exporter {
	return export.New(r, cfg.OutputDir, logger.Named("export")).WithEvents(b)
}

// Run builds and starts the app, hands its dependencies to fn and stops the
// app afterwards, whatever fn returned.
func Run(ctx context.Context, p Params, fn func(context.Context, Deps) error) (err error) {
	var deps Deps
	fxApp := fx.New(
		Module(p),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Named("fx")}
		}),
		fx.Invoke(func(d Deps) { deps = d }),
	)
	if err := fxApp.Err(); err != nil {
		return err
	}
	if err := fxApp.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if stopErr := fxApp.Stop(context.Background()); stopErr != nil && err == nil {
			err = stopErr
		}
	}()
	return fn(ctx, deps)
}
