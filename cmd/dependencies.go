package cmd

import (
	"context"

	"golang-crossover/config"
	"golang-crossover/internal/repository"
	"golang-crossover/internal/service"
	"golang-crossover/pkg/cache"
	"golang-crossover/pkg/logger"
	"golang-crossover/pkg/telegram"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type AppDependency struct {
	cfg       *config.Config
	log       *logger.Logger
	validator *goValidator.Validate
	echo      *echo.Echo
	cache     cache.Cache
	notifier  *telegram.Notifier
	repo      *repository.Repository
	services  *service.Service
}

func NewAppDependency(ctx context.Context) (*AppDependency, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return nil, err
	}

	var notifier *telegram.Notifier
	if cfg.Telegram.Enabled {
		bot, err := telegram.NewBot(&cfg.Telegram, log)
		if err != nil {
			log.Error("Failed to create telegram bot", zap.Error(err))
			return nil, err
		}
		notifier = telegram.NewNotifier(&cfg.Telegram, log, bot)
		log = log.WithAlerts(notifier, zapcore.ErrorLevel)
	}

	inmemoryCache := cache.NewCache(cfg.Cache.DefaultExpiration, cfg.Cache.CleanupInterval)
	repo := repository.NewRepository(cfg, inmemoryCache, log)

	// a nil *telegram.Notifier must not become a non-nil service.Notifier
	var serviceNotifier service.Notifier
	if notifier != nil {
		serviceNotifier = notifier
	}

	e := echo.New()
	e.HideBanner = true
	return &AppDependency{
		cfg:       cfg,
		log:       log,
		validator: goValidator.New(),
		echo:      e,
		cache:     inmemoryCache,
		notifier:  notifier,
		repo:      repo,
		services:  service.NewService(cfg, log, repo, inmemoryCache, serviceNotifier),
	}, nil
}

func (d *AppDependency) Close() error {
	d.log.Info("Closing app dependency")
	if d.notifier != nil {
		d.notifier.Wait()
	}
	_ = d.log.Sync()
	return nil
}
