package common

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"yatube/config"
	"yatube/logging"
)

// App bundles what every command needs.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *gorm.DB
}

// Open loads configuration, builds the logger and connects to the database.
func Open() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.GinMode == "debug")
	if err != nil {
		return nil, err
	}

	db, err := ConnectDb(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	return &App{Config: cfg, Logger: logger, DB: db}, nil
}

func (a *App) Close() {
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.Logger.Sync()
}
