package common

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"yatube/config"
)

// ConnectDb opens the database named by cfg. Referential actions on posts,
// comments and follows rely on foreign keys, so they are switched on for
// sqlite connections.
func ConnectDb(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.DBDriver {
	case "sqlite", "":
		dialector = sqlite.Open(sqliteDSN(cfg.DatabaseDSN))
	case "postgres":
		dialector = postgres.Open(cfg.DatabaseDSN)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.DBDriver, err)
	}

	if cfg.DBDriver != "postgres" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// sqlite allows one writer; a single connection also keeps
		// :memory: databases alive across queries
		sqlDB.SetMaxOpenConns(1)
	}

	log.Info("opened database", zap.String("driver", cfg.DBDriver))
	return db, nil
}

func sqliteDSN(dsn string) string {
	if dsn == "" {
		dsn = "yatube.db"
	}
	if strings.Contains(dsn, "_foreign_keys") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=1"
}
