// Package persistence is a write-behind mirror of session/pipeline
// activity: it subscribes to internal/eventbus and flushes a
// denormalized projection to a GORM-backed sqlite or postgres database,
// entirely off the session/pipeline's own execution path. Losing the
// mirror (a flush error, a down database) never affects a running
// session or pipeline — it only means that run's history/run row is
// stale or missing.
package persistence

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/agentspine/spine/internal/config"
	"github.com/agentspine/spine/internal/persistence/models"
)

// Open connects to the database named by cfg and auto-migrates the
// mirror's tables.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Type {
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Warn),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.SessionModel{},
		&models.TurnModel{},
		&models.PipelineRunModel{},
		&models.PipelineStageModel{},
	); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}
