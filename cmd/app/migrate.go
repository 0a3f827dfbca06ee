package main

import (
	"context"
	"fmt"

	sqliteadapter "github.com/lmco/eurekastreams-sub009/internal/adapters/db/sqlite"
	"github.com/lmco/eurekastreams-sub009/internal/logging"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type migrateTarget struct {
	db  *gorm.DB
	log *logrus.Logger
}

// withDB opens the configured database without running migrations.
func withDB(ctx context.Context, fn func(context.Context, *migrateTarget) error) error {
	cfg, err := loadServerConfig()
	if err != nil {
		return err
	}
	db, err := sqliteadapter.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()
	return fn(ctx, &migrateTarget{db: db, log: logging.New(cfg.LogLevel, cfg.LogFormat)})
}

func printMigrationVersion(ctx context.Context, t *migrateTarget) error {
	version, err := sqliteadapter.MigrationVersion(ctx, t.db)
	if err != nil {
		return err
	}
	fmt.Printf("schema version %d\n", version)
	return nil
}
