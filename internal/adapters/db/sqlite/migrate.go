package sqlite

import (
	"context"
	"embed"

	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func prepareGoose(log logrus.FieldLogger) error {
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	if log != nil {
		goose.SetLogger(log)
	}
	goose.SetBaseFS(migrationsFS)
	return nil
}

func RunMigrations(ctx context.Context, db *gorm.DB, log logrus.FieldLogger) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if err := prepareGoose(log); err != nil {
		return err
	}
	return goose.UpContext(ctx, sqlDB, "migrations")
}

// RollbackMigration undoes the most recently applied migration.
func RollbackMigration(ctx context.Context, db *gorm.DB, log logrus.FieldLogger) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if err := prepareGoose(log); err != nil {
		return err
	}
	return goose.DownContext(ctx, sqlDB, "migrations")
}

func MigrationVersion(ctx context.Context, db *gorm.DB) (int64, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return 0, err
	}
	if err := prepareGoose(nil); err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, sqlDB)
}
