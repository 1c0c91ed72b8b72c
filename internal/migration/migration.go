// Package migration applies embedded SQL schema migrations at startup.
package migration

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Run applies every pending migration in filename order. Applied versions are
// tracked in schema_migrations so restarts are no-ops.
func Run(ctx context.Context, db *gorm.DB, log *zap.Logger) error {
	log = log.Named("migration")

	if err := db.WithContext(ctx).Exec(
		`CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL
		)`,
	).Error; err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := fs.ReadDir(migrationFS, "migrations")
	if err != nil {
		return err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		version := strings.TrimSuffix(name, ".up.sql")

		var count int64
		if err := db.WithContext(ctx).
			Table("schema_migrations").
			Where("version = ?", version).
			Count(&count).Error; err != nil {
			return fmt.Errorf("check migration %s: %w", version, err)
		}
		if count > 0 {
			continue
		}

		raw, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return err
		}

		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for _, stmt := range splitStatements(string(raw)) {
				if err := tx.Exec(stmt).Error; err != nil {
					return fmt.Errorf("apply %s: %w", version, err)
				}
			}
			return tx.Exec(
				`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
				version, time.Now().UTC(),
			).Error
		})
		if err != nil {
			return err
		}
		log.Info("migration applied", zap.String("version", version))
	}
	return nil
}

func splitStatements(script string) []string {
	var statements []string
	for _, chunk := range strings.Split(script, ";") {
		stmt := strings.TrimSpace(chunk)
		if stmt == "" {
			continue
		}
		statements = append(statements, stmt)
	}
	return statements
}
