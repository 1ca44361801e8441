package db

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"giftcircle/pkg/logger"
	"gorm.io/gorm"
)

// migrationLockKey serializes concurrent instances migrating the same
// database.
const migrationLockKey int64 = 0x67696674

// Migrate applies every not yet recorded .sql file of files, in name
// order, inside one transaction holding an advisory lock.
func Migrate(db *gorm.DB, files fs.FS, log logger.Logger) error {
	names, err := migrationNames(files)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		log.Warn("db: no migrations found, skipping")
		return nil
	}

	if err := ensureSchemaMigrations(db); err != nil {
		return err
	}

	applied := 0
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", migrationLockKey).Error; err != nil {
			return fmt.Errorf("migration lock: %w", err)
		}

		done, err := appliedMigrations(tx)
		if err != nil {
			return err
		}

		for _, name := range names {
			if _, ok := done[name]; ok {
				continue
			}

			contents, err := fs.ReadFile(files, name)
			if err != nil {
				return err
			}
			sql := strings.TrimSpace(string(contents))
			if sql == "" {
				continue
			}

			if err := tx.Exec(sql).Error; err != nil {
				return fmt.Errorf("apply migration %s: %w", name, err)
			}
			if err := tx.Exec("INSERT INTO schema_migrations (filename, applied_at) VALUES (?, ?)", name, time.Now().UTC()).Error; err != nil {
				return fmt.Errorf("record migration %s: %w", name, err)
			}
			log.Info("db: applied migration", "file", name)
			applied++
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info("db: schema up to date", "applied", applied, "known", len(names))
	return nil
}

func migrationNames(files fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(files, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".sql" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

func ensureSchemaMigrations(db *gorm.DB) error {
	return db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`).Error
}

func appliedMigrations(tx *gorm.DB) (map[string]struct{}, error) {
	var names []string
	if err := tx.Raw("SELECT filename FROM schema_migrations").Scan(&names).Error; err != nil {
		return nil, err
	}
	done := make(map[string]struct{}, len(names))
	for _, name := range names {
		done[name] = struct{}{}
	}
	return done, nil
}
