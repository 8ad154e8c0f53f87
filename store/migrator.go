package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/plume-chat/plume/internal/version"
)

// Migration flow:
// 1. preMigrate applies LATEST.sql on an uninitialized database and
//    stamps the schema version.
// 2. Migrate (prod mode) applies the incremental migrations between
//    the stored schema version and the running version, then re-stamps.
//
// Incremental migrations live at migration/{driver}/{version}/NN__description.sql
// and are applied in lexicographic order. LATEST.sql holds the full
// schema for fresh installations.

//go:embed migration
var migrationFS embed.FS

const (
	// MigrateFileNameSplit separates the patch number from the
	// description in a migration file name, e.g. "1__add_index.sql".
	MigrateFileNameSplit = "__"
	// LatestSchemaFileName is the name of the latest schema file,
	// used to initialize fresh installations with the current schema.
	LatestSchemaFileName = "LATEST.sql"

	// defaultSchemaVersion stands in when no version row exists yet.
	defaultSchemaVersion = "0.0.0"

	schemaVersionSettingName = "schema_version"
)

// shouldApplyMigration reports whether a migration file sits between
// the stored schema version (exclusive) and the target version
// (inclusive).
func shouldApplyMigration(fileVersion, currentSchemaVersion, targetVersion string) bool {
	return version.IsVersionGreaterThan(fileVersion, currentSchemaVersion) &&
		version.IsVersionGreaterOrEqualThan(targetVersion, fileVersion)
}

// Migrate brings the database schema up to the running version.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.preMigrate(ctx); err != nil {
		return errors.Wrap(err, "failed to pre-migrate")
	}

	if s.profile.Mode != "prod" {
		return nil
	}

	currentSchemaVersion, err := s.currentSchemaVersion(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get current schema version")
	}
	targetVersion := version.GetCurrentVersion(s.profile.Mode)

	if version.IsVersionGreaterThan(currentSchemaVersion, targetVersion) {
		return errors.Errorf("cannot downgrade schema version from %s to %s", currentSchemaVersion, targetVersion)
	}
	if version.IsVersionGreaterThan(targetVersion, currentSchemaVersion) {
		if err := s.applyMigrations(ctx, currentSchemaVersion, targetVersion); err != nil {
			return errors.Wrap(err, "failed to apply migrations")
		}
		if err := s.updateSchemaVersion(ctx, targetVersion); err != nil {
			return errors.Wrap(err, "failed to update schema version")
		}
	}
	return nil
}

// preMigrate initializes an empty database with the latest schema and
// stamps the schema version.
func (s *Store) preMigrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check database initialization")
	}
	if initialized {
		return nil
	}

	filePath := s.getMigrationBasePath() + LatestSchemaFileName
	buf, err := migrationFS.ReadFile(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to read latest schema file %s", filePath)
	}

	tx, err := s.driver.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(buf)); err != nil {
		return errors.Wrapf(err, "failed to execute schema file %s", filePath)
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit schema")
	}

	schemaVersion := version.GetCurrentVersion(s.profile.Mode)
	if err := s.updateSchemaVersion(ctx, schemaVersion); err != nil {
		return errors.Wrap(err, "failed to stamp schema version")
	}
	slog.Info("database schema initialized",
		slog.String("driver", s.profile.Driver),
		slog.String("schemaVersion", schemaVersion))
	return nil
}

// applyMigrations runs every pending migration file in one transaction.
func (s *Store) applyMigrations(ctx context.Context, currentSchemaVersion, targetVersion string) error {
	filePaths, err := fs.Glob(migrationFS, s.getMigrationBasePath()+"*/*.sql")
	if err != nil {
		return errors.Wrap(err, "failed to read migration files")
	}
	sort.Strings(filePaths)

	tx, err := s.driver.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	slog.Info("start migration",
		slog.String("currentSchemaVersion", currentSchemaVersion),
		slog.String("targetSchemaVersion", targetVersion))

	migrationsApplied := 0
	for _, filePath := range filePaths {
		fileVersion := filepath.Base(filepath.Dir(filePath))
		if !shouldApplyMigration(fileVersion, currentSchemaVersion, targetVersion) {
			continue
		}
		if !strings.Contains(filepath.Base(filePath), MigrateFileNameSplit) {
			slog.Warn("migration file has unexpected name", slog.String("file", filePath))
		}

		slog.Info("applying migration", slog.String("file", filePath))
		buf, err := migrationFS.ReadFile(filePath)
		if err != nil {
			return errors.Wrapf(err, "failed to read migration file %s", filePath)
		}
		if _, err := tx.ExecContext(ctx, string(buf)); err != nil {
			return errors.Wrapf(err, "failed to execute migration %s", filePath)
		}
		migrationsApplied++
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit migration transaction")
	}
	slog.Info("migration completed", slog.Int("migrationsApplied", migrationsApplied))
	return nil
}

func (s *Store) getMigrationBasePath() string {
	return fmt.Sprintf("migration/%s/", s.profile.Driver)
}

// currentSchemaVersion reads the stamped schema version, or the
// default when no row exists yet.
func (s *Store) currentSchemaVersion(ctx context.Context) (string, error) {
	stmt := "SELECT value FROM system_setting WHERE name = " + s.settingPlaceholder(1)
	var value string
	if err := s.driver.GetDB().QueryRowContext(ctx, stmt, schemaVersionSettingName).Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return defaultSchemaVersion, nil
		}
		return "", err
	}
	if value == "" {
		return defaultSchemaVersion, nil
	}
	return value, nil
}

func (s *Store) updateSchemaVersion(ctx context.Context, schemaVersion string) error {
	stmt := "INSERT INTO system_setting (name, value) VALUES (" +
		s.settingPlaceholder(1) + ", " + s.settingPlaceholder(2) +
		") ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value"
	_, err := s.driver.GetDB().ExecContext(ctx, stmt, schemaVersionSettingName, schemaVersion)
	return err
}

// settingPlaceholder returns the parameter placeholder for the
// active driver.
func (s *Store) settingPlaceholder(n int) string {
	if s.profile.Driver == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}
