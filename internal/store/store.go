// Package store persists `test` subcommand runs so pass/fail history
// can be queried across invocations. Grounded on db/sqlite.go's
// Connect/Migrate shape and models/models.go's GORM model style, here
// narrowed from the teacher's Stage/Apply/Session schema to a
// TestRun/FileResult pair. The remote Turso/libsql path in the teacher
// has no role in a local CLI tool — see DESIGN.md for why that
// dependency was dropped in favor of glebarez/sqlite, a pure-Go local
// driver already in the teacher's own go.mod.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// JSONStrings marshals a string slice into a datatypes.JSON column
// value, used for FileResult.Errors. An empty slice marshals to `[]`,
// not null, so the column is never ambiguous between "no errors" and
// "not yet recorded".
func JSONStrings(values []string) datatypes.JSON {
	if values == nil {
		values = []string{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(b)
}

// TestRun records one invocation of `webrascal test --dir`.
type TestRun struct {
	ID        string    `gorm:"primaryKey;type:varchar(20)"`
	Directory string    `gorm:"type:varchar(512);not null"`
	StartedAt time.Time `gorm:"autoCreateTime"`
	Duration  time.Duration

	FileCount int `gorm:"default:0"`
	Passed    int `gorm:"default:0"`
	Failed    int `gorm:"default:0"`

	Files []FileResult `gorm:"foreignKey:RunID"`
}

// FileResult records one rewritten file's pass/fail outcome within a
// TestRun.
type FileResult struct {
	ID     string `gorm:"primaryKey;type:varchar(20)"`
	RunID  string `gorm:"type:varchar(20);index"`
	Path   string `gorm:"type:varchar(1024);not null"`
	Passed bool   `gorm:"default:false"`

	// Errors holds the rewriter's diagnostics for this file
	// (Result.Errors), as recorded by the `test` subcommand; the
	// harness engine's own error for a failing file is not stored.
	Errors datatypes.JSON `gorm:"type:jsonb"`
}

func (TestRun) TableName() string    { return "test_runs" }
func (FileResult) TableName() string { return "file_results" }

// Connect opens (creating if necessary) a local SQLite database at
// dsn and runs migrations. debug turns on GORM's query logger.
func Connect(dsn string, debug bool) (*gorm.DB, error) {
	if dir := filepath.Dir(dsn); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("webrascal: create store directory: %w", err)
		}
	}

	config := &gorm.Config{}
	if debug {
		config.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(sqlite.Open(dsn), config)
	if err != nil {
		return nil, fmt.Errorf("webrascal: open store: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("webrascal: migrate store: %w", err)
	}
	return db, nil
}

// Migrate runs AutoMigrate for every model the store owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&TestRun{}, &FileResult{})
}

// RecentRuns returns up to limit TestRuns, most recent first, for the
// `webrascal history` subcommand's trend report. Files are not
// preloaded; callers after a per-file breakdown should query
// FileResult directly by RunID.
func RecentRuns(db *gorm.DB, limit int) ([]TestRun, error) {
	var runs []TestRun
	err := db.Order("started_at desc").Limit(limit).Find(&runs).Error
	return runs, err
}
