package index

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// memDBSeq distinguishes in-memory databases from each other. Shared cache
// keeps the connection pool on one database; the unique name keeps separate
// Store handles off each other's.
var memDBSeq atomic.Int64

// openSqliteDB returns a connection to a SQLite database.
// If path is empty, uses an in-memory database.
func openSqliteDB(path string, batchSize int) (*gorm.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = fmt.Sprintf("file:edmapmem%d?mode=memory&cache=shared", memDBSeq.Add(1))
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        batchSize,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// set PRAGMAs
	pragmas := []string{
		"PRAGMA user_version = 1;",
		"PRAGMA journal_mode = MEMORY;",
		"PRAGMA synchronous = OFF;",
		"PRAGMA cache_size = -32000;",
		"PRAGMA temp_store = MEMORY;",
	}

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %s", err)
		}
	}

	return db, nil
}

// openPostgresDB returns a connection to the Postgres database.
func openPostgresDB(cfg PostgresConfig, batchSize int) (*gorm.DB, error) {
	dsn := fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		cfg.Host,
		cfg.Port,
		cfg.Username,
		cfg.Password,
		cfg.Database,
	)

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        batchSize,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// dumpToDisk vacuums an in-memory database into a fresh file next to the
// final store path, then renames it into place. The rename is atomic on the
// same filesystem, so a concurrent reader sees either the old store or the
// new one, never a half-written file.
func dumpToDisk(db *gorm.DB, storePath string) error {
	if storePath == "" {
		return fmt.Errorf("store file path not set")
	}

	tmpPath := fmt.Sprintf("%s.build.%d", storePath, os.Getpid())

	// VACUUM INTO refuses to overwrite; clear any leftover from a crashed run
	if _, err := os.Stat(tmpPath); err == nil {
		if err := os.Remove(tmpPath); err != nil {
			return fmt.Errorf("error removing stale build file: %s", err)
		}
	}

	if err := db.Exec("VACUUM INTO 'file:" + tmpPath + "';").Error; err != nil {
		return fmt.Errorf("error dumping memory DB to disk: %s", err)
	}

	if err := os.Rename(tmpPath, storePath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("error moving store into place: %w", err)
	}
	return nil
}

// closeDB closes the underlying sql.DB of a gorm handle.
func closeDB(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
