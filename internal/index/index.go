// Package index implements the persistent name->coordinate store the join
// runs against, and the freshness gate that decides when it must be rebuilt.
//
// The store is keyed by case-normalized system name and backed by SQLite by
// default: builds run against an in-memory database and are vacuumed to the
// store file in one atomic rename, so a crashed or concurrent build never
// corrupts an existing store. A Postgres backend is available for shared
// deployments, and a pure in-memory backend for tests and one-shot runs.
package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/JYF/edmap/internal/model"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Backend names accepted in Config.Backend.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// DefaultBatchSize is the number of systems committed per insert batch.
const DefaultBatchSize = 10000

// ErrNotBuilt is returned by Lookup when no store has been built or opened.
var ErrNotBuilt = errors.New("index store not built")

// PostgresConfig holds connection settings for the postgres backend.
type PostgresConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// Config selects and parameterizes the store backend.
type Config struct {
	Backend   string // sqlite, postgres or memory
	Path      string // store file path (sqlite backend)
	BatchSize int
	Postgres  PostgresConfig
}

// SourceInfo identifies the record source a build consumed.
type SourceInfo struct {
	Path    string
	ModTime time.Time
}

// RecordSource streams SystemRecords into a build. systems.Reader satisfies
// this; tests use slice-backed sources.
type RecordSource interface {
	Each(fn func(model.SystemRecord) error) error
}

// Diagnostics carries reader-side skip counts into the build metadata.
type Diagnostics struct {
	Skipped      int64   `json:"skipped"`
	SkippedLines []int64 `json:"skippedLines,omitempty"`
}

// BuildResult describes one completed build.
type BuildResult struct {
	Systems  int64
	Duration time.Duration
}

// Normalize folds a system name to the store key: lowercased, surrounding
// whitespace removed. Applied identically at build and lookup time, so the
// store never depends on a database collation.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Store is a handle on the index with an explicit lifecycle:
// Open -> NeedsRebuild -> (Build) -> Lookup* -> Close.
// It is safe for concurrent readers once Build has returned, but has no
// support for concurrent writers.
type Store struct {
	cfg    Config
	logger zerolog.Logger
	db     *gorm.DB
}

// Open creates a store handle. For the sqlite backend an existing store file
// is opened immediately; an absent one is only reported by NeedsRebuild and
// created by Build.
func Open(cfg Config, logger zerolog.Logger) (*Store, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	s := &Store{cfg: cfg, logger: logger}

	switch cfg.Backend {
	case BackendSQLite, "":
		s.cfg.Backend = BackendSQLite
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite backend requires a store path")
		}
		if _, err := os.Stat(cfg.Path); err == nil {
			db, err := openSqliteDB(cfg.Path, s.cfg.BatchSize)
			if err != nil {
				return nil, fmt.Errorf("error opening store %s: %w", cfg.Path, err)
			}
			s.db = db
		}

	case BackendPostgres:
		db, err := openPostgresDB(cfg.Postgres, s.cfg.BatchSize)
		if err != nil {
			return nil, fmt.Errorf("error connecting to postgres store: %w", err)
		}
		if err := db.AutoMigrate(model.DatabaseModels...); err != nil {
			return nil, fmt.Errorf("error migrating store schema: %w", err)
		}
		s.db = db

	case BackendMemory:
		// created on build

	default:
		return nil, fmt.Errorf("unknown index backend: %s", cfg.Backend)
	}

	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	err := closeDB(s.db)
	s.db = nil
	return err
}

// ModTime returns the store's last-build timestamp for the freshness gate:
// the store file's mtime for sqlite, the recorded source mtime for postgres.
// The second return is false when no built store exists.
func (s *Store) ModTime() (time.Time, bool, error) {
	switch s.cfg.Backend {
	case BackendSQLite:
		fi, err := os.Stat(s.cfg.Path)
		if err != nil {
			if os.IsNotExist(err) {
				return time.Time{}, false, nil
			}
			return time.Time{}, false, fmt.Errorf("error statting store %s: %w", s.cfg.Path, err)
		}
		return fi.ModTime(), true, nil

	case BackendPostgres:
		var meta model.BuildMeta
		err := s.db.First(&meta).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, false, nil
		}
		if err != nil {
			return time.Time{}, false, fmt.Errorf("error reading build metadata: %w", err)
		}
		return meta.SourceModTime, true, nil

	default:
		return time.Time{}, false, nil
	}
}

// NeedsRebuild stats the record source and applies the freshness gate.
// A missing source is fatal: without it no index can exist.
func (s *Store) NeedsRebuild(sourcePath string) (bool, SourceInfo, error) {
	fi, err := os.Stat(sourcePath)
	if err != nil {
		return false, SourceInfo{}, fmt.Errorf("error statting record source %s: %w", sourcePath, err)
	}
	info := SourceInfo{Path: sourcePath, ModTime: fi.ModTime()}

	storeMod, exists, err := s.ModTime()
	if err != nil {
		return false, info, err
	}

	stale := Stale(info.ModTime, storeMod, exists)
	s.logger.Debug().
		Bool("stale", stale).
		Bool("storeExists", exists).
		Time("sourceMod", info.ModTime).
		Time("storeMod", storeMod).
		Msg("Evaluated index freshness")
	return stale, info, nil
}

// Build (re)populates the store from src. It is destructive and idempotent:
// the final state is a function of the source alone, with last-write-wins
// semantics per normalized name. Records are committed in batches of
// Config.BatchSize so an interrupted build leaves a recoverable store; the
// sqlite backend additionally builds off to the side and renames the result
// into place, leaving any previous store untouched until the new one is
// complete. diag may be nil.
func (s *Store) Build(src RecordSource, info SourceInfo, diag func() Diagnostics) (BuildResult, error) {
	start := time.Now()

	db, err := s.buildTarget()
	if err != nil {
		return BuildResult{}, err
	}

	if err := db.AutoMigrate(model.DatabaseModels...); err != nil {
		return BuildResult{}, fmt.Errorf("error migrating store schema: %w", err)
	}

	// destructive rebuild: drop whatever a previous build left behind
	if err := db.Exec("DELETE FROM systems").Error; err != nil {
		return BuildResult{}, fmt.Errorf("error clearing store: %w", err)
	}
	if err := db.Exec("DELETE FROM build_meta").Error; err != nil {
		return BuildResult{}, fmt.Errorf("error clearing build metadata: %w", err)
	}

	var total int64
	batch := make([]model.System, 0, s.cfg.BatchSize)
	pos := make(map[string]int, s.cfg.BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "x", "y", "z"}),
		}).Create(&batch).Error
		if err != nil {
			return fmt.Errorf("error inserting batch: %w", err)
		}
		batch = batch[:0]
		clear(pos)
		return nil
	}

	err = src.Each(func(rec model.SystemRecord) error {
		if rec.Coords == nil {
			return nil
		}
		sys := model.System{
			NameKey: Normalize(rec.Name),
			Name:    rec.Name,
			X:       rec.Coords.X,
			Y:       rec.Coords.Y,
			Z:       rec.Coords.Z,
		}
		// last write wins inside a batch too; a single INSERT must not
		// touch the same key twice
		if i, ok := pos[sys.NameKey]; ok {
			batch[i] = sys
			return nil
		}
		pos[sys.NameKey] = len(batch)
		batch = append(batch, sys)
		if len(batch) >= s.cfg.BatchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return BuildResult{}, err
	}
	if err := flush(); err != nil {
		return BuildResult{}, err
	}

	// upserts across batches collapse duplicate keys, so count from the store
	if err := db.Model(&model.System{}).Count(&total).Error; err != nil {
		return BuildResult{}, fmt.Errorf("error counting systems: %w", err)
	}

	if err := s.writeMeta(db, info, total, diag); err != nil {
		return BuildResult{}, err
	}

	// release any handle on the previous store before renaming over it
	if s.db != nil && s.db != db {
		_ = closeDB(s.db)
		s.db = nil
	}

	if s.cfg.Backend == BackendSQLite {
		if err := dumpToDisk(db, s.cfg.Path); err != nil {
			return BuildResult{}, err
		}
	}

	// lookups for this run go to the freshly built database
	s.db = db

	res := BuildResult{Systems: total, Duration: time.Since(start)}
	s.logger.Info().
		Int64("systems", total).
		Dur("duration", res.Duration).
		Str("backend", s.cfg.Backend).
		Msg("Index store built")
	return res, nil
}

// buildTarget returns the database a build writes into. SQLite and memory
// backends build in memory; postgres builds in place.
func (s *Store) buildTarget() (*gorm.DB, error) {
	switch s.cfg.Backend {
	case BackendSQLite, BackendMemory:
		db, err := openSqliteDB("", s.cfg.BatchSize)
		if err != nil {
			return nil, fmt.Errorf("error opening build database: %w", err)
		}
		return db, nil
	case BackendPostgres:
		return s.db, nil
	default:
		return nil, fmt.Errorf("unknown index backend: %s", s.cfg.Backend)
	}
}

func (s *Store) writeMeta(db *gorm.DB, info SourceInfo, systems int64, diag func() Diagnostics) error {
	meta := model.BuildMeta{
		ID:            1,
		SourcePath:    info.Path,
		SourceModTime: info.ModTime,
		BuiltAt:       time.Now(),
		Systems:       systems,
	}
	if diag != nil {
		d := diag()
		meta.Skipped = d.Skipped
		if raw, err := json.Marshal(d); err == nil {
			meta.Diagnostics = datatypes.JSON(raw)
		}
	}
	if err := db.Create(&meta).Error; err != nil {
		return fmt.Errorf("error writing build metadata: %w", err)
	}
	return nil
}

// Lookup returns the coordinates stored under the normalized form of name.
// The miss case is not an error: ok is false and err is nil.
func (s *Store) Lookup(name string) (model.Coords, bool, error) {
	if s.db == nil {
		return model.Coords{}, false, ErrNotBuilt
	}

	var sys model.System
	err := s.db.Where("name_key = ?", Normalize(name)).Take(&sys).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Coords{}, false, nil
	}
	if err != nil {
		return model.Coords{}, false, fmt.Errorf("error looking up system %q: %w", name, err)
	}
	return model.Coords{X: sys.X, Y: sys.Y, Z: sys.Z}, true, nil
}

// Meta returns the metadata row of the last completed build, if any.
func (s *Store) Meta() (model.BuildMeta, bool, error) {
	if s.db == nil {
		return model.BuildMeta{}, false, nil
	}
	var meta model.BuildMeta
	err := s.db.First(&meta).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.BuildMeta{}, false, nil
	}
	if err != nil {
		return model.BuildMeta{}, false, fmt.Errorf("error reading build metadata: %w", err)
	}
	return meta, true, nil
}
