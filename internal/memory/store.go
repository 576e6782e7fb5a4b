// Package memory is the sole owner of the SQLite connection pool and
// every durable entity: conversations, messages, facts, tasks,
// provider sessions, outcomes, lessons, and the audit log. Nothing
// outside this package touches the database directly.
package memory

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/omegacore/omega/internal/errs"
)

//go:embed migrations
var migrationsFS embed.FS

// poolSize is the connection pool size spec §4.2 names ("size ≈ 4").
// SQLite's WAL journal serializes writers but lets readers proceed
// without blocking, so a handful of connections is enough to keep the
// pipeline and background loops from queuing behind each other.
const poolSize = 4

// memDBCounter gives each OpenInMemory call its own named shared-cache
// database so concurrent tests never see each other's rows.
var memDBCounter atomic.Int64

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflicting task")
	ErrInvalidFact      = errors.New("invalid fact")
)

// Store wraps the database handle every entity-specific file in this
// package operates on.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if necessary) the SQLite database at path,
// configures WAL journaling and the connection pool, and applies any
// pending migrations. Migration failure is fatal per spec §4.2/§7: the
// returned error is always a *errs.Error with CategoryMigration.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	memMode := path == ":memory:"
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"
	if memMode {
		// A bare ":memory:" DSN gives every pooled connection its own
		// private database, and a fixed shared-cache name would collide
		// across concurrent tests. Each call gets its own named,
		// shared-cache in-memory database instead.
		dsn = fmt.Sprintf("file:omega-mem-%d?mode=memory&cache=shared&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", memDBCounter.Add(1))
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errs.New(errs.CategoryMigration, "open database", err)
	}

	conns := poolSize
	if memMode {
		// A shared-cache in-memory database is dropped once its last
		// connection closes, so the pool must never go idle to zero.
		conns = 1
	}
	db.SetMaxOpenConns(conns)
	db.SetMaxIdleConns(conns)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errs.New(errs.CategoryMigration, "ping database", err)
	}

	if err := migrateUp(db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, logger: logger.With("component", "memory")}, nil
}

// OpenInMemory opens an ephemeral, fully-migrated database for tests.
func OpenInMemory(logger *slog.Logger) (*Store, error) {
	return Open(":memory:", logger)
}

func migrateUp(db *sql.DB, logger *slog.Logger) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return errs.New(errs.CategoryMigration, "create migration driver", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return errs.New(errs.CategoryMigration, "open embedded migration source", err)
	}
	defer source.Close()

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return errs.New(errs.CategoryMigration, "create migrator", err)
	}

	before, _, _ := m.Version()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errs.New(errs.CategoryMigration, "apply migrations", err)
	}
	after, _, _ := m.Version()
	if after != before {
		logger.Info("applied migrations", "from", before, "to", after)
	}

	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the raw handle for the rare cross-cutting query (audit
// range scans, status/health checks) that doesn't warrant its own
// entity method.
func (s *Store) DB() *sql.DB {
	return s.db
}

func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return errs.ClassifyDBError(fmt.Errorf("%s: %w", op, err))
}
