// Package store opens the local SQLite database, applies embedded goose
// migrations, and bundles the entity repositories together with a change
// notifier for reactive consumers.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/modicscan/syncengine/internal/store/identities"
	"github.com/modicscan/syncengine/internal/store/migrations"
	"github.com/modicscan/syncengine/internal/store/records"
	"github.com/modicscan/syncengine/internal/store/session"
	"github.com/modicscan/syncengine/internal/store/signups"
	"github.com/modicscan/syncengine/internal/store/uploads"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// Store bundles the local repositories over one database handle.
// Single-row writes are atomic; multi-row sequences that must be atomic
// (the identity swap) go through dbx.WithTx on DB.
type Store struct {
	DB         *sql.DB
	Identities identities.Repository
	Records    records.Repository
	Uploads    uploads.Repository
	Signups    signups.Repository
	Session    session.Repository
	Notifier   *Notifier
}

// RunMigrations applies the embedded schema migrations. The schema is
// versioned additively: new nullable columns and new tables only.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

// Open opens (creating if necessary) the database at dsn, migrates it, and
// returns the assembled Store.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// single connection: sqlite allows one writer, and an in-memory dsn
	// exists per connection
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return New(db), nil
}

// New assembles a Store over an already opened and migrated database.
func New(db *sql.DB) *Store {
	return &Store{
		DB:         db,
		Identities: identities.NewSQLiteRepository(db),
		Records:    records.NewSQLiteRepository(db),
		Uploads:    uploads.NewSQLiteRepository(db),
		Signups:    signups.NewSQLiteRepository(db),
		Session:    session.NewSQLiteRepository(db),
		Notifier:   NewNotifier(),
	}
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	s.Notifier.CloseAll()
	return s.DB.Close()
}

// PendingCounts aggregates the per-queue pending totals for UI indicators.
type PendingCounts struct {
	Identities int
	Records    int
	Uploads    int
	Signups    int
}

// Total returns the combined number of items awaiting sync.
func (c PendingCounts) Total() int {
	return c.Identities + c.Records + c.Uploads + c.Signups
}

// CountPending queries the pending aggregates across all queues.
func (s *Store) CountPending(ctx context.Context) (PendingCounts, error) {
	var counts PendingCounts
	var err error

	if counts.Identities, err = s.Identities.CountPending(ctx); err != nil {
		return counts, err
	}
	if counts.Records, err = s.Records.CountPending(ctx); err != nil {
		return counts, err
	}
	if counts.Uploads, err = s.Uploads.CountPending(ctx); err != nil {
		return counts, err
	}
	if counts.Signups, err = s.Signups.CountPending(ctx); err != nil {
		return counts, err
	}
	return counts, nil
}
