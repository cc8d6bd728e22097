package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/modicscan/syncengine/internal/common"
	"github.com/modicscan/syncengine/internal/dbx"
	"github.com/modicscan/syncengine/internal/store/models"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const recordColumns = `id, owner_id, record_type, content, metadata, sync_status,
	created_at, modified_at, synced_at`

func (r *SQLiteRepository) Upsert(ctx context.Context, rec *models.OwnedRecord) error {
	query := `INSERT INTO owned_records (` + recordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id = excluded.owner_id,
			record_type = excluded.record_type,
			content = excluded.content,
			metadata = excluded.metadata,
			sync_status = excluded.sync_status,
			modified_at = excluded.modified_at,
			synced_at = excluded.synced_at`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.OwnerID, rec.RecordType, rec.Content, rec.Metadata, rec.SyncStatus,
		rec.CreatedAt, rec.ModifiedAt, rec.SyncedAt)
	if err != nil {
		return fmt.Errorf("%w: failed to upsert record: %v", common.ErrStorage, err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.OwnedRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM owned_records WHERE id = ?`, id)

	rec := &models.OwnedRecord{}
	var syncedAt sql.NullTime
	err := row.Scan(&rec.ID, &rec.OwnerID, &rec.RecordType, &rec.Content, &rec.Metadata,
		&rec.SyncStatus, &rec.CreatedAt, &rec.ModifiedAt, &syncedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: record", common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to scan record: %v", common.ErrStorage, err)
	}
	if syncedAt.Valid {
		rec.SyncedAt = &syncedAt.Time
	}
	return rec, nil
}

func (r *SQLiteRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.OwnedRecord, error) {
	return r.selectRecords(ctx,
		`SELECT `+recordColumns+` FROM owned_records WHERE owner_id = ? ORDER BY created_at DESC`, ownerID)
}

func (r *SQLiteRepository) SelectUnsynced(ctx context.Context) ([]*models.OwnedRecord, error) {
	return r.selectRecords(ctx,
		`SELECT `+recordColumns+` FROM owned_records WHERE sync_status IN ('PENDING', 'FAILED') ORDER BY created_at`)
}

func (r *SQLiteRepository) selectRecords(ctx context.Context, query string, args ...any) ([]*models.OwnedRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to select records: %v", common.ErrStorage, err)
	}
	defer rows.Close()

	var result []*models.OwnedRecord
	for rows.Next() {
		rec := &models.OwnedRecord{}
		var syncedAt sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.RecordType, &rec.Content, &rec.Metadata,
			&rec.SyncStatus, &rec.CreatedAt, &rec.ModifiedAt, &syncedAt); err != nil {
			return nil, fmt.Errorf("%w: failed to scan record: %v", common.ErrStorage, err)
		}
		if syncedAt.Valid {
			rec.SyncedAt = &syncedAt.Time
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	return result, nil
}

func (r *SQLiteRepository) UpdateSyncStatus(ctx context.Context, id string, status models.SyncStatus) error {
	var err error
	if status == models.StatusSynced {
		_, err = r.db.ExecContext(ctx,
			`UPDATE owned_records SET sync_status = ?, synced_at = ? WHERE id = ?`,
			status, time.Now().UTC(), id)
	} else {
		_, err = r.db.ExecContext(ctx,
			`UPDATE owned_records SET sync_status = ? WHERE id = ?`, status, id)
	}
	if err != nil {
		return fmt.Errorf("%w: failed to update record status: %v", common.ErrStorage, err)
	}
	return nil
}

func (r *SQLiteRepository) Reown(ctx context.Context, oldOwnerID, newOwnerID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE owned_records SET owner_id = ? WHERE owner_id = ?`, newOwnerID, oldOwnerID)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to re-own records: %v", common.ErrStorage, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: failed to get rows affected: %v", common.ErrStorage, err)
	}
	return n, nil
}

func (r *SQLiteRepository) CountPending(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM owned_records WHERE sync_status IN ('PENDING', 'FAILED')`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to count records: %v", common.ErrStorage, err)
	}
	return n, nil
}
