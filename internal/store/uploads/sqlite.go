package uploads

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modicscan/syncengine/internal/common"
	"github.com/modicscan/syncengine/internal/dbx"
	"github.com/modicscan/syncengine/internal/store/models"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
// Asset paths and URLs are stored as JSON arrays in TEXT columns.
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const uploadColumns = `id, owner_id, record_id, asset_paths, asset_urls, sync_status,
	retry_count, created_at, completed_at, last_error`

func marshalAssets(paths []string) (string, error) {
	if paths == nil {
		paths = []string{}
	}
	b, err := json.Marshal(paths)
	if err != nil {
		return "", fmt.Errorf("%w: failed to marshal asset list: %v", common.ErrStorage, err)
	}
	return string(b), nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, job *models.PendingUpload) error {
	paths, err := marshalAssets(job.AssetPaths)
	if err != nil {
		return err
	}
	urls, err := marshalAssets(job.AssetURLs)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO pending_uploads (`+uploadColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.OwnerID, job.RecordID, paths, urls, job.SyncStatus,
		job.RetryCount, job.CreatedAt, job.CompletedAt, job.LastError)
	if err != nil {
		return fmt.Errorf("%w: failed to insert upload job: %v", common.ErrStorage, err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.PendingUpload, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+uploadColumns+` FROM pending_uploads WHERE id = ?`, id)

	job, err := scanUpload(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: upload job", common.ErrNotFound)
	}
	return job, err
}

func scanUpload(scan func(dest ...any) error) (*models.PendingUpload, error) {
	job := &models.PendingUpload{}
	var paths, urls string
	var completedAt sql.NullTime
	err := scan(&job.ID, &job.OwnerID, &job.RecordID, &paths, &urls, &job.SyncStatus,
		&job.RetryCount, &job.CreatedAt, &completedAt, &job.LastError)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	if err := json.Unmarshal([]byte(paths), &job.AssetPaths); err != nil {
		return nil, fmt.Errorf("%w: corrupt asset_paths: %v", common.ErrStorage, err)
	}
	if err := json.Unmarshal([]byte(urls), &job.AssetURLs); err != nil {
		return nil, fmt.Errorf("%w: corrupt asset_urls: %v", common.ErrStorage, err)
	}
	return job, nil
}

func (r *SQLiteRepository) SelectRunnable(ctx context.Context, maxRetries int) ([]*models.PendingUpload, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+uploadColumns+` FROM pending_uploads WHERE retry_count < ? ORDER BY created_at`, maxRetries)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to select upload jobs: %v", common.ErrStorage, err)
	}
	defer rows.Close()

	var result []*models.PendingUpload
	for rows.Next() {
		job, err := scanUpload(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan upload job: %v", common.ErrStorage, err)
		}
		result = append(result, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	return result, nil
}

func (r *SQLiteRepository) CountCapped(ctx context.Context, maxRetries int) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pending_uploads WHERE retry_count >= ?`, maxRetries).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to count capped jobs: %v", common.ErrStorage, err)
	}
	return n, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, job *models.PendingUpload) error {
	urls, err := marshalAssets(job.AssetURLs)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE pending_uploads SET asset_urls = ?, sync_status = ?, retry_count = ?,
			completed_at = ?, last_error = ? WHERE id = ?`,
		urls, job.SyncStatus, job.RetryCount, job.CompletedAt, job.LastError, job.ID)
	if err != nil {
		return fmt.Errorf("%w: failed to update upload job: %v", common.ErrStorage, err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to get rows affected: %v", common.ErrStorage, err)
	}
	if ra != 1 {
		return fmt.Errorf("%w: upload job", common.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) Reown(ctx context.Context, oldOwnerID, newOwnerID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE pending_uploads SET owner_id = ? WHERE owner_id = ?`, newOwnerID, oldOwnerID)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to re-own upload jobs: %v", common.ErrStorage, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: failed to get rows affected: %v", common.ErrStorage, err)
	}
	return n, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM pending_uploads WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: failed to delete upload job: %v", common.ErrStorage, err)
	}
	return nil
}

func (r *SQLiteRepository) CountPending(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pending_uploads`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to count upload jobs: %v", common.ErrStorage, err)
	}
	return n, nil
}
