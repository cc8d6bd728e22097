package signups

import (
	"context"
	"fmt"

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

func (r *SQLiteRepository) Insert(ctx context.Context, s *models.PendingSignup) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO pending_signups (id, email, display_name, password_hash, status,
			retry_count, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Email, s.DisplayName, s.PasswordHash, s.Status,
		s.RetryCount, s.ErrorMessage, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: failed to insert pending signup: %v", common.ErrStorage, err)
	}
	return nil
}

func (r *SQLiteRepository) SelectRunnable(ctx context.Context, maxRetries int) ([]*models.PendingSignup, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, email, display_name, password_hash, status, retry_count, error_message, created_at
		FROM pending_signups
		WHERE status IN ('PENDING', 'FAILED') AND retry_count < ?
		ORDER BY created_at`, maxRetries)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to select pending signups: %v", common.ErrStorage, err)
	}
	defer rows.Close()

	var result []*models.PendingSignup
	for rows.Next() {
		s := &models.PendingSignup{}
		if err := rows.Scan(&s.ID, &s.Email, &s.DisplayName, &s.PasswordHash, &s.Status,
			&s.RetryCount, &s.ErrorMessage, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: failed to scan pending signup: %v", common.ErrStorage, err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	return result, nil
}

func (r *SQLiteRepository) MarkCompleted(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE pending_signups SET status = 'COMPLETED', error_message = '' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: failed to complete pending signup: %v", common.ErrStorage, err)
	}
	return nil
}

func (r *SQLiteRepository) MarkFailed(ctx context.Context, id, errorMessage string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE pending_signups SET status = 'FAILED', retry_count = retry_count + 1,
			error_message = ? WHERE id = ?`, errorMessage, id)
	if err != nil {
		return fmt.Errorf("%w: failed to mark pending signup: %v", common.ErrStorage, err)
	}
	return nil
}

func (r *SQLiteRepository) CountPending(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pending_signups WHERE status IN ('PENDING', 'FAILED')`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to count pending signups: %v", common.ErrStorage, err)
	}
	return n, nil
}
