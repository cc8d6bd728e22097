package identities

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

const identityColumns = `id, email, password_hash, encrypted_password, display_name,
	remote_linked, sync_status, migrating_to, created_at, last_synced_at`

func (r *SQLiteRepository) Upsert(ctx context.Context, i *models.Identity) error {
	query := `INSERT INTO identities (` + identityColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			password_hash = excluded.password_hash,
			encrypted_password = excluded.encrypted_password,
			display_name = excluded.display_name,
			remote_linked = excluded.remote_linked,
			sync_status = excluded.sync_status,
			migrating_to = excluded.migrating_to,
			last_synced_at = excluded.last_synced_at`
	_, err := r.db.ExecContext(ctx, query,
		i.ID, i.Email, i.PasswordHash, i.EncryptedPassword, i.DisplayName,
		i.RemoteLinked, i.SyncStatus, i.MigratingTo, i.CreatedAt, i.LastSyncedAt)
	if err != nil {
		return fmt.Errorf("%w: failed to upsert identity: %v", common.ErrStorage, err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Identity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id = ?`, id)
	return scanIdentity(row)
}

func (r *SQLiteRepository) GetByEmail(ctx context.Context, email string) (*models.Identity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE email = ?`, email)
	return scanIdentity(row)
}

func scanIdentity(row *sql.Row) (*models.Identity, error) {
	i := &models.Identity{}
	var lastSynced sql.NullTime
	err := row.Scan(&i.ID, &i.Email, &i.PasswordHash, &i.EncryptedPassword, &i.DisplayName,
		&i.RemoteLinked, &i.SyncStatus, &i.MigratingTo, &i.CreatedAt, &lastSynced)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: identity", common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to scan identity: %v", common.ErrStorage, err)
	}
	if lastSynced.Valid {
		i.LastSyncedAt = &lastSynced.Time
	}
	return i, nil
}

func (r *SQLiteRepository) SelectUnsynced(ctx context.Context) ([]*models.Identity, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE sync_status IN ('PENDING', 'FAILED') ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to select identities: %v", common.ErrStorage, err)
	}
	defer rows.Close()

	var result []*models.Identity
	for rows.Next() {
		i := &models.Identity{}
		var lastSynced sql.NullTime
		if err := rows.Scan(&i.ID, &i.Email, &i.PasswordHash, &i.EncryptedPassword, &i.DisplayName,
			&i.RemoteLinked, &i.SyncStatus, &i.MigratingTo, &i.CreatedAt, &lastSynced); err != nil {
			return nil, fmt.Errorf("%w: failed to scan identity: %v", common.ErrStorage, err)
		}
		if lastSynced.Valid {
			i.LastSyncedAt = &lastSynced.Time
		}
		result = append(result, i)
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
			`UPDATE identities SET sync_status = ?, last_synced_at = ? WHERE id = ?`,
			status, time.Now().UTC(), id)
	} else {
		_, err = r.db.ExecContext(ctx,
			`UPDATE identities SET sync_status = ? WHERE id = ?`, status, id)
	}
	if err != nil {
		return fmt.Errorf("%w: failed to update identity status: %v", common.ErrStorage, err)
	}
	return nil
}

func (r *SQLiteRepository) SetMigratingTo(ctx context.Context, id, newID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE identities SET migrating_to = ? WHERE id = ?`, newID, id)
	if err != nil {
		return fmt.Errorf("%w: failed to set migration marker: %v", common.ErrStorage, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM identities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: failed to delete identity: %v", common.ErrStorage, err)
	}
	return nil
}

func (r *SQLiteRepository) CountPending(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM identities WHERE sync_status IN ('PENDING', 'FAILED')`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to count identities: %v", common.ErrStorage, err)
	}
	return n, nil
}
