package records

import (
	"context"

	"github.com/modicscan/syncengine/internal/store/models"
)

// Repository describes persistence operations for OwnedRecord rows.
// Records are retained indefinitely as sync history; only their sync status
// and ownership change over time.
type Repository interface {
	// Upsert inserts a new record or replaces an existing one by ID.
	Upsert(ctx context.Context, record *models.OwnedRecord) error

	// GetByID returns one record, or an error matching common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.OwnedRecord, error)

	// ListByOwner lists all records owned by ownerID, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]*models.OwnedRecord, error)

	// SelectUnsynced lists records with sync_status PENDING or FAILED.
	SelectUnsynced(ctx context.Context) ([]*models.OwnedRecord, error)

	// UpdateSyncStatus sets sync_status (and synced_at when SYNCED) for one record.
	UpdateSyncStatus(ctx context.Context, id string, status models.SyncStatus) error

	// Reown re-points every record owned by oldOwnerID to newOwnerID and
	// returns the number of rows changed.
	Reown(ctx context.Context, oldOwnerID, newOwnerID string) (int64, error)

	// CountPending returns the number of records awaiting sync.
	CountPending(ctx context.Context) (int, error)
}
