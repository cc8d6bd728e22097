package identities

import (
	"context"

	"github.com/modicscan/syncengine/internal/store/models"
)

// Repository describes persistence operations for Identity rows.
// The invariant "at most one row per email" is enforced by the schema;
// callers still check for duplicates first so no network call is wasted.
type Repository interface {
	// Upsert inserts a new identity or replaces an existing one by ID.
	Upsert(ctx context.Context, identity *models.Identity) error

	// GetByID returns the identity with the given primary key, or an error
	// matching common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.Identity, error)

	// GetByEmail returns the identity registered under email, or an error
	// matching common.ErrNotFound.
	GetByEmail(ctx context.Context, email string) (*models.Identity, error)

	// SelectUnsynced lists identities with sync_status PENDING or FAILED.
	SelectUnsynced(ctx context.Context) ([]*models.Identity, error)

	// UpdateSyncStatus sets sync_status (and last_synced_at when status is
	// SYNCED) for one identity.
	UpdateSyncStatus(ctx context.Context, id string, status models.SyncStatus) error

	// SetMigratingTo records (or clears, with an empty value) the two-phase
	// migration marker.
	SetMigratingTo(ctx context.Context, id, newID string) error

	// Delete removes an identity row.
	Delete(ctx context.Context, id string) error

	// CountPending returns the number of identities awaiting sync.
	CountPending(ctx context.Context) (int, error)
}
