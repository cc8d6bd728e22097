package uploads

import (
	"context"

	"github.com/modicscan/syncengine/internal/store/models"
)

// Repository describes persistence operations for the upload job queue.
// Jobs are deleted on terminal success; failed jobs are retained with an
// incremented retry count until the cap is reached.
type Repository interface {
	// Insert enqueues a new upload job.
	Insert(ctx context.Context, job *models.PendingUpload) error

	// GetByID returns one job, or an error matching common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.PendingUpload, error)

	// SelectRunnable lists jobs with retry_count below maxRetries, oldest first.
	SelectRunnable(ctx context.Context, maxRetries int) ([]*models.PendingUpload, error)

	// CountCapped returns how many jobs sit at or above the retry cap.
	CountCapped(ctx context.Context, maxRetries int) (int, error)

	// Update persists the mutable fields of a job (status, URLs, retry count,
	// last error, completion time).
	Update(ctx context.Context, job *models.PendingUpload) error

	// Reown re-points every job owned by oldOwnerID to newOwnerID.
	Reown(ctx context.Context, oldOwnerID, newOwnerID string) (int64, error)

	// Delete removes a job row, used on terminal success.
	Delete(ctx context.Context, id string) error

	// CountPending returns the number of jobs still eligible for upload.
	CountPending(ctx context.Context) (int, error)
}
