package signups

import (
	"context"

	"github.com/modicscan/syncengine/internal/store/models"
)

// Repository describes persistence operations for deferred registration
// attempts. Completed rows are retained as history.
type Repository interface {
	// Insert enqueues a new signup attempt.
	Insert(ctx context.Context, signup *models.PendingSignup) error

	// SelectRunnable lists PENDING or FAILED signups below the retry cap.
	SelectRunnable(ctx context.Context, maxRetries int) ([]*models.PendingSignup, error)

	// MarkCompleted marks a signup as confirmed remotely.
	MarkCompleted(ctx context.Context, id string) error

	// MarkFailed records a failed attempt, incrementing the retry count.
	MarkFailed(ctx context.Context, id, errorMessage string) error

	// CountPending returns the number of signups awaiting confirmation.
	CountPending(ctx context.Context) (int, error)
}
