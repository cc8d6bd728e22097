// Package uploader drains the queue of binary-asset upload jobs against the
// remote object storage. Jobs survive restarts; partially uploaded jobs
// resume from the first asset without a URL.
package uploader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/modicscan/syncengine/internal/common"
	"github.com/modicscan/syncengine/internal/logging"
	"github.com/modicscan/syncengine/internal/remote/docs"
	"github.com/modicscan/syncengine/internal/remote/objstore"
	"github.com/modicscan/syncengine/internal/store"
	"github.com/modicscan/syncengine/internal/store/models"
)

// MaxRetries caps how often a job is re-attempted before it is counted as
// terminally failed.
const MaxRetries = 3

// Result summarizes one Drain pass.
type Result struct {
	Succeeded int
	Failed    int
}

// Ok reports whether the pass left nothing behind that a retry could fix
// right now: at least one job succeeded, or the queue was already empty.
func (r Result) Ok() bool {
	return r.Succeeded > 0 || r.Failed == 0
}

// Processor uploads queued assets and patches their URLs into the owning
// record documents.
type Processor struct {
	store   *store.Store
	objects objstore.Storage
	docs    docs.Store
	limiter *rate.Limiter
	logger  logging.Logger
}

func NewProcessor(st *store.Store, objects objstore.Storage, docStore docs.Store,
	uploadsPerSecond float64, logger logging.Logger) *Processor {
	return &Processor{
		store:   st,
		objects: objects,
		docs:    docStore,
		limiter: rate.NewLimiter(rate.Limit(uploadsPerSecond), 1),
		logger:  logger,
	}
}

// Drain processes every runnable job once. A job fails as a unit: the first
// asset error marks it FAILED with an incremented retry count and moves on,
// keeping any URLs already earned so the next pass skips those assets.
// Local asset files are removed only after the job completed end to end.
func (p *Processor) Drain(ctx context.Context) (Result, error) {
	var res Result

	capped, err := p.store.Uploads.CountCapped(ctx, MaxRetries)
	if err != nil {
		return res, err
	}
	res.Failed += capped

	jobs, err := p.store.Uploads.SelectRunnable(ctx, MaxRetries)
	if err != nil {
		return res, err
	}

	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := p.processJob(ctx, job); err != nil {
			res.Failed++
			p.logger.Warn(ctx, "upload job failed", "job_id", job.ID, "retry_count", job.RetryCount, "error", err)
			job.SyncStatus = models.StatusFailed
			job.RetryCount++
			job.LastError = err.Error()
			if updateErr := p.store.Uploads.Update(ctx, job); updateErr != nil {
				return res, updateErr
			}
			continue
		}
		res.Succeeded++
		p.store.Notifier.Publish(store.Event{Kind: store.KindUpload, OwnerID: job.OwnerID})
	}
	return res, nil
}

func (p *Processor) processJob(ctx context.Context, job *models.PendingUpload) error {
	job.SyncStatus = models.StatusSyncing
	if err := p.store.Uploads.Update(ctx, job); err != nil {
		return err
	}

	for i, path := range job.AssetPaths {
		if job.AssetURLs[i] != "" {
			continue // uploaded on an earlier pass
		}

		body, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("%w: reading asset %s: %v", common.ErrStorage, path, err)
		}

		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}
		url, err := p.objects.Upload(ctx, job.OwnerID, path, body)
		if err != nil {
			return err
		}

		// persist each earned URL immediately so a crash or later failure
		// never repeats a finished upload
		job.AssetURLs[i] = url
		if err := p.store.Uploads.Update(ctx, job); err != nil {
			return err
		}
	}

	// best-effort: the assets are already durable remotely, so a failed
	// patch must not fail the job
	if err := p.docs.PatchRecordAssets(ctx, job.OwnerID, job.RecordID, job.AssetURLs); err != nil {
		p.logger.Warn(ctx, "could not patch record with asset urls",
			"record_id", job.RecordID, "error", err)
	}

	now := time.Now().UTC()
	job.SyncStatus = models.StatusSynced
	job.CompletedAt = &now
	if err := p.store.Uploads.Update(ctx, job); err != nil {
		return err
	}

	for _, path := range job.AssetPaths {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			p.logger.Warn(ctx, "could not remove uploaded asset", "path", path, "error", err)
		}
	}

	return p.store.Uploads.Delete(ctx, job.ID)
}
