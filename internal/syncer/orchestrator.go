// Package syncer coordinates full synchronization runs: identity migration,
// deferred signups, record documents and asset uploads, in that order. Runs
// are serialized through a named-slot scheduler and triggered by
// connectivity changes, a periodic timer, or manual request.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/modicscan/syncengine/internal/common"
	"github.com/modicscan/syncengine/internal/logging"
	"github.com/modicscan/syncengine/internal/reconciler"
	"github.com/modicscan/syncengine/internal/remote/docs"
	"github.com/modicscan/syncengine/internal/store"
	"github.com/modicscan/syncengine/internal/store/models"
	"github.com/modicscan/syncengine/internal/uploader"
)

// RunState is the terminal state of one synchronization run.
type RunState string

const (
	StateIdle    RunState = "IDLE"
	StateRunning RunState = "RUNNING"
	// StateSuccess means every stage completed without leaving work behind.
	StateSuccess RunState = "SUCCESS"
	// StateRetry means a network-class failure interrupted the run; the
	// scheduler re-attempts it with backoff.
	StateRetry RunState = "RETRY"
	// StateFailure means a non-retryable failure; the run is not
	// re-attempted until the next trigger.
	StateFailure RunState = "FAILURE"
)

// Scope selects which stages a run executes.
type Scope string

const (
	ScopeIdentityOnly Scope = "IDENTITY_ONLY"
	ScopeDataOnly     Scope = "DATA_ONLY"
	ScopeFull         Scope = "FULL"
)

// Orchestrator executes synchronization runs. At most one run is in flight
// at a time; State reports the outcome of the latest one.
type Orchestrator struct {
	store      *store.Store
	reconciler *reconciler.Service
	uploads    *uploader.Processor
	docs       docs.Store
	logger     logging.Logger

	mu    sync.Mutex
	state RunState
}

func NewOrchestrator(st *store.Store, rec *reconciler.Service, up *uploader.Processor,
	docStore docs.Store, logger logging.Logger) *Orchestrator {
	return &Orchestrator{
		store:      st,
		reconciler: rec,
		uploads:    up,
		docs:       docStore,
		logger:     logger,
		state:      StateIdle,
	}
}

// State returns the outcome of the most recent run, or IDLE/RUNNING.
func (o *Orchestrator) State() RunState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s RunState) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// Run executes one synchronization pass for the given scope and returns its
// terminal state. Identity work always precedes data work so records are
// pushed under their final owner identifier.
func (o *Orchestrator) Run(ctx context.Context, scope Scope) (RunState, error) {
	o.setState(StateRunning)
	state, err := o.run(ctx, scope)
	o.setState(state)
	return state, err
}

func (o *Orchestrator) run(ctx context.Context, scope Scope) (RunState, error) {
	started := time.Now()

	if scope != ScopeDataOnly {
		migrated, err := o.reconciler.MigrateIdentity(ctx)
		if err != nil {
			return classify(err), err
		}
		if len(migrated) > 0 {
			o.logger.Info(ctx, "identities migrated", "count", len(migrated))
		}

		if _, _, err := o.reconciler.ProcessPendingSignups(ctx); err != nil {
			return classify(err), err
		}
	}

	if scope == ScopeIdentityOnly {
		o.logger.Info(ctx, "sync run finished", "scope", scope, "duration", time.Since(started))
		return StateSuccess, nil
	}

	if err := o.pushRecords(ctx); err != nil {
		return classify(err), err
	}

	res, err := o.uploads.Drain(ctx)
	if err != nil {
		return classify(err), err
	}
	o.logger.Info(ctx, "sync run finished", "scope", scope,
		"uploads_succeeded", res.Succeeded, "uploads_failed", res.Failed,
		"duration", time.Since(started))
	if !res.Ok() {
		return StateRetry, nil
	}
	return StateSuccess, nil
}

// pushRecords writes every unsynced record's non-binary content to the
// document store. One record's failure marks it FAILED and moves on.
func (o *Orchestrator) pushRecords(ctx context.Context) error {
	pending, err := o.store.Records.SelectUnsynced(ctx)
	if err != nil {
		return err
	}

	for _, rec := range pending {
		if err := o.store.Records.UpdateSyncStatus(ctx, rec.ID, models.StatusSyncing); err != nil {
			return err
		}

		if err := o.docs.UpsertRecord(ctx, rec.OwnerID, rec.ID, recordFields(rec)); err != nil {
			if errors.Is(err, common.ErrNetwork) {
				// nothing downstream will fare better; restore the row and
				// let the scheduler retry the whole run
				_ = o.store.Records.UpdateSyncStatus(ctx, rec.ID, models.StatusFailed)
				return err
			}
			o.logger.Warn(ctx, "record push rejected", "record_id", rec.ID, "error", err)
			if err := o.store.Records.UpdateSyncStatus(ctx, rec.ID, models.StatusFailed); err != nil {
				return err
			}
			continue
		}

		if err := o.store.Records.UpdateSyncStatus(ctx, rec.ID, models.StatusSynced); err != nil {
			return err
		}
		o.store.Notifier.Publish(store.Event{Kind: store.KindRecord, OwnerID: rec.OwnerID})
	}
	return nil
}

func recordFields(rec *models.OwnedRecord) map[string]any {
	fields := map[string]any{
		"record_type": rec.RecordType,
		"created_at":  rec.CreatedAt.Format(time.RFC3339),
		"modified_at": rec.ModifiedAt.Format(time.RFC3339),
	}
	if json.Valid(rec.Content) {
		fields["content"] = json.RawMessage(rec.Content)
	} else {
		fields["content"] = string(rec.Content)
	}
	if len(rec.Metadata) > 0 && json.Valid(rec.Metadata) {
		fields["metadata"] = json.RawMessage(rec.Metadata)
	}
	return fields
}

// classify maps a run error to its terminal state. Errors explicitly
// classified as non-network are terminal; everything else, including
// unclassified failures, earns a retry so progress is not permanently lost.
func classify(err error) RunState {
	switch {
	case errors.Is(err, common.ErrValidation),
		errors.Is(err, common.ErrDuplicateIdentity),
		errors.Is(err, common.ErrRemoteAuth),
		errors.Is(err, common.ErrCrypto),
		errors.Is(err, common.ErrStorage),
		errors.Is(err, context.Canceled):
		return StateFailure
	default:
		return StateRetry
	}
}
