package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modicscan/syncengine/internal/common"
	"github.com/modicscan/syncengine/internal/cryptox"
	"github.com/modicscan/syncengine/internal/dbx"
	"github.com/modicscan/syncengine/internal/remote/identity"
	"github.com/modicscan/syncengine/internal/store"
	"github.com/modicscan/syncengine/internal/store/identities"
	"github.com/modicscan/syncengine/internal/store/models"
	"github.com/modicscan/syncengine/internal/store/records"
	"github.com/modicscan/syncengine/internal/store/uploads"
)

// MaxSignupRetries caps deferred-registration attempts.
const MaxSignupRetries = 3

// MigrateIdentity walks every identity with sync status PENDING or FAILED
// and reconciles it with the remote provider. Local-only identities get a
// remote account created from their guard-sealed password, then the local
// row is re-keyed to the remote identifier and every owned record and queued
// upload is re-pointed, all in one store transaction. Already linked
// identities only re-push their profile document.
//
// One identity's failure never aborts the pass; the item is marked FAILED
// and the next one is processed. Returns the remote identifiers of the
// identities migrated in this pass.
func (s *Service) MigrateIdentity(ctx context.Context) ([]string, error) {
	pending, err := s.store.Identities.SelectUnsynced(ctx)
	if err != nil {
		return nil, err
	}

	var migrated []string
	for _, id := range pending {
		if err := s.store.Identities.UpdateSyncStatus(ctx, id.ID, models.StatusSyncing); err != nil {
			return migrated, err
		}

		newID, err := s.migrateOne(ctx, id)
		if err != nil {
			s.logger.Error(ctx, "identity migration failed", "identity_id", id.ID, "error", err)
			if statusErr := s.store.Identities.UpdateSyncStatus(ctx, failedRowID(id, newID), models.StatusFailed); statusErr != nil {
				s.logger.Error(ctx, "failed to record migration failure", "identity_id", id.ID, "error", statusErr)
			}
			continue
		}

		migrated = append(migrated, newID)
		s.store.Notifier.Publish(store.Event{Kind: store.KindIdentity, OwnerID: newID})
	}
	return migrated, nil
}

// failedRowID picks which row carries the FAILED status: after a completed
// swap the old row is gone, so the failure (e.g. profile push) belongs to
// the new one.
func failedRowID(old *models.Identity, newID string) string {
	if newID != "" && newID != old.ID {
		return newID
	}
	return old.ID
}

// migrateOne reconciles a single identity and returns its remote id.
// When it returns a non-empty id alongside an error, the identifier swap
// itself committed and only a later, retryable step failed.
func (s *Service) migrateOne(ctx context.Context, id *models.Identity) (string, error) {
	if id.RemoteLinked {
		// already linked: only the profile document is stale
		if err := s.pushProfile(ctx, id); err != nil {
			return id.ID, err
		}
		return id.ID, s.store.Identities.UpdateSyncStatus(ctx, id.ID, models.StatusSynced)
	}

	if len(id.EncryptedPassword) == 0 {
		return "", fmt.Errorf("identity %s has no sealed credential to create a remote account from", id.ID)
	}

	plaintext, err := s.guard.Decrypt(id.EncryptedPassword)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(plaintext)

	remote, err := s.provider.CreateAccount(ctx, id.Email, string(plaintext))
	if err != nil {
		// A duplicate means a previous attempt created the account but we
		// crashed before the swap. The sealed password still signs us in,
		// which recovers the remote identifier deterministically.
		if errors.Is(err, common.ErrDuplicateIdentity) {
			remote, err = s.provider.SignIn(ctx, id.Email, string(plaintext))
		}
		if err != nil {
			return "", err
		}
	}

	// two-phase marker: survives a crash between account creation and swap
	if err := s.store.Identities.SetMigratingTo(ctx, id.ID, remote.ID); err != nil {
		return "", err
	}

	if err := s.swapIdentity(ctx, id, remote.ID); err != nil {
		return "", err
	}

	if err := s.session.rekey(ctx, id.ID, remote.ID); err != nil {
		return remote.ID, err
	}

	// remote side: move any documents written under the old id, then push
	// the profile under the new one
	if _, err := s.docs.ReownRecords(ctx, id.ID, remote.ID); err != nil {
		return remote.ID, err
	}

	newRow, err := s.store.Identities.GetByID(ctx, remote.ID)
	if err != nil {
		return remote.ID, err
	}
	if err := s.pushProfile(ctx, newRow); err != nil {
		return remote.ID, err
	}

	return remote.ID, nil
}

// swapIdentity atomically replaces the old identity row with one keyed by
// newID and re-points owned records and queued uploads. The old row is
// removed first inside the transaction so the unique email constraint holds
// throughout; atomicity makes the delete-then-insert order unobservable.
func (s *Service) swapIdentity(ctx context.Context, old *models.Identity, newID string) error {
	now := time.Now().UTC()
	return dbx.WithTx(ctx, s.store.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		identityRepo := identities.NewSQLiteRepository(tx)
		recordRepo := records.NewSQLiteRepository(tx)
		uploadRepo := uploads.NewSQLiteRepository(tx)

		if old.ID != newID {
			if err := identityRepo.Delete(ctx, old.ID); err != nil {
				return err
			}
		}

		if err := identityRepo.Upsert(ctx, &models.Identity{
			ID:           newID,
			Email:        old.Email,
			PasswordHash: old.PasswordHash,
			DisplayName:  old.DisplayName,
			RemoteLinked: true,
			SyncStatus:   models.StatusSynced,
			CreatedAt:    old.CreatedAt,
			LastSyncedAt: &now,
			// EncryptedPassword deliberately absent: the sealed plaintext
			// must not survive the remote link
		}); err != nil {
			return err
		}

		if _, err := recordRepo.Reown(ctx, old.ID, newID); err != nil {
			return err
		}
		if _, err := uploadRepo.Reown(ctx, old.ID, newID); err != nil {
			return err
		}
		return nil
	})
}

// rekey updates the stored session if it still points at the old owner id.
func (s *SessionContext) rekey(ctx context.Context, oldID, newID string) error {
	current, email, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if current != oldID {
		return nil
	}
	return s.Save(ctx, newID, email)
}

// linkIdentity merges a successful remote sign-in into the local store.
// A local row under a different (locally minted) identifier is swapped to
// the remote identifier the same way the migration pass does it.
func (s *Service) linkIdentity(ctx context.Context, remote *identity.RemoteIdentity, email, password, displayName string) (*models.Identity, error) {
	now := time.Now().UTC()
	hash := cryptox.HashPassword([]byte(password))

	local, err := s.store.Identities.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	if local != nil && local.ID != remote.ID {
		local.PasswordHash = hash
		if err := s.swapIdentity(ctx, local, remote.ID); err != nil {
			return nil, err
		}
		if err := s.session.rekey(ctx, local.ID, remote.ID); err != nil {
			return nil, err
		}
		return s.store.Identities.GetByID(ctx, remote.ID)
	}

	merged := &models.Identity{
		ID:           remote.ID,
		Email:        email,
		PasswordHash: hash,
		DisplayName:  displayName,
		RemoteLinked: true,
		SyncStatus:   models.StatusSynced,
		CreatedAt:    now,
		LastSyncedAt: &now,
	}
	if local != nil {
		merged.CreatedAt = local.CreatedAt
		if merged.DisplayName == "" {
			merged.DisplayName = local.DisplayName
		}
	}
	if err := s.store.Identities.Upsert(ctx, merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// ProcessPendingSignups drains the deferred-registration queue: for each
// runnable entry whose identity is already remote-linked, the profile
// document is provisioned remotely and the entry completed. Entries whose
// identity has not migrated yet stay queued for a later pass.
func (s *Service) ProcessPendingSignups(ctx context.Context) (completed, failed int, err error) {
	runnable, err := s.store.Signups.SelectRunnable(ctx, MaxSignupRetries)
	if err != nil {
		return 0, 0, err
	}

	for _, signup := range runnable {
		id, err := s.store.Identities.GetByEmail(ctx, signup.Email)
		if errors.Is(err, common.ErrNotFound) {
			failed++
			if markErr := s.store.Signups.MarkFailed(ctx, signup.ID, "no local identity for this signup"); markErr != nil {
				return completed, failed, markErr
			}
			continue
		}
		if err != nil {
			return completed, failed, err
		}

		if !id.RemoteLinked {
			// identity migration has not happened yet; leave the entry queued
			continue
		}

		if err := s.docs.UpsertProfile(ctx, id.ID, map[string]any{
			"email":        signup.Email,
			"display_name": signup.DisplayName,
		}); err != nil {
			failed++
			s.logger.Warn(ctx, "deferred signup provisioning failed", "signup_id", signup.ID, "error", err)
			if markErr := s.store.Signups.MarkFailed(ctx, signup.ID, err.Error()); markErr != nil {
				return completed, failed, markErr
			}
			continue
		}

		completed++
		if err := s.store.Signups.MarkCompleted(ctx, signup.ID); err != nil {
			return completed, failed, err
		}
		s.store.Notifier.Publish(store.Event{Kind: store.KindSignup, OwnerID: id.ID})
	}
	return completed, failed, nil
}
