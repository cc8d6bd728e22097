// Package reconciler implements signup and login against the local store and
// the remote identity provider, plus the migration pass that replaces
// locally minted identifiers with remote-assigned ones across all owned data.
package reconciler

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/modicscan/syncengine/internal/common"
	"github.com/modicscan/syncengine/internal/cryptox"
	"github.com/modicscan/syncengine/internal/logging"
	"github.com/modicscan/syncengine/internal/remote/docs"
	"github.com/modicscan/syncengine/internal/remote/identity"
	"github.com/modicscan/syncengine/internal/store"
	"github.com/modicscan/syncengine/internal/store/models"
)

// AuthOutcome is returned to the UI layer on successful signup or login.
// The UI never sees raw transport errors, only classified ones.
type AuthOutcome struct {
	ID           string
	Email        string
	RemoteLinked bool
}

// Service reconciles local identities with the remote identity provider.
type Service struct {
	store    *store.Store
	provider identity.Provider
	docs     docs.Store
	guard    *cryptox.Guard
	session  *SessionContext
	logger   logging.Logger
}

func NewService(st *store.Store, provider identity.Provider, docStore docs.Store,
	guard *cryptox.Guard, logger logging.Logger) *Service {
	return &Service{
		store:    st,
		provider: provider,
		docs:     docStore,
		guard:    guard,
		session:  NewSessionContext(st.Session),
		logger:   logger,
	}
}

// Session exposes the persisted session context.
func (s *Service) Session() *SessionContext {
	return s.session
}

// SignUp registers a new account. When connected the account is created
// remotely first; offline, the identity is queued under a locally minted id
// with the password sealed by the credential guard until migration.
//
// The duplicate check runs before anything else so a colliding email never
// costs a network call.
func (s *Service) SignUp(ctx context.Context, email, password, displayName string, connected bool) (*AuthOutcome, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", common.ErrValidation)
	}

	if _, err := s.store.Identities.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: %s", common.ErrDuplicateIdentity, email)
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	if connected {
		return s.signUpOnline(ctx, email, password, displayName)
	}
	return s.signUpOffline(ctx, email, password, displayName)
}

func (s *Service) signUpOnline(ctx context.Context, email, password, displayName string) (*AuthOutcome, error) {
	remote, err := s.provider.CreateAccount(ctx, email, password)
	if err != nil {
		// no local fallback: the caller may retry with connected=false
		return nil, fmt.Errorf("remote account creation failed: %w", err)
	}

	now := time.Now().UTC()
	id := &models.Identity{
		ID:           remote.ID,
		Email:        email,
		PasswordHash: cryptox.HashPassword([]byte(password)),
		DisplayName:  displayName,
		RemoteLinked: true,
		SyncStatus:   models.StatusSynced,
		CreatedAt:    now,
		LastSyncedAt: &now,
	}
	if err := s.store.Identities.Upsert(ctx, id); err != nil {
		return nil, err
	}

	if err := s.session.Save(ctx, id.ID, id.Email); err != nil {
		return nil, err
	}
	s.store.Notifier.Publish(store.Event{Kind: store.KindIdentity, OwnerID: id.ID})

	// fire-and-forget: a failed profile push never fails the signup,
	// the migration pass re-pushes it later
	if err := s.pushProfile(ctx, id); err != nil {
		s.logger.Warn(ctx, "profile sync after signup failed", "owner_id", id.ID, "error", err)
		_ = s.store.Identities.UpdateSyncStatus(ctx, id.ID, models.StatusFailed)
	}

	return &AuthOutcome{ID: id.ID, Email: id.Email, RemoteLinked: true}, nil
}

func (s *Service) signUpOffline(ctx context.Context, email, password, displayName string) (*AuthOutcome, error) {
	sealed, err := s.guard.Encrypt([]byte(password))
	if err != nil {
		return nil, err
	}

	id := &models.Identity{
		ID:                uuid.NewString(),
		Email:             email,
		PasswordHash:      cryptox.HashPassword([]byte(password)),
		EncryptedPassword: sealed,
		DisplayName:       displayName,
		RemoteLinked:      false,
		SyncStatus:        models.StatusPending,
		CreatedAt:         time.Now().UTC(),
	}
	if err := s.store.Identities.Upsert(ctx, id); err != nil {
		return nil, err
	}

	if err := s.session.Save(ctx, id.ID, id.Email); err != nil {
		return nil, err
	}
	s.store.Notifier.Publish(store.Event{Kind: store.KindIdentity, OwnerID: id.ID})

	return &AuthOutcome{ID: id.ID, Email: id.Email, RemoteLinked: false}, nil
}

// Login authenticates a user. Connected logins always try the remote
// provider first; the local hash is only consulted as a fallback when the
// remote failure is network-class, never when the provider rejected the
// credentials. Offline logins require an existing local identity.
func (s *Service) Login(ctx context.Context, email, password string, connected bool) (*AuthOutcome, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", common.ErrValidation)
	}

	if !connected {
		return s.loginOffline(ctx, email, password)
	}

	remote, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		if errors.Is(err, common.ErrNetwork) {
			local, lookupErr := s.store.Identities.GetByEmail(ctx, email)
			if lookupErr == nil {
				s.logger.Warn(ctx, "remote sign-in unreachable, falling back to local credentials", "email", email)
				return s.verifyLocal(ctx, local, password)
			}
		}
		// credential-class failures must not be bypassed with stale local state
		return nil, fmt.Errorf("remote sign-in failed: %w", err)
	}

	linked, err := s.linkIdentity(ctx, remote, email, password, "")
	if err != nil {
		return nil, err
	}

	if err := s.session.Save(ctx, linked.ID, linked.Email); err != nil {
		return nil, err
	}
	s.store.Notifier.Publish(store.Event{Kind: store.KindIdentity, OwnerID: linked.ID})

	return &AuthOutcome{ID: linked.ID, Email: linked.Email, RemoteLinked: true}, nil
}

func (s *Service) loginOffline(ctx context.Context, email, password string) (*AuthOutcome, error) {
	local, err := s.store.Identities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: user not found, sign in online first", common.ErrNotFound)
		}
		return nil, err
	}
	return s.verifyLocal(ctx, local, password)
}

func (s *Service) verifyLocal(ctx context.Context, local *models.Identity, password string) (*AuthOutcome, error) {
	candidate := cryptox.HashPassword([]byte(password))
	if subtle.ConstantTimeCompare([]byte(candidate), []byte(local.PasswordHash)) == 0 {
		return nil, common.ErrInvalidCredentials
	}

	if err := s.session.Save(ctx, local.ID, local.Email); err != nil {
		return nil, err
	}
	return &AuthOutcome{ID: local.ID, Email: local.Email, RemoteLinked: local.RemoteLinked}, nil
}

// pushProfile writes the identity's profile document to the remote store.
func (s *Service) pushProfile(ctx context.Context, id *models.Identity) error {
	return s.docs.UpsertProfile(ctx, id.ID, map[string]any{
		"email":        id.Email,
		"display_name": id.DisplayName,
		"created_at":   id.CreatedAt.Format(time.RFC3339),
	})
}
