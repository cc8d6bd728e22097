package reconciler

import (
	"context"

	"github.com/modicscan/syncengine/internal/store/session"
)

const (
	sessionKeyOwnerID = "owner_id"
	sessionKeyEmail   = "email"
)

// SessionContext holds the identity of the currently signed-in account as
// explicit, persisted state with a load/save/clear contract. Nothing in the
// engine reads ambient globals to learn who is logged in.
type SessionContext struct {
	repo session.Repository
}

func NewSessionContext(repo session.Repository) *SessionContext {
	return &SessionContext{repo: repo}
}

// Load returns the signed-in owner id and email, both empty when no
// session is stored.
func (s *SessionContext) Load(ctx context.Context) (ownerID, email string, err error) {
	id, err := s.repo.Get(ctx, sessionKeyOwnerID)
	if err != nil {
		return "", "", err
	}
	em, err := s.repo.Get(ctx, sessionKeyEmail)
	if err != nil {
		return "", "", err
	}
	return string(id), string(em), nil
}

// Save records the signed-in account.
func (s *SessionContext) Save(ctx context.Context, ownerID, email string) error {
	if err := s.repo.Set(ctx, sessionKeyOwnerID, []byte(ownerID)); err != nil {
		return err
	}
	return s.repo.Set(ctx, sessionKeyEmail, []byte(email))
}

// Clear wipes the session, e.g. on logout.
func (s *SessionContext) Clear(ctx context.Context) error {
	return s.repo.Clear(ctx)
}
