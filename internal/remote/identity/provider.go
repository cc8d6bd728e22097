// Package identity abstracts the remote identity provider: account creation,
// sign-in, and the mail-based flows. Failures carry a structured kind so
// callers decide retry-vs-fail without matching on message text.
package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/modicscan/syncengine/internal/common"
)

// ErrorKind classifies a provider failure.
type ErrorKind string

const (
	// KindNetwork covers timeouts, unreachable hosts, and 5xx responses.
	// The only retryable kind.
	KindNetwork ErrorKind = "network"
	// KindCredentials covers rejected passwords and unknown accounts.
	KindCredentials ErrorKind = "credentials"
	// KindDuplicate means the email is already registered remotely.
	KindDuplicate ErrorKind = "duplicate"
	// KindInvalid covers malformed input rejected by the provider.
	KindInvalid ErrorKind = "invalid"
)

// Error is a classified provider failure. It unwraps to the matching
// sentinel in common, so errors.Is works across layers.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("identity provider: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	switch e.Kind {
	case KindNetwork:
		return common.ErrNetwork
	case KindDuplicate:
		return common.ErrDuplicateIdentity
	case KindInvalid:
		return common.ErrValidation
	default:
		return common.ErrRemoteAuth
	}
}

// RemoteIdentity is the provider's view of an account after a successful
// create or sign-in call.
type RemoteIdentity struct {
	ID           string
	Email        string
	IDToken      string
	RefreshToken string
	ExpiresAt    time.Time
}

// Provider is the remote identity service consumed by the reconciler.
type Provider interface {
	// CreateAccount registers a new account and returns its remote identity.
	CreateAccount(ctx context.Context, email, password string) (*RemoteIdentity, error)

	// SignIn authenticates an existing account.
	SignIn(ctx context.Context, email, password string) (*RemoteIdentity, error)

	// SendPasswordReset asks the provider to mail a reset link.
	SendPasswordReset(ctx context.Context, email string) error

	// SendEmailVerification asks the provider to mail a verification link
	// for the account behind idToken.
	SendEmailVerification(ctx context.Context, idToken string) error
}
