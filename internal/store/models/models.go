// Package models defines the entities persisted in the local store: the
// identity of an account holder, the records it owns, and the queues of
// deferred work (binary uploads, deferred registrations).
package models

import "time"

// SyncStatus tracks how far an entity has progressed towards the remote
// system of record.
type SyncStatus string

const (
	StatusPending SyncStatus = "PENDING"
	StatusSyncing SyncStatus = "SYNCING"
	StatusSynced  SyncStatus = "SYNCED"
	StatusFailed  SyncStatus = "FAILED"
)

// Identity is the local representation of a user account. Until the account
// exists in the remote identity provider, ID is a locally minted UUID and
// EncryptedPassword holds the guard-sealed password needed for the deferred
// remote account creation. After a successful migration the row is keyed by
// the remote identifier and EncryptedPassword is nil.
type Identity struct {
	ID                string
	Email             string
	PasswordHash      string
	EncryptedPassword []byte
	DisplayName       string
	RemoteLinked      bool
	SyncStatus        SyncStatus
	// MigratingTo carries the remote identifier while an identity swap is in
	// flight, so a crash mid-migration can be resumed deterministically.
	MigratingTo  string
	CreatedAt    time.Time
	LastSyncedAt *time.Time
}

// OwnedRecord is a user-generated data item, e.g. one analysis result.
// Its ID is stable across identity migration; OwnerID is re-pointed when the
// owning identity is migrated.
type OwnedRecord struct {
	ID         string
	OwnerID    string
	RecordType string
	Content    []byte
	Metadata   []byte
	SyncStatus SyncStatus
	CreatedAt  time.Time
	ModifiedAt time.Time
	SyncedAt   *time.Time
}

// PendingUpload is a queued binary-asset upload job, one-to-one with an
// OwnedRecord that has unsent binary payloads. AssetPaths and AssetURLs are
// parallel slices; an empty URL means the asset at the same index has not
// been uploaded yet. A job whose URLs are all populated is deleted, not
// retained.
type PendingUpload struct {
	ID          string
	OwnerID     string
	RecordID    string
	AssetPaths  []string
	AssetURLs   []string
	SyncStatus  SyncStatus
	RetryCount  int
	CreatedAt   time.Time
	CompletedAt *time.Time
	LastError   string
}

// SignupStatus is the lifecycle of a deferred registration attempt.
type SignupStatus string

const (
	SignupPending   SignupStatus = "PENDING"
	SignupFailed    SignupStatus = "FAILED"
	SignupCompleted SignupStatus = "COMPLETED"
)

// PendingSignup queues a registration whose remote confirmation is deferred,
// distinct from the identity-level encrypted-password mechanism.
type PendingSignup struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	Status       SignupStatus
	RetryCount   int
	ErrorMessage string
	CreatedAt    time.Time
}
