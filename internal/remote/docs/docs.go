// Package docs abstracts the remote document store holding profile and
// record documents. The engine treats it as last-writer-wins keyed storage;
// conflict resolution happens server-side via timestamps.
package docs

import "context"

// Store is the remote document store consumed by the reconciler and the
// upload processor.
type Store interface {
	// UpsertProfile writes the profile document for ownerID.
	UpsertProfile(ctx context.Context, ownerID string, fields map[string]any) error

	// UpsertRecord writes one record document under its owner.
	UpsertRecord(ctx context.Context, ownerID, recordID string, fields map[string]any) error

	// PatchRecordAssets merges uploaded asset URLs into a record document.
	PatchRecordAssets(ctx context.Context, ownerID, recordID string, urls []string) error

	// ReownRecords transfers every record document from oldOwnerID to
	// newOwnerID and returns how many were moved.
	ReownRecords(ctx context.Context, oldOwnerID, newOwnerID string) (int, error)
}
