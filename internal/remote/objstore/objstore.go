// Package objstore abstracts the remote object storage holding binary
// assets (scan images). Assets are addressed by the URL returned on upload.
package objstore

import "context"

// Storage is the binary-asset store consumed by the upload processor.
type Storage interface {
	// Upload stores body under a fresh key scoped to ownerID and returns
	// the asset's URL.
	Upload(ctx context.Context, ownerID, name string, body []byte) (string, error)

	// Delete removes the asset behind a URL previously returned by Upload.
	Delete(ctx context.Context, url string) error
}
