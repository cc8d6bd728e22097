// Package session persists the current session context (last logged-in
// identity) as explicit key/value state, replacing ambient globals with a
// load/save/clear contract.
package session

import "context"

// Repository is a small key/value store backing the session context.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
