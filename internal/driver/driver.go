// Package driver defines the per-resource-type contract the reconciliation
// engine programs against. All remote API traffic lives behind this contract;
// the engine never talks to a remote system directly.
package driver

import (
	"context"

	"github.com/clouddesk/tenantctl/internal/intent"
)

// Handle is the opaque identifier returned by a successful Create. It feeds
// AddMember and verification within the same pass and is never persisted.
type Handle struct {
	// ID is the remote system's identifier, e.g. a directory object id.
	ID string
	// Key echoes the intent key the handle was created for.
	Key string
}

// Driver adapts one resource type to a remote system.
//
// Exists must be side-effect-free; the engine calls it before every Create
// and Remove, and again while verifying an eventually consistent create.
// Create must return a Duplicate-classified error when the remote system
// reports a resource with the same key, so the engine can report
// AlreadyExists instead of Failed.
type Driver interface {
	Exists(ctx context.Context, key string) (bool, error)
	Create(ctx context.Context, in intent.Intent) (Handle, error)
	Remove(ctx context.Context, key string) error
}

// MemberAdder is implemented by drivers whose resources hold members. The
// engine detects it via type assertion; drivers without membership semantics
// simply don't implement it.
type MemberAdder interface {
	AddMember(ctx context.Context, handle Handle, member string) error
}
