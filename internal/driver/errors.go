package driver

import (
	"errors"
	"fmt"
)

// Kind classifies a driver failure for the engine's outcome decisions.
type Kind string

const (
	// KindDuplicate means the remote system already holds a resource with
	// the same key. The engine reclassifies this as AlreadyExists.
	KindDuplicate Kind = "duplicate"
	// KindNotFound means the target of a remove or lookup is absent.
	KindNotFound Kind = "not_found"
	// KindTransient covers network and throttling failures. Retried only
	// where a call is explicitly wrapped by the poller.
	KindTransient Kind = "transient"
	// KindPermanent covers bad input and permission failures. Never retried.
	KindPermanent Kind = "permanent"
)

// Error is the classified failure type all drivers return.
type Error struct {
	Kind Kind
	Op   string
	Key  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Key != "" {
		return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Key, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes the underlying error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError constructs a classified driver error.
func NewError(kind Kind, op, key string, err error) error {
	return &Error{Kind: kind, Op: op, Key: key, Err: err}
}

func kindOf(err error) (Kind, bool) {
	var driverErr *Error
	if errors.As(err, &driverErr) {
		return driverErr.Kind, true
	}
	return "", false
}

// IsDuplicate reports whether err is a Duplicate-classified driver error.
func IsDuplicate(err error) bool {
	kind, ok := kindOf(err)
	return ok && kind == KindDuplicate
}

// IsNotFound reports whether err is a NotFound-classified driver error.
func IsNotFound(err error) bool {
	kind, ok := kindOf(err)
	return ok && kind == KindNotFound
}

// IsTransient reports whether err is a Transient-classified driver error.
func IsTransient(err error) bool {
	kind, ok := kindOf(err)
	return ok && kind == KindTransient
}
