package firestore

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type kind uint8

const (
	kindOther kind = iota
	kindNotFound
	kindConflict
	kindUnavailable
)

// Error is a classified Firestore failure on one document of the state collection. It
// satisfies repositories.RepositoryError.
type Error struct {
	Collection string
	DocumentID string
	Action     string
	kind       kind
	err        error
}

func (e *Error) Error() string {
	target := e.Collection
	if e.DocumentID != "" {
		target += "/" + e.DocumentID
	}
	return fmt.Sprintf("firestore %s %s: %v", e.Action, target, e.err)
}

func (e *Error) Unwrap() error { return e.err }

func (e *Error) IsNotFound() bool    { return e != nil && e.kind == kindNotFound }
func (e *Error) IsConflict() bool    { return e != nil && e.kind == kindConflict }
func (e *Error) IsUnavailable() bool { return e != nil && e.kind == kindUnavailable }

// classify maps a gRPC status onto the repository error kinds. Cancellation is returned as
// the matching context error so callers can tell a dropped autosave from a backend fault.
func classify(action, collection, docID string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var existing *Error
	if errors.As(err, &existing) {
		return existing
	}

	e := &Error{Collection: collection, DocumentID: docID, Action: action, err: err}
	switch status.Code(err) {
	case codes.Canceled:
		return context.Canceled
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	case codes.NotFound:
		e.kind = kindNotFound
	case codes.AlreadyExists, codes.FailedPrecondition, codes.Aborted:
		e.kind = kindConflict
	case codes.Unavailable, codes.ResourceExhausted, codes.Internal:
		e.kind = kindUnavailable
	}
	return e
}
