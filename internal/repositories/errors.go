package repositories

import (
	"errors"
	"fmt"
)

type errorKind int

const (
	kindUnknown errorKind = iota
	kindNotFound
	kindConflict
	kindUnavailable
)

// StoreError categorises failures raised by the memory and SQLite state stores.
type StoreError struct {
	Op   string
	Key  string
	kind errorKind
	Err  error
}

func (e *StoreError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Op
	if e.Key != "" {
		msg = fmt.Sprintf("%s %q", msg, e.Key)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *StoreError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *StoreError) IsNotFound() bool    { return e != nil && e.kind == kindNotFound }
func (e *StoreError) IsConflict() bool    { return e != nil && e.kind == kindConflict }
func (e *StoreError) IsUnavailable() bool { return e != nil && e.kind == kindUnavailable }

var errKeyNotFound = errors.New("key not found")

func notFound(op, key string) error {
	return &StoreError{Op: op, Key: key, kind: kindNotFound, Err: errKeyNotFound}
}

func unavailable(op, key string, err error) error {
	return &StoreError{Op: op, Key: key, kind: kindUnavailable, Err: err}
}

func failure(op, key string, err error) error {
	return &StoreError{Op: op, Key: key, kind: kindUnknown, Err: err}
}

func asRepositoryError(err error, target *RepositoryError) bool {
	return err != nil && errors.As(err, target)
}
