package service

import (
	"errors"

	"github.com/wooahyo/internal/repository"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrConflict          = errors.New("conflict")
	ErrSelfChat          = errors.New("cannot open a chat with yourself")
)

// storeNotFound is what stores return for a missing row; services translate
// it into their own ErrNotFound.
var storeNotFound = repository.ErrNotFound

// ValidationError carries user-facing text, returned verbatim to the client.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validation(msg string) error { return &ValidationError{Msg: msg} }
