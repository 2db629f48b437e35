package service

import (
	"errors"
	"fmt"

	"qualistock/internal/repository"
	"qualistock/pkg/validator"
)

// Error kinds. Handlers map them onto HTTP statuses with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicate    = errors.New("duplicate")
	ErrInUse        = errors.New("in use")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// Error carries a client-facing message and one of the kinds above.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func notFound(entity string) error {
	return newError(ErrNotFound, "%s not found", entity)
}

func invalid(format string, args ...interface{}) error {
	return newError(ErrValidation, format, args...)
}

// validate runs struct tags and reports the first failure.
func validate(req interface{}) error {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return invalid("%s", validator.Message(errs))
	}
	return nil
}

// lookupErr turns a repository miss into a NotFound for entity and passes
// anything else through.
func lookupErr(err error, entity string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(entity)
	}
	return err
}

// writeErr maps repository write failures that slipped past the service
// checks, e.g. a concurrent insert of the same SKU.
func writeErr(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return notFound(entity)
	case errors.Is(err, repository.ErrDuplicate):
		return newError(ErrDuplicate, "%s already exists", entity)
	case errors.Is(err, repository.ErrInUse):
		return newError(ErrInUse, "%s is referenced by other records", entity)
	default:
		return err
	}
}
