package handler

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"qualistock/internal/middleware"
	"qualistock/internal/repository"
	"qualistock/internal/service"
)

const defaultLimit = 100

// respondError maps service error kinds onto HTTP statuses. Unknown errors
// go back to the app's error handler, which logs them and answers 500.
func respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, service.ErrDuplicate), errors.Is(err, service.ErrInUse), errors.Is(err, service.ErrValidation):
		status = fiber.StatusBadRequest
	case errors.Is(err, service.ErrForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, service.ErrUnauthorized):
		status = fiber.StatusUnauthorized
	}
	if status == fiber.StatusInternalServerError {
		return err
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func badRequest(msg string) error {
	return fiber.NewError(fiber.StatusBadRequest, msg)
}

// actor returns the authenticated caller; protected routes always have one.
func actor(c *fiber.Ctx) service.Actor {
	a, ok := middleware.CurrentActor(c)
	if !ok {
		return service.SystemActor
	}
	return a
}

func paramID(c *fiber.Ctx, name, entity string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, badRequest("Invalid " + entity + " ID")
	}
	return id, nil
}

// page reads skip/limit with the 0/100 defaults.
func page(c *fiber.Ctx) repository.Page {
	skip := c.QueryInt("skip", 0)
	if skip < 0 {
		skip = 0
	}
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	return repository.Page{Skip: skip, Limit: limit}
}

// query reads optional query parameters and keeps the first parse failure.
type query struct {
	c      *fiber.Ctx
	failed string
}

func newQuery(c *fiber.Ctx) *query { return &query{c: c} }

func (q *query) fail(name string) {
	if q.failed == "" {
		q.failed = name
	}
}

func (q *query) id(name string) *uuid.UUID {
	raw := strings.TrimSpace(q.c.Query(name))
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		q.fail(name)
		return nil
	}
	return &id
}

func (q *query) num(name string) *int {
	raw := strings.TrimSpace(q.c.Query(name))
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		q.fail(name)
		return nil
	}
	return &n
}

func (q *query) decimal(name string) *float64 {
	raw := strings.TrimSpace(q.c.Query(name))
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		q.fail(name)
		return nil
	}
	return &f
}

func (q *query) flag(name string) bool {
	raw := strings.TrimSpace(q.c.Query(name))
	if raw == "" {
		return false
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		q.fail(name)
		return false
	}
	return b
}

// date accepts RFC 3339 timestamps and plain dates.
func (q *query) date(name string) *time.Time {
	raw := strings.TrimSpace(q.c.Query(name))
	if raw == "" {
		return nil
	}
	t, err := parseTime(raw)
	if err != nil {
		q.fail(name)
		return nil
	}
	return &t
}

// err reports the first malformed parameter as a 400.
func (q *query) err() error {
	if q.failed == "" {
		return nil
	}
	return badRequest("Invalid query parameter '" + q.failed + "'")
}

func parseTime(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.New("invalid time")
}
