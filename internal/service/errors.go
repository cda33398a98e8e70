package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	ErrNotFound         = errors.New("not found")
	ErrOrderNotFound    = fmt.Errorf("order %w", ErrNotFound)
	ErrProductNotFound  = fmt.Errorf("product %w", ErrNotFound)
	ErrCartLineNotFound = fmt.Errorf("cart line %w", ErrNotFound)
	ErrSettingNotFound  = fmt.Errorf("setting %w", ErrNotFound)

	ErrEmptyOrder         = errors.New("order has no items")
	ErrOutOfStock         = errors.New("out of stock")
	ErrInvalidPromotion   = errors.New("promotion could not be applied")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrAlreadyDispatched  = errors.New("order already dispatched to courier")
	ErrNotDispatchable    = errors.New("order is not ready for courier dispatch")
	ErrDispatchInProgress = errors.New("courier dispatch already in progress")
	ErrUpstream           = errors.New("upstream service error")
)

type FieldViolation struct {
	Field   string
	Message string
}

// ValidationError carries every rejected field of one request.
type ValidationError struct {
	Fields []FieldViolation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	e.Fields = append(e.Fields, FieldViolation{Field: field, Message: msg})
}

func (e *ValidationError) orNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func invalidField(field, msg string) error {
	return &ValidationError{Fields: []FieldViolation{{Field: field, Message: msg}}}
}

func outOfStock(name string, requested, available int32) error {
	return fmt.Errorf("%w: %q requested %d, available %d", ErrOutOfStock, name, requested, available)
}

func invalidPromotion(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidPromotion, reason)
}
