package services

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrNotAcceptingOrders = errors.New("restaurant is not accepting orders")
	ErrValidation         = errors.New("validation error")
)

// opError rewraps a failure as "<operation> failed: <cause>".
func opError(op string, err error) error {
	return fmt.Errorf("%s failed: %w", op, err)
}
