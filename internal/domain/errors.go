package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness constraint was violated.
	ErrAlreadyExists = errors.New("already exists")
	// ErrStockConflict indicates there is not enough stock to fulfil an order.
	ErrStockConflict = errors.New("stock conflict")
	// ErrInvalidOrder indicates an order draft failed server-side validation.
	ErrInvalidOrder = errors.New("invalid order")
)
