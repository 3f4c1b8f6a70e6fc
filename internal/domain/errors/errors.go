package errors

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrSignatureInvalid = errors.New("invalid webhook signature")
	ErrMalformedEvent   = errors.New("malformed event payload")
	ErrStockConflict    = errors.New("stock conflict")
)
