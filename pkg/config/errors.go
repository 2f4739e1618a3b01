package config

import "errors"

var (
	// ErrMissingRequiredField indicates a required field is missing or empty.
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrInvalidValue indicates a field carries a value outside its accepted range.
	ErrInvalidValue = errors.New("invalid field value")
)
