package domain

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrForbidden             = errors.New("forbidden")
	ErrValidation            = errors.New("validation failed")
	ErrMultipleSubscriptions = errors.New("multiple active subscriptions")
	ErrDeleteInFlight        = errors.New("delete already in flight")
)
