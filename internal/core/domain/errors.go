package domain

import "errors"

// Listing invariant violations, mapped to HTTP errors at the service layer.
var (
	ErrInvalidListingPrice = errors.New("listing price must be positive")
	ErrEmptyBundle         = errors.New("listing bundle must be non-empty")
)
