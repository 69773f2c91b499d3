package tracking

import (
	"errors"
	"strings"
)

// DefaultMarker is the prefix Shopify puts in front of order numbers.
const DefaultMarker = "#"

var (
	// ErrInvalidIdentifier indicates a missing or empty order identifier.
	ErrInvalidIdentifier = errors.New("order number is required")

	// ErrEmailMismatch indicates the supplied email does not match the order.
	ErrEmailMismatch = errors.New("email does not match order")
)

// NormalizeIdentifier canonicalizes a caller-supplied order identifier by
// stripping surrounding whitespace and the leading marker. It repeats until
// nothing changes, so the result is stable under re-normalization.
func NormalizeIdentifier(raw, marker string) (string, error) {
	id := strings.TrimSpace(raw)
	for {
		next := id
		if marker != "" {
			next = strings.TrimSpace(strings.TrimPrefix(next, marker))
		}
		if next == id {
			break
		}
		id = next
	}

	if id == "" {
		return "", ErrInvalidIdentifier
	}
	return id, nil
}
