// Package orderstore defines the order repository used to look up and tag
// orders held by an upstream order management platform.
package orderstore

import (
	"context"
)

// MatchFunc reports whether a scanned order is the one being looked for.
type MatchFunc func(o *Order) bool

// Repository is the capability the tracking engine needs from the upstream
// store. A nil order with a nil error means "no match"; it is not an error.
type Repository interface {
	// FindByExactName queries by the marker-prefixed display name (e.g. "#1042").
	FindByExactName(ctx context.Context, name string) (*Order, error)

	// FindByRawName queries by the bare identifier (e.g. "1042").
	FindByRawName(ctx context.Context, name string) (*Order, error)

	// FindByBulkScan fetches a bounded page of recent orders and returns the
	// first one accepted by match. Orders outside the page are never seen.
	FindByBulkScan(ctx context.Context, match MatchFunc) (*Order, error)

	// UpdateTags replaces the order's tag set with tags and returns the
	// store's acknowledged state. tags must be the full desired set.
	UpdateTags(ctx context.Context, orderID string, tags []string) (*Order, error)
}
