package orderstore

import (
	"strings"
	"time"
)

// FulfillmentStatus is the normalized state of a single fulfillment record.
type FulfillmentStatus string

const (
	FulfillmentPending   FulfillmentStatus = "pending"
	FulfillmentSuccess   FulfillmentStatus = "success"
	FulfillmentFulfilled FulfillmentStatus = "fulfilled"
	FulfillmentFailed    FulfillmentStatus = "failed"
	FulfillmentUnknown   FulfillmentStatus = "unknown"
)

// ParseFulfillmentStatus maps an upstream status string (any case) to a
// FulfillmentStatus. Unrecognized values become FulfillmentUnknown.
func ParseFulfillmentStatus(s string) FulfillmentStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending", "open", "in_progress":
		return FulfillmentPending
	case "success":
		return FulfillmentSuccess
	case "fulfilled":
		return FulfillmentFulfilled
	case "failure", "failed", "error", "cancelled":
		return FulfillmentFailed
	default:
		return FulfillmentUnknown
	}
}

// IsValid reports whether the fulfillment counts as shipped.
func (s FulfillmentStatus) IsValid() bool {
	return s == FulfillmentSuccess || s == FulfillmentFulfilled
}

// Money is a monetary amount. Amount keeps the upstream decimal string
// so no precision is lost in transit.
type Money struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// TrackingEntry is a single carrier tracking reference.
type TrackingEntry struct {
	Carrier string `json:"company"`
	Number  string `json:"number"`
	URL     string `json:"url,omitempty"`
}

// Fulfillment is one shipment record attached to an order.
type Fulfillment struct {
	ID        string
	Status    FulfillmentStatus
	CreatedAt time.Time
	UpdatedAt *time.Time
	Tracking  []TrackingEntry
}

// Order is a read-only snapshot of an upstream order, scoped to one request.
type Order struct {
	// ID is the repository-assigned identifier used for updates.
	ID string
	// Name is the display name, usually the marker followed by Number.
	Name   string
	Number int64

	CreatedAt         time.Time
	FinancialStatus   string
	FulfillmentStatus string

	// Email is empty when the store does not expose customer data.
	Email        string
	CustomerName string

	Total        Money
	Tags         []string
	Fulfillments []Fulfillment
}

// HasTag reports whether the order carries tag. Tags are case-sensitive.
func (o *Order) HasTag(tag string) bool {
	for _, t := range o.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
