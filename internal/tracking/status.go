package tracking

import (
	"time"

	"github.com/tournevent/ordertrack/pkg/orderstore"
)

// Status is the normalized delivery status reported to callers.
type Status string

const (
	StatusUnknown   Status = "UNKNOWN"
	StatusPending   Status = "PENDING"
	StatusFulfilled Status = "FULFILLED"
	StatusDelivered Status = "DELIVERED"
)

// DeliveryHeuristic judges from the shipping date alone whether a shipment
// has most likely arrived.
type DeliveryHeuristic interface {
	Delivered(shippedAt time.Time) bool
}

// ElapsedHeuristic treats a shipment as delivered once Threshold has passed
// since it shipped. A zero Threshold disables it.
type ElapsedHeuristic struct {
	Threshold time.Duration
	Now       func() time.Time
}

// Delivered implements DeliveryHeuristic.
func (h ElapsedHeuristic) Delivered(shippedAt time.Time) bool {
	if h.Threshold <= 0 || shippedAt.IsZero() {
		return false
	}
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	return now().Sub(shippedAt) >= h.Threshold
}

// StatusNormalizer merges tags, the shipping-date heuristic and the
// fulfillment status into one Status.
type StatusNormalizer struct {
	DeliveredTag string
	Heuristic    DeliveryHeuristic
}

// Normalize applies, in order: delivery tag, heuristic, fulfillment status.
// A manually applied tag always wins.
func (n StatusNormalizer) Normalize(order *orderstore.Order, selected *orderstore.Fulfillment) Status {
	if order != nil && n.DeliveredTag != "" && order.HasTag(n.DeliveredTag) {
		return StatusDelivered
	}
	if selected == nil {
		return StatusUnknown
	}
	if n.Heuristic != nil && n.Heuristic.Delivered(selected.CreatedAt) {
		return StatusDelivered
	}

	switch selected.Status {
	case orderstore.FulfillmentSuccess, orderstore.FulfillmentFulfilled:
		return StatusFulfilled
	case orderstore.FulfillmentPending:
		return StatusPending
	default:
		return StatusUnknown
	}
}

// shippingDate is the creation time of the selected fulfillment.
func shippingDate(selected *orderstore.Fulfillment) *time.Time {
	if selected == nil || selected.CreatedAt.IsZero() {
		return nil
	}
	t := selected.CreatedAt
	return &t
}
