package tracking

import (
	"slices"

	"github.com/tournevent/ordertrack/pkg/orderstore"
)

// Reconcile picks the latest valid fulfillment of order: the most recently
// created one whose status is success or fulfilled. Equal timestamps keep
// the upstream order. It returns nil and no tracking entries when the order
// has not shipped.
func Reconcile(order *orderstore.Order) (*orderstore.Fulfillment, []orderstore.TrackingEntry) {
	if order == nil || len(order.Fulfillments) == 0 {
		return nil, nil
	}

	sorted := slices.Clone(order.Fulfillments)
	slices.SortStableFunc(sorted, func(a, b orderstore.Fulfillment) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	for i := range sorted {
		if sorted[i].Status.IsValid() {
			selected := sorted[i]
			return &selected, slices.Clone(selected.Tracking)
		}
	}
	return nil, nil
}

// applyCarrierLabel returns entries with the carrier replaced by label.
// An empty label keeps the upstream carrier.
func applyCarrierLabel(entries []orderstore.TrackingEntry, label string) []orderstore.TrackingEntry {
	result := make([]orderstore.TrackingEntry, len(entries))
	for i, e := range entries {
		if label != "" {
			e.Carrier = label
		}
		result[i] = e
	}
	return result
}
