package tracking

import (
	"context"
	"fmt"
	"slices"

	"github.com/tournevent/ordertrack/pkg/orderstore"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// DefaultDeliveredTag marks an order as manually confirmed delivered.
const DefaultDeliveredTag = "Delivered"

// MergeTags returns existing with tag appended when absent, preserving the
// existing order. added reports whether tag was new. existing is not modified.
func MergeTags(existing []string, tag string) (merged []string, added bool) {
	merged = slices.Clone(existing)
	if slices.Contains(merged, tag) {
		return merged, false
	}
	return append(merged, tag), true
}

// TagMutator applies the delivery marker tag to orders.
type TagMutator struct {
	repo   orderstore.Repository
	tag    string
	logger *otelzap.Logger
}

// NewTagMutator creates a mutator that writes tag through repo.
func NewTagMutator(repo orderstore.Repository, tag string, logger *otelzap.Logger) *TagMutator {
	return &TagMutator{repo: repo, tag: tag, logger: logger}
}

// ConfirmDelivery submits the order's tags plus the delivery tag as a full
// replacement and returns the store's acknowledged order. The update is sent
// even when the tag is already present; the submitted set is then unchanged.
func (m *TagMutator) ConfirmDelivery(ctx context.Context, order *orderstore.Order) (*orderstore.Order, error) {
	tags, added := MergeTags(order.Tags, m.tag)

	m.logger.Ctx(ctx).Info("Applying delivery tag",
		zap.String("order_id", order.ID),
		zap.String("order_name", order.Name),
		zap.String("tag", m.tag),
		zap.Bool("already_tagged", !added),
	)

	updated, err := m.repo.UpdateTags(ctx, order.ID, tags)
	if err != nil {
		return nil, fmt.Errorf("updating tags of %s: %w", order.Name, err)
	}
	return updated, nil
}
