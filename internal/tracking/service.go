// Package tracking resolves customer-supplied order identifiers against the
// order store and derives a single delivery status for them.
package tracking

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/tournevent/ordertrack/internal/telemetry"
	"github.com/tournevent/ordertrack/pkg/orderstore"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/tournevent/ordertrack/internal/tracking"

// Options configures the service's business rules.
type Options struct {
	Marker           string        // display name prefix, e.g. "#"
	DeliveredTag     string        // tag meaning "confirmed delivered"
	CarrierLabel     string        // replaces every tracking carrier; empty keeps upstream
	CustomerFallback string        // customer label when no name is readable
	DeliveredAfter   time.Duration // elapsed-time heuristic threshold; 0 disables
}

// TrackRequest is a tracking lookup.
type TrackRequest struct {
	OrderNumber   string
	CustomerEmail string // optional; when set it must match the order
}

// DeliveryResult is the tracking view of one order.
type DeliveryResult struct {
	OrderNumber  string                     `json:"orderNumber"`
	CustomerName string                     `json:"customerName"`
	Status       Status                     `json:"status"`
	TrackingInfo []orderstore.TrackingEntry `json:"trackingInfo"`
	OrderDate    time.Time                  `json:"orderDate"`
	ShippingDate *time.Time                 `json:"shippingDate"`
	TotalAmount  string                     `json:"totalAmount"`
	Currency     string                     `json:"currency"`
	Tags         []string                   `json:"tags"`
}

// OrderSummary is the acknowledged order state returned by a confirmation.
type OrderSummary struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	OrderNumber       int64    `json:"order_number"`
	Tags              []string `json:"tags"`
	FinancialStatus   string   `json:"financial_status,omitempty"`
	FulfillmentStatus string   `json:"fulfillment_status,omitempty"`
	Status            Status   `json:"status"`
}

// Confirmation is the outcome of ConfirmDelivery.
type Confirmation struct {
	Message          string       `json:"message"`
	Order            OrderSummary `json:"order"`
	AlreadyDelivered bool         `json:"already_delivered"`
}

// Service is the order tracking engine.
type Service struct {
	opts       Options
	resolver   *Resolver
	mutator    *TagMutator
	normalizer StatusNormalizer
	logger     *otelzap.Logger
	tracer     trace.Tracer
}

// NewService wires the default lookup cascade and tag mutator over repo.
func NewService(repo orderstore.Repository, opts Options, logger *otelzap.Logger, metrics *telemetry.Metrics) *Service {
	if opts.Marker == "" {
		opts.Marker = DefaultMarker
	}
	if opts.DeliveredTag == "" {
		opts.DeliveredTag = DefaultDeliveredTag
	}

	tracer := otel.Tracer(tracerName)
	return &Service{
		opts:     opts,
		resolver: NewResolver(DefaultStrategies(repo, opts.Marker), logger, metrics, tracer),
		mutator:  NewTagMutator(repo, opts.DeliveredTag, logger),
		normalizer: StatusNormalizer{
			DeliveredTag: opts.DeliveredTag,
			Heuristic:    ElapsedHeuristic{Threshold: opts.DeliveredAfter},
		},
		logger: logger,
		tracer: tracer,
	}
}

// WithHeuristic replaces the shipping-date heuristic.
func (s *Service) WithHeuristic(h DeliveryHeuristic) *Service {
	s.normalizer.Heuristic = h
	return s
}

// Track resolves the order and builds its delivery result. When an email is
// supplied it must match the order's email, compared case-insensitively.
func (s *Service) Track(ctx context.Context, req TrackRequest) (_ *DeliveryResult, err error) {
	ctx, span := s.tracer.Start(ctx, "tracking.Track")
	defer func() { endSpan(span, err) }()

	id, err := NormalizeIdentifier(req.OrderNumber, s.opts.Marker)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("order.number", id))

	order, err := s.resolver.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	if email := strings.TrimSpace(req.CustomerEmail); email != "" {
		if !strings.EqualFold(email, strings.TrimSpace(order.Email)) {
			s.logger.Ctx(ctx).Warn("Tracking email mismatch", zap.String("order_name", order.Name))
			return nil, fmt.Errorf("%w: %s", ErrEmailMismatch, order.Name)
		}
	}

	selected, tracking := Reconcile(order)
	result := &DeliveryResult{
		OrderNumber:  order.Name,
		CustomerName: s.customerLabel(order),
		Status:       s.normalizer.Normalize(order, selected),
		TrackingInfo: applyCarrierLabel(tracking, s.opts.CarrierLabel),
		OrderDate:    order.CreatedAt,
		ShippingDate: shippingDate(selected),
		TotalAmount:  order.Total.Amount,
		Currency:     order.Total.Currency,
		Tags:         slices.Clone(order.Tags),
	}
	if result.TotalAmount == "" {
		result.TotalAmount = "0"
	}
	if result.Currency == "" {
		result.Currency = "USD"
	}
	if result.Tags == nil {
		result.Tags = []string{}
	}

	s.logger.Ctx(ctx).Info("Order tracked",
		zap.String("order_name", order.Name),
		zap.String("status", string(result.Status)),
		zap.Int("tracking_entries", len(result.TrackingInfo)),
	)
	return result, nil
}

// ConfirmDelivery resolves the order and adds the delivery tag to it. It is
// the only operation that writes to the store.
func (s *Service) ConfirmDelivery(ctx context.Context, rawOrderNumber string) (_ *Confirmation, err error) {
	ctx, span := s.tracer.Start(ctx, "tracking.ConfirmDelivery")
	defer func() { endSpan(span, err) }()

	log := s.logger.Ctx(ctx)

	id, err := NormalizeIdentifier(rawOrderNumber, s.opts.Marker)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("order.number", id))
	log.Debug("Confirming delivery", zap.String("stage", "normalized"), zap.String("order_number", id))

	order, err := s.resolver.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	log.Debug("Confirming delivery", zap.String("stage", "resolved"), zap.String("order_id", order.ID))

	alreadyDelivered := order.HasTag(s.opts.DeliveredTag)
	updated, err := s.mutator.ConfirmDelivery(ctx, order)
	if err != nil {
		return nil, err
	}
	log.Debug("Confirming delivery", zap.String("stage", "persisted"), zap.String("order_id", updated.ID))

	selected, _ := Reconcile(updated)
	summary := OrderSummary{
		ID:                updated.ID,
		Name:              updated.Name,
		OrderNumber:       updated.Number,
		Tags:              slices.Clone(updated.Tags),
		FinancialStatus:   updated.FinancialStatus,
		FulfillmentStatus: updated.FulfillmentStatus,
		Status:            s.normalizer.Normalize(updated, selected),
	}

	return &Confirmation{
		Message:          fmt.Sprintf("Order %s updated with %s tag", updated.Name, s.opts.DeliveredTag),
		Order:            summary,
		AlreadyDelivered: alreadyDelivered,
	}, nil
}

func (s *Service) customerLabel(order *orderstore.Order) string {
	if name := strings.TrimSpace(order.CustomerName); name != "" {
		return name
	}
	return s.opts.CustomerFallback
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func tracerOrDefault(t trace.Tracer) trace.Tracer {
	if t == nil {
		return otel.Tracer(tracerName)
	}
	return t
}
