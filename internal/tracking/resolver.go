package tracking

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/tournevent/ordertrack/internal/telemetry"
	"github.com/tournevent/ordertrack/pkg/orderstore"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Strategy names, also used as metric labels.
const (
	StrategyExactName = "exact_name"
	StrategyRawName   = "raw_name"
	StrategyBulkScan  = "bulk_scan"
)

// Strategy is one way of locating an order. Find returns a nil order when
// it has no match.
type Strategy struct {
	Name string
	Find func(ctx context.Context, id string) (*orderstore.Order, error)
}

// ExactNameStrategy queries the store by marker+id, the store's own format.
func ExactNameStrategy(repo orderstore.Repository, marker string) Strategy {
	return Strategy{
		Name: StrategyExactName,
		Find: func(ctx context.Context, id string) (*orderstore.Order, error) {
			return repo.FindByExactName(ctx, marker+id)
		},
	}
}

// RawNameStrategy queries the store by the bare id.
func RawNameStrategy(repo orderstore.Repository) Strategy {
	return Strategy{
		Name: StrategyRawName,
		Find: func(ctx context.Context, id string) (*orderstore.Order, error) {
			return repo.FindByRawName(ctx, id)
		},
	}
}

// BulkScanStrategy scans a bounded page of recent orders with MatchIdentifier.
// It cannot see orders outside that page.
func BulkScanStrategy(repo orderstore.Repository, marker string) Strategy {
	return Strategy{
		Name: StrategyBulkScan,
		Find: func(ctx context.Context, id string) (*orderstore.Order, error) {
			return repo.FindByBulkScan(ctx, MatchIdentifier(marker, id))
		},
	}
}

// MatchIdentifier matches orders whose display name is marker+id or id, or
// whose order number equals id parsed as a positive base-10 integer.
func MatchIdentifier(marker, id string) orderstore.MatchFunc {
	number, err := strconv.ParseInt(id, 10, 64)
	numeric := err == nil && number > 0
	return func(o *orderstore.Order) bool {
		if o.Name == marker+id || o.Name == id {
			return true
		}
		return numeric && o.Number == number
	}
}

// Resolver runs lookup strategies in order until one finds the order.
type Resolver struct {
	strategies []Strategy
	logger     *otelzap.Logger
	metrics    *telemetry.Metrics
	tracer     trace.Tracer
}

// NewResolver creates a resolver over the given strategies.
func NewResolver(strategies []Strategy, logger *otelzap.Logger, metrics *telemetry.Metrics, tracer trace.Tracer) *Resolver {
	return &Resolver{
		strategies: strategies,
		logger:     logger,
		metrics:    metrics,
		tracer:     tracerOrDefault(tracer),
	}
}

// DefaultStrategies returns the exact-name, raw-name, bulk-scan cascade.
func DefaultStrategies(repo orderstore.Repository, marker string) []Strategy {
	return []Strategy{
		ExactNameStrategy(repo, marker),
		RawNameStrategy(repo),
		BulkScanStrategy(repo, marker),
	}
}

// Resolve returns the first order found by the strategy cascade. Strategies
// run sequentially. An upstream 404 counts as a miss; any other failure
// stops the cascade immediately. When nothing matches the error wraps
// orderstore.ErrOrderNotFound.
func (r *Resolver) Resolve(ctx context.Context, id string) (*orderstore.Order, error) {
	log := r.logger.Ctx(ctx)

	for _, s := range r.strategies {
		order, err := r.try(ctx, s, id)
		if err != nil && isUpstreamNotFound(err) {
			r.metrics.RecordLookup(s.Name, "miss")
			log.Debug("Order lookup missed", zap.String("strategy", s.Name), zap.String("order_number", id), zap.Error(err))
			continue
		}
		if err != nil {
			r.metrics.RecordLookup(s.Name, "error")
			log.Error("Order lookup failed",
				zap.String("strategy", s.Name),
				zap.String("order_number", id),
				zap.Error(err),
			)
			return nil, err
		}
		if order != nil {
			r.metrics.RecordLookup(s.Name, "hit")
			log.Info("Order resolved",
				zap.String("strategy", s.Name),
				zap.String("order_number", id),
				zap.String("order_name", order.Name),
			)
			return order, nil
		}
		r.metrics.RecordLookup(s.Name, "miss")
		log.Debug("Order lookup missed", zap.String("strategy", s.Name), zap.String("order_number", id))
	}

	return nil, fmt.Errorf("%w: %s", orderstore.ErrOrderNotFound, id)
}

func isUpstreamNotFound(err error) bool {
	up, ok := orderstore.AsUpstream(err)
	return ok && up.StatusCode == http.StatusNotFound
}

func (r *Resolver) try(ctx context.Context, s Strategy, id string) (*orderstore.Order, error) {
	ctx, span := r.tracer.Start(ctx, "resolve."+s.Name, trace.WithAttributes(
		attribute.String("order.number", id),
	))
	defer span.End()

	order, err := s.Find(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Bool("order.found", order != nil))
	return order, nil
}
