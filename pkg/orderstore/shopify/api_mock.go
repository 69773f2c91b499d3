package shopify

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tournevent/ordertrack/pkg/orderstore"
)

// MockAPIClient is a mock implementation of APIClient for testing and demos.
// Without hooks it serves an in-memory order list and applies tag updates to it.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnListOrders      func(ctx context.Context, params ListOrdersParams) ([]RESTOrder, error)
	OnQueryOrders     func(ctx context.Context, search string, first int) (*OrdersQueryResponse, error)
	OnUpdateOrderTags func(ctx context.Context, orderID string, tags string) (*RESTOrder, error)

	mu     sync.Mutex
	orders []RESTOrder
}

// NewMockAPIClient creates a new mock API client seeded with orders.
// With no orders given it uses a small demo fixture.
func NewMockAPIClient(orders ...RESTOrder) *MockAPIClient {
	if len(orders) == 0 {
		orders = demoOrders()
	}
	return &MockAPIClient{orders: orders}
}

// ListOrders returns fixture orders, filtered by exact name when set.
func (m *MockAPIClient) ListOrders(ctx context.Context, params ListOrdersParams) ([]RESTOrder, error) {
	if err := m.simulate("list_orders"); err != nil {
		return nil, err
	}
	if m.OnListOrders != nil {
		return m.OnListOrders(ctx, params)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var result []RESTOrder
	for _, o := range m.orders {
		if params.Name != "" && o.Name != params.Name {
			continue
		}
		result = append(result, o)
		if params.Limit > 0 && len(result) == params.Limit {
			break
		}
	}
	return result, nil
}

// QueryOrders answers "name:<value>" searches from the fixture.
func (m *MockAPIClient) QueryOrders(ctx context.Context, search string, first int) (*OrdersQueryResponse, error) {
	if err := m.simulate("query_orders"); err != nil {
		return nil, err
	}
	if m.OnQueryOrders != nil {
		return m.OnQueryOrders(ctx, search, first)
	}

	name := strings.TrimPrefix(search, "name:")

	m.mu.Lock()
	defer m.mu.Unlock()

	data := &OrdersQueryData{}
	for _, o := range m.orders {
		if o.Name != name {
			continue
		}
		data.Orders.Edges = append(data.Orders.Edges, OrderEdge{Node: restToNode(o)})
		if first > 0 && len(data.Orders.Edges) == first {
			break
		}
	}
	return &OrdersQueryResponse{Data: data}, nil
}

// UpdateOrderTags stores the tag list on the matching fixture order.
func (m *MockAPIClient) UpdateOrderTags(ctx context.Context, orderID string, tags string) (*RESTOrder, error) {
	if err := m.simulate("update_tags"); err != nil {
		return nil, err
	}
	if m.OnUpdateOrderTags != nil {
		return m.OnUpdateOrderTags(ctx, orderID, tags)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.orders {
		if strconv.FormatInt(m.orders[i].ID, 10) == orderID {
			m.orders[i].Tags = tags
			updated := m.orders[i]
			return &updated, nil
		}
	}
	return nil, orderstore.NewUpstreamError("update_tags", http.StatusNotFound, "Not Found").
		WithBody(`{"errors":"Not Found"}`)
}

func (m *MockAPIClient) simulate(operation string) error {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}
	if m.SimulateErrors {
		return orderstore.NewUpstreamError(operation, http.StatusServiceUnavailable, "Simulated API error").
			WithRetryable(false)
	}
	return nil
}

// restToNode renders a REST fixture in the GraphQL shape.
func restToNode(o RESTOrder) OrderNode {
	node := OrderNode{
		ID:                       fmt.Sprintf("gid://shopify/Order/%d", o.ID),
		LegacyResourceID:         strconv.FormatInt(o.ID, 10),
		Name:                     o.Name,
		CreatedAt:                o.CreatedAt,
		DisplayFinancialStatus:   strings.ToUpper(o.FinancialStatus),
		DisplayFulfillmentStatus: strings.ToUpper(o.FulfillmentStatus),
		Email:                    o.Email,
		Tags:                     splitTags(o.Tags),
		TotalPriceSet: &MoneyBag{ShopMoney: MoneyV2{
			Amount:       o.TotalPrice,
			CurrencyCode: o.Currency,
		}},
	}
	if o.Customer != nil {
		node.Customer = &CustomerNode{
			DisplayName: strings.TrimSpace(o.Customer.FirstName + " " + o.Customer.LastName),
		}
	}
	for _, f := range o.Fulfillments {
		fn := FulfillmentNode{
			ID:        fmt.Sprintf("gid://shopify/Fulfillment/%d", f.ID),
			Status:    strings.ToUpper(f.Status),
			CreatedAt: f.CreatedAt,
			UpdatedAt: f.UpdatedAt,
		}
		for _, t := range restTracking(f) {
			fn.TrackingInfo = append(fn.TrackingInfo, TrackingInfo{
				Company: t.Carrier,
				Number:  t.Number,
				URL:     t.URL,
			})
		}
		node.Fulfillments = append(node.Fulfillments, fn)
	}
	return node
}

func demoOrders() []RESTOrder {
	now := time.Now().UTC()
	shipped := now.Add(-72 * time.Hour).Format(time.RFC3339)
	trackingNumber := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])

	return []RESTOrder{
		{
			ID:                5001001,
			Name:              "#1001",
			OrderNumber:       1001,
			CreatedAt:         now.Add(-96 * time.Hour).Format(time.RFC3339),
			FinancialStatus:   "paid",
			FulfillmentStatus: "fulfilled",
			Email:             "customer@example.com",
			TotalPrice:        "149000.00",
			Currency:          "IDR",
			Customer:          &RESTCustomer{FirstName: "Demo", LastName: "Customer", Email: "customer@example.com"},
			Fulfillments: []RESTFulfillment{
				{
					ID:              7001001,
					Status:          "success",
					CreatedAt:       shipped,
					UpdatedAt:       shipped,
					TrackingCompany: "JNE",
					TrackingNumber:  trackingNumber,
					TrackingNumbers: []string{trackingNumber},
				},
			},
		},
		{
			ID:              5001002,
			Name:            "#1002",
			OrderNumber:     1002,
			CreatedAt:       now.Add(-24 * time.Hour).Format(time.RFC3339),
			FinancialStatus: "paid",
			Email:           "other@example.com",
			TotalPrice:      "89000.00",
			Currency:        "IDR",
		},
	}
}

var _ APIClient = (*MockAPIClient)(nil)
