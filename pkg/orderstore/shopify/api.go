package shopify

import (
	"context"

	"github.com/vektah/gqlparser/v2/gqlerror"
)

// APIClient defines the Shopify Admin API operations the repository needs.
// This abstraction allows for mock implementations during testing
// and real implementations in production.
type APIClient interface {
	// ListOrders calls the REST order listing endpoint.
	ListOrders(ctx context.Context, params ListOrdersParams) ([]RESTOrder, error)

	// QueryOrders runs the order lookup GraphQL query with a search string.
	// GraphQL-level errors are returned in the response, not as err.
	QueryOrders(ctx context.Context, search string, first int) (*OrdersQueryResponse, error)

	// UpdateOrderTags replaces an order's tags. tags is the comma separated
	// list Shopify stores.
	UpdateOrderTags(ctx context.Context, orderID string, tags string) (*RESTOrder, error)
}

// ============================================================================
// REST types (GET /orders.json, PUT /orders/{id}.json)
// ============================================================================

// ListOrdersParams are the query parameters for GET /orders.json.
type ListOrdersParams struct {
	Name   string // exact display name filter; empty means no filter
	Status string // "open", "closed", "cancelled" or "any"
	Limit  int    // page size, Shopify caps this at 250
}

// RESTOrder is the subset of the REST order resource the service reads.
type RESTOrder struct {
	ID                int64             `json:"id"`
	Name              string            `json:"name"`
	OrderNumber       int64             `json:"order_number"`
	CreatedAt         string            `json:"created_at"`
	FinancialStatus   string            `json:"financial_status"`
	FulfillmentStatus string            `json:"fulfillment_status"`
	Email             string            `json:"email"`
	Tags              string            `json:"tags"`
	TotalPrice        string            `json:"total_price"`
	Currency          string            `json:"currency"`
	Customer          *RESTCustomer     `json:"customer,omitempty"`
	Fulfillments      []RESTFulfillment `json:"fulfillments"`
}

// RESTCustomer is the embedded customer on a REST order.
type RESTCustomer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// RESTFulfillment is a fulfillment embedded in a REST order.
type RESTFulfillment struct {
	ID              int64    `json:"id"`
	Status          string   `json:"status"`
	CreatedAt       string   `json:"created_at"`
	UpdatedAt       string   `json:"updated_at"`
	TrackingCompany string   `json:"tracking_company"`
	TrackingNumber  string   `json:"tracking_number"`
	TrackingNumbers []string `json:"tracking_numbers"`
	TrackingURL     string   `json:"tracking_url"`
	TrackingURLs    []string `json:"tracking_urls"`
}

type ordersEnvelope struct {
	Orders []RESTOrder `json:"orders"`
}

type orderEnvelope struct {
	Order RESTOrder `json:"order"`
}

type tagsUpdate struct {
	Order tagsUpdateOrder `json:"order"`
}

type tagsUpdateOrder struct {
	ID   string `json:"id"`
	Tags string `json:"tags"`
}

// ============================================================================
// GraphQL types (POST /graphql.json)
// ============================================================================

type graphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// OrdersQueryResponse is the GraphQL envelope for the lookup query.
// Data may be partially populated when Errors is non-empty.
type OrdersQueryResponse struct {
	Data   *OrdersQueryData `json:"data"`
	Errors gqlerror.List    `json:"errors,omitempty"`
}

// OrdersQueryData is the data member of the lookup query.
type OrdersQueryData struct {
	Orders OrderConnection `json:"orders"`
}

// OrderConnection is a Relay connection of orders.
type OrderConnection struct {
	Edges []OrderEdge `json:"edges"`
}

// OrderEdge wraps one order node.
type OrderEdge struct {
	Node OrderNode `json:"node"`
}

// OrderNode is the GraphQL order shape requested by the lookup query.
type OrderNode struct {
	ID                       string            `json:"id"`
	LegacyResourceID         string            `json:"legacyResourceId"`
	Name                     string            `json:"name"`
	CreatedAt                string            `json:"createdAt"`
	DisplayFinancialStatus   string            `json:"displayFinancialStatus"`
	DisplayFulfillmentStatus string            `json:"displayFulfillmentStatus"`
	Email                    string            `json:"email"`
	Tags                     []string          `json:"tags"`
	Customer                 *CustomerNode     `json:"customer"`
	TotalPriceSet            *MoneyBag         `json:"totalPriceSet"`
	Fulfillments             []FulfillmentNode `json:"fulfillments"`
}

// CustomerNode is the customer selection; null when access is denied.
type CustomerNode struct {
	DisplayName string `json:"displayName"`
}

// MoneyBag mirrors Shopify's MoneyBag.
type MoneyBag struct {
	ShopMoney MoneyV2 `json:"shopMoney"`
}

// MoneyV2 mirrors Shopify's MoneyV2.
type MoneyV2 struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currencyCode"`
}

// FulfillmentNode is a fulfillment in the GraphQL shape.
type FulfillmentNode struct {
	ID           string         `json:"id"`
	Status       string         `json:"status"`
	CreatedAt    string         `json:"createdAt"`
	UpdatedAt    string         `json:"updatedAt"`
	TrackingInfo []TrackingInfo `json:"trackingInfo"`
}

// TrackingInfo is a fulfillment tracking entry in the GraphQL shape.
type TrackingInfo struct {
	Company string `json:"company"`
	Number  string `json:"number"`
	URL     string `json:"url"`
}

// restErrorBody is the REST error envelope; errors is either a string or
// a field map.
type restErrorBody struct {
	Errors any `json:"errors"`
}
