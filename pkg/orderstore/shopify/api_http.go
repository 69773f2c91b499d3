package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/tournevent/ordertrack/pkg/orderstore"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

const lookupOrdersQuery = `
query LookupOrders($query: String!, $first: Int!) {
  orders(first: $first, query: $query) {
    edges {
      node {
        id
        legacyResourceId
        name
        createdAt
        displayFinancialStatus
        displayFulfillmentStatus
        email
        tags
        customer {
          displayName
        }
        totalPriceSet {
          shopMoney {
            amount
            currencyCode
          }
        }
        fulfillments(first: 10) {
          id
          status
          createdAt
          updatedAt
          trackingInfo {
            company
            number
            url
          }
        }
      }
    }
  }
}
`

// lookupOperation is the operation name declared in lookupOrdersQuery.
var lookupOperation = mustOperationName(lookupOrdersQuery)

func mustOperationName(query string) string {
	doc, err := parser.ParseQuery(&ast.Source{Name: "lookup", Input: query})
	if err != nil {
		panic(fmt.Sprintf("shopify: invalid lookup query: %v", err))
	}
	if len(doc.Operations) != 1 {
		panic("shopify: lookup query must declare exactly one operation")
	}
	return doc.Operations[0].Name
}

// maxResponseBody caps how much of an upstream response is read.
const maxResponseBody = 10 << 20

// HTTPAPIClient is the production implementation of APIClient using HTTP.
type HTTPAPIClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	maxRetries int
	retryWait  time.Duration
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL     string // e.g. https://shop.myshopify.com/admin/api/2024-01
	AccessToken string
	Timeout     time.Duration
	MaxRetries  int           // retries after the first attempt for 429/5xx/transport errors
	RetryWait   time.Duration // initial backoff interval
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	retryWait := cfg.RetryWait
	if retryWait == 0 {
		retryWait = 500 * time.Millisecond
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &HTTPAPIClient{
		baseURL: cfg.BaseURL,
		token:   cfg.AccessToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries: maxRetries,
		retryWait:  retryWait,
	}
}

// ListOrders fetches orders from GET /orders.json.
func (c *HTTPAPIClient) ListOrders(ctx context.Context, params ListOrdersParams) ([]RESTOrder, error) {
	q := url.Values{}
	if params.Name != "" {
		q.Set("name", params.Name)
	}
	if params.Status != "" {
		q.Set("status", params.Status)
	}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}

	var env ordersEnvelope
	if err := c.do(ctx, "list_orders", http.MethodGet, "/orders.json", q, nil, &env); err != nil {
		return nil, err
	}
	return env.Orders, nil
}

// QueryOrders runs the lookup query against POST /graphql.json.
func (c *HTTPAPIClient) QueryOrders(ctx context.Context, search string, first int) (*OrdersQueryResponse, error) {
	if first <= 0 {
		first = 1
	}
	req := graphQLRequest{
		Query:         lookupOrdersQuery,
		OperationName: lookupOperation,
		Variables: map[string]any{
			"query": search,
			"first": first,
		},
	}

	var result OrdersQueryResponse
	if err := c.do(ctx, "query_orders", http.MethodPost, "/graphql.json", nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateOrderTags replaces the tag list via PUT /orders/{id}.json.
func (c *HTTPAPIClient) UpdateOrderTags(ctx context.Context, orderID string, tags string) (*RESTOrder, error) {
	body := tagsUpdate{Order: tagsUpdateOrder{ID: orderID, Tags: tags}}
	path := fmt.Sprintf("/orders/%s.json", url.PathEscape(orderID))

	var env orderEnvelope
	if err := c.do(ctx, "update_tags", http.MethodPut, path, nil, body, &env); err != nil {
		return nil, err
	}
	return &env.Order, nil
}

// do performs a request with authentication and retries retryable failures
// with exponential backoff. Non-retryable failures return immediately.
func (c *HTTPAPIClient) do(ctx context.Context, operation, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	attempt := func() error {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Shopify-Access-Token", c.token)
		req.Header.Set("X-Request-Id", uuid.NewString())
		req.Header.Set("User-Agent", "ordertrack/1.0")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return orderstore.NewUpstreamError(operation, 0, "request failed").
				WithCause(err).
				WithRetryable(true)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		if err != nil {
			return orderstore.NewUpstreamError(operation, 0, "reading response failed").
				WithCause(err).
				WithRetryable(true)
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			upErr := parseError(operation, resp.StatusCode, raw)
			if upErr.Retryable {
				return upErr
			}
			return backoff.Permanent(upErr)
		}

		if out == nil {
			return nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return backoff.Permanent(orderstore.NewUpstreamError(operation, 0, "malformed response").
				WithBody(string(raw)).
				WithCause(err))
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryWait
	policy.MaxElapsedTime = 0

	return backoff.Retry(attempt, backoff.WithContext(
		backoff.WithMaxRetries(policy, uint64(c.maxRetries)), ctx))
}

// parseError extracts error information from a non-2xx response.
func parseError(operation string, status int, body []byte) *orderstore.UpstreamError {
	msg := http.StatusText(status)

	var env restErrorBody
	if err := json.Unmarshal(body, &env); err == nil {
		switch v := env.Errors.(type) {
		case string:
			msg = v
		case map[string]any:
			if encoded, err := json.Marshal(v); err == nil {
				msg = string(encoded)
			}
		}
	}

	return orderstore.NewUpstreamError(operation, status, msg).WithBody(string(body))
}

// Ensure HTTPAPIClient implements APIClient interface
var _ APIClient = (*HTTPAPIClient)(nil)
