package shopify_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/ordertrack/pkg/orderstore"
	"github.com/tournevent/ordertrack/pkg/orderstore/shopify"
)

func newHTTPClient(t *testing.T, handler http.HandlerFunc) *shopify.HTTPAPIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return shopify.NewHTTPAPIClient(shopify.HTTPAPIClientConfig{
		BaseURL:     srv.URL + "/admin/api/2024-01",
		AccessToken: "shpat_test",
		Timeout:     2 * time.Second,
		MaxRetries:  2,
		RetryWait:   time.Millisecond,
	})
}

func TestHTTPAPIClient_ListOrders(t *testing.T) {
	client := newHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/admin/api/2024-01/orders.json", r.URL.Path)
		assert.Equal(t, "#1001", r.URL.Query().Get("name"))
		assert.Equal(t, "any", r.URL.Query().Get("status"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "shpat_test", r.Header.Get("X-Shopify-Access-Token"))
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"orders":[{"id":5001,"name":"#1001","order_number":1001,"tags":"VIP",
			"fulfillments":[{"id":9,"status":"success","tracking_company":"JNE","tracking_numbers":["A1"]}]}]}`)
	})

	orders, err := client.ListOrders(context.Background(), shopify.ListOrdersParams{Name: "#1001", Status: "any", Limit: 1})

	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, int64(5001), orders[0].ID)
	assert.Equal(t, "VIP", orders[0].Tags)
	require.Len(t, orders[0].Fulfillments, 1)
	assert.Equal(t, []string{"A1"}, orders[0].Fulfillments[0].TrackingNumbers)
}

func TestHTTPAPIClient_QueryOrders(t *testing.T) {
	client := newHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/admin/api/2024-01/graphql.json", r.URL.Path)

		var body struct {
			Query         string         `json:"query"`
			OperationName string         `json:"operationName"`
			Variables     map[string]any `json:"variables"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "LookupOrders", body.OperationName)
		assert.Contains(t, body.Query, "trackingInfo")
		assert.Equal(t, "name:#1001", body.Variables["query"])
		assert.Equal(t, float64(1), body.Variables["first"])

		io.WriteString(w, `{
			"data":{"orders":{"edges":[{"node":{"id":"gid://shopify/Order/5001","legacyResourceId":"5001","name":"#1001","tags":["VIP"]}}]}},
			"errors":[{"message":"Access denied","path":["orders","edges",0,"node","customer"],"extensions":{"code":"ACCESS_DENIED"}}]
		}`)
	})

	resp, err := client.QueryOrders(context.Background(), "name:#1001", 1)

	require.NoError(t, err)
	require.NotNil(t, resp.Data)
	require.Len(t, resp.Data.Orders.Edges, 1)
	assert.Equal(t, "5001", resp.Data.Orders.Edges[0].Node.LegacyResourceID)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "ACCESS_DENIED", resp.Errors[0].Extensions["code"])
	assert.Equal(t, "orders.edges[0].node.customer", resp.Errors[0].Path.String())
}

func TestHTTPAPIClient_UpdateOrderTags(t *testing.T) {
	client := newHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/admin/api/2024-01/orders/5001.json", r.URL.Path)

		var body struct {
			Order struct {
				ID   string `json:"id"`
				Tags string `json:"tags"`
			} `json:"order"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "5001", body.Order.ID)
		assert.Equal(t, "VIP, Delivered", body.Order.Tags)

		io.WriteString(w, `{"order":{"id":5001,"name":"#1001","tags":"VIP, Delivered"}}`)
	})

	order, err := client.UpdateOrderTags(context.Background(), "5001", "VIP, Delivered")

	require.NoError(t, err)
	assert.Equal(t, "VIP, Delivered", order.Tags)
}

func TestHTTPAPIClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := newHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, `{"orders":[]}`)
	})

	orders, err := client.ListOrders(context.Background(), shopify.ListOrdersParams{Status: "any"})

	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPAPIClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	client := newHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"errors":"Internal Server Error"}`)
	})

	_, err := client.ListOrders(context.Background(), shopify.ListOrdersParams{})

	up, ok := orderstore.AsUpstream(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, up.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPAPIClient_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	client := newHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"errors":"[API] Invalid API key or access token (unrecognized login or wrong password)"}`)
	})

	_, err := client.ListOrders(context.Background(), shopify.ListOrdersParams{})

	up, ok := orderstore.AsUpstream(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, up.StatusCode)
	assert.Contains(t, up.Message, "Invalid API key")
	assert.Contains(t, up.Body, "Invalid API key")
	assert.NotContains(t, err.Error(), "shpat_test")
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPAPIClient_ValidationErrorBody(t *testing.T) {
	client := newHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, `{"errors":{"tags":["is too long"]}}`)
	})

	_, err := client.UpdateOrderTags(context.Background(), "5001", "x")

	up, ok := orderstore.AsUpstream(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, up.StatusCode)
	assert.Equal(t, `{"tags":["is too long"]}`, up.Message)
}

func TestHTTPAPIClient_MalformedResponse(t *testing.T) {
	client := newHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html>maintenance</html>`)
	})

	_, err := client.ListOrders(context.Background(), shopify.ListOrdersParams{})

	up, ok := orderstore.AsUpstream(err)
	require.True(t, ok)
	assert.Equal(t, 0, up.StatusCode)
	assert.Equal(t, "<html>maintenance</html>", up.Body)
}
