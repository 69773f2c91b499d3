package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/ordertrack/internal/server"
	"github.com/tournevent/ordertrack/internal/telemetry"
	"github.com/tournevent/ordertrack/internal/tracking"
	"github.com/tournevent/ordertrack/pkg/orderstore"
	"github.com/tournevent/ordertrack/pkg/orderstore/mock"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, store *mock.Store, origins ...string) http.Handler {
	t.Helper()

	logger := otelzap.New(zap.NewNop())
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)
	svc := tracking.NewService(store, tracking.Options{
		CustomerFallback: "Customer information unavailable",
	}, logger, metrics)

	return server.New(server.Config{Port: 8080, AllowedOrigins: origins}, svc, logger, metrics, reg).Handler()
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func storeWith(order *orderstore.Order) *mock.Store {
	store := mock.New()
	store.ExactName[order.Name] = order
	return store
}

func TestServer_Health(t *testing.T) {
	rec := do(t, newTestServer(t, mock.New()), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestServer_ConfirmDelivery(t *testing.T) {
	store := storeWith(&orderstore.Order{ID: "5001", Name: "#1042", Number: 1042})
	h := newTestServer(t, store)

	rec := do(t, h, http.MethodPost, "/confirm-delivery", `{"order_number":"1042"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	resp := decode(t, rec)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "Order #1042 updated with Delivered tag", resp["message"])
	assert.Equal(t, false, resp["already_delivered"])
	order := resp["order"].(map[string]any)
	assert.Equal(t, []any{"Delivered"}, order["tags"])
	assert.Equal(t, "5001", order["id"])
	assert.Equal(t, "DELIVERED", order["status"])
}

func TestServer_ConfirmDelivery_MissingIdentifier(t *testing.T) {
	for name, body := range map[string]string{
		"empty string": `{"order_number":""}`,
		"marker only":  `{"order_number":"#"}`,
		"no field":     `{}`,
		"no body":      "",
	} {
		t.Run(name, func(t *testing.T) {
			store := mock.New()
			rec := do(t, newTestServer(t, store), http.MethodPost, "/confirm-delivery", body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decode(t, rec)["error"])
			assert.Empty(t, store.Calls())
		})
	}
}

func TestServer_ConfirmDelivery_InvalidJSON(t *testing.T) {
	store := mock.New()
	rec := do(t, newTestServer(t, store), http.MethodPost, "/confirm-delivery", `{"order_number":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, store.Calls())
}

func TestServer_ConfirmDelivery_NotFound(t *testing.T) {
	rec := do(t, newTestServer(t, mock.New()), http.MethodPost, "/confirm-delivery", `{"order_number":"404"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Order not found", decode(t, rec)["error"])
}

func TestServer_MethodNotAllowed(t *testing.T) {
	h := newTestServer(t, mock.New())

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/confirm-delivery"},
		{http.MethodPut, "/track-order"},
		{http.MethodDelete, "/confirm-delivery"},
	} {
		rec := do(t, h, tc.method, tc.path, "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, "%s %s", tc.method, tc.path)
		assert.Equal(t, "Method not allowed", decode(t, rec)["error"])
	}
}

func TestServer_TrackOrder(t *testing.T) {
	store := storeWith(&orderstore.Order{
		ID:    "5001",
		Name:  "#1042",
		Email: "c@d.com",
		Total: orderstore.Money{Amount: "10.00", Currency: "EUR"},
	})
	h := newTestServer(t, store)

	rec := do(t, h, http.MethodPost, "/track-order", `{"orderNumber":"#1042","customerEmail":"c@d.com"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "#1042", resp["orderNumber"])
	assert.Equal(t, "Customer information unavailable", resp["customerName"])
	assert.Equal(t, "UNKNOWN", resp["status"])
	assert.Equal(t, []any{}, resp["trackingInfo"])
	assert.Nil(t, resp["shippingDate"])
	assert.Equal(t, "10.00", resp["totalAmount"])
	assert.Equal(t, "EUR", resp["currency"])
}

func TestServer_TrackOrder_Query(t *testing.T) {
	store := storeWith(&orderstore.Order{ID: "5001", Name: "#1042"})

	rec := do(t, newTestServer(t, store), http.MethodGet, "/track-order?orderNumber=1042", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "#1042", decode(t, rec)["orderNumber"])
	assert.NotContains(t, store.Calls(), mock.CallUpdate)
}

func TestServer_TrackOrder_EmailMismatch(t *testing.T) {
	store := storeWith(&orderstore.Order{ID: "5001", Name: "#1042", Email: "c@d.com"})

	rec := do(t, newTestServer(t, store), http.MethodPost, "/track-order", `{"orderNumber":"1042","customerEmail":"a@b.com"}`)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NotContains(t, rec.Body.String(), "c@d.com")
}

func TestServer_UpstreamErrors(t *testing.T) {
	longBody := strings.Repeat("e", 300)
	tests := []struct {
		name     string
		upstream int
		want     int
	}{
		{"unauthorized", http.StatusUnauthorized, http.StatusBadGateway},
		{"forbidden", http.StatusForbidden, http.StatusBadGateway},
		{"unprocessable", http.StatusUnprocessableEntity, http.StatusUnprocessableEntity},
		{"rate limited", http.StatusTooManyRequests, http.StatusTooManyRequests},
		{"server error", http.StatusInternalServerError, http.StatusBadGateway},
		{"transport", 0, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := mock.New()
			store.Err[mock.CallExactName] = orderstore.NewUpstreamError("query_orders", tt.upstream, "failed").
				WithBody(longBody)

			rec := do(t, newTestServer(t, store), http.MethodPost, "/confirm-delivery", `{"order_number":"1042"}`)

			assert.Equal(t, tt.want, rec.Code)
			resp := decode(t, rec)
			assert.NotEmpty(t, resp["error"])
			assert.Equal(t, strings.Repeat("e", 200)+"...", resp["details"])
		})
	}
}

func TestServer_UpdateFailure(t *testing.T) {
	store := storeWith(&orderstore.Order{ID: "5001", Name: "#1042"})
	store.Err[mock.CallUpdate] = orderstore.NewUpstreamError("update_tags", http.StatusNotFound, "Not Found").
		WithBody(`{"errors":"Not Found"}`)

	rec := do(t, newTestServer(t, store), http.MethodPost, "/confirm-delivery", `{"order_number":"1042"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, `{"errors":"Not Found"}`, decode(t, rec)["details"])
}

func TestServer_CORSPreflight(t *testing.T) {
	h := newTestServer(t, mock.New())

	req := httptest.NewRequest(http.MethodOptions, "/track-order", nil)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Content-Type")
}

func TestServer_CORSRestrictedOrigins(t *testing.T) {
	h := newTestServer(t, mock.New(), "https://shop.example")

	allowed := httptest.NewRequest(http.MethodOptions, "/confirm-delivery", nil)
	allowed.Header.Set("Origin", "https://shop.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, allowed)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://shop.example", rec.Header().Get("Access-Control-Allow-Origin"))

	denied := httptest.NewRequest(http.MethodOptions, "/confirm-delivery", nil)
	denied.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, denied)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_Metrics(t *testing.T) {
	h := newTestServer(t, mock.New())
	do(t, h, http.MethodPost, "/confirm-delivery", `{"order_number":"404"}`)

	rec := do(t, h, http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `order_tracking_requests_total{endpoint="/confirm-delivery",status="404"} 1`)
	assert.Contains(t, body, `order_tracking_lookups_total{outcome="miss",strategy="bulk_scan"} 1`)
}
