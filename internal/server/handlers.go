package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/tournevent/ordertrack/internal/tracking"
	"github.com/tournevent/ordertrack/pkg/orderstore"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type confirmDeliveryRequest struct {
	OrderNumber string `json:"order_number"`
}

type confirmDeliveryResponse struct {
	Success          bool                  `json:"success"`
	Message          string                `json:"message"`
	Order            tracking.OrderSummary `json:"order"`
	AlreadyDelivered bool                  `json:"already_delivered"`
}

type trackOrderRequest struct {
	OrderNumber   string `json:"orderNumber"`
	CustomerEmail string `json:"customerEmail,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (s *Server) handleConfirmDelivery(w http.ResponseWriter, r *http.Request) {
	var req confirmDeliveryRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON body", Details: err.Error()})
		return
	}

	conf, err := s.service.ConfirmDelivery(r.Context(), req.OrderNumber)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, confirmDeliveryResponse{
		Success:          true,
		Message:          conf.Message,
		Order:            conf.Order,
		AlreadyDelivered: conf.AlreadyDelivered,
	})
}

func (s *Server) handleTrackOrder(w http.ResponseWriter, r *http.Request) {
	var req trackOrderRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON body", Details: err.Error()})
		return
	}
	s.track(w, r, req)
}

func (s *Server) handleTrackOrderQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.track(w, r, trackOrderRequest{
		OrderNumber:   q.Get("orderNumber"),
		CustomerEmail: q.Get("customerEmail"),
	})
}

func (s *Server) track(w http.ResponseWriter, r *http.Request, req trackOrderRequest) {
	result, err := s.service.Track(r.Context(), tracking.TrackRequest{
		OrderNumber:   req.OrderNumber,
		CustomerEmail: req.CustomerEmail,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// decodeBody decodes a JSON body into v. An empty body leaves v untouched
// so a missing identifier is reported as such rather than as bad JSON.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// writeError maps an engine error to its HTTP status and body.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)

	log := s.logger.Ctx(r.Context())
	if up, ok := orderstore.AsUpstream(err); ok {
		s.metrics.RecordUpstreamError(up.Operation, up.StatusCode)
		log.Error("Upstream order store failure",
			zap.String("operation", up.Operation),
			zap.Int("upstream_status", up.StatusCode),
			zap.Int("status", status),
			zap.Error(err),
		)
	} else if status >= http.StatusInternalServerError {
		log.Error("Request failed", zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		log.Info("Request rejected", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	}

	writeJSON(w, status, body)
}

func classify(err error) (int, errorResponse) {
	switch {
	case errors.Is(err, tracking.ErrInvalidIdentifier):
		return http.StatusBadRequest, errorResponse{Error: "Order number is required"}
	case errors.Is(err, tracking.ErrEmailMismatch):
		return http.StatusForbidden, errorResponse{Error: "Email does not match order"}
	case errors.Is(err, orderstore.ErrOrderNotFound):
		return http.StatusNotFound, errorResponse{Error: "Order not found"}
	}

	if up, ok := orderstore.AsUpstream(err); ok {
		return upstreamStatus(up.StatusCode), errorResponse{
			Error:   "Upstream order store error",
			Details: up.Truncated(),
		}
	}
	return http.StatusInternalServerError, errorResponse{Error: "Internal server error"}
}

// upstreamStatus maps an upstream status: 401, 403 and 5xx become 502,
// other 4xx pass through, and transport failures (0) become 500.
func upstreamStatus(code int) int {
	switch {
	case code == 0:
		return http.StatusInternalServerError
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return http.StatusBadGateway
	case code >= 400 && code < 500:
		return code
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
