// Package http exposes the delivery fee endpoint plus health, readiness,
// and metrics routes.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/couchcryptid/delivery-fee-service/internal/domain"
	"github.com/couchcryptid/delivery-fee-service/internal/observability"
)

// timeStampLayout is the request timestamp format: an ISO-8601 local
// date-time without zone.
const timeStampLayout = "2006-01-02T15:04:05"

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// FeeCalculator computes a delivery fee. Implemented by domain.Calculator.
type FeeCalculator interface {
	Fee(ctx context.Context, city, vehicleType string, at *time.Time) (decimal.Decimal, error)
}

// Server exposes the fee, health, readiness, and metrics HTTP endpoints.
type Server struct {
	httpServer *http.Server
	calculator FeeCalculator
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewServer creates an HTTP server with /delivery/fee, /healthz, /readyz,
// and /metrics routes.
func NewServer(addr string, calculator FeeCalculator, ready ReadinessChecker, logger *slog.Logger, metrics *observability.Metrics) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		calculator: calculator,
		logger:     logger,
		metrics:    metrics,
	}

	mux.HandleFunc("POST /delivery/fee", s.handleFee)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type feeRequest struct {
	City        string  `json:"city"`
	VehicleType string  `json:"vehicleType"`
	TimeStamp   *string `json:"timeStamp"`
}

// feeResponse always carries exactly one non-null side.
type feeResponse struct {
	Fee          *json.Number `json:"fee"`
	ErrorMessage *string      `json:"errorMessage"`
}

func (s *Server) handleFee(w http.ResponseWriter, r *http.Request) {
	var req feeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.metrics.FeeRequests.WithLabelValues("bad_request").Inc()
		writeFeeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var at *time.Time
	if req.TimeStamp != nil && *req.TimeStamp != "" {
		t, err := time.ParseInLocation(timeStampLayout, *req.TimeStamp, time.Local)
		if err != nil {
			s.metrics.FeeRequests.WithLabelValues("bad_request").Inc()
			writeFeeError(w, http.StatusBadRequest, "invalid timeStamp, want YYYY-MM-DDTHH:MM:SS")
			return
		}
		at = &t
	}

	start := time.Now()
	fee, err := s.calculator.Fee(r.Context(), req.City, req.VehicleType, at)
	s.metrics.FeeRequestDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		s.writeFeeFailure(w, req, err)
		return
	}

	s.metrics.FeeRequests.WithLabelValues("ok").Inc()
	amount := json.Number(fee.StringFixed(2))
	writeJSON(w, http.StatusOK, feeResponse{Fee: &amount})
}

// writeFeeFailure maps engine failure categories onto status codes and
// user-visible messages. Messages echo the request's original casing.
func (s *Server) writeFeeFailure(w http.ResponseWriter, req feeRequest, err error) {
	var (
		status  int
		message string
		outcome string
	)

	switch {
	case errors.Is(err, domain.ErrUnknownCity):
		status, outcome = http.StatusBadRequest, "unknown_city"
		message = "Unknown city: " + req.City
	case errors.Is(err, domain.ErrUnknownVehicleType):
		status, outcome = http.StatusBadRequest, "unknown_vehicle"
		message = "Unknown vehicle type: " + req.VehicleType
	case errors.Is(err, domain.ErrVehicleForbidden):
		status, outcome = http.StatusBadRequest, "forbidden"
		message = "Usage of selected vehicle type is forbidden"
	case errors.Is(err, domain.ErrNoWeatherForTime):
		status, outcome = http.StatusNotFound, "invalid_timestamp"
		message = "No valid weather data for selected time for city: " + req.City
	case errors.Is(err, domain.ErrNoWeatherData):
		status, outcome = http.StatusNotFound, "no_weather"
		message = "Database contains no weather data for city: " + req.City
	default:
		status, outcome = http.StatusInternalServerError, "error"
		message = "An unexpected error occurred"
		s.logger.Error("fee calculation failed", "error", err, "city", req.City, "vehicle_type", req.VehicleType)
	}

	s.metrics.FeeRequests.WithLabelValues(outcome).Inc()
	writeFeeError(w, status, message)
}

func writeFeeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, feeResponse{ErrorMessage: &message})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response write
}
