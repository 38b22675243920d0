package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/delivery-fee-service/internal/adapter/http"
	"github.com/couchcryptid/delivery-fee-service/internal/domain"
	"github.com/couchcryptid/delivery-fee-service/internal/observability"
)

type stubWeather struct {
	observations map[int]domain.Observation
}

func (s *stubWeather) LatestForStation(_ context.Context, wmoCode int) (domain.Observation, error) {
	obs, ok := s.observations[wmoCode]
	if !ok {
		return domain.Observation{}, domain.ErrObservationNotFound
	}
	return obs, nil
}

func (s *stubWeather) LatestInWindow(_ context.Context, wmoCode int, _, _ int64) (domain.Observation, error) {
	return s.LatestForStation(context.Background(), wmoCode)
}

type stubReadiness struct {
	err error
}

func (s *stubReadiness) CheckReadiness(_ context.Context) error { return s.err }

func newTestServer(source domain.WeatherSource, ready httpadapter.ReadinessChecker) *httpadapter.Server {
	if ready == nil {
		ready = &stubReadiness{}
	}
	return httpadapter.NewServer(
		":0",
		domain.NewCalculator(source),
		ready,
		slog.Default(),
		observability.NewMetricsForTesting(),
	)
}

func postFee(t *testing.T, srv *httpadapter.Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/delivery/fee", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

type feeEnvelope struct {
	Fee          *json.Number `json:"fee"`
	ErrorMessage *string      `json:"errorMessage"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) feeEnvelope {
	t.Helper()
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var env feeEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestHandleFee_Success(t *testing.T) {
	source := &stubWeather{observations: map[int]domain.Observation{
		26038: {AirTemperature: 5, WindSpeed: 6, Phenomenon: "Clear"},
	}}
	srv := newTestServer(source, nil)

	rec := postFee(t, srv, `{"city":"tallinn","vehicleType":"car"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Fee)
	assert.Equal(t, json.Number("4.00"), *env.Fee)
	assert.Nil(t, env.ErrorMessage)
	// The fee must serialize as a bare number with two decimals.
	assert.Contains(t, rec.Body.String(), `"fee":4.00`)
}

func TestHandleFee_WeatherSurcharges(t *testing.T) {
	source := &stubWeather{observations: map[int]domain.Observation{
		26242: {AirTemperature: -5, WindSpeed: 9, Phenomenon: "Light snow shower"},
	}}
	srv := newTestServer(source, nil)

	rec := postFee(t, srv, `{"city":"tartu","vehicleType":"scooter"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Fee)
	assert.Equal(t, json.Number("4.50"), *env.Fee)
}

func TestHandleFee_Failures(t *testing.T) {
	source := &stubWeather{observations: map[int]domain.Observation{
		26038: {AirTemperature: 2, WindSpeed: 12, Phenomenon: "Thunderstorm"},
		41803: {AirTemperature: 2, WindSpeed: 25, Phenomenon: "Clear"},
	}}
	srv := newTestServer(source, nil)

	cases := []struct {
		name        string
		body        string
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "unknown city echoes request casing",
			body:        `{"city":"Paris","vehicleType":"car"}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Unknown city: Paris",
		},
		{
			name:        "unknown vehicle type",
			body:        `{"city":"tallinn","vehicleType":"Tank"}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Unknown vehicle type: Tank",
		},
		{
			name:        "bike forbidden in storm wind",
			body:        `{"city":"pärnu","vehicleType":"bike"}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Usage of selected vehicle type is forbidden",
		},
		{
			name:        "bike forbidden in thunderstorm",
			body:        `{"city":"tallinn","vehicleType":"bike"}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Usage of selected vehicle type is forbidden",
		},
		{
			name:        "no weather stored for city",
			body:        `{"city":"tartu","vehicleType":"car"}`,
			wantStatus:  http.StatusNotFound,
			wantMessage: "Database contains no weather data for city: tartu",
		},
		{
			name:        "no weather in requested window",
			body:        `{"city":"tartu","vehicleType":"car","timeStamp":"2024-01-15T10:45:00"}`,
			wantStatus:  http.StatusNotFound,
			wantMessage: "No valid weather data for selected time for city: tartu",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postFee(t, srv, tc.body)

			assert.Equal(t, tc.wantStatus, rec.Code)
			env := decodeEnvelope(t, rec)
			assert.Nil(t, env.Fee)
			require.NotNil(t, env.ErrorMessage)
			assert.Equal(t, tc.wantMessage, *env.ErrorMessage)
		})
	}
}

func TestHandleFee_TimeStampedRequest(t *testing.T) {
	source := &stubWeather{observations: map[int]domain.Observation{
		26038: {AirTemperature: 5, Phenomenon: "Clear"},
	}}
	srv := newTestServer(source, nil)

	rec := postFee(t, srv, `{"city":"tallinn","vehicleType":"car","timeStamp":"2024-01-15T10:45:00"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Fee)
	assert.Equal(t, json.Number("4.00"), *env.Fee)
}

func TestHandleFee_BadRequestBody(t *testing.T) {
	srv := newTestServer(&stubWeather{}, nil)

	rec := postFee(t, srv, `{"city":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.ErrorMessage)
	assert.Equal(t, "invalid request body", *env.ErrorMessage)
}

func TestHandleFee_MalformedTimeStamp(t *testing.T) {
	srv := newTestServer(&stubWeather{}, nil)

	rec := postFee(t, srv, `{"city":"tallinn","vehicleType":"car","timeStamp":"yesterday"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.ErrorMessage)
	assert.Equal(t, "invalid timeStamp, want YYYY-MM-DDTHH:MM:SS", *env.ErrorMessage)
}

func TestHandleFee_UnexpectedError(t *testing.T) {
	srv := newTestServer(failingWeather{}, nil)

	rec := postFee(t, srv, `{"city":"tallinn","vehicleType":"car"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.ErrorMessage)
	assert.Equal(t, "An unexpected error occurred", *env.ErrorMessage)
}

type failingWeather struct{}

func (failingWeather) LatestForStation(_ context.Context, _ int) (domain.Observation, error) {
	return domain.Observation{}, errors.New("database is locked")
}

func (failingWeather) LatestInWindow(_ context.Context, _ int, _, _ int64) (domain.Observation, error) {
	return domain.Observation{}, errors.New("database is locked")
}

func TestHandleFee_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(&stubWeather{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/delivery/fee", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(&stubWeather{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestHandleReady(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		srv := newTestServer(&stubWeather{}, &stubReadiness{})

		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not ready", func(t *testing.T) {
		srv := newTestServer(&stubWeather{}, &stubReadiness{err: errors.New("no observations ingested yet")})

		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "no observations ingested yet")
	})
}
