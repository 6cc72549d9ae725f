package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/realty-forecast/internal/cache"
	"github.com/iwvelando/realty-forecast/internal/config"
	"github.com/iwvelando/realty-forecast/pkg/finance"
	"github.com/iwvelando/realty-forecast/pkg/loans"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const baselineJSON = `{
  "property": {"totalPrice": 3000000, "downPaymentRatio": 30, "deedTaxRate": 1, "agencyFeeRate": 1,
               "renovation": 200000, "monthlyRent": 6000},
  "loan": {"commercialRate": 4.1, "providentRate": 3.1, "termYears": 30},
  "market": {"vacancyRate": 5, "rentGrowthRate": 3, "appreciationRate": 4, "holdingCostRatio": 0.3,
             "maintenanceCost": 5000, "alternativeReturnRate": 4, "inflationRate": 2.5},
  "household": {"monthlyIncome": 30000, "existingMonthlyDebt": 2000},
  "holdingYears": 10
}`

type failingCache struct{}

func (failingCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("cache down")
}

func (failingCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("cache down")
}

func (failingCache) Close() error { return nil }

func newTestHandler(t *testing.T, opts Options) http.Handler {
	t.Helper()
	return NewHandler(zap.NewNop(), opts)
}

func post(h http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func withPrepayment(t *testing.T, prepayment string) string {
	t.Helper()
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(baselineJSON), &payload))
	var p map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(prepayment), &p))
	payload["loan"].(map[string]interface{})["prepayment"] = p
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return string(data)
}

func TestHandleAnalyze(t *testing.T) {
	h := newTestHandler(t, Options{Cache: cache.NewMemory(8), CacheTTL: time.Minute})

	rr := post(h, "/api/analyze", baselineJSON)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "miss", rr.Header().Get("X-Cache"))
	assert.NotEmpty(t, rr.Header().Get(RequestIDHeader))

	var resp analyzeResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotNil(t, resp.Report)
	require.NotNil(t, resp.Report.Evaluation)

	metrics := resp.Report.Evaluation.Metrics
	assert.InDelta(t, 10147.17, metrics.MonthlyPayment, 0.01)
	assert.InDelta(t, 88.72, metrics.ComprehensiveReturn, 0.05)
	assert.InDelta(t, 0.4049, metrics.DTI, 0.0001)
	assert.Len(t, resp.Report.Scenarios, 15)
	assert.Contains(t, resp.NegativeScenarios, "crisis")
	assert.Equal(t, "affordability", resp.Report.Affordability.Scope)
	assert.NotEmpty(t, resp.Warnings, "a 30 year loan sold after 10 years is worth a warning")

	again := post(h, "/api/analyze", baselineJSON)
	require.Equal(t, http.StatusOK, again.Code)
	assert.Equal(t, "hit", again.Header().Get("X-Cache"))
	assert.Equal(t, rr.Body.String(), again.Body.String())
}

func TestHandleAnalyzeWithoutCache(t *testing.T) {
	h := newTestHandler(t, Options{})
	first := post(h, "/api/analyze", baselineJSON)
	second := post(h, "/api/analyze", baselineJSON)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "miss", first.Header().Get("X-Cache"))
	assert.Equal(t, "miss", second.Header().Get("X-Cache"))
}

func TestHandleAnalyzeErrors(t *testing.T) {
	h := newTestHandler(t, Options{MaxUploadSize: 4096})

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{name: "Malformed JSON", body: `{"property":`, wantStatus: http.StatusBadRequest, wantError: "failed to decode"},
		{name: "Empty body", body: ``, wantStatus: http.StatusBadRequest, wantError: "invalid parameters"},
		{
			name:       "Missing income",
			body:       strings.Replace(baselineJSON, `"monthlyIncome": 30000`, `"monthlyIncome": 0`, 1),
			wantStatus: http.StatusBadRequest,
			wantError:  "monthly income",
		},
		{
			name:       "Bad custom scenario",
			body:       strings.Replace(baselineJSON, `"holdingYears": 10`, `"holdingYears": 10, "scenarios": {"custom": [{"name": "x", "adjustments": [{"field": "color", "op": "set", "value": 1}]}]}`, 1),
			wantStatus: http.StatusBadRequest,
			wantError:  "unknown field",
		},
		{name: "Unknown preset", body: `{"preset": "paris-loft"}`, wantStatus: http.StatusBadRequest, wantError: "unknown preset"},
		{name: "Too large", body: `{"pad": "` + strings.Repeat("x", 5000) + `"}`, wantStatus: http.StatusRequestEntityTooLarge, wantError: "exceeds limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := post(h, "/api/analyze", tt.body)
			assert.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())

			var resp map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Contains(t, resp["error"], tt.wantError)
		})
	}
}

func TestHandleAnalyzePresetOverride(t *testing.T) {
	h := newTestHandler(t, Options{})

	rr := post(h, "/api/analyze", `{"preset": "guangzhou-balanced", "holdingYears": 5, "scenarios": {"builtin": false}}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp analyzeResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 5, resp.Report.Parameters.HoldingYears)
	assert.Equal(t, 4000000.0, resp.Report.Parameters.Property.TotalPrice)
	assert.Equal(t, loans.Combination, resp.Report.Parameters.Loan.Type)
	assert.Empty(t, resp.Report.Scenarios)
}

func TestHandleSchedule(t *testing.T) {
	h := newTestHandler(t, Options{})

	rr := post(h, "/api/schedule", baselineJSON)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp scheduleResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.InDelta(t, 2100000, resp.LoanAmount, 1e-6)
	assert.InDelta(t, 10147.17, resp.FirstPayment, 0.011)
	assert.Equal(t, 360, resp.PayoffMonth)
	require.Len(t, resp.Schedule, 360)
	assert.Len(t, resp.Yearly, 30)
	assert.Equal(t, 0.0, resp.Schedule[359].RemainingPrincipal)
	assert.InDelta(t, 2100000, resp.Schedule.TotalPrincipal(), 0.001)
}

func TestHandlePrepayment(t *testing.T) {
	h := newTestHandler(t, Options{})

	rr := post(h, "/api/prepayment", baselineJSON)
	assert.Equal(t, http.StatusBadRequest, rr.Code, "a comparison needs a prepayment")

	rr = post(h, "/api/prepayment", withPrepayment(t, `{"month": 36, "amount": 500000}`))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp loans.StrategyComparison
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, loans.ReducePayment, resp.Prepayment.Strategy)
	assert.Greater(t, resp.ReduceTerm.InterestSaved, resp.ReducePayment.InterestSaved)
	assert.Greater(t, resp.ReduceTerm.MonthsSaved, 0)
	assert.NotEmpty(t, resp.Recommendation.Guidance)
}

func TestHandleScenarios(t *testing.T) {
	h := newTestHandler(t, Options{})

	rr := post(h, "/api/scenarios", baselineJSON)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp scenariosResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.InDelta(t, 88.72, resp.Baseline.ComprehensiveReturn, 0.05)
	require.Len(t, resp.Scenarios, 15)
	for _, s := range resp.Scenarios {
		assert.InDelta(t, s.Metrics.ComprehensiveReturn-resp.Baseline.ComprehensiveReturn, s.Delta.ComprehensiveReturn, 1e-9, s.Name)
	}
	assert.Contains(t, resp.NegativeScenarios, "crisis")
}

func TestHandleTaxes(t *testing.T) {
	h := newTestHandler(t, Options{})

	rr := post(h, "/api/taxes", `{"price": 3000000, "area": 120, "buyer": "first-home"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var estimate finance.TaxEstimate
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &estimate))
	assert.InDelta(t, 1.5, estimate.DeedTaxRate, 1e-9)
	assert.InDelta(t, 45000, estimate.Total, 1e-6)

	rr = post(h, "/api/taxes", `{"price": 3000000, "buyer": "first-home", "floor": 3}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = post(h, "/api/taxes", `{"price": 3000000, "buyer": "landlord"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlePresets(t *testing.T) {
	h := newTestHandler(t, Options{})

	rr := get(h, "/api/presets")
	require.Equal(t, http.StatusOK, rr.Code)
	var infos []config.PresetInfo
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &infos))
	assert.Len(t, infos, 4)

	rr = get(h, "/api/presets/shanghai-upgrade")
	require.Equal(t, http.StatusOK, rr.Code)
	var cfg config.Configuration
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &cfg))
	assert.Equal(t, 8000000.0, cfg.Property.TotalPrice)

	rr = get(h, "/api/presets/paris-loft")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleVersionAndHealth(t *testing.T) {
	h := newTestHandler(t, Options{Version: " 1.2.3 "})

	rr := get(h, "/api/version")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"version":"1.2.3"}`, rr.Body.String())

	rr = get(h, "/healthz")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = get(newTestHandler(t, Options{}), "/api/version")
	assert.JSONEq(t, `{"version":"dev"}`, rr.Body.String())
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestHandler(t, Options{})
	assert.Equal(t, http.StatusMethodNotAllowed, get(h, "/api/analyze").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, post(h, "/api/presets", "{}").Code)
}

func TestRequestIDPassthrough(t *testing.T) {
	h := newTestHandler(t, Options{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "abc-123", rr.Header().Get(RequestIDHeader))
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute)
	defer limiter.Stop()
	h := newTestHandler(t, Options{RateLimiter: limiter})

	assert.Equal(t, http.StatusOK, get(h, "/healthz").Code)
	assert.Equal(t, http.StatusOK, get(h, "/healthz").Code)
	rr := get(h, "/healthz")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Contains(t, rr.Body.String(), "rate limit exceeded")

	// Other clients keep their own bucket.
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.RemoteAddr = "203.0.113.9:4000"
	other := httptest.NewRecorder()
	h.ServeHTTP(other, req)
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestHandler(t, Options{Cache: cache.NewMemory(4)})
	require.Equal(t, http.StatusOK, post(h, "/api/schedule", baselineJSON).Code)
	require.Equal(t, http.StatusOK, post(h, "/api/schedule", baselineJSON).Code)

	rr := get(h, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `realty_http_requests_total{method="POST",route="schedule",status="200"} 2`)
	assert.Contains(t, body, `realty_cache_lookups_total{outcome="hit",route="schedule"} 1`)
	assert.Contains(t, body, "realty_http_request_duration_seconds_bucket")
}

func TestMergeMaps(t *testing.T) {
	dst := map[string]interface{}{
		"property":     map[string]interface{}{"totalPrice": 1.0, "monthlyRent": 2.0},
		"holdingYears": 10,
	}
	mergeMaps(dst, map[string]interface{}{
		"property":  map[string]interface{}{"monthlyRent": 3.0},
		"household": map[string]interface{}{"monthlyIncome": 4.0},
	})

	assert.Equal(t, map[string]interface{}{
		"property":     map[string]interface{}{"totalPrice": 1.0, "monthlyRent": 3.0},
		"household":    map[string]interface{}{"monthlyIncome": 4.0},
		"holdingYears": 10,
	}, dst)
}

func TestDecodeYAMLToMap(t *testing.T) {
	m, err := decodeYAMLToMap([]byte("  \n"))
	require.NoError(t, err)
	assert.Empty(t, m)

	m, err = decodeYAMLToMap([]byte("holdingYears: 10\n"))
	require.NoError(t, err)
	assert.Equal(t, 10, m["holdingYears"])

	_, err = decodeYAMLToMap([]byte("key: [unclosed"))
	assert.Error(t, err)
}

func TestRateLimiterRefill(t *testing.T) {
	rl := NewRateLimiter(4, time.Minute)
	defer rl.Stop()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i < 4; i++ {
		require.True(t, rl.Allow("a"), "request %d", i+1)
	}
	assert.False(t, rl.Allow("a"))

	// One token refills every 15 seconds.
	now = now.Add(16 * time.Second)
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))

	// Refill is capped at capacity.
	now = now.Add(time.Hour)
	allowed := 0
	for i := 0; i < 10; i++ {
		if rl.Allow("a") {
			allowed++
		}
	}
	assert.Equal(t, 4, allowed)

	rl.cleanup()
	assert.Len(t, rl.clients, 1)
	now = now.Add(2 * time.Hour)
	rl.cleanup()
	assert.Empty(t, rl.clients)

	rl.Stop()
}

func TestClientAddress(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:5555"
	assert.Equal(t, "198.51.100.7", clientAddress(req))
	req.RemoteAddr = "unix"
	assert.Equal(t, "unix", clientAddress(req))
}

func TestServeCachedSurvivesCacheFailures(t *testing.T) {
	h := newTestHandler(t, Options{Cache: failingCache{}})
	rr := post(h, "/api/schedule", baselineJSON)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "miss", rr.Header().Get("X-Cache"))
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("{")))
}
