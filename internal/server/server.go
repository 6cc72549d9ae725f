package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/iwvelando/realty-forecast/internal/cache"
	"github.com/iwvelando/realty-forecast/internal/config"
	"github.com/iwvelando/realty-forecast/internal/forecast"
	"github.com/iwvelando/realty-forecast/internal/report"
	"github.com/iwvelando/realty-forecast/internal/scenario"
	"github.com/iwvelando/realty-forecast/pkg/constants"
	"github.com/iwvelando/realty-forecast/pkg/finance"
	"github.com/iwvelando/realty-forecast/pkg/loans"
	"github.com/iwvelando/realty-forecast/pkg/scoring"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Options configures NewHandler. Zero values select defaults: the default
// upload size, no cache and no rate limit.
type Options struct {
	MaxUploadSize int64
	Version       string
	Cache         cache.Cache
	CacheTTL      time.Duration
	RateLimiter   *RateLimiter
}

type handler struct {
	logger        *zap.Logger
	maxUploadSize int64
	version       string
	cache         cache.Cache
	cacheTTL      time.Duration
	limiter       *RateLimiter
	metrics       *metrics
}

// NewHandler constructs the HTTP handler that serves the analysis API.
func NewHandler(logger *zap.Logger, opts Options) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	maxUploadSize := opts.MaxUploadSize
	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(opts.Version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	resultCache := opts.Cache
	if resultCache == nil {
		resultCache = cache.Nop{}
	}

	h := &handler{
		logger:        logger,
		maxUploadSize: maxUploadSize,
		version:       trimmedVersion,
		cache:         resultCache,
		cacheTTL:      opts.CacheTTL,
		limiter:       opts.RateLimiter,
		metrics:       newMetrics(),
	}

	mux := http.NewServeMux()

	// Analysis endpoints take a JSON document shaped like the YAML configuration.
	mux.Handle("POST /api/analyze", h.instrument("analyze", h.handleAnalyze))
	mux.Handle("POST /api/schedule", h.instrument("schedule", h.handleSchedule))
	mux.Handle("POST /api/prepayment", h.instrument("prepayment", h.handlePrepayment))
	mux.Handle("POST /api/scenarios", h.instrument("scenarios", h.handleScenarios))
	mux.Handle("POST /api/taxes", h.instrument("taxes", h.handleTaxes))

	mux.Handle("GET /api/presets", h.instrument("presets", h.handlePresets))
	mux.Handle("GET /api/presets/{id}", h.instrument("preset", h.handlePreset))
	mux.Handle("GET /api/version", h.instrument("version", h.handleVersion))
	mux.Handle("GET /healthz", h.instrument("healthz", h.handleHealth))
	mux.Handle("GET /metrics", h.metrics.handler())

	return mux
}

type analyzeResponse struct {
	Report            *report.Report `json:"report"`
	Warnings          []string       `json:"warnings,omitempty"`
	NegativeScenarios []string       `json:"negativeScenarios,omitempty"`
}

type scheduleResponse struct {
	LoanAmount          float64             `json:"loanAmount"`
	CommercialPrincipal float64             `json:"commercialPrincipal"`
	ProvidentPrincipal  float64             `json:"providentPrincipal"`
	FirstPayment        float64             `json:"firstPayment"`
	TotalInterest       float64             `json:"totalInterest"`
	TotalPayment        float64             `json:"totalPayment"`
	PayoffMonth         int                 `json:"payoffMonth"`
	Schedule            loans.Schedule      `json:"schedule"`
	Yearly              []loans.YearSummary `json:"yearly"`
}

type scenariosResponse struct {
	Baseline          scoring.Metrics   `json:"baseline"`
	Scenarios         []scenario.Result `json:"scenarios"`
	NegativeScenarios []string          `json:"negativeScenarios,omitempty"`
}

func (h *handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleAnalyze"
	cfg, canonical, ok := h.decodeConfiguration(w, r, op)
	if !ok {
		return
	}

	h.serveCached(w, r, "analyze", canonical, op, func() (interface{}, error) {
		params, err := cfg.Parameters()
		if err != nil {
			return nil, err
		}
		perturbations, err := cfg.Perturbations(params)
		if err != nil {
			return nil, err
		}
		result, err := report.Analyze(r.Context(), h.logger, params, perturbations)
		if err != nil {
			return nil, err
		}
		return analyzeResponse{
			Report:            result,
			Warnings:          cfg.ValidateConfiguration(),
			NegativeScenarios: result.NegativeScenarios(),
		}, nil
	})
}

func (h *handler) handleSchedule(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSchedule"
	cfg, canonical, ok := h.decodeConfiguration(w, r, op)
	if !ok {
		return
	}

	h.serveCached(w, r, "schedule", canonical, op, func() (interface{}, error) {
		params, err := cfg.Parameters()
		if err != nil {
			return nil, err
		}
		loan, err := loans.NewScheduleGenerator(h.logger).ComposeLoan(params.Plan())
		if err != nil {
			return nil, err
		}
		rounded := loan.Schedule.Rounded()
		return scheduleResponse{
			LoanAmount:          loan.LoanAmount,
			CommercialPrincipal: loan.CommercialPrincipal,
			ProvidentPrincipal:  loan.ProvidentPrincipal,
			FirstPayment:        rounded.FirstPayment(),
			TotalInterest:       rounded.TotalInterest(),
			TotalPayment:        rounded.TotalPayment(),
			PayoffMonth:         rounded.PayoffMonth(),
			Schedule:            rounded,
			Yearly:              rounded.Yearly(),
		}, nil
	})
}

func (h *handler) handlePrepayment(w http.ResponseWriter, r *http.Request) {
	const op = "server.handlePrepayment"
	cfg, canonical, ok := h.decodeConfiguration(w, r, op)
	if !ok {
		return
	}

	h.serveCached(w, r, "prepayment", canonical, op, func() (interface{}, error) {
		params, err := cfg.Parameters()
		if err != nil {
			return nil, err
		}
		return loans.NewScheduleGenerator(h.logger).CompareStrategies(params.Plan(), params.Policy.PrepaymentMargin)
	})
}

func (h *handler) handleScenarios(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleScenarios"
	cfg, canonical, ok := h.decodeConfiguration(w, r, op)
	if !ok {
		return
	}

	h.serveCached(w, r, "scenarios", canonical, op, func() (interface{}, error) {
		params, err := cfg.Parameters()
		if err != nil {
			return nil, err
		}
		perturbations, err := cfg.Perturbations(params)
		if err != nil {
			return nil, err
		}
		baseline, results, err := scenario.NewEngine(h.logger).RunAll(r.Context(), params, perturbations)
		if err != nil {
			return nil, err
		}
		var negative []string
		for _, res := range results {
			if res.Negative {
				negative = append(negative, res.Name)
			}
		}
		return scenariosResponse{Baseline: baseline.Metrics, Scenarios: results, NegativeScenarios: negative}, nil
	})
}

func (h *handler) handleTaxes(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleTaxes"
	body, ok := h.readBody(w, r, op)
	if !ok {
		return
	}

	var profile finance.TaxProfile
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&profile); err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, fmt.Sprintf("failed to decode tax profile: %v", err), op)
		return
	}

	estimate, err := finance.EstimateTaxes(profile)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}
	h.writeJSON(w, http.StatusOK, estimate)
}

func (h *handler) handlePresets(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, config.Presets())
}

func (h *handler) handlePreset(w http.ResponseWriter, r *http.Request) {
	cfg, err := config.Preset(r.PathValue("id"))
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusNotFound, err.Error(), "server.handlePreset")
		return
	}
	h.writeJSON(w, http.StatusOK, cfg)
}

func (h *handler) handleVersion(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) readBody(w http.ResponseWriter, r *http.Request, op string) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxUploadSize))
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, r, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request exceeds limit of %d bytes", h.maxUploadSize), op)
			return nil, false
		}
		h.respondErrorWithOp(w, r, http.StatusBadRequest, fmt.Sprintf("failed to read request: %v", err), op)
		return nil, false
	}
	return body, true
}

// decodeConfiguration converts the JSON body to YAML and loads it with the
// same loader the CLI uses. A "preset" key starts from that preset and the
// remaining keys override it. The YAML is returned as the canonical form of
// the request.
func (h *handler) decodeConfiguration(w http.ResponseWriter, r *http.Request, op string) (*config.Configuration, []byte, bool) {
	body, ok := h.readBody(w, r, op)
	if !ok {
		return nil, nil, false
	}

	var payload map[string]interface{}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			h.respondErrorWithOp(w, r, http.StatusBadRequest, fmt.Sprintf("failed to decode configuration: %v", err), op)
			return nil, nil, false
		}
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}

	if rawPreset, ok := payload["preset"]; ok {
		delete(payload, "preset")
		id, _ := rawPreset.(string)
		base, err := presetMap(id)
		if err != nil {
			h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
			return nil, nil, false
		}
		mergeMaps(base, payload)
		payload = base
	}

	configBytes, err := yaml.Marshal(payload)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, fmt.Sprintf("failed to encode configuration: %v", err), op)
		return nil, nil, false
	}

	cfg, err := config.LoadConfigurationFromReader(bytes.NewReader(configBytes))
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return nil, nil, false
	}
	return cfg, configBytes, true
}

func presetMap(id string) (map[string]interface{}, error) {
	cfg, err := config.Preset(id)
	if err != nil {
		return nil, err
	}
	data, err := cfg.Marshal()
	if err != nil {
		return nil, err
	}
	return decodeYAMLToMap(data)
}

// mergeMaps copies src into dst, descending into maps present in both.
func mergeMaps(dst, src map[string]interface{}) {
	for key, value := range src {
		if srcMap, ok := value.(map[string]interface{}); ok {
			if dstMap, ok := dst[key].(map[string]interface{}); ok {
				mergeMaps(dstMap, srcMap)
				continue
			}
		}
		dst[key] = value
	}
}

func decodeYAMLToMap(data []byte) (map[string]interface{}, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return make(map[string]interface{}), nil
	}

	var result map[string]interface{}
	if err := yaml.Unmarshal(trimmed, &result); err != nil {
		return nil, err
	}
	if result == nil {
		result = make(map[string]interface{})
	}
	return result, nil
}

// serveCached answers from the result cache when possible and otherwise
// computes, encodes and stores the response. Cache failures are logged and
// never fail the request.
func (h *handler) serveCached(w http.ResponseWriter, r *http.Request, route string, canonical []byte, op string, compute func() (interface{}, error)) {
	key := cache.Key(route, canonical)
	ctx := r.Context()

	body, hit, err := h.cache.Get(ctx, key)
	switch {
	case err != nil:
		h.metrics.cache.WithLabelValues(route, "error").Inc()
		h.logger.Warn("cache lookup failed",
			zap.String("op", op),
			zap.String("request_id", RequestID(ctx)),
			zap.Error(err),
		)
	case hit:
		h.metrics.cache.WithLabelValues(route, "hit").Inc()
		h.writeRaw(w, http.StatusOK, body, "hit")
		return
	default:
		h.metrics.cache.WithLabelValues(route, "miss").Inc()
	}

	start := time.Now()
	payload, err := compute()
	if err != nil {
		h.respondErrorWithOp(w, r, statusFor(err), err.Error(), op)
		return
	}

	body, err = json.Marshal(payload)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusInternalServerError, fmt.Sprintf("failed to encode response: %v", err), op)
		return
	}

	if err := h.cache.Set(ctx, key, body, h.cacheTTL); err != nil {
		h.logger.Warn("cache store failed",
			zap.String("op", op),
			zap.String("request_id", RequestID(ctx)),
			zap.Error(err),
		)
	}

	h.logger.Debug("response computed",
		zap.String("op", op),
		zap.String("request_id", RequestID(ctx)),
		zap.Duration("duration", time.Since(start)),
		zap.Int("bytes", len(body)),
	)
	h.writeRaw(w, http.StatusOK, body, "miss")
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, forecast.ErrInvalidParameters),
		errors.Is(err, finance.ErrInvalidAssumptions),
		errors.Is(err, loans.ErrNoPrepayment),
		errors.Is(err, scenario.ErrInvalidPerturbation),
		errors.Is(err, loans.ErrInvalidTerms),
		errors.Is(err, config.ErrUnknownPreset):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, r *http.Request, status int, msg string, op string) {
	h.logger.Error("request failed",
		zap.String("op", op),
		zap.String("request_id", RequestID(r.Context())),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.String("op", "server.writeJSON"), zap.Error(err))
	}
}

func (h *handler) writeRaw(w http.ResponseWriter, status int, body []byte, cacheStatus string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", cacheStatus)
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		h.logger.Error("failed to write response", zap.String("op", "server.writeRaw"), zap.Error(err))
	}
}
