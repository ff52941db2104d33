package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/markocampo/campus-assistant/internal/core/domain"
	"github.com/markocampo/campus-assistant/internal/core/ports"
	"github.com/markocampo/campus-assistant/internal/observability/metrics"
)

type Router struct {
	search  ports.SearchService
	metrics *metrics.HTTPMetrics

	rateLimitRPS    float64
	rateLimitBurst  int
	maxInFlight     int
	inFlightTimeout time.Duration
}

type RouterOptions struct {
	Metrics         *metrics.HTTPMetrics
	RateLimitRPS    float64
	RateLimitBurst  int
	MaxInFlight     int
	InFlightTimeout time.Duration
}

func NewRouter(search ports.SearchService, options RouterOptions) *Router {
	return &Router{
		search:          search,
		metrics:         options.Metrics,
		rateLimitRPS:    options.RateLimitRPS,
		rateLimitBurst:  options.RateLimitBurst,
		maxInFlight:     options.MaxInFlight,
		inFlightTimeout: options.InFlightTimeout,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/search", rt.searchHandler)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.maxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.maxInFlight, rt.inFlightTimeout)
	}
	if rt.rateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	}
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type searchRequest struct {
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	MaxSections int    `json:"max_sections"`
	QueryType   string `json:"query_type"`
}

func (rt *Router) searchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	opts := domain.SearchOptions{
		MaxResults:  req.MaxResults,
		MaxSections: req.MaxSections,
	}
	if req.QueryType != "" {
		category, ok := domain.ParseCategory(req.QueryType)
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown query_type"})
			return
		}
		opts.QueryType = &category
	}

	outcome, err := rt.search.Search(r.Context(), req.Query, opts)
	if err != nil {
		status := mapErrorToHTTPStatus(err)
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
