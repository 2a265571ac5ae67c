package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chainlens/internal/account"
	"chainlens/internal/metrics"
	"chainlens/internal/models"
	"chainlens/internal/ticker"
)

// handleIndex provides basic service information
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.sendError(w, "Endpoint not found", http.StatusNotFound)
		return
	}
	metrics.APIRequests.WithLabelValues("index").Inc()

	info := map[string]any{
		"service": "chainlens",
		"status":  "running",
		"endpoints": map[string]string{
			"health":   "/health",
			"metrics":  "/metrics",
			"accounts": "/accounts/{name}",
			"history":  "/accounts/{name}/history?type=&limit=&offset=",
			"curation": "/accounts/{name}/curation",
			"price":    "/price/{pair}",
			"gold":     "/gold",
		},
	}

	s.sendJSON(w, http.StatusOK, info)
}

// handleHealth checks the database connection and reports service health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	metrics.APIRequests.WithLabelValues("health").Inc()

	status := "healthy"
	code := http.StatusOK

	if err := s.repository.Ping(r.Context()); err != nil {
		slog.Error("Health check failed", "error", err)
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	s.sendJSON(w, code, map[string]string{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleMetrics exposes Prometheus metrics
func (s *Server) handleMetrics() http.Handler {
	return promhttp.Handler()
}

// handleAccountSummary returns an account's derived analytics
func (s *Server) handleAccountSummary(w http.ResponseWriter, r *http.Request, name string) {
	metrics.APIRequests.WithLabelValues("account_summary").Inc()
	ctx := r.Context()

	acct := account.New(name, s.client, s.converter, s.replayer)

	reputation, err := acct.Reputation(ctx)
	if err != nil {
		slog.Error("Failed to load account", "account", name, "error", err)
		s.sendError(w, "Failed to load account", http.StatusBadGateway)
		return
	}

	power, err := acct.Power(ctx)
	if err != nil {
		s.sendError(w, "Failed to compute account power", http.StatusBadGateway)
		return
	}

	votingPower, err := acct.VotingPower(ctx)
	if err != nil {
		s.sendError(w, "Failed to load account", http.StatusBadGateway)
		return
	}

	balances, err := acct.Balances(ctx)
	if err != nil {
		s.sendError(w, "Failed to load account balances", http.StatusBadGateway)
		return
	}

	archived, err := s.repository.CountOperations(ctx, name, nil)
	if err != nil {
		slog.Error("Failed to count archived operations", "account", name, "error", err)
		s.sendError(w, "Storage error", http.StatusInternalServerError)
		return
	}

	s.sendJSON(w, http.StatusOK, models.AccountSummary{
		Name:               name,
		Reputation:         reputation,
		Power:              power.String(),
		VotingPower:        votingPower,
		Liquid:             balances.Liquid.String(),
		Stable:             balances.Stable.String(),
		Vesting:            balances.Vesting.String(),
		ArchivedOperations: archived,
	})
}

// handleAccountHistory returns a paginated slice of the account's archive
// Query params: type (operation type tag), limit, offset
func (s *Server) handleAccountHistory(w http.ResponseWriter, r *http.Request, name string) {
	metrics.APIRequests.WithLabelValues("account_history").Inc()
	ctx := r.Context()

	limit := parseIntParam(r, "limit", 50)
	if limit < 1 || limit > 1000 {
		s.sendError(w, "limit must be between 1 and 1000", http.StatusBadRequest)
		return
	}
	offset := parseIntParam(r, "offset", 0)
	if offset < 0 {
		s.sendError(w, "offset must not be negative", http.StatusBadRequest)
		return
	}

	var opType *string
	if t := strings.TrimSpace(r.URL.Query().Get("type")); t != "" {
		opType = &t
	}

	ops, err := s.repository.ListOperations(ctx, name, opType, limit, offset)
	if err != nil {
		slog.Error("Failed to list archived operations", "account", name, "error", err)
		s.sendError(w, "Storage error", http.StatusInternalServerError)
		return
	}

	total, err := s.repository.CountOperations(ctx, name, opType)
	if err != nil {
		s.sendError(w, "Storage error", http.StatusInternalServerError)
		return
	}

	resp := models.HistoryResponse{
		Account:    name,
		Operations: make([]models.OperationResponse, 0, len(ops)),
		Total:      total,
		Page:       offset/limit + 1,
		PageSize:   limit,
	}
	for _, op := range ops {
		resp.Operations = append(resp.Operations, models.OperationResponse{
			Index:     op.Index,
			TrxID:     op.TrxID,
			Timestamp: op.Timestamp,
			Type:      op.Type,
			Body:      op.Body,
		})
	}

	s.sendJSON(w, http.StatusOK, resp)
}

// handleAccountCuration returns trailing curation reward stats
func (s *Server) handleAccountCuration(w http.ResponseWriter, r *http.Request, name string) {
	metrics.APIRequests.WithLabelValues("account_curation").Inc()

	acct := account.New(name, s.client, s.converter, s.replayer)

	stats, err := acct.CurationStats(r.Context())
	if err != nil {
		slog.Error("Failed to compute curation stats", "account", name, "error", err)
		s.sendError(w, "Failed to compute curation stats", http.StatusBadGateway)
		return
	}

	s.sendJSON(w, http.StatusOK, models.CurationResponse{
		Account:  name,
		Last24h:  stats.Last24h.String(),
		Last7d:   stats.Last7d.String(),
		DailyAvg: stats.DailyAvg.String(),
	})
}

// handlePrice returns the volume-weighted composite price for a pair
// The pair is everything after /price/, e.g. /price/btc/usd
func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	metrics.APIRequests.WithLabelValues("price").Inc()

	pair := strings.TrimPrefix(r.URL.Path, "/price/")
	if pair == "" {
		s.sendError(w, "Trading pair required", http.StatusBadRequest)
		return
	}

	quotes, err := s.aggregator.Quotes(r.Context(), pair)
	if err != nil {
		var symErr *ticker.InvalidSymbolError
		if errors.As(err, &symErr) {
			s.sendError(w, err.Error(), http.StatusBadRequest)
			return
		}
		var noQuotes *ticker.NoQuotesError
		if errors.As(err, &noQuotes) {
			s.sendError(w, err.Error(), http.StatusBadGateway)
			return
		}
		slog.Error("Failed to fetch quotes", "pair", pair, "error", err)
		s.sendError(w, "Failed to fetch quotes", http.StatusBadGateway)
		return
	}

	// One fan-out per request: the price is derived from the same quote
	// set the response lists.
	price, err := ticker.VWAP(quotes)
	if err != nil {
		s.sendError(w, (&ticker.NoQuotesError{Pair: pair}).Error(), http.StatusBadGateway)
		return
	}

	resp := models.PriceResponse{
		Pair:      pair,
		Price:     price,
		Quotes:    make([]models.QuoteResponse, 0, len(quotes)),
		FetchedAt: time.Now().UTC(),
	}
	for _, q := range quotes {
		resp.Quotes = append(resp.Quotes, models.QuoteResponse{
			Exchange: q.Exchange,
			Price:    q.Price,
			Volume:   q.Volume,
		})
	}

	s.sendJSON(w, http.StatusOK, resp)
}

// handleGold returns the USD gold spot price per ounce and per milligram
func (s *Server) handleGold(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	metrics.APIRequests.WithLabelValues("gold").Inc()

	ctx := r.Context()

	oz, err := s.gold.PriceOz(ctx)
	if err != nil {
		slog.Error("Failed to fetch gold price", "error", err)
		s.sendError(w, "Failed to fetch gold price", http.StatusBadGateway)
		return
	}

	mg, err := s.gold.PriceMg(ctx)
	if err != nil {
		s.sendError(w, "Failed to fetch gold price", http.StatusBadGateway)
		return
	}

	s.sendJSON(w, http.StatusOK, models.GoldResponse{
		PriceOz:   oz,
		PriceMg:   mg,
		FetchedAt: time.Now().UTC(),
	})
}

// parseIntParam reads an integer query parameter with a default
func parseIntParam(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// sendJSON writes a JSON response with the given status code
func (s *Server) sendJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// sendError writes a JSON error response
func (s *Server) sendError(w http.ResponseWriter, message string, code int) {
	s.sendJSON(w, code, models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: message,
		Code:    code,
	})
}
