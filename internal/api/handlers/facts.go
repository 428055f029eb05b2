// Package handlers serves the read API over the fact tables and run reports.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/gorilla/mux"

	"github.com/wonny/strawberry/internal/contracts"
	"github.com/wonny/strawberry/internal/rules"
	"github.com/wonny/strawberry/pkg/logger"
	"github.com/wonny/strawberry/pkg/redis"
)

// FactStore is a fact table store that can enumerate its symbols
type FactStore interface {
	contracts.TableStore
	contracts.TableIndex
}

// FactsHandler handles fact table endpoints
// ⭐ SSOT: fact read API handlers are in this struct only
type FactsHandler struct {
	store  FactStore
	cache  *redis.Cache
	logger *logger.Logger
}

// NewFactsHandler creates a new facts handler
func NewFactsHandler(store FactStore, cache *redis.Cache, log *logger.Logger) *FactsHandler {
	return &FactsHandler{
		store:  store,
		cache:  cache,
		logger: log,
	}
}

// TickersResponse lists the symbols with a fact table
type TickersResponse struct {
	Tickers []string `json:"tickers"`
	Count   int      `json:"count"`
}

// GetTickers returns every symbol with a fact table
// GET /api/tickers
func (h *FactsHandler) GetTickers(w http.ResponseWriter, r *http.Request) {
	symbols, err := h.store.Symbols(r.Context(), contracts.TableFacts)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list tickers")
		respondError(w, http.StatusInternalServerError, "Failed to list tickers")
		return
	}
	if symbols == nil {
		symbols = []string{}
	}

	respondJSON(w, http.StatusOK, TickersResponse{Tickers: symbols, Count: len(symbols)})
}

// GetFacts returns the full fact table of a symbol
// GET /api/facts/{symbol}
func (h *FactsHandler) GetFacts(w http.ResponseWriter, r *http.Request) {
	symbol := symbolVar(r)

	facts, err := h.store.Read(r.Context(), contracts.TableFacts, symbol)
	if errors.Is(err, contracts.ErrTableNotFound) {
		respondError(w, http.StatusNotFound, "No facts for "+symbol)
		return
	}
	if err != nil {
		h.logger.WithError(err).WithTicker(symbol).Error("Failed to read facts")
		respondError(w, http.StatusInternalServerError, "Failed to read facts")
		return
	}

	respondJSON(w, http.StatusOK, facts)
}

// LatestResponse is the most recent quarter of a symbol
type LatestResponse struct {
	Symbol string           `json:"symbol"`
	Record contracts.Record `json:"record"`
}

// GetLatest returns the most recent fact row of a symbol
// GET /api/facts/{symbol}/latest
func (h *FactsHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	symbol := symbolVar(r)

	var resp LatestResponse
	err := h.cache.GetOrSet(ctx, redis.FactLatestKey(symbol), &resp, redis.TTLDaily, func() (interface{}, error) {
		rec, err := h.latest(ctx, symbol)
		if err != nil {
			return nil, err
		}
		return LatestResponse{Symbol: symbol, Record: rec}, nil
	})
	if errors.Is(err, contracts.ErrTableNotFound) {
		respondError(w, http.StatusNotFound, "No facts for "+symbol)
		return
	}
	if err != nil {
		h.logger.WithError(err).WithTicker(symbol).Error("Failed to read latest facts")
		respondError(w, http.StatusInternalServerError, "Failed to read latest facts")
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// ScreenerResponse lists the tickers whose latest quarter passes a rule
type ScreenerResponse struct {
	Rule    string           `json:"rule"`
	Count   int              `json:"count"`
	Matches []LatestResponse `json:"matches"`
}

// GetScreener returns the latest row of every ticker where the rule holds
// GET /api/screener?rule=rule_dividend_growth
func (h *FactsHandler) GetScreener(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rule, ok := ruleColumn(r.URL.Query().Get("rule"))
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid rule (valid: "+strings.Join(rules.Names(), ", ")+")")
		return
	}

	var resp ScreenerResponse
	err := h.cache.GetOrSet(ctx, redis.ScreenerKey(rule), &resp, redis.TTLMedium, func() (interface{}, error) {
		return h.screen(ctx, rule)
	})
	if err != nil {
		h.logger.WithError(err).WithField("rule", rule).Error("Failed to screen tickers")
		respondError(w, http.StatusInternalServerError, "Failed to screen tickers")
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *FactsHandler) screen(ctx context.Context, rule string) (ScreenerResponse, error) {
	symbols, err := h.store.Symbols(ctx, contracts.TableFacts)
	if err != nil {
		return ScreenerResponse{}, err
	}
	sort.Strings(symbols)

	resp := ScreenerResponse{Rule: rule, Matches: []LatestResponse{}}
	for _, symbol := range symbols {
		rec, err := h.latest(ctx, symbol)
		if errors.Is(err, contracts.ErrTableNotFound) {
			continue
		}
		if err != nil {
			return ScreenerResponse{}, err
		}
		// unknown flags never match
		if pass, _ := rec[rule].(bool); pass {
			resp.Matches = append(resp.Matches, LatestResponse{Symbol: symbol, Record: rec})
		}
	}
	resp.Count = len(resp.Matches)
	return resp, nil
}

func (h *FactsHandler) latest(ctx context.Context, symbol string) (contracts.Record, error) {
	facts, err := h.store.Read(ctx, contracts.TableFacts, symbol)
	if err != nil {
		return nil, err
	}
	if facts.Len() == 0 {
		return nil, contracts.ErrTableNotFound
	}
	return facts.Records[facts.Len()-1], nil
}

func symbolVar(r *http.Request) string {
	return strings.ToUpper(mux.Vars(r)["symbol"])
}

// ruleColumn accepts a rule column name with or without its rule_ prefix
func ruleColumn(name string) (string, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", false
	}
	if !strings.HasPrefix(name, "rule_") {
		name = "rule_" + name
	}
	for _, n := range rules.Names() {
		if n == name {
			return n, true
		}
	}
	return "", false
}
