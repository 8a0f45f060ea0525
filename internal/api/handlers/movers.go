package handlers

import (
	"context"
	"net/http"

	"github.com/wonny/topmover/backend/internal/contracts"
	"github.com/wonny/topmover/backend/pkg/logger"
	"github.com/wonny/topmover/backend/pkg/redis"
)

// LatestLimit is how many winners the read side returns
const LatestLimit = 7

// MoverItem is one winner on the wire
type MoverItem struct {
	Date          string  `json:"date"`
	Ticker        string  `json:"ticker"`
	PercentChange float64 `json:"percentChange"`
	ClosingPrice  float64 `json:"closingPrice"`
}

// MoversResponse is the body of GET /movers
type MoversResponse struct {
	Items []MoverItem `json:"items"`
}

// MoversHandler serves the latest daily winners
// ⭐ SSOT: 조회 API는 이 핸들러에서만
type MoversHandler struct {
	store     contracts.WinnerStore
	cache     *redis.Cache
	partition string
	logger    *logger.Logger
}

// NewMoversHandler creates a new movers handler. cache may be nil.
func NewMoversHandler(store contracts.WinnerStore, cache *redis.Cache, partition string, log *logger.Logger) *MoversHandler {
	return &MoversHandler{
		store:     store,
		cache:     cache,
		partition: partition,
		logger:    log,
	}
}

// ServeHTTP handles /movers for every method
// GET returns the latest winners, OPTIONS answers CORS preflight, anything else is 405.
func (h *MoversHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	header := w.Header()
	header.Set("Access-Control-Allow-Origin", "*")
	header.Set("Access-Control-Allow-Methods", "GET,OPTIONS")
	header.Set("Access-Control-Allow-Headers", "Content-Type")

	switch r.Method {
	case http.MethodOptions:
		header.Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		h.list(w, r)
	default:
		respondMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// list returns the newest winners first
// GET /movers
func (h *MoversHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := redis.LatestMoversKey(h.partition, LatestLimit)

	if h.cache != nil {
		var cached MoversResponse
		found, err := h.cache.Get(ctx, key, &cached)
		if err != nil {
			h.logger.WithError(err).Warn("Movers cache read failed")
		}
		if found {
			respondJSON(w, http.StatusOK, cached)
			return
		}
	}

	resp, err := h.load(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to fetch movers")
		respondMessage(w, http.StatusInternalServerError, "Failed to fetch movers")
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, key, resp, redis.TTLShort); err != nil {
			h.logger.WithError(err).Warn("Movers cache write failed")
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *MoversHandler) load(ctx context.Context) (MoversResponse, error) {
	records, err := h.store.Latest(ctx, LatestLimit)
	if err != nil {
		return MoversResponse{}, err
	}

	items := make([]MoverItem, 0, len(records))
	for _, rec := range records {
		items = append(items, MoverItem{
			Date:          rec.Date,
			Ticker:        rec.Ticker,
			PercentChange: rec.PercentChange.InexactFloat64(),
			ClosingPrice:  rec.ClosingPrice.InexactFloat64(),
		})
	}
	return MoversResponse{Items: items}, nil
}
