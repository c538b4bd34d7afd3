package handlers

import (
	"net/http"
	"strconv"

	"norelock.dev/listenify/gateway/internal/models"
	"norelock.dev/listenify/gateway/internal/utils"
)

const defaultSearchLimit = 20

// SearchHandler handles catalog search requests.
type SearchHandler struct {
	searcher     Searcher
	defaultLimit int
	metrics      Metrics
	logger       *utils.Logger
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(searcher Searcher, defaultLimit int, metrics Metrics, logger *utils.Logger) *SearchHandler {
	if defaultLimit <= 0 {
		defaultLimit = defaultSearchLimit
	}
	return &SearchHandler{
		searcher:     searcher,
		defaultLimit: defaultLimit,
		metrics:      metricsOrNop(metrics),
		logger:       logger.Named("search_handler"),
	}
}

// Search handles requests to search for videos.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	req := models.SearchRequest{
		Query: r.URL.Query().Get("q"),
		Limit: h.defaultLimit,
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
		req.Limit = limit
	}

	if err := utils.Validate(req); err != nil {
		h.logger.Debug("Rejected search request", "errors", utils.FormatValidationErrors(err))
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid limit parameter")
		return
	}

	response, err := h.searcher.Search(r.Context(), req.Query, req.Limit)
	h.metrics.ObserveSearch(err)
	if err != nil {
		h.logger.Error("Failed to search", err, "query", req.Query)
		utils.RespondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, response)
}
