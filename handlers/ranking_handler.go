package handlers

import (
	"errors"
	"net/http"

	"github.com/ssclub/club-system/services"
)

type RankingHandler struct {
	rankingService services.RankingService
}

func NewRankingHandler(rs services.RankingService) *RankingHandler {
	return &RankingHandler{rankingService: rs}
}

// ProxyHandler обрабатывает GET /ranking/proxy?url=&force_refresh=
func (h *RankingHandler) ProxyHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	url := query.Get("url")
	if url == "" {
		badRequestResponse(w, r, errors.New("url query parameter is required"))
		return
	}
	forceRefresh := query.Get("force_refresh") == "true"

	result, err := h.rankingService.Fetch(r.Context(), url, forceRefresh)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
