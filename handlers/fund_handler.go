package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ssclub/club-system/models"
	"github.com/ssclub/club-system/services"
)

type FundHandler struct {
	fundService  services.FundService
	statsService services.StatsService
}

func NewFundHandler(fs services.FundService, ss services.StatsService) *FundHandler {
	return &FundHandler{fundService: fs, statsService: ss}
}

// GetSettingsHandler обрабатывает GET /fund/settings
func (h *FundHandler) GetSettingsHandler(w http.ResponseWriter, r *http.Request) {
	settings, err := h.fundService.GetSettings(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"settings": settings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateSettingsHandler обрабатывает POST /fund/settings
func (h *FundHandler) UpdateSettingsHandler(w http.ResponseWriter, r *http.Request) {
	var input services.FundSettingsInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	settings, err := h.fundService.UpdateSettings(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"settings": settings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SeedHandler обрабатывает POST /fund/seed
func (h *FundHandler) SeedHandler(w http.ResponseWriter, r *http.Request) {
	var req services.SeedInitialDataRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.fundService.SeedInitialData(r.Context(), req); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": "seeded", "players": len(req.Players)}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListBalancesHandler обрабатывает GET /fund/balances?search=&filter=
func (h *FundHandler) ListBalancesHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	funds, err := h.fundService.ListBalances(r.Context(), query.Get("search"), query.Get("filter"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"balances": funds}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CalculateCostsHandler обрабатывает POST /fund/tournament-costs/calculate
func (h *FundHandler) CalculateCostsHandler(w http.ResponseWriter, r *http.Request) {
	var req services.AddTournamentCostRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	calculation, err := h.fundService.Calculate(r.Context(), req)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"calculation": calculation}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SaveCostsHandler обрабатывает POST /fund/tournament-costs/save
func (h *FundHandler) SaveCostsHandler(w http.ResponseWriter, r *http.Request) {
	var req services.AddTournamentCostRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	calculation, err := h.fundService.Save(r.Context(), req)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"calculation": calculation}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListCostDatesHandler обрабатывает GET /fund/tournament-costs/dates
func (h *FundHandler) ListCostDatesHandler(w http.ResponseWriter, r *http.Request) {
	dates, err := h.fundService.ListCostDates(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"dates": dates}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CostDetailsHandler обрабатывает GET /fund/tournament-costs/{date}
func (h *FundHandler) CostDetailsHandler(w http.ResponseWriter, r *http.Request) {
	date, err := models.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		badRequestResponse(w, r, errors.New("invalid date in path, expected YYYY-MM-DD"))
		return
	}

	details, err := h.fundService.CostDetails(r.Context(), date)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"details": details}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AttendanceStatsHandler обрабатывает GET /fund/attendance
func (h *FundHandler) AttendanceStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsService.AttendanceStats(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"attendance": stats}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DaysPlayedHandler обрабатывает GET /fund/days-played-comparison
func (h *FundHandler) DaysPlayedHandler(w http.ResponseWriter, r *http.Request) {
	comparison, err := h.statsService.DaysPlayedComparison(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"comparison": comparison}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RecordPaymentHandler обрабатывает POST /fund/record-payment
func (h *FundHandler) RecordPaymentHandler(w http.ResponseWriter, r *http.Request) {
	var req services.RecordPaymentRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.fundService.RecordPayment(r.Context(), req)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"payment": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// PaymentHistoryHandler обрабатывает GET /fund/payment-history?player_name=&page=&page_size=
func (h *FundHandler) PaymentHistoryHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var playerName *string
	if name := query.Get("player_name"); name != "" {
		playerName = &name
	}

	page, _ := strconv.Atoi(query.Get("page"))
	pageSize, _ := strconv.Atoi(query.Get("page_size"))

	history, err := h.fundService.PaymentHistory(r.Context(), playerName, page, pageSize)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"history": history}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// MiscCostHandler обрабатывает POST /fund/misc-cost
func (h *FundHandler) MiscCostHandler(w http.ResponseWriter, r *http.Request) {
	var req services.AddPlayerMiscCostRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	updated, err := h.fundService.AddMiscCost(r.Context(), req)
	if err != nil {
		// Частично применённый пакет возвращается вместе с ошибкой.
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"updated_balances": updated}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
