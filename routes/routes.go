package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ssclub/club-system/handlers"
	"github.com/ssclub/club-system/middleware"
)

type Handlers struct {
	Tournament *handlers.TournamentHandler
	Player     *handlers.PlayerHandler
	Fund       *handlers.FundHandler
	News       *handlers.NewsHandler
	Ranking    *handlers.RankingHandler
	WebSocket  *handlers.WebSocketHandler
}

// InitRoutes собирает роутер. Чтение открыто всем, изменяющие операции
// требуют админский пароль в query-параметре.
func InitRoutes(h Handlers, adminPassword string) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	requireAdmin := middleware.RequireAdminPassword(adminPassword)

	router.Route("/history", func(r chi.Router) {
		r.Get("/", h.Tournament.ListHandler)
		r.Get("/players-by-date", h.Tournament.PlayersByDateHandler)

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)
			r.Post("/", h.Tournament.CreateHandler)
			r.Put("/{tournamentID}", h.Tournament.UpdateHandler)
			r.Delete("/{tournamentID}", h.Tournament.DeleteHandler)
		})
	})

	router.Route("/players", func(r chi.Router) {
		r.Get("/", h.Player.ListHandler)

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)
			r.Post("/", h.Player.CreateHandler)
		})
	})

	router.Route("/fund", func(r chi.Router) {
		r.Get("/settings", h.Fund.GetSettingsHandler)
		r.Get("/balances", h.Fund.ListBalancesHandler)
		r.Get("/tournament-costs/dates", h.Fund.ListCostDatesHandler)
		r.Get("/tournament-costs/{date}", h.Fund.CostDetailsHandler)
		r.Get("/attendance", h.Fund.AttendanceStatsHandler)
		r.Get("/payment-history", h.Fund.PaymentHistoryHandler)
		r.Get("/days-played-comparison", h.Fund.DaysPlayedHandler)

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)
			r.Post("/settings", h.Fund.UpdateSettingsHandler)
			r.Post("/seed", h.Fund.SeedHandler)
			r.Post("/tournament-costs/calculate", h.Fund.CalculateCostsHandler)
			r.Post("/tournament-costs/save", h.Fund.SaveCostsHandler)
			r.Post("/record-payment", h.Fund.RecordPaymentHandler)
			r.Post("/misc-cost", h.Fund.MiscCostHandler)
		})
	})

	router.Route("/news", func(r chi.Router) {
		r.Get("/", h.News.ListHandler)

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)
			r.Post("/", h.News.CreateHandler)
			r.Put("/{achievementID}", h.News.UpdateHandler)
			r.Delete("/{achievementID}", h.News.DeleteHandler)
			r.Post("/upload", h.News.UploadHandler)
		})
	})

	router.Get("/ranking/proxy", h.Ranking.ProxyHandler)
	router.Get("/ws", h.WebSocket.ServeWs)

	return router
}
