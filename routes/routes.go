package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/safak-senal-61/websachat-arena/handlers"
	"github.com/safak-senal-61/websachat-arena/middleware"
	"github.com/safak-senal-61/websachat-arena/models"
)

func SetupRoutes(
	router *chi.Mux,
	auth *middleware.Authenticator,
	tournamentHandler *handlers.TournamentHandler,
	matchHandler *handlers.MatchHandler,
	matchmakingHandler *handlers.MatchmakingHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", tournamentHandler.ListHandler)
		r.Get("/{tournamentID}", tournamentHandler.GetByIDHandler)
		r.Get("/{tournamentID}/participants", tournamentHandler.ListParticipantsHandler)
		r.Get("/{tournamentID}/standings", tournamentHandler.StandingsHandler)
		r.Get("/{tournamentID}/matches", matchHandler.ListByTournamentHandler)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)

			r.Post("/", tournamentHandler.CreateHandler)
			r.Post("/{tournamentID}/registration", tournamentHandler.RegisterHandler)
			r.Delete("/{tournamentID}/registration", tournamentHandler.WithdrawHandler)
			r.Post("/{tournamentID}/bracket", tournamentHandler.GenerateBracketHandler)
			r.Post("/{tournamentID}/cancel", tournamentHandler.CancelHandler)
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{matchID}", matchHandler.GetByIDHandler)
		r.Get("/{matchID}/reports", matchHandler.ListReportsHandler)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)

			r.Post("/{matchID}/reports", matchHandler.ReportResultHandler)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleAdmin))

				r.Post("/{matchID}/dispute-resolution", matchHandler.ResolveDisputeHandler)
				r.Put("/{matchID}/result", matchHandler.OverrideResultHandler)
			})
		})
	})

	router.Route("/games/{gameID}", func(r chi.Router) {
		r.Get("/leaderboard", matchmakingHandler.LeaderboardHandler)
		r.Get("/skills/{userID}", matchmakingHandler.PlayerSkillHandler)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)

			r.Post("/queue", matchmakingHandler.JoinQueueHandler)
		})
	})

	router.Route("/queue", func(r chi.Router) {
		r.Use(auth.Authenticate)

		r.Get("/{entryID}", matchmakingHandler.QueueStatusHandler)
		r.Delete("/{entryID}", matchmakingHandler.LeaveQueueHandler)
	})

	router.Get("/users/{userID}/skills", matchmakingHandler.UserSkillsHandler)

	router.Group(func(r chi.Router) {
		r.Use(auth.Authenticate)

		r.Get("/me/matches", matchHandler.ListMineHandler)
		r.Get("/ws", webSocketHandler.SubscribeHandler)
	})
}
