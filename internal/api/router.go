package api

import (
	"log/slog"
	"net/http"
	"time"

	"codearena/internal/api/handler"
	"codearena/internal/app/judge"
	"codearena/internal/app/service"
	"codearena/internal/common"
	"codearena/internal/common/security"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(
	registry *judge.Registry,
	authService *service.AuthService,
	problemService *service.ProblemService,
	contestService *service.ContestService,
	submissionService *service.SubmissionService,
	leaderboardService *service.LeaderboardService,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	httpLogger := httplog.NewLogger("codearena", httplog.Options{
		LogLevel: slog.LevelInfo,
		Concise:  true,
	})
	r.Use(httplog.RequestLogger(httpLogger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Use(jwtauth.Verifier(security.TokenAuth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(v1 chi.Router) {
		authHandler := handler.NewAuthHandler(authService)
		v1.Group(func(publicAuth chi.Router) {
			authHandler.RegisterRoutes(publicAuth)
		})

		v1.Get("/languages", func(w http.ResponseWriter, r *http.Request) {
			common.RespondWithJSON(w, http.StatusOK, registry.Codes())
		})

		v1.Get("/users/{username}/stats", func(w http.ResponseWriter, r *http.Request) {
			stats, err := authService.UserStatistics(r.Context(), chi.URLParam(r, "username"))
			if err != nil {
				common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
				return
			}
			common.RespondWithJSON(w, http.StatusOK, stats)
		})

		problemHandler := handler.NewProblemHandler(problemService)
		v1.Route("/problems", problemHandler.RegisterRoutes)

		contestHandler := handler.NewContestHandler(contestService, submissionService, authService)
		v1.Route("/contests", contestHandler.RegisterRoutes)

		submissionHandler := handler.NewSubmissionHandler(submissionService)
		v1.Route("/submissions", submissionHandler.RegisterRoutes)

		leaderboardHandler := handler.NewLeaderboardHandler(leaderboardService)
		v1.Route("/leaderboard", leaderboardHandler.RegisterRoutes)
	})

	return r
}
