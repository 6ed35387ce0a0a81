package server

import (
	"database/sql"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/quiznight/livequiz/internal/config"
)

func addRoutes(r chi.Router, cfg *config.Config, logger *slog.Logger, hub *Hub, store Store, db *sql.DB) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("LiveQuiz API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(logger, db))

	// The realtime channel: display, admin console and players all speak
	// the same envelope protocol over this socket.
	r.Get("/ws", handleWS(hub, logger))

	r.Get("/qr", handleQR(cfg.PublicURL))

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", handleState(hub))
		r.Get("/quizzes", handleListQuizzes(store))
		r.Get("/ranking", handleRanking(store))
		r.Get("/players", handleListPlayers(store))

		r.Route("/admin", func(r chi.Router) {
			r.Use(adminKeyMiddleware(cfg.AdminKeyHash))
			r.Post("/reset", handleAdminReset(hub))
			r.Put("/quizzes/{quizID}/answer", handleSetCustomAnswer(store))
		})
	})

	if cfg.SPADir != "" {
		if info, err := os.Stat(cfg.SPADir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", cfg.SPADir)
			r.NotFound(handleSPA(cfg.SPADir))
		}
	}
}
