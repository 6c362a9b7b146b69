package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/hectoclash/server/go/internal/challenge"
	"github.com/hectoclash/server/go/internal/gateway"
	"github.com/hectoclash/server/go/internal/presence"
	"github.com/hectoclash/server/go/internal/results"
	"github.com/hectoclash/server/go/internal/session"
)

const defaultLeaderboardLimit = 10

// newRouter assembles the HTTP surface: the WebSocket endpoint plus a few
// read-only operational endpoints.
func newRouter(
	gw *gateway.Handler,
	manager *gateway.ConnectionManager,
	registry *presence.Registry,
	negotiator *challenge.Negotiator,
	coordinator *session.Coordinator,
	leaderboard *results.Leaderboard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}).Handler)

	gw.RegisterRoutes(r)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, map[string]any{
			"connections":       manager.Count(),
			"onlinePlayers":     len(registry.ListOnline()),
			"pendingChallenges": negotiator.PendingCount(),
			"activeSessions":    coordinator.ActiveSessions(),
		})
	})

	r.Get("/leaderboard", func(w http.ResponseWriter, req *http.Request) {
		if leaderboard == nil {
			http.Error(w, "leaderboard not configured", http.StatusNotFound)
			return
		}
		limit := defaultLeaderboardLimit
		if raw := req.URL.Query().Get("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
				limit = n
			}
		}
		ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
		defer cancel()
		entries, err := leaderboard.TopN(ctx, limit)
		if err != nil {
			log.Error().Err(err).Msg("leaderboard query failed")
			http.Error(w, "leaderboard unavailable", http.StatusInternalServerError)
			return
		}
		writeJSON(w, entries)
	})

	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
