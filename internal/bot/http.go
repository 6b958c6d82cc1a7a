package bot

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HTTPServer exposes a small operational surface next to the bot: a
// liveness endpoint and a usage snapshot backed by the interaction log.
type HTTPServer struct {
	bot *Bot
}

func NewHTTPServer(bot *Bot) *HTTPServer {
	return &HTTPServer{bot: bot}
}

// RegisterRoutes registers the operational routes on the provided mux
func (hs *HTTPServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", hs.handleHealth)
	mux.HandleFunc("/api/usage", hs.handleUsage)
}

func (hs *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"sessions": hs.bot.sessions.Count(),
	})
}

// handleUsage returns interaction counts for the last 7 days.
func (hs *HTTPServer) handleUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error":"Method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}
	if hs.bot.events == nil {
		http.Error(w, `{"error":"Event log disabled"}`, http.StatusNotFound)
		return
	}

	since := time.Now().AddDate(0, 0, -7)
	counts, err := hs.bot.events.CountByKind(r.Context(), since)
	if err != nil {
		hs.bot.logger.Error("Failed to count interactions", zap.Error(err))
		http.Error(w, `{"error":"Failed to fetch usage"}`, http.StatusInternalServerError)
		return
	}
	active, err := hs.bot.events.ActiveChats(r.Context(), since)
	if err != nil {
		hs.bot.logger.Error("Failed to count active chats", zap.Error(err))
		http.Error(w, `{"error":"Failed to fetch usage"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"since":        since.Format(time.RFC3339),
		"by_kind":      counts,
		"active_chats": active,
	})
}
