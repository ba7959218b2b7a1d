package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/safak-senal-61/websachat-arena/realtime"
)

type WebSocketHandler struct {
	hub    *realtime.Hub
	logger *slog.Logger
}

func NewWebSocketHandler(hub *realtime.Hub, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, logger: logger}
}

// SubscribeHandler handles GET /ws
// @Summary      Subscribe to live events for one tournament or game
// @Description  Exactly one of tournament_id or game_id must be given. The
// @Description  connection is push-only; inbound frames are discarded.
// @Tags         realtime
// @Param        tournament_id query int false "tournament room"
// @Param        game_id       query int false "game room"
// @Router       /ws [get]
func (h *WebSocketHandler) SubscribeHandler(w http.ResponseWriter, r *http.Request) {
	room, err := roomFromQuery(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	realtime.ServeWS(h.hub, room, h.logger, w, r)
}

func roomFromQuery(r *http.Request) (string, error) {
	query := r.URL.Query()
	tournamentStr := query.Get("tournament_id")
	gameStr := query.Get("game_id")

	switch {
	case tournamentStr != "" && gameStr != "":
		return "", errors.New("tournament_id and game_id are mutually exclusive")
	case tournamentStr != "":
		id, err := strconv.Atoi(tournamentStr)
		if err != nil || id <= 0 {
			return "", errors.New("invalid tournament_id query parameter")
		}
		return realtime.TournamentRoom(id), nil
	case gameStr != "":
		id, err := strconv.Atoi(gameStr)
		if err != nil || id <= 0 {
			return "", errors.New("invalid game_id query parameter")
		}
		return realtime.GameRoom(id), nil
	default:
		return "", errors.New("tournament_id or game_id query parameter is required")
	}
}
