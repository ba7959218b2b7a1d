package handlers

import (
	"net/http"

	"github.com/safak-senal-61/websachat-arena/middleware"
	"github.com/safak-senal-61/websachat-arena/services"
)

type MatchmakingHandler struct {
	matchmakingService services.MatchmakingService
}

func NewMatchmakingHandler(ms services.MatchmakingService) *MatchmakingHandler {
	return &MatchmakingHandler{matchmakingService: ms}
}

// JoinQueueHandler handles POST /games/{gameID}/queue
// @Summary      Join the matchmaking queue for a game
// @Description  Returns the queue entry, plus the created game session when an
// @Description  opponent within the rating band was available immediately.
// @Tags         matchmaking
// @Produce      json
// @Param        gameID path int true "game id"
// @Router       /games/{gameID}/queue [post]
func (h *MatchmakingHandler) JoinQueueHandler(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to join the queue")
		return
	}

	result, err := h.matchmakingService.JoinQueue(r.Context(), currentUserID, gameID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// QueueStatusHandler handles GET /queue/{entryID}
// @Summary      Poll the state of a queue entry
// @Tags         matchmaking
// @Produce      json
// @Param        entryID path int true "queue entry id"
// @Router       /queue/{entryID} [get]
func (h *MatchmakingHandler) QueueStatusHandler(w http.ResponseWriter, r *http.Request) {
	entryID, err := getIDFromURL(r, "entryID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	result, err := h.matchmakingService.CheckQueueStatus(r.Context(), entryID, currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// LeaveQueueHandler handles DELETE /queue/{entryID}
// @Summary      Leave the matchmaking queue
// @Tags         matchmaking
// @Param        entryID path int true "queue entry id"
// @Router       /queue/{entryID} [delete]
func (h *MatchmakingHandler) LeaveQueueHandler(w http.ResponseWriter, r *http.Request) {
	entryID, err := getIDFromURL(r, "entryID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	if err := h.matchmakingService.LeaveQueue(r.Context(), entryID, currentUserID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// LeaderboardHandler handles GET /games/{gameID}/leaderboard
// @Summary      Rating standings for a game, best first
// @Tags         matchmaking
// @Produce      json
// @Param        gameID path int true "game id"
// @Router       /games/{gameID}/leaderboard [get]
func (h *MatchmakingHandler) LeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	limit, offset, err := getPaginationParams(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	page, err := h.matchmakingService.GetLeaderboard(r.Context(), gameID, limit, offset)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, page, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// PlayerSkillHandler handles GET /games/{gameID}/skills/{userID}
// @Summary      A player's skill record for one game
// @Tags         matchmaking
// @Produce      json
// @Param        gameID path int true "game id"
// @Param        userID path int true "user id"
// @Router       /games/{gameID}/skills/{userID} [get]
func (h *MatchmakingHandler) PlayerSkillHandler(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, err := getIDFromURL(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	skill, err := h.matchmakingService.GetPlayerSkill(r.Context(), userID, gameID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"skill": skill}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UserSkillsHandler handles GET /users/{userID}/skills
// @Summary      All skill records of one player across games
// @Tags         matchmaking
// @Produce      json
// @Param        userID path int true "user id"
// @Router       /users/{userID}/skills [get]
func (h *MatchmakingHandler) UserSkillsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := getIDFromURL(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	skills, err := h.matchmakingService.ListPlayerSkills(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"skills": skills}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
