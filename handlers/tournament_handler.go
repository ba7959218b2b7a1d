package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/safak-senal-61/websachat-arena/middleware"
	"github.com/safak-senal-61/websachat-arena/models"
	"github.com/safak-senal-61/websachat-arena/repositories"
	"github.com/safak-senal-61/websachat-arena/services"
)

type TournamentHandler struct {
	tournamentService services.TournamentService
}

func NewTournamentHandler(ts services.TournamentService) *TournamentHandler {
	return &TournamentHandler{tournamentService: ts}
}

type createTournamentRequest struct {
	GameID            int       `json:"game_id"`
	Name              string    `json:"name"`
	Description       *string   `json:"description"`
	Rules             *string   `json:"rules"`
	RegistrationStart time.Time `json:"registration_start"`
	RegistrationEnd   time.Time `json:"registration_end"`
	StartDate         time.Time `json:"start_date"`
	MaxParticipants   int       `json:"max_participants"`
	EntryFee          int64     `json:"entry_fee"`
	PrizePool         int64     `json:"prize_pool"`
}

// CreateHandler handles POST /tournaments
// @Summary      Create a tournament
// @Tags         tournaments
// @Accept       json
// @Produce      json
// @Success      201 {object} models.Tournament
// @Router       /tournaments [post]
func (h *TournamentHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to create tournament")
		return
	}

	var req createTournamentRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	input := services.CreateTournamentInput{
		GameID:            req.GameID,
		OrganizerID:       currentUserID,
		Name:              req.Name,
		Description:       req.Description,
		Rules:             req.Rules,
		RegistrationStart: req.RegistrationStart,
		RegistrationEnd:   req.RegistrationEnd,
		StartDate:         req.StartDate,
		MaxParticipants:   req.MaxParticipants,
		EntryFee:          req.EntryFee,
		PrizePool:         req.PrizePool,
	}

	tournament, err := h.tournamentService.Create(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler handles GET /tournaments
// @Summary      List tournaments
// @Tags         tournaments
// @Produce      json
// @Param        game_id query int    false "filter by game"
// @Param        status  query string false "filter by status"
// @Router       /tournaments [get]
func (h *TournamentHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	var filter repositories.TournamentFilter
	query := r.URL.Query()

	if gameIDStr := query.Get("game_id"); gameIDStr != "" {
		id, err := strconv.Atoi(gameIDStr)
		if err != nil || id <= 0 {
			badRequestResponse(w, r, errors.New("invalid game_id query parameter"))
			return
		}
		filter.GameID = &id
	}
	if statusStr := query.Get("status"); statusStr != "" {
		status := models.TournamentStatus(statusStr)
		switch status {
		case models.TournamentUpcoming, models.TournamentRegistrationOpen,
			models.TournamentRegistrationClosed, models.TournamentInProgress,
			models.TournamentCompleted, models.TournamentCancelled:
			filter.Status = &status
		default:
			badRequestResponse(w, r, errors.New("invalid status query parameter"))
			return
		}
	}

	limit, offset, err := getPaginationParams(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	filter.Limit = limit
	filter.Offset = offset

	tournaments, total, err := h.tournamentService.List(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{
		"tournaments": tournaments,
		"total":       total,
		"limit":       filter.Limit,
		"offset":      filter.Offset,
	}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByIDHandler handles GET /tournaments/{tournamentID}
// @Summary      Get a tournament with its participants and bracket
// @Tags         tournaments
// @Produce      json
// @Param        tournamentID path int true "tournament id"
// @Router       /tournaments/{tournamentID} [get]
func (h *TournamentHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.GetDetail(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RegisterHandler handles POST /tournaments/{tournamentID}/registration
// @Summary      Register the authenticated player, debiting the entry fee
// @Tags         tournaments
// @Produce      json
// @Param        tournamentID path int true "tournament id"
// @Router       /tournaments/{tournamentID}/registration [post]
func (h *TournamentHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to register")
		return
	}

	participant, err := h.tournamentService.Register(r.Context(), id, currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"participant": participant}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// WithdrawHandler handles DELETE /tournaments/{tournamentID}/registration
// @Summary      Withdraw the authenticated player, refunding the entry fee
// @Tags         tournaments
// @Param        tournamentID path int true "tournament id"
// @Router       /tournaments/{tournamentID}/registration [delete]
func (h *TournamentHandler) WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to withdraw")
		return
	}

	if err := h.tournamentService.Withdraw(r.Context(), id, currentUserID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GenerateBracketHandler handles POST /tournaments/{tournamentID}/bracket
// @Summary      Seed the single-elimination bracket and start the tournament
// @Tags         tournaments
// @Produce      json
// @Param        tournamentID path int true "tournament id"
// @Router       /tournaments/{tournamentID}/bracket [post]
func (h *TournamentHandler) GenerateBracketHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to generate bracket")
		return
	}

	matches, err := h.tournamentService.GenerateBracket(r.Context(), id, currentUserID, middleware.IsAdmin(r.Context()))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CancelHandler handles POST /tournaments/{tournamentID}/cancel
// @Summary      Cancel a tournament and refund all entry fees
// @Tags         tournaments
// @Param        tournamentID path int true "tournament id"
// @Router       /tournaments/{tournamentID}/cancel [post]
func (h *TournamentHandler) CancelHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to cancel tournament")
		return
	}

	if err := h.tournamentService.Cancel(r.Context(), id, currentUserID, middleware.IsAdmin(r.Context())); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListParticipantsHandler handles GET /tournaments/{tournamentID}/participants
// @Summary      List tournament participants
// @Tags         tournaments
// @Produce      json
// @Param        tournamentID path int true "tournament id"
// @Router       /tournaments/{tournamentID}/participants [get]
func (h *TournamentHandler) ListParticipantsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	participants, err := h.tournamentService.ListParticipants(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"participants": participants}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// StandingsHandler handles GET /tournaments/{tournamentID}/standings
// @Summary      Final standings of a completed tournament
// @Tags         tournaments
// @Produce      json
// @Param        tournamentID path int true "tournament id"
// @Router       /tournaments/{tournamentID}/standings [get]
func (h *TournamentHandler) StandingsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	standings, err := h.tournamentService.Standings(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": standings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
