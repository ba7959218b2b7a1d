package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/safak-senal-61/websachat-arena/middleware"
	"github.com/safak-senal-61/websachat-arena/models"
	"github.com/safak-senal-61/websachat-arena/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(ms services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: ms}
}

type reportResultRequest struct {
	OwnScore      int     `json:"own_score"`
	OpponentScore int     `json:"opponent_score"`
	Evidence      *string `json:"evidence"`
}

type settleMatchRequest struct {
	WinnerID     int     `json:"winner_id"`
	Player1Score int     `json:"player1_score"`
	Player2Score int     `json:"player2_score"`
	AdminNotes   *string `json:"admin_notes"`
}

// GetByIDHandler handles GET /matches/{matchID}
// @Summary      Get a single match
// @Tags         matches
// @Produce      json
// @Param        matchID path int true "match id"
// @Router       /matches/{matchID} [get]
func (h *MatchHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.GetByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListByTournamentHandler handles GET /tournaments/{tournamentID}/matches
// @Summary      List the matches of a tournament bracket
// @Tags         matches
// @Produce      json
// @Param        tournamentID path  int    true  "tournament id"
// @Param        round        query int    false "filter by round (1 is the final)"
// @Param        status       query string false "filter by status"
// @Router       /tournaments/{tournamentID}/matches [get]
func (h *MatchHandler) ListByTournamentHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var round *int
	var status *models.MatchStatus
	query := r.URL.Query()

	if roundStr := query.Get("round"); roundStr != "" {
		value, err := strconv.Atoi(roundStr)
		if err != nil || value <= 0 {
			badRequestResponse(w, r, errors.New("invalid round query parameter"))
			return
		}
		round = &value
	}
	if statusStr := query.Get("status"); statusStr != "" {
		value, err := parseMatchStatus(statusStr)
		if err != nil {
			badRequestResponse(w, r, err)
			return
		}
		status = value
	}

	matches, err := h.matchService.ListByTournament(r.Context(), tournamentID, round, status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListMineHandler handles GET /me/matches
// @Summary      List the authenticated player's matches across tournaments
// @Tags         matches
// @Produce      json
// @Param        status query string false "filter by status"
// @Router       /me/matches [get]
func (h *MatchHandler) ListMineHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var status *models.MatchStatus
	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		status, err = parseMatchStatus(statusStr)
		if err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}

	limit, offset, err := getPaginationParams(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, total, err := h.matchService.ListByUser(r.Context(), currentUserID, status, limit, offset)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{
		"matches": matches,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListReportsHandler handles GET /matches/{matchID}/reports
// @Summary      List result reports submitted for a match
// @Tags         matches
// @Produce      json
// @Param        matchID path int true "match id"
// @Router       /matches/{matchID}/reports [get]
func (h *MatchHandler) ListReportsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	reports, err := h.matchService.ListReports(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"reports": reports}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ReportResultHandler handles POST /matches/{matchID}/reports
// @Summary      Report a match result from the reporter's point of view
// @Description  Scores are submitted as own/opponent and stored on the match
// @Description  player axis. Two agreeing reports settle the match; two
// @Description  contradicting reports mark it disputed.
// @Tags         matches
// @Accept       json
// @Produce      json
// @Param        matchID path int true "match id"
// @Router       /matches/{matchID}/reports [post]
func (h *MatchHandler) ReportResultHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to report a result")
		return
	}

	var req reportResultRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	outcome, err := h.matchService.ReportResult(r.Context(), services.ReportResultInput{
		MatchID:       id,
		ReporterID:    currentUserID,
		OwnScore:      req.OwnScore,
		OpponentScore: req.OpponentScore,
		Evidence:      req.Evidence,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"outcome": outcome}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ResolveDisputeHandler handles POST /matches/{matchID}/dispute-resolution
// @Summary      Resolve a disputed match with a final admin ruling
// @Tags         matches
// @Accept       json
// @Produce      json
// @Param        matchID path int true "match id"
// @Router       /matches/{matchID}/dispute-resolution [post]
func (h *MatchHandler) ResolveDisputeHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var req settleMatchRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.ResolveDispute(r.Context(), services.ResolveDisputeInput{
		MatchID:      id,
		WinnerID:     req.WinnerID,
		Player1Score: req.Player1Score,
		Player2Score: req.Player2Score,
		AdminNotes:   req.AdminNotes,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// OverrideResultHandler handles PUT /matches/{matchID}/result
// @Summary      Settle any open match with an admin-entered result
// @Tags         matches
// @Accept       json
// @Produce      json
// @Param        matchID path int true "match id"
// @Router       /matches/{matchID}/result [put]
func (h *MatchHandler) OverrideResultHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var req settleMatchRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.OverrideResult(r.Context(), services.OverrideResultInput{
		MatchID:      id,
		WinnerID:     req.WinnerID,
		Player1Score: req.Player1Score,
		Player2Score: req.Player2Score,
		AdminNotes:   req.AdminNotes,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func parseMatchStatus(value string) (*models.MatchStatus, error) {
	status := models.MatchStatus(value)
	switch status {
	case models.MatchScheduled, models.MatchCompleted:
		return &status, nil
	default:
		return nil, errors.New("invalid status query parameter")
	}
}
