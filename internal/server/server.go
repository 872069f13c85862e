// Package server exposes the tournament engine over a JSON HTTP API.
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"battleflow/internal/domain"
	"battleflow/internal/service"
)

type EngineServer struct {
	tournamentSvc *service.TournamentService
	phaseSvc      *service.PhaseService
	resultSvc     *service.ResultService
	queueSvc      *service.QueueService
	logger        zerolog.Logger
}

func NewEngineServer(
	tournamentSvc *service.TournamentService,
	phaseSvc *service.PhaseService,
	resultSvc *service.ResultService,
	queueSvc *service.QueueService,
	logger zerolog.Logger,
) *EngineServer {
	return &EngineServer{
		tournamentSvc: tournamentSvc,
		phaseSvc:      phaseSvc,
		resultSvc:     resultSvc,
		queueSvc:      queueSvc,
		logger:        logger.With().Str("component", "server").Logger(),
	}
}

// Routes registers every endpoint on mux.
func (s *EngineServer) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/tournaments", s.createTournament)
	mux.HandleFunc("GET /api/v1/tournaments", s.listTournaments)
	mux.HandleFunc("GET /api/v1/tournaments/{id}", s.getTournament)
	mux.HandleFunc("DELETE /api/v1/tournaments/{id}", s.deleteTournament)
	mux.HandleFunc("POST /api/v1/tournaments/{id}/cancel", s.cancelTournament)

	mux.HandleFunc("POST /api/v1/tournaments/{id}/categories", s.createCategory)
	mux.HandleFunc("GET /api/v1/tournaments/{id}/categories", s.listCategories)
	mux.HandleFunc("POST /api/v1/categories/{id}/performers", s.registerPerformer)
	mux.HandleFunc("GET /api/v1/categories/{id}/performers", s.listPerformers)
	mux.HandleFunc("GET /api/v1/categories/{id}/pools", s.listPools)

	mux.HandleFunc("GET /api/v1/tournaments/{id}/validate", s.validatePhase)
	mux.HandleFunc("POST /api/v1/tournaments/{id}/advance", s.advancePhase)
	mux.HandleFunc("GET /api/v1/tournaments/{id}/queue", s.listQueue)
	mux.HandleFunc("POST /api/v1/tournaments/{id}/queue/reorder", s.reorderQueue)
	mux.HandleFunc("GET /api/v1/tournaments/{id}/progress", s.getProgress)

	mux.HandleFunc("GET /api/v1/battles/{id}", s.getBattle)
	mux.HandleFunc("POST /api/v1/battles/{id}/start", s.startBattle)
	mux.HandleFunc("POST /api/v1/battles/{id}/result", s.encodeResult)
}

func (s *EngineServer) createTournament(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	t, err := s.tournamentSvc.Create(r.Context(), req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toTournamentResponse(t))
}

func (s *EngineServer) listTournaments(w http.ResponseWriter, r *http.Request) {
	tournaments, err := s.tournamentSvc.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]tournamentResponse, len(tournaments))
	for i := range tournaments {
		out[i] = toTournamentResponse(&tournaments[i])
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *EngineServer) getTournament(w http.ResponseWriter, r *http.Request) {
	t, err := s.tournamentSvc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toTournamentResponse(t))
}

func (s *EngineServer) deleteTournament(w http.ResponseWriter, r *http.Request) {
	if err := s.tournamentSvc.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *EngineServer) cancelTournament(w http.ResponseWriter, r *http.Request) {
	t, err := s.tournamentSvc.Cancel(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toTournamentResponse(t))
}

func (s *EngineServer) createCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name            string `json:"name"`
		GroupsIdeal     int    `json:"groups_ideal"`
		PerformersIdeal int    `json:"performers_ideal"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	c, err := s.tournamentSvc.AddCategory(r.Context(), r.PathValue("id"), req.Name, req.GroupsIdeal, req.PerformersIdeal)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toCategoryResponse(c))
}

func (s *EngineServer) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.tournamentSvc.ListCategories(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]categoryResponse, len(categories))
	for i := range categories {
		out[i] = toCategoryResponse(&categories[i])
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *EngineServer) registerPerformer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DancerName string `json:"dancer_name"`
		IsGuest    bool   `json:"is_guest"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	p, err := s.tournamentSvc.RegisterPerformer(r.Context(), r.PathValue("id"), req.DancerName, req.IsGuest)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toPerformerResponse(p))
}

func (s *EngineServer) listPerformers(w http.ResponseWriter, r *http.Request) {
	performers, err := s.tournamentSvc.ListPerformers(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toPerformerResponses(performers))
}

func (s *EngineServer) listPools(w http.ResponseWriter, r *http.Request) {
	pools, err := s.tournamentSvc.ListPools(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]poolResponse, len(pools))
	for i := range pools {
		out[i] = toPoolResponse(&pools[i])
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *EngineServer) validatePhase(w http.ResponseWriter, r *http.Request) {
	result, err := s.phaseSvc.Validate(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *EngineServer) advancePhase(w http.ResponseWriter, r *http.Request) {
	t, err := s.phaseSvc.Advance(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toTournamentResponse(t))
}

func (s *EngineServer) listQueue(w http.ResponseWriter, r *http.Request) {
	battles, err := s.queueSvc.List(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toBattleResponses(battles))
}

func (s *EngineServer) reorderQueue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BattleID string `json:"battle_id"`
		Position int    `json:"position"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	battles, err := s.queueSvc.Reorder(r.Context(), r.PathValue("id"), req.BattleID, req.Position)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toBattleResponses(battles))
}

func (s *EngineServer) getProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := s.queueSvc.Summarize(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, progress)
}

func (s *EngineServer) getBattle(w http.ResponseWriter, r *http.Request) {
	battle, err := s.resultSvc.GetBattle(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toBattleResponse(battle))
}

func (s *EngineServer) startBattle(w http.ResponseWriter, r *http.Request) {
	battle, err := s.resultSvc.Start(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toBattleResponse(battle))
}

func (s *EngineServer) encodeResult(w http.ResponseWriter, r *http.Request) {
	var payload service.ResultPayload
	if !s.decode(w, r, &payload) {
		return
	}
	battle, err := s.resultSvc.Encode(r.Context(), r.PathValue("id"), payload)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toBattleResponse(battle))
}

func (s *EngineServer) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return false
	}
	return true
}

type errorResponse struct {
	Error    string   `json:"error"`
	Details  []string `json:"details,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func (s *EngineServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *domain.ValidationError
	var conflictErr *domain.ConflictError

	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.As(err, &validationErr):
		s.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:    "validation failed",
			Details:  validationErr.Errors,
			Warnings: validationErr.Warnings,
		})
	case errors.As(err, &conflictErr):
		s.writeJSON(w, http.StatusConflict, errorResponse{Error: conflictErr.Message})
	case errors.Is(err, domain.ErrTerminalState):
		s.writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInsufficientPerformers):
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (s *EngineServer) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}
