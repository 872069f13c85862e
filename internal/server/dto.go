package server

import (
	"time"

	"battleflow/internal/domain"
)

// Wire representations of the domain types. The domain structs stay free
// of JSON tags; this file owns the shape of the API.

type tournamentResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Phase     string    `json:"phase"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toTournamentResponse(t *domain.Tournament) tournamentResponse {
	return tournamentResponse{
		ID:        t.ID,
		Name:      t.Name,
		Status:    string(t.Status),
		Phase:     string(t.Phase),
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

type categoryResponse struct {
	ID              string `json:"id"`
	TournamentID    string `json:"tournament_id"`
	Name            string `json:"name"`
	GroupsIdeal     int    `json:"groups_ideal"`
	PerformersIdeal int    `json:"performers_ideal"`
}

func toCategoryResponse(c *domain.Category) categoryResponse {
	return categoryResponse{
		ID:              c.ID,
		TournamentID:    c.TournamentID,
		Name:            c.Name,
		GroupsIdeal:     c.GroupsIdeal,
		PerformersIdeal: c.PerformersIdeal,
	}
}

type performerResponse struct {
	ID                string    `json:"id"`
	CategoryID        string    `json:"category_id"`
	DancerName        string    `json:"dancer_name"`
	IsGuest           bool      `json:"is_guest"`
	PreselectionScore *float64  `json:"preselection_score,omitempty"`
	Wins              int       `json:"wins"`
	Draws             int       `json:"draws"`
	Losses            int       `json:"losses"`
	PoolPoints        int       `json:"pool_points"`
	RegisteredAt      time.Time `json:"registered_at"`
}

func toPerformerResponse(p *domain.Performer) performerResponse {
	return performerResponse{
		ID:                p.ID,
		CategoryID:        p.CategoryID,
		DancerName:        p.DancerName,
		IsGuest:           p.IsGuest,
		PreselectionScore: p.PreselectionScore,
		Wins:              p.Wins,
		Draws:             p.Draws,
		Losses:            p.Losses,
		PoolPoints:        p.PoolPoints(),
		RegisteredAt:      p.RegisteredAt,
	}
}

func toPerformerResponses(performers []domain.Performer) []performerResponse {
	out := make([]performerResponse, len(performers))
	for i := range performers {
		out[i] = toPerformerResponse(&performers[i])
	}
	return out
}

type poolResponse struct {
	ID         string              `json:"id"`
	CategoryID string              `json:"category_id"`
	Name       string              `json:"name"`
	Position   int                 `json:"position"`
	WinnerID   *string             `json:"winner_id,omitempty"`
	Performers []performerResponse `json:"performers"`
}

func toPoolResponse(p *domain.Pool) poolResponse {
	return poolResponse{
		ID:         p.ID,
		CategoryID: p.CategoryID,
		Name:       p.Name,
		Position:   p.Position,
		WinnerID:   p.WinnerID,
		Performers: toPerformerResponses(p.Performers),
	}
}

type battleResponse struct {
	ID            string              `json:"id"`
	CategoryID    string              `json:"category_id"`
	PoolID        *string             `json:"pool_id,omitempty"`
	Phase         string              `json:"phase"`
	Status        string              `json:"status"`
	OutcomeType   string              `json:"outcome_type"`
	Outcome       *domain.Outcome     `json:"outcome,omitempty"`
	WinnerID      *string             `json:"winner_id,omitempty"`
	SequenceOrder *int                `json:"sequence_order,omitempty"`
	Performers    []performerResponse `json:"performers"`
}

func toBattleResponse(b *domain.Battle) battleResponse {
	return battleResponse{
		ID:            b.ID,
		CategoryID:    b.CategoryID,
		PoolID:        b.PoolID,
		Phase:         string(b.Phase),
		Status:        string(b.Status),
		OutcomeType:   string(b.OutcomeType),
		Outcome:       b.Outcome,
		WinnerID:      b.WinnerID,
		SequenceOrder: b.SequenceOrder,
		Performers:    toPerformerResponses(b.Performers),
	}
}

func toBattleResponses(battles []domain.Battle) []battleResponse {
	out := make([]battleResponse, len(battles))
	for i := range battles {
		out[i] = toBattleResponse(&battles[i])
	}
	return out
}
