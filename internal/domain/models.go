package domain

import (
	"time"
)

type TournamentStatus string

const (
	TournamentCreated   TournamentStatus = "created"
	TournamentActive    TournamentStatus = "active"
	TournamentCompleted TournamentStatus = "completed"
	TournamentCancelled TournamentStatus = "cancelled"
)

type Phase string

const (
	PhaseRegistration Phase = "registration"
	PhasePreselection Phase = "preselection"
	PhasePools        Phase = "pools"
	PhaseFinals       Phase = "finals"
	PhaseCompleted    Phase = "completed"
)

// Next returns the phase that follows p, or "" when p is terminal.
func (p Phase) Next() Phase {
	switch p {
	case PhaseRegistration:
		return PhasePreselection
	case PhasePreselection:
		return PhasePools
	case PhasePools:
		return PhaseFinals
	case PhaseFinals:
		return PhaseCompleted
	default:
		return ""
	}
}

type BattlePhase string

const (
	BattlePreselection BattlePhase = "preselection"
	BattlePools        BattlePhase = "pools"
	BattleTiebreak     BattlePhase = "tiebreak"
	BattleFinals       BattlePhase = "finals"
)

type BattleStatus string

const (
	BattlePending   BattleStatus = "pending"
	BattleActive    BattleStatus = "active"
	BattleCompleted BattleStatus = "completed"
)

type Tournament struct {
	ID        string
	Name      string
	Status    TournamentStatus
	Phase     Phase
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Category struct {
	ID              string
	TournamentID    string
	Name            string
	GroupsIdeal     int
	PerformersIdeal int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Performer is a dancer's registration into one category of one tournament.
type Performer struct {
	ID                string
	CategoryID        string
	TournamentID      string
	DancerName        string
	IsGuest           bool
	PreselectionScore *float64
	Wins              int
	Draws             int
	Losses            int
	RegisteredAt      time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// PoolPoints is the pool-phase score: 3 per win, 1 per draw.
func (p Performer) PoolPoints() int {
	return p.Wins*3 + p.Draws
}

type Pool struct {
	ID         string
	CategoryID string
	Name       string
	Position   int
	WinnerID   *string
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Performers []Performer
}

type Battle struct {
	ID            string
	CategoryID    string
	PoolID        *string
	Phase         BattlePhase
	Status        BattleStatus
	OutcomeType   OutcomeType
	Outcome       *Outcome
	WinnerID      *string
	SequenceOrder *int
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Performers are attached in battle order; the order is significant for
	// the tiebreak plurality tie-break rule.
	Performers []Performer
}

// GuestScore is the fixed preselection score assigned to guest performers.
const GuestScore = 10.0

// MaxScore bounds preselection scoring (0..MaxScore, two decimals).
const MaxScore = 10.0
