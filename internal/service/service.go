// Package service holds the orchestration layer: the phase state machine,
// result encoding, the battle queue and tournament lifecycle. Services own
// transactions; the algorithm packages (calc, generator, pooling,
// tiebreak) stay pure.
package service

import (
	"database/sql"
	"sync"

	"battleflow/internal/repository"
)

// Repos bundles every repository so a whole set can be rebound to one
// transaction at once.
type Repos struct {
	Tournaments *repository.TournamentRepository
	Categories  *repository.CategoryRepository
	Performers  *repository.PerformerRepository
	Pools       *repository.PoolRepository
	Battles     *repository.BattleRepository
}

func NewRepos(
	tournaments *repository.TournamentRepository,
	categories *repository.CategoryRepository,
	performers *repository.PerformerRepository,
	pools *repository.PoolRepository,
	battles *repository.BattleRepository,
) *Repos {
	return &Repos{
		Tournaments: tournaments,
		Categories:  categories,
		Performers:  performers,
		Pools:       pools,
		Battles:     battles,
	}
}

func (r *Repos) WithTx(tx *sql.Tx) *Repos {
	return &Repos{
		Tournaments: r.Tournaments.WithTx(tx),
		Categories:  r.Categories.WithTx(tx),
		Performers:  r.Performers.WithTx(tx),
		Pools:       r.Pools.WithTx(tx),
		Battles:     r.Battles.WithTx(tx),
	}
}

// WriteLock serializes every state-changing engine operation. The engine
// is built for a single logical writer: phase advancement, result encoding
// and queue edits take this lock so validation and mutation see a stable
// world.
type WriteLock struct {
	mu sync.Mutex
}

func NewWriteLock() *WriteLock {
	return &WriteLock{}
}

func (l *WriteLock) Lock()   { l.mu.Lock() }
func (l *WriteLock) Unlock() { l.mu.Unlock() }
