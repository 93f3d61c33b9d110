// Package engagement implements mission progress, the XP ledger, reward
// claiming and challenge vote tallying.
//
// The store is the only shared mutable state. Every public operation runs as
// one transaction, and the two races that matter are settled by the store
// itself: claims by a conditional status update (only the caller whose UPDATE
// matched a COMPLETE row may grant XP) and votes by the unique
// (entry_id, voter_id) index. Nothing is cached between calls and no
// in-process locks are taken, so any number of processes may share a store.
package engagement

import (
	"context"
	"time"

	"github.com/shivemind/chasingCats-sub003/internal/catalog"
	"github.com/shivemind/chasingCats-sub003/internal/logger"
	"github.com/shivemind/chasingCats-sub003/internal/models"
	"gorm.io/gorm"
)

type Engine struct {
	Progress *ProgressTracker
	Ledger   *Ledger
	Claims   *ClaimProcessor
	Votes    *VoteTally

	catalog *catalog.Catalog
}

func New(db *gorm.DB, cat *catalog.Catalog, log *logger.Logger) *Engine {
	log = log.With("component", "engagement")
	ledger := NewLedger(db, cat, log)
	return &Engine{
		Progress: NewProgressTracker(db, cat, log),
		Ledger:   ledger,
		Claims:   NewClaimProcessor(db, cat, ledger, log),
		Votes:    NewVoteTally(db, log),
		catalog:  cat,
	}
}

func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// MissionView pairs a catalog mission with the user's progress on it.
type MissionView struct {
	Mission  catalog.Mission
	Progress models.MissionProgress
}

// ListMissions returns every catalog mission with the user's progress, in
// catalog order.
func (e *Engine) ListMissions(ctx context.Context, userID uint) ([]MissionView, error) {
	progress, err := e.Progress.GetProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	missions := e.catalog.Missions()
	views := make([]MissionView, 0, len(missions))
	for i, m := range missions {
		views = append(views, MissionView{Mission: m, Progress: progress[i]})
	}
	return views, nil
}

func utcNow() time.Time {
	return time.Now().UTC()
}
