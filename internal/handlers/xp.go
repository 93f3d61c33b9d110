package handlers

import (
	"context"
	"time"
)

type GetXPInput struct {
	History int `query:"history" minimum:"0" maximum:"500" default:"0" doc:"Number of most recent ledger entries to include"`
}

type LedgerEntryBody struct {
	ID        string    `json:"id"`
	Amount    int64     `json:"amount"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

type GetXPOutput struct {
	Body struct {
		TotalXP int64             `json:"total_xp"`
		Level   int               `json:"level"`
		History []LedgerEntryBody `json:"history,omitempty"`
	}
}

func (h *EngagementHandler) HandleGetXP(ctx context.Context, input *GetXPInput) (*GetXPOutput, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	standing, err := h.engine.Ledger.Standing(ctx, userID)
	if err != nil {
		return nil, httpError(h.log, "get xp", err)
	}

	res := &GetXPOutput{}
	res.Body.TotalXP = standing.TotalXP
	res.Body.Level = standing.Level

	if input.History > 0 {
		entries, err := h.engine.Ledger.Entries(ctx, userID, input.History)
		if err != nil {
			return nil, httpError(h.log, "xp history", err)
		}
		for _, e := range entries {
			res.Body.History = append(res.Body.History, LedgerEntryBody{
				ID:        e.ID.String(),
				Amount:    e.Amount,
				Reason:    e.Reason,
				CreatedAt: e.CreatedAt,
			})
		}
	}
	return res, nil
}
