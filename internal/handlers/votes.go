package handlers

import (
	"context"
)

type CastVoteInput struct {
	Body struct {
		EntryID uint `json:"entry_id" required:"false" doc:"Challenge entry to vote for"`
	}
}

type CastVoteOutput struct {
	Body struct {
		VoteID  string `json:"vote_id"`
		EntryID uint   `json:"entry_id"`
		Tally   int64  `json:"tally"`
	}
}

// HandleCastVote leaves a missing entry_id to the engine so that it surfaces
// as missing_entry rather than a schema error.
func (h *EngagementHandler) HandleCastVote(ctx context.Context, input *CastVoteInput) (*CastVoteOutput, error) {
	voterID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	result, err := h.engine.Votes.Vote(ctx, input.Body.EntryID, voterID)
	if err != nil {
		return nil, httpError(h.log, "cast vote", err)
	}

	res := &CastVoteOutput{}
	res.Body.VoteID = result.Vote.ID.String()
	res.Body.EntryID = result.Vote.EntryID
	res.Body.Tally = result.Tally
	return res, nil
}

type TallyInput struct {
	EntryID uint `path:"entryID"`
}

type TallyOutput struct {
	Body struct {
		EntryID uint  `json:"entry_id"`
		Tally   int64 `json:"tally"`
	}
}

func (h *EngagementHandler) HandleTally(ctx context.Context, input *TallyInput) (*TallyOutput, error) {
	tally, err := h.engine.Votes.Tally(ctx, input.EntryID)
	if err != nil {
		return nil, httpError(h.log, "tally", err)
	}

	res := &TallyOutput{}
	res.Body.EntryID = input.EntryID
	res.Body.Tally = tally
	return res, nil
}
