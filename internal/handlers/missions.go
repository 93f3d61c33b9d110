package handlers

import (
	"context"
	"time"

	"github.com/shivemind/chasingCats-sub003/internal/engagement"
	"github.com/shivemind/chasingCats-sub003/internal/logger"
	"github.com/shivemind/chasingCats-sub003/internal/models"
)

type EngagementHandler struct {
	engine *engagement.Engine
	log    *logger.Logger
}

func NewEngagementHandler(engine *engagement.Engine, log *logger.Logger) *EngagementHandler {
	return &EngagementHandler{engine: engine, log: log.With("component", "handlers")}
}

type MissionBody struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	XPReward    int64                `json:"xp_reward"`
	Event       string               `json:"event"`
	Target      int                  `json:"target"`
	Status      models.MissionStatus `json:"status" enum:"IN_PROGRESS,COMPLETE,CLAIMED"`
	Count       int                  `json:"count"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`
	ClaimedAt   *time.Time           `json:"claimed_at,omitempty"`
}

type ListMissionsOutput struct {
	Body struct {
		Missions []MissionBody `json:"missions"`
	}
}

func (h *EngagementHandler) HandleListMissions(ctx context.Context, input *struct{}) (*ListMissionsOutput, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	views, err := h.engine.ListMissions(ctx, userID)
	if err != nil {
		return nil, httpError(h.log, "list missions", err)
	}

	res := &ListMissionsOutput{}
	res.Body.Missions = make([]MissionBody, 0, len(views))
	for _, v := range views {
		res.Body.Missions = append(res.Body.Missions, MissionBody{
			ID:          v.Mission.ID,
			Title:       v.Mission.Title,
			XPReward:    v.Mission.XPReward,
			Event:       v.Mission.Criteria.Event,
			Target:      v.Mission.Criteria.Target,
			Status:      v.Progress.Status,
			Count:       v.Progress.Count,
			CompletedAt: v.Progress.CompletedAt,
			ClaimedAt:   v.Progress.ClaimedAt,
		})
	}
	return res, nil
}

type ClaimMissionInput struct {
	MissionID string `path:"missionID" maxLength:"64" doc:"Mission to claim"`
}

type ClaimMissionOutput struct {
	Body struct {
		MissionID  string `json:"mission_id"`
		XPGranted  int64  `json:"xp_granted"`
		NewTotalXP int64  `json:"new_total_xp"`
	}
}

func (h *EngagementHandler) HandleClaimMission(ctx context.Context, input *ClaimMissionInput) (*ClaimMissionOutput, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	result, err := h.engine.Claims.Claim(ctx, userID, input.MissionID)
	if err != nil {
		return nil, httpError(h.log, "claim mission", err)
	}

	res := &ClaimMissionOutput{}
	res.Body.MissionID = result.MissionID
	res.Body.XPGranted = result.XPGranted
	res.Body.NewTotalXP = result.NewTotalXP
	return res, nil
}
