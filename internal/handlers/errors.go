package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/shivemind/chasingCats-sub003/internal/auth"
	"github.com/shivemind/chasingCats-sub003/internal/engagement"
	"github.com/shivemind/chasingCats-sub003/internal/logger"
)

// AdminChecker resolves the admin capability for a user.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID uint) (bool, error)
}

func requireUser(ctx context.Context) (uint, error) {
	userID, ok := auth.UserID(ctx)
	if !ok {
		return 0, huma.Error401Unauthorized("Unauthorized")
	}
	return userID, nil
}

func requireAdmin(ctx context.Context, admins AdminChecker, log *logger.Logger) (uint, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return 0, err
	}
	ok, err := admins.IsAdmin(ctx, userID)
	if err != nil {
		log.Error("Role check failed", "user_id", userID, "error", err)
		return 0, huma.Error503ServiceUnavailable("Role check unavailable")
	}
	if !ok {
		return 0, huma.Error403Forbidden("Access denied: admin role required")
	}
	return userID, nil
}

// httpError maps an engine failure onto a huma status error. The detail
// message carries the failure code so clients can branch on it.
func httpError(log *logger.Logger, op string, err error) error {
	detail := &huma.ErrorDetail{Message: engagement.Code(err)}

	switch {
	case errors.Is(err, engagement.ErrMissionNotFound):
		return huma.Error404NotFound("Mission not found", detail)
	case errors.Is(err, engagement.ErrEntryNotFound):
		return huma.Error404NotFound("Entry not found", detail)
	case errors.Is(err, engagement.ErrNotFound):
		return huma.Error404NotFound("Not found", detail)
	case errors.Is(err, engagement.ErrAlreadyClaimed):
		return huma.Error409Conflict("Mission reward already claimed", detail)
	case errors.Is(err, engagement.ErrNotYetEligible):
		return huma.Error409Conflict("Mission is not complete yet", detail)
	case errors.Is(err, engagement.ErrAlreadyVoted):
		return huma.Error409Conflict("Already voted for this entry", detail)
	case errors.Is(err, engagement.ErrConflict):
		return huma.Error409Conflict("Conflict", detail)
	case errors.Is(err, engagement.ErrValidation):
		return huma.Error422UnprocessableEntity("Invalid request", detail)
	case errors.Is(err, engagement.ErrTransient):
		log.Warn("Transient store failure", "op", op, "error", err)
		return huma.Error503ServiceUnavailable("Temporarily unavailable, retry", detail)
	default:
		log.Error("Request failed", "op", op, "error", err)
		return huma.Error500InternalServerError("Internal server error")
	}
}
