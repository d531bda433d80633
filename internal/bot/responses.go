package bot

import (
	"errors"
	"fmt"
	"time"

	"github.com/kwservices/xptracker/internal/database/types"
	"github.com/kwservices/xptracker/internal/queue"
	"github.com/kwservices/xptracker/internal/stats"
	"github.com/kwservices/xptracker/internal/tracker"
)

// ErrorMessage maps a command error to the text shown to the user.
func ErrorMessage(err error) string {
	var cooldownErr *tracker.CooldownError
	if errors.As(err, &cooldownErr) {
		return fmt.Sprintf("You are on cooldown. Try again in %s.", cooldownErr.Remaining.Round(time.Second))
	}

	switch {
	case errors.Is(err, tracker.ErrUnauthorized):
		return "You are not allowed to do that for this profile."
	case errors.Is(err, types.ErrAdminModeUnset):
		return "An administrator must run `/admin_mode` before profiles can be tracked here."
	case errors.Is(err, tracker.ErrChannelNotSet):
		return "An administrator must run `/set_tracker_channel` before profiles can be tracked here."
	case errors.Is(err, types.ErrDuplicateEntry):
		return "That profile is already tracked."
	case errors.Is(err, types.ErrNotFound):
		return "That profile is not tracked."
	case errors.Is(err, stats.ErrResolution):
		return "Could not find that Steam profile."
	case errors.Is(err, stats.ErrRemoteUnavailable):
		return "The stats service is unavailable right now. Please try again later."
	case errors.Is(err, queue.ErrResultTimeout):
		return "The check is taking too long. Please try again later."
	case errors.Is(err, queue.ErrQueueClosed):
		return "The bot is restarting. Please try again in a moment."
	default:
		return "Something went wrong. Please try again later."
	}
}

// ParseScope maps a /reset_xp scope option to a reset scope.
func ParseScope(value string) (types.ResetScope, bool) {
	switch value {
	case "", types.ResetScopeMonthly.String():
		return types.ResetScopeMonthly, true
	case types.ResetScopeGlobal.String():
		return types.ResetScopeGlobal, true
	case types.ResetScopeBoth.String():
		return types.ResetScopeBoth, true
	default:
		return 0, false
	}
}
