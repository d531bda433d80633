// Package tracking reconciles tracked users against the remote stats API.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kwservices/xptracker/internal/database/types"
	"github.com/kwservices/xptracker/internal/notify"
	"github.com/kwservices/xptracker/internal/progress"
	"github.com/kwservices/xptracker/internal/xp"
	"github.com/kwservices/xptracker/pkg/utils"
	"go.uber.org/zap"
)

// errorBackoff is the pause after a failed sweep.
const errorBackoff = 30 * time.Second

// Outcome is the result of reconciling one user.
type Outcome int

const (
	// OutcomeUnchanged means the remote state matched the stored state.
	OutcomeUnchanged Outcome = iota
	// OutcomeNotified means progress was stored and an update was delivered.
	OutcomeNotified
	// OutcomeDeliveryFailed means progress was stored but the update could not be delivered.
	OutcomeDeliveryFailed
	// OutcomeRemoved means the user was removed because its guild has no tracker channel.
	OutcomeRemoved
	// OutcomeSkipped means the user was left untouched for this tick.
	OutcomeSkipped
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeNotified:
		return "notified"
	case OutcomeDeliveryFailed:
		return "delivery_failed"
	case OutcomeRemoved:
		return "removed"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	Users    int
	Outcomes map[Outcome]int
	Reset    bool
}

// Dependencies holds the collaborators of a Worker.
type Dependencies struct {
	Users         UserStore
	Channels      ChannelStore
	Progress      ProgressStore
	Source        Source
	Dispatcher    notify.Dispatcher
	Resetter      Resetter
	Reporter      Reporter
	Observer      Observer
	Bar           *progress.Bar
	Settings      xp.Settings
	UserDelay     time.Duration
	SweepInterval time.Duration
	Now           func() time.Time
	Logger        *zap.Logger
}

// Worker periodically reconciles every tracked user.
type Worker struct {
	users         UserStore
	channels      ChannelStore
	progress      ProgressStore
	source        Source
	dispatcher    notify.Dispatcher
	resetter      Resetter
	reporter      Reporter
	observer      Observer
	bar           *progress.Bar
	settings      xp.Settings
	userDelay     time.Duration
	sweepInterval time.Duration
	now           func() time.Time
	logger        *zap.Logger
}

// New creates a tracking worker.
func New(deps Dependencies) *Worker {
	w := &Worker{
		users:         deps.Users,
		channels:      deps.Channels,
		progress:      deps.Progress,
		source:        deps.Source,
		dispatcher:    deps.Dispatcher,
		resetter:      deps.Resetter,
		reporter:      deps.Reporter,
		observer:      deps.Observer,
		bar:           deps.Bar,
		settings:      deps.Settings,
		userDelay:     deps.UserDelay,
		sweepInterval: deps.SweepInterval,
		now:           deps.Now,
		logger:        deps.Logger.Named("tracking_worker"),
	}

	if w.reporter == nil {
		w.reporter = noopReporter{}
	}

	if w.observer == nil {
		w.observer = noopObserver{}
	}

	if w.bar == nil {
		w.bar = progress.NewBar("Tracking", 20)
	}

	if w.now == nil {
		w.now = time.Now
	}

	return w
}

// Start runs sweeps until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Tracking Worker started",
		zap.Duration("sweepInterval", w.sweepInterval),
		zap.Duration("userDelay", w.userDelay))

	for {
		w.bar.Reset()
		w.reporter.SetHealthy(true)

		if _, err := w.Sweep(ctx); err != nil {
			w.logger.Error("Sweep failed", zap.Error(err))
			w.reporter.SetHealthy(false)
			w.reporter.UpdateStatus("Error during sweep", 0)

			if !utils.ErrorSleep(ctx, errorBackoff, w.logger, "tracking worker") {
				return
			}

			continue
		}

		w.bar.SetStep("Waiting for next sweep")
		w.reporter.UpdateStatus("Waiting for next sweep", 100)

		if !utils.IntervalSleep(ctx, w.sweepInterval, w.logger, "tracking worker") {
			return
		}
	}
}

// Sweep applies a due monthly reset and then reconciles every tracked user.
// Errors of a single user never stop the sweep.
func (w *Worker) Sweep(ctx context.Context) (SweepResult, error) {
	start := w.now()
	result := SweepResult{Outcomes: make(map[Outcome]int)}

	// The reset must land before this tick accumulates earned XP
	reset, err := w.resetter.ApplyIfDue(ctx, start, false)
	if err != nil {
		return result, fmt.Errorf("failed to apply monthly reset: %w", err)
	}

	result.Reset = reset

	users, err := w.users.List(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list tracked users: %w", err)
	}

	result.Users = len(users)
	w.bar.SetTotal(int64(len(users)))

	for i, user := range users {
		if utils.ContextGuardWithLog(ctx, w.logger, "Sweep cancelled") {
			return result, ctx.Err()
		}

		step := fmt.Sprintf("User %d/%d", i+1, len(users))
		w.bar.SetStep(step)
		w.reporter.UpdateStatus(step, (i*100)/len(users))

		outcome := w.Reconcile(ctx, user)
		result.Outcomes[outcome]++

		w.bar.Increment(1)

		if i < len(users)-1 && utils.ContextSleep(ctx, w.userDelay) == utils.SleepCancelled {
			return result, ctx.Err()
		}
	}

	w.observer.ObserveSweep(len(users), w.now().Sub(start))
	w.logger.Debug("Sweep finished",
		zap.Int("users", len(users)),
		zap.Int("notified", result.Outcomes[OutcomeNotified]),
		zap.Int("removed", result.Outcomes[OutcomeRemoved]),
		zap.Int("skipped", result.Outcomes[OutcomeSkipped]))

	return result, nil
}

// Reconcile runs one tick for a single user.
func (w *Worker) Reconcile(ctx context.Context, user *types.TrackedUser) Outcome {
	outcome, earned := w.reconcile(ctx, user)
	w.observer.ObserveReconcile(outcome.String(), earned)

	return outcome
}

func (w *Worker) reconcile(ctx context.Context, user *types.TrackedUser) (Outcome, int) {
	logger := w.logger.With(zap.Uint64("steamID", user.SteamID))

	channelID, err := w.channels.Get(ctx, user.GuildID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return w.removeOrphan(ctx, user, logger), 0
		}

		logger.Error("Failed to get tracker channel", zap.Error(err))

		return OutcomeSkipped, 0
	}

	levels, err := w.source.Levels(ctx, user.SteamID)
	if err != nil {
		logger.Warn("Failed to fetch levels", zap.Error(err))
		return OutcomeSkipped, 0
	}

	stored := xp.Snapshot{Level: user.CurrentLevel, XP: user.CurrentXP}
	remote := xp.Snapshot{Level: levels.Level, XP: levels.XP}
	transition := xp.Classify(stored, remote, w.settings.MaxLevel)

	if transition.Kind == xp.MaxLevel {
		notify.DirectBestEffort(ctx, w.dispatcher, logger, user.DiscordID, fmt.Sprintf(
			"Congratulations! Steam profile `%d` just reached level %d.", user.SteamID, levels.Level))
	}

	err = w.progress.ApplyProgress(ctx, types.ProgressUpdate{
		SteamID: user.SteamID,
		Level:   levels.Level,
		XP:      levels.XP,
		Earned:  transition.Earned,
	})
	if err != nil {
		logger.Error("Failed to store progress", zap.Error(err))
		return OutcomeSkipped, 0
	}

	if !transition.Changed() {
		return OutcomeUnchanged, 0
	}

	update := notify.Update{
		SteamID:      user.SteamID,
		Nickname:     w.nickname(ctx, user.SteamID),
		OwnerID:      user.DiscordID,
		Kind:         transition.Kind,
		Level:        levels.Level,
		XP:           levels.XP,
		Percentage:   levels.Percentage,
		RemainingXP:  levels.RemainingXP,
		Earned:       transition.Earned,
		MonthlyTotal: user.TotalEarned + transition.Earned,
	}

	if err := w.dispatcher.SendUpdate(ctx, channelID, update); err != nil {
		logger.Warn("Failed to deliver update",
			zap.Uint64("channelID", uint64(channelID)),
			zap.Error(err))

		// Only an unreachable channel is dropped; outages and rate limits keep the mapping
		if errors.Is(err, notify.ErrDeliveryFailure) {
			w.dropChannel(ctx, user, logger)
		}

		return OutcomeDeliveryFailed, transition.Earned
	}

	logger.Debug("Delivered update",
		zap.Stringer("kind", transition.Kind),
		zap.Int("earned", transition.Earned))

	return OutcomeNotified, transition.Earned
}

// nickname resolves the display name, falling back to an empty name.
func (w *Worker) nickname(ctx context.Context, steamID uint64) string {
	profile, err := w.source.Resolve(ctx, strconv.FormatUint(steamID, 10))
	if err != nil {
		w.logger.Debug("Failed to resolve nickname", zap.Uint64("steamID", steamID), zap.Error(err))
		return ""
	}

	return profile.Nickname
}

// removeOrphan removes a user whose guild no longer has a tracker channel.
func (w *Worker) removeOrphan(ctx context.Context, user *types.TrackedUser, logger *zap.Logger) Outcome {
	if err := w.users.Delete(ctx, user.SteamID); err != nil && !errors.Is(err, types.ErrNotFound) {
		logger.Error("Failed to remove user without tracker channel", zap.Error(err))
		return OutcomeSkipped
	}

	logger.Info("Removed user without tracker channel", zap.Uint64("guildID", uint64(user.GuildID)))

	notify.DirectBestEffort(ctx, w.dispatcher, logger, user.DiscordID, fmt.Sprintf(
		"Steam profile `%d` is no longer tracked because its server has no tracker channel. "+
			"Add it again once `/set_tracker_channel` has been used.", user.SteamID))

	return OutcomeRemoved
}

// dropChannel tells the guild owner and removes the unreachable tracker channel.
func (w *Worker) dropChannel(ctx context.Context, user *types.TrackedUser, logger *zap.Logger) {
	ownerID, err := w.dispatcher.GuildOwner(ctx, user.GuildID)
	if err != nil {
		logger.Warn("Failed to get guild owner", zap.Error(err))
	} else {
		notify.DirectBestEffort(ctx, w.dispatcher, logger, ownerID,
			"The XP tracker could not post in your tracker channel, so it has been unset. "+
				"Use `/set_tracker_channel` to choose a channel the bot can write to.")
	}

	if err := w.channels.Delete(ctx, user.GuildID); err != nil && !errors.Is(err, types.ErrNotFound) {
		logger.Error("Failed to remove unreachable tracker channel", zap.Error(err))
	}
}
