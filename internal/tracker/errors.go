package tracker

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnauthorized is returned when the actor may not perform the operation.
	ErrUnauthorized = errors.New("not authorized")
	// ErrOnCooldown is returned when a check is requested inside the actor's cooldown.
	ErrOnCooldown = errors.New("check is on cooldown")
	// ErrChannelNotSet is returned when a guild has no tracker channel.
	ErrChannelNotSet = errors.New("tracker channel is not set for this guild")
)

// CooldownError carries the time left before the actor may check again.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s: %s remaining", ErrOnCooldown, e.Remaining.Round(time.Second))
}

func (e *CooldownError) Unwrap() error {
	return ErrOnCooldown
}
