package types

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// Cooldown records when an actor last used a rate-limited command.
type Cooldown struct {
	ActorID   snowflake.ID `bun:",pk"`
	StartedAt time.Time    `bun:",notnull"`
}
