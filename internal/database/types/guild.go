package types

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// GuildChannel maps a guild to the channel receiving tracking updates.
type GuildChannel struct {
	GuildID   snowflake.ID `bun:",pk"`
	ChannelID snowflake.ID `bun:",notnull"`
	UpdatedAt time.Time    `bun:",nullzero,notnull,default:current_timestamp"`
}

// AdminMode stores whether tracking changes in a guild require administrator permission.
type AdminMode struct {
	GuildID snowflake.ID `bun:",pk"`
	Enabled bool         `bun:",notnull"`
}
