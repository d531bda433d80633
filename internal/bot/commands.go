package bot

import (
	"github.com/disgoorg/disgo/discord"
	"github.com/kwservices/xptracker/internal/database/types"
)

// Slash command names.
const (
	CommandAddUser           = "add_user"
	CommandRemoveUser        = "remove_user"
	CommandChangeUserGuild   = "change_user_guild"
	CommandChangeUserOwner   = "change_user_owner"
	CommandResetXP           = "reset_xp"
	CommandEarned            = "earned"
	CommandCheck             = "check"
	CommandAdminMode         = "admin_mode"
	CommandSetTrackerChannel = "set_tracker_channel"
	CommandLeaderboard       = "leaderboard"
	CommandSetup             = "setup"
	CommandHelp              = "help"
	CommandRevoke            = "revoke"
	CommandTotalUsers        = "get_total_users"
	CommandTimeRemaining     = "get_time_remaining"
	CommandQueueBoard        = "queue_embed"
)

// Option names.
const (
	optionSteamID = "steam_id"
	optionUser    = "user"
	optionScope   = "scope"
	optionEnabled = "enabled"
	optionChannel = "channel"
	optionNotify  = "notify_user"
	optionHidden  = "hidden"
)

// adminCommands require the Administrator permission.
var adminCommands = map[string]bool{
	CommandAdminMode:         true,
	CommandSetTrackerChannel: true,
	CommandRevoke:            true,
	CommandQueueBoard:        true,
}

// publicCommands respond visibly in the channel.
var publicCommands = map[string]bool{
	CommandCheck:       true,
	CommandLeaderboard: true,
}

func steamIDOption(description string) discord.ApplicationCommandOptionString {
	return discord.ApplicationCommandOptionString{
		Name:        optionSteamID,
		Description: description,
		Required:    true,
		MinLength:   intPtr(2),
		MaxLength:   intPtr(200),
	}
}

func intPtr(v int) *int {
	return &v
}

// Commands returns the global slash command definitions.
func Commands() []discord.ApplicationCommandCreate {
	return []discord.ApplicationCommandCreate{
		discord.SlashCommandCreate{
			Name:        CommandAddUser,
			Description: "Start tracking a Steam profile in this server",
			Options: []discord.ApplicationCommandOption{
				steamIDOption("SteamID64, vanity name or profile URL"),
			},
		},
		discord.SlashCommandCreate{
			Name:        CommandRemoveUser,
			Description: "Stop tracking one of your profiles",
			Options: []discord.ApplicationCommandOption{
				steamIDOption("SteamID64 of the tracked profile"),
			},
		},
		discord.SlashCommandCreate{
			Name:        CommandChangeUserGuild,
			Description: "Move one of your tracked profiles to this server",
			Options: []discord.ApplicationCommandOption{
				steamIDOption("SteamID64 of the tracked profile"),
			},
		},
		discord.SlashCommandCreate{
			Name:        CommandChangeUserOwner,
			Description: "Hand one of your tracked profiles to another user",
			Options: []discord.ApplicationCommandOption{
				steamIDOption("SteamID64 of the tracked profile"),
				discord.ApplicationCommandOptionUser{
					Name:        optionUser,
					Description: "New owner",
					Required:    true,
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        CommandResetXP,
			Description: "Reset the earned XP counters of one of your profiles",
			Options: []discord.ApplicationCommandOption{
				steamIDOption("SteamID64 of the tracked profile"),
				discord.ApplicationCommandOptionString{
					Name:        optionScope,
					Description: "Which counters to reset",
					Choices: []discord.ApplicationCommandOptionChoiceString{
						{Name: "Monthly", Value: types.ResetScopeMonthly.String()},
						{Name: "Global", Value: types.ResetScopeGlobal.String()},
						{Name: "Both", Value: types.ResetScopeBoth.String()},
					},
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        CommandEarned,
			Description: "Show the XP earned by one of your profiles",
			Options: []discord.ApplicationCommandOption{
				steamIDOption("SteamID64 of the tracked profile"),
			},
		},
		discord.SlashCommandCreate{
			Name:        CommandCheck,
			Description: "Check the level, medals and commendations of a Steam profile",
			Options: []discord.ApplicationCommandOption{
				steamIDOption("SteamID64, vanity name or profile URL"),
			},
		},
		discord.SlashCommandCreate{
			Name:        CommandAdminMode,
			Description: "Restrict adding and removing profiles to administrators",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionBool{
					Name:        optionEnabled,
					Description: "Whether admin mode is enabled",
					Required:    true,
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        CommandSetTrackerChannel,
			Description: "Choose the channel receiving XP updates",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionChannel{
					Name:         optionChannel,
					Description:  "Text channel for XP updates",
					Required:     true,
					ChannelTypes: []discord.ChannelType{discord.ChannelTypeGuildText},
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        CommandLeaderboard,
			Description: "Show this month's XP leaderboard",
		},
		discord.SlashCommandCreate{
			Name:        CommandSetup,
			Description: "Show how to set up the XP tracker",
		},
		discord.SlashCommandCreate{
			Name:        CommandHelp,
			Description: "List the available commands",
		},
		discord.SlashCommandCreate{
			Name:        CommandRevoke,
			Description: "Clear a user's check cooldown",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{
					Name:        optionUser,
					Description: "User whose cooldown is cleared",
					Required:    true,
				},
				discord.ApplicationCommandOptionBool{
					Name:        optionNotify,
					Description: "Send the user a direct message (default true)",
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        CommandTotalUsers,
			Description: "Show how many profiles are tracked",
		},
		discord.SlashCommandCreate{
			Name:        CommandTimeRemaining,
			Description: "Show the time left until the weekly XP bonus resets",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionBool{
					Name:        optionHidden,
					Description: "Only show the reply to you (default true)",
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        CommandQueueBoard,
			Description: "Post a check queue status message in this channel",
		},
	}
}

const setupText = "Thanks for adding the XP tracker!\n\n" +
	"1. Run `/set_tracker_channel` to choose where XP updates are posted.\n" +
	"2. Run `/admin_mode` to choose whether only administrators may add and remove profiles.\n" +
	"3. Use `/add_user` to start tracking a Steam profile."

const helpText = "**Tracking**\n" +
	"`/add_user` start tracking a profile\n" +
	"`/remove_user` stop tracking one of your profiles\n" +
	"`/change_user_guild` move a profile to this server\n" +
	"`/change_user_owner` hand a profile to another user\n" +
	"`/reset_xp` reset the earned XP counters\n" +
	"`/earned` show earned XP\n\n" +
	"**Profiles**\n" +
	"`/check` look up a profile\n" +
	"`/leaderboard` this month's top players\n\n" +
	"**Administration**\n" +
	"`/set_tracker_channel` choose the update channel\n" +
	"`/admin_mode` restrict tracking changes to administrators\n" +
	"`/revoke` clear a user's check cooldown\n" +
	"`/queue_embed` post a live check queue status\n" +
	"`/setup` setup instructions\n\n" +
	"**Info**\n" +
	"`/get_total_users` tracked profile counts\n" +
	"`/get_time_remaining` time until the weekly XP bonus resets"
