package config

// Fallback values for settings left empty in the config files.
const (
	DefaultLogLevel          = "info"
	DefaultMaxLogsToKeep     = 10
	DefaultMaxLogLines       = 10000
	DefaultDebugPort         = 6060
	DefaultRequestTimeout    = 15000
	DefaultUserAgent         = "kWS-Auth"
	DefaultResolveCacheTTL   = 3600
	DefaultRequestsPerSecond = 1.0
	DefaultLevelCapacity     = 5000
	DefaultMaxLevel          = 40
	DefaultAvgXPPerGame      = 250
	DefaultAvgGameMinutes    = 40
	DefaultCooldown          = 300
	DefaultQueueInterval     = 45000
	DefaultQueueItemDelay    = 1000
	DefaultResultTimeout     = 120000
	DefaultImageDir          = "images"
	DefaultImageMaxAge       = 10
	DefaultGuildCleanup      = 300
	DefaultImageCleanup      = 600
	DefaultLeaderboard       = 600
	DefaultPresence          = 60
	DefaultQueueBoard        = 30
	DefaultSweepInterval     = 60
	DefaultUserDelay         = 5000
	DefaultResetTimezone     = "Europe/Madrid"
	DefaultResetSchedule     = "5 0 * * *"
)

// applyDefaults fills zero values with their defaults.
func (c *Config) applyDefaults() {
	setString(&c.Common.Debug.LogLevel, DefaultLogLevel)
	setInt(&c.Common.Debug.MaxLogsToKeep, DefaultMaxLogsToKeep)
	setInt(&c.Common.Debug.MaxLogLines, DefaultMaxLogLines)
	setInt(&c.Common.Debug.DebugPort, DefaultDebugPort)

	setString(&c.Common.Stats.UserAgent, DefaultUserAgent)
	setInt(&c.Common.Stats.ResolveCacheTTL, DefaultResolveCacheTTL)

	if c.Common.Stats.RequestsPerSecond <= 0 {
		c.Common.Stats.RequestsPerSecond = DefaultRequestsPerSecond
	}

	setInt(&c.Common.XP.LevelCapacity, DefaultLevelCapacity)
	setInt(&c.Common.XP.MaxLevel, DefaultMaxLevel)
	setInt(&c.Common.XP.AvgXPPerGame, DefaultAvgXPPerGame)
	setInt(&c.Common.XP.AvgGameMinutes, DefaultAvgGameMinutes)

	setInt(&c.Bot.RequestTimeout, DefaultRequestTimeout)
	setInt(&c.Bot.Cooldown, DefaultCooldown)
	setInt(&c.Bot.Queue.Interval, DefaultQueueInterval)
	setInt(&c.Bot.Queue.ItemDelay, DefaultQueueItemDelay)
	setInt(&c.Bot.Queue.ResultTimeout, DefaultResultTimeout)
	setString(&c.Bot.ImageDir, DefaultImageDir)
	setInt(&c.Bot.ImageMaxAge, DefaultImageMaxAge)
	setInt(&c.Bot.Intervals.GuildCleanup, DefaultGuildCleanup)
	setInt(&c.Bot.Intervals.ImageCleanup, DefaultImageCleanup)
	setInt(&c.Bot.Intervals.Leaderboard, DefaultLeaderboard)
	setInt(&c.Bot.Intervals.Presence, DefaultPresence)
	setInt(&c.Bot.Intervals.QueueBoard, DefaultQueueBoard)

	setInt(&c.Worker.RequestTimeout, DefaultRequestTimeout)
	setInt(&c.Worker.Tracking.SweepInterval, DefaultSweepInterval)
	setInt(&c.Worker.Tracking.UserDelay, DefaultUserDelay)
	setString(&c.Worker.Reset.Timezone, DefaultResetTimezone)
	setString(&c.Worker.Reset.Schedule, DefaultResetSchedule)
}

func setInt(v *int, def int) {
	if *v <= 0 {
		*v = def
	}
}

func setString(v *string, def string) {
	if *v == "" {
		*v = def
	}
}
