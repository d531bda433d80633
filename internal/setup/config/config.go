package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
)

// RepositoryVersion is the repository version tag for config file references.
const RepositoryVersion = "v1.2.0"

// Current version of the config file.
const (
	CurrentCommonVersion = 1
	CurrentBotVersion    = 1
	CurrentWorkerVersion = 1
)

// Config represents the entire application configuration.
type Config struct {
	Common CommonConfig
	Bot    BotConfig
	Worker WorkerConfig
}

// CommonConfig contains configuration shared between bot and worker.
type CommonConfig struct {
	// Version of the common config.
	Version        int            `koanf:"version"`
	Debug          Debug          `koanf:"debug"`
	CircuitBreaker CircuitBreaker `koanf:"circuit_breaker"`
	Retry          Retry          `koanf:"retry"`
	PostgreSQL     PostgreSQL     `koanf:"postgresql"`
	Redis          Redis          `koanf:"redis"`
	Stats          Stats          `koanf:"stats"`
	XP             XP             `koanf:"xp"`
	Uptrace        Uptrace        `koanf:"uptrace"`
	Discord        Discord        `koanf:"discord"`
}

// BotConfig contains Discord bot specific configuration.
type BotConfig struct {
	// Version of the bot config.
	Version int `koanf:"version"`
	// Request timeout in milliseconds.
	RequestTimeout int `koanf:"request_timeout"`
	// Per-actor cooldown for profile checks in seconds.
	Cooldown int `koanf:"cooldown"`
	// Check queue configuration.
	Queue Queue `koanf:"queue"`
	// Directory where generated check images are written.
	ImageDir string `koanf:"image_dir"`
	// Maximum age of generated images in minutes before cleanup.
	ImageMaxAge int `koanf:"image_max_age"`
	// Background loop intervals.
	Intervals BotIntervals `koanf:"intervals"`
}

// Queue contains check queue configuration.
type Queue struct {
	// Interval between periodic drain triggers in milliseconds.
	Interval int `koanf:"interval"`
	// Delay between queue items in milliseconds.
	ItemDelay int `koanf:"item_delay"`
	// Maximum time to wait for a check result in milliseconds.
	ResultTimeout int `koanf:"result_timeout"`
	// Collapse duplicate pending checks for the same raw id.
	Dedup bool `koanf:"dedup"`
}

// BotIntervals contains the periodic loop intervals of the bot in seconds.
type BotIntervals struct {
	// Guild mapping drift cleanup.
	GuildCleanup int `koanf:"guild_cleanup"`
	// Generated image cleanup.
	ImageCleanup int `koanf:"image_cleanup"`
	// Leaderboard refresh.
	Leaderboard int `koanf:"leaderboard"`
	// Presence rotation.
	Presence int `koanf:"presence"`
	// Queue status message refresh.
	QueueBoard int `koanf:"queue_board"`
}

// WorkerConfig contains worker specific configuration.
type WorkerConfig struct {
	// Version of the worker config.
	Version int `koanf:"version"`
	// Request timeout in milliseconds.
	RequestTimeout int `koanf:"request_timeout"`
	// Startup delay in milliseconds.
	StartupDelay int `koanf:"startup_delay"`
	// Tracking sweep configuration.
	Tracking Tracking `koanf:"tracking"`
	// Monthly reset configuration.
	Reset Reset `koanf:"reset"`
}

// Tracking contains tracking sweep configuration.
type Tracking struct {
	// Pause between sweeps in seconds.
	SweepInterval int `koanf:"sweep_interval"`
	// Delay between users within a sweep in milliseconds.
	UserDelay int `koanf:"user_delay"`
}

// Reset contains monthly reset scheduling configuration.
type Reset struct {
	// IANA timezone used to evaluate calendar dates.
	Timezone string `koanf:"timezone"`
	// Cron schedule for the reset check.
	Schedule string `koanf:"schedule"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
	// Maximum log files to keep.
	MaxLogsToKeep int `koanf:"max_logs_to_keep"`
	// Maximum lines per log file.
	MaxLogLines int `koanf:"max_log_lines"`
	// Enable the debug HTTP server (pprof and metrics).
	EnableDebugServer bool `koanf:"enable_debug_server"`
	// Debug server port.
	DebugPort int `koanf:"debug_port"`
}

// CircuitBreaker contains circuit breaker configuration.
type CircuitBreaker struct {
	// Maximum number of requests allowed to pass through when the circuit is half-open.
	MaxRequests uint32 `koanf:"max_requests"`
	// The cyclic period of the closed state for the circuit breaker to clear the internal counts.
	Interval int `koanf:"interval"`
	// The period of the open state after which the state of the circuit breaker becomes half-open.
	Timeout int `koanf:"timeout"`
}

// Retry contains retry configuration.
type Retry struct {
	// Maximum retry attempts.
	MaxRetries uint64 `koanf:"max_retries"`
	// Initial retry delay in milliseconds.
	Delay int `koanf:"delay"`
	// Maximum retry delay in milliseconds.
	MaxDelay int `koanf:"max_delay"`
}

// PostgreSQL contains database connection configuration.
type PostgreSQL struct {
	// Database hostname.
	Host string `koanf:"host"`
	// Database port.
	Port int `koanf:"port"`
	// Database username.
	User string `koanf:"user"`
	// Database password.
	Password string `koanf:"password"`
	// Database name.
	DBName string `koanf:"db_name"`
	// Maximum open connections.
	MaxOpenConns int `koanf:"max_open_conns"`
	// Maximum idle connections.
	MaxIdleConns int `koanf:"max_idle_conns"`
	// Connection lifetime in minutes.
	MaxLifetime int `koanf:"max_lifetime"`
	// Idle timeout in minutes.
	MaxIdleTime int `koanf:"max_idle_time"`
}

// Redis contains Redis connection configuration.
type Redis struct {
	// Redis hostname.
	Host string `koanf:"host"`
	// Redis port.
	Port int `koanf:"port"`
	// Redis username.
	Username string `koanf:"username"`
	// Redis password.
	Password string `koanf:"password"`
	// Disable client-side caching (required for servers without CLIENT TRACKING).
	DisableCache bool `koanf:"disable_cache"`
}

// Stats contains the remote stats API configuration.
type Stats struct {
	// Base URL of the stats API.
	BaseURL string `koanf:"base_url"`
	// User-Agent header sent with every request.
	UserAgent string `koanf:"user_agent"`
	// Cache lifetime for resolve responses in seconds.
	ResolveCacheTTL int `koanf:"resolve_cache_ttl"`
	// Maximum outbound requests per second from the check queue.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
}

// XP contains the level arithmetic constants.
type XP struct {
	// XP needed to complete one level.
	LevelCapacity int `koanf:"level_capacity"`
	// Highest reachable level.
	MaxLevel int `koanf:"max_level"`
	// Average XP earned per game.
	AvgXPPerGame int `koanf:"avg_xp_per_game"`
	// Average game duration in minutes.
	AvgGameMinutes int `koanf:"avg_game_minutes"`
}

// Uptrace contains tracing export configuration.
type Uptrace struct {
	// Uptrace DSN; tracing export is disabled when empty.
	DSN string `koanf:"dsn"`
	// Deployment environment reported with spans.
	Environment string `koanf:"environment"`
}

// Discord contains Discord bot configuration.
type Discord struct {
	// Discord bot token for authentication.
	Token string `koanf:"token"`
}

// LoadConfig loads the configuration from the first matching search path.
// Returns the config along with the used config directory.
func LoadConfig() (*Config, string, error) {
	k := koanf.New(".")

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	configPaths := []string{
		".xptracker",
		homeDir + "/.xptracker/config",
		"/etc/xptracker/config",
		"/app/config",
		"config",
		".",
	}

	return loadFrom(k, configPaths)
}

// LoadConfigFrom loads the configuration from the given search paths.
func LoadConfigFrom(configPaths ...string) (*Config, string, error) {
	return loadFrom(koanf.New("."), configPaths)
}

func loadFrom(k *koanf.Koanf, configPaths []string) (*Config, string, error) {
	var usedConfigPath string

	configFiles := []string{"common", "bot", "worker"}
	for _, configName := range configFiles {
		configLoaded := false

		for _, path := range configPaths {
			configPath := fmt.Sprintf("%s/%s.toml", path, configName)
			if err := k.Load(file.Provider(configPath), toml.Parser()); err == nil {
				configLoaded = true

				if usedConfigPath == "" {
					usedConfigPath = path
				}

				break
			}
		}

		if !configLoaded {
			return nil, "", fmt.Errorf("%w: %s.toml", ErrConfigFileNotFound, configName)
		}
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := checkConfigVersion("common", config.Common.Version, CurrentCommonVersion); err != nil {
		return nil, "", err
	}

	if err := checkConfigVersion("bot", config.Bot.Version, CurrentBotVersion); err != nil {
		return nil, "", err
	}

	if err := checkConfigVersion("worker", config.Worker.Version, CurrentWorkerVersion); err != nil {
		return nil, "", err
	}

	config.applyDefaults()

	return &config, usedConfigPath, nil
}

// checkConfigVersion checks if the config file version is correct.
func checkConfigVersion(name string, current, expected int) error {
	if current == 0 {
		return fmt.Errorf("%w: %s.toml", ErrConfigVersionMissing, name)
	}

	if current != expected {
		return fmt.Errorf(
			"%w: %s.toml (got: %d, expected: %d)\n"+
				"Please update your config file from: https://github.com/kwservices/xptracker/tree/%s/config/%s.toml",
			ErrConfigVersionMismatch,
			name,
			current,
			expected,
			RepositoryVersion,
			name,
		)
	}

	return nil
}
