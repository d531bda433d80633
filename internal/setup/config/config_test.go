package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kwservices/xptracker/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigs(t *testing.T, dir string, files map[string]string) {
	t.Helper()

	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".toml"), []byte(content), 0o600))
	}
}

func TestLoadConfigFrom(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		files       map[string]string
		expectedErr error
	}{
		{
			name: "valid config with defaults",
			files: map[string]string{
				"common": "version = 1\n[stats]\nbase_url = \"http://stats.local\"\n",
				"bot":    "version = 1\ncooldown = 120\n",
				"worker": "version = 1\n",
			},
		},
		{
			name: "missing worker file",
			files: map[string]string{
				"common": "version = 1\n",
				"bot":    "version = 1\n",
			},
			expectedErr: config.ErrConfigFileNotFound,
		},
		{
			name: "missing version",
			files: map[string]string{
				"common": "[stats]\nbase_url = \"http://stats.local\"\n",
				"bot":    "version = 1\n",
				"worker": "version = 1\n",
			},
			expectedErr: config.ErrConfigVersionMissing,
		},
		{
			name: "version mismatch",
			files: map[string]string{
				"common": "version = 1\n",
				"bot":    "version = 99\n",
				"worker": "version = 1\n",
			},
			expectedErr: config.ErrConfigVersionMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			writeConfigs(t, dir, tt.files)

			cfg, usedDir, err := config.LoadConfigFrom(filepath.Join(dir, "missing"), dir)
			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, dir, usedDir)
			assert.Equal(t, "http://stats.local", cfg.Common.Stats.BaseURL)
			assert.Equal(t, 120, cfg.Bot.Cooldown)

			// Unset values fall back to defaults
			assert.Equal(t, config.DefaultUserAgent, cfg.Common.Stats.UserAgent)
			assert.Equal(t, config.DefaultLevelCapacity, cfg.Common.XP.LevelCapacity)
			assert.Equal(t, config.DefaultMaxLevel, cfg.Common.XP.MaxLevel)
			assert.Equal(t, config.DefaultQueueItemDelay, cfg.Bot.Queue.ItemDelay)
			assert.Equal(t, config.DefaultUserDelay, cfg.Worker.Tracking.UserDelay)
			assert.Equal(t, config.DefaultResetTimezone, cfg.Worker.Reset.Timezone)
		})
	}
}
