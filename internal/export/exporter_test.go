package export_test

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/bytedance/sonic"
	dbTypes "github.com/kwservices/xptracker/internal/database/types"
	"github.com/kwservices/xptracker/internal/export"
	exportCSV "github.com/kwservices/xptracker/internal/export/csv"
	"github.com/kwservices/xptracker/internal/export/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticUsers []*dbTypes.TrackedUser

func (s staticUsers) List(context.Context) ([]*dbTypes.TrackedUser, error) {
	return s, nil
}

func testConfig() *export.Config {
	return &export.Config{
		ExportVersion: "2026.10",
		Salt:          "test_salt",
		Description:   "monthly leaderboard",
		HashType:      string(export.HashTypeSHA256),
		Iterations:    1,
		Concurrency:   4,
	}
}

func TestExportAll(t *testing.T) {
	t.Parallel()

	users := staticUsers{
		{SteamID: 12345, CurrentLevel: 12, CurrentXP: 1200, TotalEarned: 300, GlobalEarned: 9000},
		{SteamID: 54321, CurrentLevel: 40, CurrentXP: 10, TotalEarned: 0, GlobalEarned: 120},
	}

	outDir := filepath.Join(t.TempDir(), "out")
	exporter := export.New(users, outDir, testConfig(), nil, zap.NewNop())
	require.NoError(t, exporter.ExportAll(t.Context()))

	// Metadata is minified and carries the engine version
	data, err := os.ReadFile(filepath.Join(outDir, export.ConfigFile))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "\n")

	var meta map[string]any
	require.NoError(t, sonic.Unmarshal(data, &meta))
	assert.Equal(t, export.EngineVersion, meta["engineVersion"])
	assert.Equal(t, "sha256", meta["hashType"])
	assert.NotContains(t, meta, "Concurrency")

	file, err := os.Open(filepath.Join(outDir, exportCSV.FileName))
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, exportCSV.Header, rows[0])
	assert.Equal(t, []string{
		"ce3807a728757fad6c9eb6f3934c71363857bca5f8f9d7a67452543acf47ac42", "12", "1200", "300", "9000",
	}, rows[1])
	assert.Equal(t, "c81079f1df424a4563c3a79a4557e8d0c3735f57cb110825955f85c4d8902511", rows[2][0])

	assert.FileExists(t, filepath.Join(outDir, sqlite.FileName))
}

func TestExportAllRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*export.Config)
	}{
		{name: "missing salt", modify: func(c *export.Config) { c.Salt = "" }},
		{name: "unknown hash", modify: func(c *export.Config) { c.HashType = "md5" }},
		{name: "zero iterations", modify: func(c *export.Config) { c.Iterations = 0 }},
		{name: "argon2id without memory", modify: func(c *export.Config) { c.HashType = "argon2id" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := testConfig()
			tt.modify(cfg)

			exporter := export.New(staticUsers{}, t.TempDir(), cfg, nil, zap.NewNop())
			require.ErrorIs(t, exporter.ExportAll(t.Context()), export.ErrInvalidConfig)
		})
	}
}
