package image_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/HugoSmits86/nativewebp"
	"github.com/kwservices/xptracker/internal/image"
	"github.com/kwservices/xptracker/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testReport() *stats.Report {
	return &stats.Report{
		Profile: stats.Profile{SteamID: 76561198000000001, Nickname: "player"},
		Player:  stats.Player{Name: "player"},
		Medals: stats.MedalData{
			CSGOLevel:       12,
			LevelPercentage: 23.56,
			RemainingXP:     3812,
			Commends:        stats.Commends{Friendly: 4, Teacher: 2, Leader: 7},
		},
	}
}

func TestRenderCheck(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*stats.Report)
	}{
		{name: "full card", modify: func(*stats.Report) {}},
		{name: "no commendations", modify: func(r *stats.Report) { r.Medals.Commends = stats.Commends{} }},
		{name: "empty level", modify: func(r *stats.Report) { r.Medals.LevelPercentage = 0 }},
		{name: "full level", modify: func(r *stats.Report) { r.Medals.LevelPercentage = 100 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			renderer, err := image.NewRenderer(t.TempDir(), zap.NewNop())
			require.NoError(t, err)

			report := testReport()
			tt.modify(report)

			path, err := renderer.RenderCheck(report, "KWS0123456789ab")
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(renderer.Dir(), "KWS0123456789ab.webp"), path)

			f, err := os.Open(path)
			require.NoError(t, err)
			defer f.Close()

			img, err := nativewebp.Decode(f)
			require.NoError(t, err)
			assert.Equal(t, 960, img.Bounds().Dx())
			assert.Equal(t, 480, img.Bounds().Dy())
		})
	}
}

func TestPathRejectsTraversal(t *testing.T) {
	t.Parallel()

	renderer, err := image.NewRenderer(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	for _, id := range []string{"", "../etc", "a/b", "x.webp"} {
		_, err := renderer.Path(id)
		require.ErrorIs(t, err, image.ErrInvalidCorrelationID, id)
	}
}

func TestCleanupRemovesOldCards(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	renderer, err := image.NewRenderer(dir, zap.NewNop())
	require.NoError(t, err)

	now := time.Now()
	files := map[string]time.Duration{
		"KWSold.webp":    20 * time.Minute,
		"KWSfresh.webp":  time.Minute,
		"KWSborder.webp": 11 * time.Minute,
		"notes.txt":      time.Hour,
	}

	for name, age := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
		require.NoError(t, os.Chtimes(path, now.Add(-age), now.Add(-age)))
	}

	removed, err := renderer.Cleanup(now, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	assert.FileExists(t, filepath.Join(dir, "KWSfresh.webp"))
	assert.FileExists(t, filepath.Join(dir, "notes.txt"))
	assert.NoFileExists(t, filepath.Join(dir, "KWSold.webp"))
	assert.NoFileExists(t, filepath.Join(dir, "KWSborder.webp"))

	require.NoError(t, renderer.Remove("KWSfresh"))
	require.NoError(t, renderer.Remove("KWSfresh"))
	assert.NoFileExists(t, filepath.Join(dir, "KWSfresh.webp"))
}
