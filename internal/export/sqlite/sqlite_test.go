package sqlite_test

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/kwservices/xptracker/internal/export/sqlite"
	"github.com/kwservices/xptracker/internal/export/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	zsqlite "zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// readRecords reads back every row ordered by hash.
func readRecords(t *testing.T, path string) []*types.ExportRecord {
	t.Helper()

	conn, err := zsqlite.OpenConn(path, zsqlite.OpenReadOnly)
	require.NoError(t, err)
	defer conn.Close()

	var records []*types.ExportRecord
	err = sqlitex.ExecuteTransient(conn,
		"SELECT hash, level, xp, total_earned, global_earned FROM "+sqlite.Table+" ORDER BY hash",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *zsqlite.Stmt) error {
				records = append(records, &types.ExportRecord{
					Hash:         stmt.ColumnText(0),
					Level:        stmt.ColumnInt(1),
					XP:           stmt.ColumnInt(2),
					TotalEarned:  stmt.ColumnInt(3),
					GlobalEarned: stmt.ColumnInt(4),
				})
				return nil
			},
		})
	require.NoError(t, err)

	return records
}

func TestExporter_Export(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		records []*types.ExportRecord
	}{
		{
			name: "basic export",
			records: []*types.ExportRecord{
				{Hash: "aa", Level: 12, XP: 1200, TotalEarned: 300, GlobalEarned: 9000},
				{Hash: "bb", Level: 40, XP: 10, TotalEarned: 0, GlobalEarned: 120},
			},
		},
		{
			name:    "empty export",
			records: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			exporter := sqlite.New(dir)

			// Running twice replaces the previous database
			require.NoError(t, exporter.Export(tt.records))
			require.NoError(t, exporter.Export(tt.records))

			got := readRecords(t, filepath.Join(dir, sqlite.FileName))
			require.Len(t, got, len(tt.records))

			for i, expected := range tt.records {
				assert.Equal(t, expected, got[i])
			}
		})
	}
}

func TestExporter_ExportManyBatches(t *testing.T) {
	t.Parallel()

	records := make([]*types.ExportRecord, 2500)
	for i := range records {
		records[i] = &types.ExportRecord{Hash: fmt.Sprintf("%06d", i), Level: i % 40}
	}

	dir := t.TempDir()
	require.NoError(t, sqlite.New(dir).Export(records))

	got := readRecords(t, filepath.Join(dir, sqlite.FileName))
	assert.Len(t, got, len(records))
}
