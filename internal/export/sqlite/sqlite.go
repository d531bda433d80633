package sqlite

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kwservices/xptracker/internal/export/types"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const (
	// FileName is the name of the written database.
	FileName = "leaderboard.db"
	// Table is the table holding the records.
	Table = "leaderboard"

	batchSize = 1000
)

// Exporter handles exporting records to a SQLite database.
type Exporter struct {
	outDir string
}

// New creates a new SQLite exporter instance.
func New(outDir string) *Exporter {
	return &Exporter{outDir: outDir}
}

// Export replaces the leaderboard database with records.
func (e *Exporter) Export(records []*types.ExportRecord) error {
	path := filepath.Join(e.outDir, FileName)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove existing file %s: %w", FileName, err)
	}

	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate|sqlite.OpenReadWrite)
	if err != nil {
		return fmt.Errorf("failed to open SQLite database: %w", err)
	}
	defer conn.Close()

	err = sqlitex.ExecuteTransient(conn, `
		CREATE TABLE `+Table+` (
			hash TEXT PRIMARY KEY,
			level INTEGER NOT NULL,
			xp INTEGER NOT NULL,
			total_earned INTEGER NOT NULL,
			global_earned INTEGER NOT NULL
		)
	`, nil)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	for i := 0; i < len(records); i += batchSize {
		end := min(i+batchSize, len(records))

		if err := insertBatch(conn, records[i:end]); err != nil {
			return err
		}
	}

	return nil
}

// insertBatch writes records inside one transaction.
func insertBatch(conn *sqlite.Conn, records []*types.ExportRecord) (err error) {
	defer sqlitex.Save(conn)(&err)

	for _, record := range records {
		err = sqlitex.Execute(conn,
			"INSERT INTO "+Table+" (hash, level, xp, total_earned, global_earned) VALUES (?, ?, ?, ?, ?)",
			&sqlitex.ExecOptions{
				Args: []any{record.Hash, record.Level, record.XP, record.TotalEarned, record.GlobalEarned},
			})
		if err != nil {
			return fmt.Errorf("failed to insert record: %w", err)
		}
	}

	return nil
}
