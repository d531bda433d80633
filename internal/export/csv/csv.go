package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/kwservices/xptracker/internal/export/types"
)

// FileName is the name of the written file.
const FileName = "leaderboard.csv"

// Header is the header row of the written file.
var Header = []string{"hash", "level", "xp", "total_earned", "global_earned"}

// Exporter handles exporting records to a csv file.
type Exporter struct {
	outDir string
}

// New creates a new csv exporter instance.
func New(outDir string) *Exporter {
	return &Exporter{outDir: outDir}
}

// Export replaces the leaderboard csv with records.
func (e *Exporter) Export(records []*types.ExportRecord) error {
	path := filepath.Join(e.outDir, FileName)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove existing file %s: %w", FileName, err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, record := range records {
		if err := writer.Write([]string{
			record.Hash,
			strconv.Itoa(record.Level),
			strconv.Itoa(record.XP),
			strconv.Itoa(record.TotalEarned),
			strconv.Itoa(record.GlobalEarned),
		}); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	writer.Flush()

	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush csv file: %w", err)
	}

	return nil
}
