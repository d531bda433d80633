// Package export writes the tracked users' counters as hashed leaderboard files.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	dbTypes "github.com/kwservices/xptracker/internal/database/types"
	"github.com/kwservices/xptracker/internal/export/csv"
	"github.com/kwservices/xptracker/internal/export/sqlite"
	"github.com/kwservices/xptracker/internal/export/types"
	"github.com/kwservices/xptracker/internal/progress"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/json"
	"go.uber.org/zap"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported export format")
	ErrInvalidConfig     = errors.New("invalid export config")
)

// Format represents a supported export format.
type Format string

const (
	FormatSQLite Format = "sqlite"
	FormatCSV    Format = "csv"
)

const (
	// EngineVersion is bumped on breaking changes to the export layout.
	EngineVersion = "1.0.0"

	// ConfigFile is the name of the metadata file written next to the exports.
	ConfigFile = "export_config.json"

	mimeJSON = "application/json"
)

// Config holds the configuration for exports.
type Config struct {
	ExportVersion string `json:"exportVersion"`
	Salt          string `json:"salt"`
	Description   string `json:"description"`
	HashType      string `json:"hashType"`
	Iterations    uint32 `json:"iterations"`
	Memory        uint32 `json:"memory,omitempty"`
	Concurrency   int    `json:"-"`
}

// Validate checks the hashing parameters.
func (c *Config) Validate() error {
	if c.Salt == "" {
		return fmt.Errorf("%w: salt is required", ErrInvalidConfig)
	}

	if !HashType(c.HashType).Valid() {
		return fmt.Errorf("%w: unknown hash type %q", ErrInvalidConfig, c.HashType)
	}

	if c.Iterations == 0 {
		return fmt.Errorf("%w: iterations must be positive", ErrInvalidConfig)
	}

	if HashType(c.HashType) == HashTypeArgon2id && c.Memory == 0 {
		return fmt.Errorf("%w: argon2id needs memory", ErrInvalidConfig)
	}

	return nil
}

// UserSource lists the tracked users to export.
type UserSource interface {
	List(ctx context.Context) ([]*dbTypes.TrackedUser, error)
}

// Writer writes records in one format.
type Writer interface {
	Export(records []*types.ExportRecord) error
}

// Exporter handles exporting tracked users.
type Exporter struct {
	users   UserSource
	outDir  string
	config  *Config
	formats []Format
	bar     *progress.Bar
	minify  *minify.M
	logger  *zap.Logger
}

// New creates a new exporter instance.
func New(users UserSource, outDir string, config *Config, bar *progress.Bar, logger *zap.Logger) *Exporter {
	m := minify.New()
	m.AddFunc(mimeJSON, json.Minify)

	if bar == nil {
		bar = progress.NewBar("Hashing", 30)
	}

	return &Exporter{
		users:   users,
		outDir:  outDir,
		config:  config,
		formats: []Format{FormatSQLite, FormatCSV},
		bar:     bar,
		minify:  m,
		logger:  logger.Named("export"),
	}
}

// ExportAll exports all tracked users in all supported formats.
func (e *Exporter) ExportAll(ctx context.Context) error {
	if err := e.config.Validate(); err != nil {
		return err
	}

	e.logger.Info("Starting export",
		zap.String("hashType", e.config.HashType),
		zap.Int("concurrency", e.config.Concurrency),
		zap.Uint32("iterations", e.config.Iterations),
		zap.String("outDir", e.outDir),
		zap.String("exportVersion", e.config.ExportVersion))

	users, err := e.users.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to get tracked users: %w", err)
	}

	e.logger.Info("Hashing Steam IDs", zap.Int("users", len(users)))

	records := e.hashRecords(users)

	if err := os.MkdirAll(e.outDir, 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := e.writeConfig(); err != nil {
		return err
	}

	for _, format := range e.formats {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := e.export(format, records); err != nil {
			return fmt.Errorf("failed to export %s format: %w", format, err)
		}

		e.logger.Info("Wrote export", zap.String("format", string(format)))
	}

	e.logger.Info("Export completed", zap.Int("records", len(records)), zap.String("outDir", e.outDir))

	return nil
}

// hashRecords converts users to export records.
func (e *Exporter) hashRecords(users []*dbTypes.TrackedUser) []*types.ExportRecord {
	ids := make([]uint64, len(users))
	for i, user := range users {
		ids[i] = user.SteamID
	}

	e.bar.SetTotal(int64(len(ids)))
	e.bar.SetStep("Hashing")

	hashes := hashIDs(ids, e.config, func() { e.bar.Increment(1) })

	records := make([]*types.ExportRecord, len(users))
	for i, user := range users {
		records[i] = &types.ExportRecord{
			Hash:         hashes[i],
			Level:        user.CurrentLevel,
			XP:           user.CurrentXP,
			TotalEarned:  user.TotalEarned,
			GlobalEarned: user.GlobalEarned,
		}
	}

	return records
}

// writeConfig writes the minified export metadata.
func (e *Exporter) writeConfig() error {
	jsonConfig := struct {
		*Config

		EngineVersion string `json:"engineVersion"`
	}{
		Config:        e.config,
		EngineVersion: EngineVersion,
	}

	data, err := sonic.Marshal(jsonConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal export config: %w", err)
	}

	data, err = e.minify.Bytes(mimeJSON, data)
	if err != nil {
		return fmt.Errorf("failed to minify export config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(e.outDir, ConfigFile), data, 0o600); err != nil {
		return fmt.Errorf("failed to write export config: %w", err)
	}

	return nil
}

// export handles exporting data in the specified format.
func (e *Exporter) export(format Format, records []*types.ExportRecord) error {
	var writer Writer

	switch format {
	case FormatSQLite:
		writer = sqlite.New(e.outDir)
	case FormatCSV:
		writer = csv.New(e.outDir)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	return writer.Export(records)
}
