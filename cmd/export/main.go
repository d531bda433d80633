package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/kwservices/xptracker/internal/export"
	"github.com/kwservices/xptracker/internal/progress"
	"github.com/kwservices/xptracker/internal/setup"
	"github.com/kwservices/xptracker/internal/setup/telemetry"
	"github.com/urfave/cli/v3"
)

const (
	// ExportLogDir specifies where export log files are stored.
	ExportLogDir = "logs/export_logs"

	defaultExportVersion = "1.0.0"
	defaultDescription   = "Monthly XP leaderboard"
)

var ErrInvalidHashType = errors.New("invalid hash type")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:   "export",
		Usage:  "Export the tracked users' XP counters with hashed Steam IDs",
		Flags:  exportFlags(),
		Action: runExport,
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1) //nolint:gocritic // stop has nothing left to release
	}
}

func exportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: "exports", Usage: "Base output directory"},
		&cli.StringFlag{Name: "salt", Aliases: []string{"s"}, Usage: "Salt mixed into every hashed Steam ID"},
		&cli.StringFlag{Name: "export-version", Aliases: []string{"v"}, Usage: "Version tag stored in the export metadata"},
		&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Description stored in the export metadata"},
		&cli.StringFlag{Name: "hash-type", Aliases: []string{"t"}, Usage: "argon2id or sha256"},
		&cli.IntFlag{Name: "concurrency", Aliases: []string{"c"}, Value: 1, Usage: "Parallel hash workers"},
		&cli.UintFlag{Name: "iterations", Aliases: []string{"i"}, Usage: "Hash rounds"},
		&cli.UintFlag{Name: "memory", Aliases: []string{"m"}, Usage: "Argon2id memory in MB"},
	}
}

func runExport(ctx context.Context, c *cli.Command) error {
	// Ask for missing values before setup starts logging to the terminal
	cfg := &export.Config{
		ExportVersion: c.String("export-version"),
		Salt:          c.String("salt"),
		Description:   c.String("description"),
		HashType:      c.String("hash-type"),
		Concurrency:   int(c.Int("concurrency")),
		Iterations:    uint32(c.Uint("iterations")), //nolint:gosec // flag values are small
		Memory:        uint32(c.Uint("memory")),     //nolint:gosec // flag values are small
	}

	if err := newPrompter(os.Stdin, os.Stdout).complete(cfg); err != nil {
		return fmt.Errorf("failed to get export configuration: %w", err)
	}

	app, err := setup.InitializeApp(ctx, telemetry.ServiceExport, ExportLogDir)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Cleanup(context.Background())

	outDir := filepath.Join(c.String("output"), time.Now().UTC().Format("2006-01-02_150405"))

	bar := progress.NewBar("Hashing", 30)
	renderCtx, stopRender := context.WithCancel(ctx)
	defer stopRender()

	go progress.NewRenderer(bar).Render(renderCtx)

	if err := export.New(app.DB.Model().TrackedUser(), outDir, cfg, bar, app.Logger).ExportAll(ctx); err != nil {
		return fmt.Errorf("failed to export data: %w", err)
	}

	stopRender()
	log.Printf("Export written to %s", outDir)

	return nil
}

// prompter fills unset export settings from interactive input.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

func (p *prompter) complete(cfg *export.Config) error {
	var err error

	if cfg.ExportVersion == "" {
		if cfg.ExportVersion, err = p.ask("Export version", defaultExportVersion); err != nil {
			return err
		}
	}

	if cfg.Salt == "" {
		if cfg.Salt, err = p.ask("Salt for hashing IDs", ""); err != nil {
			return err
		}
	}

	if cfg.Description == "" {
		if cfg.Description, err = p.ask("Description", defaultDescription); err != nil {
			return err
		}
	}

	if cfg.HashType == "" {
		if cfg.HashType, err = p.ask("Hash type (argon2id/sha256)", string(export.HashTypeSHA256)); err != nil {
			return err
		}
	}

	if !export.HashType(cfg.HashType).Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidHashType, cfg.HashType)
	}

	argon := export.HashType(cfg.HashType) == export.HashTypeArgon2id

	if cfg.Iterations == 0 {
		def := uint32(1)
		if argon {
			def = 16
		}

		if cfg.Iterations, err = p.askUint32("Hash iterations", def); err != nil {
			return err
		}
	}

	if argon && cfg.Memory == 0 {
		if cfg.Memory, err = p.askUint32("Argon2id memory in MB", 16); err != nil {
			return err
		}
	}

	return nil
}

// ask reads one line, falling back to def when the answer is empty.
func (p *prompter) ask(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}

	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}

	if answer := strings.TrimSpace(line); answer != "" {
		return answer, nil
	}

	return def, nil
}

func (p *prompter) askUint32(label string, def uint32) (uint32, error) {
	answer, err := p.ask(label, strconv.FormatUint(uint64(def), 10))
	if err != nil {
		return 0, err
	}

	n, err := strconv.ParseUint(answer, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid number for %s: %w", strings.ToLower(label), err)
	}

	return uint32(n), nil
}
