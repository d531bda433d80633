// Package image renders the check card attached to /check results.
package image

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/HugoSmits86/nativewebp"
	"github.com/kwservices/xptracker/internal/stats"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
)

// Extension is the file extension of generated cards.
const Extension = ".webp"

// Card layout.
const (
	cardWidth   = 960
	cardHeight  = 480
	panelSize   = 480
	renderSize  = 720
	donutFont   = 14.0
	barFontSize = 12.0
)

// ErrInvalidCorrelationID is returned for ids that cannot be used as file names.
var ErrInvalidCorrelationID = errors.New("invalid correlation id")

var errNoCommends = errors.New("no commendations")

var (
	background      = color.RGBA{R: 0x2b, G: 0x2d, B: 0x31, A: 0xff}
	chartBackground = drawing.Color{R: 0x2b, G: 0x2d, B: 0x31, A: 0xff}
	colorXP         = drawing.Color{R: 0x58, G: 0x65, B: 0xf2, A: 0xff}
	colorRest       = drawing.Color{R: 0x4e, G: 0x50, B: 0x58, A: 0xff}
)

// Renderer writes check cards into a directory.
type Renderer struct {
	dir    string
	logger *zap.Logger
}

// NewRenderer creates a renderer writing into dir.
func NewRenderer(dir string, logger *zap.Logger) (*Renderer, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}

	return &Renderer{
		dir:    dir,
		logger: logger.Named("image"),
	}, nil
}

// Dir returns the output directory.
func (r *Renderer) Dir() string {
	return r.dir
}

// Path returns the file path of the card for a correlation id.
func (r *Renderer) Path(correlationID string) (string, error) {
	if correlationID == "" || strings.ContainsAny(correlationID, `/\.`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCorrelationID, correlationID)
	}

	return filepath.Join(r.dir, correlationID+Extension), nil
}

// RenderCheck draws the level donut and the commendation bars of a report
// side by side and writes the card as WebP. It returns the written path.
func (r *Renderer) RenderCheck(report *stats.Report, correlationID string) (string, error) {
	path, err := r.Path(correlationID)
	if err != nil {
		return "", err
	}

	canvas := image.NewRGBA(image.Rect(0, 0, cardWidth, cardHeight))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: background}, image.Point{}, draw.Src)

	donut, err := renderDonut(report)
	if err != nil {
		return "", fmt.Errorf("failed to render level chart: %w", err)
	}

	draw.CatmullRom.Scale(canvas, image.Rect(0, 0, panelSize, panelSize), donut, donut.Bounds(), draw.Over, nil)

	if bars, err := renderCommends(report.Medals.Commends); err == nil {
		draw.CatmullRom.Scale(canvas, image.Rect(panelSize, 0, cardWidth, panelSize), bars, bars.Bounds(), draw.Over, nil)
	} else {
		r.logger.Debug("Skipped commendation chart", zap.String("correlationID", correlationID), zap.Error(err))
	}

	buf := new(bytes.Buffer)
	if err := nativewebp.Encode(buf, canvas, nil); err != nil {
		return "", fmt.Errorf("failed to encode card: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return "", fmt.Errorf("failed to write card: %w", err)
	}

	r.logger.Debug("Rendered check card",
		zap.String("correlationID", correlationID),
		zap.Int("bytes", buf.Len()))

	return path, nil
}

// Remove deletes the card of a correlation id if it exists.
func (r *Renderer) Remove(correlationID string) error {
	path, err := r.Path(correlationID)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove card: %w", err)
	}

	return nil
}

// Cleanup removes cards last modified before now minus maxAge.
// It returns the number of removed files.
func (r *Renderer) Cleanup(now time.Time, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read image directory: %w", err)
	}

	cutoff := now.Add(-maxAge)
	removed := 0

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != Extension {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.Remove(filepath.Join(r.dir, entry.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			r.logger.Warn("Failed to remove old card", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}

		removed++
	}

	if removed > 0 {
		r.logger.Info("Removed old check cards", zap.Int("count", removed))
	}

	return removed, nil
}

// renderDonut draws the progress within the current level.
func renderDonut(report *stats.Report) (image.Image, error) {
	done := float64(report.Medals.LevelPercentage)
	rest := 100 - done

	values := make([]chart.Value, 0, 2)
	if done > 0 {
		values = append(values, chart.Value{
			Value: done,
			Label: fmt.Sprintf("Level %d", report.Medals.CSGOLevel),
			Style: chart.Style{FillColor: colorXP, FontColor: drawing.ColorWhite, FontSize: donutFont},
		})
	}

	if rest > 0 {
		values = append(values, chart.Value{
			Value: rest,
			Label: fmt.Sprintf("%d XP left", report.Medals.RemainingXP),
			Style: chart.Style{FillColor: colorRest, FontColor: drawing.ColorWhite, FontSize: donutFont},
		})
	}

	graph := chart.DonutChart{
		Title:      report.Player.Name,
		TitleStyle: chart.Style{FontColor: drawing.ColorWhite},
		Background: chart.Style{FillColor: chartBackground},
		Width:      renderSize,
		Height:     renderSize,
		Values:     values,
	}

	return renderPNG(graph.Render)
}

// renderCommends draws the commendation counters as bars.
func renderCommends(commends stats.Commends) (image.Image, error) {
	if commends.Friendly == 0 && commends.Teacher == 0 && commends.Leader == 0 {
		return nil, errNoCommends
	}

	highest := max(commends.Friendly, commends.Teacher, commends.Leader)
	style := chart.Style{FillColor: colorXP, StrokeColor: colorXP}
	graph := chart.BarChart{
		Title:      "Commendations",
		TitleStyle: chart.Style{FontColor: drawing.ColorWhite},
		Background: chart.Style{FillColor: chartBackground},
		Canvas:     chart.Style{FillColor: chartBackground},
		Width:      renderSize,
		Height:     renderSize,
		BarWidth:   120,
		XAxis:      chart.Style{FontColor: drawing.ColorWhite, FontSize: barFontSize},
		YAxis: chart.YAxis{
			Style: chart.Style{FontColor: drawing.ColorWhite, FontSize: barFontSize},
			Range: &chart.ContinuousRange{Min: 0, Max: float64(highest)},
		},
		Bars: []chart.Value{
			{Value: float64(commends.Friendly), Label: "Friendly", Style: style},
			{Value: float64(commends.Teacher), Label: "Teacher", Style: style},
			{Value: float64(commends.Leader), Label: "Leader", Style: style},
		},
	}

	return renderPNG(graph.Render)
}

func renderPNG(render func(chart.RendererProvider, io.Writer) error) (image.Image, error) {
	buf := new(bytes.Buffer)
	if err := render(chart.PNG, buf); err != nil {
		return nil, err
	}

	return png.Decode(buf)
}
