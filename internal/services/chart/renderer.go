package chart

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/sync/errgroup"

	"PriceCast/internal/domain"
	"PriceCast/pkg/logger"
)

// Size is a named output resolution.
type Size struct {
	Name   string
	Width  int
	Height int
}

var (
	Small  = Size{Name: "small", Width: 400, Height: 400}
	Medium = Size{Name: "medium", Width: 1920, Height: 1080}
	Big    = Size{Name: "big", Width: 10666, Height: 6000}
)

// SizeByName resolves "small", "medium" or "big".
func SizeByName(name string) (Size, bool) {
	switch strings.ToLower(name) {
	case Small.Name:
		return Small, true
	case Medium.Name:
		return Medium, true
	case Big.Name:
		return Big, true
	}
	return Size{}, false
}

// Input is one actual-vs-predicted comparison. Predicted has one more point than
// Actual: the forecast at PredictedAt.
type Input struct {
	Symbol      string
	Labels      []time.Time
	Actual      []float64
	Predicted   []float64
	PredictedAt time.Time
}

func (in Input) validate() error {
	if len(in.Actual) == 0 {
		return fmt.Errorf("nothing to chart: %w", domain.ErrInsufficientData)
	}
	if len(in.Labels) != len(in.Actual) || len(in.Predicted) != len(in.Actual)+1 {
		return fmt.Errorf("chart has %d labels, %d actual and %d predicted points: %w",
			len(in.Labels), len(in.Actual), len(in.Predicted), domain.ErrData)
	}
	return nil
}

// Renderer writes comparison charts as SVG files.
type Renderer struct {
	outputDir string
	sizes     []Size
	log       *logger.Logger
}

// NewRenderer renders every named size into outputDir.
func NewRenderer(outputDir string, sizes []string, log *logger.Logger) (*Renderer, error) {
	if log == nil {
		log = logger.Nop()
	}
	r := &Renderer{outputDir: outputDir, log: log}
	for _, name := range sizes {
		s, ok := SizeByName(name)
		if !ok {
			return nil, fmt.Errorf("unknown chart size %q", name)
		}
		r.sizes = append(r.sizes, s)
	}
	return r, nil
}

// OutputDir is where chart files are written.
func (r *Renderer) OutputDir() string { return r.outputDir }

// Path returns the file a chart for symbol and size is written to.
func Path(dir, symbol, size string) string {
	return filepath.Join(dir, fmt.Sprintf("%s-%s.svg", symbol, size))
}

// Render draws every configured size concurrently. Files are written only after
// all sizes rendered; if a write fails, the charts this call already wrote are
// removed again.
func (r *Renderer) Render(ctx context.Context, in Input) ([]string, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	out := make([][]byte, len(r.sizes))
	g, gctx := errgroup.WithContext(ctx)
	for i, size := range r.sizes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			b, err := RenderSVG(in, size)
			if err != nil {
				return fmt.Errorf("render %s chart: %w", size.Name, err)
			}
			out[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create chart dir: %w", err)
	}
	paths := make([]string, 0, len(r.sizes))
	for i, size := range r.sizes {
		path := Path(r.outputDir, in.Symbol, size.Name)
		if err := writeFile(path, out[i]); err != nil {
			for _, written := range paths {
				_ = os.Remove(written)
			}
			return nil, err
		}
		paths = append(paths, path)
		r.log.Debug("chart written", logger.String("path", path), logger.Int("bytes", len(out[i])))
	}
	return paths, nil
}

// RenderSVG draws one chart in memory.
func RenderSVG(in Input, size Size) ([]byte, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	predictedX := append(append([]time.Time(nil), in.Labels...), in.PredictedAt)

	graph := gochart.Chart{
		Title:  fmt.Sprintf("%s actual vs predicted", in.Symbol),
		Width:  size.Width,
		Height: size.Height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: gochart.XAxis{
			Name:           "Date",
			ValueFormatter: gochart.TimeValueFormatterWithFormat("2006-01-02 15:04"),
		},
		YAxis: gochart.YAxis{
			Name: "Price",
		},
		Series: []gochart.Series{
			gochart.TimeSeries{
				Name:    "Actual",
				XValues: in.Labels,
				YValues: in.Actual,
				Style:   gochart.Style{StrokeColor: drawing.ColorBlue, StrokeWidth: 2},
			},
			gochart.TimeSeries{
				Name:    "Predicted",
				XValues: predictedX,
				YValues: in.Predicted,
				Style:   gochart.Style{StrokeColor: drawing.ColorRed, StrokeWidth: 2},
			},
		},
	}
	graph.Elements = []gochart.Renderable{gochart.Legend(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(gochart.SVG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write chart: %w", err)
	}
	return nil
}
