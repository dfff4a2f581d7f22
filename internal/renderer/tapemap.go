package renderer

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"

	"github.com/linuxmatters/tapedeck/internal/codec"
	"github.com/linuxmatters/tapedeck/internal/config"
)

// Span is one labelled stretch of tape
type Span struct {
	Label  string
	Begin  float64 // Seconds
	End    float64 // Seconds
	Failed bool
}

// SpansFromBlocks converts decoded blocks into spans labelled with their
// number and status.
func SpansFromBlocks(blocks []codec.Block) []Span {
	spans := make([]Span, 0, len(blocks))
	for _, b := range blocks {
		label := b.Status.String()
		if b.Number >= 0 {
			label = fmt.Sprintf("%02x %s", b.Number, label)
		}
		spans = append(spans, Span{
			Label:  label,
			Begin:  b.Begin.Seconds,
			End:    b.End.Seconds,
			Failed: b.Status != codec.Complete,
		})
	}
	return spans
}

// SpansFromAnnotations converts encoder annotations into spans.
func SpansFromAnnotations(annotations []codec.Annotation) []Span {
	spans := make([]Span, 0, len(annotations))
	for _, a := range annotations {
		spans = append(spans, Span{
			Label: a.Label,
			Begin: a.Begin.Seconds,
			End:   a.End.Seconds,
		})
	}
	return spans
}

// Tape map colours
var (
	mapBackground = color.RGBA{R: 0x1c, G: 0x1c, B: 0x1c, A: 255}
	mapTrack      = color.RGBA{R: 0x3a, G: 0x3a, B: 0x3a, A: 255}
	mapText       = color.RGBA{R: 0xdd, G: 0xdd, B: 0xdd, A: 255}
)

// RenderTapeMap draws spans on a timeline of duration seconds and saves it
// as a PNG file.
func RenderTapeMap(outputPath string, spans []Span, duration float64) error {
	img, err := DrawTapeMap(spans, duration)
	if err != nil {
		return err
	}

	outFile, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	if err := png.Encode(outFile, img); err != nil {
		outFile.Close()
		return err
	}
	return outFile.Close()
}

// DrawTapeMap draws spans on a timeline of duration seconds.
func DrawTapeMap(spans []Span, duration float64) (*image.RGBA, error) {
	parsedFont, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	face := truetype.NewFace(parsedFont, &truetype.Options{
		Size: config.MapFontSize,
		DPI:  config.MapFontDPI,
	})
	defer face.Close()

	for _, s := range spans {
		duration = math.Max(duration, s.End)
	}
	if duration <= 0 {
		duration = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, config.MapWidth, config.MapHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(mapBackground), image.Point{}, draw.Src)

	m := tapeMap{
		img:      img,
		face:     face,
		duration: duration,
		left:     config.MapMargin,
		right:    config.MapWidth - config.MapMargin,
		top:      config.MapHeight / 3,
		bottom:   config.MapHeight * 2 / 3,
	}

	fill(img, image.Rect(m.left, m.top, m.right, m.bottom), mapTrack)

	okColor := hexColor(config.MapBlockColor)
	failColor := hexColor(config.MapErrorColor)
	for i, s := range spans {
		c := okColor
		if s.Failed {
			c = failColor
		}
		r := image.Rect(m.x(s.Begin), m.top, max(m.x(s.End), m.x(s.Begin)+1), m.bottom)
		fill(img, r, c)

		// alternate labels above and below so neighbours do not collide
		y := m.top - 6
		if i%2 == 1 {
			y = m.bottom + int(config.MapFontSize) + 4
		}
		m.label(s.Label, r.Min.X, y, r.Dx()*2)
	}

	m.axis()
	return img, nil
}

type tapeMap struct {
	img      *image.RGBA
	face     font.Face
	duration float64

	left, right int
	top, bottom int
}

// x maps seconds to a pixel column
func (m tapeMap) x(seconds float64) int {
	return m.left + int(seconds/m.duration*float64(m.right-m.left))
}

// label draws text at (x, y) if it fits in maxWidth pixels.
func (m tapeMap) label(text string, x, y, maxWidth int) {
	if text == "" {
		return
	}
	width, _ := measureText(m.face, text)
	if width > maxWidth {
		return
	}
	d := &font.Drawer{
		Dst:  m.img,
		Src:  image.NewUniform(mapText),
		Face: m.face,
		Dot:  freetype.Pt(x, y),
	}
	d.DrawString(text)
}

// axis draws second marks under the track.
func (m tapeMap) axis() {
	step := tickStep(m.duration)
	y := config.MapHeight - config.MapMargin/2
	for t := 0.0; t <= m.duration; t += step {
		x := m.x(t)
		fill(m.img, image.Rect(x, m.bottom, x+1, m.bottom+4), mapText)
		m.label(formatSeconds(t), x, y, config.MapWidth)
	}
}

// tickStep picks a round interval giving at most ten ticks.
func tickStep(duration float64) float64 {
	for _, step := range []float64{1, 2, 5, 10, 15, 30, 60, 120, 300, 600} {
		if duration/step <= 10 {
			return step
		}
	}
	return math.Ceil(duration/10/600) * 600
}

func formatSeconds(t float64) string {
	if t < 60 {
		return fmt.Sprintf("%.0fs", t)
	}
	return fmt.Sprintf("%d:%02d", int(t)/60, int(t)%60)
}

// measureText returns the width and bounds of rendered text
func measureText(face font.Face, text string) (int, fixed.Rectangle26_6) {
	d := &font.Drawer{Face: face}
	bounds, _ := d.BoundString(text)
	width := (bounds.Max.X - bounds.Min.X).Ceil()
	return width, bounds
}

func fill(img *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
}

// hexColor parses "#RRGGBB", falling back to white.
func hexColor(s string) color.RGBA {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "#"), 16, 32)
	if err != nil || len(s) != 7 {
		return color.RGBA{R: 255, G: 255, B: 255, A: 255}
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}
