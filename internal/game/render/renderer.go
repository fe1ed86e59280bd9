// Package render composes an image pair onto the background template and
// encodes the result as a single JPEG.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png"
	"os"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"github.com/face-hh/spotai/internal/game/catalog"
	"github.com/face-hh/spotai/internal/model"
)

// Layout holds the canvas geometry. Slots[model.SlotLeft] and
// Slots[model.SlotRight] are the top-left corners of the two squares.
type Layout struct {
	Width         int
	Height        int
	SquareSize    int
	WideCropRatio float64
	Slots         [2]image.Point
	Label         image.Point // text baseline origin
	LabelFormat   string
	JPEGQuality   int
}

// Renderer draws artifacts. It is safe for concurrent use.
type Renderer struct {
	layout     Layout
	background image.Image
	labelColor color.Color

	faceMu sync.Mutex // font faces keep glyph buffers
	face   font.Face
}

// New creates a renderer drawing over background with face for the label.
func New(layout Layout, background image.Image, face font.Face) *Renderer {
	if layout.LabelFormat == "" {
		layout.LabelFormat = "LEVEL %s"
	}
	if layout.JPEGQuality <= 0 {
		layout.JPEGQuality = jpeg.DefaultQuality
	}
	return &Renderer{
		layout:     layout,
		background: background,
		face:       face,
		labelColor: color.White,
	}
}

// LoadImage decodes a PNG, JPEG or WebP file.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}

// LoadFace loads a TrueType/OpenType font at size points.
// An empty path selects the embedded Go Regular font.
func LoadFace(path string, size float64) (font.Face, error) {
	data := goregular.TTF
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read font: %w", err)
		}
	}

	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	return face, nil
}

// Render draws pair with the AI image in aiSlot. Source files are read on
// every call.
func (r *Renderer) Render(ctx context.Context, pair catalog.Pair, aiSlot int) (*model.Artifact, error) {
	if aiSlot != model.SlotLeft && aiSlot != model.SlotRight {
		return nil, fmt.Errorf("invalid ai slot %d", aiSlot)
	}

	var aiImg, humanImg image.Image
	var g errgroup.Group
	g.Go(func() error {
		img, err := LoadImage(pair.AIPath)
		aiImg = img
		return err
	})
	g.Go(func() error {
		img, err := LoadImage(pair.HumanPath)
		humanImg = img
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l := r.layout
	canvas := image.NewRGBA(image.Rect(0, 0, l.Width, l.Height))
	draw.Draw(canvas, canvas.Bounds(), image.Black, image.Point{}, draw.Src)

	humanSlot := 1 - aiSlot
	r.drawSquare(canvas, aiImg, l.Slots[aiSlot])
	r.drawSquare(canvas, humanImg, l.Slots[humanSlot])

	// Background last so its frame overlays the squares.
	if r.background != nil {
		draw.Draw(canvas, canvas.Bounds(), r.background, r.background.Bounds().Min, draw.Over)
	}

	if r.face != nil {
		r.faceMu.Lock()
		d := &font.Drawer{
			Dst:  canvas,
			Src:  image.NewUniform(r.labelColor),
			Face: r.face,
			Dot:  fixed.P(l.Label.X, l.Label.Y),
		}
		d.DrawString(fmt.Sprintf(l.LabelFormat, pair.Level))
		r.faceMu.Unlock()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: l.JPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode composite: %w", err)
	}

	return &model.Artifact{
		Image:  buf.Bytes(),
		Level:  pair.Level,
		AISlot: aiSlot,
		Prompt: pair.Prompt,
	}, nil
}

// drawSquare crops src and scales it into the square at origin.
func (r *Renderer) drawSquare(dst draw.Image, src image.Image, origin image.Point) {
	size := r.layout.SquareSize
	target := image.Rect(origin.X, origin.Y, origin.X+size, origin.Y+size)
	draw.CatmullRom.Scale(dst, target, src, CropRect(src.Bounds(), r.layout.WideCropRatio), draw.Src, nil)
}
