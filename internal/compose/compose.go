// Package compose renders the 33 arranged deck tiles onto a fixed-size
// canvas: three large character tiles on top, thirty card tiles in a 6x5
// grid below, each framed unless it is a placeholder. Output is PNG bytes.
package compose

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"

	"github.com/nfnt/resize"

	"github.com/tcgtools/deckimg/internal/app"
	"github.com/tcgtools/deckimg/internal/domain"
)

// Layout constants, carried over from the share feature's own renderer.
const (
	mainTileW = 142
	mainTileH = 232
	cardTileW = 89
	cardTileH = 144
	tilePad   = 16

	gridCols = 6
	gridRows = 5

	canvasW  = 700
	mainRowY = 160
	gridTopY = mainRowY + mainTileH + 80
	canvasH  = gridTopY + gridRows*cardTileH + (gridRows-1)*tilePad + 48

	mainInset = 8
	cardInset = 6

	frameThickness = 3
)

// Optional asset overrides, one PNG per role, looked up in the assets dir.
var assetFiles = map[string]string{
	"background":     "background.png",
	"frame":          "frame.png",
	"frame_esoteric": "frame_esoteric.png",
	"placeholder":    "placeholder.png",
}

// Composer implements the app.Composer port. Construct via New; safe for
// concurrent use (all fields are read-only after construction).
type Composer struct {
	background    image.Image // nil => flat procedural background
	frameNormal   image.Image // nil => procedural border
	frameEsoteric image.Image
	placeholder   image.Image
}

var _ app.Composer = (*Composer)(nil)

// New returns a Composer. assetsDir may be empty; any asset file missing
// from it falls back to a procedurally drawn default, so the service runs
// without bundled game art.
func New(assetsDir string) (*Composer, error) {
	c := &Composer{placeholder: proceduralPlaceholder()}
	if assetsDir == "" {
		return c, nil
	}
	loaded := map[string]image.Image{}
	for role, file := range assetFiles {
		img, err := loadPNG(filepath.Join(assetsDir, file))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load asset %s: %w", file, err)
		}
		loaded[role] = img
	}
	if img, ok := loaded["background"]; ok {
		c.background = img
	}
	if img, ok := loaded["frame"]; ok {
		c.frameNormal = img
	}
	if img, ok := loaded["frame_esoteric"]; ok {
		c.frameEsoteric = img
	}
	if img, ok := loaded["placeholder"]; ok {
		c.placeholder = img
	}
	return c, nil
}

// Placeholder exposes the placeholder image so the artwork fetcher and the
// composer substitute the same art.
func (c *Composer) Placeholder() image.Image { return c.placeholder }

// Compose renders the tiles in order: indices 0..2 are character slots,
// 3..32 the card grid. The tile count must be exactly domain.DeckSize.
func (c *Composer) Compose(tiles []app.Tile) ([]byte, error) {
	if len(tiles) != domain.DeckSize {
		return nil, fmt.Errorf("compose: got %d tiles, want %d", len(tiles), domain.DeckSize)
	}
	canvas := image.NewRGBA(image.Rect(0, 0, canvasW, canvasH))
	c.drawBackground(canvas)

	mainStartX := (canvasW - (domain.MainSlots*mainTileW + (domain.MainSlots-1)*tilePad)) / 2
	for i := 0; i < domain.MainSlots; i++ {
		x := mainStartX + i*(mainTileW+tilePad)
		c.drawTile(canvas, tiles[i], x, mainRowY, mainTileW, mainTileH, mainInset)
	}

	gridStartX := (canvasW - (gridCols*cardTileW + (gridCols-1)*tilePad)) / 2
	for i := domain.MainSlots; i < domain.DeckSize; i++ {
		row := (i - domain.MainSlots) / gridCols
		col := (i - domain.MainSlots) % gridCols
		x := gridStartX + col*(cardTileW+tilePad)
		y := gridTopY + row*(cardTileH+tilePad)
		c.drawTile(canvas, tiles[i], x, y, cardTileW, cardTileH, cardInset)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// drawTile scales one tile to w x h at (x, y). Real cards are inset and
// overlaid with their frame; placeholder tiles get the placeholder art only.
func (c *Composer) drawTile(canvas *image.RGBA, tile app.Tile, x, y, w, h, inset int) {
	src := tile.Image
	if src == nil {
		src = c.placeholder
	}
	dst := image.Rect(x, y, x+w, y+h)
	if tile.Placeholder {
		draw.Draw(canvas, dst, scaleTo(src, w, h), image.Point{}, draw.Over)
		return
	}
	scaled := insetImage(scaleTo(src, w, h), w, h, inset)
	draw.Draw(canvas, dst, scaled, image.Point{}, draw.Over)
	draw.Draw(canvas, dst, c.frameFor(tile.Card, w, h), image.Point{}, draw.Over)
}

func (c *Composer) drawBackground(canvas *image.RGBA) {
	if c.background != nil {
		draw.Draw(canvas, canvas.Bounds(), scaleTo(c.background, canvasW, canvasH), image.Point{}, draw.Src)
		return
	}
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.RGBA{R: 0x23, G: 0x2B, B: 0x3A, A: 0xFF}), image.Point{}, draw.Src)
}

// frameFor returns the frame overlay for a card at the given tile size.
func (c *Composer) frameFor(card domain.CardID, w, h int) image.Image {
	asset := c.frameNormal
	tint := color.RGBA{R: 0xC8, G: 0xA8, B: 0x64, A: 0xFF}
	if card.Esoteric() {
		asset = c.frameEsoteric
		tint = color.RGBA{R: 0x7A, G: 0x5C, B: 0xC8, A: 0xFF}
	}
	if asset != nil {
		return scaleTo(asset, w, h)
	}
	return borderFrame(w, h, tint)
}

// scaleTo resizes src to exactly w x h.
func scaleTo(src image.Image, w, h int) image.Image {
	b := src.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return src
	}
	return resize.Resize(uint(w), uint(h), src, resize.Lanczos3)
}

// insetImage shrinks img by pad on every side, centered on a transparent
// w x h canvas, leaving room for the frame overlay.
func insetImage(img image.Image, w, h, pad int) image.Image {
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	inner := scaleTo(img, w-2*pad, h-2*pad)
	draw.Draw(out, image.Rect(pad, pad, w-pad, h-pad), inner, image.Point{}, draw.Src)
	return out
}

// borderFrame draws a transparent w x h image with a solid border ring.
func borderFrame(w, h int, tint color.RGBA) image.Image {
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for t := 0; t < frameThickness; t++ {
		for x := 0; x < w; x++ {
			out.SetRGBA(x, t, tint)
			out.SetRGBA(x, h-1-t, tint)
		}
		for y := 0; y < h; y++ {
			out.SetRGBA(t, y, tint)
			out.SetRGBA(w-1-t, y, tint)
		}
	}
	return out
}

// proceduralPlaceholder is the default "no artwork" tile: a dark panel with
// a lighter inner field.
func proceduralPlaceholder() image.Image {
	const w, h = 142, 232
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.RGBA{R: 0x3A, G: 0x3F, B: 0x4A, A: 0xFF}), image.Point{}, draw.Src)
	draw.Draw(out, image.Rect(6, 6, w-6, h-6), image.NewUniform(color.RGBA{R: 0x4C, G: 0x52, B: 0x60, A: 0xFF}), image.Point{}, draw.Src)
	return out
}

func loadPNG(path string) (image.Image, error) {
	f, err := os.Open(path) // #nosec G304 path is a configured assets dir plus a fixed name
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return png.Decode(f)
}
