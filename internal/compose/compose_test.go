package compose

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcgtools/deckimg/internal/app"
	"github.com/tcgtools/deckimg/internal/domain"
)

func solidTile(c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 40, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func fullDeck() []app.Tile {
	tiles := make([]app.Tile, domain.DeckSize)
	for i := range tiles {
		tiles[i] = app.Tile{Image: solidTile(color.RGBA{R: 200, A: 255}), Card: domain.CardID(100000 + i)}
	}
	return tiles
}

func TestComposeProducesPNGCanvas(t *testing.T) {
	c, err := New("")
	require.NoError(t, err)

	out, err := c.Compose(fullDeck())
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, canvasW, img.Bounds().Dx())
	assert.Equal(t, canvasH, img.Bounds().Dy())
}

func TestComposeWithPlaceholders(t *testing.T) {
	c, err := New("")
	require.NoError(t, err)

	tiles := fullDeck()
	tiles[0] = app.Tile{Placeholder: true}
	tiles[32] = app.Tile{Placeholder: true}
	// A fetch that degraded still carries no image.
	tiles[10] = app.Tile{Card: 330005, Placeholder: true}

	out, err := c.Compose(tiles)
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(out))
	assert.NoError(t, err)
}

func TestComposeRejectsWrongTileCount(t *testing.T) {
	c, err := New("")
	require.NoError(t, err)
	for _, n := range []int{0, 32, 34} {
		_, err := c.Compose(make([]app.Tile, n))
		assert.Error(t, err, "tile count %d", n)
	}
}

func TestComposeDeterministic(t *testing.T) {
	c, err := New("")
	require.NoError(t, err)
	a, err := c.Compose(fullDeck())
	require.NoError(t, err)
	b, err := c.Compose(fullDeck())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNewLoadsAssetOverrides(t *testing.T) {
	dir := t.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "placeholder.png"), buf.Bytes(), 0o600))

	c, err := New(dir)
	require.NoError(t, err)
	assert.Equal(t, 10, c.Placeholder().Bounds().Dx(), "asset should override the procedural placeholder")

	// Corrupt asset files are a hard error, not a silent fallback.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frame.png"), []byte("junk"), 0o600))
	_, err = New(dir)
	assert.Error(t, err)
}

func TestNewMissingAssetsDirFallsBack(t *testing.T) {
	c, err := New(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.NotNil(t, c.Placeholder())
}
