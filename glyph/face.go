package glyph

import (
	"bytes"
	"fmt"
	"image"
	"math"
	"sync/atomic"

	gotext "github.com/go-text/typesetting/font"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var nextFaceID atomic.Uint64

// CellMetrics is the pixel geometry of one terminal cell derived from a
// face: the cell box and the baseline position within it.
type CellMetrics struct {
	Width    int
	Height   int
	Baseline int
}

// Face is one font at one pixel size, parsed twice: once for shaping
// (go-text) and once for rasterization (x/image opentype). Face is not
// safe for concurrent use; the shaping font it wraps is, but the
// rasterizing face keeps mutable glyph state.
type Face struct {
	id     uint64
	sizePx float64

	shapingFont *gotext.Font
	rasterFace  font.Face

	metrics CellMetrics
}

// NewFace parses TTF/OTF data and derives cell metrics at the given
// pixel size.
func NewFace(data []byte, sizePx float64) (*Face, error) {
	if sizePx <= 0 {
		return nil, fmt.Errorf("glyph: invalid font size %v", sizePx)
	}

	gf, err := gotext.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("glyph: parsing font for shaping: %w", err)
	}

	of, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("glyph: parsing font for rasterization: %w", err)
	}
	rf, err := opentype.NewFace(of, &opentype.FaceOptions{
		Size:    sizePx,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("glyph: creating raster face: %w", err)
	}

	f := &Face{
		id:          nextFaceID.Add(1),
		sizePx:      sizePx,
		shapingFont: gf.Font,
		rasterFace:  rf,
	}
	f.metrics = deriveCellMetrics(rf)
	return f, nil
}

// deriveCellMetrics computes the cell box from the face metrics: the
// cell is one advance of "0" wide and ascent+descent tall, with the
// baseline at the ascent.
func deriveCellMetrics(f font.Face) CellMetrics {
	m := f.Metrics()
	ascent := fixedCeil(m.Ascent)
	descent := fixedCeil(m.Descent)

	width := 0
	if adv, ok := f.GlyphAdvance('0'); ok {
		width = fixedCeil(adv)
	}
	if width < 1 {
		width = fixedCeil(m.Height) / 2
	}
	if width < 1 {
		width = 1
	}
	height := ascent + descent
	if height < 1 {
		height = 1
	}
	return CellMetrics{Width: width, Height: height, Baseline: ascent}
}

func fixedCeil(v fixed.Int26_6) int {
	return int(math.Ceil(float64(v) / 64))
}

// ID returns the face's unique identifier, used in sprite keys.
func (f *Face) ID() uint64 { return f.id }

// Size returns the pixel size the face was created at.
func (f *Face) Size() float64 { return f.sizePx }

// Metrics returns the cell geometry.
func (f *Face) Metrics() CellMetrics { return f.metrics }

// Close releases the raster face's internal buffers.
func (f *Face) Close() error {
	return f.rasterFace.Close()
}

// RenderCell rasterizes a cell cluster into a single-channel coverage
// mask of cellWidth*cellHeight bytes, drawing the text at the baseline.
// cells is the cluster's width in cells; cell selects which slice of a
// multi-cell cluster to return.
func (f *Face) RenderCell(text string, cellWidth, cellHeight, cells, cell int) []byte {
	if cells < 1 {
		cells = 1
	}
	if cell < 0 || cell >= cells {
		cell = 0
	}

	full := image.NewAlpha(image.Rect(0, 0, cellWidth*cells, cellHeight))
	d := font.Drawer{
		Dst:  full,
		Src:  image.White,
		Face: f.rasterFace,
		Dot: fixed.Point26_6{
			X: 0,
			Y: fixed.I(f.metrics.Baseline),
		},
	}
	d.DrawString(text)

	out := make([]byte, cellWidth*cellHeight)
	for row := 0; row < cellHeight; row++ {
		src := full.Pix[row*full.Stride+cell*cellWidth:]
		copy(out[row*cellWidth:(row+1)*cellWidth], src[:cellWidth])
	}
	return out
}
