// Package glyph turns terminal cell text into sprite atlas entries: it
// shapes cell clusters with HarfBuzz (go-text/typesetting), rasterizes
// them to single-channel coverage masks, and tracks which atlas position
// each rendered cell occupies.
package glyph

import (
	"fmt"
	"math"
)

// Position is a sprite's location in the atlas: column, row and layer.
type Position struct {
	X, Y, Z uint16
}

// Key identifies one rendered cell in the atlas: the face it was drawn
// with, the first glyph of its cluster and which cell of a multi-cell
// glyph it is.
type Key struct {
	Face  uint64
	Glyph uint32
	Cell  uint16
}

// Tracker allocates sprite atlas positions. Positions are handed out
// row-major: columns first, then rows, then layers. The column count is
// fixed by the texture size limit at SetLayout time, so the atlas only
// ever grows downward and into new layers; the renderer's
// content-preserving reallocation depends on the width staying constant.
//
// Tracker is not safe for concurrent use.
type Tracker struct {
	maxTextureSize int
	maxLayers      int

	cellWidth  int
	cellHeight int

	xnum    int
	maxYnum int
	ynum    int

	x, y, z int

	positions map[Key]Position
}

// NewTracker creates an empty tracker. SetLimits and SetLayout must be
// called before positions are issued.
func NewTracker() *Tracker {
	return &Tracker{positions: make(map[Key]Position)}
}

// SetLimits records the hardware texture limits.
func (t *Tracker) SetLimits(maxTextureSize, maxArrayLayers int) {
	t.maxTextureSize = maxTextureSize
	t.maxLayers = maxArrayLayers
}

// SetLayout resets the tracker for a new cell size. All previously
// issued positions become invalid.
func (t *Tracker) SetLayout(cellWidth, cellHeight int) {
	if cellWidth < 1 {
		cellWidth = 1
	}
	if cellHeight < 1 {
		cellHeight = 1
	}
	t.cellWidth = cellWidth
	t.cellHeight = cellHeight

	t.xnum = clampDim(t.maxTextureSize / cellWidth)
	t.maxYnum = clampDim(t.maxTextureSize / cellHeight)
	t.ynum = 1
	t.x, t.y, t.z = 0, 0, 0
	t.positions = make(map[Key]Position)
}

func clampDim(n int) int {
	if n < 1 {
		return 1
	}
	if n > math.MaxUint16 {
		return math.MaxUint16
	}
	return n
}

// CurrentLayout returns the atlas columns, rows and highest layer index
// in use.
func (t *Tracker) CurrentLayout() (xnum, ynum, z int) {
	return t.xnum, t.ynum, t.z
}

// CellSize returns the layout's cell size.
func (t *Tracker) CellSize() (width, height int) {
	return t.cellWidth, t.cellHeight
}

// Len returns the number of issued positions.
func (t *Tracker) Len() int { return len(t.positions) }

// PositionFor returns the atlas position for a key, allocating the next
// free slot when the key is new. isNew reports whether the caller must
// rasterize and upload the sprite. Allocation fails once the layer limit
// is exhausted.
func (t *Tracker) PositionFor(key Key) (pos Position, isNew bool, err error) {
	if p, ok := t.positions[key]; ok {
		return p, false, nil
	}
	if t.xnum == 0 {
		return Position{}, false, fmt.Errorf("glyph: tracker has no layout")
	}
	if t.maxLayers > 0 && t.z >= t.maxLayers {
		return Position{}, false, fmt.Errorf("glyph: sprite atlas is full (%d layers)", t.maxLayers)
	}

	pos = Position{X: uint16(t.x), Y: uint16(t.y), Z: uint16(t.z)}
	t.positions[key] = pos

	t.x++
	if t.x >= t.xnum {
		t.x = 0
		t.y++
		if t.y+1 > t.ynum {
			t.ynum = t.y + 1
		}
		if t.y >= t.maxYnum {
			t.y = 0
			t.z++
		}
	}
	return pos, true, nil
}
