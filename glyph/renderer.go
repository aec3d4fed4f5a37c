package glyph

import (
	"github.com/gogpu/termgrid"
)

// Renderer drives the full cell pipeline: shape a cluster, allocate
// atlas positions for its cells and upload coverage masks for positions
// not yet in the atlas.
//
// Renderer must be used from the rendering goroutine, like the context
// it uploads through.
type Renderer struct {
	face    *Face
	shaper  *Shaper
	tracker *Tracker
}

// NewRenderer creates a renderer for one face.
func NewRenderer(face *Face) *Renderer {
	return &Renderer{
		face:    face,
		shaper:  NewShaper(),
		tracker: NewTracker(),
	}
}

// Tracker returns the renderer's sprite tracker; pass it to the render
// context's configuration.
func (r *Renderer) Tracker() *Tracker { return r.tracker }

// Face returns the renderer's face.
func (r *Renderer) Face() *Face { return r.face }

// Shaper returns the renderer's shaper.
func (r *Renderer) Shaper() *Shaper { return r.shaper }

// SpritesFor returns the atlas positions of a cluster occupying cells
// grid cells, rasterizing and uploading any cell not yet in the atlas.
func (r *Renderer) SpritesFor(ctx *termgrid.Context, text string, cells int) ([]Position, error) {
	if cells < 1 {
		cells = 1
	}

	var gid uint32
	if shaped := r.shaper.Shape(r.face, text); len(shaped) > 0 {
		gid = shaped[0].GID
	}

	cellWidth, cellHeight := r.tracker.CellSize()
	positions := make([]Position, cells)
	for i := 0; i < cells; i++ {
		key := Key{Face: r.face.id, Glyph: gid, Cell: uint16(i)}
		pos, isNew, err := r.tracker.PositionFor(key)
		if err != nil {
			return nil, err
		}
		if isNew {
			mask := r.face.RenderCell(text, cellWidth, cellHeight, cells, i)
			if err := ctx.UploadSprite(int(pos.X), int(pos.Y), int(pos.Z), mask); err != nil {
				return nil, err
			}
		}
		positions[i] = pos
	}
	return positions, nil
}
