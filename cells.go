package termgrid

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Buffer indices within the cell vertex array.
const (
	cellDataBuffer    = 0
	selectionBuffer   = 1
	cellUniformBuffer = 2
)

// CreateCellVertexArray creates the vertex array used by the cell program
// variants: the per-cell instance buffer, the selection mask buffer and
// the uniform buffer backing the CellRenderData block. InitCellPrograms
// must have run first so the block size is known.
func (c *Context) CreateCellVertexArray() (VertexArrayID, error) {
	if c.closed {
		return InvalidID, ErrContextClosed
	}
	p := c.programs[CellProgram]
	layout := c.cellLayouts[CellProgram]
	if p == nil || layout.blockSize == 0 {
		return InvalidID, fmt.Errorf("%w: cell programs not initialized", ErrNoProgram)
	}

	vao, err := c.dev.CreateVertexArray()
	if err != nil {
		return InvalidID, err
	}
	fail := func(err error) (VertexArrayID, error) {
		c.dev.RemoveVertexArray(vao)
		return InvalidID, err
	}

	if _, err := c.dev.AddVertexBuffer(vao, ArrayBuffer); err != nil {
		return fail(err)
	}
	if err := c.dev.DefineAttribute(p, vao, AttributeSpec{
		Name: "sprite_coords", Size: 4, Type: AttrUint16,
		Stride: GPUCellSize, Offset: gpuCellSpriteOffset, Divisor: 1,
	}); err != nil {
		return fail(err)
	}
	if err := c.dev.DefineAttribute(p, vao, AttributeSpec{
		Name: "colors", Size: 3, Type: AttrUint32,
		Stride: GPUCellSize, Offset: gpuCellColorOffset, Divisor: 1,
	}); err != nil {
		return fail(err)
	}

	if _, err := c.dev.AddVertexBuffer(vao, ArrayBuffer); err != nil {
		return fail(err)
	}
	if err := c.dev.DefineAttribute(p, vao, AttributeSpec{
		Name: "is_selected", Size: 1, Type: AttrFloat32, Divisor: 1,
	}); err != nil {
		return fail(err)
	}

	if _, err := c.dev.AddVertexBuffer(vao, UniformBuffer); err != nil {
		return fail(err)
	}
	if err := c.dev.AllocBuffer(vao, cellUniformBuffer, layout.blockSize, StreamDraw); err != nil {
		return fail(err)
	}

	return vao, nil
}

// CreateGraphicsVertexArray creates the vertex array streaming overlay
// quad vertices into the graphics program.
func (c *Context) CreateGraphicsVertexArray() (VertexArrayID, error) {
	if c.closed {
		return InvalidID, ErrContextClosed
	}
	p := c.programs[GraphicsProgram]
	if p == nil {
		return InvalidID, fmt.Errorf("%w: %v", ErrNoProgram, GraphicsProgram)
	}
	vao, err := c.dev.CreateVertexArray()
	if err != nil {
		return InvalidID, err
	}
	if _, err := c.dev.AddVertexBuffer(vao, ArrayBuffer); err != nil {
		c.dev.RemoveVertexArray(vao)
		return InvalidID, err
	}
	if err := c.dev.DefineAttribute(p, vao, AttributeSpec{
		Name: "src", Size: 4, Type: AttrFloat32,
	}); err != nil {
		c.dev.RemoveVertexArray(vao)
		return InvalidID, err
	}
	return vao, nil
}

// cellUniforms mirrors the scalar header of the CellRenderData uniform
// block. The std140 byte offsets are fixed by the block declaration; the
// encode method writes them explicitly so the Go struct layout is
// irrelevant.
type cellUniforms struct {
	XStart, YStart     float32
	DX, DY             float32
	SpriteDX, SpriteDY float32

	DefaultFG, DefaultBG     uint32
	HighlightFG, HighlightBG uint32
	CursorColor, URLColor    uint32

	Color1, Color2 int32

	XNum, YNum                 uint32
	CursorX, CursorY, CursorW  uint32
	URLxl, URLyl, URLxr, URLyr uint32
}

func (u *cellUniforms) encode(dst []byte) {
	le := binary.LittleEndian
	putf := func(off int, v float32) { le.PutUint32(dst[off:], math.Float32bits(v)) }

	putf(0, u.XStart)
	putf(4, u.YStart)
	putf(8, u.DX)
	putf(12, u.DY)
	putf(16, u.SpriteDX)
	putf(20, u.SpriteDY)

	le.PutUint32(dst[24:], u.DefaultFG)
	le.PutUint32(dst[28:], u.DefaultBG)
	le.PutUint32(dst[32:], u.HighlightFG)
	le.PutUint32(dst[36:], u.HighlightBG)
	le.PutUint32(dst[40:], u.CursorColor)
	le.PutUint32(dst[44:], u.URLColor)

	le.PutUint32(dst[48:], uint32(u.Color1))
	le.PutUint32(dst[52:], uint32(u.Color2))

	le.PutUint32(dst[56:], u.XNum)
	le.PutUint32(dst[60:], u.YNum)
	le.PutUint32(dst[64:], u.CursorX)
	le.PutUint32(dst[68:], u.CursorY)
	le.PutUint32(dst[72:], u.CursorW)
	le.PutUint32(dst[76:], u.URLxl)
	le.PutUint32(dst[80:], u.URLyl)
	le.PutUint32(dst[84:], u.URLxr)
	le.PutUint32(dst[88:], u.URLyr)
}

// updateCellUniforms rewrites the CellRenderData block for this frame.
// The scalar header is rewritten unconditionally; the 256-entry color
// table only when the profile marked it dirty.
func (c *Context) updateCellUniforms(vao VertexArrayID, screen Screen, xstart, ystart, dx, dy float32, cursor *CursorRenderInfo) error {
	layout := c.cellLayouts[CellProgram]
	buf, err := c.dev.MapBuffer(vao, cellUniformBuffer)
	if err != nil {
		return err
	}

	lines, columns := screen.Size()
	profile := screen.ColorProfile()
	xnum, ynum, _ := c.tracker.CurrentLayout()

	u := cellUniforms{
		XStart:      xstart,
		YStart:      ystart,
		DX:          dx,
		DY:          dy,
		SpriteDX:    1 / float32(xnum),
		SpriteDY:    1 / float32(ynum),
		DefaultFG:   profile.DefaultFG(),
		DefaultBG:   profile.DefaultBG(),
		HighlightFG: profile.HighlightFG(),
		HighlightBG: profile.HighlightBG(),
		CursorColor: profile.CursorColor(),
		URLColor:    profile.URLColor(),
		XNum:        uint32(columns),
		YNum:        uint32(lines),
	}

	if screen.InvertColors() {
		u.Color1, u.Color2 = 1, 0
	} else {
		u.Color1, u.Color2 = 0, 1
	}

	// An invisible or non-block cursor is parked one cell past the grid so
	// the shader's cursor test never matches.
	if cursor.IsVisible && cursor.Shape == CursorBlock {
		x, y := screen.CursorPosition()
		w := screen.CurrentCharWidth()
		if w < 1 {
			w = 1
		}
		u.CursorX = uint32(x)
		u.CursorY = uint32(y)
		u.CursorW = u.CursorX + uint32(w) - 1
	} else {
		u.CursorX = uint32(columns)
		u.CursorY = uint32(lines)
		u.CursorW = u.CursorX
	}

	u.URLxl, u.URLyl, u.URLxr, u.URLyr = screen.URLRange()

	u.encode(buf)
	if profile.Dirty() {
		profile.WriteColorTable(buf, layout.colorTableOffset, layout.colorTableStride)
	}

	return c.dev.UnmapBuffer(vao, cellUniformBuffer)
}

// prepareCells streams this frame's dirty data to the GPU and binds the
// cell state: sprite atlas, uniform block and vertex array.
func (c *Context) prepareCells(vao, gvao VertexArrayID, screen Screen, xstart, ystart, dx, dy float32, cursor *CursorRenderInfo) error {
	if err := c.EnsureSpriteMap(); err != nil {
		return err
	}
	lines, columns := screen.Size()
	cells := lines * columns

	if screen.ContentDirty() {
		buf, err := c.dev.AllocAndMapBuffer(vao, cellDataBuffer, cells*GPUCellSize, StreamDraw)
		if err != nil {
			return err
		}
		screen.WriteCellData(buf)
		if err := c.dev.UnmapBuffer(vao, cellDataBuffer); err != nil {
			return err
		}
	}

	if screen.SelectionDirty() {
		buf, err := c.dev.AllocAndMapBuffer(vao, selectionBuffer, cells*4, StreamDraw)
		if err != nil {
			return err
		}
		if cap(c.selectionScratch) < cells {
			c.selectionScratch = make([]float32, cells)
		}
		sel := c.selectionScratch[:cells]
		screen.WriteSelection(sel)
		for i, v := range sel {
			binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
		}
		if err := c.dev.UnmapBuffer(vao, selectionBuffer); err != nil {
			return err
		}
	}

	if gm := screen.Graphics(); gm != nil && gvao != InvalidID {
		if gm.UpdateLayers(screen.ScrolledBy(), xstart, ystart, dx, dy, columns, lines) {
			data := gm.RenderData()
			buf, err := c.dev.AllocAndMapBuffer(gvao, 0, len(data)*16*4, StreamDraw)
			if err != nil {
				return err
			}
			for i, rd := range data {
				for j, v := range rd.Vertices {
					binary.LittleEndian.PutUint32(buf[(i*16+j)*4:], math.Float32bits(v))
				}
			}
			if err := c.dev.UnmapBuffer(gvao, 0); err != nil {
				return err
			}
		}
	}

	if err := c.updateCellUniforms(vao, screen, xstart, ystart, dx, dy, cursor); err != nil {
		return err
	}
	if err := c.dev.BindUniformBuffer(vao, cellUniformBuffer, c.cellLayouts[CellProgram].blockIndex); err != nil {
		return err
	}
	c.dev.BindVertexArray(vao)
	return nil
}

// bindCellProgram binds a cell program variant, setting its sampler
// constant on first use.
func (c *Context) bindCellProgram(slot ProgramSlot) {
	p := c.programs[slot]
	c.dev.BindProgram(p)
	if !c.constantsSet[slot] {
		if loc := p.UniformLocation("sprites"); loc >= 0 {
			c.dev.Uniform1i(loc, SpriteMapUnit)
		}
		c.constantsSet[slot] = true
	}
}

// drawAllCells draws the whole grid in a single pass with the combined
// cell program, then any overlay images on top.
func (c *Context) drawAllCells(vao, gvao VertexArrayID, screen Screen) error {
	lines, columns := screen.Size()
	c.bindCellProgram(CellProgram)
	c.dev.DrawArraysInstanced(TriangleFan, 0, 4, lines*columns)

	if gm := screen.Graphics(); gm != nil {
		if data := gm.RenderData(); len(data) > 0 {
			return c.drawGraphics(vao, gvao, data, 0, len(data))
		}
	}
	return nil
}

// drawCellsInterleaved splits the grid into background, decoration and
// foreground passes so overlay images with negative z render beneath the
// text but above the cell backgrounds.
func (c *Context) drawCellsInterleaved(vao, gvao VertexArrayID, screen Screen, gm GraphicsManager) error {
	lines, columns := screen.Size()
	cells := lines * columns
	data := gm.RenderData()
	neg := gm.NegativeCount()

	c.bindCellProgram(CellBackgroundProgram)
	c.dev.DrawArraysInstanced(TriangleFan, 0, 4, cells)

	if neg > 0 {
		if err := c.drawGraphics(vao, gvao, data, 0, neg); err != nil {
			return err
		}
	}

	c.bindCellProgram(CellSpecialProgram)
	c.dev.DrawArraysInstanced(TriangleFan, 0, 4, cells)

	// Glyph coverage is premultiplied; composite it over whatever the
	// earlier passes produced.
	c.bindCellProgram(CellForegroundProgram)
	c.dev.SetBlend(BlendPremultiplied)
	c.dev.DrawArraysInstanced(TriangleFan, 0, 4, cells)
	c.dev.SetBlend(BlendSourceOver)

	if pos := gm.PositiveCount(); pos > 0 {
		if err := c.drawGraphics(vao, gvao, data, neg, pos); err != nil {
			return err
		}
	}
	return nil
}

// DrawCells renders one frame of the cell grid: it scissors to the grid's
// screen region, streams dirty state, then draws either the single
// combined pass or the interleaved passes depending on whether any
// overlay image must appear beneath the text.
//
// xstart/ystart are the grid's top-left corner in NDC, dx/dy the cell
// size in NDC.
func (c *Context) DrawCells(vao, gvao VertexArrayID, xstart, ystart, dx, dy float32, screen Screen, cursor *CursorRenderInfo) error {
	if c.closed {
		return ErrContextClosed
	}

	lines, columns := screen.Size()
	h := float32(lines) * dy
	vw := float32(c.viewportWidth)
	vh := float32(c.viewportHeight)
	// Width and height keep float32 precision until the ceil so an inexact
	// dx does not round a full-viewport grid up past the framebuffer.
	c.dev.Scissor(
		int(vw*(xstart+1)/2),
		int(vh*((ystart-h)+1)/2),
		int(math.Ceil(float64(vw*float32(columns)*dx/2))),
		int(math.Ceil(float64(vh*h/2))),
	)
	c.setScissor(true)
	defer c.setScissor(false)

	if err := c.prepareCells(vao, gvao, screen, xstart, ystart, dx, dy, cursor); err != nil {
		return err
	}

	var err error
	if gm := screen.Graphics(); gm != nil && gm.NegativeCount() > 0 {
		err = c.drawCellsInterleaved(vao, gvao, screen, gm)
	} else {
		err = c.drawAllCells(vao, gvao, screen)
	}

	c.dev.UnbindVertexArray()
	c.dev.UnbindProgram()
	return err
}
