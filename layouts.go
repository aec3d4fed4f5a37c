package termgrid

import "fmt"

// programLayout caches the reflected CellRenderData layout of one cell
// program variant.
type programLayout struct {
	blockIndex int
	blockSize  int

	colorTableSize   int
	colorTableOffset int
	colorTableStride int
}

// cellAttributeLocations is the vertex attribute convention all cell
// program variants must follow. The cell vertex array is shared across
// the variants, so a program that reflects different locations cannot be
// driven by it.
var cellAttributeLocations = []struct {
	name     string
	location int
}{
	{"colors", 0},
	{"sprite_coords", 1},
	{"is_selected", 2},
}

// InitCellPrograms resolves and validates the uniform-block layout and
// attribute locations of the four cell program variants. All four must be
// registered first. A layout that diverges from the shared convention is
// an unrecoverable configuration error: the shaders were edited
// incompatibly with the renderer.
func (c *Context) InitCellPrograms() error {
	if c.closed {
		return ErrContextClosed
	}
	for slot := CellProgram; slot <= CellForegroundProgram; slot++ {
		p := c.programs[slot]
		if p == nil {
			return fmt.Errorf("%w: %v", ErrNoProgram, slot)
		}

		idx, err := p.UniformBlockIndex("CellRenderData")
		if err != nil {
			return configErrorf("program %v: %v", slot, err)
		}
		size, err := p.UniformBlockSize(idx)
		if err != nil {
			return configErrorf("program %v: %v", slot, err)
		}
		tSize, tOffset, tStride, err := p.UniformArrayInfo("color_table[0]")
		if err != nil {
			return configErrorf("program %v: %v", slot, err)
		}
		if tSize != 256 {
			return configErrorf("program %v: color_table has %d entries, want 256", slot, tSize)
		}

		for _, a := range cellAttributeLocations {
			loc := p.AttributeLocation(a.name)
			// Variants that do not read an attribute report -1; the
			// compiler is free to eliminate it.
			if loc != -1 && loc != a.location {
				return configErrorf("program %v: attribute %q is at location %d, want %d",
					slot, a.name, loc, a.location)
			}
		}

		c.cellLayouts[slot] = programLayout{
			blockIndex:       idx,
			blockSize:        size,
			colorTableSize:   tSize,
			colorTableOffset: tOffset,
			colorTableStride: tStride,
		}
	}
	return nil
}

// InitCursorProgram resolves the cursor program's uniform locations and
// creates its vertex array. The program must expose exactly the uniforms
// "color" and "pos"; anything else means the shader and renderer have
// drifted apart.
func (c *Context) InitCursorProgram() error {
	if c.closed {
		return ErrContextClosed
	}
	p := c.programs[CursorProgram]
	if p == nil {
		return fmt.Errorf("%w: %v", ErrNoProgram, CursorProgram)
	}

	left := 2
	for _, u := range p.Uniforms() {
		switch u.Name {
		case "color":
			c.cursorColorLoc = u.Location
		case "pos":
			c.cursorPosLoc = u.Location
		default:
			return configErrorf("cursor program has unknown uniform %q", u.Name)
		}
		left--
	}
	if left != 0 {
		return configErrorf("cursor program has %d uniforms, want 2", len(p.Uniforms()))
	}

	vao, err := c.dev.CreateVertexArray()
	if err != nil {
		return fmt.Errorf("termgrid: creating cursor vertex array: %w", err)
	}
	c.cursorVAO = vao
	return nil
}

// Border rect vertex layout: four uint32 bounds then one uint32 color,
// 20 bytes per instance.
const borderRectStride = 20

// InitBordersProgram resolves the borders program's viewport uniform and
// creates its vertex array with the instanced rect attributes.
func (c *Context) InitBordersProgram() error {
	if c.closed {
		return ErrContextClosed
	}
	p := c.programs[BordersProgram]
	if p == nil {
		return fmt.Errorf("%w: %v", ErrNoProgram, BordersProgram)
	}

	left := 1
	for _, u := range p.Uniforms() {
		switch u.Name {
		case "viewport":
			c.borderViewportLoc = u.Location
		default:
			return configErrorf("borders program has unknown uniform %q", u.Name)
		}
		left--
	}
	if left != 0 {
		return configErrorf("borders program has %d uniforms, want 1", len(p.Uniforms()))
	}

	vao, err := c.dev.CreateVertexArray()
	if err != nil {
		return fmt.Errorf("termgrid: creating borders vertex array: %w", err)
	}
	if _, err := c.dev.AddVertexBuffer(vao, ArrayBuffer); err != nil {
		c.dev.RemoveVertexArray(vao)
		return err
	}
	if err := c.dev.DefineAttribute(p, vao, AttributeSpec{
		Name: "rect", Size: 4, Type: AttrUint32,
		Stride: borderRectStride, Offset: 0, Divisor: 1,
	}); err != nil {
		c.dev.RemoveVertexArray(vao)
		return err
	}
	if err := c.dev.DefineAttribute(p, vao, AttributeSpec{
		Name: "rect_color", Size: 1, Type: AttrUint32,
		Stride: borderRectStride, Offset: 16, Divisor: 1,
	}); err != nil {
		c.dev.RemoveVertexArray(vao)
		return err
	}

	c.borderVAO = vao
	if c.borderRects == nil {
		c.borderRects = make([]BorderRect, 0, BorderRectCapacity)
	}
	return nil
}
