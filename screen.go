package termgrid

import "encoding/binary"

// GPUCell is the per-cell instance record streamed into the cell vertex
// buffer: four 16-bit sprite coordinates followed by three 32-bit colors.
// The layout must match the cell programs' vertex attributes
// (sprite_coords at location 1, colors at location 0).
type GPUCell struct {
	SpriteX, SpriteY, SpriteZ, SpriteW uint16

	FG, BG, DecorationFG uint32
}

// GPUCellSize is the byte size of one GPUCell record.
const GPUCellSize = 20

// Byte offsets of the attribute groups within a GPUCell record.
const (
	gpuCellSpriteOffset = 0
	gpuCellColorOffset  = 8
)

// PutGPUCell encodes one cell record at the front of dst, which must be at
// least GPUCellSize bytes.
func PutGPUCell(dst []byte, c GPUCell) {
	le := binary.LittleEndian
	le.PutUint16(dst[0:], c.SpriteX)
	le.PutUint16(dst[2:], c.SpriteY)
	le.PutUint16(dst[4:], c.SpriteZ)
	le.PutUint16(dst[6:], c.SpriteW)
	le.PutUint32(dst[8:], c.FG)
	le.PutUint32(dst[12:], c.BG)
	le.PutUint32(dst[16:], c.DecorationFG)
}

// Screen is the terminal state the renderer reads each frame. It is owned
// by the terminal emulation layer; the renderer never mutates it except to
// clear dirty flags via the Write* methods' implied contract.
type Screen interface {
	// Size returns the grid dimensions.
	Size() (lines, columns int)

	// ContentDirty reports whether cell content changed since the last
	// frame (content edits or scroll shifts). When true the renderer
	// re-streams the full cell grid.
	ContentDirty() bool

	// WriteCellData streams lines*columns GPUCell records into dst
	// (len(dst) == lines*columns*GPUCellSize) and clears the content dirty
	// state.
	WriteCellData(dst []byte)

	// SelectionDirty reports whether the selection mask changed.
	SelectionDirty() bool

	// WriteSelection writes one float per cell (1.0 selected, 0.0 not)
	// and clears the selection dirty state.
	WriteSelection(dst []float32)

	// ColorProfile returns the screen's color profile.
	ColorProfile() *ColorProfile

	// InvertColors reports whether the screen is in reverse-video mode.
	InvertColors() bool

	// CursorPosition returns the cursor cell coordinates.
	CursorPosition() (x, y int)

	// CurrentCharWidth returns the width in cells of the character under
	// the cursor (at least 1 for rendering purposes).
	CurrentCharWidth() int

	// URLRange returns the cell range of the highlighted URL, if any.
	URLRange() (xl, yl, xr, yr uint32)

	// ScrolledBy returns the scrollback offset in lines.
	ScrolledBy() int

	// Graphics returns the image overlay manager, or nil if the screen has
	// no overlay images.
	Graphics() GraphicsManager
}

// ImageRenderData is one overlay quad: 16 floats of baked vertex data
// (4 vertices x position+texcoord), the texture it samples, and the number
// of consecutive quads in the render list that share that texture.
// GroupCount is only meaningful on the first quad of each group.
type ImageRenderData struct {
	Vertices   [16]float32
	Texture    TextureID
	GroupCount uint32
}

// GraphicsManager produces the ordered, z-partitioned overlay quad list.
// Quads are ordered negative z-group first (drawn beneath the glyph
// foreground), then positive (drawn on top).
type GraphicsManager interface {
	// UpdateLayers recomputes overlay layering for the current scroll
	// offset and viewport transform. It returns true when the quad
	// vertex data changed and must be re-uploaded.
	UpdateLayers(scrolledBy int, xstart, ystart, dx, dy float32, columns, lines int) bool

	// RenderData returns the ordered quad list.
	RenderData() []ImageRenderData

	// NegativeCount returns the number of quads that must render beneath
	// the glyph foreground.
	NegativeCount() int

	// PositiveCount returns the number of quads that render above it.
	PositiveCount() int
}

// CursorShape enumerates cursor shapes.
type CursorShape int

// Cursor shapes.
const (
	CursorBlock CursorShape = iota
	CursorBeam
	CursorUnderline
)

// CursorRenderInfo is the cursor state the renderer needs each frame.
// Left/Top/Right/Bottom are the cursor cell bounds in NDC.
type CursorRenderInfo struct {
	IsVisible bool
	Shape     CursorShape
	Color     uint32

	Left, Top, Right, Bottom float32
}

// OptionalColor is a color override: Set reports whether the override is
// active.
type OptionalColor struct {
	Set   bool
	Color uint32
}

// ColorScheme holds the named color slots of a profile.
type ColorScheme struct {
	DefaultFG, DefaultBG     uint32
	HighlightFG, HighlightBG uint32
	CursorColor, URLColor    uint32
}

// ColorProfile is a screen's color configuration: a 256-entry color table
// plus configured and overridden named slots. The dirty flag gates the
// color-table upload; the table is only rewritten into the uniform block
// when it changed, as a bandwidth optimization.
type ColorProfile struct {
	// Table is the 256-entry indexed color table (0xRRGGBB).
	Table [256]uint32

	// Configured holds the colors from configuration.
	Configured ColorScheme

	// Overridden holds runtime overrides (escape codes).
	Overridden struct {
		DefaultFG, DefaultBG     OptionalColor
		HighlightFG, HighlightBG OptionalColor
		CursorColor, URLColor    OptionalColor
	}

	dirty bool
}

// MarkDirty flags the color table for re-upload on the next frame.
func (p *ColorProfile) MarkDirty() { p.dirty = true }

// Dirty reports whether the color table needs re-upload.
func (p *ColorProfile) Dirty() bool { return p.dirty }

// clearDirty resets the dirty flag after the table has been written.
func (p *ColorProfile) clearDirty() { p.dirty = false }

// resolve returns the override when set, the configured color otherwise.
func resolve(o OptionalColor, configured uint32) uint32 {
	if o.Set {
		return o.Color
	}
	return configured
}

// DefaultFG returns the effective default foreground color.
func (p *ColorProfile) DefaultFG() uint32 {
	return resolve(p.Overridden.DefaultFG, p.Configured.DefaultFG)
}

// DefaultBG returns the effective default background color.
func (p *ColorProfile) DefaultBG() uint32 {
	return resolve(p.Overridden.DefaultBG, p.Configured.DefaultBG)
}

// HighlightFG returns the effective selection foreground color.
func (p *ColorProfile) HighlightFG() uint32 {
	return resolve(p.Overridden.HighlightFG, p.Configured.HighlightFG)
}

// HighlightBG returns the effective selection background color.
func (p *ColorProfile) HighlightBG() uint32 {
	return resolve(p.Overridden.HighlightBG, p.Configured.HighlightBG)
}

// CursorColor returns the effective cursor color.
func (p *ColorProfile) CursorColor() uint32 {
	return resolve(p.Overridden.CursorColor, p.Configured.CursorColor)
}

// URLColor returns the effective URL underline color.
func (p *ColorProfile) URLColor() uint32 {
	return resolve(p.Overridden.URLColor, p.Configured.URLColor)
}

// WriteColorTable writes the 256 table entries into a mapped uniform block
// at the reflected offset and array stride (both in bytes) and clears the
// dirty flag.
func (p *ColorProfile) WriteColorTable(dst []byte, offset, stride int) {
	for i, c := range p.Table {
		binary.LittleEndian.PutUint32(dst[offset+i*stride:], c)
	}
	p.clearDirty()
}

// SpriteTracker maps glyphs to sprite atlas positions. It is owned by the
// font/glyph layer; the renderer only consumes its layout and pushes the
// hardware limits to it once per context.
//
// The glyph subpackage provides the default implementation.
type SpriteTracker interface {
	// SetLimits records the hardware texture limits the layout must
	// respect.
	SetLimits(maxTextureSize, maxArrayLayers int)

	// SetLayout resets the tracker for a new cell size. All previously
	// issued positions become invalid.
	SetLayout(cellWidth, cellHeight int)

	// CurrentLayout returns the current atlas layout: columns, rows and
	// the highest layer index in use.
	CurrentLayout() (xnum, ynum, z int)
}
