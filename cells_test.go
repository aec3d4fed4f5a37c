package termgrid

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/gogpu/gputypes"
)

// fakeTracker is a SpriteTracker whose layout tests mutate directly.
type fakeTracker struct {
	maxTextureSize int
	maxLayers      int
	cellWidth      int
	cellHeight     int

	xnum, ynum, z int
}

func (f *fakeTracker) SetLimits(maxTextureSize, maxArrayLayers int) {
	f.maxTextureSize = maxTextureSize
	f.maxLayers = maxArrayLayers
}

func (f *fakeTracker) SetLayout(cellWidth, cellHeight int) {
	f.cellWidth = cellWidth
	f.cellHeight = cellHeight
	if f.xnum == 0 {
		f.xnum = 1
	}
	if f.ynum == 0 {
		f.ynum = 1
	}
}

func (f *fakeTracker) CurrentLayout() (int, int, int) { return f.xnum, f.ynum, f.z }

// testScreen is a configurable Screen.
type testScreen struct {
	lines, columns int

	contentDirty   bool
	selectionDirty bool
	cells          []GPUCell
	selection      []float32

	profile    ColorProfile
	inverted   bool
	cursorX    int
	cursorY    int
	charWidth  int
	urlRange   [4]uint32
	scrolledBy int

	graphics GraphicsManager
}

func newTestScreen(lines, columns int) *testScreen {
	s := &testScreen{
		lines:        lines,
		columns:      columns,
		contentDirty: true,
		charWidth:    1,
		cells:        make([]GPUCell, lines*columns),
	}
	s.profile.Configured = ColorScheme{
		DefaultFG:   0xdddddd,
		DefaultBG:   0x000000,
		HighlightFG: 0x111111,
		HighlightBG: 0xffff00,
		CursorColor: 0xcccccc,
		URLColor:    0x0087bd,
	}
	return s
}

func (s *testScreen) Size() (int, int)    { return s.lines, s.columns }
func (s *testScreen) ContentDirty() bool  { return s.contentDirty }
func (s *testScreen) WriteCellData(dst []byte) {
	for i, c := range s.cells {
		PutGPUCell(dst[i*GPUCellSize:], c)
	}
	s.contentDirty = false
}
func (s *testScreen) SelectionDirty() bool { return s.selectionDirty }
func (s *testScreen) WriteSelection(dst []float32) {
	copy(dst, s.selection)
	s.selectionDirty = false
}
func (s *testScreen) ColorProfile() *ColorProfile { return &s.profile }
func (s *testScreen) InvertColors() bool          { return s.inverted }
func (s *testScreen) CursorPosition() (int, int)  { return s.cursorX, s.cursorY }
func (s *testScreen) CurrentCharWidth() int       { return s.charWidth }
func (s *testScreen) URLRange() (uint32, uint32, uint32, uint32) {
	return s.urlRange[0], s.urlRange[1], s.urlRange[2], s.urlRange[3]
}
func (s *testScreen) ScrolledBy() int            { return s.scrolledBy }
func (s *testScreen) Graphics() GraphicsManager  { return s.graphics }

// testGraphics is a configurable GraphicsManager.
type testGraphics struct {
	data     []ImageRenderData
	negative int
	dirty    bool
}

func (g *testGraphics) UpdateLayers(int, float32, float32, float32, float32, int, int) bool {
	d := g.dirty
	g.dirty = false
	return d
}
func (g *testGraphics) RenderData() []ImageRenderData { return g.data }
func (g *testGraphics) NegativeCount() int            { return g.negative }
func (g *testGraphics) PositiveCount() int            { return len(g.data) - g.negative }

// newTestContext builds a context on a software device with all
// programs registered and initialized and the sprite map laid out.
func newTestContext(t *testing.T, cfg SoftwareConfig, tracker *fakeTracker) (*Context, *SoftwareDevice) {
	t.Helper()
	dev := NewSoftwareDevice(cfg)
	if tracker == nil {
		tracker = &fakeTracker{xnum: 1, ynum: 1}
	}
	ctx, err := NewContext(dev, ContextConfig{Tracker: tracker})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	t.Cleanup(ctx.Close)

	for slot := CellProgram; slot < NumPrograms; slot++ {
		if err := ctx.RegisterProgram(NewSoftwareProgram(slot)); err != nil {
			t.Fatalf("RegisterProgram(%v): %v", slot, err)
		}
	}
	if err := ctx.InitCellPrograms(); err != nil {
		t.Fatalf("InitCellPrograms: %v", err)
	}
	if err := ctx.InitCursorProgram(); err != nil {
		t.Fatalf("InitCursorProgram: %v", err)
	}
	if err := ctx.InitBordersProgram(); err != nil {
		t.Fatalf("InitBordersProgram: %v", err)
	}
	if err := ctx.LayoutSpriteMap(4, 6); err != nil {
		t.Fatalf("LayoutSpriteMap: %v", err)
	}
	return ctx, dev
}

func drawFrame(t *testing.T, ctx *Context, dev *SoftwareDevice, screen *testScreen) (VertexArrayID, VertexArrayID) {
	t.Helper()
	vao, err := ctx.CreateCellVertexArray()
	if err != nil {
		t.Fatalf("CreateCellVertexArray: %v", err)
	}
	gvao, err := ctx.CreateGraphicsVertexArray()
	if err != nil {
		t.Fatalf("CreateGraphicsVertexArray: %v", err)
	}
	dev.ResetCommands()
	cursor := &CursorRenderInfo{IsVisible: true, Shape: CursorBlock}
	if err := ctx.DrawCells(vao, gvao, -1, 1, 2/float32(screen.columns), 2/float32(screen.lines), screen, cursor); err != nil {
		t.Fatalf("DrawCells: %v", err)
	}
	return vao, gvao
}

func TestDrawCellsScissorCoversFullViewport(t *testing.T) {
	ctx, dev := newTestContext(t, SoftwareConfig{}, nil)
	ctx.SetViewportSize(800, 600)

	screen := newTestScreen(24, 80)
	drawFrame(t, ctx, dev, screen)

	x, y, w, h := dev.ScissorRect()
	if x != 0 || y != 0 || w != 800 || h != 600 {
		t.Errorf("scissor = (%d, %d, %d, %d), want (0, 0, 800, 600)", x, y, w, h)
	}
	if dev.ScissorEnabled() {
		t.Error("scissor still enabled after DrawCells")
	}
	for _, c := range dev.DrawCommands() {
		if !c.ScissorOn {
			t.Error("cell draw issued without scissor enabled")
		}
	}
}

func TestDrawCellsSinglePass(t *testing.T) {
	ctx, dev := newTestContext(t, SoftwareConfig{}, nil)
	ctx.SetViewportSize(800, 600)

	screen := newTestScreen(3, 7)
	drawFrame(t, ctx, dev, screen)

	draws := dev.DrawCommands()
	if len(draws) != 1 {
		t.Fatalf("got %d draws, want 1", len(draws))
	}
	d := draws[0]
	if d.Program != CellProgram || d.Mode != TriangleFan || d.Count != 4 || d.Instances != 21 {
		t.Errorf("draw = %+v, want cell program fan of 4 with 21 instances", d)
	}
}

func TestDrawCellsInterleavedPassOrder(t *testing.T) {
	ctx, dev := newTestContext(t, SoftwareConfig{}, nil)
	ctx.SetViewportSize(800, 600)

	tex := mustCreateTexture(t, dev, 8, 8)
	screen := newTestScreen(2, 2)
	screen.graphics = &testGraphics{
		dirty:    true,
		negative: 1,
		data: []ImageRenderData{
			{Texture: tex, GroupCount: 1},
			{Texture: tex, GroupCount: 1},
		},
	}
	drawFrame(t, ctx, dev, screen)

	draws := dev.DrawCommands()
	wantPrograms := []ProgramSlot{
		CellBackgroundProgram,
		GraphicsProgram,
		CellSpecialProgram,
		CellForegroundProgram,
		GraphicsProgram,
	}
	if len(draws) != len(wantPrograms) {
		t.Fatalf("got %d draws, want %d", len(draws), len(wantPrograms))
	}
	for i, want := range wantPrograms {
		if draws[i].Program != want {
			t.Errorf("draw %d ran %v, want %v", i, draws[i].Program, want)
		}
	}
	if draws[3].Blend != BlendPremultiplied {
		t.Errorf("foreground pass blend = %v, want premultiplied", draws[3].Blend)
	}
	if draws[0].Blend == BlendPremultiplied {
		t.Errorf("background pass unexpectedly premultiplied")
	}
}

func TestCellUniformBlockContents(t *testing.T) {
	tracker := &fakeTracker{xnum: 10, ynum: 5}
	ctx, dev := newTestContext(t, SoftwareConfig{}, tracker)
	ctx.SetViewportSize(800, 600)

	screen := newTestScreen(4, 10)
	screen.cursorX, screen.cursorY = 3, 2
	screen.charWidth = 2
	screen.urlRange = [4]uint32{1, 2, 3, 4}
	screen.profile.Table[7] = 0x123456
	screen.profile.MarkDirty()

	vao, _ := drawFrame(t, ctx, dev, screen)

	buf, err := dev.BufferBytes(vao, cellUniformBuffer)
	if err != nil {
		t.Fatalf("BufferBytes: %v", err)
	}
	le := binary.LittleEndian
	f32 := func(off int) float32 { return math.Float32frombits(le.Uint32(buf[off:])) }
	u32 := func(off int) uint32 { return le.Uint32(buf[off:]) }

	if got := f32(0); got != -1 {
		t.Errorf("xstart = %v, want -1", got)
	}
	if got := f32(16); got != 0.1 {
		t.Errorf("sprite_dx = %v, want 0.1", got)
	}
	if got := f32(20); got != 0.2 {
		t.Errorf("sprite_dy = %v, want 0.2", got)
	}
	if got := u32(24); got != 0xdddddd {
		t.Errorf("default_fg = %#x, want 0xdddddd", got)
	}
	if got, got2 := u32(48), u32(52); got != 0 || got2 != 1 {
		t.Errorf("color1/color2 = %d/%d, want 0/1", got, got2)
	}
	if got := u32(56); got != 10 {
		t.Errorf("xnum = %d, want 10", got)
	}
	if got := u32(60); got != 4 {
		t.Errorf("ynum = %d, want 4", got)
	}
	if got := u32(64); got != 3 {
		t.Errorf("cursor_x = %d, want 3", got)
	}
	if got := u32(72); got != 4 {
		t.Errorf("cursor_w = %d, want cursor_x+width-1 = 4", got)
	}
	if got := u32(76); got != 1 {
		t.Errorf("url_xl = %d, want 1", got)
	}
	if got := u32(softwareCellHeaderSize + 7*softwareColorTableStride); got != 0x123456 {
		t.Errorf("color_table[7] = %#x, want 0x123456", got)
	}
	if screen.profile.Dirty() {
		t.Error("color table still dirty after upload")
	}
}

func TestCellUniformCursorParkedWhenHidden(t *testing.T) {
	ctx, dev := newTestContext(t, SoftwareConfig{}, nil)
	ctx.SetViewportSize(800, 600)

	screen := newTestScreen(4, 10)
	screen.cursorX, screen.cursorY = 3, 2

	vao, err := ctx.CreateCellVertexArray()
	if err != nil {
		t.Fatalf("CreateCellVertexArray: %v", err)
	}
	cursor := &CursorRenderInfo{IsVisible: true, Shape: CursorBeam}
	if err := ctx.DrawCells(vao, InvalidID, -1, 1, 0.2, 0.5, screen, cursor); err != nil {
		t.Fatalf("DrawCells: %v", err)
	}

	buf, err := dev.BufferBytes(vao, cellUniformBuffer)
	if err != nil {
		t.Fatalf("BufferBytes: %v", err)
	}
	le := binary.LittleEndian
	if got := le.Uint32(buf[64:]); got != 10 {
		t.Errorf("cursor_x = %d, want parked at columns (10)", got)
	}
	if got := le.Uint32(buf[68:]); got != 4 {
		t.Errorf("cursor_y = %d, want parked at lines (4)", got)
	}
}

func TestDrawCellsStreamsContentAndSelection(t *testing.T) {
	ctx, dev := newTestContext(t, SoftwareConfig{}, nil)
	ctx.SetViewportSize(800, 600)

	screen := newTestScreen(1, 2)
	screen.cells[1] = GPUCell{SpriteX: 3, SpriteY: 1, FG: 0xff0000, BG: 0x00ff00}
	screen.selectionDirty = true
	screen.selection = []float32{0, 1}

	vao, _ := drawFrame(t, ctx, dev, screen)

	if screen.contentDirty || screen.selectionDirty {
		t.Error("dirty flags not cleared by streaming")
	}
	cellBytes, err := dev.BufferBytes(vao, cellDataBuffer)
	if err != nil {
		t.Fatalf("BufferBytes(cells): %v", err)
	}
	le := binary.LittleEndian
	if got := le.Uint16(cellBytes[GPUCellSize:]); got != 3 {
		t.Errorf("cell 1 sprite x = %d, want 3", got)
	}
	if got := le.Uint32(cellBytes[GPUCellSize+8:]); got != 0xff0000 {
		t.Errorf("cell 1 fg = %#x, want 0xff0000", got)
	}

	selBytes, err := dev.BufferBytes(vao, selectionBuffer)
	if err != nil {
		t.Fatalf("BufferBytes(selection): %v", err)
	}
	if got := math.Float32frombits(le.Uint32(selBytes[4:])); got != 1 {
		t.Errorf("selection[1] = %v, want 1", got)
	}
}

func mustCreateTexture(t *testing.T, dev *SoftwareDevice, w, h int) TextureID {
	t.Helper()
	id, err := dev.CreateTexture2D(TextureDesc{Width: w, Height: h, Layers: 1, Format: gputypes.TextureFormatRGBA8Unorm}, nil)
	if err != nil {
		t.Fatalf("CreateTexture2D: %v", err)
	}
	return id
}
