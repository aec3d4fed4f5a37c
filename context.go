package termgrid

import (
	"fmt"
)

// ContextConfig holds configuration for creating a Context.
type ContextConfig struct {
	// Tracker maps glyphs to sprite atlas positions. Required.
	Tracker SpriteTracker
}

// Context owns all renderer state for one GPU context: the sprite atlas,
// the per-program layout caches, the border rect batch and the one-time
// initialization flags. It replaces the global mutable state of classic
// renderers with an explicit object whose lifetime matches the GPU
// context: create it after the GPU context is current, Close it at
// shutdown.
//
// Context is not safe for concurrent use. All calls must come from the
// single rendering goroutine; this is the same contract every Device
// carries.
type Context struct {
	dev     Device
	tracker SpriteTracker

	programs    [NumPrograms]Program
	cellLayouts [NumPrograms]programLayout

	cursorVAO      VertexArrayID
	cursorColorLoc int
	cursorPosLoc   int

	borderVAO         VertexArrayID
	borderViewportLoc int
	borderRects       []BorderRect

	atlas spriteAtlas

	viewportWidth  int
	viewportHeight int
	focused        bool

	limitsUpdated bool
	constantsSet  [NumPrograms]bool
	scissorOn     bool

	selectionScratch []float32

	closed bool
}

// NewContext creates a renderer context on the given device.
func NewContext(dev Device, cfg ContextConfig) (*Context, error) {
	if dev == nil {
		return nil, fmt.Errorf("termgrid: device is required")
	}
	if cfg.Tracker == nil {
		return nil, fmt.Errorf("termgrid: sprite tracker is required")
	}

	c := &Context{
		dev:     dev,
		tracker: cfg.Tracker,
		focused: true,
	}
	c.atlas.init()

	Logger().Info("termgrid: context created", "device", dev.Name())
	return c, nil
}

// Device returns the device the context renders through.
func (c *Context) Device() Device { return c.dev }

// RegisterProgram stores a compiled program in its slot. Each slot may
// only be registered once; programs are immutable after linking.
func (c *Context) RegisterProgram(p Program) error {
	if p == nil {
		return fmt.Errorf("termgrid: nil program")
	}
	slot := p.Slot()
	if slot < 0 || slot >= NumPrograms {
		return fmt.Errorf("termgrid: unknown program slot %d", int(slot))
	}
	if c.programs[slot] != nil {
		return fmt.Errorf("termgrid: program %v already registered", slot)
	}
	c.programs[slot] = p
	return nil
}

// Program returns the registered program for a slot, or nil.
func (c *Context) Program(slot ProgramSlot) Program {
	if slot < 0 || slot >= NumPrograms {
		return nil
	}
	return c.programs[slot]
}

// SetViewportSize records the framebuffer size in pixels. The size feeds
// the cell scissor rectangle computation.
func (c *Context) SetViewportSize(width, height int) {
	c.viewportWidth = width
	c.viewportHeight = height
}

// SetFocused records whether the application window has focus. The cursor
// is drawn filled when focused and as an outline otherwise.
func (c *Context) SetFocused(focused bool) { c.focused = focused }

// setScissor toggles the device scissor test, tracking the current state
// so nested draws can restore it.
func (c *Context) setScissor(enabled bool) {
	c.dev.SetScissorEnabled(enabled)
	c.scissorOn = enabled
}

// Close releases all GPU resources owned by the context. The context must
// not be used afterwards. Close is idempotent.
func (c *Context) Close() {
	if c.closed {
		return
	}
	c.DestroySpriteMap()
	if c.cursorVAO != InvalidID {
		c.dev.RemoveVertexArray(c.cursorVAO)
		c.cursorVAO = InvalidID
	}
	if c.borderVAO != InvalidID {
		c.dev.RemoveVertexArray(c.borderVAO)
		c.borderVAO = InvalidID
	}
	c.closed = true
	Logger().Debug("termgrid: context closed")
}
