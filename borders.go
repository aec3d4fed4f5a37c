package termgrid

import (
	"encoding/binary"
	"fmt"
)

// BorderRectCapacity is the maximum number of border rects per frame.
const BorderRectCapacity = 1024

// BorderRect is one window-split border rectangle: pixel bounds plus a
// 0xRRGGBB color, matching the instanced vertex layout of the borders
// program.
type BorderRect struct {
	Left, Top, Right, Bottom uint32
	Color                    uint32
}

// ResetBorderRects clears the pending border batch.
func (c *Context) ResetBorderRects() {
	c.borderRects = c.borderRects[:0]
}

// AddBorderRect queues one border rectangle for the next flush. An
// all-zero-bounds rect resets the batch instead; callers that can should
// use ResetBorderRects directly.
func (c *Context) AddBorderRect(left, top, right, bottom, color uint32) error {
	if left == 0 && top == 0 && right == 0 && bottom == 0 {
		c.ResetBorderRects()
		return nil
	}
	if len(c.borderRects) >= BorderRectCapacity {
		return ErrBorderBatchFull
	}
	c.borderRects = append(c.borderRects, BorderRect{
		Left: left, Top: top, Right: right, Bottom: bottom, Color: color,
	})
	return nil
}

// BorderRectCount returns the number of queued border rects.
func (c *Context) BorderRectCount() int { return len(c.borderRects) }

// FlushBorderRects uploads the queued rects (if any) and sets the borders
// program's viewport uniform. The viewport uniform is set even when the
// batch is empty so a later Draw after re-queueing stays consistent with
// the framebuffer size.
func (c *Context) FlushBorderRects(viewportWidth, viewportHeight uint32) error {
	if c.closed {
		return ErrContextClosed
	}
	p := c.programs[BordersProgram]
	if p == nil || c.borderVAO == InvalidID {
		return fmt.Errorf("%w: borders program not initialized", ErrNoProgram)
	}

	if n := len(c.borderRects); n > 0 {
		buf, err := c.dev.AllocAndMapBuffer(c.borderVAO, 0, n*borderRectStride, StaticDraw)
		if err != nil {
			return err
		}
		le := binary.LittleEndian
		for i, r := range c.borderRects {
			off := i * borderRectStride
			le.PutUint32(buf[off:], r.Left)
			le.PutUint32(buf[off+4:], r.Top)
			le.PutUint32(buf[off+8:], r.Right)
			le.PutUint32(buf[off+12:], r.Bottom)
			le.PutUint32(buf[off+16:], r.Color)
		}
		if err := c.dev.UnmapBuffer(c.borderVAO, 0); err != nil {
			return err
		}
	}

	c.dev.BindProgram(p)
	c.dev.Uniform2ui(c.borderViewportLoc, viewportWidth, viewportHeight)
	c.dev.UnbindProgram()
	return nil
}

// DrawBorders draws the flushed border batch with one instanced call.
// A no-op when the batch is empty.
func (c *Context) DrawBorders() error {
	if c.closed {
		return ErrContextClosed
	}
	n := len(c.borderRects)
	if n == 0 {
		return nil
	}
	p := c.programs[BordersProgram]
	if p == nil || c.borderVAO == InvalidID {
		return fmt.Errorf("%w: borders program not initialized", ErrNoProgram)
	}

	c.dev.BindProgram(p)
	c.dev.BindVertexArray(c.borderVAO)
	c.dev.DrawArraysInstanced(TriangleFan, 0, 4, n)
	c.dev.UnbindVertexArray()
	c.dev.UnbindProgram()
	return nil
}
