package termgrid

import "fmt"

// DrawCursor draws the cursor quad: filled when the window has focus, as
// an outline otherwise. InitCursorProgram must have run.
func (c *Context) DrawCursor(info *CursorRenderInfo) error {
	if c.closed {
		return ErrContextClosed
	}
	if !info.IsVisible {
		return nil
	}
	p := c.programs[CursorProgram]
	if p == nil || c.cursorVAO == InvalidID {
		return fmt.Errorf("%w: cursor program not initialized", ErrNoProgram)
	}

	c.dev.BindProgram(p)
	c.dev.BindVertexArray(c.cursorVAO)

	r := float32((info.Color>>16)&0xff) / 255
	g := float32((info.Color>>8)&0xff) / 255
	b := float32(info.Color&0xff) / 255
	c.dev.Uniform3f(c.cursorColorLoc, r, g, b)
	c.dev.Uniform4f(c.cursorPosLoc, info.Left, info.Top, info.Right, info.Bottom)

	mode := TriangleFan
	if !c.focused {
		mode = LineLoop
	}
	c.dev.DrawArrays(mode, 0, 4)

	c.dev.UnbindVertexArray()
	c.dev.UnbindProgram()
	return nil
}
