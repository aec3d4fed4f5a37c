package termgrid

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/gogpu/gputypes"
)

// drawGraphics draws count overlay quads starting at index start of data.
// Consecutive quads sharing a texture form a group (the length is baked
// into the group's first quad); each group binds its texture once and
// then issues one 4-vertex fan per quad. The scissor test stays enabled
// for the whole call and the caller's scissor state and vertex array are
// restored afterwards.
func (c *Context) drawGraphics(vao, gvao VertexArrayID, data []ImageRenderData, start, count int) error {
	if count <= 0 {
		return nil
	}
	if gvao == InvalidID {
		return fmt.Errorf("termgrid: drawing overlay images without a graphics vertex array")
	}
	if start < 0 || start+count > len(data) {
		return fmt.Errorf("termgrid: overlay range [%d, %d) out of %d quads", start, start+count, len(data))
	}

	p := c.programs[GraphicsProgram]
	if p == nil {
		return fmt.Errorf("%w: %v", ErrNoProgram, GraphicsProgram)
	}

	c.dev.BindVertexArray(gvao)
	c.dev.BindProgram(p)
	if !c.constantsSet[GraphicsProgram] {
		if loc := p.UniformLocation("image"); loc >= 0 {
			c.dev.Uniform1i(loc, GraphicsUnit)
		}
		c.constantsSet[GraphicsProgram] = true
	}
	c.dev.SetBlend(BlendSourceOver)

	wasScissored := c.scissorOn
	c.setScissor(true)

	for i := 0; i < count; {
		group := int(data[start+i].GroupCount)
		if group < 1 {
			group = 1
		}
		if i+group > count {
			group = count - i
		}
		c.dev.BindTexture(GraphicsUnit, data[start+i].Texture)
		for j := 0; j < group; j++ {
			c.dev.DrawArrays(TriangleFan, (start+i+j)*4, 4)
		}
		i += group
	}

	if !wasScissored {
		c.setScissor(false)
	}
	c.dev.BindVertexArray(vao)
	return nil
}

// UploadImage uploads an overlay image, replacing *tex if it already
// names a texture. The image is converted to RGBA if needed; when opaque
// is set the alpha channel is forced fully opaque, which lets image
// formats without alpha skip compositing artifacts from stale channel
// data.
func (c *Context) UploadImage(tex *TextureID, img image.Image, opaque bool) error {
	if c.closed {
		return ErrContextClosed
	}

	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || bounds.Min != (image.Point{}) || rgba.Stride != bounds.Dx()*4 {
		tmp := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(tmp, tmp.Bounds(), img, bounds.Min, draw.Src)
		rgba = tmp
	}
	if opaque {
		for i := 3; i < len(rgba.Pix); i += 4 {
			rgba.Pix[i] = 0xff
		}
	}

	id, err := c.dev.CreateTexture2D(TextureDesc{
		Label:  "overlay-image",
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Layers: 1,
		Format: gputypes.TextureFormatRGBA8Unorm,
	}, rgba.Pix)
	if err != nil {
		return fmt.Errorf("termgrid: uploading %dx%d image: %w", bounds.Dx(), bounds.Dy(), err)
	}

	if *tex != InvalidID {
		c.dev.DestroyTexture(*tex)
	}
	*tex = id
	return nil
}

// ClearBuffers clears both buffers of a double-buffered surface to the
// given 0xRRGGBB color: clear, swap, clear again.
func (c *Context) ClearBuffers(swap func(), color uint32) {
	r := float32((color>>16)&0xff) / 255
	g := float32((color>>8)&0xff) / 255
	b := float32(color&0xff) / 255
	c.dev.Clear(r, g, b, 1)
	if swap != nil {
		swap()
	}
	c.dev.Clear(r, g, b, 1)
}
