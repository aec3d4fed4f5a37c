package termgrid

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
)

// spriteAtlas is the glyph sprite map: one R8 texture array whose cells
// are addressed by (x, y, z) sprite positions from the SpriteTracker.
type spriteAtlas struct {
	xnum, ynum int

	cellWidth  int
	cellHeight int

	// lastLayerCount and lastYnum record the dimensions the texture was
	// last allocated with; growth is detected against them.
	lastLayerCount int
	lastYnum       int

	texture TextureID
	bound   TextureID

	maxTextureSize int
	maxLayers      int

	copyWarned bool
}

func (a *spriteAtlas) init() {
	a.xnum = 1
	a.ynum = 1
	a.lastLayerCount = 1
	a.lastYnum = -1
}

// LayoutSpriteMap (re)configures the sprite atlas for a cell size. On the
// first call it queries the device limits and pushes them to the sprite
// tracker. Any existing atlas texture is released; all previously issued
// sprite positions become invalid.
func (c *Context) LayoutSpriteMap(cellWidth, cellHeight int) error {
	if c.closed {
		return ErrContextClosed
	}
	if cellWidth < 1 {
		cellWidth = 1
	}
	if cellHeight < 1 {
		cellHeight = 1
	}

	if !c.limitsUpdated {
		limits := c.dev.Limits()
		c.atlas.maxTextureSize = limits.MaxTextureSize
		c.atlas.maxLayers = limits.MaxArrayTextureLayers
		c.tracker.SetLimits(limits.MaxTextureSize, limits.MaxArrayTextureLayers)
		c.limitsUpdated = true
		Logger().Debug("termgrid: sprite map limits",
			"max_texture_size", limits.MaxTextureSize,
			"max_array_layers", limits.MaxArrayTextureLayers)
	}

	c.atlas.cellWidth = cellWidth
	c.atlas.cellHeight = cellHeight
	c.tracker.SetLayout(cellWidth, cellHeight)

	if c.atlas.texture != InvalidID {
		c.dev.DestroyTexture(c.atlas.texture)
		c.atlas.texture = InvalidID
		c.atlas.bound = InvalidID
	}
	c.atlas.lastLayerCount = 1
	c.atlas.lastYnum = -1

	return c.reallocSpriteTexture()
}

// EnsureSpriteMap makes sure the atlas texture exists and is bound to
// SpriteMapUnit. Called at the start of every cell draw.
func (c *Context) EnsureSpriteMap() error {
	if c.closed {
		return ErrContextClosed
	}
	if c.atlas.texture == InvalidID {
		if err := c.reallocSpriteTexture(); err != nil {
			return err
		}
	}
	if c.atlas.bound != c.atlas.texture {
		c.dev.BindTexture(SpriteMapUnit, c.atlas.texture)
		c.atlas.bound = c.atlas.texture
	}
	return nil
}

// UploadSprite uploads one rasterized cell into the atlas at the sprite
// position (x, y, z). pixels holds cellWidth*cellHeight single-channel
// coverage bytes. When the tracker's layout has outgrown the texture the
// atlas is reallocated first, preserving existing contents.
func (c *Context) UploadSprite(x, y, z int, pixels []byte) error {
	if c.closed {
		return ErrContextClosed
	}
	if want := c.atlas.cellWidth * c.atlas.cellHeight; len(pixels) != want {
		return fmt.Errorf("termgrid: sprite is %d bytes, want %d", len(pixels), want)
	}

	_, ynum, znum := c.tracker.CurrentLayout()
	if znum >= c.atlas.lastLayerCount || (znum == 0 && ynum > c.atlas.lastYnum) {
		if err := c.reallocSpriteTexture(); err != nil {
			return err
		}
	}
	if err := c.EnsureSpriteMap(); err != nil {
		return err
	}

	return c.dev.UploadTextureRegion(c.atlas.texture,
		x*c.atlas.cellWidth, y*c.atlas.cellHeight, z,
		c.atlas.cellWidth, c.atlas.cellHeight, 1, pixels)
}

// DestroySpriteMap releases the atlas texture.
func (c *Context) DestroySpriteMap() {
	if c.atlas.texture != InvalidID {
		c.dev.DestroyTexture(c.atlas.texture)
		c.atlas.texture = InvalidID
		c.atlas.bound = InvalidID
	}
}

// reallocSpriteTexture allocates the atlas texture at the tracker's
// current layout and copies the previous texture's contents into it, if
// any. The copy region is conservative: the full width, the previously
// allocated row count and all previously allocated layers.
func (c *Context) reallocSpriteTexture() error {
	xnum, ynum, z := c.tracker.CurrentLayout()
	layers := z + 1
	width := xnum * c.atlas.cellWidth
	height := ynum * c.atlas.cellHeight

	if layers > c.atlas.maxLayers {
		return configErrorf("sprite map needs %d layers, device allows %d", layers, c.atlas.maxLayers)
	}
	if width > c.atlas.maxTextureSize || height > c.atlas.maxTextureSize {
		return configErrorf("sprite map %dx%d exceeds max texture size %d", width, height, c.atlas.maxTextureSize)
	}

	tex, err := c.dev.CreateTextureArray(TextureDesc{
		Label:  "sprite-map",
		Width:  width,
		Height: height,
		Layers: layers,
		Format: gputypes.TextureFormatR8Unorm,
	})
	if err != nil {
		return fmt.Errorf("termgrid: allocating %dx%dx%d sprite map: %w", width, height, layers, err)
	}

	if c.atlas.texture != InvalidID {
		srcYnum := c.atlas.lastYnum
		if srcYnum < 1 {
			srcYnum = 1
		}
		copyHeight := srcYnum * c.atlas.cellHeight
		if err := c.copySpriteTexture(c.atlas.texture, tex, width, copyHeight, c.atlas.lastLayerCount); err != nil {
			c.dev.DestroyTexture(tex)
			return err
		}
		c.dev.DestroyTexture(c.atlas.texture)
	}

	c.atlas.texture = tex
	c.atlas.bound = InvalidID
	c.atlas.xnum = xnum
	c.atlas.ynum = ynum
	c.atlas.lastLayerCount = layers
	c.atlas.lastYnum = ynum

	Logger().Debug("termgrid: sprite map reallocated",
		"width", width, "height", height, "layers", layers)
	return nil
}

// copySpriteTexture copies the front region of src into dst, using the
// device copy primitive when available and a CPU round-trip otherwise:
// the source is read back as RGBA, the coverage channel extracted, and
// the region re-uploaded.
func (c *Context) copySpriteTexture(src, dst TextureID, width, height, layers int) error {
	err := c.dev.CopyTextureRegion(src, dst, width, height, layers)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrCopyUnsupported) {
		return fmt.Errorf("termgrid: copying sprite map: %w", err)
	}

	if !c.atlas.copyWarned {
		Logger().Warn("termgrid: device has no texture copy primitive, sprite map growth uses CPU round-trip",
			"device", c.dev.Name())
		c.atlas.copyWarned = true
	}

	rgba, err := c.dev.ReadTextureRGBA(src)
	if err != nil {
		return fmt.Errorf("termgrid: reading back sprite map: %w", err)
	}
	red := make([]byte, len(rgba)/4)
	for i := range red {
		red[i] = rgba[4*i]
	}
	n := width * height * layers
	if len(red) < n {
		return fmt.Errorf("termgrid: sprite map readback is %d pixels, want %d", len(red), n)
	}
	return c.dev.UploadTextureRegion(dst, 0, 0, 0, width, height, layers, red[:n])
}

// SpriteMapTexture returns the current atlas texture handle.
func (c *Context) SpriteMapTexture() TextureID { return c.atlas.texture }
