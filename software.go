package termgrid

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Default software device limits, deliberately small so that layout code
// exercises its bounds checks.
const (
	defaultSoftwareMaxTextureSize = 4096
	defaultSoftwareMaxLayers      = 64
)

// SoftwareConfig holds configuration for creating a SoftwareDevice.
type SoftwareConfig struct {
	// Limits overrides the reported hardware limits. Zero fields get
	// defaults (4096 / 64).
	Limits Limits

	// DisableTextureCopy makes CopyTextureRegion report
	// ErrCopyUnsupported, forcing callers onto their CPU fallback paths.
	DisableTextureCopy bool
}

// CommandKind discriminates recorded device commands.
type CommandKind int

// Command kinds.
const (
	// CommandDraw is a DrawArrays or DrawArraysInstanced call.
	CommandDraw CommandKind = iota

	// CommandBindTexture is a texture unit bind.
	CommandBindTexture

	// CommandUniform is a plain uniform set.
	CommandUniform

	// CommandClear is a color buffer clear.
	CommandClear
)

// Command is one recorded device command. Only the fields relevant to the
// Kind are populated; Program, Blend and ScissorOn capture the device
// state at record time.
type Command struct {
	Kind CommandKind

	Program     ProgramSlot // -1 when no program is bound
	VertexArray VertexArrayID
	Blend       BlendMode
	ScissorOn   bool

	// Draw fields.
	Mode      DrawMode
	First     int
	Count     int
	Instances int

	// Texture bind fields.
	Unit    int
	Texture TextureID

	// Uniform fields.
	Location int
	Values   [4]float64
}

// softwareTexture is CPU-backed texture storage, one tightly packed plane
// per layer.
type softwareTexture struct {
	desc TextureDesc
	data []byte
}

func (t *softwareTexture) bytesPerPixel() int {
	switch t.desc.Format {
	case gputypes.TextureFormatR8Unorm:
		return 1
	default:
		return 4
	}
}

// softwareBuffer is CPU-backed buffer storage.
type softwareBuffer struct {
	target BufferTarget
	usage  BufferUsage
	data   []byte
	mapped bool
}

// softwareVertexArray is a vertex array with its ordered buffer list.
type softwareVertexArray struct {
	buffers []*softwareBuffer
	attrs   []AttributeSpec
	// blockBindings maps uniform block binding index -> buffer index.
	blockBindings map[int]int
}

// SoftwareDevice is a pure-CPU reference implementation of Device. It
// keeps real texture and buffer storage (uploads, copies and readback all
// work) and records every draw-affecting command, which makes it suitable
// both for headless operation and as the harness for the test suite.
//
// Like every Device, it must be driven from a single goroutine.
type SoftwareDevice struct {
	limits             Limits
	disableTextureCopy bool

	textures    map[TextureID]*softwareTexture
	nextTexture uint64

	vaos    map[VertexArrayID]*softwareVertexArray
	nextVAO uint64

	boundVAO       VertexArrayID
	boundProgram   Program
	boundTextures  map[int]TextureID
	blend          BlendMode
	scissorX       int
	scissorY       int
	scissorW       int
	scissorH       int
	scissorEnabled bool

	commands []Command
}

// NewSoftwareDevice creates a software device.
func NewSoftwareDevice(cfg SoftwareConfig) *SoftwareDevice {
	limits := cfg.Limits
	if limits.MaxTextureSize <= 0 {
		limits.MaxTextureSize = defaultSoftwareMaxTextureSize
	}
	if limits.MaxArrayTextureLayers <= 0 {
		limits.MaxArrayTextureLayers = defaultSoftwareMaxLayers
	}

	return &SoftwareDevice{
		limits:             limits,
		disableTextureCopy: cfg.DisableTextureCopy,
		textures:           make(map[TextureID]*softwareTexture),
		vaos:               make(map[VertexArrayID]*softwareVertexArray),
		boundTextures:      make(map[int]TextureID),
	}
}

// Name returns the device identifier.
func (d *SoftwareDevice) Name() string { return DeviceSoftware }

// Limits returns the configured limits.
func (d *SoftwareDevice) Limits() Limits { return d.limits }

// CreateTextureArray creates a CPU-backed texture array.
func (d *SoftwareDevice) CreateTextureArray(desc TextureDesc) (TextureID, error) {
	return d.createTexture(desc)
}

// CreateTexture2D creates a CPU-backed 2D texture, optionally initialized.
func (d *SoftwareDevice) CreateTexture2D(desc TextureDesc, data []byte) (TextureID, error) {
	desc.Layers = 1
	id, err := d.createTexture(desc)
	if err != nil {
		return InvalidID, err
	}
	if data != nil {
		tex := d.textures[id]
		if len(data) != len(tex.data) {
			d.DestroyTexture(id)
			return InvalidID, fmt.Errorf("termgrid: texture data is %d bytes, want %d", len(data), len(tex.data))
		}
		copy(tex.data, data)
	}
	return id, nil
}

func (d *SoftwareDevice) createTexture(desc TextureDesc) (TextureID, error) {
	if desc.Width <= 0 || desc.Height <= 0 || desc.Layers <= 0 {
		return InvalidID, fmt.Errorf("termgrid: invalid texture size %dx%dx%d", desc.Width, desc.Height, desc.Layers)
	}
	if desc.Width > d.limits.MaxTextureSize || desc.Height > d.limits.MaxTextureSize {
		return InvalidID, fmt.Errorf("termgrid: texture %dx%d exceeds max dimension %d", desc.Width, desc.Height, d.limits.MaxTextureSize)
	}
	if desc.Layers > d.limits.MaxArrayTextureLayers {
		return InvalidID, fmt.Errorf("termgrid: %d layers exceeds max %d", desc.Layers, d.limits.MaxArrayTextureLayers)
	}

	tex := &softwareTexture{desc: desc}
	tex.data = make([]byte, desc.Width*desc.Height*desc.Layers*tex.bytesPerPixel())

	d.nextTexture++
	id := TextureID(d.nextTexture)
	d.textures[id] = tex
	return id, nil
}

// DestroyTexture releases a texture. Destroying InvalidID is a no-op.
func (d *SoftwareDevice) DestroyTexture(id TextureID) {
	delete(d.textures, id)
}

// UploadTextureRegion writes a packed sub-region into the texture.
func (d *SoftwareDevice) UploadTextureRegion(id TextureID, x, y, layer, width, height, depth int, data []byte) error {
	tex, ok := d.textures[id]
	if !ok {
		return ErrUnknownTexture
	}
	desc := tex.desc
	if x < 0 || y < 0 || layer < 0 ||
		x+width > desc.Width || y+height > desc.Height || layer+depth > desc.Layers {
		return fmt.Errorf("termgrid: region (%d,%d,%d)+(%dx%dx%d) exceeds texture %dx%dx%d",
			x, y, layer, width, height, depth, desc.Width, desc.Height, desc.Layers)
	}
	bpp := tex.bytesPerPixel()
	if len(data) != width*height*depth*bpp {
		return fmt.Errorf("termgrid: upload data is %d bytes, want %d", len(data), width*height*depth*bpp)
	}

	planeSize := desc.Width * desc.Height * bpp
	rowSize := width * bpp
	for z := 0; z < depth; z++ {
		src := data[z*width*height*bpp:]
		dstPlane := tex.data[(layer+z)*planeSize:]
		for row := 0; row < height; row++ {
			dstOff := ((y+row)*desc.Width + x) * bpp
			copy(dstPlane[dstOff:dstOff+rowSize], src[row*rowSize:])
		}
	}
	return nil
}

// CopyTextureRegion copies the given region between two textures of the
// same format. Returns ErrCopyUnsupported when DisableTextureCopy is set.
func (d *SoftwareDevice) CopyTextureRegion(src, dst TextureID, width, height, layers int) error {
	if d.disableTextureCopy {
		return ErrCopyUnsupported
	}
	s, ok := d.textures[src]
	if !ok {
		return ErrUnknownTexture
	}
	t, ok := d.textures[dst]
	if !ok {
		return ErrUnknownTexture
	}
	if s.desc.Format != t.desc.Format {
		return fmt.Errorf("termgrid: copy between formats %v and %v", s.desc.Format, t.desc.Format)
	}
	if width > s.desc.Width || width > t.desc.Width ||
		height > s.desc.Height || height > t.desc.Height ||
		layers > s.desc.Layers || layers > t.desc.Layers {
		return fmt.Errorf("termgrid: copy region %dx%dx%d exceeds texture bounds", width, height, layers)
	}

	bpp := s.bytesPerPixel()
	rowSize := width * bpp
	for z := 0; z < layers; z++ {
		srcPlane := s.data[z*s.desc.Width*s.desc.Height*bpp:]
		dstPlane := t.data[z*t.desc.Width*t.desc.Height*bpp:]
		for row := 0; row < height; row++ {
			srcOff := row * s.desc.Width * bpp
			dstOff := row * t.desc.Width * bpp
			copy(dstPlane[dstOff:dstOff+rowSize], srcPlane[srcOff:srcOff+rowSize])
		}
	}
	return nil
}

// ReadTextureRGBA reads the whole texture back as RGBA bytes. Single
// channel textures are expanded with the pixel value replicated into the
// color channels and alpha set to 255.
func (d *SoftwareDevice) ReadTextureRGBA(id TextureID) ([]byte, error) {
	tex, ok := d.textures[id]
	if !ok {
		return nil, ErrUnknownTexture
	}
	if tex.bytesPerPixel() == 4 {
		out := make([]byte, len(tex.data))
		copy(out, tex.data)
		return out, nil
	}
	out := make([]byte, len(tex.data)*4)
	for i, v := range tex.data {
		out[i*4] = v
		out[i*4+1] = v
		out[i*4+2] = v
		out[i*4+3] = 0xff
	}
	return out, nil
}

// BindTexture binds a texture to a unit and records the bind.
func (d *SoftwareDevice) BindTexture(unit int, id TextureID) {
	d.boundTextures[unit] = id
	d.record(Command{Kind: CommandBindTexture, Unit: unit, Texture: id})
}

// CreateVertexArray creates an empty vertex array.
func (d *SoftwareDevice) CreateVertexArray() (VertexArrayID, error) {
	d.nextVAO++
	id := VertexArrayID(d.nextVAO)
	d.vaos[id] = &softwareVertexArray{blockBindings: make(map[int]int)}
	return id, nil
}

// RemoveVertexArray releases a vertex array and its buffers.
func (d *SoftwareDevice) RemoveVertexArray(id VertexArrayID) {
	delete(d.vaos, id)
	if d.boundVAO == id {
		d.boundVAO = InvalidID
	}
}

// AddVertexBuffer appends a buffer to the vertex array.
func (d *SoftwareDevice) AddVertexBuffer(vao VertexArrayID, target BufferTarget) (int, error) {
	v, ok := d.vaos[vao]
	if !ok {
		return 0, ErrUnknownVertexArray
	}
	v.buffers = append(v.buffers, &softwareBuffer{target: target})
	return len(v.buffers) - 1, nil
}

func (d *SoftwareDevice) buffer(vao VertexArrayID, buf int) (*softwareBuffer, error) {
	v, ok := d.vaos[vao]
	if !ok {
		return nil, ErrUnknownVertexArray
	}
	if buf < 0 || buf >= len(v.buffers) {
		return nil, fmt.Errorf("termgrid: vertex array has no buffer %d", buf)
	}
	return v.buffers[buf], nil
}

// AllocBuffer (re)allocates buffer storage.
func (d *SoftwareDevice) AllocBuffer(vao VertexArrayID, buf, size int, usage BufferUsage) error {
	b, err := d.buffer(vao, buf)
	if err != nil {
		return err
	}
	b.data = make([]byte, size)
	b.usage = usage
	return nil
}

// AllocAndMapBuffer (re)allocates buffer storage and maps it.
func (d *SoftwareDevice) AllocAndMapBuffer(vao VertexArrayID, buf, size int, usage BufferUsage) ([]byte, error) {
	b, err := d.buffer(vao, buf)
	if err != nil {
		return nil, err
	}
	b.data = make([]byte, size)
	b.usage = usage
	b.mapped = true
	return b.data, nil
}

// MapBuffer maps the buffer's current storage.
func (d *SoftwareDevice) MapBuffer(vao VertexArrayID, buf int) ([]byte, error) {
	b, err := d.buffer(vao, buf)
	if err != nil {
		return nil, err
	}
	if b.data == nil {
		return nil, fmt.Errorf("termgrid: mapping unallocated buffer %d", buf)
	}
	b.mapped = true
	return b.data, nil
}

// UnmapBuffer invalidates the mapping.
func (d *SoftwareDevice) UnmapBuffer(vao VertexArrayID, buf int) error {
	b, err := d.buffer(vao, buf)
	if err != nil {
		return err
	}
	if !b.mapped {
		return fmt.Errorf("termgrid: buffer %d is not mapped", buf)
	}
	b.mapped = false
	return nil
}

// DefineAttribute records the attribute configuration.
func (d *SoftwareDevice) DefineAttribute(p Program, vao VertexArrayID, spec AttributeSpec) error {
	v, ok := d.vaos[vao]
	if !ok {
		return ErrUnknownVertexArray
	}
	if len(v.buffers) == 0 {
		return fmt.Errorf("termgrid: defining attribute %q on vertex array without buffers", spec.Name)
	}
	if p != nil && p.AttributeLocation(spec.Name) < 0 {
		return fmt.Errorf("termgrid: program %v has no attribute %q", p.Slot(), spec.Name)
	}
	v.attrs = append(v.attrs, spec)
	return nil
}

// BindUniformBuffer attaches a uniform buffer to a block binding index.
func (d *SoftwareDevice) BindUniformBuffer(vao VertexArrayID, buf, blockIndex int) error {
	v, ok := d.vaos[vao]
	if !ok {
		return ErrUnknownVertexArray
	}
	if buf < 0 || buf >= len(v.buffers) {
		return fmt.Errorf("termgrid: vertex array has no buffer %d", buf)
	}
	v.blockBindings[blockIndex] = buf
	return nil
}

// BindVertexArray makes the vertex array current.
func (d *SoftwareDevice) BindVertexArray(id VertexArrayID) { d.boundVAO = id }

// UnbindVertexArray clears the current vertex array.
func (d *SoftwareDevice) UnbindVertexArray() { d.boundVAO = InvalidID }

// BindProgram makes p current.
func (d *SoftwareDevice) BindProgram(p Program) { d.boundProgram = p }

// UnbindProgram clears the current program.
func (d *SoftwareDevice) UnbindProgram() { d.boundProgram = nil }

// SetBlend selects the blend mode.
func (d *SoftwareDevice) SetBlend(mode BlendMode) { d.blend = mode }

// Scissor sets the scissor rectangle.
func (d *SoftwareDevice) Scissor(x, y, width, height int) {
	d.scissorX, d.scissorY, d.scissorW, d.scissorH = x, y, width, height
}

// SetScissorEnabled toggles the scissor test.
func (d *SoftwareDevice) SetScissorEnabled(enabled bool) { d.scissorEnabled = enabled }

// DrawArrays records one non-instanced draw.
func (d *SoftwareDevice) DrawArrays(mode DrawMode, first, count int) {
	d.record(Command{Kind: CommandDraw, Mode: mode, First: first, Count: count, Instances: 1})
}

// DrawArraysInstanced records one instanced draw.
func (d *SoftwareDevice) DrawArraysInstanced(mode DrawMode, first, count, instances int) {
	d.record(Command{Kind: CommandDraw, Mode: mode, First: first, Count: count, Instances: instances})
}

// Uniform1i records an int uniform set.
func (d *SoftwareDevice) Uniform1i(location int, v int32) {
	d.record(Command{Kind: CommandUniform, Location: location, Values: [4]float64{float64(v)}})
}

// Uniform2ui records a uvec2 uniform set.
func (d *SoftwareDevice) Uniform2ui(location int, x, y uint32) {
	d.record(Command{Kind: CommandUniform, Location: location, Values: [4]float64{float64(x), float64(y)}})
}

// Uniform3f records a vec3 uniform set.
func (d *SoftwareDevice) Uniform3f(location int, x, y, z float32) {
	d.record(Command{Kind: CommandUniform, Location: location, Values: [4]float64{float64(x), float64(y), float64(z)}})
}

// Uniform4f records a vec4 uniform set.
func (d *SoftwareDevice) Uniform4f(location int, x, y, z, w float32) {
	d.record(Command{Kind: CommandUniform, Location: location, Values: [4]float64{float64(x), float64(y), float64(z), float64(w)}})
}

// Clear records a color buffer clear.
func (d *SoftwareDevice) Clear(r, g, b, a float32) {
	d.record(Command{Kind: CommandClear, Values: [4]float64{float64(r), float64(g), float64(b), float64(a)}})
}

func (d *SoftwareDevice) record(c Command) {
	c.Program = -1
	if d.boundProgram != nil {
		c.Program = d.boundProgram.Slot()
	}
	c.VertexArray = d.boundVAO
	c.Blend = d.blend
	c.ScissorOn = d.scissorEnabled
	d.commands = append(d.commands, c)
}

// Commands returns the recorded command log.
func (d *SoftwareDevice) Commands() []Command { return d.commands }

// DrawCommands returns only the recorded draw calls.
func (d *SoftwareDevice) DrawCommands() []Command {
	var out []Command
	for _, c := range d.commands {
		if c.Kind == CommandDraw {
			out = append(out, c)
		}
	}
	return out
}

// ResetCommands clears the command log.
func (d *SoftwareDevice) ResetCommands() { d.commands = nil }

// ScissorRect returns the last scissor rectangle set.
func (d *SoftwareDevice) ScissorRect() (x, y, width, height int) {
	return d.scissorX, d.scissorY, d.scissorW, d.scissorH
}

// ScissorEnabled reports the scissor test state.
func (d *SoftwareDevice) ScissorEnabled() bool { return d.scissorEnabled }

// TexturePixels returns a copy of the texture's raw storage. Introspection
// helper for tests and debugging.
func (d *SoftwareDevice) TexturePixels(id TextureID) ([]byte, error) {
	tex, ok := d.textures[id]
	if !ok {
		return nil, ErrUnknownTexture
	}
	out := make([]byte, len(tex.data))
	copy(out, tex.data)
	return out, nil
}

// TextureDescOf returns the descriptor of a live texture.
func (d *SoftwareDevice) TextureDescOf(id TextureID) (TextureDesc, error) {
	tex, ok := d.textures[id]
	if !ok {
		return TextureDesc{}, ErrUnknownTexture
	}
	return tex.desc, nil
}

// TextureCount returns the number of live textures.
func (d *SoftwareDevice) TextureCount() int { return len(d.textures) }

// BufferBytes returns the current storage of a vertex-array buffer.
// The slice aliases device storage; callers must not retain it across
// further device calls.
func (d *SoftwareDevice) BufferBytes(vao VertexArrayID, buf int) ([]byte, error) {
	b, err := d.buffer(vao, buf)
	if err != nil {
		return nil, err
	}
	return b.data, nil
}
