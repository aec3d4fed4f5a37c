//go:build cgo

// Package glgpu implements the termgrid Device on OpenGL via go-gl.
//
// The device wraps an already-current OpenGL context: the host creates
// the window and context (glfw or equivalent), makes it current on the
// rendering goroutine and then calls New. All device methods must run on
// that same goroutine.
package glgpu

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/go-gl/gl/all-core/gl"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/termgrid"
)

func init() {
	termgrid.RegisterDevice(termgrid.DeviceGL, func() termgrid.Device {
		d, err := New()
		if err != nil {
			termgrid.Logger().Debug("glgpu: device unavailable", "error", err)
			return nil
		}
		return d
	})
}

type glTexture struct {
	handle uint32
	desc   termgrid.TextureDesc
}

func (t *glTexture) target() uint32 {
	if t.desc.Layers > 1 {
		return gl.TEXTURE_2D_ARRAY
	}
	return gl.TEXTURE_2D
}

type glBuffer struct {
	handle uint32
	target uint32
	size   int
}

type glVertexArray struct {
	handle  uint32
	buffers []*glBuffer
}

// Device is the OpenGL implementation of termgrid.Device.
type Device struct {
	limits       termgrid.Limits
	hasCopyImage bool

	textures map[termgrid.TextureID]*glTexture
	nextTex  uint64

	vaos    map[termgrid.VertexArrayID]*glVertexArray
	nextVAO uint64
}

// New initializes the OpenGL function pointers against the current
// context and probes the capabilities the renderer needs. It fails when
// no context is current.
func New() (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("glgpu: initializing: %w", err)
	}

	d := &Device{
		textures: make(map[termgrid.TextureID]*glTexture),
		vaos:     make(map[termgrid.VertexArrayID]*glVertexArray),
	}

	var maxTex, maxLayers int32
	gl.GetIntegerv(gl.MAX_TEXTURE_SIZE, &maxTex)
	gl.GetIntegerv(gl.MAX_ARRAY_TEXTURE_LAYERS, &maxLayers)
	d.limits = termgrid.Limits{
		MaxTextureSize:        int(maxTex),
		MaxArrayTextureLayers: int(maxLayers),
	}

	d.hasCopyImage = probeCopyImage()
	termgrid.Logger().Debug("glgpu: device ready",
		"version", gl.GoStr(gl.GetString(gl.VERSION)),
		"copy_image", d.hasCopyImage)
	return d, nil
}

// probeCopyImage reports whether glCopyImageSubData is usable: core in
// 4.3, otherwise via ARB_copy_image.
func probeCopyImage() bool {
	var major, minor int32
	gl.GetIntegerv(gl.MAJOR_VERSION, &major)
	gl.GetIntegerv(gl.MINOR_VERSION, &minor)
	if major > 4 || (major == 4 && minor >= 3) {
		return true
	}
	var n int32
	gl.GetIntegerv(gl.NUM_EXTENSIONS, &n)
	for i := int32(0); i < n; i++ {
		name := gl.GoStr(gl.GetStringi(gl.EXTENSIONS, uint32(i)))
		if strings.EqualFold(name, "GL_ARB_copy_image") {
			return true
		}
	}
	return false
}

// Name returns "gl".
func (d *Device) Name() string { return termgrid.DeviceGL }

// Limits returns the context's texture limits.
func (d *Device) Limits() termgrid.Limits { return d.limits }

func glFormat(f gputypes.TextureFormat) (internal int32, format uint32, err error) {
	switch f {
	case gputypes.TextureFormatR8Unorm:
		return gl.R8, gl.RED, nil
	case gputypes.TextureFormatRGBA8Unorm:
		return gl.RGBA8, gl.RGBA, nil
	default:
		return 0, 0, fmt.Errorf("glgpu: unsupported texture format %v", f)
	}
}

func bytesPerPixel(f gputypes.TextureFormat) int {
	if f == gputypes.TextureFormatR8Unorm {
		return 1
	}
	return 4
}

// CreateTextureArray creates a 2D texture array with undefined contents.
func (d *Device) CreateTextureArray(desc termgrid.TextureDesc) (termgrid.TextureID, error) {
	return d.createTexture(desc, nil)
}

// CreateTexture2D creates a plain 2D texture, optionally initialized.
func (d *Device) CreateTexture2D(desc termgrid.TextureDesc, data []byte) (termgrid.TextureID, error) {
	desc.Layers = 1
	return d.createTexture(desc, data)
}

func (d *Device) createTexture(desc termgrid.TextureDesc, data []byte) (termgrid.TextureID, error) {
	internal, format, err := glFormat(desc.Format)
	if err != nil {
		return termgrid.InvalidID, err
	}
	if data != nil {
		want := desc.Width * desc.Height * desc.Layers * bytesPerPixel(desc.Format)
		if len(data) != want {
			return termgrid.InvalidID, fmt.Errorf("glgpu: texture data is %d bytes, want %d", len(data), want)
		}
	}

	tex := &glTexture{desc: desc}
	gl.GenTextures(1, &tex.handle)
	target := tex.target()
	gl.BindTexture(target, tex.handle)
	gl.TexParameteri(target, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(target, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(target, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(target, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)

	var ptr unsafe.Pointer
	if data != nil {
		ptr = gl.Ptr(data)
	}
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	if target == gl.TEXTURE_2D_ARRAY {
		gl.TexImage3D(target, 0, internal,
			int32(desc.Width), int32(desc.Height), int32(desc.Layers),
			0, format, gl.UNSIGNED_BYTE, ptr)
	} else {
		gl.TexImage2D(target, 0, internal,
			int32(desc.Width), int32(desc.Height),
			0, format, gl.UNSIGNED_BYTE, ptr)
	}
	gl.BindTexture(target, 0)

	d.nextTex++
	id := termgrid.TextureID(d.nextTex)
	d.textures[id] = tex
	return id, nil
}

// DestroyTexture releases a texture. Destroying InvalidID is a no-op.
func (d *Device) DestroyTexture(id termgrid.TextureID) {
	tex, ok := d.textures[id]
	if !ok {
		return
	}
	gl.DeleteTextures(1, &tex.handle)
	delete(d.textures, id)
}

// UploadTextureRegion writes a packed sub-region into the texture.
func (d *Device) UploadTextureRegion(id termgrid.TextureID, x, y, layer, width, height, depth int, data []byte) error {
	tex, ok := d.textures[id]
	if !ok {
		return termgrid.ErrUnknownTexture
	}
	_, format, err := glFormat(tex.desc.Format)
	if err != nil {
		return err
	}
	if want := width * height * depth * bytesPerPixel(tex.desc.Format); len(data) != want {
		return fmt.Errorf("glgpu: upload data is %d bytes, want %d", len(data), want)
	}

	target := tex.target()
	gl.BindTexture(target, tex.handle)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	if target == gl.TEXTURE_2D_ARRAY {
		gl.TexSubImage3D(target, 0,
			int32(x), int32(y), int32(layer),
			int32(width), int32(height), int32(depth),
			format, gl.UNSIGNED_BYTE, gl.Ptr(data))
	} else {
		gl.TexSubImage2D(target, 0,
			int32(x), int32(y),
			int32(width), int32(height),
			format, gl.UNSIGNED_BYTE, gl.Ptr(data))
	}
	gl.BindTexture(target, 0)
	return nil
}

// CopyTextureRegion copies the front region between two texture arrays
// using glCopyImageSubData. Reports ErrCopyUnsupported when the context
// has neither GL 4.3 nor ARB_copy_image; callers then fall back to a CPU
// round-trip.
func (d *Device) CopyTextureRegion(src, dst termgrid.TextureID, width, height, layers int) error {
	if !d.hasCopyImage {
		return termgrid.ErrCopyUnsupported
	}
	s, ok := d.textures[src]
	if !ok {
		return termgrid.ErrUnknownTexture
	}
	t, ok := d.textures[dst]
	if !ok {
		return termgrid.ErrUnknownTexture
	}
	gl.CopyImageSubData(
		s.handle, s.target(), 0, 0, 0, 0,
		t.handle, t.target(), 0, 0, 0, 0,
		int32(width), int32(height), int32(layers))
	return nil
}

// ReadTextureRGBA reads the whole texture back as RGBA bytes.
func (d *Device) ReadTextureRGBA(id termgrid.TextureID) ([]byte, error) {
	tex, ok := d.textures[id]
	if !ok {
		return nil, termgrid.ErrUnknownTexture
	}
	out := make([]byte, tex.desc.Width*tex.desc.Height*tex.desc.Layers*4)
	target := tex.target()
	gl.BindTexture(target, tex.handle)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.GetTexImage(target, 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(out))
	gl.BindTexture(target, 0)
	return out, nil
}

// BindTexture binds a texture to a unit.
func (d *Device) BindTexture(unit int, id termgrid.TextureID) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	tex, ok := d.textures[id]
	if !ok {
		gl.BindTexture(gl.TEXTURE_2D_ARRAY, 0)
		gl.BindTexture(gl.TEXTURE_2D, 0)
		return
	}
	gl.BindTexture(tex.target(), tex.handle)
}

// CreateVertexArray creates an empty vertex array object.
func (d *Device) CreateVertexArray() (termgrid.VertexArrayID, error) {
	v := &glVertexArray{}
	gl.GenVertexArrays(1, &v.handle)
	d.nextVAO++
	id := termgrid.VertexArrayID(d.nextVAO)
	d.vaos[id] = v
	return id, nil
}

// RemoveVertexArray releases a vertex array and its buffers.
func (d *Device) RemoveVertexArray(id termgrid.VertexArrayID) {
	v, ok := d.vaos[id]
	if !ok {
		return
	}
	for _, b := range v.buffers {
		gl.DeleteBuffers(1, &b.handle)
	}
	gl.DeleteVertexArrays(1, &v.handle)
	delete(d.vaos, id)
}

func glBufferTarget(t termgrid.BufferTarget) uint32 {
	if t == termgrid.UniformBuffer {
		return gl.UNIFORM_BUFFER
	}
	return gl.ARRAY_BUFFER
}

func glUsage(u termgrid.BufferUsage) uint32 {
	switch u {
	case termgrid.StaticDraw:
		return gl.STATIC_DRAW
	case termgrid.DynamicDraw:
		return gl.DYNAMIC_DRAW
	default:
		return gl.STREAM_DRAW
	}
}

// AddVertexBuffer appends a buffer object to the vertex array.
func (d *Device) AddVertexBuffer(vao termgrid.VertexArrayID, target termgrid.BufferTarget) (int, error) {
	v, ok := d.vaos[vao]
	if !ok {
		return 0, termgrid.ErrUnknownVertexArray
	}
	b := &glBuffer{target: glBufferTarget(target)}
	gl.GenBuffers(1, &b.handle)
	v.buffers = append(v.buffers, b)
	return len(v.buffers) - 1, nil
}

func (d *Device) buffer(vao termgrid.VertexArrayID, buf int) (*glBuffer, error) {
	v, ok := d.vaos[vao]
	if !ok {
		return nil, termgrid.ErrUnknownVertexArray
	}
	if buf < 0 || buf >= len(v.buffers) {
		return nil, fmt.Errorf("glgpu: vertex array has no buffer %d", buf)
	}
	return v.buffers[buf], nil
}

// AllocBuffer (re)allocates buffer storage without mapping it.
func (d *Device) AllocBuffer(vao termgrid.VertexArrayID, buf, size int, usage termgrid.BufferUsage) error {
	b, err := d.buffer(vao, buf)
	if err != nil {
		return err
	}
	gl.BindBuffer(b.target, b.handle)
	gl.BufferData(b.target, size, nil, glUsage(usage))
	b.size = size
	return nil
}

// AllocAndMapBuffer (re)allocates buffer storage and returns a write-only
// mapping. Orphaning via BufferData avoids stalling on prior GPU use.
func (d *Device) AllocAndMapBuffer(vao termgrid.VertexArrayID, buf, size int, usage termgrid.BufferUsage) ([]byte, error) {
	b, err := d.buffer(vao, buf)
	if err != nil {
		return nil, err
	}
	gl.BindBuffer(b.target, b.handle)
	gl.BufferData(b.target, size, nil, glUsage(usage))
	b.size = size
	return mapWrite(b, size)
}

// MapBuffer returns a write-only mapping of the buffer's current storage.
func (d *Device) MapBuffer(vao termgrid.VertexArrayID, buf int) ([]byte, error) {
	b, err := d.buffer(vao, buf)
	if err != nil {
		return nil, err
	}
	gl.BindBuffer(b.target, b.handle)
	return mapWrite(b, b.size)
}

func mapWrite(b *glBuffer, size int) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	ptr := gl.MapBuffer(b.target, gl.WRITE_ONLY)
	if ptr == nil {
		return nil, fmt.Errorf("glgpu: mapping %d-byte buffer failed", size)
	}
	return unsafe.Slice((*byte)(ptr), size), nil
}

// UnmapBuffer flushes and invalidates the buffer mapping.
func (d *Device) UnmapBuffer(vao termgrid.VertexArrayID, buf int) error {
	b, err := d.buffer(vao, buf)
	if err != nil {
		return err
	}
	if b.size == 0 {
		return nil
	}
	gl.BindBuffer(b.target, b.handle)
	if !gl.UnmapBuffer(b.target) {
		return fmt.Errorf("glgpu: buffer storage was corrupted during mapping")
	}
	return nil
}

// DefineAttribute configures a vertex attribute sourced from the most
// recently added buffer.
func (d *Device) DefineAttribute(p termgrid.Program, vao termgrid.VertexArrayID, spec termgrid.AttributeSpec) error {
	v, ok := d.vaos[vao]
	if !ok {
		return termgrid.ErrUnknownVertexArray
	}
	if len(v.buffers) == 0 {
		return fmt.Errorf("glgpu: defining attribute %q on vertex array without buffers", spec.Name)
	}
	loc := p.AttributeLocation(spec.Name)
	if loc < 0 {
		return fmt.Errorf("glgpu: program %v has no attribute %q", p.Slot(), spec.Name)
	}
	b := v.buffers[len(v.buffers)-1]

	gl.BindVertexArray(v.handle)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.handle)
	gl.EnableVertexAttribArray(uint32(loc))
	switch spec.Type {
	case termgrid.AttrUint16:
		gl.VertexAttribIPointer(uint32(loc), int32(spec.Size), gl.UNSIGNED_SHORT, int32(spec.Stride), gl.PtrOffset(spec.Offset))
	case termgrid.AttrUint32:
		gl.VertexAttribIPointer(uint32(loc), int32(spec.Size), gl.UNSIGNED_INT, int32(spec.Stride), gl.PtrOffset(spec.Offset))
	default:
		gl.VertexAttribPointer(uint32(loc), int32(spec.Size), gl.FLOAT, false, int32(spec.Stride), gl.PtrOffset(spec.Offset))
	}
	if spec.Divisor > 0 {
		gl.VertexAttribDivisor(uint32(loc), uint32(spec.Divisor))
	}
	gl.BindVertexArray(0)
	return nil
}

// BindUniformBuffer attaches a uniform buffer to a block binding index.
func (d *Device) BindUniformBuffer(vao termgrid.VertexArrayID, buf, blockIndex int) error {
	b, err := d.buffer(vao, buf)
	if err != nil {
		return err
	}
	gl.BindBufferBase(gl.UNIFORM_BUFFER, uint32(blockIndex), b.handle)
	return nil
}

// BindVertexArray makes the vertex array current.
func (d *Device) BindVertexArray(id termgrid.VertexArrayID) {
	if v, ok := d.vaos[id]; ok {
		gl.BindVertexArray(v.handle)
	}
}

// UnbindVertexArray clears the current vertex array.
func (d *Device) UnbindVertexArray() { gl.BindVertexArray(0) }

// BindProgram makes p current. p must have been compiled by this package.
func (d *Device) BindProgram(p termgrid.Program) {
	if gp, ok := p.(*Program); ok {
		gl.UseProgram(gp.handle)
	}
}

// UnbindProgram clears the current program.
func (d *Device) UnbindProgram() { gl.UseProgram(0) }

// SetBlend selects the blend equation.
func (d *Device) SetBlend(mode termgrid.BlendMode) {
	gl.Enable(gl.BLEND)
	if mode == termgrid.BlendPremultiplied {
		gl.BlendFunc(gl.ONE, gl.ONE_MINUS_SRC_ALPHA)
	} else {
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	}
}

// Scissor sets the scissor rectangle.
func (d *Device) Scissor(x, y, width, height int) {
	gl.Scissor(int32(x), int32(y), int32(width), int32(height))
}

// SetScissorEnabled toggles the scissor test.
func (d *Device) SetScissorEnabled(enabled bool) {
	if enabled {
		gl.Enable(gl.SCISSOR_TEST)
	} else {
		gl.Disable(gl.SCISSOR_TEST)
	}
}

func glMode(m termgrid.DrawMode) uint32 {
	if m == termgrid.LineLoop {
		return gl.LINE_LOOP
	}
	return gl.TRIANGLE_FAN
}

// DrawArrays issues one non-instanced draw.
func (d *Device) DrawArrays(mode termgrid.DrawMode, first, count int) {
	gl.DrawArrays(glMode(mode), int32(first), int32(count))
}

// DrawArraysInstanced issues one instanced draw.
func (d *Device) DrawArraysInstanced(mode termgrid.DrawMode, first, count, instances int) {
	gl.DrawArraysInstanced(glMode(mode), int32(first), int32(count), int32(instances))
}

// Uniform1i sets an int uniform.
func (d *Device) Uniform1i(location int, v int32) { gl.Uniform1i(int32(location), v) }

// Uniform2ui sets a uvec2 uniform.
func (d *Device) Uniform2ui(location int, x, y uint32) { gl.Uniform2ui(int32(location), x, y) }

// Uniform3f sets a vec3 uniform.
func (d *Device) Uniform3f(location int, x, y, z float32) { gl.Uniform3f(int32(location), x, y, z) }

// Uniform4f sets a vec4 uniform.
func (d *Device) Uniform4f(location int, x, y, z, w float32) {
	gl.Uniform4f(int32(location), x, y, z, w)
}

// Clear clears the color buffer.
func (d *Device) Clear(r, g, b, a float32) {
	gl.ClearColor(r, g, b, a)
	gl.Clear(gl.COLOR_BUFFER_BIT)
}
