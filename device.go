// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package termgrid

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// TextureID is an opaque handle to a device texture.
// The zero value ([InvalidID]) never names a live texture; destroyed
// handles are reset to it so that double-free is detectable.
type TextureID uint64

// VertexArrayID is an opaque handle to a device vertex array and the
// ordered list of buffers attached to it.
type VertexArrayID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// ProgramSlot identifies one of the fixed set of draw programs the
// renderer uses. The set is closed: the cell grid is drawn by the four
// cell program variants, and cursor, borders and image overlays each have
// a dedicated program.
type ProgramSlot int

// Program slots.
const (
	// CellProgram draws background, decorations and glyphs in one pass.
	CellProgram ProgramSlot = iota

	// CellBackgroundProgram draws only cell background colors.
	CellBackgroundProgram

	// CellSpecialProgram draws special decorations (underlines, strikethrough).
	CellSpecialProgram

	// CellForegroundProgram draws only glyph foregrounds.
	CellForegroundProgram

	// CursorProgram draws the cursor quad.
	CursorProgram

	// BordersProgram draws window-split border rectangles.
	BordersProgram

	// GraphicsProgram draws image overlay quads.
	GraphicsProgram

	// NumPrograms is the number of program slots.
	NumPrograms
)

// String returns the slot name.
func (s ProgramSlot) String() string {
	switch s {
	case CellProgram:
		return "cell"
	case CellBackgroundProgram:
		return "cell_background"
	case CellSpecialProgram:
		return "cell_special"
	case CellForegroundProgram:
		return "cell_foreground"
	case CursorProgram:
		return "cursor"
	case BordersProgram:
		return "borders"
	case GraphicsProgram:
		return "graphics"
	default:
		return fmt.Sprintf("ProgramSlot(%d)", int(s))
	}
}

// Texture unit convention. The glyph atlas is bound once to SpriteMapUnit
// and reused across all cell program variants; overlay images are rebound
// per distinct texture on GraphicsUnit.
const (
	SpriteMapUnit = 0
	GraphicsUnit  = 1
)

// BufferTarget selects what a vertex-array buffer feeds.
type BufferTarget uint32

// Buffer targets.
const (
	// ArrayBuffer holds per-vertex or per-instance attribute data.
	ArrayBuffer BufferTarget = iota + 1

	// UniformBuffer backs a uniform block.
	UniformBuffer
)

// BufferUsage is the driver usage hint for a buffer allocation.
type BufferUsage uint32

// Buffer usage hints. Stream buffers are rewritten every frame (cell and
// selection data); static buffers change rarely (border rects).
const (
	StreamDraw BufferUsage = iota + 1
	StaticDraw
	DynamicDraw
)

// String returns the usage name.
func (u BufferUsage) String() string {
	switch u {
	case StreamDraw:
		return "stream"
	case StaticDraw:
		return "static"
	case DynamicDraw:
		return "dynamic"
	default:
		return fmt.Sprintf("BufferUsage(%d)", uint32(u))
	}
}

// DrawMode is the primitive topology of a draw call.
type DrawMode uint32

// Draw modes.
const (
	// TriangleFan draws a fan; all quads in this renderer are 4-vertex fans.
	TriangleFan DrawMode = iota + 1

	// LineLoop draws an outline; used for the unfocused cursor.
	LineLoop
)

// BlendMode selects the blend equation for subsequent draws.
type BlendMode uint32

// Blend modes.
const (
	// BlendSourceOver is standard alpha blending
	// (SRC_ALPHA, ONE_MINUS_SRC_ALPHA).
	BlendSourceOver BlendMode = iota + 1

	// BlendPremultiplied uses inverted-alpha compositing
	// (ONE, ONE_MINUS_SRC_ALPHA) so glyph coverage composites correctly
	// over whatever was drawn beneath it.
	BlendPremultiplied
)

// AttributeType is the component type of a vertex attribute.
type AttributeType uint32

// Attribute component types.
const (
	AttrUint16 AttributeType = iota + 1
	AttrUint32
	AttrFloat32
)

// AttributeSpec describes one vertex attribute within a vertex-array
// buffer. Offset and Stride are in bytes. A non-zero Divisor makes the
// attribute advance per instance rather than per vertex.
type AttributeSpec struct {
	Name    string
	Size    int
	Type    AttributeType
	Stride  int
	Offset  int
	Divisor int
}

// TextureDesc describes a texture to create. Layers is the array layer
// count for texture arrays and must be 1 for plain 2D textures.
type TextureDesc struct {
	Label  string
	Width  int
	Height int
	Layers int
	Format gputypes.TextureFormat
}

// Limits reports the hardware limits the sprite atlas must respect.
type Limits struct {
	// MaxTextureSize is the maximum texture dimension in pixels.
	MaxTextureSize int

	// MaxArrayTextureLayers is the maximum texture array layer count.
	MaxArrayTextureLayers int
}

// UniformInfo describes one active uniform of a program.
type UniformInfo struct {
	Name     string
	Location int
}

// Program exposes the reflection data of a compiled, linked draw program.
// Compilation and linking are the host's responsibility ("program
// compiler" collaborator); the renderer only queries layout information
// and binds programs for drawing.
//
// Programs are immutable after linking; implementations may cache all
// reflection answers.
type Program interface {
	// Slot returns the program slot this program was compiled for.
	Slot() ProgramSlot

	// UniformBlockIndex returns the binding index of the named uniform
	// block, or an error if the block is not active in the program.
	UniformBlockIndex(name string) (int, error)

	// UniformBlockSize returns the byte size of the uniform block with the
	// given index.
	UniformBlockSize(index int) (int, error)

	// UniformArrayInfo returns the element count, byte offset and array
	// stride of the named array uniform (queried on its first element,
	// e.g. "color_table[0]").
	UniformArrayInfo(name string) (size, offset, stride int, err error)

	// AttributeLocation returns the location of the named vertex
	// attribute, or -1 if the attribute is not active.
	AttributeLocation(name string) int

	// UniformLocation returns the location of the named plain uniform, or
	// -1 if it is not active.
	UniformLocation(name string) int

	// Uniforms lists all active plain (non-block) uniforms.
	Uniforms() []UniformInfo
}

// Device is the seam between the renderer and the GPU. The renderer
// receives a Device from the host; it never creates GPU state on its own.
//
// All methods must be called from the single rendering goroutine that owns
// the GPU context. A mapped buffer region is exclusively owned by the
// caller between MapBuffer/AllocAndMapBuffer and UnmapBuffer.
type Device interface {
	// Name returns the device identifier (e.g. "software", "gl").
	Name() string

	// Limits returns the hardware limits of the device.
	Limits() Limits

	// CreateTextureArray creates a 2D texture array with desc.Layers
	// layers. The contents are undefined until uploaded.
	CreateTextureArray(desc TextureDesc) (TextureID, error)

	// CreateTexture2D creates a plain 2D texture, optionally initialized
	// with pixel data (len must match desc dimensions, or be nil).
	CreateTexture2D(desc TextureDesc, data []byte) (TextureID, error)

	// DestroyTexture releases the texture. Destroying InvalidID is a no-op.
	DestroyTexture(id TextureID)

	// UploadTextureRegion writes a sub-region of a texture array.
	// data holds width*height*depth tightly packed pixels of the texture's
	// format starting at (x, y, layer).
	UploadTextureRegion(id TextureID, x, y, layer, width, height, depth int, data []byte) error

	// CopyTextureRegion copies the given region from the front of src to
	// the front of dst. Returns ErrCopyUnsupported when the platform has
	// no native cross-texture copy primitive.
	CopyTextureRegion(src, dst TextureID, width, height, layers int) error

	// ReadTextureRGBA reads the whole texture back as 4-channel RGBA
	// bytes, expanding single-channel formats (pixel value in channel 0).
	// Used only by the CPU fallback copy path.
	ReadTextureRGBA(id TextureID) ([]byte, error)

	// BindTexture binds a texture to the given texture unit.
	BindTexture(unit int, id TextureID)

	// CreateVertexArray creates an empty vertex array.
	CreateVertexArray() (VertexArrayID, error)

	// RemoveVertexArray releases a vertex array and all its buffers.
	RemoveVertexArray(id VertexArrayID)

	// AddVertexBuffer appends a buffer to the vertex array and returns its
	// index within the array.
	AddVertexBuffer(vao VertexArrayID, target BufferTarget) (int, error)

	// AllocBuffer (re)allocates buffer storage without mapping it.
	AllocBuffer(vao VertexArrayID, buf, size int, usage BufferUsage) error

	// AllocAndMapBuffer (re)allocates buffer storage and returns a
	// write-only mapping of the whole buffer. The mapping blocks until any
	// prior GPU use of the buffer completes (driver-managed).
	AllocAndMapBuffer(vao VertexArrayID, buf, size int, usage BufferUsage) ([]byte, error)

	// MapBuffer returns a write-only mapping of the buffer's current
	// storage.
	MapBuffer(vao VertexArrayID, buf int) ([]byte, error)

	// UnmapBuffer flushes and invalidates the mapping of a buffer.
	UnmapBuffer(vao VertexArrayID, buf int) error

	// DefineAttribute configures a vertex attribute of program p sourced
	// from the most recently added buffer of the vertex array.
	DefineAttribute(p Program, vao VertexArrayID, spec AttributeSpec) error

	// BindUniformBuffer attaches a uniform buffer of the vertex array to
	// the given uniform block binding index.
	BindUniformBuffer(vao VertexArrayID, buf, blockIndex int) error

	// BindVertexArray makes the vertex array current for subsequent draws.
	BindVertexArray(id VertexArrayID)

	// UnbindVertexArray clears the current vertex array.
	UnbindVertexArray()

	// BindProgram makes p current for subsequent draws.
	BindProgram(p Program)

	// UnbindProgram clears the current program.
	UnbindProgram()

	// SetBlend selects the blend mode for subsequent draws.
	SetBlend(mode BlendMode)

	// Scissor sets the scissor rectangle in framebuffer pixels.
	Scissor(x, y, width, height int)

	// SetScissorEnabled toggles the scissor test.
	SetScissorEnabled(enabled bool)

	// DrawArrays issues one non-instanced draw.
	DrawArrays(mode DrawMode, first, count int)

	// DrawArraysInstanced issues one instanced draw.
	DrawArraysInstanced(mode DrawMode, first, count, instances int)

	// Uniform setters address plain uniforms by location.
	Uniform1i(location int, v int32)
	Uniform2ui(location int, x, y uint32)
	Uniform3f(location int, x, y, z float32)
	Uniform4f(location int, x, y, z, w float32)

	// Clear clears the color buffer to the given color.
	Clear(r, g, b, a float32)
}
