package termgrid

import "fmt"

// Reflection constants of the reference cell shaders, matching the std140
// layout of the CellRenderData uniform block: the scalar header fields are
// packed at the front, the color table follows at the next 16-byte
// boundary with a 16-byte array stride.
const (
	softwareCellBlockIndex  = 0
	softwareCellHeaderSize  = 96
	softwareColorTableSize  = 256
	softwareColorTableStride = 16
	softwareCellBlockSize   = softwareCellHeaderSize + softwareColorTableSize*softwareColorTableStride
)

// SoftwareProgram is the Program implementation paired with
// SoftwareDevice. It reports the reference shaders' reflection data: the
// standard attribute convention (colors=0, sprite_coords=1,
// is_selected=2), the CellRenderData block layout above, and the fixed
// uniform sets of the cursor, borders and graphics programs.
//
// Tests can distort the reported layout via the Set* methods to exercise
// the renderer's configuration validation.
type SoftwareProgram struct {
	slot     ProgramSlot
	attrs    map[string]int
	uniforms []UniformInfo
	blocks   map[string]int
	blockSz  map[int]int
	arrays   map[string][3]int // size, offset, stride
}

// NewSoftwareProgram creates a software program for the given slot with
// the reference reflection data.
func NewSoftwareProgram(slot ProgramSlot) *SoftwareProgram {
	p := &SoftwareProgram{
		slot:    slot,
		attrs:   make(map[string]int),
		blocks:  make(map[string]int),
		blockSz: make(map[int]int),
		arrays:  make(map[string][3]int),
	}

	switch slot {
	case CellProgram, CellBackgroundProgram, CellSpecialProgram, CellForegroundProgram:
		p.attrs["colors"] = 0
		p.attrs["sprite_coords"] = 1
		p.attrs["is_selected"] = 2
		p.blocks["CellRenderData"] = softwareCellBlockIndex
		p.blockSz[softwareCellBlockIndex] = softwareCellBlockSize
		p.arrays["color_table[0]"] = [3]int{softwareColorTableSize, softwareCellHeaderSize, softwareColorTableStride}
		p.uniforms = []UniformInfo{{Name: "sprites", Location: 0}}
	case CursorProgram:
		p.uniforms = []UniformInfo{{Name: "color", Location: 0}, {Name: "pos", Location: 1}}
	case BordersProgram:
		p.attrs["rect"] = 0
		p.attrs["rect_color"] = 1
		p.uniforms = []UniformInfo{{Name: "viewport", Location: 0}}
	case GraphicsProgram:
		p.attrs["src"] = 0
		p.uniforms = []UniformInfo{{Name: "image", Location: 0}}
	}

	return p
}

// Slot returns the program slot.
func (p *SoftwareProgram) Slot() ProgramSlot { return p.slot }

// UniformBlockIndex returns the binding index of a uniform block.
func (p *SoftwareProgram) UniformBlockIndex(name string) (int, error) {
	idx, ok := p.blocks[name]
	if !ok {
		return 0, fmt.Errorf("termgrid: program %v has no uniform block %q", p.slot, name)
	}
	return idx, nil
}

// UniformBlockSize returns the byte size of a uniform block.
func (p *SoftwareProgram) UniformBlockSize(index int) (int, error) {
	sz, ok := p.blockSz[index]
	if !ok {
		return 0, fmt.Errorf("termgrid: program %v has no uniform block %d", p.slot, index)
	}
	return sz, nil
}

// UniformArrayInfo returns size, offset and stride of an array uniform.
func (p *SoftwareProgram) UniformArrayInfo(name string) (size, offset, stride int, err error) {
	info, ok := p.arrays[name]
	if !ok {
		return 0, 0, 0, fmt.Errorf("termgrid: program %v has no array uniform %q", p.slot, name)
	}
	return info[0], info[1], info[2], nil
}

// AttributeLocation returns the attribute location, or -1.
func (p *SoftwareProgram) AttributeLocation(name string) int {
	loc, ok := p.attrs[name]
	if !ok {
		return -1
	}
	return loc
}

// UniformLocation returns the uniform location, or -1.
func (p *SoftwareProgram) UniformLocation(name string) int {
	for _, u := range p.uniforms {
		if u.Name == name {
			return u.Location
		}
	}
	return -1
}

// Uniforms lists the active plain uniforms.
func (p *SoftwareProgram) Uniforms() []UniformInfo { return p.uniforms }

// SetAttributeLocation overrides a reported attribute location.
func (p *SoftwareProgram) SetAttributeLocation(name string, loc int) {
	p.attrs[name] = loc
}

// SetUniforms replaces the reported plain uniform set.
func (p *SoftwareProgram) SetUniforms(uniforms []UniformInfo) {
	p.uniforms = uniforms
}
