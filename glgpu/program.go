//go:build cgo

package glgpu

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/all-core/gl"

	"github.com/gogpu/termgrid"
)

// Program is a compiled and linked GLSL program with its reflection data
// cached. Programs are immutable after linking.
type Program struct {
	slot   termgrid.ProgramSlot
	handle uint32

	uniforms []termgrid.UniformInfo
}

// CompileProgram compiles and links the vertex and fragment sources into
// a program for the given slot.
func CompileProgram(slot termgrid.ProgramSlot, vertexSource, fragmentSource string) (*Program, error) {
	vs, err := compileShader(gl.VERTEX_SHADER, vertexSource)
	if err != nil {
		return nil, fmt.Errorf("glgpu: %v vertex shader: %w", slot, err)
	}
	defer gl.DeleteShader(vs)

	fs, err := compileShader(gl.FRAGMENT_SHADER, fragmentSource)
	if err != nil {
		return nil, fmt.Errorf("glgpu: %v fragment shader: %w", slot, err)
	}
	defer gl.DeleteShader(fs)

	handle := gl.CreateProgram()
	gl.AttachShader(handle, vs)
	gl.AttachShader(handle, fs)
	gl.LinkProgram(handle)
	gl.DetachShader(handle, vs)
	gl.DetachShader(handle, fs)

	var status int32
	gl.GetProgramiv(handle, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		log := programInfoLog(handle)
		gl.DeleteProgram(handle)
		return nil, fmt.Errorf("glgpu: linking %v program: %s", slot, log)
	}

	p := &Program{slot: slot, handle: handle}
	p.uniforms = p.enumerateUniforms()
	return p, nil
}

func compileShader(kind uint32, source string) (uint32, error) {
	shader := gl.CreateShader(kind)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("%s", strings.TrimRight(log, "\x00"))
	}
	return shader, nil
}

func programInfoLog(handle uint32) string {
	var logLength int32
	gl.GetProgramiv(handle, gl.INFO_LOG_LENGTH, &logLength)
	log := strings.Repeat("\x00", int(logLength+1))
	gl.GetProgramInfoLog(handle, logLength, nil, gl.Str(log))
	return strings.TrimRight(log, "\x00")
}

// enumerateUniforms lists the active plain uniforms, skipping those that
// live inside uniform blocks.
func (p *Program) enumerateUniforms() []termgrid.UniformInfo {
	var count, maxLen int32
	gl.GetProgramiv(p.handle, gl.ACTIVE_UNIFORMS, &count)
	gl.GetProgramiv(p.handle, gl.ACTIVE_UNIFORM_MAX_LENGTH, &maxLen)
	if maxLen < 1 {
		maxLen = 1
	}

	var out []termgrid.UniformInfo
	name := make([]byte, maxLen+1)
	for i := int32(0); i < count; i++ {
		var length, size int32
		var xtype uint32
		gl.GetActiveUniform(p.handle, uint32(i), maxLen, &length, &size, &xtype, &name[0])

		idx := uint32(i)
		var blockIndex int32
		gl.GetActiveUniformsiv(p.handle, 1, &idx, gl.UNIFORM_BLOCK_INDEX, &blockIndex)
		if blockIndex >= 0 {
			continue
		}

		n := string(name[:length])
		out = append(out, termgrid.UniformInfo{
			Name:     n,
			Location: int(gl.GetUniformLocation(p.handle, gl.Str(n+"\x00"))),
		})
	}
	return out
}

// Destroy releases the GL program object.
func (p *Program) Destroy() {
	if p.handle != 0 {
		gl.DeleteProgram(p.handle)
		p.handle = 0
	}
}

// Slot returns the program slot.
func (p *Program) Slot() termgrid.ProgramSlot { return p.slot }

// UniformBlockIndex returns the index of the named uniform block.
func (p *Program) UniformBlockIndex(name string) (int, error) {
	idx := gl.GetUniformBlockIndex(p.handle, gl.Str(name+"\x00"))
	if idx == gl.INVALID_INDEX {
		return 0, fmt.Errorf("glgpu: program %v has no uniform block %q", p.slot, name)
	}
	return int(idx), nil
}

// UniformBlockSize returns the byte size of a uniform block.
func (p *Program) UniformBlockSize(index int) (int, error) {
	var size int32
	gl.GetActiveUniformBlockiv(p.handle, uint32(index), gl.UNIFORM_BLOCK_DATA_SIZE, &size)
	if size <= 0 {
		return 0, fmt.Errorf("glgpu: program %v has no uniform block %d", p.slot, index)
	}
	return int(size), nil
}

// UniformArrayInfo returns the element count, byte offset and array
// stride of the named array uniform.
func (p *Program) UniformArrayInfo(name string) (size, offset, stride int, err error) {
	cname, free := gl.Strs(name + "\x00")
	var idx uint32
	gl.GetUniformIndices(p.handle, 1, cname, &idx)
	free()
	if idx == gl.INVALID_INDEX {
		return 0, 0, 0, fmt.Errorf("glgpu: program %v has no uniform %q", p.slot, name)
	}

	var vSize, vOffset, vStride int32
	gl.GetActiveUniformsiv(p.handle, 1, &idx, gl.UNIFORM_SIZE, &vSize)
	gl.GetActiveUniformsiv(p.handle, 1, &idx, gl.UNIFORM_OFFSET, &vOffset)
	gl.GetActiveUniformsiv(p.handle, 1, &idx, gl.UNIFORM_ARRAY_STRIDE, &vStride)
	return int(vSize), int(vOffset), int(vStride), nil
}

// AttributeLocation returns the location of a vertex attribute, or -1.
func (p *Program) AttributeLocation(name string) int {
	return int(gl.GetAttribLocation(p.handle, gl.Str(name+"\x00")))
}

// UniformLocation returns the location of a plain uniform, or -1.
func (p *Program) UniformLocation(name string) int {
	return int(gl.GetUniformLocation(p.handle, gl.Str(name+"\x00")))
}

// Uniforms lists the active plain uniforms.
func (p *Program) Uniforms() []termgrid.UniformInfo { return p.uniforms }
