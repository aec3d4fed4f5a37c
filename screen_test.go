package termgrid

import (
	"encoding/binary"
	"testing"
)

func TestPutGPUCell(t *testing.T) {
	var buf [GPUCellSize]byte
	PutGPUCell(buf[:], GPUCell{
		SpriteX: 1, SpriteY: 2, SpriteZ: 3, SpriteW: 4,
		FG: 0x112233, BG: 0x445566, DecorationFG: 0x778899,
	})
	le := binary.LittleEndian
	if le.Uint16(buf[0:]) != 1 || le.Uint16(buf[6:]) != 4 {
		t.Errorf("sprite coords encoded wrong: %v", buf[:8])
	}
	if le.Uint32(buf[8:]) != 0x112233 {
		t.Errorf("fg = %#x, want 0x112233", le.Uint32(buf[8:]))
	}
	if le.Uint32(buf[16:]) != 0x778899 {
		t.Errorf("decoration fg = %#x, want 0x778899", le.Uint32(buf[16:]))
	}
}

func TestColorProfileOverrides(t *testing.T) {
	var p ColorProfile
	p.Configured = ColorScheme{DefaultFG: 0x111111, CursorColor: 0x222222}

	if got := p.DefaultFG(); got != 0x111111 {
		t.Errorf("DefaultFG = %#x, want configured value", got)
	}
	p.Overridden.DefaultFG = OptionalColor{Set: true, Color: 0xabcdef}
	if got := p.DefaultFG(); got != 0xabcdef {
		t.Errorf("DefaultFG = %#x, want override", got)
	}
	// A set-but-zero override still wins: "overridden to black" is not
	// "not overridden".
	p.Overridden.CursorColor = OptionalColor{Set: true, Color: 0}
	if got := p.CursorColor(); got != 0 {
		t.Errorf("CursorColor = %#x, want overridden black", got)
	}
}

func TestColorProfileWriteColorTable(t *testing.T) {
	var p ColorProfile
	p.Table[0] = 0xaa0000
	p.Table[255] = 0x0000bb
	p.MarkDirty()

	buf := make([]byte, 96+256*16)
	p.WriteColorTable(buf, 96, 16)

	le := binary.LittleEndian
	if got := le.Uint32(buf[96:]); got != 0xaa0000 {
		t.Errorf("table[0] = %#x, want 0xaa0000", got)
	}
	if got := le.Uint32(buf[96+255*16:]); got != 0x0000bb {
		t.Errorf("table[255] = %#x, want 0x0000bb", got)
	}
	if p.Dirty() {
		t.Error("profile still dirty after write")
	}
}
