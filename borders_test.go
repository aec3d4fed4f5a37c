package termgrid

import (
	"encoding/binary"
	"testing"
)

func TestAddBorderRectZeroBoundsResets(t *testing.T) {
	ctx, _ := newTestContext(t, SoftwareConfig{}, nil)

	if err := ctx.AddBorderRect(1, 2, 3, 4, 0xff0000); err != nil {
		t.Fatalf("AddBorderRect: %v", err)
	}
	if err := ctx.AddBorderRect(5, 6, 7, 8, 0x00ff00); err != nil {
		t.Fatalf("AddBorderRect: %v", err)
	}
	if got := ctx.BorderRectCount(); got != 2 {
		t.Fatalf("queued %d rects, want 2", got)
	}

	if err := ctx.AddBorderRect(0, 0, 0, 0, 0xffffff); err != nil {
		t.Fatalf("AddBorderRect(zero): %v", err)
	}
	if got := ctx.BorderRectCount(); got != 0 {
		t.Errorf("zero-bounds rect left %d rects queued, want 0", got)
	}
}

func TestAddBorderRectCapacity(t *testing.T) {
	ctx, _ := newTestContext(t, SoftwareConfig{}, nil)

	for i := 0; i < BorderRectCapacity; i++ {
		if err := ctx.AddBorderRect(1, 1, 2, 2, 0); err != nil {
			t.Fatalf("AddBorderRect %d: %v", i, err)
		}
	}
	if err := ctx.AddBorderRect(1, 1, 2, 2, 0); err != ErrBorderBatchFull {
		t.Errorf("got %v past capacity, want ErrBorderBatchFull", err)
	}
}

func TestFlushAndDrawBorders(t *testing.T) {
	ctx, dev := newTestContext(t, SoftwareConfig{}, nil)

	if err := ctx.AddBorderRect(10, 20, 30, 40, 0xaabbcc); err != nil {
		t.Fatalf("AddBorderRect: %v", err)
	}
	if err := ctx.AddBorderRect(50, 60, 70, 80, 0x112233); err != nil {
		t.Fatalf("AddBorderRect: %v", err)
	}
	if err := ctx.FlushBorderRects(800, 600); err != nil {
		t.Fatalf("FlushBorderRects: %v", err)
	}

	buf, err := dev.BufferBytes(ctx.borderVAO, 0)
	if err != nil {
		t.Fatalf("BufferBytes: %v", err)
	}
	if len(buf) != 2*borderRectStride {
		t.Fatalf("buffer is %d bytes, want %d", len(buf), 2*borderRectStride)
	}
	le := binary.LittleEndian
	if got := le.Uint32(buf[0:]); got != 10 {
		t.Errorf("rect 0 left = %d, want 10", got)
	}
	if got := le.Uint32(buf[16:]); got != 0xaabbcc {
		t.Errorf("rect 0 color = %#x, want 0xaabbcc", got)
	}
	if got := le.Uint32(buf[borderRectStride+12:]); got != 80 {
		t.Errorf("rect 1 bottom = %d, want 80", got)
	}

	// The viewport uniform is set during flush.
	var sawViewport bool
	for _, c := range dev.Commands() {
		if c.Kind == CommandUniform && c.Program == BordersProgram &&
			c.Values[0] == 800 && c.Values[1] == 600 {
			sawViewport = true
		}
	}
	if !sawViewport {
		t.Error("viewport uniform not set by flush")
	}

	dev.ResetCommands()
	if err := ctx.DrawBorders(); err != nil {
		t.Fatalf("DrawBorders: %v", err)
	}
	draws := dev.DrawCommands()
	if len(draws) != 1 {
		t.Fatalf("got %d draws, want 1", len(draws))
	}
	d := draws[0]
	if d.Program != BordersProgram || d.Mode != TriangleFan || d.Count != 4 || d.Instances != 2 {
		t.Errorf("draw = %+v, want borders fan of 4 with 2 instances", d)
	}
}

func TestDrawBordersEmptyIsNoOp(t *testing.T) {
	ctx, dev := newTestContext(t, SoftwareConfig{}, nil)

	if err := ctx.FlushBorderRects(800, 600); err != nil {
		t.Fatalf("FlushBorderRects: %v", err)
	}
	dev.ResetCommands()
	if err := ctx.DrawBorders(); err != nil {
		t.Fatalf("DrawBorders: %v", err)
	}
	if draws := dev.DrawCommands(); len(draws) != 0 {
		t.Errorf("empty batch issued %d draws, want 0", len(draws))
	}
}
