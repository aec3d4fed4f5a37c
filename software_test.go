package termgrid

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
)

func TestSoftwareDeviceUploadAndReadback(t *testing.T) {
	dev := NewSoftwareDevice(SoftwareConfig{})

	id, err := dev.CreateTextureArray(TextureDesc{
		Width: 4, Height: 2, Layers: 2, Format: gputypes.TextureFormatR8Unorm,
	})
	if err != nil {
		t.Fatalf("CreateTextureArray: %v", err)
	}

	region := []byte{1, 2, 3, 4}
	if err := dev.UploadTextureRegion(id, 1, 0, 1, 2, 2, 1, region); err != nil {
		t.Fatalf("UploadTextureRegion: %v", err)
	}

	pixels, err := dev.TexturePixels(id)
	if err != nil {
		t.Fatalf("TexturePixels: %v", err)
	}
	// Layer 1 plane starts at 8; rows of the region land at x=1.
	if pixels[8+1] != 1 || pixels[8+2] != 2 || pixels[8+4+1] != 3 || pixels[8+4+2] != 4 {
		t.Errorf("region landed wrong: layer 1 = %v", pixels[8:])
	}

	rgba, err := dev.ReadTextureRGBA(id)
	if err != nil {
		t.Fatalf("ReadTextureRGBA: %v", err)
	}
	if len(rgba) != 4*2*2*4 {
		t.Fatalf("readback is %d bytes, want %d", len(rgba), 4*2*2*4)
	}
	off := (8 + 1) * 4
	if rgba[off] != 1 || rgba[off+3] != 0xff {
		t.Errorf("readback pixel = %v, want value in channel 0 and opaque alpha", rgba[off:off+4])
	}
}

func TestSoftwareDeviceUploadBounds(t *testing.T) {
	dev := NewSoftwareDevice(SoftwareConfig{})
	id, err := dev.CreateTextureArray(TextureDesc{
		Width: 4, Height: 4, Layers: 1, Format: gputypes.TextureFormatR8Unorm,
	})
	if err != nil {
		t.Fatalf("CreateTextureArray: %v", err)
	}
	if err := dev.UploadTextureRegion(id, 2, 2, 0, 4, 4, 1, make([]byte, 16)); err == nil {
		t.Error("no error for out-of-bounds region")
	}
	if err := dev.UploadTextureRegion(id, 0, 0, 0, 2, 2, 1, make([]byte, 3)); err == nil {
		t.Error("no error for short data")
	}
}

func TestSoftwareDeviceCopyDisabled(t *testing.T) {
	dev := NewSoftwareDevice(SoftwareConfig{DisableTextureCopy: true})
	desc := TextureDesc{Width: 2, Height: 2, Layers: 1, Format: gputypes.TextureFormatR8Unorm}
	src, _ := dev.CreateTextureArray(desc)
	dst, _ := dev.CreateTextureArray(desc)

	if err := dev.CopyTextureRegion(src, dst, 2, 2, 1); !errors.Is(err, ErrCopyUnsupported) {
		t.Errorf("got %v, want ErrCopyUnsupported", err)
	}
}

func TestSoftwareDeviceCopyBetweenWidths(t *testing.T) {
	dev := NewSoftwareDevice(SoftwareConfig{})
	src, _ := dev.CreateTextureArray(TextureDesc{Width: 2, Height: 2, Layers: 1, Format: gputypes.TextureFormatR8Unorm})
	dst, _ := dev.CreateTextureArray(TextureDesc{Width: 4, Height: 4, Layers: 1, Format: gputypes.TextureFormatR8Unorm})

	if err := dev.UploadTextureRegion(src, 0, 0, 0, 2, 2, 1, []byte{9, 8, 7, 6}); err != nil {
		t.Fatalf("UploadTextureRegion: %v", err)
	}
	if err := dev.CopyTextureRegion(src, dst, 2, 2, 1); err != nil {
		t.Fatalf("CopyTextureRegion: %v", err)
	}
	pixels, _ := dev.TexturePixels(dst)
	if pixels[0] != 9 || pixels[1] != 8 || pixels[4] != 7 || pixels[5] != 6 {
		t.Errorf("copy landed wrong: %v", pixels)
	}
}

func TestSoftwareDeviceBufferMapSemantics(t *testing.T) {
	dev := NewSoftwareDevice(SoftwareConfig{})
	vao, err := dev.CreateVertexArray()
	if err != nil {
		t.Fatalf("CreateVertexArray: %v", err)
	}
	buf, err := dev.AddVertexBuffer(vao, ArrayBuffer)
	if err != nil {
		t.Fatalf("AddVertexBuffer: %v", err)
	}

	if _, err := dev.MapBuffer(vao, buf); err == nil {
		t.Error("mapping unallocated buffer succeeded")
	}
	if err := dev.UnmapBuffer(vao, buf); err == nil {
		t.Error("unmapping unmapped buffer succeeded")
	}

	data, err := dev.AllocAndMapBuffer(vao, buf, 8, StreamDraw)
	if err != nil {
		t.Fatalf("AllocAndMapBuffer: %v", err)
	}
	copy(data, []byte{1, 2, 3})
	if err := dev.UnmapBuffer(vao, buf); err != nil {
		t.Fatalf("UnmapBuffer: %v", err)
	}
	stored, err := dev.BufferBytes(vao, buf)
	if err != nil {
		t.Fatalf("BufferBytes: %v", err)
	}
	if stored[0] != 1 || stored[1] != 2 || stored[2] != 3 {
		t.Errorf("buffer = %v, want written bytes", stored[:3])
	}
}

func TestSoftwareDeviceLimits(t *testing.T) {
	dev := NewSoftwareDevice(SoftwareConfig{})
	limits := dev.Limits()
	if limits.MaxTextureSize != defaultSoftwareMaxTextureSize {
		t.Errorf("max texture size = %d, want %d", limits.MaxTextureSize, defaultSoftwareMaxTextureSize)
	}

	_, err := dev.CreateTextureArray(TextureDesc{
		Width: limits.MaxTextureSize + 1, Height: 1, Layers: 1,
		Format: gputypes.TextureFormatR8Unorm,
	})
	if err == nil {
		t.Error("no error for oversized texture")
	}
}

func TestRegistryDevices(t *testing.T) {
	names := AvailableDevices()
	found := false
	for _, n := range names {
		if n == DeviceSoftware {
			found = true
		}
	}
	if !found {
		t.Fatalf("software device not registered: %v", names)
	}

	if d := NewDevice(DeviceSoftware); d == nil || d.Name() != DeviceSoftware {
		t.Error("NewDevice(software) did not return a software device")
	}
	if d := NewDevice("no-such-device"); d != nil {
		t.Error("NewDevice returned a device for an unknown name")
	}

	d, err := DefaultDevice()
	if err != nil {
		t.Fatalf("DefaultDevice: %v", err)
	}
	if d == nil {
		t.Fatal("DefaultDevice returned nil device")
	}
}
