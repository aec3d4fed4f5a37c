package termgrid

import "testing"

func uploadTestSprite(t *testing.T, ctx *Context, x, y, z int, fill byte) {
	t.Helper()
	pixels := make([]byte, 4*6)
	for i := range pixels {
		pixels[i] = fill
	}
	if err := ctx.UploadSprite(x, y, z, pixels); err != nil {
		t.Fatalf("UploadSprite(%d, %d, %d): %v", x, y, z, err)
	}
}

func TestSpriteMapGrowthPreservesContents(t *testing.T) {
	for _, tc := range []struct {
		name string
		cfg  SoftwareConfig
	}{
		{"native copy", SoftwareConfig{}},
		{"cpu fallback", SoftwareConfig{DisableTextureCopy: true}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			tracker := &fakeTracker{xnum: 2, ynum: 1}
			ctx, dev := newTestContext(t, tc.cfg, tracker)

			uploadTestSprite(t, ctx, 0, 0, 0, 0xaa)
			uploadTestSprite(t, ctx, 1, 0, 0, 0xbb)
			firstTex := ctx.SpriteMapTexture()

			// Grow a row.
			tracker.ynum = 2
			uploadTestSprite(t, ctx, 0, 1, 0, 0xcc)
			if ctx.SpriteMapTexture() == firstTex {
				t.Fatal("sprite map not reallocated on row growth")
			}

			desc, err := dev.TextureDescOf(ctx.SpriteMapTexture())
			if err != nil {
				t.Fatalf("TextureDescOf: %v", err)
			}
			if desc.Width != 8 || desc.Height != 12 || desc.Layers != 1 {
				t.Fatalf("sprite map is %dx%dx%d, want 8x12x1", desc.Width, desc.Height, desc.Layers)
			}

			pixels, err := dev.TexturePixels(ctx.SpriteMapTexture())
			if err != nil {
				t.Fatalf("TexturePixels: %v", err)
			}
			// Row 0 holds the first two sprites side by side.
			if pixels[0] != 0xaa {
				t.Errorf("sprite (0,0) lost: pixel = %#x, want 0xaa", pixels[0])
			}
			if pixels[4] != 0xbb {
				t.Errorf("sprite (1,0) lost: pixel = %#x, want 0xbb", pixels[4])
			}
			// Row 1 (cell row) starts at y=6.
			if got := pixels[6*8]; got != 0xcc {
				t.Errorf("sprite (0,1) = %#x, want 0xcc", got)
			}

			// Grow a layer.
			tracker.z = 1
			uploadTestSprite(t, ctx, 0, 0, 1, 0xdd)
			desc, err = dev.TextureDescOf(ctx.SpriteMapTexture())
			if err != nil {
				t.Fatalf("TextureDescOf: %v", err)
			}
			if desc.Layers != 2 {
				t.Fatalf("sprite map has %d layers, want 2", desc.Layers)
			}
			pixels, err = dev.TexturePixels(ctx.SpriteMapTexture())
			if err != nil {
				t.Fatalf("TexturePixels: %v", err)
			}
			if pixels[0] != 0xaa || pixels[6*8] != 0xcc {
				t.Error("layer 0 contents lost on layer growth")
			}
			if got := pixels[8*12]; got != 0xdd {
				t.Errorf("layer 1 sprite = %#x, want 0xdd", got)
			}

			// Old textures are released.
			if n := dev.TextureCount(); n != 1 {
				t.Errorf("%d live textures after growth, want 1", n)
			}
		})
	}
}

func TestSpriteMapLayerCapIsUnrecoverable(t *testing.T) {
	tracker := &fakeTracker{xnum: 1, ynum: 1}
	ctx, _ := newTestContext(t, SoftwareConfig{Limits: Limits{MaxArrayTextureLayers: 1}}, tracker)

	uploadTestSprite(t, ctx, 0, 0, 0, 0x01)

	tracker.z = 1
	pixels := make([]byte, 4*6)
	err := ctx.UploadSprite(0, 0, 1, pixels)
	if err == nil {
		t.Fatal("no error when exceeding the layer cap")
	}
	if !IsUnrecoverable(err) {
		t.Errorf("layer cap error is recoverable: %v", err)
	}
}

func TestLayoutSpriteMapReplacesTexture(t *testing.T) {
	tracker := &fakeTracker{xnum: 2, ynum: 1}
	ctx, dev := newTestContext(t, SoftwareConfig{}, tracker)

	first := ctx.SpriteMapTexture()
	if first == InvalidID {
		t.Fatal("no sprite map after layout")
	}
	if err := ctx.LayoutSpriteMap(5, 9); err != nil {
		t.Fatalf("LayoutSpriteMap: %v", err)
	}
	second := ctx.SpriteMapTexture()
	if second == first {
		t.Error("sprite map texture not replaced on relayout")
	}
	desc, err := dev.TextureDescOf(second)
	if err != nil {
		t.Fatalf("TextureDescOf: %v", err)
	}
	if desc.Width != 2*5 || desc.Height != 9 {
		t.Errorf("sprite map is %dx%d, want 10x9", desc.Width, desc.Height)
	}
	if n := dev.TextureCount(); n != 1 {
		t.Errorf("%d live textures after relayout, want 1", n)
	}
	if tracker.cellWidth != 5 || tracker.cellHeight != 9 {
		t.Errorf("tracker layout = %dx%d, want 5x9", tracker.cellWidth, tracker.cellHeight)
	}
}

func TestEnsureSpriteMapBindsOnce(t *testing.T) {
	ctx, dev := newTestContext(t, SoftwareConfig{}, nil)

	dev.ResetCommands()
	if err := ctx.EnsureSpriteMap(); err != nil {
		t.Fatalf("EnsureSpriteMap: %v", err)
	}
	if err := ctx.EnsureSpriteMap(); err != nil {
		t.Fatalf("EnsureSpriteMap: %v", err)
	}
	binds := 0
	for _, c := range dev.Commands() {
		if c.Kind == CommandBindTexture && c.Unit == SpriteMapUnit {
			binds++
		}
	}
	if binds != 1 {
		t.Errorf("%d sprite map binds, want 1", binds)
	}
}

func TestUploadSpriteRejectsWrongSize(t *testing.T) {
	ctx, _ := newTestContext(t, SoftwareConfig{}, nil)
	if err := ctx.UploadSprite(0, 0, 0, make([]byte, 3)); err == nil {
		t.Error("no error for undersized sprite data")
	}
}
