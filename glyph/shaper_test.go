package glyph

import (
	"sync"
	"testing"
)

func TestShaperBasic(t *testing.T) {
	f := testFace(t)
	s := NewShaper()

	glyphs := s.Shape(f, "hello")
	if len(glyphs) != 5 {
		t.Fatalf("got %d glyphs for %q, want 5", len(glyphs), "hello")
	}
	var prevX float64 = -1
	for i, g := range glyphs {
		if g.GID == 0 {
			t.Errorf("glyph %d is .notdef", i)
		}
		if g.XAdvance <= 0 {
			t.Errorf("glyph %d advance = %v, want > 0", i, g.XAdvance)
		}
		if g.X <= prevX {
			t.Errorf("glyph %d at x=%v, want monotonically increasing", i, g.X)
		}
		prevX = g.X
	}
}

func TestShaperEmptyAndNil(t *testing.T) {
	s := NewShaper()
	if got := s.Shape(nil, "x"); got != nil {
		t.Error("shaping with nil face returned glyphs")
	}
	if got := s.Shape(testFace(t), ""); got != nil {
		t.Error("shaping empty text returned glyphs")
	}
}

func TestShaperCaches(t *testing.T) {
	f := testFace(t)
	s := NewShaper()

	first := s.Shape(f, "cache me")
	if s.CacheLen() != 1 {
		t.Fatalf("cache holds %d entries, want 1", s.CacheLen())
	}
	second := s.Shape(f, "cache me")
	if len(first) != len(second) {
		t.Fatal("cached result differs from first shaping")
	}
	if s.CacheLen() != 1 {
		t.Errorf("repeat shaping grew the cache to %d", s.CacheLen())
	}

	s.ClearCache()
	if s.CacheLen() != 0 {
		t.Errorf("cache holds %d entries after clear, want 0", s.CacheLen())
	}
}

func TestShaperEviction(t *testing.T) {
	f := testFace(t)
	s := NewShaper()

	// Overfill well past the total capacity; the cache must stay bounded.
	total := shapeCacheShards * shapeCacheCapacity
	for i := 0; i < total+500; i++ {
		s.Shape(f, string(rune('a'+i%26))+string(rune('0'+i%10))+string(rune(i)))
	}
	if got := s.CacheLen(); got > total {
		t.Errorf("cache holds %d entries, want at most %d", got, total)
	}
}

func TestShaperConcurrent(t *testing.T) {
	f := testFace(t)
	s := NewShaper()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				text := string(rune('a' + (n+j)%26))
				if got := s.Shape(f, text); len(got) == 0 {
					t.Errorf("no glyphs for %q", text)
				}
			}
		}(i)
	}
	wg.Wait()
}
