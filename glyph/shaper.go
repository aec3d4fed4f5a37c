package glyph

import (
	"sync"

	"github.com/go-text/typesetting/di"
	gotext "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"
)

// ShapedGlyph is one positioned glyph of a shaped cell cluster, in
// pixels relative to the cluster origin.
type ShapedGlyph struct {
	GID     uint32
	Cluster int

	X, Y     float64
	XAdvance float64
}

// Shaper shapes cell clusters with HarfBuzz via go-text/typesetting,
// caching results per (face, text). Shaping gives ligatures, kerning
// and mark attachment; the terminal grid stays left-to-right, so runs
// are always shaped LTR.
//
// Shaper is safe for concurrent use: the underlying HarfbuzzShaper is
// not, so instances are pooled.
type Shaper struct {
	pool  sync.Pool
	cache *shapeCache
}

// NewShaper creates a Shaper with an empty cache.
func NewShaper() *Shaper {
	return &Shaper{
		pool: sync.Pool{
			New: func() any { return &shaping.HarfbuzzShaper{} },
		},
		cache: newShapeCache(),
	}
}

// Shape shapes text with the face, returning positioned glyphs. Results
// are cached; callers must not modify the returned slice.
func (s *Shaper) Shape(face *Face, text string) []ShapedGlyph {
	if text == "" || face == nil {
		return nil
	}
	return s.cache.getOrCreate(shapeKey{face: face.id, text: text}, func() []ShapedGlyph {
		return s.shape(face, text)
	})
}

// CacheLen returns the number of cached shaping results.
func (s *Shaper) CacheLen() int { return s.cache.len() }

// ClearCache drops all cached shaping results. Call after a face is
// closed.
func (s *Shaper) ClearCache() { s.cache.clear() }

func (s *Shaper) shape(face *Face, text string) []ShapedGlyph {
	runes := []rune(text)

	// The shaping face wraps the thread-safe font but keeps mutable
	// glyph caches, so each call gets a fresh one. Creating it is cheap.
	input := shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: di.DirectionLTR,
		Face:      gotext.NewFace(face.shapingFont),
		Size:      fixed.Int26_6(face.sizePx * 64),
		Script:    detectScript(runes),
		Language:  language.NewLanguage("en"),
	}

	hb := s.pool.Get().(*shaping.HarfbuzzShaper)
	output := hb.Shape(input)
	s.pool.Put(hb)

	if len(output.Glyphs) == 0 {
		return nil
	}
	result := make([]ShapedGlyph, len(output.Glyphs))
	var x float64
	for i, g := range output.Glyphs {
		adv := fixedToFloat(g.Advance)
		result[i] = ShapedGlyph{
			GID:      uint32(g.GlyphID),
			Cluster:  g.TextIndex(),
			X:        x + fixedToFloat(g.XOffset),
			Y:        fixedToFloat(g.YOffset),
			XAdvance: adv,
		}
		x += adv
	}
	return result
}

// detectScript returns the script of the first non-space rune, Latin
// when the text is all whitespace. Mixed-script clusters do not occur
// within a single terminal cell group.
func detectScript(runes []rune) language.Script {
	for _, r := range runes {
		switch r {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return language.LookupScript(r)
	}
	return language.LookupScript('a')
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
