// Package termgrid manages the GPU resources needed to render a terminal
// emulator's screen: the glyph sprite atlas (a 2D texture array that grows
// on demand while preserving its contents), the per-cell vertex and uniform
// buffer layouts, and the draw-call sequencing that composites cell
// backgrounds, underlines, foreground glyphs, the cursor, window borders
// and image overlays in the correct order.
//
// The package does not own a GPU context. It receives a [Device] from the
// host application and issues all work through it. Two device
// implementations ship with the module: [SoftwareDevice], a pure-CPU
// reference device used for headless operation and testing, and the OpenGL
// device in the glgpu subpackage.
//
// Everything hangs off a [Context], which is created once per GPU context
// and must only be used from the rendering goroutine:
//
//	dev := termgrid.NewSoftwareDevice(termgrid.SoftwareConfig{})
//	ctx, err := termgrid.NewContext(dev, termgrid.ContextConfig{
//	    Tracker: tracker, // maps glyphs to sprite atlas positions
//	})
//
// Shader compilation is deliberately out of scope: programs arrive through
// the [Program] interface, which exposes only the reflection data the
// renderer needs (uniform block sizes and offsets, attribute locations).
package termgrid
