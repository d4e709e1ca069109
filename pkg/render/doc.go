// Package render composes content layers into a single 64×64 frame.
//
// # Layers
//
// A frame is built from one background image and any number of foreground
// [Layer] values. Foreground layers are drawn in a fixed z-order (text
// first, then icons) and keep their given order within a kind. Each layer is
// placed by a [Placement]: one of four anchor corners plus an offset
// measured inward from that corner, so right- and bottom-anchored blocks
// keep their outer edge fixed however wide their content is.
//
// # Shadows
//
// Every foreground layer is first stamped three times in [ShadowColor] at
// (+1,0), (0,+1) and (+1,+1), then drawn itself on top, each pass using
// source-over blending. The shadow takes the shape of the layer, never its
// colour.
//
// # Text
//
// Glyphs are rasterised with binary coverage: a pixel is either fully
// inked or untouched. Each character picks its [GlyphSource] by script
// class ([Latin], [Hangul], [Symbol]) from the span's [GlyphSet], and the
// pen advances by the glyph advance plus the block's kerning.
//
// # Determinism
//
// [Compositor.Compose] is a pure function of its inputs: the same
// background and layers always produce a byte-identical [Frame]. Any
// scaling uses nearest-neighbour sampling.
//
// Font faces are not safe for concurrent use, so a [Compositor] must not be
// shared between goroutines.
package render
