// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

// Package encoding packs shape-drawing commands and their styles into the
// fixed-capacity buffers one full-screen fragment pass consumes, and bins
// every command into the screen tiles its bounding box overlaps.
package encoding

import (
	"context"
	"log/slog"

	"honnef.co/go/swarm/geom"
	"honnef.co/go/swarm/gfx"
)

// Constants shared with the fragment stage. They size GPU-side images and
// must match the generated WGSL header exactly.
const (
	// MaxCmdBufferLine is the width and height, in 4-float texels, of the
	// command image.
	MaxCmdBufferLine = 512
	// TileSizeLog2 is the tile side as a power of two; tiles are 32px.
	TileSizeLog2 = 5
	TileSize     = 1 << TileSizeLog2
	// MaxTiles bounds the tile grid regardless of viewport size.
	MaxTiles = 4095
	// MaxCmdsPerTile is the capacity of one tile's command list.
	MaxCmdsPerTile = 64
	// TileCmdsBufferLine is the width, in 16-bit texels, of the packed
	// tile-command image.
	TileCmdsBufferLine = 256
)

const (
	// MaxCmdData is the total texel capacity of the command image. Commands
	// grow from texel 0; the last row is reserved for style records.
	MaxCmdData = MaxCmdBufferLine * MaxCmdBufferLine

	cmdTexels   = 4 // texels per command record
	styleTexels = 2 // texels per style record

	// MaxStyleCmds is how many distinct style records fit in the reserved
	// region before the style cursor wraps.
	MaxStyleCmds = MaxCmdBufferLine / styleTexels

	// StyleBase is the first texel of the style region.
	StyleBase = MaxCmdData - MaxStyleCmds*styleTexels

	cmdFloats      = cmdTexels * 4
	styleFloats    = styleTexels * 4
	cmdLimitFloats = StyleBase * 4
)

// Stats counts per-frame encoder activity. Counters reset with the rest of
// the per-frame state.
type Stats struct {
	Commands        int
	RejectedOffview int
	DroppedCapacity int
	Styles          int
	StyleWraps      int
	TileOverflows   int
}

type activeStyle struct {
	lineWidth float32
	corner    float32
	color     gfx.Color
}

// Encoding accumulates one frame's commands, styles, and tile bins. It is
// exclusively owned by its renderer and must only be mutated from one
// goroutine.
type Encoding struct {
	logger *slog.Logger

	// Flat command buffer. Commands grow forward from 0, style records live
	// in the reserved tail region. Fixed capacity tied to the GPU image size;
	// never grown.
	buf []float32

	cursor  int // float offset of the next command record
	numCmds int

	styleCursor int // next style record index; wraps at MaxStyleCmds
	numStyles   int
	active      activeStyle
	hasActive   bool
	activeOff   uint16 // texel offset of the active record within the style row
	warnedWrap  bool

	viewport geom.Rect
	grid     grid

	stats Stats
}

func New(logger *slog.Logger) *Encoding {
	if logger == nil {
		logger = slog.New(nopHandler{})
	}
	return &Encoding{
		logger: logger,
		buf:    make([]float32, MaxCmdData*4),
		grid:   newGrid(),
	}
}

// BeginFrame recomputes the tile grid for the current viewport and clears all
// tile command lists. It must be called before the frame's Encode calls;
// commands encoded outside BeginFrame..Pack bin against the previous grid.
func (enc *Encoding) BeginFrame(width, height int) {
	enc.viewport = geom.NewRect(0, 0, float32(width), float32(height))
	enc.grid.resize(width, height, enc.logger)
	enc.grid.clearBins()
}

// Encode appends cmd to the command buffer, pushing a style record first if
// the style changed, and bins the command into every tile its bounding box
// overlaps. It reports whether the command was added: shapes entirely outside
// the viewport are discarded silently, and shapes that don't fit the
// remaining capacity are dropped with a warning.
func (enc *Encoding) Encode(cmd Command) bool {
	bounds := cmd.Bounds()
	if !enc.viewport.Intersects(bounds) {
		enc.stats.RejectedOffview++
		return false
	}
	if enc.cursor+cmdFloats > cmdLimitFloats {
		enc.logger.Warn("command buffer full, dropping shape",
			"kind", int32(cmd.Kind()), "commands", enc.numCmds)
		enc.stats.DroppedCapacity++
		return false
	}

	styleOff := enc.pushStyleIfNew(cmd.style())

	c := enc.cursor
	buf := enc.buf
	buf[c+0] = float32(cmd.Kind())
	buf[c+1] = float32(styleOff)
	buf[c+2] = 0
	buf[c+3] = 0
	buf[c+4] = bounds.Left
	buf[c+5] = bounds.Bottom
	buf[c+6] = bounds.Right
	buf[c+7] = bounds.Top
	clear(buf[c+8 : c+16])
	cmd.params(buf[c+8 : c+16])

	idx := uint16(enc.numCmds)
	enc.cursor += cmdFloats
	enc.numCmds++
	enc.stats.Commands++

	enc.stats.TileOverflows += enc.grid.bin(bounds, idx, enc.logger)
	return true
}

// pushStyleIfNew writes a style record iff the command's style differs from
// the active one, comparing only the fields the shape uses. Unused fields
// keep their previously pushed values, so consecutive shapes of different
// kinds can still share one record. Returns the texel offset of the record
// the command should reference.
func (enc *Encoding) pushStyleIfNew(st style) uint16 {
	changed := !enc.hasActive ||
		st.color != enc.active.color ||
		(st.usesWidth && st.lineWidth != enc.active.lineWidth) ||
		(st.usesCorner && st.corner != enc.active.corner)
	if !changed {
		return enc.activeOff
	}

	if st.usesWidth {
		enc.active.lineWidth = st.lineWidth
	}
	if st.usesCorner {
		enc.active.corner = st.corner
	}
	enc.active.color = st.color
	enc.hasActive = true

	if enc.styleCursor == MaxStyleCmds {
		// Bounded, lossy degradation: wrap and overwrite from the start of
		// the style region. Commands already encoded this frame that
		// reference the overwritten records will misrender.
		if !enc.warnedWrap {
			enc.logger.Warn("style buffer full, wrapping; earlier commands may reference overwritten styles",
				"maxStyles", MaxStyleCmds)
			enc.warnedWrap = true
		}
		enc.styleCursor = 0
		enc.stats.StyleWraps++
	}

	rec := enc.styleCursor
	off := StyleBase*4 + rec*styleFloats
	enc.buf[off+0] = enc.active.lineWidth
	enc.buf[off+1] = enc.active.corner
	enc.buf[off+2] = 0
	enc.buf[off+3] = 0
	enc.buf[off+4] = enc.active.color.R
	enc.buf[off+5] = enc.active.color.G
	enc.buf[off+6] = enc.active.color.B
	enc.buf[off+7] = enc.active.color.A

	enc.styleCursor++
	enc.numStyles++
	enc.stats.Styles++
	enc.activeOff = uint16(rec * styleTexels)
	return enc.activeOff
}

// Pack flattens the per-tile command lists into the packed array and range
// table for upload. The returned slices alias the encoding's buffers and are
// valid until the next BeginFrame.
func (enc *Encoding) Pack() Packed {
	return enc.grid.pack(enc.logger)
}

// Reset clears all per-frame cursors: the command cursor, style cursor,
// active-style cache, and statistics. Called after the frame's buffers have
// been uploaded.
func (enc *Encoding) Reset() {
	enc.cursor = 0
	enc.numCmds = 0
	enc.styleCursor = 0
	enc.numStyles = 0
	enc.active = activeStyle{}
	enc.hasActive = false
	enc.activeOff = 0
	enc.warnedWrap = false
	enc.stats = Stats{}
}

// Data returns the full command buffer, including the style region.
func (enc *Encoding) Data() []float32 { return enc.buf }

// CmdTexels returns the number of command texels written this frame.
func (enc *Encoding) CmdTexels() int { return enc.cursor / 4 }

// StyleTexels returns the number of style-region texels in use.
func (enc *Encoding) StyleTexels() int {
	return min(enc.numStyles, MaxStyleCmds) * styleTexels
}

func (enc *Encoding) NumCommands() int { return enc.numCmds }

func (enc *Encoding) TilesX() int { return enc.grid.tilesX }
func (enc *Encoding) TilesY() int { return enc.grid.tilesY }

// Stats returns a snapshot of the per-frame counters.
func (enc *Encoding) Stats() Stats { return enc.stats }

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }
