// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package encoding

import (
	"log/slog"
	"math"

	"honnef.co/go/swarm/geom"
	"honnef.co/go/swarm/smath"
)

// Packed is one frame's tile lists flattened into CSR form. Ranges holds
// TilesX*TilesY+1 offsets into Cmds; tile i owns Cmds[Ranges[i]:Ranges[i+1]],
// a list of command record indices in insertion order.
type Packed struct {
	Ranges []uint16
	Cmds   []uint16
	TilesX int
	TilesY int
}

func (p Packed) NumTiles() int { return p.TilesX * p.TilesY }

// grid bins command indices into fixed-capacity per-tile lists. All storage
// is preallocated at the compile-time capacities; nothing grows at runtime.
type grid struct {
	tilesX, tilesY int

	counts []uint16 // MaxTiles
	bins   []uint16 // MaxTiles * MaxCmdsPerTile, tile-major

	packed []uint16 // MaxTiles * MaxCmdsPerTile
	ranges []uint16 // MaxTiles + 1

	warnedOverflow bool
	warnedPack     bool
}

func newGrid() grid {
	return grid{
		counts: make([]uint16, MaxTiles),
		bins:   make([]uint16, MaxTiles*MaxCmdsPerTile),
		packed: make([]uint16, MaxTiles*MaxCmdsPerTile),
		ranges: make([]uint16, MaxTiles+1),
	}
}

// resize recomputes the grid dimensions from the viewport. The grid always
// extends one tile past the last full one so partially covered edges are
// still binned. If the viewport needs more than MaxTiles tiles, rows are cut
// off the top rather than failing.
func (g *grid) resize(width, height int, logger *slog.Logger) {
	nx := (width >> TileSizeLog2) + 1
	ny := (height >> TileSizeLog2) + 1
	if nx > MaxTiles {
		nx = MaxTiles
	}
	if nx*ny > MaxTiles {
		logger.Warn("viewport exceeds tile capacity, clipping grid",
			"width", width, "height", height, "maxTiles", MaxTiles)
		ny = max(MaxTiles/nx, 1)
	}
	g.tilesX = nx
	g.tilesY = ny
}

func (g *grid) clearBins() {
	clear(g.counts[:g.tilesX*g.tilesY])
	g.warnedOverflow = false
	g.warnedPack = false
}

// tileIndex maps a coordinate to the tile containing it. The coordinate is
// clamped to the maximum grid extent before the conversion; converting a
// float beyond the int range is undefined and would wrap the index.
func tileIndex(v float32) int {
	f := smath.Clamp(float64(v), -1, float64(MaxTiles<<TileSizeLog2))
	return int(math.Floor(f)) >> TileSizeLog2
}

// bin appends idx to every tile the bounding box overlaps. Tiles already at
// MaxCmdsPerTile drop the command; the approach is visual truncation, never
// a hard failure. Returns the number of tiles that overflowed.
func (g *grid) bin(bounds geom.Rect, idx uint16, logger *slog.Logger) int {
	x0 := max(tileIndex(bounds.Left), 0)
	x1 := min(tileIndex(bounds.Right), g.tilesX-1)
	y0 := max(tileIndex(bounds.Bottom), 0)
	y1 := min(tileIndex(bounds.Top), g.tilesY-1)

	overflows := 0
	for y := y0; y <= y1; y++ {
		row := y * g.tilesX
		for x := x0; x <= x1; x++ {
			t := row + x
			n := int(g.counts[t])
			if n >= MaxCmdsPerTile-2 && !g.warnedOverflow {
				logger.Warn("tile command list near capacity, shapes will be truncated",
					"tileX", x, "tileY", y, "capacity", MaxCmdsPerTile)
				g.warnedOverflow = true
			}
			if n >= MaxCmdsPerTile {
				overflows++
				continue
			}
			g.bins[t*MaxCmdsPerTile+n] = idx
			g.counts[t] = uint16(n + 1)
		}
	}
	return overflows
}

// pack serializes the tile lists in row-major tile order. ranges[i] is the
// starting offset of tile i in the packed array; the final entry equals the
// total count, so consumers compute a tile's command count as
// ranges[i+1]-ranges[i].
func (g *grid) pack(logger *slog.Logger) Packed {
	n := g.tilesX * g.tilesY
	off := 0
	for t := 0; t < n; t++ {
		g.ranges[t] = uint16(off)
		c := int(g.counts[t])
		if off+c > math.MaxUint16 {
			// The range table is 16-bit; excess tiles render empty.
			if !g.warnedPack {
				logger.Warn("packed tile commands exceed 16-bit range table, truncating",
					"total", off+c)
				g.warnedPack = true
			}
			c = math.MaxUint16 - off
		}
		copy(g.packed[off:off+c], g.bins[t*MaxCmdsPerTile:t*MaxCmdsPerTile+c])
		off += c
	}
	g.ranges[n] = uint16(off)
	return Packed{
		Ranges: g.ranges[:n+1],
		Cmds:   g.packed[:off],
		TilesX: g.tilesX,
		TilesY: g.tilesY,
	}
}
