// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package encoding

import (
	"math"

	"honnef.co/go/swarm/geom"
	"honnef.co/go/swarm/gfx"
	"honnef.co/go/swarm/smath"
)

// Kind identifies a shape type on the wire. The values are shared with the
// fragment stage and must not be reordered.
type Kind int32

const (
	KindLine         Kind = 1
	KindQuad         Kind = 2
	KindRect         Kind = 3
	KindFrame        Kind = 4
	KindOrientedRect Kind = 5
	KindImage        Kind = 6
	// Gift reuses the image type value; which of the two a renderer draws is
	// decided by the shader variant it was built with.
	KindGift Kind = 6
)

// Command is one shape to draw. Each implementation carries the fixed
// parameter record for its kind; Encode serializes it to the flat wire form
// the fragment stage reads.
type Command interface {
	Kind() Kind
	// Bounds returns a conservative screen-space bounding box for the shape,
	// including stroke width and corner padding where relevant.
	Bounds() geom.Rect
	// style describes the style record the shape wants and which of its
	// fields the shape actually uses.
	style() style
	// params writes the shape parameters into dst, which holds paramFloats
	// zeroed floats.
	params(dst []float32)
}

// style is the desired content of a style record together with a usage mask.
// Fields a shape doesn't use don't participate in change detection and keep
// their previously pushed values.
type style struct {
	lineWidth  float32
	corner     float32
	color      gfx.Color
	usesWidth  bool
	usesCorner bool
}

// Line is a stroked segment from P0 to P1.
type Line struct {
	P0, P1 geom.Point
	Width  float32
	Color  gfx.Color
}

func (l Line) Kind() Kind { return KindLine }

func (l Line) Bounds() geom.Rect {
	// One extra pixel of padding for the stroke's soft edge.
	return geom.RectFromPoints(l.P0, l.P1).Widen(l.Width/2 + 1)
}

func (l Line) style() style {
	return style{lineWidth: l.Width, color: l.Color, usesWidth: true}
}

func (l Line) params(dst []float32) {
	dst[0] = l.P0.X
	dst[1] = l.P0.Y
	dst[2] = l.P1.X
	dst[3] = l.P1.Y
}

// Quad is a filled convex quadrilateral with corners in winding order.
type Quad struct {
	P0, P1, P2, P3 geom.Point
	Color          gfx.Color
}

func (q Quad) Kind() Kind { return KindQuad }

func (q Quad) Bounds() geom.Rect {
	return geom.RectFromPoints(q.P0, q.P1).Encapsulate(q.P2).Encapsulate(q.P3)
}

func (q Quad) style() style {
	return style{color: q.Color}
}

func (q Quad) params(dst []float32) {
	dst[0] = q.P0.X
	dst[1] = q.P0.Y
	dst[2] = q.P1.X
	dst[3] = q.P1.Y
	dst[4] = q.P2.X
	dst[5] = q.P2.Y
	dst[6] = q.P3.X
	dst[7] = q.P3.Y
}

// Rect is a filled axis-aligned rectangle with an optional corner radius.
type Rect struct {
	Rect   geom.Rect
	Corner float32
	Color  gfx.Color
}

func (r Rect) Kind() Kind { return KindRect }

func (r Rect) Bounds() geom.Rect {
	return r.Rect
}

func (r Rect) style() style {
	return style{corner: r.Corner, color: r.Color, usesCorner: true}
}

func (r Rect) params(dst []float32) {}

// Frame is the stroked outline of an axis-aligned rectangle.
type Frame struct {
	Rect      geom.Rect
	LineWidth float32
	Corner    float32
	Color     gfx.Color
}

func (f Frame) Kind() Kind { return KindFrame }

func (f Frame) Bounds() geom.Rect {
	// The stroke straddles the rectangle's edge.
	return f.Rect.Widen(f.LineWidth/2 + 1)
}

func (f Frame) style() style {
	return style{
		lineWidth:  f.LineWidth,
		corner:     f.Corner,
		color:      f.Color,
		usesWidth:  true,
		usesCorner: true,
	}
}

func (f Frame) params(dst []float32) {}

// OrientedRect is a filled rectangle rotated around its center.
type OrientedRect struct {
	Center        geom.Point
	Width, Height float32
	// Rotation is counterclockwise, in radians.
	Rotation float32
	Color    gfx.Color
}

func (o OrientedRect) Kind() Kind { return KindOrientedRect }

func (o OrientedRect) Bounds() geom.Rect {
	sin, cos := math.Sincos(float64(o.Rotation))
	hw, hh := o.Width/2, o.Height/2
	ex := smath.Abs32(float32(cos))*hw + smath.Abs32(float32(sin))*hh
	ey := smath.Abs32(float32(sin))*hw + smath.Abs32(float32(cos))*hh
	return geom.Rect{
		Left:   o.Center.X - ex,
		Bottom: o.Center.Y - ey,
		Right:  o.Center.X + ex,
		Top:    o.Center.Y + ey,
	}
}

func (o OrientedRect) style() style {
	return style{color: o.Color}
}

func (o OrientedRect) params(dst []float32) {
	sin, cos := math.Sincos(float64(o.Rotation))
	dst[0] = o.Center.X
	dst[1] = o.Center.Y
	dst[2] = o.Width / 2
	dst[3] = o.Height / 2
	dst[4] = float32(cos)
	dst[5] = float32(sin)
}

// Image draws a bound texture (or a slice of a bundle) into a rectangle,
// modulated by Tint. Slot is the sampler slot resolved for this frame:
// zero or positive for a bound texture, SlotLoading or SlotInvalid for the
// placeholder states.
type Image struct {
	Rect  geom.Rect
	Slot  int
	Slice int
	Tint  gfx.Color
}

// Placeholder sampler slots. Shared with the fragment stage.
const (
	SlotLoading = -1
	SlotInvalid = -2
)

func (i Image) Kind() Kind { return KindImage }

func (i Image) Bounds() geom.Rect {
	return i.Rect
}

func (i Image) style() style {
	return style{color: i.Tint}
}

func (i Image) params(dst []float32) {
	dst[0] = float32(i.Slot)
	dst[1] = float32(i.Slice)
}

// Gift is the variant interpretation of the image type value: a rotated
// square with a ribbon, animated by Phase. Only drawn correctly by renderers
// built with the gift shader variant.
type Gift struct {
	Center   geom.Point
	Size     float32
	Rotation float32
	Phase    float32
	Color    gfx.Color
}

func (g Gift) Kind() Kind { return KindGift }

func (g Gift) Bounds() geom.Rect {
	// Rotated square plus ribbon loops; half the diagonal is enough.
	r := g.Size * math.Sqrt2 / 2
	return geom.Rect{
		Left:   g.Center.X - r,
		Bottom: g.Center.Y - r,
		Right:  g.Center.X + r,
		Top:    g.Center.Y + r,
	}
}

func (g Gift) style() style {
	return style{color: g.Color}
}

func (g Gift) params(dst []float32) {
	sin, cos := math.Sincos(float64(g.Rotation))
	dst[0] = g.Center.X
	dst[1] = g.Center.Y
	dst[2] = g.Size / 2
	dst[3] = g.Phase
	dst[4] = float32(cos)
	dst[5] = float32(sin)
}
