// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

// Package geom provides the screen-space geometry used by the shape encoder.
//
// Coordinates are in pixels with the y axis pointing up: a rectangle's Bottom
// is its smallest y and its Top its largest.
package geom

type Point struct {
	X, Y float32
}

func Pt(x, y float32) Point {
	return Point{x, y}
}

// Rect is an axis-aligned bounding box. Valid rectangles satisfy
// Left <= Right and Bottom <= Top; constructors and mutation helpers never
// produce negative extents.
type Rect struct {
	Left, Bottom, Right, Top float32
}

// NewRect builds a rectangle from its lower-left corner and its size. Width
// and height must not be negative.
func NewRect(left, bottom, width, height float32) Rect {
	return Rect{
		Left:   left,
		Bottom: bottom,
		Right:  left + width,
		Top:    bottom + height,
	}
}

func RectFromPoints(a, b Point) Rect {
	return Rect{
		Left:   min(a.X, b.X),
		Bottom: min(a.Y, b.Y),
		Right:  max(a.X, b.X),
		Top:    max(a.Y, b.Y),
	}
}

func (r Rect) Width() float32  { return r.Right - r.Left }
func (r Rect) Height() float32 { return r.Top - r.Bottom }

func (r Rect) Center() Point {
	return Point{(r.Left + r.Right) / 2, (r.Bottom + r.Top) / 2}
}

func (r Rect) Empty() bool {
	return r.Right <= r.Left || r.Top <= r.Bottom
}

func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left && p.X <= r.Right && p.Y >= r.Bottom && p.Y <= r.Top
}

// ContainsRect reports whether o lies entirely within r.
func (r Rect) ContainsRect(o Rect) bool {
	return o.Left >= r.Left && o.Right <= r.Right &&
		o.Bottom >= r.Bottom && o.Top <= r.Top
}

func (r Rect) Intersects(o Rect) bool {
	return r.Left <= o.Right && o.Left <= r.Right &&
		r.Bottom <= o.Top && o.Bottom <= r.Top
}

// Widen grows the rectangle by d on all four sides.
func (r Rect) Widen(d float32) Rect {
	return Rect{
		Left:   r.Left - d,
		Bottom: r.Bottom - d,
		Right:  r.Right + d,
		Top:    r.Top + d,
	}
}

// Shrink moves all four sides inward by d. Shrinking past the center yields
// an empty rectangle at the center rather than an inverted one.
func (r Rect) Shrink(d float32) Rect {
	out := r.Widen(-d)
	if out.Left > out.Right {
		c := (r.Left + r.Right) / 2
		out.Left, out.Right = c, c
	}
	if out.Bottom > out.Top {
		c := (r.Bottom + r.Top) / 2
		out.Bottom, out.Top = c, c
	}
	return out
}

// Encapsulate grows the rectangle just enough to contain p.
func (r Rect) Encapsulate(p Point) Rect {
	return Rect{
		Left:   min(r.Left, p.X),
		Bottom: min(r.Bottom, p.Y),
		Right:  max(r.Right, p.X),
		Top:    max(r.Top, p.Y),
	}
}

func (r Rect) Union(o Rect) Rect {
	return Rect{
		Left:   min(r.Left, o.Left),
		Bottom: min(r.Bottom, o.Bottom),
		Right:  max(r.Right, o.Right),
		Top:    max(r.Top, o.Top),
	}
}

func (r Rect) Intersect(o Rect) Rect {
	out := Rect{
		Left:   max(r.Left, o.Left),
		Bottom: max(r.Bottom, o.Bottom),
		Right:  min(r.Right, o.Right),
		Top:    min(r.Top, o.Top),
	}
	if out.Left > out.Right || out.Bottom > out.Top {
		return Rect{}
	}
	return out
}
