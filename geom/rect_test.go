// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package geom

import "testing"

func TestNewRect(t *testing.T) {
	r := NewRect(10, 20, 30, 40)
	want := Rect{Left: 10, Bottom: 20, Right: 40, Top: 60}
	if r != want {
		t.Errorf("NewRect(10, 20, 30, 40) = %v, want %v", r, want)
	}
	if got := r.Width(); got != 30 {
		t.Errorf("Width() = %v, want 30", got)
	}
	if got := r.Height(); got != 40 {
		t.Errorf("Height() = %v, want 40", got)
	}
	if got := r.Center(); got != Pt(25, 40) {
		t.Errorf("Center() = %v, want %v", got, Pt(25, 40))
	}
}

func TestRectFromPoints(t *testing.T) {
	r := RectFromPoints(Pt(5, 9), Pt(1, 3))
	want := Rect{Left: 1, Bottom: 3, Right: 5, Top: 9}
	if r != want {
		t.Errorf("RectFromPoints = %v, want %v", r, want)
	}
}

func TestContains(t *testing.T) {
	r := NewRect(0, 0, 10, 10)
	tests := []struct {
		p    Point
		want bool
	}{
		{Pt(5, 5), true},
		{Pt(0, 0), true},
		{Pt(10, 10), true},
		{Pt(11, 5), false},
		{Pt(5, -1), false},
	}
	for _, tt := range tests {
		if got := r.Contains(tt.p); got != tt.want {
			t.Errorf("Contains(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestIntersects(t *testing.T) {
	r := NewRect(0, 0, 10, 10)
	tests := []struct {
		other Rect
		want  bool
	}{
		{NewRect(5, 5, 10, 10), true},
		{NewRect(10, 0, 5, 5), true}, // touching edges intersect
		{NewRect(11, 0, 5, 5), false},
		{NewRect(-20, -20, 5, 5), false},
		{NewRect(-5, -5, 20, 20), true}, // containment
	}
	for _, tt := range tests {
		if got := r.Intersects(tt.other); got != tt.want {
			t.Errorf("Intersects(%v) = %v, want %v", tt.other, got, tt.want)
		}
		if got := tt.other.Intersects(r); got != tt.want {
			t.Errorf("Intersects is not symmetric for %v", tt.other)
		}
	}
}

func TestWiden(t *testing.T) {
	r := NewRect(10, 10, 10, 10).Widen(2)
	want := Rect{Left: 8, Bottom: 8, Right: 22, Top: 22}
	if r != want {
		t.Errorf("Widen(2) = %v, want %v", r, want)
	}
}

func TestShrinkClampsAtCenter(t *testing.T) {
	r := NewRect(0, 0, 10, 4).Shrink(10)
	if !r.Empty() {
		t.Errorf("over-shrunk rect should be empty, got %v", r)
	}
	if got, want := r.Center(), Pt(5, 2); got != want {
		t.Errorf("Shrink moved the center: got %v, want %v", got, want)
	}
}

func TestEncapsulate(t *testing.T) {
	r := NewRect(0, 0, 1, 1).Encapsulate(Pt(5, -3))
	want := Rect{Left: 0, Bottom: -3, Right: 5, Top: 1}
	if r != want {
		t.Errorf("Encapsulate = %v, want %v", r, want)
	}
}

func TestUnionIntersect(t *testing.T) {
	a := NewRect(0, 0, 4, 4)
	b := NewRect(2, 2, 4, 4)
	if got, want := a.Union(b), (Rect{0, 0, 6, 6}); got != want {
		t.Errorf("Union = %v, want %v", got, want)
	}
	if got, want := a.Intersect(b), (Rect{2, 2, 4, 4}); got != want {
		t.Errorf("Intersect = %v, want %v", got, want)
	}
}
