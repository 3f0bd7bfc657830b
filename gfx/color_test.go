// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package gfx

import (
	"testing"

	"honnef.co/go/color"
)

func TestPremul(t *testing.T) {
	c := RGBA(1, 0.5, 0.25, 0.5)
	got := c.Premul()
	want := [4]float32{0.5, 0.25, 0.125, 0.5}
	if got != want {
		t.Errorf("Premul() = %v, want %v", got, want)
	}
}

func TestPremulOpaque(t *testing.T) {
	c := RGB(0.2, 0.4, 0.6)
	got := c.Premul()
	want := [4]float32{0.2, 0.4, 0.6, 1}
	if got != want {
		t.Errorf("Premul() = %v, want %v", got, want)
	}
}

func TestWithAlpha(t *testing.T) {
	c := White.WithAlpha(0.25)
	if c != RGBA(1, 1, 1, 0.25) {
		t.Errorf("WithAlpha(0.25) = %v", c)
	}
	// The receiver is unchanged.
	if White != RGBA(1, 1, 1, 1) {
		t.Error("WithAlpha mutated the receiver")
	}
}

func TestTransparentPremul(t *testing.T) {
	if got := Transparent.Premul(); got != [4]float32{} {
		t.Errorf("Transparent.Premul() = %v, want zeros", got)
	}
}

func TestFromColor(t *testing.T) {
	c := color.Make(color.LinearSRGB, 0.25, 0.5, 0.75, 0.5)
	got := FromColor(&c)
	want := Color{0.25, 0.5, 0.75, 0.5}
	approx := func(a, b float32) bool {
		d := a - b
		return d < 1e-6 && d > -1e-6
	}
	if !approx(got.R, want.R) || !approx(got.G, want.G) ||
		!approx(got.B, want.B) || !approx(got.A, want.A) {
		t.Errorf("FromColor = %v, want %v", got, want)
	}

	p := Premul32(&c)
	if !approx(p[0], 0.125) || !approx(p[3], 0.5) {
		t.Errorf("Premul32 = %v", p)
	}
}
