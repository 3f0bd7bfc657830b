// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

// Package gfx holds the color types shared between the shape encoder and the
// fragment stage.
package gfx

import (
	"honnef.co/go/color"
)

// Color is a straight-alpha RGBA color in linear sRGB, the form style records
// store on the GPU.
type Color struct {
	R, G, B, A float32
}

func RGBA(r, g, b, a float32) Color {
	return Color{r, g, b, a}
}

func RGB(r, g, b float32) Color {
	return Color{r, g, b, 1}
}

var (
	Black       = Color{0, 0, 0, 1}
	White       = Color{1, 1, 1, 1}
	Transparent = Color{}
)

func (c Color) WithAlpha(a float32) Color {
	c.A = a
	return c
}

// Premul returns the premultiplied form, used for clear colors and decoded
// image texels.
func (c Color) Premul() [4]float32 {
	return [4]float32{c.R * c.A, c.G * c.A, c.B * c.A, c.A}
}

// FromColor converts a color from any supported color space to the linear
// sRGB form used by style records.
func FromColor(c *color.Color) Color {
	cc := c.Convert(color.LinearSRGB)
	return Color{
		R: float32(cc.Values[0]),
		G: float32(cc.Values[1]),
		B: float32(cc.Values[2]),
		A: float32(cc.Values[3]),
	}
}

// Premul32 converts a color to premultiplied linear sRGB components.
func Premul32(c *color.Color) [4]float32 {
	return FromColor(c).Premul()
}
