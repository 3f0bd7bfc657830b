// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

// Package smath provides small numeric helpers shared by the encoder and the
// GPU engine.
package smath

import (
	"math"

	"golang.org/x/exp/constraints"
)

func Abs32(f float32) float32 {
	return float32(math.Abs(float64(f)))
}

// CeilDiv divides x by y, rounding up.
func CeilDiv[T constraints.Integer](x, y T) T {
	return (x + y - 1) / y
}

func Clamp[T constraints.Ordered](v, lo, hi T) T {
	return min(max(v, lo), hi)
}
