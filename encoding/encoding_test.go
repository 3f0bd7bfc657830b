// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package encoding

import (
	"slices"
	"testing"

	"honnef.co/go/swarm/geom"
	"honnef.co/go/swarm/gfx"
)

func newTestEncoding(width, height int) *Encoding {
	enc := New(nil)
	enc.BeginFrame(width, height)
	return enc
}

func TestEncodeOffviewRejected(t *testing.T) {
	enc := newTestEncoding(640, 480)
	ok := enc.Encode(Line{
		P0:    geom.Pt(-500, -500),
		P1:    geom.Pt(-400, -400),
		Width: 2,
		Color: gfx.White,
	})
	if ok {
		t.Error("offview shape was encoded")
	}
	if got := enc.CmdTexels(); got != 0 {
		t.Errorf("command cursor moved for rejected shape: %d texels", got)
	}
	if got := enc.Stats().RejectedOffview; got != 1 {
		t.Errorf("RejectedOffview = %d, want 1", got)
	}
}

func TestEncodePartiallyVisibleAccepted(t *testing.T) {
	enc := newTestEncoding(640, 480)
	// Straddles the left viewport edge.
	if !enc.Encode(Rect{Rect: geom.NewRect(-10, 10, 20, 20), Color: gfx.White}) {
		t.Error("partially visible shape was rejected")
	}
}

func TestCommandRecordLayout(t *testing.T) {
	enc := newTestEncoding(640, 480)
	enc.Encode(Line{
		P0:    geom.Pt(10, 20),
		P1:    geom.Pt(100, 200),
		Width: 4,
		Color: gfx.RGBA(0.25, 0.5, 0.75, 1),
	})

	buf := enc.Data()
	if got, want := buf[0], float32(KindLine); got != want {
		t.Errorf("kind = %v, want %v", got, want)
	}
	if got := buf[1]; got != 0 {
		t.Errorf("style offset = %v, want 0", got)
	}
	// Bounds are the endpoints widened by width/2+1.
	wantBounds := []float32{7, 17, 103, 203}
	if got := buf[4:8]; !slices.Equal(got, wantBounds) {
		t.Errorf("bounds = %v, want %v", got, wantBounds)
	}
	wantParams := []float32{10, 20, 100, 200}
	if got := buf[8:12]; !slices.Equal(got, wantParams) {
		t.Errorf("params = %v, want %v", got, wantParams)
	}

	// Style record: (lineWidth, corner, 0, 0, r, g, b, a) at the style base.
	style := buf[StyleBase*4 : StyleBase*4+8]
	want := []float32{4, 0, 0, 0, 0.25, 0.5, 0.75, 1}
	if !slices.Equal(style, want) {
		t.Errorf("style record = %v, want %v", style, want)
	}
}

func TestStyleDeduplication(t *testing.T) {
	enc := newTestEncoding(640, 480)
	for i := 0; i < 10; i++ {
		enc.Encode(Rect{
			Rect:   geom.NewRect(float32(i)*10, 0, 8, 8),
			Corner: 2,
			Color:  gfx.White,
		})
	}
	if got := enc.Stats().Styles; got != 1 {
		t.Errorf("styles pushed = %d, want 1", got)
	}
	if got := enc.StyleTexels(); got != 2 {
		t.Errorf("StyleTexels = %d, want 2", got)
	}
}

func TestStylePushSequence(t *testing.T) {
	// A, A, B, A, A: the second run of A must push a third record because the
	// active style is B at that point.
	colorA := gfx.RGB(1, 0, 0)
	colorB := gfx.RGB(0, 1, 0)

	enc := newTestEncoding(640, 480)
	add := func(i int, col gfx.Color) {
		enc.Encode(Rect{Rect: geom.NewRect(float32(i)*10, 0, 8, 8), Color: col})
	}
	add(0, colorA)
	add(1, colorA)
	add(2, colorB)
	add(3, colorA)
	add(4, colorA)

	if got := enc.Stats().Styles; got != 3 {
		t.Errorf("styles pushed = %d, want 3", got)
	}

	// The records are A, B, A in push order.
	buf := enc.Data()
	for i, want := range []gfx.Color{colorA, colorB, colorA} {
		off := StyleBase*4 + i*8
		got := gfx.RGBA(buf[off+4], buf[off+5], buf[off+6], buf[off+7])
		if got != want {
			t.Errorf("style record %d = %v, want %v", i, got, want)
		}
	}

	// Commands reference records by texel offset within the style row.
	wantOffs := []float32{0, 0, 2, 4, 4}
	for i, want := range wantOffs {
		if got := buf[i*16+1]; got != want {
			t.Errorf("command %d style offset = %v, want %v", i, got, want)
		}
	}
}

func TestStyleSharedAcrossKinds(t *testing.T) {
	// A line and a quad of the same color share a record: the quad doesn't use
	// lineWidth, so the differing field is not compared.
	enc := newTestEncoding(640, 480)
	enc.Encode(Line{P0: geom.Pt(0, 0), P1: geom.Pt(50, 50), Width: 3, Color: gfx.White})
	enc.Encode(Quad{
		P0: geom.Pt(0, 0), P1: geom.Pt(10, 0),
		P2: geom.Pt(10, 10), P3: geom.Pt(0, 10),
		Color: gfx.White,
	})
	if got := enc.Stats().Styles; got != 1 {
		t.Errorf("styles pushed = %d, want 1", got)
	}
}

func TestStyleWrap(t *testing.T) {
	enc := newTestEncoding(640, 480)
	for i := 0; i < MaxStyleCmds+1; i++ {
		enc.Encode(Rect{
			Rect:  geom.NewRect(0, 0, 8, 8),
			Color: gfx.RGBA(float32(i)/float32(MaxStyleCmds+1), 0, 0, 1),
		})
	}
	stats := enc.Stats()
	if stats.Styles != MaxStyleCmds+1 {
		t.Errorf("styles pushed = %d, want %d", stats.Styles, MaxStyleCmds+1)
	}
	if stats.StyleWraps != 1 {
		t.Errorf("StyleWraps = %d, want 1", stats.StyleWraps)
	}
	// The wrapped record overwrote slot 0; the last command references it.
	buf := enc.Data()
	if got := buf[MaxStyleCmds*16+1]; got != 0 {
		t.Errorf("post-wrap style offset = %v, want 0", got)
	}
	if got := enc.StyleTexels(); got != MaxStyleCmds*2 {
		t.Errorf("StyleTexels = %d, want %d", got, MaxStyleCmds*2)
	}
}

func TestCommandCapacity(t *testing.T) {
	const maxCommands = cmdLimitFloats / cmdFloats

	enc := newTestEncoding(640, 480)
	r := Rect{Rect: geom.NewRect(0, 0, 8, 8), Color: gfx.White}
	for i := 0; i < maxCommands; i++ {
		if !enc.Encode(r) {
			t.Fatalf("command %d rejected below capacity", i)
		}
	}
	if enc.Encode(r) {
		t.Error("command accepted beyond capacity")
	}
	stats := enc.Stats()
	if stats.Commands != maxCommands {
		t.Errorf("Commands = %d, want %d", stats.Commands, maxCommands)
	}
	if stats.DroppedCapacity != 1 {
		t.Errorf("DroppedCapacity = %d, want 1", stats.DroppedCapacity)
	}
}

func TestResetReencodeIdentical(t *testing.T) {
	encode := func(enc *Encoding) []float32 {
		enc.BeginFrame(640, 480)
		enc.Encode(Rect{Rect: geom.NewRect(30, 40, 50, 60), Corner: 4, Color: gfx.RGB(0.1, 0.2, 0.3)})
		enc.Encode(Line{P0: geom.Pt(1, 2), P1: geom.Pt(3, 4), Width: 2, Color: gfx.White})
		out := make([]float32, enc.CmdTexels()*4)
		copy(out, enc.Data())
		return out
	}

	enc := New(nil)
	first := encode(enc)
	enc.Reset()
	second := encode(enc)

	if !slices.Equal(first, second) {
		t.Error("re-encoding after Reset did not produce identical command records")
	}
	if got := enc.Stats().Commands; got != 2 {
		t.Errorf("Commands after reset = %d, want 2", got)
	}
}

func TestImageParams(t *testing.T) {
	enc := newTestEncoding(640, 480)
	enc.Encode(Image{
		Rect:  geom.NewRect(0, 0, 64, 64),
		Slot:  SlotInvalid,
		Slice: 3,
		Tint:  gfx.White,
	})
	buf := enc.Data()
	if got := buf[8]; got != -2 {
		t.Errorf("slot param = %v, want -2", got)
	}
	if got := buf[9]; got != 3 {
		t.Errorf("slice param = %v, want 3", got)
	}
}

func TestEncodeOutsideFrameUsesPreviousGrid(t *testing.T) {
	enc := newTestEncoding(640, 480)
	enc.Encode(Rect{Rect: geom.NewRect(0, 0, 8, 8), Color: gfx.White})
	packed := enc.Pack()
	if got := len(packed.Cmds); got != 1 {
		t.Fatalf("packed commands = %d, want 1", got)
	}
	enc.Reset()

	// No BeginFrame: the shape bins against the previous frame's grid.
	enc.Encode(Rect{Rect: geom.NewRect(0, 0, 8, 8), Color: gfx.White})
	if got := enc.TilesX(); got != 640>>TileSizeLog2+1 {
		t.Errorf("TilesX = %d, want %d", got, 640>>TileSizeLog2+1)
	}
}
