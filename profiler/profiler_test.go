// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package profiler

import "testing"

func TestRecorder(t *testing.T) {
	rec := NewRecorder()

	frame := rec.Start("frame")
	pack := frame.Start("pack")
	pack.End()
	frame.End()

	samples := rec.Samples()
	if len(samples) != 2 {
		t.Fatalf("got %d samples, want 2", len(samples))
	}
	// Inner spans end first.
	if got, want := samples[0].Label, "frame.pack"; got != want {
		t.Errorf("samples[0].Label = %q, want %q", got, want)
	}
	if got, want := samples[1].Label, "frame"; got != want {
		t.Errorf("samples[1].Label = %q, want %q", got, want)
	}
	for _, s := range samples {
		if s.Duration < 0 {
			t.Errorf("%s has negative duration", s.Label)
		}
	}

	if got := rec.Samples(); len(got) != 0 {
		t.Errorf("Samples did not clear the recorder: %d left", len(got))
	}
}

func TestNop(t *testing.T) {
	g := Nop()
	g.Start("a").Start("b").End()
	g.End()
}
