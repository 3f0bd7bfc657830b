// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

// Package profiler times the phases of a frame. The zero-cost Nop group is
// the default; a Recorder collects wall-clock durations per label for
// diagnosing where frame time goes.
package profiler

import (
	"time"
)

type ProfilerGroup interface {
	Start(label string) ProfilerGroup
	End()
}

// Nop returns a group that discards all measurements.
func Nop() ProfilerGroup { return nopGroup{} }

type nopGroup struct{}

func (nopGroup) Start(label string) ProfilerGroup { return nopGroup{} }
func (nopGroup) End()                             {}

// Sample is one timed span within a frame.
type Sample struct {
	Label    string
	Duration time.Duration
}

// Recorder is a ProfilerGroup that records CPU-side durations. It is not safe
// for concurrent use; use one per frame loop.
type Recorder struct {
	samples []Sample
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Start(label string) ProfilerGroup {
	return &span{rec: r, label: label, start: time.Now()}
}

func (r *Recorder) End() {}

// Samples returns the spans recorded since the last call to Samples, oldest
// first, and clears the recorder.
func (r *Recorder) Samples() []Sample {
	s := r.samples
	r.samples = nil
	return s
}

type span struct {
	rec   *Recorder
	label string
	start time.Time
}

func (s *span) Start(label string) ProfilerGroup {
	return &span{rec: s.rec, label: s.label + "." + label, start: time.Now()}
}

func (s *span) End() {
	s.rec.samples = append(s.rec.samples, Sample{
		Label:    s.label,
		Duration: time.Since(s.start),
	})
}
