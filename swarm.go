// Package swarm is an immediate-mode 2D shape renderer. Each frame, shape
// calls pack fixed-width command and style records into CPU-side buffers and
// bin them into 32px screen tiles; Draw uploads the used buffer regions once
// and resolves every pixel in a single full-screen GPU pass.
//
// All buffers have fixed capacities chosen at compile time. Overflow degrades
// output (shapes or styles are dropped with a warning) but never allocates,
// grows, or fails the frame.
package swarm

import (
	"fmt"
	"log/slog"

	"honnef.co/go/wgpu"

	"honnef.co/go/swarm/encoding"
	"honnef.co/go/swarm/engine"
	"honnef.co/go/swarm/geom"
	"honnef.co/go/swarm/gfx"
	"honnef.co/go/swarm/profiler"
)

// Options configures a renderer at creation time.
type Options struct {
	// TargetFormat is the texture format of the views passed to Draw.
	TargetFormat wgpu.TextureFormat
	// Gifts selects the gift interpretation of shape type 6. Renderers built
	// without it draw images instead.
	Gifts bool
	// BaseColor fills the target before shapes composite onto it. The zero
	// value is transparent black.
	BaseColor gfx.Color
	// RequestRedraw, if set, is called from loader goroutines when an
	// asynchronous image load completes, so event-driven applications can
	// schedule a frame. It must be safe to call from any goroutine.
	RequestRedraw func()
	// Profiler receives per-phase frame timings. Defaults to the nop group.
	Profiler profiler.ProfilerGroup
}

// Renderer encodes and draws one target's shapes. It is not safe for
// concurrent use; all methods except the Load* ones must be called from one
// goroutine.
type Renderer struct {
	logger *slog.Logger
	eng    *engine.Engine
	enc    *encoding.Encoding
	binder frameBinder

	width  int
	height int
	redraw func()
	prof   profiler.ProfilerGroup

	pending chan loadResult
	done    chan struct{}
	closed  bool
}

func New(dev *wgpu.Device, queue *wgpu.Queue, opts Options) (*Renderer, error) {
	logger := Logger()
	variant := engine.VariantImage
	if opts.Gifts {
		variant = engine.VariantGift
	}
	eng, err := engine.New(dev, queue, engine.Options{
		TargetFormat: opts.TargetFormat,
		Variant:      variant,
		BaseColor:    opts.BaseColor,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating renderer: %w", err)
	}
	prof := opts.Profiler
	if prof == nil {
		prof = profiler.Nop()
	}
	return &Renderer{
		logger:  logger,
		eng:     eng,
		enc:     encoding.New(logger),
		binder:  frameBinder{logger: logger},
		redraw:  opts.RequestRedraw,
		prof:    prof,
		pending: make(chan loadResult, 64),
		done:    make(chan struct{}),
	}, nil
}

// BeginFrame starts a frame for a viewport of the given pixel size. It
// uploads any images whose decoding finished since the last frame, so shapes
// encoded afterwards can already reference them.
func (r *Renderer) BeginFrame(width, height int) {
	r.drainPending()
	r.width = width
	r.height = height
	r.enc.BeginFrame(width, height)
}

// Line draws a stroked segment.
func (r *Renderer) Line(p0, p1 geom.Point, width float32, col gfx.Color) {
	r.enc.Encode(encoding.Line{P0: p0, P1: p1, Width: width, Color: col})
}

// Quad draws a filled convex quadrilateral with corners in winding order.
func (r *Renderer) Quad(p0, p1, p2, p3 geom.Point, col gfx.Color) {
	r.enc.Encode(encoding.Quad{P0: p0, P1: p1, P2: p2, P3: p3, Color: col})
}

// Rect draws a filled axis-aligned rectangle with rounded corners.
func (r *Renderer) Rect(rect geom.Rect, corner float32, col gfx.Color) {
	r.enc.Encode(encoding.Rect{Rect: rect, Corner: corner, Color: col})
}

// Frame draws the stroked outline of an axis-aligned rectangle.
func (r *Renderer) Frame(rect geom.Rect, lineWidth, corner float32, col gfx.Color) {
	r.enc.Encode(encoding.Frame{Rect: rect, LineWidth: lineWidth, Corner: corner, Color: col})
}

// OrientedRect draws a filled rectangle rotated around its center.
func (r *Renderer) OrientedRect(center geom.Point, width, height, rotation float32, col gfx.Color) {
	r.enc.Encode(encoding.OrientedRect{
		Center:   center,
		Width:    width,
		Height:   height,
		Rotation: rotation,
		Color:    col,
	})
}

// Image draws a loaded image into rect, modulated by tint. For bundles, slice
// selects the layer. Until the image is resident the shape shows the loading
// placeholder; failed loads show the error placeholder.
func (r *Renderer) Image(rect geom.Rect, img *Image, slice int, tint gfx.Color) {
	r.enc.Encode(encoding.Image{
		Rect:  rect,
		Slot:  r.binder.resolve(img),
		Slice: slice,
		Tint:  tint,
	})
}

// Gift draws a rotated gift box with a phase-animated bow. Only renderers
// created with Options.Gifts draw it; others show an image in its place.
func (r *Renderer) Gift(center geom.Point, size, rotation, phase float32, col gfx.Color) {
	r.enc.Encode(encoding.Gift{
		Center:   center,
		Size:     size,
		Rotation: rotation,
		Phase:    phase,
		Color:    col,
	})
}

// Draw packs the frame's tile lists, uploads the used buffer regions, and
// issues the frame's single draw into target. Afterwards all per-frame state
// is reset; shape calls before the next BeginFrame bin against the old grid.
func (r *Renderer) Draw(target *wgpu.TextureView) {
	frame := r.prof.Start("frame")
	defer frame.End()

	pack := frame.Start("pack")
	packed := r.enc.Pack()
	pack.End()

	upload := frame.Start("upload")
	r.eng.UploadFrame(r.enc, packed, r.width, r.height)
	upload.End()

	draw := frame.Start("draw")
	images, bundles := r.binder.views()
	r.eng.Draw(target, images, bundles)
	draw.End()

	stats := r.enc.Stats()
	if stats.DroppedCapacity > 0 || stats.TileOverflows > 0 || stats.StyleWraps > 0 {
		r.logger.Debug("frame degraded",
			"commands", stats.Commands,
			"dropped", stats.DroppedCapacity,
			"tileOverflows", stats.TileOverflows,
			"styleWraps", stats.StyleWraps)
	}
	r.enc.Reset()
	r.binder.reset()
}

// Stats returns the counters accumulated since BeginFrame. Call before Draw;
// Draw resets them.
func (r *Renderer) Stats() encoding.Stats {
	return r.enc.Stats()
}

// Close releases all GPU resources. In-flight image loads are abandoned;
// their results are dropped rather than applied to the dead renderer.
func (r *Renderer) Close() {
	if r.closed {
		return
	}
	r.closed = true
	close(r.done)
	r.eng.Close()
}
