package swarm

import (
	"log/slog"

	"honnef.co/go/wgpu"

	"honnef.co/go/swarm/encoding"
	"honnef.co/go/swarm/engine"
)

// frameBinder assigns the frame's distinct textures to the fixed sampler
// slots of the bind group. Assignments reset every frame; the slot count is
// small, so lookup is a linear scan.
type frameBinder struct {
	logger *slog.Logger

	images     [engine.NumImageSlots]*Image
	numImages  int
	bundles    [engine.NumBundleSlots]*Image
	numBundles int

	warnedImages  bool
	warnedBundles bool
}

func (b *frameBinder) reset() {
	clear(b.images[:b.numImages])
	clear(b.bundles[:b.numBundles])
	b.numImages = 0
	b.numBundles = 0
	b.warnedImages = false
	b.warnedBundles = false
}

// resolve returns the sampler slot for img this frame: the absolute binding
// index for resident textures, SlotLoading while pixels are in flight, and
// SlotInvalid for failed handles or when the frame's slots are exhausted.
func (b *frameBinder) resolve(img *Image) int {
	if img == nil || img.state.Load() == imageFailed {
		return encoding.SlotInvalid
	}
	if img.state.Load() != imageReady {
		return encoding.SlotLoading
	}
	if img.layers > 1 {
		for i := 0; i < b.numBundles; i++ {
			if b.bundles[i] == img {
				return engine.BindingBundleBase + i
			}
		}
		if b.numBundles == engine.NumBundleSlots {
			if !b.warnedBundles {
				b.logger.Warn("bundle slots exhausted for this frame",
					"slots", engine.NumBundleSlots)
				b.warnedBundles = true
			}
			return encoding.SlotInvalid
		}
		b.bundles[b.numBundles] = img
		b.numBundles++
		return engine.BindingBundleBase + b.numBundles - 1
	}

	for i := 0; i < b.numImages; i++ {
		if b.images[i] == img {
			return engine.BindingImageBase + i
		}
	}
	if b.numImages == engine.NumImageSlots {
		if !b.warnedImages {
			b.logger.Warn("image slots exhausted for this frame",
				"slots", engine.NumImageSlots)
			b.warnedImages = true
		}
		return encoding.SlotInvalid
	}
	b.images[b.numImages] = img
	b.numImages++
	return engine.BindingImageBase + b.numImages - 1
}

// views returns the texture views to bind this frame. Unassigned slots stay
// nil and the engine substitutes placeholders.
func (b *frameBinder) views() ([engine.NumImageSlots]*wgpu.TextureView, [engine.NumBundleSlots]*wgpu.TextureView) {
	var images [engine.NumImageSlots]*wgpu.TextureView
	var bundles [engine.NumBundleSlots]*wgpu.TextureView
	for i := 0; i < b.numImages; i++ {
		images[i] = b.images[i].view
	}
	for i := 0; i < b.numBundles; i++ {
		bundles[i] = b.bundles[i].view
	}
	return images, bundles
}
