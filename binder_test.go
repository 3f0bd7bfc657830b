package swarm

import (
	"testing"

	"honnef.co/go/swarm/encoding"
	"honnef.co/go/swarm/engine"
)

func readyImage(layers int) *Image {
	img := &Image{layers: layers}
	img.state.Store(imageReady)
	return img
}

func newTestBinder() *frameBinder {
	return &frameBinder{logger: newNopLogger()}
}

func TestBinderResolvesSlots(t *testing.T) {
	b := newTestBinder()
	imgs := make([]*Image, engine.NumImageSlots)
	for i := range imgs {
		imgs[i] = readyImage(1)
		got := b.resolve(imgs[i])
		if want := engine.BindingImageBase + i; got != want {
			t.Errorf("image %d resolved to slot %d, want %d", i, got, want)
		}
	}

	// The same handle resolves to its existing slot, not a new one.
	if got := b.resolve(imgs[2]); got != engine.BindingImageBase+2 {
		t.Errorf("repeated image resolved to %d, want %d", got, engine.BindingImageBase+2)
	}

	// A sixth distinct image exceeds the frame's slots.
	if got := b.resolve(readyImage(1)); got != encoding.SlotInvalid {
		t.Errorf("over-budget image resolved to %d, want %d", got, encoding.SlotInvalid)
	}
}

func TestBinderPlaceholderStates(t *testing.T) {
	b := newTestBinder()

	if got := b.resolve(nil); got != encoding.SlotInvalid {
		t.Errorf("nil handle resolved to %d, want %d", got, encoding.SlotInvalid)
	}

	loading := &Image{layers: 1}
	if got := b.resolve(loading); got != encoding.SlotLoading {
		t.Errorf("loading handle resolved to %d, want %d", got, encoding.SlotLoading)
	}

	failed := &Image{layers: 1}
	failed.state.Store(imageFailed)
	if got := b.resolve(failed); got != encoding.SlotInvalid {
		t.Errorf("failed handle resolved to %d, want %d", got, encoding.SlotInvalid)
	}

	// Placeholder states consume no slots.
	if b.numImages != 0 {
		t.Errorf("numImages = %d, want 0", b.numImages)
	}
}

func TestBinderBundleSlots(t *testing.T) {
	b := newTestBinder()
	for i := 0; i < engine.NumBundleSlots; i++ {
		got := b.resolve(readyImage(4))
		if want := engine.BindingBundleBase + i; got != want {
			t.Errorf("bundle %d resolved to slot %d, want %d", i, got, want)
		}
	}
	if got := b.resolve(readyImage(4)); got != encoding.SlotInvalid {
		t.Errorf("over-budget bundle resolved to %d, want %d", got, encoding.SlotInvalid)
	}

	// Bundles don't consume standalone slots.
	if got := b.resolve(readyImage(1)); got != engine.BindingImageBase {
		t.Errorf("standalone image resolved to %d, want %d", got, engine.BindingImageBase)
	}
}

func TestBinderReset(t *testing.T) {
	b := newTestBinder()
	img := readyImage(1)
	b.resolve(img)
	b.reset()

	if b.numImages != 0 || b.images[0] != nil {
		t.Error("reset did not clear image slots")
	}
	// After reset the same handle gets slot 0 again.
	if got := b.resolve(img); got != engine.BindingImageBase {
		t.Errorf("post-reset resolve = %d, want %d", got, engine.BindingImageBase)
	}
}
