package swarm

import (
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"strings"
	"sync/atomic"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"honnef.co/go/wgpu"
)

// Image handle states. Handles start out loading and move to ready or failed
// exactly once.
const (
	imageLoading int32 = iota
	imageFailed
	imageReady
)

// Image is a handle to an asynchronously loaded texture. Handles can be drawn
// immediately after LoadImage returns; until the pixels arrive on the GPU the
// shape shows the loading placeholder, and if decoding fails it shows the
// error placeholder instead.
type Image struct {
	state atomic.Int32

	// Set by the renderer before state moves to imageReady; only read while
	// ready, so no lock is needed.
	view   *wgpu.TextureView
	layers int
}

// Layers reports how many slices the handle holds. Standalone images have one
// layer; bundles have one per source.
func (img *Image) Layers() int { return img.layers }

// Ready reports whether the texture is resident on the GPU.
func (img *Image) Ready() bool { return img.state.Load() == imageReady }

// Failed reports whether loading ended in an error.
func (img *Image) Failed() bool { return img.state.Load() == imageFailed }

// loadResult carries decoded, premultiplied pixels from a loader goroutine to
// the renderer, which owns all GPU uploads.
type loadResult struct {
	img    *Image
	width  int
	height int
	layers int
	pix    []byte
}

// LoadImage starts decoding an image from a file path or an http(s) URL and
// returns its handle immediately. The pixels are uploaded during a later
// BeginFrame on the renderer's goroutine.
func (r *Renderer) LoadImage(source string) *Image {
	img := &Image{layers: 1}
	go r.load(img, []string{source}, 0)
	return img
}

// LoadImageBundle decodes several images into the layers of one texture
// array. Every source is resized to resolution on both axes so the layers
// match. The returned handle's Slice selects a layer when drawing.
func (r *Renderer) LoadImageBundle(sources []string, resolution int) *Image {
	img := &Image{layers: len(sources)}
	if len(sources) == 0 || resolution <= 0 {
		r.logger.Warn("invalid image bundle request",
			"sources", len(sources), "resolution", resolution)
		img.state.Store(imageFailed)
		return img
	}
	go r.load(img, sources, resolution)
	return img
}

// load decodes sources off the renderer goroutine and hands the result to the
// pending queue. A resolution of 0 keeps the source dimensions and is only
// valid for a single source.
func (r *Renderer) load(img *Image, sources []string, resolution int) {
	var (
		pix    []byte
		width  int
		height int
	)
	for i, source := range sources {
		decoded, err := decodeSource(source)
		if err != nil {
			r.logger.Warn("image load failed", "source", source, "err", err)
			img.state.Store(imageFailed)
			r.requestRedraw()
			return
		}
		if resolution > 0 {
			decoded = imaging.Resize(decoded, resolution, resolution, imaging.Lanczos)
		}
		b := decoded.Bounds()
		if i == 0 {
			width, height = b.Dx(), b.Dy()
			pix = make([]byte, width*height*4*len(sources))
		}
		premultiply(decoded, pix[i*width*height*4:])
	}

	res := loadResult{
		img:    img,
		width:  width,
		height: height,
		layers: len(sources),
		pix:    pix,
	}
	select {
	case r.pending <- res:
		r.requestRedraw()
	case <-r.done:
		// Renderer closed; drop the pixels.
	}
}

func decodeSource(source string) (*image.NRGBA, error) {
	var rd io.ReadCloser
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		resp, err := http.Get(source)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("fetching %q: %s", source, resp.Status)
		}
		rd = resp.Body
	} else {
		f, err := os.Open(source)
		if err != nil {
			return nil, err
		}
		rd = f
	}
	defer rd.Close()

	decoded, _, err := image.Decode(rd)
	if err != nil {
		return nil, fmt.Errorf("decoding %q: %w", source, err)
	}
	return imaging.Clone(decoded), nil
}

// premultiply converts straight-alpha NRGBA pixels to the premultiplied form
// image textures store.
func premultiply(src *image.NRGBA, dst []byte) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		out := dst[y*w*4 : (y+1)*w*4]
		for x := 0; x < w*4; x += 4 {
			a := uint32(row[x+3])
			out[x+0] = byte(uint32(row[x+0]) * a / 255)
			out[x+1] = byte(uint32(row[x+1]) * a / 255)
			out[x+2] = byte(uint32(row[x+2]) * a / 255)
			out[x+3] = byte(a)
		}
	}
}

// drainPending uploads any decoded images that arrived since the last frame.
// Called at the start of each frame so shapes encoded this frame can already
// reference them.
func (r *Renderer) drainPending() {
	for {
		select {
		case res := <-r.pending:
			if res.layers > 1 {
				res.img.view = r.eng.CreateImageArray(res.width, res.height, res.layers, res.pix)
			} else {
				res.img.view = r.eng.CreateImage(res.width, res.height, res.pix)
			}
			res.img.state.Store(imageReady)
			r.logger.Debug("image uploaded",
				"width", res.width, "height", res.height, "layers", res.layers)
		default:
			return
		}
	}
}

func (r *Renderer) requestRedraw() {
	if r.redraw != nil {
		r.redraw()
	}
}
