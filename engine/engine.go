// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

// Package engine owns the persistent GPU resources behind a renderer: the
// command and tile images, the placeholder textures, and the full-screen
// pipeline that resolves tiles per pixel. All state lives in device memory
// created once at initialization with immutable sizes; per frame the engine
// only uploads the used sub-regions and issues a single draw.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"structs"

	"honnef.co/go/safeish"
	"honnef.co/go/wgpu"

	"honnef.co/go/swarm/encoding"
	"honnef.co/go/swarm/gfx"
	"honnef.co/go/swarm/smath"
)

// Variant selects the interpretation of shape type 6, mirroring the two
// shader builds: the standard build draws images, the gift build draws gifts.
type Variant int

const (
	VariantImage Variant = iota
	VariantGift
)

// Binding indices of the fragment stage's bind group. Slots 0 through 4 are
// reserved for command and tile data; image slots follow.
const (
	bindingConfig     = 0
	bindingCmds       = 1
	bindingTileCmds   = 2
	bindingTileRanges = 3
	bindingSampler    = 4

	// BindingImageBase is the binding of standalone image slot 0.
	BindingImageBase = 5
	// NumImageSlots is the number of standalone image slots per frame.
	NumImageSlots = 5
	// BindingBundleBase is the binding of texture-array (bundle) slot 0.
	BindingBundleBase = BindingImageBase + NumImageSlots
	// NumBundleSlots is the number of bundle slots per frame.
	NumBundleSlots = 4

	numBindings = BindingBundleBase + NumBundleSlots
)

const (
	tileCmdRows   = (encoding.MaxTiles*encoding.MaxCmdsPerTile + encoding.TileCmdsBufferLine - 1) / encoding.TileCmdsBufferLine
	tileRangeRows = (encoding.MaxTiles + 1 + encoding.TileCmdsBufferLine - 1) / encoding.TileCmdsBufferLine
)

// configUniform is the per-frame render configuration.
//
// This struct must be kept in sync with the Config definition in the
// generated WGSL source.
type configUniform struct {
	_ structs.HostLayout

	WidthInTiles  uint32
	HeightInTiles uint32
	TargetWidth   uint32
	TargetHeight  uint32
}

type Options struct {
	// TargetFormat is the texture format of the views passed to Draw.
	TargetFormat wgpu.TextureFormat
	Variant      Variant
	// BaseColor fills the target before any shapes composite onto it.
	BaseColor gfx.Color
	Logger    *slog.Logger
}

type Engine struct {
	dev    *wgpu.Device
	queue  *wgpu.Queue
	logger *slog.Logger
	opts   Options

	pipeline   *wgpu.RenderPipeline
	bindLayout *wgpu.BindGroupLayout
	sampler    *wgpu.Sampler
	configBuf  *wgpu.Buffer

	cmdTex  *wgpu.Texture
	cmdView *wgpu.TextureView

	tileCmdsTex  *wgpu.Texture
	tileCmdsView *wgpu.TextureView

	tileRangesTex  *wgpu.Texture
	tileRangesView *wgpu.TextureView

	// 1x1 fallbacks bound to any slot without a resolved texture. Loading
	// and error states never sample; the shader substitutes their colors.
	blankView      *wgpu.TextureView
	blankArrayView *wgpu.TextureView

	// textures owned on behalf of loaded images, released on Close.
	images []*wgpu.Texture
}

func New(dev *wgpu.Device, queue *wgpu.Queue, opts Options) (*Engine, error) {
	if dev == nil || queue == nil {
		return nil, errors.New("engine: nil device or queue")
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(nopHandler{})
	}

	eng := &Engine{
		dev:    dev,
		queue:  queue,
		logger: opts.Logger,
		opts:   opts,
	}

	eng.cmdTex = dev.CreateTexture(&wgpu.TextureDescriptor{
		Label: "command buffer",
		Size: wgpu.Extent3D{
			Width:              encoding.MaxCmdBufferLine,
			Height:             encoding.MaxCmdBufferLine,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Format:        wgpu.TextureFormatRGBA32Float,
	})
	eng.cmdView = eng.cmdTex.CreateView(nil)

	eng.tileCmdsTex = dev.CreateTexture(&wgpu.TextureDescriptor{
		Label: "tile commands",
		Size: wgpu.Extent3D{
			Width:              encoding.TileCmdsBufferLine,
			Height:             tileCmdRows,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Format:        wgpu.TextureFormatR16Uint,
	})
	eng.tileCmdsView = eng.tileCmdsTex.CreateView(nil)

	eng.tileRangesTex = dev.CreateTexture(&wgpu.TextureDescriptor{
		Label: "tile ranges",
		Size: wgpu.Extent3D{
			Width:              encoding.TileCmdsBufferLine,
			Height:             tileRangeRows,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Format:        wgpu.TextureFormatR16Uint,
	})
	eng.tileRangesView = eng.tileRangesTex.CreateView(nil)

	eng.blankView = eng.placeholder("placeholder blank", [4]byte{128, 128, 128, 255}, false)
	eng.blankArrayView = eng.placeholder("placeholder blank array", [4]byte{128, 128, 128, 255}, true)

	eng.sampler = dev.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "image sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MaxAnisotropy: 1,
	})

	eng.configBuf = dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "config",
		Size:  uint64(len(safeish.AsBytes(&configUniform{}))),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})

	eng.buildPipeline()
	eng.logger.Debug("engine initialized",
		"cmdTexels", encoding.MaxCmdData,
		"tileCmdRows", tileCmdRows,
		"variant", int(opts.Variant))
	return eng, nil
}

// buildPipeline compiles the tile resolve shader and pipeline. Compilation
// failures are programmer errors in the generated WGSL and panic via the
// Must variants, matching the fatal-at-construction policy.
func (eng *Engine) buildPipeline() {
	shader := eng.dev.CreateShaderModule(wgpu.ShaderModuleDescriptor{
		Label:  "tile resolve",
		Source: wgpu.ShaderSourceWGSL([]byte(shaderSource(eng.opts.Variant))),
	})

	entries := make([]wgpu.BindGroupLayoutEntry, 0, numBindings)
	entries = append(entries,
		wgpu.BindGroupLayoutEntry{
			Binding:    bindingConfig,
			Visibility: wgpu.ShaderStageFragment,
			Buffer: &wgpu.BufferBindingLayout{
				Type: wgpu.BufferBindingTypeUniform,
			},
		},
		wgpu.BindGroupLayoutEntry{
			Binding:    bindingCmds,
			Visibility: wgpu.ShaderStageFragment,
			Texture: &wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeUnfilterableFloat,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		},
		wgpu.BindGroupLayoutEntry{
			Binding:    bindingTileCmds,
			Visibility: wgpu.ShaderStageFragment,
			Texture: &wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeUint,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		},
		wgpu.BindGroupLayoutEntry{
			Binding:    bindingTileRanges,
			Visibility: wgpu.ShaderStageFragment,
			Texture: &wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeUint,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		},
		wgpu.BindGroupLayoutEntry{
			Binding:    bindingSampler,
			Visibility: wgpu.ShaderStageFragment,
			Sampler: &wgpu.SamplerBindingLayout{
				Type: wgpu.SamplerBindingTypeFiltering,
			},
		},
	)
	for i := 0; i < NumImageSlots; i++ {
		entries = append(entries, wgpu.BindGroupLayoutEntry{
			Binding:    uint32(BindingImageBase + i),
			Visibility: wgpu.ShaderStageFragment,
			Texture: &wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeFloat,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		})
	}
	for i := 0; i < NumBundleSlots; i++ {
		entries = append(entries, wgpu.BindGroupLayoutEntry{
			Binding:    uint32(BindingBundleBase + i),
			Visibility: wgpu.ShaderStageFragment,
			Texture: &wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeFloat,
				ViewDimension: wgpu.TextureViewDimension2DArray,
			},
		})
	}

	eng.bindLayout = eng.dev.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "tile resolve bindings",
		Entries: entries,
	})
	pipelineLayout := eng.dev.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "tile resolve pipeline layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{eng.bindLayout},
	})
	defer pipelineLayout.Release()

	eng.pipeline = eng.dev.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "tile resolve pipeline",
		Layout: pipelineLayout,
		Vertex: &wgpu.VertexState{
			Module:     shader,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     shader,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format: eng.opts.TargetFormat,
					Blend: &wgpu.BlendState{
						Color: wgpu.BlendComponent{
							Operation: wgpu.BlendOperationAdd,
							SrcFactor: wgpu.BlendFactorOne,
							DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						},
						Alpha: wgpu.BlendComponent{
							Operation: wgpu.BlendOperationAdd,
							SrcFactor: wgpu.BlendFactorOne,
							DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						},
					},
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: &wgpu.PrimitiveState{
			Topology:         wgpu.PrimitiveTopologyTriangleStrip,
			StripIndexFormat: ^wgpu.IndexFormat(0),
			FrontFace:        wgpu.FrontFaceCCW,
			CullMode:         wgpu.CullModeNone,
		},
		Multisample: &wgpu.MultisampleState{
			Count:                  1,
			Mask:                   ^uint32(0),
			AlphaToCoverageEnabled: false,
		},
	})
}

func (eng *Engine) placeholder(label string, rgba [4]byte, array bool) *wgpu.TextureView {
	tex := eng.dev.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              1,
			Height:             1,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Format:        wgpu.TextureFormatRGBA8Unorm,
	})
	eng.images = append(eng.images, tex)
	eng.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture: tex,
			Aspect:  wgpu.TextureAspectAll,
		},
		rgba[:],
		&wgpu.TextureDataLayout{BytesPerRow: 4},
		&wgpu.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
	)
	dim := wgpu.TextureViewDimension2D
	if array {
		dim = wgpu.TextureViewDimension2DArray
	}
	return tex.CreateView(&wgpu.TextureViewDescriptor{
		Dimension:       dim,
		Aspect:          wgpu.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
		Format:          wgpu.TextureFormatRGBA8Unorm,
	})
}

// CreateImage uploads a decoded, premultiplied RGBA image and returns a view
// bindable to a standalone slot. The engine owns the texture.
func (eng *Engine) CreateImage(width, height int, pix []byte) *wgpu.TextureView {
	tex := eng.dev.CreateTexture(&wgpu.TextureDescriptor{
		Label: "image",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Format:        wgpu.TextureFormatRGBA8Unorm,
	})
	eng.images = append(eng.images, tex)
	eng.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture: tex,
			Aspect:  wgpu.TextureAspectAll,
		},
		pix,
		&wgpu.TextureDataLayout{
			BytesPerRow:  uint32(width) * 4,
			RowsPerImage: uint32(height),
		},
		&wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
	)
	return tex.CreateView(nil)
}

// CreateImageArray uploads a stack of equally sized layers and returns a view
// bindable to a bundle slot.
func (eng *Engine) CreateImageArray(width, height, layers int, pix []byte) *wgpu.TextureView {
	tex := eng.dev.CreateTexture(&wgpu.TextureDescriptor{
		Label: "image bundle",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: uint32(layers),
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Format:        wgpu.TextureFormatRGBA8Unorm,
	})
	eng.images = append(eng.images, tex)
	eng.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture: tex,
			Aspect:  wgpu.TextureAspectAll,
		},
		pix,
		&wgpu.TextureDataLayout{
			BytesPerRow:  uint32(width) * 4,
			RowsPerImage: uint32(height),
		},
		&wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: uint32(layers),
		},
	)
	return tex.CreateView(&wgpu.TextureViewDescriptor{
		Dimension:       wgpu.TextureViewDimension2DArray,
		Aspect:          wgpu.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: uint32(layers),
		Format:          wgpu.TextureFormatRGBA8Unorm,
	})
}

// UploadFrame writes the frame's used buffer regions to the GPU: the command
// rows actually written, the style row, the packed tile commands, and the
// range table. Row counts are derived from the used texel counts so transfer
// volume tracks scene complexity, not capacity.
func (eng *Engine) UploadFrame(enc *encoding.Encoding, packed encoding.Packed, width, height int) {
	cfg := configUniform{
		WidthInTiles:  uint32(packed.TilesX),
		HeightInTiles: uint32(packed.TilesY),
		TargetWidth:   uint32(width),
		TargetHeight:  uint32(height),
	}
	eng.queue.WriteBuffer(eng.configBuf, 0, safeish.AsBytes(&cfg))

	data := enc.Data()
	eng.writeTexels(eng.cmdTex, 0, enc.CmdTexels(), encoding.MaxCmdBufferLine, 16,
		safeish.SliceCast[[]byte](data[:enc.CmdTexels()*4]))
	if n := enc.StyleTexels(); n > 0 {
		styles := data[encoding.StyleBase*4 : (encoding.StyleBase+n)*4]
		eng.queue.WriteTexture(
			&wgpu.ImageCopyTexture{
				Texture: eng.cmdTex,
				Origin: wgpu.Origin3D{
					X: uint32(encoding.StyleBase % encoding.MaxCmdBufferLine),
					Y: uint32(encoding.StyleBase / encoding.MaxCmdBufferLine),
				},
				Aspect: wgpu.TextureAspectAll,
			},
			safeish.SliceCast[[]byte](styles),
			&wgpu.TextureDataLayout{BytesPerRow: uint32(n) * 16},
			&wgpu.Extent3D{Width: uint32(n), Height: 1, DepthOrArrayLayers: 1},
		)
	}

	eng.writeTexels(eng.tileCmdsTex, 0, len(packed.Cmds), encoding.TileCmdsBufferLine, 2,
		safeish.SliceCast[[]byte](packed.Cmds))
	eng.writeTexels(eng.tileRangesTex, 0, len(packed.Ranges), encoding.TileCmdsBufferLine, 2,
		safeish.SliceCast[[]byte](packed.Ranges))
}

// writeTexels uploads n texels of blockSize bytes each into a texture of the
// given row width, as full rows plus one partial remainder row.
func (eng *Engine) writeTexels(tex *wgpu.Texture, startRow, n, width, blockSize int, data []byte) {
	if n == 0 {
		return
	}
	fullRows := n / width
	rem := n % width
	if fullRows > 0 {
		eng.queue.WriteTexture(
			&wgpu.ImageCopyTexture{
				Texture: tex,
				Origin:  wgpu.Origin3D{Y: uint32(startRow)},
				Aspect:  wgpu.TextureAspectAll,
			},
			data[:fullRows*width*blockSize],
			&wgpu.TextureDataLayout{
				BytesPerRow:  uint32(width * blockSize),
				RowsPerImage: uint32(fullRows),
			},
			&wgpu.Extent3D{
				Width:              uint32(width),
				Height:             uint32(fullRows),
				DepthOrArrayLayers: 1,
			},
		)
	}
	if rem > 0 {
		eng.queue.WriteTexture(
			&wgpu.ImageCopyTexture{
				Texture: tex,
				Origin:  wgpu.Origin3D{Y: uint32(startRow + fullRows)},
				Aspect:  wgpu.TextureAspectAll,
			},
			data[fullRows*width*blockSize:n*blockSize],
			&wgpu.TextureDataLayout{BytesPerRow: uint32(rem * blockSize)},
			&wgpu.Extent3D{
				Width:              uint32(rem),
				Height:             1,
				DepthOrArrayLayers: 1,
			},
		)
	}
}

// Draw issues the frame's single full-viewport draw into target. Nil slots
// bind the blank placeholder.
func (eng *Engine) Draw(target *wgpu.TextureView, images [NumImageSlots]*wgpu.TextureView, bundles [NumBundleSlots]*wgpu.TextureView) {
	entries := make([]wgpu.BindGroupEntry, 0, numBindings)
	entries = append(entries,
		wgpu.BindGroupEntry{Binding: bindingConfig, Buffer: eng.configBuf, Size: ^uint64(0)},
		wgpu.BindGroupEntry{Binding: bindingCmds, TextureView: eng.cmdView},
		wgpu.BindGroupEntry{Binding: bindingTileCmds, TextureView: eng.tileCmdsView},
		wgpu.BindGroupEntry{Binding: bindingTileRanges, TextureView: eng.tileRangesView},
		wgpu.BindGroupEntry{Binding: bindingSampler, Sampler: eng.sampler},
	)
	for i, view := range images {
		if view == nil {
			view = eng.blankView
		}
		entries = append(entries, wgpu.BindGroupEntry{
			Binding:     uint32(BindingImageBase + i),
			TextureView: view,
		})
	}
	for i, view := range bundles {
		if view == nil {
			view = eng.blankArrayView
		}
		entries = append(entries, wgpu.BindGroupEntry{
			Binding:     uint32(BindingBundleBase + i),
			TextureView: view,
		})
	}
	bindGroup := eng.dev.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout:  eng.bindLayout,
		Entries: entries,
	})
	defer bindGroup.Release()

	encoder := eng.dev.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "tile resolve"})
	defer encoder.Release()

	base := eng.opts.BaseColor.Premul()
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    target,
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
				ClearValue: wgpu.Color{
					R: float64(base[0]),
					G: float64(base[1]),
					B: float64(base[2]),
					A: float64(base[3]),
				},
			},
		},
	})
	defer pass.Release()

	pass.SetPipeline(eng.pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.Draw(4, 1, 0, 0)
	pass.End()

	cmd := encoder.Finish(nil)
	defer cmd.Release()
	eng.queue.Submit(cmd)
}

// Close releases all GPU resources. The engine must not be used afterwards.
func (eng *Engine) Close() {
	for _, tex := range eng.images {
		tex.Release()
	}
	eng.images = nil
	eng.cmdView.Release()
	eng.cmdTex.Release()
	eng.tileCmdsView.Release()
	eng.tileCmdsTex.Release()
	eng.tileRangesView.Release()
	eng.tileRangesTex.Release()
	eng.sampler.Release()
	eng.configBuf.Release()
	eng.bindLayout.Release()
	eng.pipeline.Release()
}

// Rows computes how many texture rows a texel count occupies; exposed for
// sizing assertions in tests.
func Rows(texels, width int) int {
	return smath.CeilDiv(texels, width)
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }
