// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package engine

import (
	"fmt"
	"strings"

	"honnef.co/go/swarm/encoding"
)

// shaderSource assembles the WGSL for the tile resolve pass. The layout
// constants are injected from the Go side so the encoder and the shader can
// never disagree about buffer geometry. The variant decides whether shape
// type 6 samples an image or draws a procedural gift.
func shaderSource(variant Variant) string {
	var b strings.Builder
	fmt.Fprintf(&b, wgslHeader,
		encoding.MaxCmdBufferLine,
		encoding.TileCmdsBufferLine,
		encoding.TileSizeLog2,
		encoding.StyleBase,
		BindingImageBase,
		BindingBundleBase,
	)
	b.WriteString(wgslCommon)
	if variant == VariantGift {
		b.WriteString(wgslGift)
	} else {
		b.WriteString(wgslImage)
	}
	b.WriteString(wgslMain)
	return b.String()
}

const wgslHeader = `const CMD_LINE: u32 = %du;
const TILE_CMD_LINE: u32 = %du;
const TILE_SIZE_LOG2: u32 = %du;
const STYLE_BASE: u32 = %du;
const IMAGE_BASE: i32 = %d;
const BUNDLE_BASE: i32 = %d;
`

const wgslCommon = `
struct Config {
    width_in_tiles: u32,
    height_in_tiles: u32,
    target_width: u32,
    target_height: u32,
}

@group(0) @binding(0) var<uniform> config: Config;
@group(0) @binding(1) var cmds: texture_2d<f32>;
@group(0) @binding(2) var tile_cmds: texture_2d<u32>;
@group(0) @binding(3) var tile_ranges: texture_2d<u32>;
@group(0) @binding(4) var samp: sampler;
@group(0) @binding(5) var image0: texture_2d<f32>;
@group(0) @binding(6) var image1: texture_2d<f32>;
@group(0) @binding(7) var image2: texture_2d<f32>;
@group(0) @binding(8) var image3: texture_2d<f32>;
@group(0) @binding(9) var image4: texture_2d<f32>;
@group(0) @binding(10) var bundle0: texture_2d_array<f32>;
@group(0) @binding(11) var bundle1: texture_2d_array<f32>;
@group(0) @binding(12) var bundle2: texture_2d_array<f32>;
@group(0) @binding(13) var bundle3: texture_2d_array<f32>;

fn cmd_texel(i: u32) -> vec4<f32> {
    return textureLoad(cmds, vec2<i32>(i32(i % CMD_LINE), i32(i / CMD_LINE)), 0);
}

fn tile_cmd(i: u32) -> u32 {
    return textureLoad(tile_cmds, vec2<i32>(i32(i % TILE_CMD_LINE), i32(i / TILE_CMD_LINE)), 0).r;
}

fn tile_range(i: u32) -> u32 {
    return textureLoad(tile_ranges, vec2<i32>(i32(i % TILE_CMD_LINE), i32(i / TILE_CMD_LINE)), 0).r;
}

// Signed distance to a line segment's stroke edge.
fn sd_segment(p: vec2<f32>, a: vec2<f32>, b: vec2<f32>, half_width: f32) -> f32 {
    let pa = p - a;
    let ba = b - a;
    let h = clamp(dot(pa, ba) / max(dot(ba, ba), 1e-6), 0.0, 1.0);
    return length(pa - ba * h) - half_width;
}

// Signed distance to a rounded, axis-aligned box.
fn sd_round_box(p: vec2<f32>, center: vec2<f32>, extent: vec2<f32>, corner: f32) -> f32 {
    let r = min(corner, min(extent.x, extent.y));
    let q = abs(p - center) - (extent - vec2(r));
    return length(max(q, vec2(0.0))) + min(max(q.x, q.y), 0.0) - r;
}

// Signed distance to a convex quad, tolerating either winding order.
fn sd_quad(p: vec2<f32>, v0: vec2<f32>, v1: vec2<f32>, v2: vec2<f32>, v3: vec2<f32>) -> f32 {
    var v = array<vec2<f32>, 4>(v0, v1, v2, v3);
    let w = sign((v1.x - v0.x) * (v2.y - v1.y) - (v1.y - v0.y) * (v2.x - v1.x));
    var d = -1e6;
    for (var i = 0u; i < 4u; i++) {
        let a = v[i];
        let b = v[(i + 1u) % 4u];
        let e = b - a;
        let n = vec2(e.y, -e.x) / max(length(e), 1e-6);
        d = max(d, w * dot(p - a, n));
    }
    return d;
}

// coverage maps a pixel-unit signed distance to [0, 1] with a one-pixel
// antialiasing ramp.
fn coverage(d: f32) -> f32 {
    return clamp(0.5 - d, 0.0, 1.0);
}
`

// wgslImage is the standard interpretation of shape type 6: sample a bound
// texture (or one layer of a bundle) into the command's bounding rectangle,
// modulated by the style color. Negative slots select placeholder colors.
const wgslImage = `
fn shape6(p: vec2<f32>, bounds: vec4<f32>, p0: vec4<f32>, p1: vec4<f32>, tint: vec4<f32>) -> vec4<f32> {
    if p.x < bounds.x || p.x > bounds.z || p.y < bounds.y || p.y > bounds.w {
        return vec4(0.0);
    }
    let uv = vec2(
        (p.x - bounds.x) / max(bounds.z - bounds.x, 1e-6),
        (bounds.w - p.y) / max(bounds.w - bounds.y, 1e-6),
    );
    let slot = i32(p0.x);
    let slice = i32(p0.y);
    var texel: vec4<f32>;
    if slot == -1 {
        texel = vec4(0.5, 0.5, 0.5, 1.0);
    } else if slot < 0 {
        texel = vec4(1.0, 0.0, 1.0, 1.0);
    } else if slot >= BUNDLE_BASE {
        switch slot - BUNDLE_BASE {
            case 0: { texel = textureSampleLevel(bundle0, samp, uv, slice, 0.0); }
            case 1: { texel = textureSampleLevel(bundle1, samp, uv, slice, 0.0); }
            case 2: { texel = textureSampleLevel(bundle2, samp, uv, slice, 0.0); }
            default: { texel = textureSampleLevel(bundle3, samp, uv, slice, 0.0); }
        }
    } else {
        switch slot - IMAGE_BASE {
            case 0: { texel = textureSampleLevel(image0, samp, uv, 0.0); }
            case 1: { texel = textureSampleLevel(image1, samp, uv, 0.0); }
            case 2: { texel = textureSampleLevel(image2, samp, uv, 0.0); }
            case 3: { texel = textureSampleLevel(image3, samp, uv, 0.0); }
            default: { texel = textureSampleLevel(image4, samp, uv, 0.0); }
        }
    }
    // Image texels are premultiplied; the tint is straight alpha.
    return texel * vec4(tint.rgb, 1.0) * tint.a;
}
`

// wgslGift is the variant interpretation of shape type 6: a rotated box with
// a ribbon cross and a phase-animated bow.
const wgslGift = `
fn shape6(p: vec2<f32>, bounds: vec4<f32>, p0: vec4<f32>, p1: vec4<f32>, tint: vec4<f32>) -> vec4<f32> {
    let center = p0.xy;
    let hs = p0.z;
    let phase = p0.w;
    let c = p1.x;
    let s = p1.y;
    // Into the gift's local frame.
    let rel = p - center;
    let q = vec2(c * rel.x + s * rel.y, -s * rel.x + c * rel.y);

    let body = sd_round_box(q, vec2(0.0), vec2(hs * 0.85), hs * 0.1);
    let ribbon = min(abs(q.x), abs(q.y)) - hs * 0.12;
    let wiggle = 0.8 + 0.2 * sin(phase);
    let bow_l = length(q - vec2(-hs * 0.3 * wiggle, hs * 0.9)) - hs * 0.25;
    let bow_r = length(q - vec2(hs * 0.3 * wiggle, hs * 0.9)) - hs * 0.25;
    let bow = min(bow_l, bow_r);

    let body_cov = coverage(body);
    let trim_cov = max(coverage(max(ribbon, body)), coverage(bow));

    let base = vec4(tint.rgb * tint.a, tint.a) * body_cov;
    let trim_a = tint.a * trim_cov;
    let trim = vec4(mix(tint.rgb, vec3(1.0), 0.6) * trim_a, trim_a);
    return trim + base * (1.0 - trim.a);
}
`

const wgslMain = `
struct VertexOutput {
    @builtin(position) position: vec4<f32>,
}

@vertex
fn vs_main(@builtin(vertex_index) ix: u32) -> VertexOutput {
    // Full-screen triangle strip.
    var out: VertexOutput;
    let x = f32(i32(ix & 1u) * 2 - 1);
    let y = f32(i32(ix >> 1u) * 2 - 1);
    out.position = vec4(x, y, 0.0, 1.0);
    return out;
}

@fragment
fn fs_main(@builtin(position) pos: vec4<f32>) -> @location(0) vec4<f32> {
    // Flip into the y-up space commands are encoded in.
    let p = vec2(pos.x, f32(config.target_height) - pos.y);
    let tx = u32(max(p.x, 0.0)) >> TILE_SIZE_LOG2;
    let ty = u32(max(p.y, 0.0)) >> TILE_SIZE_LOG2;
    if tx >= config.width_in_tiles || ty >= config.height_in_tiles {
        return vec4(0.0);
    }
    let tile = ty * config.width_in_tiles + tx;
    let start = tile_range(tile);
    let end = tile_range(tile + 1u);

    var acc = vec4(0.0);
    for (var i = start; i < end; i++) {
        let base = tile_cmd(i) * 4u;
        let head = cmd_texel(base);
        let bounds = cmd_texel(base + 1u);
        let p0 = cmd_texel(base + 2u);
        let p1 = cmd_texel(base + 3u);
        let kind = u32(head.x);
        let style0 = cmd_texel(STYLE_BASE + u32(head.y));
        let style1 = cmd_texel(STYLE_BASE + u32(head.y) + 1u);
        let line_width = style0.x;
        let corner = style0.y;
        let color = style1;

        var src = vec4(0.0);
        switch kind {
            case 1u: {
                let cov = coverage(sd_segment(p, p0.xy, p0.zw, line_width * 0.5));
                src = vec4(color.rgb * color.a, color.a) * cov;
            }
            case 2u: {
                let cov = coverage(sd_quad(p, p0.xy, p0.zw, p1.xy, p1.zw));
                src = vec4(color.rgb * color.a, color.a) * cov;
            }
            case 3u: {
                let center = (bounds.xy + bounds.zw) * 0.5;
                let extent = (bounds.zw - bounds.xy) * 0.5;
                let cov = coverage(sd_round_box(p, center, extent, corner));
                src = vec4(color.rgb * color.a, color.a) * cov;
            }
            case 4u: {
                // Bounds include the stroke padding; peel it off to recover
                // the rectangle the stroke is centered on.
                let pad = line_width * 0.5 + 1.0;
                let center = (bounds.xy + bounds.zw) * 0.5;
                let extent = (bounds.zw - bounds.xy) * 0.5 - vec2(pad);
                let d = abs(sd_round_box(p, center, extent, corner)) - line_width * 0.5;
                let cov = coverage(d);
                src = vec4(color.rgb * color.a, color.a) * cov;
            }
            case 5u: {
                let rel = p - p0.xy;
                let q = vec2(p1.x * rel.x + p1.y * rel.y, -p1.y * rel.x + p1.x * rel.y);
                let cov = coverage(sd_round_box(q, vec2(0.0), p0.zw, 0.0));
                src = vec4(color.rgb * color.a, color.a) * cov;
            }
            case 6u: {
                src = shape6(p, bounds, p0, p1, color);
            }
            default: {}
        }
        // Painter's order: later commands composite over earlier ones.
        acc = src + acc * (1.0 - src.a);
    }
    return acc;
}
`
