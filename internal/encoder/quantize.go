package encoder

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/soniakeys/quant/median"
)

// alphaCutoff: пиксели прозрачнее этого порога кодируются как прозрачные.
const alphaCutoff = 128

// TransparentColor is the palette entry used for transparent pixels. The
// GIF colour table stores it as white.
var TransparentColor = color.RGBA{R: 255, G: 255, B: 255, A: 0}

// Quantize converts frame to a paletted image. The palette is built by
// median cut over the opaque pixels sampled every stride pixels, plus
// TransparentColor when the frame has transparent pixels. Pixels map to
// the nearest palette entry without dithering, so the result depends only
// on the input pixels and stride.
func Quantize(frame *image.NRGBA, stride int) *image.Paletted {
	if stride < 1 {
		stride = 1
	}
	b := frame.Bounds()
	w, h := b.Dx(), b.Dy()

	hasTransparent := false
	for y := 0; y < h && !hasTransparent; y++ {
		row := frame.Pix[frame.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := 0; x < w; x++ {
			if row[x*4+3] < alphaCutoff {
				hasTransparent = true
				break
			}
		}
	}

	maxColors := 256
	if hasTransparent {
		maxColors = 255
	}

	samples := sampleOpaque(frame, stride)
	if samples == nil && stride > 1 {
		samples = sampleOpaque(frame, 1)
	}
	palette := buildPalette(samples, maxColors)

	transIndex := -1
	if hasTransparent || len(palette) == 0 {
		transIndex = len(palette)
		palette = append(palette, TransparentColor)
	}

	out := image.NewPaletted(image.Rect(0, 0, w, h), palette)
	cache := make(map[uint32]uint8)
	for y := 0; y < h; y++ {
		row := frame.Pix[frame.PixOffset(b.Min.X, b.Min.Y+y):]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < w; x++ {
			p := row[x*4 : x*4+4]
			if p[3] < alphaCutoff && transIndex >= 0 {
				dst[x] = uint8(transIndex)
				continue
			}
			rgb := uint32(p[0])<<16 | uint32(p[1])<<8 | uint32(p[2])
			idx, ok := cache[rgb]
			if !ok {
				idx = nearest(palette, transIndex, p[0], p[1], p[2])
				cache[rgb] = idx
			}
			dst[x] = idx
		}
	}
	return out
}

// sampleOpaque copies every stride-th opaque pixel into a one-row image
// with alpha forced to 255. It returns nil when nothing was sampled.
func sampleOpaque(frame *image.NRGBA, stride int) *image.NRGBA {
	b := frame.Bounds()
	w, h := b.Dx(), b.Dy()

	var pix []uint8
	for i := 0; i < w*h; i += stride {
		off := frame.PixOffset(b.Min.X+i%w, b.Min.Y+i/w)
		p := frame.Pix[off : off+4]
		if p[3] < alphaCutoff {
			continue
		}
		pix = append(pix, p[0], p[1], p[2], 0xff)
	}
	if len(pix) == 0 {
		return nil
	}
	n := len(pix) / 4
	return &image.NRGBA{Pix: pix, Stride: n * 4, Rect: image.Rect(0, 0, n, 1)}
}

// buildPalette runs median cut over samples and returns at most maxColors
// distinct opaque colours.
func buildPalette(samples *image.NRGBA, maxColors int) color.Palette {
	if samples == nil {
		return nil
	}

	var q draw.Quantizer = median.Quantizer(maxColors)
	raw := q.Quantize(make(color.Palette, 0, maxColors), samples)

	seen := make(map[color.RGBA]bool, len(raw))
	palette := make(color.Palette, 0, len(raw)+1)
	for _, c := range raw {
		rgba := color.RGBAModel.Convert(c).(color.RGBA)
		rgba.A = 0xff
		if seen[rgba] {
			continue
		}
		seen[rgba] = true
		palette = append(palette, rgba)
		if len(palette) == maxColors {
			break
		}
	}
	return palette
}

func nearest(palette color.Palette, skip int, r, g, b uint8) uint8 {
	best, bestDist := 0, -1
	for i, c := range palette {
		if i == skip {
			continue
		}
		pc := c.(color.RGBA)
		dr := int(pc.R) - int(r)
		dg := int(pc.G) - int(g)
		db := int(pc.B) - int(b)
		d := dr*dr + dg*dg + db*db
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
			if d == 0 {
				break
			}
		}
	}
	return uint8(best)
}
