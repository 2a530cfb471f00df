package renderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"golang.org/x/image/draw"

	"github.com/ivlev/png2gif/internal/system"
)

// TransparentWhite заполняет поля при вписывании кадра.
var TransparentWhite = color.NRGBA{R: 255, G: 255, B: 255, A: 0}

// Normalize decodes data and fits it inside a width×height box, preserving
// aspect ratio and centring it. Uncovered area is filled with bg. The
// returned canvas comes from the system pool; release it with system.PutImage
// once it has been consumed.
func Normalize(data []byte, width, height int, bg color.NRGBA) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	dst := system.GetImage(image.Rect(0, 0, width, height))
	Fill(dst, bg)

	sb := src.Bounds()
	if sb.Empty() {
		return dst, nil
	}
	target := ContainRect(sb.Dx(), sb.Dy(), width, height)

	if target.Dx() == sb.Dx() && target.Dy() == sb.Dy() {
		draw.Draw(dst, target, src, sb.Min, draw.Src)
		return dst, nil
	}

	draw.CatmullRom.Scale(dst, target, src, sb, draw.Src, nil)
	return dst, nil
}

// ContainRect returns the placement of a srcW×srcH image scaled to fit
// inside boxW×boxH with its aspect ratio kept.
func ContainRect(srcW, srcH, boxW, boxH int) image.Rectangle {
	scale := math.Min(float64(boxW)/float64(srcW), float64(boxH)/float64(srcH))

	w := int(math.Round(float64(srcW) * scale))
	h := int(math.Round(float64(srcH) * scale))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	if w > boxW {
		w = boxW
	}
	if h > boxH {
		h = boxH
	}

	left := (boxW - w) / 2
	top := (boxH - h) / 2
	return image.Rect(left, top, left+w, top+h)
}

// Fill paints every pixel of img with c.
func Fill(img *image.NRGBA, c color.NRGBA) {
	pix := img.Pix
	if len(pix) < 4 {
		return
	}
	pix[0], pix[1], pix[2], pix[3] = c.R, c.G, c.B, c.A
	for filled := 4; filled < len(pix); filled *= 2 {
		copy(pix[filled:], pix[:filled])
	}
}
