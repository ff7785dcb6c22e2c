// Package decoder provides format-specific image decoders and the
// header-only metadata probe used before any full pixel decode.
package decoder

import (
	"image"
	"image/color"

	"github.com/cobalthq/respimg/core"
)

func colorSpaceOf(img image.Image) core.ColorSpace {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return core.ColorSpaceGray
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64:
		return core.ColorSpaceRGBA
	case *image.CMYK:
		return core.ColorSpaceCMYK
	}
	return core.ColorSpaceRGB
}

func hasAlpha(img image.Image) bool {
	switch img.(type) {
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64:
		return true
	case *image.Paletted:
		return paletteHasAlpha(img.(*image.Paletted).Palette)
	}
	return false
}

func paletteHasAlpha(p color.Palette) bool {
	for _, c := range p {
		if _, _, _, a := c.RGBA(); a < 0xffff {
			return true
		}
	}
	return false
}

func modelColorSpace(m color.Model) core.ColorSpace {
	switch m {
	case color.GrayModel, color.Gray16Model:
		return core.ColorSpaceGray
	case color.RGBAModel, color.NRGBAModel, color.RGBA64Model, color.NRGBA64Model:
		return core.ColorSpaceRGBA
	case color.CMYKModel:
		return core.ColorSpaceCMYK
	}
	if _, ok := m.(color.Palette); ok {
		return core.ColorSpaceRGBA
	}
	return core.ColorSpaceRGB
}

func modelHasAlpha(m color.Model) bool {
	switch m {
	case color.RGBAModel, color.NRGBAModel, color.RGBA64Model, color.NRGBA64Model:
		return true
	}
	if p, ok := m.(color.Palette); ok {
		return paletteHasAlpha(p)
	}
	return false
}
