package bgcut

import "image"

// MaskExportMode selects how a mask is rendered for standalone export.
type MaskExportMode int

const (
	// MaskGrayscale renders probabilities as gray levels, fully opaque.
	MaskGrayscale MaskExportMode = iota
	// MaskBinary renders a thresholded black/white mask, fully opaque.
	MaskBinary
	// MaskAlphaOnly renders white with the mask in the alpha channel.
	MaskAlphaOnly
)

// ExportMask renders a mask as an RGBA image. threshold only matters for
// MaskBinary.
func ExportMask(m *Mask, mode MaskExportMode, threshold float32) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, m.Width, m.Height))

	for y := range m.Height {
		oi := y * out.Stride
		for x := range m.Width {
			v := clamp01(m.At(x, y))
			switch mode {
			case MaskBinary:
				g := uint8(0)
				if v >= threshold {
					g = 255
				}
				out.Pix[oi+0] = g
				out.Pix[oi+1] = g
				out.Pix[oi+2] = g
				out.Pix[oi+3] = 255
			case MaskAlphaOnly:
				out.Pix[oi+0] = 255
				out.Pix[oi+1] = 255
				out.Pix[oi+2] = 255
				out.Pix[oi+3] = uint8(v*255 + 0.5)
			default:
				g := uint8(v*255 + 0.5)
				out.Pix[oi+0] = g
				out.Pix[oi+1] = g
				out.Pix[oi+2] = g
				out.Pix[oi+3] = 255
			}
			oi += 4
		}
	}
	return out
}
