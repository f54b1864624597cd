package bgcut

import (
	"image"

	"github.com/disintegration/imaging"
)

// CropConfig configures the behavior of the auto-crop.
type CropConfig struct {
	// Margin is the margin in pixels kept around the detected content.
	Margin int
	// MarginPercent is the margin as a fraction of the content dimensions
	// (overrides Margin if > 0).
	MarginPercent float64
	// AlphaCutoff is the alpha value a pixel must exceed to count as
	// content.
	AlphaCutoff uint8
	// SquareCrop expands the shorter side so the crop comes out square.
	SquareCrop bool
}

type objectBounds struct {
	MinX, MinY, MaxX, MaxY int
	Width, Height          int
}

func alphaBounds(img *image.NRGBA, cutoff uint8) (objectBounds, bool) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	minX, minY := w, h
	maxX, maxY := -1, -1

	for y := range h {
		row := y * img.Stride
		for x := range w {
			if img.Pix[row+x*4+3] > cutoff {
				if x < minX {
					minX = x
				}
				if x > maxX {
					maxX = x
				}
				if y < minY {
					minY = y
				}
				if y > maxY {
					maxY = y
				}
			}
		}
	}

	if maxX < 0 {
		return objectBounds{}, false
	}
	return objectBounds{
		MinX:   minX,
		MinY:   minY,
		MaxX:   maxX,
		MaxY:   maxY,
		Width:  maxX - minX + 1,
		Height: maxY - minY + 1,
	}, true
}

// AutoCrop crops to the minimal bounding box of pixels whose alpha exceeds
// cutoff. When no pixel exceeds it, the input is returned unchanged, never a
// degenerate empty image.
func AutoCrop(img *image.NRGBA, cutoff uint8) *image.NRGBA {
	return AutoCropWithConfig(img, &CropConfig{AlphaCutoff: cutoff})
}

// AutoCropWithConfig is AutoCrop with margin and aspect options.
func AutoCropWithConfig(img *image.NRGBA, config *CropConfig) *image.NRGBA {
	if config == nil {
		config = &CropConfig{AlphaCutoff: 10}
	}

	bounds, found := alphaBounds(img, config.AlphaCutoff)
	if !found {
		return img
	}

	origW, origH := img.Bounds().Dx(), img.Bounds().Dy()

	margin := config.Margin
	if config.MarginPercent > 0 {
		marginX := int(float64(bounds.Width) * config.MarginPercent)
		marginY := int(float64(bounds.Height) * config.MarginPercent)
		margin = max(marginX, marginY)
	}

	cropMinX := max(0, bounds.MinX-margin)
	cropMinY := max(0, bounds.MinY-margin)
	cropMaxX := min(origW, bounds.MaxX+1+margin)
	cropMaxY := min(origH, bounds.MaxY+1+margin)

	if config.SquareCrop {
		cropW := cropMaxX - cropMinX
		cropH := cropMaxY - cropMinY
		if cropW > cropH {
			diff := cropW - cropH
			cropMinY = max(0, cropMinY-diff/2)
			cropMaxY = min(origH, cropMaxY+diff/2)
		} else if cropH > cropW {
			diff := cropH - cropW
			cropMinX = max(0, cropMinX-diff/2)
			cropMaxX = min(origW, cropMaxX+diff/2)
		}
	}

	rect := image.Rect(cropMinX, cropMinY, cropMaxX, cropMaxY)
	return imaging.Crop(img, rect)
}

// CropBounds reports the crop rectangle without cropping. An image with no
// content above the cutoff reports its full bounds.
func CropBounds(img *image.NRGBA, cutoff uint8) image.Rectangle {
	bounds, found := alphaBounds(img, cutoff)
	if !found {
		return image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy())
	}
	return image.Rect(bounds.MinX, bounds.MinY, bounds.MaxX+1, bounds.MaxY+1)
}
