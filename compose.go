package bgcut

import (
	"fmt"
	"image"
	"image/color"
	"runtime"
	"sync"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"
)

func checkMask(img image.Image, mask *Mask) error {
	b := img.Bounds()
	if b.Dx() != mask.Width || b.Dy() != mask.Height {
		return fmt.Errorf("%w: mask %dx%d does not match image %dx%d",
			ErrInvalidImage, mask.Width, mask.Height, b.Dx(), b.Dy())
	}
	return nil
}

// parallelRows runs fn over [0,h) split into one chunk per CPU.
func parallelRows(h int, fn func(y0, y1 int)) {
	numCPU := runtime.NumCPU()
	chunk := (h + numCPU - 1) / numCPU
	var wg sync.WaitGroup
	for i := range numCPU {
		y0 := i * chunk
		y1 := min(y0+chunk, h)
		if y0 >= y1 {
			continue
		}
		wg.Go(func() {
			fn(y0, y1)
		})
	}
	wg.Wait()
}

// AlphaCompose keeps the RGB channels untouched and writes the mask into the
// alpha channel, producing the transparent cutout.
func AlphaCompose(img image.Image, mask *Mask) (*image.NRGBA, error) {
	if err := checkMask(img, mask); err != nil {
		return nil, err
	}
	src := imaging.Clone(img)
	w, h := mask.Width, mask.Height
	out := image.NewNRGBA(image.Rect(0, 0, w, h))

	parallelRows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			si := y * src.Stride
			oi := y * out.Stride
			for x := range w {
				out.Pix[oi+0] = src.Pix[si+0]
				out.Pix[oi+1] = src.Pix[si+1]
				out.Pix[oi+2] = src.Pix[si+2]
				out.Pix[oi+3] = uint8(clamp01(mask.At(x, y))*255 + 0.5)
				si += 4
				oi += 4
			}
		}
	})
	return out, nil
}

// ReplaceWithColor blends the foreground over a solid color:
// out = rgb*mask + color*(1-mask). The result is fully opaque.
func ReplaceWithColor(img image.Image, mask *Mask, bg color.NRGBA) (*image.NRGBA, error) {
	if err := checkMask(img, mask); err != nil {
		return nil, err
	}
	src := imaging.Clone(img)
	w, h := mask.Width, mask.Height
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	br, bgc, bb := float32(bg.R), float32(bg.G), float32(bg.B)

	parallelRows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			si := y * src.Stride
			oi := y * out.Stride
			for x := range w {
				a := clamp01(mask.At(x, y))
				out.Pix[oi+0] = uint8(a*float32(src.Pix[si+0]) + (1-a)*br + 0.5)
				out.Pix[oi+1] = uint8(a*float32(src.Pix[si+1]) + (1-a)*bgc + 0.5)
				out.Pix[oi+2] = uint8(a*float32(src.Pix[si+2]) + (1-a)*bb + 0.5)
				out.Pix[oi+3] = 255
				si += 4
				oi += 4
			}
		}
	})
	return out, nil
}

// ReplaceWithImage resizes bg to the source's exact dimensions with
// high-quality resampling, then applies the same blend formula.
func ReplaceWithImage(img image.Image, mask *Mask, bg image.Image) (*image.NRGBA, error) {
	if err := checkMask(img, mask); err != nil {
		return nil, err
	}
	if bg == nil || bg.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty background image", ErrInvalidImage)
	}
	src := imaging.Clone(img)
	w, h := mask.Width, mask.Height

	resized := imaging.Clone(bg)
	if resized.Bounds().Dx() != w || resized.Bounds().Dy() != h {
		scaled := image.NewNRGBA(image.Rect(0, 0, w, h))
		xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), resized, resized.Bounds(), xdraw.Src, nil)
		resized = scaled
	}
	return blendPixels(src, resized, mask), nil
}

// ReplaceWithBlur blends the sharp foreground over a blurred copy of the
// image itself. strength is the blur kernel size; even values are bumped to
// the next odd one.
func ReplaceWithBlur(img image.Image, mask *Mask, strength int) (*image.NRGBA, error) {
	if err := checkMask(img, mask); err != nil {
		return nil, err
	}
	if strength < 1 {
		strength = 1
	}
	if strength%2 == 0 {
		strength++
	}
	src := imaging.Clone(img)

	// Gaussian sigma derived from the kernel size.
	sigma := float64(strength) / 3.0
	blurred := imaging.Blur(src, sigma)

	return blendPixels(src, blurred, mask), nil
}

// blendPixels computes out = src*mask + bg*(1-mask) per channel; src and bg
// must already share the mask's dimensions. Output is fully opaque.
func blendPixels(src, bg *image.NRGBA, mask *Mask) *image.NRGBA {
	w, h := mask.Width, mask.Height
	out := image.NewNRGBA(image.Rect(0, 0, w, h))

	parallelRows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			si := y * src.Stride
			bi := y * bg.Stride
			oi := y * out.Stride
			for x := range w {
				a := clamp01(mask.At(x, y))
				out.Pix[oi+0] = uint8(a*float32(src.Pix[si+0]) + (1-a)*float32(bg.Pix[bi+0]) + 0.5)
				out.Pix[oi+1] = uint8(a*float32(src.Pix[si+1]) + (1-a)*float32(bg.Pix[bi+1]) + 0.5)
				out.Pix[oi+2] = uint8(a*float32(src.Pix[si+2]) + (1-a)*float32(bg.Pix[bi+2]) + 0.5)
				out.Pix[oi+3] = 255
				si += 4
				bi += 4
				oi += 4
			}
		}
	})
	return out
}
