package bgcut

// Mask is a per-pixel foreground probability grid. Values stay in [0,1]
// after postprocessing and refinement; dimensions match the source image.
type Mask struct {
	Width  int
	Height int
	Data   []float32
}

func NewMask(width, height int) *Mask {
	return &Mask{
		Width:  width,
		Height: height,
		Data:   make([]float32, width*height),
	}
}

func (m *Mask) At(x, y int) float32 {
	return m.Data[y*m.Width+x]
}

func (m *Mask) Set(x, y int, v float32) {
	m.Data[y*m.Width+x] = v
}

func (m *Mask) Clone() *Mask {
	out := NewMask(m.Width, m.Height)
	copy(out.Data, m.Data)
	return out
}

// Clip clamps every value into [0,1] in place.
func (m *Mask) Clip() {
	for i, v := range m.Data {
		if v < 0 {
			m.Data[i] = 0
		} else if v > 1 {
			m.Data[i] = 1
		}
	}
}

// Resize returns a new mask scaled to newW x newH with bilinear sampling.
// Resampling happens on the float plane; an 8-bit image round-trip would
// quantize probabilities to 1/255 steps.
func (m *Mask) Resize(newW, newH int) *Mask {
	if newW == m.Width && newH == m.Height {
		return m.Clone()
	}
	dst := NewMask(newW, newH)

	xRatio := float64(m.Width) / float64(newW)
	yRatio := float64(m.Height) / float64(newH)

	for y := range newH {
		sy := yRatio * float64(y)
		y0 := int(sy)
		y1 := min(y0+1, m.Height-1)
		yLerp := float32(sy - float64(y0))

		for x := range newW {
			sx := xRatio * float64(x)
			x0 := int(sx)
			x1 := min(x0+1, m.Width-1)
			xLerp := float32(sx - float64(x0))

			p00 := m.At(x0, y0)
			p10 := m.At(x1, y0)
			p01 := m.At(x0, y1)
			p11 := m.At(x1, y1)

			top := p00 + (p10-p00)*xLerp
			bottom := p01 + (p11-p01)*xLerp
			dst.Data[y*newW+x] = top + (bottom-top)*yLerp
		}
	}
	return dst
}
