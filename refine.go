package bgcut

var refinePool = newBlurBufferPool()

// RefineOptions control the fixed smooth -> threshold -> feather sequence.
// Smooth denoises the soft mask before any cutoff; feather softens the
// cutoff's edge afterward.
type RefineOptions struct {
	// Threshold binarizes the mask when set (value >= threshold -> 1).
	// Nil keeps the mask soft for the default transparent mode.
	Threshold *float32

	// SmoothRadius > 0 low-pass blurs the mask before thresholding.
	SmoothRadius int

	// FeatherRadius > 0 blurs the post-threshold boundary back into a
	// graded alpha ramp.
	FeatherRadius int
}

// Refine applies the refinement sequence and returns a new mask. The input
// is never modified; output values are always in [0,1] even when the raw
// model output is unbounded.
func Refine(m *Mask, opts RefineOptions) *Mask {
	out := m.Clone()
	out.Clip()

	if opts.SmoothRadius > 0 {
		boxBlur(out, opts.SmoothRadius)
	}

	if opts.Threshold != nil {
		t := *opts.Threshold
		for i, v := range out.Data {
			if v >= t {
				out.Data[i] = 1.0
			} else {
				out.Data[i] = 0.0
			}
		}
	}

	if opts.FeatherRadius > 0 {
		boxBlur(out, opts.FeatherRadius)
	}

	return out
}

// boxBlur runs a separable sliding-window blur in place, window 2*radius+1.
// Accumulates in float64 so long rows don't drift.
func boxBlur(m *Mask, radius int) {
	w, h := m.Width, m.Height
	if w == 0 || h == 0 {
		return
	}
	window := float64(radius*2 + 1)

	buf := refinePool.get(w * h)
	defer refinePool.put(buf)
	hPass := buf.hPass
	src := m.Data

	for y := range h {
		rowOffset := y * w
		sum := 0.0
		for k := -radius; k <= radius; k++ {
			xi := clamp(k, 0, w-1)
			sum += float64(src[rowOffset+xi])
		}
		hPass[rowOffset] = float32(sum / window)

		for x := 1; x < w; x++ {
			out := min(x+radius, w-1)
			in := max(x-radius-1, 0)
			sum += float64(src[rowOffset+out]) - float64(src[rowOffset+in])
			hPass[rowOffset+x] = float32(sum / window)
		}
	}

	for x := range w {
		sum := 0.0
		for k := -radius; k <= radius; k++ {
			yi := clamp(k, 0, h-1)
			sum += float64(hPass[yi*w+x])
		}
		src[x] = float32(sum / window)

		for y := 1; y < h; y++ {
			out := min(y+radius, h-1)
			in := max(y-radius-1, 0)
			sum += float64(hPass[out*w+x]) - float64(hPass[in*w+x])
			src[y*w+x] = float32(sum / window)
		}
	}
}

// OtsuThreshold picks a cutoff for a [0,1] mask by maximizing between-class
// variance over a 256-bin histogram. Used when the caller wants an automatic
// threshold instead of a fixed one.
func OtsuThreshold(data []float32) float32 {
	hist := make([]int, 256)
	for _, v := range data {
		val := int(clamp01(v) * 255.0)
		hist[val]++
	}

	total := len(data)
	sum := 0
	for t := range 255 {
		sum += t * hist[t]
	}

	sumB, wB, wF, varMax, threshold := 0, 0, 0, 0.0, 0
	for t := range 255 {
		wB += hist[t]
		if wB == 0 {
			continue
		}
		wF = total - wB
		if wF == 0 {
			break
		}
		sumB += t * hist[t]
		mB := float64(sumB) / float64(wB)
		mF := float64(sum-sumB) / float64(wF)
		varBetween := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if varBetween > varMax {
			varMax = varBetween
			threshold = t
		}
	}

	// Refine binarizes with >=, so return the first bin above the
	// background class rather than its last bin.
	return float32(threshold+1) / 255.0
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
