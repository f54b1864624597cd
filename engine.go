package bgcut

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	ort "github.com/yalue/onnxruntime_go"
)

// Engine turns images into foreground probability masks:
// preprocess -> session run -> postprocess.
type Engine struct {
	spec     ModelSpec
	registry *Registry
	cache    *SessionCache
	pool     *tensorPool
}

// NewEngine builds an engine for one model contract. Passing nil for
// registry or cache uses fresh defaults; sharing a cache across engines
// shares the sessions.
func NewEngine(spec ModelSpec, registry *Registry, cache *SessionCache) *Engine {
	if registry == nil {
		registry = NewRegistry()
	}
	if cache == nil {
		cache = NewSessionCache()
	}
	return &Engine{
		spec:     spec,
		registry: registry,
		cache:    cache,
		pool:     newTensorPool(spec),
	}
}

func (e *Engine) Spec() ModelSpec { return e.spec }

// PredictMask runs one synchronous inference and returns a mask whose
// dimensions exactly equal the input image's. No retry and no provider
// fallback happens once the session is selected.
func (e *Engine) PredictMask(img image.Image, cfg Config) (*Mask, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidImage)
	}
	bounds := img.Bounds()
	origW, origH := bounds.Dx(), bounds.Dy()
	if origW <= 0 || origH <= 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}

	provider := e.registry.ResolveProvider(cfg.Provider)
	sess, err := e.cache.GetOrCreate(e.spec, cfg.ModelPath, provider)
	if err != nil {
		return nil, err
	}

	input := e.pool.getInput()
	output := e.pool.getOutput()
	defer func() {
		e.pool.putInput(input)
		e.pool.putOutput(output)
	}()

	resized := imaging.Resize(img, e.spec.InputSize, e.spec.InputSize, imaging.Linear)
	normalizeInto(resized, e.spec, input.GetData())

	if err := sess.Run([]ort.Value{input}, []ort.Value{output}); err != nil {
		return nil, err
	}

	return maskFromOutput(output.GetData(), e.spec, origW, origH), nil
}

// normalizeInto scales the resized frame to [0,1], normalizes each channel
// with the declared mean/std and writes it out in the declared layout with a
// batch dimension of one.
func normalizeInto(n *image.NRGBA, spec ModelSpec, dst []float32) {
	size := spec.InputSize
	mean, std := spec.Mean, spec.Std
	pix := n.Pix
	stride := n.Stride

	for y := range size {
		row := pix[y*stride : y*stride+size*4]
		for x := range size {
			base := x * 4
			r := (float32(row[base+0])/255.0 - mean[0]) / std[0]
			g := (float32(row[base+1])/255.0 - mean[1]) / std[1]
			b := (float32(row[base+2])/255.0 - mean[2]) / std[2]
			if spec.ChannelsFirst {
				dst[(0*size+y)*size+x] = r
				dst[(1*size+y)*size+x] = g
				dst[(2*size+y)*size+x] = b
			} else {
				i := (y*size + x) * 3
				dst[i+0] = r
				dst[i+1] = g
				dst[i+2] = b
			}
		}
	}
}

// maskFromOutput selects the primary output plane, applies the declared
// activation, clips to [0,1] and resizes back to the original dimensions.
func maskFromOutput(data []float32, spec ModelSpec, origW, origH int) *Mask {
	size := spec.InputSize
	m := NewMask(size, size)
	for i := range m.Data {
		v := data[i]
		if spec.ApplySigmoid {
			v = sigmoid(v)
		}
		m.Data[i] = clamp01(v)
	}
	if size == origW && size == origH {
		return m
	}
	return m.Resize(origW, origH)
}

func sigmoid(v float32) float32 {
	return 1.0 / (1.0 + float32(math.Exp(float64(-v))))
}
