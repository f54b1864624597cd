package bgcut

import (
	"image"

	"github.com/sirupsen/logrus"
)

// MaskPredictor produces a foreground mask for an image. Engine is the real
// implementation.
type MaskPredictor interface {
	PredictMask(img image.Image, cfg Config) (*Mask, error)
}

// Pipeline runs the single-image chain: predict -> refine -> compose.
type Pipeline struct {
	predictor MaskPredictor
	log       *logrus.Entry
}

func NewPipeline(predictor MaskPredictor) *Pipeline {
	return &Pipeline{
		predictor: predictor,
		log:       logrus.WithField("component", "pipeline"),
	}
}

// Process produces the configured artifact for one image. The first error
// aborts the call; there is never a partial result.
func (p *Pipeline) Process(img image.Image, cfg Config) (*image.NRGBA, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	raw, err := p.predictor.PredictMask(img, cfg)
	if err != nil {
		return nil, err
	}

	threshold := cfg.Threshold
	if threshold == nil && cfg.AutoThreshold {
		t := OtsuThreshold(raw.Data)
		threshold = &t
	}

	refined := Refine(raw, RefineOptions{
		Threshold:     threshold,
		SmoothRadius:  cfg.SmoothRadius,
		FeatherRadius: cfg.FeatherRadius,
	})

	var out *image.NRGBA
	switch cfg.Output {
	case OutputColorBackground:
		out, err = ReplaceWithColor(img, refined, cfg.BackgroundColor)
	case OutputImageBackground:
		var bg image.Image
		bg, err = LoadImage(cfg.BackgroundPath)
		if err == nil {
			out, err = ReplaceWithImage(img, refined, bg)
		}
	case OutputBlurBackground:
		out, err = ReplaceWithBlur(img, refined, cfg.BlurStrength)
	case OutputMaskGrayscale:
		out = ExportMask(refined, MaskGrayscale, 0)
	case OutputMaskBinary:
		t := float32(0.5)
		if cfg.Threshold != nil {
			t = *cfg.Threshold
		}
		out = ExportMask(refined, MaskBinary, t)
	case OutputMaskAlpha:
		out = ExportMask(refined, MaskAlphaOnly, 0)
	default:
		out, err = AlphaCompose(img, refined)
	}
	if err != nil {
		return nil, err
	}

	if cfg.AutoCrop {
		out = AutoCrop(out, cfg.AlphaCutoff)
	}
	return out, nil
}

// ProcessFile runs the full chain from one path to another:
// load -> predict -> refine -> compose -> save.
func (p *Pipeline) ProcessFile(src, dst string, cfg Config) error {
	img, err := LoadImage(src)
	if err != nil {
		return err
	}
	out, err := p.Process(img, cfg)
	if err != nil {
		return err
	}
	return SaveImage(out, dst)
}

// AsyncResult is delivered once by ProcessAsync.
type AsyncResult struct {
	Image *image.NRGBA
	Err   error
}

// ProcessAsync offloads Process so interactive callers stay responsive while
// inference runs. The returned channel is buffered and delivers exactly one
// result.
func (p *Pipeline) ProcessAsync(img image.Image, cfg Config) <-chan AsyncResult {
	ch := make(chan AsyncResult, 1)
	go func() {
		out, err := p.Process(img, cfg)
		ch <- AsyncResult{Image: out, Err: err}
		close(ch)
	}()
	return ch
}
