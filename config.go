package bgcut

import (
	"fmt"
	"image/color"
)

// OutputMode selects the artifact produced by the pipeline.
type OutputMode int

const (
	// OutputCutout is the default transparent RGBA cutout.
	OutputCutout OutputMode = iota
	OutputColorBackground
	OutputImageBackground
	OutputBlurBackground
	OutputMaskGrayscale
	OutputMaskBinary
	OutputMaskAlpha
)

// Config is a value struct passed into every call. There is no hidden global
// state besides the session cache.
type Config struct {
	ModelPath string

	// Provider preference; empty picks the best available backend.
	Provider Provider

	// Threshold binarizes the refined mask when set. Nil keeps the mask
	// soft unless AutoThreshold is on, which picks a cutoff via Otsu.
	Threshold     *float32
	AutoThreshold bool

	SmoothRadius  int
	FeatherRadius int

	// BlurStrength is the background blur kernel size, odd and >= 1.
	BlurStrength int

	AutoCrop    bool
	AlphaCutoff uint8

	Output OutputMode

	// BackgroundColor backs OutputColorBackground; BackgroundPath backs
	// OutputImageBackground.
	BackgroundColor color.NRGBA
	BackgroundPath  string

	SaveFolder string
	MaxWorkers int
}

// DefaultConfig mirrors the defaults of the desktop presets.
func DefaultConfig(modelPath string) Config {
	return Config{
		ModelPath:       modelPath,
		Threshold:       Float32(0.5),
		SmoothRadius:    2,
		FeatherRadius:   1,
		BlurStrength:    51,
		AlphaCutoff:     10,
		BackgroundColor: color.NRGBA{R: 255, G: 255, B: 255, A: 255},
		MaxWorkers:      4,
	}
}

// Float32 is a convenience for optional threshold fields.
func Float32(v float32) *float32 { return &v }

func (c Config) Validate() error {
	if c.ModelPath == "" {
		return fmt.Errorf("model path is required")
	}
	if c.Threshold != nil && (*c.Threshold < 0 || *c.Threshold > 1) {
		return fmt.Errorf("threshold must be in [0,1], got %v", *c.Threshold)
	}
	if c.SmoothRadius < 0 {
		return fmt.Errorf("smooth radius must be >= 0, got %d", c.SmoothRadius)
	}
	if c.FeatherRadius < 0 {
		return fmt.Errorf("feather radius must be >= 0, got %d", c.FeatherRadius)
	}
	if c.Output == OutputBlurBackground {
		if c.BlurStrength < 1 || c.BlurStrength%2 == 0 {
			return fmt.Errorf("blur strength must be odd and >= 1, got %d", c.BlurStrength)
		}
	}
	if c.Output == OutputImageBackground && c.BackgroundPath == "" {
		return fmt.Errorf("background path is required for image background mode")
	}
	if c.MaxWorkers < 0 {
		return fmt.Errorf("max workers must be >= 0, got %d", c.MaxWorkers)
	}
	return nil
}
