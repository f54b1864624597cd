package bgcut

import ort "github.com/yalue/onnxruntime_go"

// ImageNet statistics, shared by both bundled model contracts.
var (
	imagenetMean = [3]float32{0.485, 0.456, 0.406}
	imagenetStd  = [3]float32{0.229, 0.224, 0.225}
)

// ModelSpec declares the contract of a segmentation model. Nothing here is
// auto-detected from the model binary: the tensor names, input resolution,
// layout, normalization and activation are stated up front and the engine
// trusts them.
type ModelSpec struct {
	Name       string
	InputName  string
	OutputName string

	// InputSize is the square working resolution. Models exported with
	// dynamic spatial axes still run at this declared size.
	InputSize   int
	DynamicSize bool

	// ChannelsFirst selects NCHW layout; otherwise NHWC.
	ChannelsFirst bool

	Mean [3]float32
	Std  [3]float32

	// ApplySigmoid is set for models that emit logits instead of
	// probabilities.
	ApplySigmoid bool
}

// U2NetP is the contract for the lightweight U2-Net portrait model.
func U2NetP() ModelSpec {
	return ModelSpec{
		Name:          "u2netp",
		InputName:     "input.1",
		OutputName:    "1959",
		InputSize:     320,
		ChannelsFirst: true,
		Mean:          imagenetMean,
		Std:           imagenetStd,
		ApplySigmoid:  true,
	}
}

// BiRefNet is the contract for the BiRefNet high-resolution matting model.
func BiRefNet() ModelSpec {
	return ModelSpec{
		Name:          "birefnet",
		InputName:     "input_image",
		OutputName:    "output_image",
		InputSize:     1024,
		DynamicSize:   true,
		ChannelsFirst: true,
		Mean:          imagenetMean,
		Std:           imagenetStd,
		ApplySigmoid:  true,
	}
}

func (m ModelSpec) inputShape() ort.Shape {
	n := int64(m.InputSize)
	if m.ChannelsFirst {
		return ort.NewShape(1, 3, n, n)
	}
	return ort.NewShape(1, n, n, 3)
}

func (m ModelSpec) outputShape() ort.Shape {
	n := int64(m.InputSize)
	return ort.NewShape(1, 1, n, n)
}
