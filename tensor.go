package bgcut

import (
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// tensorPool recycles input/output tensors sized from the model contract.
// Dynamic-size models still pool at the declared working resolution.
type tensorPool struct {
	inputPool  sync.Pool
	outputPool sync.Pool
}

func newTensorPool(spec ModelSpec) *tensorPool {
	return &tensorPool{
		inputPool: sync.Pool{
			New: func() any {
				t, _ := ort.NewEmptyTensor[float32](spec.inputShape())
				return t
			},
		},
		outputPool: sync.Pool{
			New: func() any {
				t, _ := ort.NewEmptyTensor[float32](spec.outputShape())
				return t
			},
		},
	}
}

func (p *tensorPool) getInput() *ort.Tensor[float32] {
	return p.inputPool.Get().(*ort.Tensor[float32])
}

func (p *tensorPool) putInput(t *ort.Tensor[float32]) {
	p.inputPool.Put(t)
}

func (p *tensorPool) getOutput() *ort.Tensor[float32] {
	return p.outputPool.Get().(*ort.Tensor[float32])
}

func (p *tensorPool) putOutput(t *ort.Tensor[float32]) {
	p.outputPool.Put(t)
}
