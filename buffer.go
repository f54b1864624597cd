package bgcut

import "sync"

type blurBufferPool struct {
	pool sync.Pool
}

func newBlurBufferPool() *blurBufferPool {
	return &blurBufferPool{
		pool: sync.Pool{
			New: func() any {
				return &blurBuffer{}
			},
		},
	}
}

// blurBuffer holds the scratch plane for the horizontal blur pass.
type blurBuffer struct {
	hPass []float32
}

func (p *blurBufferPool) get(size int) *blurBuffer {
	buf := p.pool.Get().(*blurBuffer)
	if cap(buf.hPass) < size {
		buf.hPass = make([]float32, size)
	} else {
		buf.hPass = buf.hPass[:size]
	}
	return buf
}

func (p *blurBufferPool) put(buf *blurBuffer) {
	p.pool.Put(buf)
}
