package bgcut

import "testing"

func TestBlurBufferPool(t *testing.T) {
	p := newBlurBufferPool()

	t.Run("SizedOnFirstGet", func(t *testing.T) {
		buf := p.get(128)
		if len(buf.hPass) != 128 {
			t.Errorf("len = %d; want 128", len(buf.hPass))
		}
		p.put(buf)
	})

	t.Run("GrowsWhenTooSmall", func(t *testing.T) {
		buf := p.get(64)
		p.put(buf)
		buf = p.get(256)
		if len(buf.hPass) != 256 {
			t.Errorf("len = %d; want 256", len(buf.hPass))
		}
		p.put(buf)
	})

	t.Run("ReslicesWhenLargeEnough", func(t *testing.T) {
		buf := p.get(256)
		backing := cap(buf.hPass)
		p.put(buf)

		buf = p.get(32)
		if len(buf.hPass) != 32 {
			t.Errorf("len = %d; want 32", len(buf.hPass))
		}
		if cap(buf.hPass) < backing && cap(buf.hPass) < 32 {
			t.Errorf("unexpected reallocation to a smaller buffer")
		}
		p.put(buf)
	})

	t.Run("ZeroSize", func(t *testing.T) {
		buf := p.get(0)
		if len(buf.hPass) != 0 {
			t.Errorf("len = %d; want 0", len(buf.hPass))
		}
		p.put(buf)
	})
}
