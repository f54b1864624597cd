package bgcut

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
)

// fakePredictor returns a canned mask or error, replacing the ONNX engine.
type fakePredictor struct {
	mask *Mask
	err  error
}

func (f *fakePredictor) PredictMask(img image.Image, cfg Config) (*Mask, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.mask.Clone(), nil
}

// centeredMask builds a w x h mask with fg inside the central square and bg
// everywhere else.
func centeredMask(w, h int, fg, bg float32) *Mask {
	m := NewMask(w, h)
	for y := range h {
		for x := range w {
			if x >= w/4 && x < 3*w/4 && y >= h/4 && y < 3*h/4 {
				m.Set(x, y, fg)
			} else {
				m.Set(x, y, bg)
			}
		}
	}
	return m
}

func plainConfig() Config {
	cfg := DefaultConfig("model.onnx")
	cfg.Threshold = Float32(0.5)
	cfg.SmoothRadius = 0
	cfg.FeatherRadius = 0
	return cfg
}

func TestPipelineProcessCutout(t *testing.T) {
	src := testImage(40, 40)
	p := NewPipeline(&fakePredictor{mask: centeredMask(40, 40, 0.9, 0.1)})

	out, err := p.Process(src, plainConfig())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if got := out.NRGBAAt(20, 20).A; got != 255 {
		t.Errorf("foreground alpha = %d; want 255", got)
	}
	if got := out.NRGBAAt(2, 2).A; got != 0 {
		t.Errorf("background alpha = %d; want 0", got)
	}
	want := src.NRGBAAt(20, 20)
	got := out.NRGBAAt(20, 20)
	if got.R != want.R || got.G != want.G || got.B != want.B {
		t.Errorf("foreground RGB changed: got %v want %v", got, want)
	}
}

func TestPipelineProcessSoftMask(t *testing.T) {
	p := NewPipeline(&fakePredictor{mask: uniformMask(8, 8, 0.6)})

	cfg := plainConfig()
	cfg.Threshold = nil

	out, err := p.Process(testImage(8, 8), cfg)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if got := out.NRGBAAt(4, 4).A; got != 153 {
		t.Errorf("alpha = %d; want 153 for a soft 0.6 mask", got)
	}
}

func TestPipelineAutoThreshold(t *testing.T) {
	// Bimodal mask: Otsu should land between the two modes and binarize.
	p := NewPipeline(&fakePredictor{mask: centeredMask(32, 32, 0.8, 0.2)})

	cfg := plainConfig()
	cfg.Threshold = nil
	cfg.AutoThreshold = true

	out, err := p.Process(testImage(32, 32), cfg)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if got := out.NRGBAAt(16, 16).A; got != 255 {
		t.Errorf("foreground alpha = %d; want 255 after auto threshold", got)
	}
	if got := out.NRGBAAt(1, 1).A; got != 0 {
		t.Errorf("background alpha = %d; want 0 after auto threshold", got)
	}
}

func TestPipelineColorBackground(t *testing.T) {
	p := NewPipeline(&fakePredictor{mask: centeredMask(20, 20, 1.0, 0.0)})

	cfg := plainConfig()
	cfg.Output = OutputColorBackground
	cfg.BackgroundColor = color.NRGBA{R: 0, G: 255, B: 0, A: 255}

	out, err := p.Process(testImage(20, 20), cfg)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	corner := out.NRGBAAt(1, 1)
	if corner.R != 0 || corner.G != 255 || corner.B != 0 || corner.A != 255 {
		t.Errorf("background pixel = %v; want solid green", corner)
	}
}

func TestPipelineMaskBinaryOutput(t *testing.T) {
	p := NewPipeline(&fakePredictor{mask: centeredMask(16, 16, 0.9, 0.1)})

	cfg := plainConfig()
	cfg.Threshold = nil
	cfg.Output = OutputMaskBinary

	out, err := p.Process(testImage(16, 16), cfg)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if got := out.NRGBAAt(8, 8); got.R != 255 || got.G != 255 || got.B != 255 {
		t.Errorf("foreground mask pixel = %v; want white", got)
	}
	if got := out.NRGBAAt(0, 0); got.R != 0 || got.G != 0 || got.B != 0 {
		t.Errorf("background mask pixel = %v; want black", got)
	}
}

func TestPipelineAutoCrop(t *testing.T) {
	p := NewPipeline(&fakePredictor{mask: centeredMask(40, 40, 1.0, 0.0)})

	cfg := plainConfig()
	cfg.AutoCrop = true

	out, err := p.Process(testImage(40, 40), cfg)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if out.Bounds().Dx() != 20 || out.Bounds().Dy() != 20 {
		t.Errorf("cropped to %dx%d; want 20x20", out.Bounds().Dx(), out.Bounds().Dy())
	}
}

func TestPipelinePredictorErrorPropagates(t *testing.T) {
	wantErr := errors.New("backend exploded")
	p := NewPipeline(&fakePredictor{err: wantErr})

	_, err := p.Process(testImage(8, 8), plainConfig())
	if !errors.Is(err, wantErr) {
		t.Errorf("expected predictor error, got %v", err)
	}
}

func TestPipelineInvalidConfig(t *testing.T) {
	p := NewPipeline(&fakePredictor{mask: uniformMask(8, 8, 1.0)})

	cfg := plainConfig()
	cfg.Threshold = Float32(1.5)

	if _, err := p.Process(testImage(8, 8), cfg); err == nil {
		t.Errorf("expected a validation error for threshold 1.5")
	}
}

func TestPipelineProcessFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "input.png")
	dst := filepath.Join(dir, "output.png")
	if err := imaging.Save(testImage(24, 24), src); err != nil {
		t.Fatalf("save fixture: %v", err)
	}

	p := NewPipeline(&fakePredictor{mask: centeredMask(24, 24, 1.0, 0.0)})
	if err := p.ProcessFile(src, dst, plainConfig()); err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}

	saved, err := imaging.Open(dst)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	if saved.Bounds().Dx() != 24 || saved.Bounds().Dy() != 24 {
		t.Errorf("output is %v; want 24x24", saved.Bounds())
	}
}

func TestPipelineProcessFileMissingInput(t *testing.T) {
	p := NewPipeline(&fakePredictor{mask: uniformMask(8, 8, 1.0)})
	err := p.ProcessFile(filepath.Join(t.TempDir(), "missing.png"), "out.png", plainConfig())
	if !errors.Is(err, ErrIO) {
		t.Errorf("expected ErrIO for missing input, got %v", err)
	}
	if _, statErr := os.Stat("out.png"); statErr == nil {
		t.Errorf("no output must be written on failure")
	}
}

func TestPipelineProcessAsync(t *testing.T) {
	p := NewPipeline(&fakePredictor{mask: uniformMask(8, 8, 1.0)})

	ch := p.ProcessAsync(testImage(8, 8), plainConfig())
	select {
	case res := <-ch:
		if res.Err != nil {
			t.Fatalf("async result error: %v", res.Err)
		}
		if res.Image == nil {
			t.Fatalf("expected an image in the async result")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for async result")
	}

	if _, open := <-ch; open {
		t.Errorf("channel must be closed after the single result")
	}
}
