package bgcut

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadImageMissingFile(t *testing.T) {
	_, err := LoadImage(filepath.Join(t.TempDir(), "nope.png"))
	if !errors.Is(err, ErrIO) {
		t.Errorf("expected ErrIO, got %v", err)
	}
}

func TestLoadImageUndecodableContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.png")
	if err := os.WriteFile(path, []byte("this is not an image"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	_, err := LoadImage(path)
	if !errors.Is(err, ErrInvalidImage) {
		t.Errorf("expected ErrInvalidImage, got %v", err)
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roundtrip.png")
	src := testImage(15, 9)

	if err := SaveImage(src, path); err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}

	img, err := LoadImage(path)
	if err != nil {
		t.Fatalf("LoadImage failed: %v", err)
	}
	if img.Bounds().Dx() != 15 || img.Bounds().Dy() != 9 {
		t.Errorf("roundtrip changed dimensions: %v", img.Bounds())
	}
}

func TestSaveImageBadFolder(t *testing.T) {
	err := SaveImage(testImage(4, 4), filepath.Join(t.TempDir(), "missing", "out.png"))
	if !errors.Is(err, ErrIO) {
		t.Errorf("expected ErrIO, got %v", err)
	}
}

func TestSaveImageUnknownExtension(t *testing.T) {
	err := SaveImage(testImage(4, 4), filepath.Join(t.TempDir(), "out.xyz"))
	if !errors.Is(err, ErrIO) {
		t.Errorf("expected ErrIO for an unsupported format, got %v", err)
	}
}
