package bgcut

import (
	"errors"
	"fmt"
	"image"
	"io/fs"

	"github.com/disintegration/imaging"
	pkgerrors "github.com/pkg/errors"
)

// LoadImage decodes the file at path into a pixel buffer. Missing or
// unreadable files surface ErrIO; undecodable content surfaces
// ErrInvalidImage.
func LoadImage(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, pkgerrors.Wrapf(ErrIO, "open %s: %v (check the path and permissions)", path, err)
		}
		return nil, fmt.Errorf("%w: decode %s: %v", ErrInvalidImage, path, err)
	}
	return img, nil
}

// SaveImage encodes the buffer to path; the format follows the extension.
func SaveImage(img image.Image, path string) error {
	if err := imaging.Save(img, path); err != nil {
		return pkgerrors.Wrapf(ErrIO, "save %s: %v (check the output folder is writable)", path, err)
	}
	return nil
}
