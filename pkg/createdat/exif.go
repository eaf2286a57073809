package createdat

import (
	"errors"
	"fmt"
	"io"

	"github.com/rwcarlsen/goexif/exif"
)

type exifExtractor struct{}

func (e exifExtractor) CaptureTime(path string, r io.Reader) (string, error) {
	x, err := exif.Decode(r)
	if err != nil {
		return "", fmt.Errorf("decode exif: %w", err)
	}

	f, err := x.Get(exif.DateTimeOriginal)
	if err != nil {
		var notPresent exif.TagNotPresentError
		if errors.As(err, &notPresent) {
			return "", ErrNoCaptureTime
		}
		return "", err
	}

	// EXIF DateTime format: "2006:01:02 15:04:05".
	s, err := f.StringVal()
	if err != nil {
		return "", fmt.Errorf("%s: %w", exif.DateTimeOriginal, err)
	}
	return s, nil
}
