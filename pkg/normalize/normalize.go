// Package normalize turns a source photograph into a fixed-size grayscale
// page image ready for composition.
package normalize

import (
	"image"
	"io/fs"
	"log/slog"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/quidome/photo-booker-go/pkg/failure"
	"github.com/quidome/photo-booker-go/pkg/plan"
)

// Page size in pixels: 8.5×11 inches at 150 dpi.
const (
	Width  = 1275
	Height = 1650
)

// DefaultQuality is the JPEG quality of written artifacts.
const DefaultQuality = 90

// Page is a normalized artifact on disk.
type Page struct {
	Number  int
	Path    string
	Source  string
	Rotated bool
}

// Normalizer decodes, transforms and writes one page at a time.
type Normalizer struct {
	Quality int
	Logger  *slog.Logger
}

// New returns a Normalizer writing JPEG artifacts at the given quality.
// A quality outside 1..100 falls back to DefaultQuality.
func New(quality int, logger *slog.Logger) *Normalizer {
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{Quality: quality, Logger: logger}
}

// Normalize decodes op.Source from fsys, transforms it and writes the
// artifact to op.ArtifactPath.
func (n *Normalizer) Normalize(fsys fs.FS, op plan.Operation) (Page, error) {
	src, err := decode(fsys, op.Source.Path)
	if err != nil {
		return Page{}, err
	}

	gray, rotated := Transform(src)

	if err := imaging.Save(gray, op.ArtifactPath, imaging.JPEGQuality(n.Quality)); err != nil {
		return Page{}, failure.Encode(op.ArtifactPath, err)
	}

	n.Logger.Debug("Normalized page.",
		"page", op.Page,
		"source", op.Source.Path,
		"artifact", op.ArtifactPath,
		"sourceWidth", src.Bounds().Dx(),
		"sourceHeight", src.Bounds().Dy(),
		"rotated", rotated,
	)

	return Page{
		Number:  op.Page,
		Path:    op.ArtifactPath,
		Source:  op.Source.Path,
		Rotated: rotated,
	}, nil
}

func decode(fsys fs.FS, path string) (image.Image, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, failure.Decode(path, err)
	}
	defer f.Close()

	img, err := imaging.Decode(f)
	if err != nil {
		return nil, failure.Decode(path, err)
	}
	return img, nil
}

// Transform converts img to 8-bit RGB, turns landscape images upright by
// rotating them 90° counter-clockwise, reduces them to luminance and
// resamples to exactly Width×Height with a Catmull-Rom filter. The aspect
// ratio is not preserved. It reports whether a rotation was applied.
func Transform(img image.Image) (*image.Gray, bool) {
	rgb := imaging.Clone(img)

	rotated := false
	if b := rgb.Bounds(); b.Dx() > b.Dy() {
		rgb = imaging.Rotate90(rgb)
		rotated = true
	}

	return Resample(Grayscale(rgb)), rotated
}

// Grayscale converts img to a single-channel luminance raster.
func Grayscale(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}

// Resample scales img to Width×Height.
func Resample(img *image.Gray) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, Width, Height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}
