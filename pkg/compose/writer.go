package compose

import (
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf16"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/quidome/photo-booker-go/pkg/failure"
)

// ErrNoPages is returned when writing a document without pages.
var ErrNoPages = errors.New("document has no pages")

// Writer serializes a Document with pdfcpu.
type Writer struct {
	conf   *model.Configuration
	logger *slog.Logger
}

// NewWriter returns a Writer using relaxed validation. pdfcpu writes no
// output intent (ICC profile) and no XMP metadata stream.
func NewWriter(logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Writer{conf: conf, logger: logger}
}

// Write serializes doc to outPath, replacing any existing file there.
func (w *Writer) Write(doc Document, outPath string) error {
	if len(doc.Pages) == 0 {
		return failure.Compose(outPath, ErrNoPages)
	}
	logCtx := w.logger.With("output", outPath, "pages", len(doc.Pages))
	for _, p := range doc.Pages {
		cfg, err := checkJPEG(p.ImagePath)
		if err != nil {
			return failure.Compose(p.ImagePath, fmt.Errorf("page %d: %w", p.Number, err))
		}
		logCtx.Debug("Adding page image.", "page", p.Number, "image", p.ImagePath, "width", cfg.Width, "height", cfg.Height)
	}

	imp, err := pdfcpu.ParseImportDetails(doc.importDescription(), types.MILLIMETRES)
	if err != nil {
		return failure.Compose(outPath, fmt.Errorf("import settings: %w", err))
	}

	// Importing appends to an existing file, so start from nothing.
	draft := strings.TrimSuffix(outPath, filepath.Ext(outPath)) + ".draft.pdf"
	for _, p := range []string{draft, outPath} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return failure.Write(p, err)
		}
	}
	defer os.Remove(draft)

	logCtx.Debug("Importing page images.")

	if err := api.ImportImagesFile(doc.ImagePaths(), draft, imp, w.conf); err != nil {
		return failure.Compose(draft, err)
	}
	if err := setTitle(draft, outPath, doc.Title); err != nil {
		_ = os.Remove(outPath)
		return failure.Write(outPath, err)
	}

	logCtx.Debug("Wrote document.")
	return nil
}

// importDescription anchors every image at the bottom-left corner shifted by
// the offset, scaled relative to the page by imageScale.
func (d Document) importDescription() string {
	return fmt.Sprintf("dimensions:%g %g, position:bl, offset:%g %g, scalefactor:%.4f rel",
		d.PageWidthMM, d.PageHeightMM, d.OffsetXMM, d.OffsetYMM, d.imageScale())
}

// imageScale is the largest relative scale, truncated to four decimals, at
// which an image fitted to the page still ends inside the page once it is
// shifted by the offset. At 1.0 the far edges would be cut off.
func (d Document) imageScale() float64 {
	s := min((d.PageWidthMM-d.OffsetXMM)/d.PageWidthMM, (d.PageHeightMM-d.OffsetYMM)/d.PageHeightMM)
	return math.Floor(s*1e4) / 1e4
}

func checkJPEG(path string) (image.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, err
	}
	defer f.Close()

	cfg, err := jpeg.DecodeConfig(f)
	if err != nil {
		return image.Config{}, fmt.Errorf("decode jpeg: %w", err)
	}
	return cfg, nil
}

// setTitle records title in the Info dictionary of in and writes the
// result to out.
func setTitle(in, out, title string) error {
	ctx, err := api.ReadContextFile(in)
	if err != nil {
		return fmt.Errorf("read draft: %w", err)
	}

	if ctx.Info == nil {
		ir, err := ctx.IndRefForNewObject(types.NewDict())
		if err != nil {
			return err
		}
		ctx.Info = ir
	}
	info, err := ctx.DereferenceDict(*ctx.Info)
	if err != nil {
		return fmt.Errorf("info dict: %w", err)
	}
	if info == nil {
		return errors.New("info dict missing")
	}
	info.Update("Title", textString(title))

	return api.WriteContextFile(ctx, out)
}

// textString encodes s as a PDF text string: a literal for printable
// ASCII, UTF-16BE with a byte order mark otherwise.
func textString(s string) types.Object {
	ascii := true
	for _, r := range s {
		if r < 0x20 || r > 0x7E {
			ascii = false
			break
		}
	}
	if ascii {
		r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
		return types.StringLiteral(r.Replace(s))
	}

	b := []byte{0xFE, 0xFF}
	for _, u := range utf16.Encode([]rune(s)) {
		b = append(b, byte(u>>8), byte(u))
	}
	return types.HexLiteral(hex.EncodeToString(b))
}
