// Package compose lays normalized page images out as a PDF document, one
// image per US Letter page.
package compose

import (
	"slices"

	"github.com/quidome/photo-booker-go/pkg/normalize"
)

// Physical page layout in millimetres.
const (
	PageWidthMM  = 216.0
	PageHeightMM = 279.0
	OffsetMM     = 2.0
)

// Page is one document page showing a single image.
type Page struct {
	Number    int
	ImagePath string
}

// Document describes the output before it is serialized. It is a value:
// AddPage returns a new Document and never modifies the receiver's pages.
type Document struct {
	Title        string
	PageWidthMM  float64
	PageHeightMM float64
	OffsetXMM    float64
	OffsetYMM    float64
	Pages        []Page
}

// New returns an empty Letter-sized document.
func New(title string) Document {
	return Document{
		Title:        title,
		PageWidthMM:  PageWidthMM,
		PageHeightMM: PageHeightMM,
		OffsetXMM:    OffsetMM,
		OffsetYMM:    OffsetMM,
	}
}

// AddPage returns a copy of d with one more page holding imagePath.
func (d Document) AddPage(imagePath string) Document {
	pages := make([]Page, len(d.Pages), len(d.Pages)+1)
	copy(pages, d.Pages)
	d.Pages = append(pages, Page{Number: len(pages) + 1, ImagePath: imagePath})
	return d
}

// Fold builds the document from normalized pages in page-number order,
// regardless of the order they are passed in.
func Fold(title string, pages []normalize.Page) Document {
	ordered := slices.Clone(pages)
	slices.SortStableFunc(ordered, func(a, b normalize.Page) int {
		return a.Number - b.Number
	})

	doc := New(title)
	for _, p := range ordered {
		doc = doc.AddPage(p.Path)
	}
	return doc
}

// ImagePaths lists the page images in page order.
func (d Document) ImagePaths() []string {
	paths := make([]string, 0, len(d.Pages))
	for _, p := range d.Pages {
		paths = append(paths, p.ImagePath)
	}
	return paths
}
