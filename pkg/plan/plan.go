package plan

import (
	"fmt"
	"path/filepath"

	"github.com/quidome/photo-booker-go/pkg/createdat"
)

// Operation represents one planned page: the source record and where its
// normalized artifact is written.
type Operation struct {
	Page         int
	Source       createdat.Record
	ArtifactPath string
}

// ArtifactName returns the artifact file name for a 1-based page number.
//
// The name follows the pattern: page-NNN.jpg, zero-padded to at least three
// digits (page 7 is page-007.jpg, page 1200 is page-1200.jpg).
func ArtifactName(page int) string {
	return fmt.Sprintf("page-%03d.jpg", page)
}

// Destination computes the artifact path for a page inside dir.
func Destination(dir string, page int) string {
	return filepath.Join(dir, ArtifactName(page))
}

// Plan numbers ordered records from 1 and assigns each its artifact path.
//
// Records must already be in page order; Plan does not sort.
func Plan(dir string, records []createdat.Record) []Operation {
	operations := make([]Operation, 0, len(records))

	for i, rec := range records {
		page := i + 1
		operations = append(operations, Operation{
			Page:         page,
			Source:       rec,
			ArtifactPath: Destination(dir, page),
		})
	}

	return operations
}
