// Package order puts a corpus of records into capture order.
package order

import (
	"slices"
	"strings"

	"github.com/quidome/photo-booker-go/pkg/createdat"
)

// Chronological sorts records in place by capture time, oldest first.
// Records captured at the same instant keep a lexical path order, so the
// result does not depend on scan order.
func Chronological(records []createdat.Record) {
	slices.SortStableFunc(records, compare)
}

func compare(a, b createdat.Record) int {
	if c := a.CapturedAt.Compare(b.CapturedAt); c != 0 {
		return c
	}
	return strings.Compare(a.Path, b.Path)
}
