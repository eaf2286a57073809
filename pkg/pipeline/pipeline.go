// Package pipeline runs a complete photo-booker conversion: scan, order,
// normalize, compose and publish.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/quidome/photo-booker-go/pkg/compose"
	"github.com/quidome/photo-booker-go/pkg/config"
	"github.com/quidome/photo-booker-go/pkg/createdat"
	"github.com/quidome/photo-booker-go/pkg/failure"
	"github.com/quidome/photo-booker-go/pkg/normalize"
	"github.com/quidome/photo-booker-go/pkg/order"
	"github.com/quidome/photo-booker-go/pkg/plan"
	"github.com/quidome/photo-booker-go/pkg/publish"
	"github.com/quidome/photo-booker-go/pkg/scan"
	"github.com/quidome/photo-booker-go/pkg/workdir"
)

// WorkDirPrefix starts the name of every scratch directory a run creates.
const WorkDirPrefix = "photo-booker"

const stagedName = "document.pdf"

// Options carries the collaborators of a run.
type Options struct {
	// Progress receives one "Processing page X of N...Done" line per page.
	// Nil discards progress.
	Progress io.Writer

	Logger *slog.Logger
}

// PageReport describes one page of the written document.
type PageReport struct {
	Number     int       `json:"page"`
	Source     string    `json:"source"`
	CapturedAt time.Time `json:"captured_at"`
	Rotated    bool      `json:"rotated"`
}

// Report summarizes a finished run.
type Report struct {
	Pages   []PageReport
	Skipped []scan.Outcome
	Output  string

	// WorkDir is the scratch directory the run used. It no longer exists
	// when Run returns.
	WorkDir string
}

// Run converts the photographs below cfg.Input into the document at
// cfg.Output.
//
// Nothing is written to cfg.Output unless every page was normalized and the
// document was composed. An existing file there is replaced atomically, or
// left alone with cfg.NoClobber, in which case the run fails before any work.
func Run(ctx context.Context, cfg config.Config, opts Options) (rep Report, err error) {
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return Report{}, err
	}
	if cfg.NoClobber {
		if _, err := os.Lstat(cfg.Output); err == nil {
			return Report{}, failure.Write(cfg.Output, publish.ErrDestinationExists)
		}
	}

	progress := opts.Progress
	if progress == nil {
		progress = io.Discard
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("input", cfg.Input, "output", cfg.Output)

	fsys := os.DirFS(cfg.Input)
	res, err := scan.Scan(fsys, ".", scan.Options{
		MaxDepth:        cfg.MaxDepth,
		Extensions:      cfg.Extensions,
		Exclude:         excludeOutput(cfg.Input, cfg.Output),
		OnMetadataError: cfg.Policy(),
		Metadata:        createdat.Options{Location: loc},
		Logger:          logger,
	})
	if err != nil {
		return Report{}, err
	}
	if len(res.Records) == 0 {
		return Report{Skipped: res.Skipped}, failure.NoImages(cfg.Input)
	}

	records := res.Records
	order.Chronological(records)
	logger.Info("Scanned input.", "images", len(records), "skipped", len(res.Skipped))

	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	wd, err := workdir.New(WorkDirPrefix)
	if err != nil {
		return Report{}, failure.New(failure.KindWrite, "create work dir", os.TempDir(), err)
	}
	defer func() {
		if cerr := wd.Close(); cerr != nil {
			if err == nil {
				err = failure.New(failure.KindWrite, "remove work dir", wd.Path(), cerr)
				return
			}
			logger.Warn("Failed to remove work dir.", "dir", wd.Path(), "error", cerr)
		}
	}()
	logger.Debug("Created work dir.", "dir", wd.Path())

	ops := plan.Plan(wd.Path(), records)
	n := normalize.New(cfg.JPEGQuality, logger)

	pages := make([]normalize.Page, 0, len(ops))
	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return Report{WorkDir: wd.Path()}, err
		}

		fmt.Fprintf(progress, "Processing page %d of %d...", op.Page, len(ops))
		page, err := n.Normalize(fsys, op)
		if err != nil {
			fmt.Fprintln(progress, "Failed")
			return Report{WorkDir: wd.Path()}, err
		}
		fmt.Fprintln(progress, "Done")

		pages = append(pages, page)
	}

	doc := compose.Fold(cfg.Title, pages)
	staged := wd.Join(stagedName)
	if err := compose.NewWriter(logger).Write(doc, staged); err != nil {
		return Report{WorkDir: wd.Path()}, err
	}
	if err := publish.File(staged, cfg.Output, publish.Options{Overwrite: !cfg.NoClobber}); err != nil {
		return Report{WorkDir: wd.Path()}, failure.Write(cfg.Output, err)
	}

	logger.Info("Wrote document.", "pages", len(doc.Pages), "title", cfg.Title)

	rep = Report{
		Pages:   make([]PageReport, 0, len(ops)),
		Skipped: res.Skipped,
		Output:  cfg.Output,
		WorkDir: wd.Path(),
	}
	for i, op := range ops {
		rep.Pages = append(rep.Pages, PageReport{
			Number:     op.Page,
			Source:     filepath.Join(cfg.Input, filepath.FromSlash(op.Source.Path)),
			CapturedAt: op.Source.CapturedAt,
			Rotated:    pages[i].Rotated,
		})
	}
	return rep, nil
}

// excludeOutput returns the output path relative to input when the output
// lives inside the scanned tree, so that a re-run does not read the previous
// document as a photograph.
func excludeOutput(input, output string) []string {
	in, err := filepath.Abs(input)
	if err != nil {
		return nil
	}
	out, err := filepath.Abs(output)
	if err != nil {
		return nil
	}
	rel, err := filepath.Rel(in, out)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil
	}
	return []string{filepath.ToSlash(rel)}
}
