package scan

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"

	"github.com/quidome/photo-booker-go/pkg/createdat"
	"github.com/quidome/photo-booker-go/pkg/failure"
)

// Policy decides what a metadata failure does to the scan.
type Policy string

const (
	// PolicyAbort fails the whole scan on the first file without a usable
	// capture time.
	PolicyAbort Policy = "abort"
	// PolicySkip leaves such files out and reports them in Result.Skipped.
	PolicySkip Policy = "skip"
)

// ParsePolicy parses "abort" or "skip".
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyAbort, PolicySkip:
		return p, nil
	case "":
		return PolicyAbort, nil
	default:
		return "", fmt.Errorf("unknown metadata error policy %q (want abort or skip)", s)
	}
}

type Options struct {
	MaxDepth int

	// Extensions restricts candidates to these file extensions. Empty means
	// every regular file is a candidate.
	Extensions []string

	// Exclude lists paths in the walked file system that are never
	// candidates, such as the output document when it lives below the root.
	Exclude []string

	OnMetadataError Policy

	Metadata createdat.Options

	Logger *slog.Logger
}

func DefaultOptions() Options {
	return Options{
		MaxDepth:        -1,
		OnMetadataError: PolicyAbort,
	}
}

// Outcome is the extraction result for one candidate file.
type Outcome struct {
	Path   string
	Record createdat.Record
	Err    error
}

// OK reports whether the extraction succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

// Result is the unordered corpus plus any files the skip policy left out.
type Result struct {
	Records []createdat.Record
	Skipped []Outcome
}

// Scan walks root in fsys and extracts a Record for every candidate file.
//
// Entries that cannot be read are skipped. Whether a metadata failure aborts
// the scan depends on opts.OnMetadataError.
func Scan(fsys fs.FS, root string, opts Options) (Result, error) {
	policy, err := ParsePolicy(string(opts.OnMetadataError))
	if err != nil {
		return Result{}, failure.Config("%v", err)
	}

	outcomes, err := Outcomes(fsys, root, opts)
	if err != nil {
		return Result{}, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var res Result
	for _, o := range outcomes {
		if o.OK() {
			res.Records = append(res.Records, o.Record)
			continue
		}
		if policy == PolicyAbort {
			return Result{}, o.Err
		}
		logger.Warn("Skipping file without usable capture time.", "path", o.Path, "error", o.Err)
		res.Skipped = append(res.Skipped, o)
	}
	return res, nil
}

// Outcomes walks root and runs the extractor on every candidate, collecting
// one Outcome per file without judging failures.
func Outcomes(fsys fs.FS, root string, opts Options) ([]Outcome, error) {
	if opts.MaxDepth < -1 {
		return nil, failure.New(failure.KindScan, "scan", root, fs.ErrInvalid)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	exts := normalizeExts(opts.Extensions)
	excluded := make(map[string]bool, len(opts.Exclude))
	for _, p := range opts.Exclude {
		excluded[path.Clean(p)] = true
	}

	var outcomes []Outcome

	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return failure.New(failure.KindScan, "read directory", root, err)
			}
			logger.Debug("Skipping unreadable entry.", "path", p, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if opts.MaxDepth >= 0 && p != root && depth(rel(root, p)) > opts.MaxDepth {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if opts.MaxDepth >= 0 && depth(rel(root, p)) > opts.MaxDepth {
			return nil
		}
		if len(exts) > 0 && !exts[strings.ToLower(path.Ext(p))] {
			return nil
		}
		if excluded[p] {
			return nil
		}

		rec, extractErr := createdat.Extract(fsys, p, opts.Metadata)
		outcomes = append(outcomes, Outcome{Path: p, Record: rec, Err: extractErr})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return outcomes, nil
}

func normalizeExts(exts []string) map[string]bool {
	m := make(map[string]bool, len(exts))
	for _, ext := range exts {
		e := strings.TrimSpace(strings.ToLower(ext))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		m[e] = true
	}
	return m
}

// rel returns p relative to root; both are slash-separated fs.FS paths.
func rel(root, p string) string {
	if root == "." {
		return p
	}
	return strings.TrimPrefix(strings.TrimPrefix(p, root), "/")
}

func depth(rel string) int {
	rel = path.Clean(rel)
	if rel == "." {
		return 0
	}
	return strings.Count(rel, "/")
}
