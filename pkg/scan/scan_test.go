package scan

import (
	"errors"
	"io"
	"io/fs"
	"reflect"
	"sort"
	"testing"
	"testing/fstest"

	"github.com/quidome/photo-booker-go/pkg/createdat"
	"github.com/quidome/photo-booker-go/pkg/failure"
)

// stubMetadata fails for paths listed in bad and returns a fixed time
// otherwise.
type stubMetadata struct {
	bad map[string]bool
}

func (s stubMetadata) CaptureTime(path string, r io.Reader) (string, error) {
	if s.bad[path] {
		return "", createdat.ErrNoCaptureTime
	}
	return "2020-01-02 10:00:00", nil
}

func optsWith(bad ...string) Options {
	m := make(map[string]bool, len(bad))
	for _, b := range bad {
		m[b] = true
	}
	opts := DefaultOptions()
	opts.Metadata = createdat.Options{Metadata: stubMetadata{bad: m}}
	return opts
}

func paths(records []createdat.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Path)
	}
	sort.Strings(out)
	return out
}

func TestScan_MaxDepth(t *testing.T) {
	fsys := fstest.MapFS{
		"root/a.jpg":            &fstest.MapFile{Data: []byte("a")},
		"root/b.JPG":            &fstest.MapFile{Data: []byte("b")},
		"root/sub/d.png":        &fstest.MapFile{Data: []byte("d")},
		"root/sub/nested/e.jpg": &fstest.MapFile{Data: []byte("e")},
	}

	testCases := []struct {
		name     string
		maxDepth int
		want     []string
	}{
		{
			name:     "depth 0 includes only top-level",
			maxDepth: 0,
			want:     []string{"root/a.jpg", "root/b.JPG"},
		},
		{
			name:     "depth 1 includes one subdirectory",
			maxDepth: 1,
			want:     []string{"root/a.jpg", "root/b.JPG", "root/sub/d.png"},
		},
		{
			name:     "unlimited includes nested subdirectories",
			maxDepth: -1,
			want:     []string{"root/a.jpg", "root/b.JPG", "root/sub/d.png", "root/sub/nested/e.jpg"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			opts := optsWith()
			opts.MaxDepth = tc.maxDepth

			res, err := Scan(fsys, "root", opts)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got := paths(res.Records); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("unexpected result\n got: %#v\nwant: %#v", got, tc.want)
			}
		})
	}
}

func TestScan_EveryRegularFileIsACandidate(t *testing.T) {
	fsys := fstest.MapFS{
		"root/a.jpg": &fstest.MapFile{Data: []byte("a")},
		"root/notes": &fstest.MapFile{Data: []byte("n")},
		"root/c.txt": &fstest.MapFile{Data: []byte("c")},
		"root/empty": &fstest.MapFile{Mode: fs.ModeDir | 0o755},
	}

	res, err := Scan(fsys, "root", optsWith())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"root/a.jpg", "root/c.txt", "root/notes"}
	if got := paths(res.Records); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected result\n got: %#v\nwant: %#v", got, want)
	}
}

func TestScan_ExtensionFilter(t *testing.T) {
	fsys := fstest.MapFS{
		"root/a.jpg": &fstest.MapFile{Data: []byte("a")},
		"root/b.txt": &fstest.MapFile{Data: []byte("b")},
	}

	opts := optsWith("root/b.txt")
	opts.Extensions = []string{"JPG", " .jpeg ", ""}

	res, err := Scan(fsys, "root", opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := paths(res.Records); !reflect.DeepEqual(got, []string{"root/a.jpg"}) {
		t.Fatalf("unexpected result %#v", got)
	}
}

func TestScan_Exclude(t *testing.T) {
	fsys := fstest.MapFS{
		"a.jpg":         &fstest.MapFile{Data: []byte("a")},
		"out/album.pdf": &fstest.MapFile{Data: []byte("%PDF")},
	}

	res, err := Scan(fsys, ".", optsWithExclude("out/album.pdf"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := paths(res.Records); !reflect.DeepEqual(got, []string{"a.jpg"}) {
		t.Fatalf("unexpected result %#v", got)
	}
}

func optsWithExclude(exclude ...string) Options {
	opts := optsWith("out/album.pdf")
	opts.Exclude = exclude
	return opts
}

func TestScan_AbortOnFirstMetadataFailure(t *testing.T) {
	fsys := fstest.MapFS{
		"root/a.jpg": &fstest.MapFile{Data: []byte("a")},
		"root/b.jpg": &fstest.MapFile{Data: []byte("b")},
		"root/c.jpg": &fstest.MapFile{Data: []byte("c")},
	}

	_, err := Scan(fsys, "root", optsWith("root/b.jpg"))
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !failure.Is(err, failure.KindMetadata) {
		t.Fatalf("expected metadata error, got %v", err)
	}
	if !errors.Is(err, createdat.ErrNoCaptureTime) {
		t.Fatalf("expected ErrNoCaptureTime in chain, got %v", err)
	}
}

func TestScan_SkipPolicyReportsFailures(t *testing.T) {
	fsys := fstest.MapFS{
		"root/a.jpg": &fstest.MapFile{Data: []byte("a")},
		"root/b.jpg": &fstest.MapFile{Data: []byte("b")},
		"root/c.jpg": &fstest.MapFile{Data: []byte("c")},
	}

	opts := optsWith("root/b.jpg")
	opts.OnMetadataError = PolicySkip

	res, err := Scan(fsys, "root", opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := paths(res.Records); !reflect.DeepEqual(got, []string{"root/a.jpg", "root/c.jpg"}) {
		t.Fatalf("unexpected records %#v", got)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Path != "root/b.jpg" || res.Skipped[0].OK() {
		t.Fatalf("unexpected skipped %#v", res.Skipped)
	}
}

// brokenDirFS fails to list the directory named broken.
type brokenDirFS struct {
	fstest.MapFS
	broken string
}

func (f brokenDirFS) ReadDir(name string) ([]fs.DirEntry, error) {
	if name == f.broken {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrPermission}
	}
	return f.MapFS.ReadDir(name)
}

func TestScan_SkipsUnreadableEntries(t *testing.T) {
	fsys := brokenDirFS{
		MapFS: fstest.MapFS{
			"root/a.jpg":        &fstest.MapFile{Data: []byte("a")},
			"root/locked/b.jpg": &fstest.MapFile{Data: []byte("b")},
			"root/z.jpg":        &fstest.MapFile{Data: []byte("z")},
		},
		broken: "root/locked",
	}

	res, err := Scan(fsys, "root", optsWith())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"root/a.jpg", "root/z.jpg"}
	if got := paths(res.Records); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected result\n got: %#v\nwant: %#v", got, want)
	}
	if len(res.Skipped) != 0 {
		t.Fatalf("unreadable entries are not metadata failures, got %#v", res.Skipped)
	}
}

func TestScan_UnreadableRootFails(t *testing.T) {
	fsys := brokenDirFS{
		MapFS:  fstest.MapFS{"root/a.jpg": &fstest.MapFile{Data: []byte("a")}},
		broken: "root",
	}

	if _, err := Scan(fsys, "root", optsWith()); !failure.Is(err, failure.KindScan) {
		t.Fatalf("expected scan error, got %v", err)
	}
}

func TestScan_MissingRootFails(t *testing.T) {
	_, err := Scan(fstest.MapFS{}, "root", optsWith())
	if !failure.Is(err, failure.KindScan) {
		t.Fatalf("expected scan error, got %v", err)
	}
}

func TestScan_EmptyDirectory(t *testing.T) {
	fsys := fstest.MapFS{
		"root/sub/keep": &fstest.MapFile{Data: nil},
	}

	opts := optsWith()
	opts.Extensions = []string{".jpg"}

	res, err := Scan(fsys, "root", opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Records) != 0 || len(res.Skipped) != 0 {
		t.Fatalf("expected empty result, got %#v", res)
	}
}

func TestScan_InvalidOptions(t *testing.T) {
	fsys := fstest.MapFS{}

	opts := optsWith()
	opts.MaxDepth = -2
	if _, err := Scan(fsys, "root", opts); err == nil {
		t.Fatalf("expected error for max depth, got nil")
	}

	opts = optsWith()
	opts.OnMetadataError = "retry"
	if _, err := Scan(fsys, "root", opts); !failure.Is(err, failure.KindConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestParsePolicy(t *testing.T) {
	testCases := map[string]Policy{
		"":       PolicyAbort,
		"abort":  PolicyAbort,
		" SKIP ": PolicySkip,
	}
	for in, want := range testCases {
		got, err := ParsePolicy(in)
		if err != nil {
			t.Fatalf("ParsePolicy(%q): unexpected error: %v", in, err)
		}
		if got != want {
			t.Fatalf("ParsePolicy(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := ParsePolicy("ignore"); err == nil {
		t.Fatalf("expected error, got nil")
	}
}
