package createdat

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/quidome/photo-booker-go/pkg/failure"
)

// ErrNoCaptureTime is returned when a file carries no DateTimeOriginal.
var ErrNoCaptureTime = errors.New("capture time not present")

// Record is a source image and the moment it was captured.
type Record struct {
	Path       string    `json:"path"`
	CapturedAt time.Time `json:"captured_at"`
}

func (r Record) String() string {
	return r.Path + " " + r.CapturedAt.Format(time.DateTime)
}

// MetadataExtractor extracts the raw capture-time text from an image stream.
//
// Implementations return ErrNoCaptureTime (possibly wrapped) when the
// container parses but the field is absent.
type MetadataExtractor interface {
	CaptureTime(path string, r io.Reader) (string, error)
}

// Options configures Extract.
type Options struct {
	// Location is used for the naive capture time. If nil, time.UTC is used.
	Location *time.Location

	// Metadata optionally extracts the raw capture time.
	//
	// If nil, the EXIF extractor is used.
	Metadata MetadataExtractor
}

// Extract opens path in fsys and returns its Record.
//
// Every failure is a failure.KindMetadata error.
func Extract(fsys fs.FS, path string, opts Options) (Record, error) {
	metadata := opts.Metadata
	if metadata == nil {
		metadata = exifExtractor{}
	}

	f, err := fsys.Open(path)
	if err != nil {
		return Record{}, failure.Metadata(path, err)
	}
	raw, err := metadata.CaptureTime(path, f)
	_ = f.Close()
	if err != nil {
		return Record{}, failure.Metadata(path, err)
	}

	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	capturedAt, err := ParseCaptureTime(raw, loc)
	if err != nil {
		return Record{}, failure.Metadata(path, err)
	}

	return Record{Path: path, CapturedAt: capturedAt}, nil
}

// ParseCaptureTime parses "YYYY-MM-DD HH:MM:SS". The EXIF form with ':'
// between date components is accepted as well.
//
// Components must form a real calendar date-time; nothing is normalized.
func ParseCaptureTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimRight(strings.TrimSpace(s), "\x00")

	datePart, timePart, ok := strings.Cut(s, " ")
	if !ok {
		return time.Time{}, fmt.Errorf("capture time %q: missing time of day", s)
	}

	dateSep := "-"
	if !strings.Contains(datePart, "-") {
		dateSep = ":"
	}
	date := strings.Split(datePart, dateSep)
	clock := strings.Split(strings.TrimSpace(timePart), ":")
	if len(date) != 3 || len(clock) != 3 {
		return time.Time{}, fmt.Errorf("capture time %q: want YYYY-MM-DD HH:MM:SS", s)
	}

	year, err := strconv.Atoi(date[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("capture time %q: year: %w", s, err)
	}

	var fields [5]uint64
	names := [5]string{"month", "day", "hour", "minute", "second"}
	for i, part := range append(date[1:], clock...) {
		n, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return time.Time{}, fmt.Errorf("capture time %q: %s: %w", s, names[i], err)
		}
		fields[i] = n
	}
	month, day, hour, minute, second := fields[0], fields[1], fields[2], fields[3], fields[4]

	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("capture time %q: month %d out of range", s, month)
	}
	if day < 1 || day > uint64(daysIn(time.Month(month), year)) {
		return time.Time{}, fmt.Errorf("capture time %q: day %d out of range", s, day)
	}
	if hour > 23 || minute > 59 || second > 59 {
		return time.Time{}, fmt.Errorf("capture time %q: time of day out of range", s)
	}

	return time.Date(year, time.Month(month), int(day), int(hour), int(minute), int(second), 0, loc), nil
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
