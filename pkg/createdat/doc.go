// Package createdat reads the capture timestamp embedded in an image file.
//
// Only the EXIF DateTimeOriginal field is consulted. A file without it is an
// error, not a best-effort fallback: the page order of the document depends
// on every timestamp being the moment the photograph was taken.
package createdat
