package collection

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/barasher/go-exiftool"
	"github.com/karrick/godirwalk"
	"k8s.io/klog/v2"
)

var exifDate = "2006:01:02 15:04:05"

// Formats maps supported file extensions to a description.
var Formats = map[string]string{
	".png":  "PNG",
	".jpg":  "JPEG",
	".jpeg": "JPEG",
	".gif":  "GIF",
	".bmp":  "Bitmap",
	".tif":  "TIFF",
	".tiff": "TIFF",
	".webp": "WebP",
}

// Supported reports whether path has a supported image extension.
func Supported(path string) bool {
	_, ok := Formats[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Find expands paths into image files. Files named explicitly are always
// returned so decoding can decide; directories contribute supported files only.
func Find(paths ...string) ([]string, error) {
	found := []string{}

	for _, root := range paths {
		st, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("stat: %w", err)
		}

		if !st.IsDir() {
			found = append(found, root)
			continue
		}

		err = godirwalk.Walk(root, &godirwalk.Options{
			Callback: func(path string, de *godirwalk.Dirent) error {
				if path != root && strings.HasPrefix(filepath.Base(path), ".") {
					if de.IsDir() {
						return godirwalk.SkipThis
					}
					return nil
				}

				if de.IsDir() || !Supported(path) {
					return nil
				}

				klog.V(1).Infof("found %s", path)
				found = append(found, path)
				return nil
			},
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}

	return found, nil
}

// Dater decides the creation time used to order an initial batch.
type Dater interface {
	Created(path string, fi os.FileInfo) time.Time
}

// ModTimeDater uses the file modification time.
type ModTimeDater struct{}

// Created returns fi's modification time.
func (ModTimeDater) Created(_ string, fi os.FileInfo) time.Time {
	return fi.ModTime()
}

// ExifDater prefers EXIF DateTimeOriginal, falling back to the modification time.
// It is not safe for concurrent use.
type ExifDater struct {
	et *exiftool.Exiftool
}

// NewExifDater starts an exiftool process.
func NewExifDater() (*ExifDater, error) {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, fmt.Errorf("exiftool: %w", err)
	}
	return &ExifDater{et: et}, nil
}

// Created returns the time the photo was taken, if recorded.
func (d *ExifDater) Created(path string, fi os.FileInfo) time.Time {
	fis := d.et.ExtractMetadata(path)
	if len(fis) == 0 || fis[0].Err != nil {
		klog.V(1).Infof("no exif metadata for %s", path)
		return fi.ModTime()
	}

	ds, err := fis[0].GetString("DateTimeOriginal")
	if err != nil {
		klog.V(1).Infof("unable to get date time for %s: %v", path, err)
		return fi.ModTime()
	}

	t, err := time.ParseInLocation(exifDate, ds, time.Local)
	if err != nil {
		klog.Warningf("parse time %q for %s: %v", ds, path, err)
		return fi.ModTime()
	}
	return t
}

// Close stops the exiftool process.
func (d *ExifDater) Close() error {
	return d.et.Close()
}
