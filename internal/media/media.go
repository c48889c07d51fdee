// Package media finds image attachments in source directories.
package media

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Extensions whose presence anywhere in a file name marks the file as an image.
// The match is a case-sensitive substring test, so "a.jpgx" counts and
// "z.PNG" does not.
const (
	JPEGMarker = ".jpg"
	PNGMarker  = ".png"
)

// errFound stops a directory walk at the first image.
var errFound = errors.New("image found")

// IsImageName reports whether name carries one of the image markers.
func IsImageName(name string) bool {
	return strings.Contains(name, JPEGMarker) || strings.Contains(name, PNGMarker)
}

// FindImages walks dir and all of its subdirectories and returns the paths
// of regular files whose names satisfy IsImageName, in lexical walk order.
// Subdirectories that cannot be read are skipped.
func FindImages(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return skipUnreadable(dir, path, err)
		}
		if d.IsDir() || !IsImageName(d.Name()) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// HasImages reports whether dir contains at least one image file at any depth.
// Unreadable or missing directories report false.
func HasImages(dir string) bool {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return skipUnreadable(dir, path, err)
		}
		if !d.IsDir() && IsImageName(d.Name()) {
			return errFound
		}
		return nil
	})
	return errors.Is(err, errFound)
}

// skipUnreadable ends the walk for errors on root and passes over any
// entry beneath it that cannot be read.
func skipUnreadable(root, path string, err error) error {
	if path == root {
		return err
	}
	return nil
}

// ContentType returns the media type of an image attachment. The payload is
// sniffed first; when it is not a recognizable image the file name decides.
func ContentType(name string, content []byte) string {
	mt := mimetype.Detect(content)
	if strings.HasPrefix(mt.String(), "image/") {
		return mt.String()
	}
	if strings.Contains(name, PNGMarker) {
		return "image/png"
	}
	return "image/jpeg"
}
