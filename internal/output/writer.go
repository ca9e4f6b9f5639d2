// Package output writes the marker document consumed by the galaxy-map
// viewer.
package output

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/JYF/edmap/internal/model"
)

// Document is the output artifact: a single markers field, nothing else.
type Document struct {
	Markers []model.Marker `json:"markers"`
}

// WriteFile writes the marker document to path, gzipped when compress is
// set. The document is assembled in a temp file in the target directory and
// renamed into place, so a failed run never leaves a truncated artifact
// behind.
func WriteFile(path string, markers []model.Marker, compress bool) error {
	doc := Document{Markers: markers}
	if doc.Markers == nil {
		doc.Markers = []model.Marker{}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshalling markers: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("error creating output file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if compress {
		gz := gzip.NewWriter(tmp)
		if _, err = gz.Write(data); err == nil {
			err = gz.Close()
		}
	} else {
		_, err = tmp.Write(data)
	}
	if err != nil {
		_ = tmp.Close()
		return fmt.Errorf("error writing output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error closing output file: %w", err)
	}
	// CreateTemp opens 0600; the artifact is meant to be world-readable
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("error setting output file mode: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("error moving output into place: %w", err)
	}
	return nil
}
