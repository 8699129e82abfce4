package survey

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrNoGeometryDocument is returned when a KMZ archive contains no .kml entry.
var ErrNoGeometryDocument = errors.New("no .kml document found in archive")

// LoadDocumentText resolves the KML text for a .kml or .kmz path.
//
// For a .kmz path the archive must contain at least one entry ending in .kml;
// the first such entry (in archive order) is decoded and returned. For any
// other path the file contents are returned unchanged.
func LoadDocumentText(path string) (string, error) {
	if strings.HasSuffix(strings.ToLower(path), ".kmz") {
		return readKMZ(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading KML file: %w", err)
	}
	return string(data), nil
}

func readKMZ(path string) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("opening KMZ archive: %w", err)
	}
	defer func() { _ = r.Close() }()

	for _, f := range r.File {
		if !strings.HasSuffix(strings.ToLower(f.Name), ".kml") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("opening %s in archive: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return "", fmt.Errorf("reading %s in archive: %w", f.Name, err)
		}
		return string(data), nil
	}

	return "", fmt.Errorf("%s: %w", path, ErrNoGeometryDocument)
}
