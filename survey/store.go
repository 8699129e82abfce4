package survey

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// The inventory lives in a shapes.js file consumed directly by the map
// frontend: three const declarations whose initializers are plain JSON
// literals. The adapter extracts and rewrites those literals; everything else
// about the file is owned by the frontend.
var (
	shapesPattern = regexp.MustCompile(`(?s)const SHAPES = (\[.*?\]);`)
	routesPattern = regexp.MustCompile(`(?s)const ROUTES = (\[.*?\]);`)
	pointsPattern = regexp.MustCompile(`(?s)const GPS_POINTS = (\[.*?\]);`)
)

// LoadInventory reads the three collections from a shapes.js file. A missing
// ROUTES or GPS_POINTS declaration yields an empty collection; a missing
// SHAPES declaration is an error.
func LoadInventory(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading shapes file: %w", err)
	}

	inv := &Inventory{}

	m := shapesPattern.FindSubmatch(data)
	if m == nil {
		return nil, fmt.Errorf("shapes file %s: no SHAPES collection found", path)
	}
	if err := json.Unmarshal(m[1], &inv.Shapes); err != nil {
		return nil, fmt.Errorf("parsing SHAPES collection: %w", err)
	}

	if m := routesPattern.FindSubmatch(data); m != nil {
		if err := json.Unmarshal(m[1], &inv.Routes); err != nil {
			return nil, fmt.Errorf("parsing ROUTES collection: %w", err)
		}
	}
	if m := pointsPattern.FindSubmatch(data); m != nil {
		if err := json.Unmarshal(m[1], &inv.Points); err != nil {
			return nil, fmt.Errorf("parsing GPS_POINTS collection: %w", err)
		}
	}

	return inv, nil
}

// SaveInventory writes all three collections back to a shapes.js file. The
// full output is buffered first and then swapped into place via a temp file
// and rename, so a failure never leaves a half-written store behind.
func SaveInventory(path string, inv *Inventory) error {
	var buf bytes.Buffer

	if err := writeCollection(&buf, "SHAPES", nonNilShapes(inv.Shapes)); err != nil {
		return err
	}
	if err := writeCollection(&buf, "ROUTES", nonNilRoutes(inv.Routes)); err != nil {
		return err
	}
	if err := writeCollection(&buf, "GPS_POINTS", nonNilPoints(inv.Points)); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".shapes-*.js")
	if err != nil {
		return fmt.Errorf("creating temp shapes file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("writing shapes file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("writing shapes file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("writing shapes file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replacing shapes file: %w", err)
	}

	return nil
}

func writeCollection(buf *bytes.Buffer, name string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s collection: %w", name, err)
	}
	fmt.Fprintf(buf, "const %s = %s;\n", name, data)
	return nil
}

// JSON null is not a valid collection literal for the frontend, so nil slices
// become empty ones on write.
func nonNilShapes(s []Shape) []Shape {
	if s == nil {
		return []Shape{}
	}
	return s
}

func nonNilRoutes(r []Route) []Route {
	if r == nil {
		return []Route{}
	}
	return r
}

func nonNilPoints(p []Point) []Point {
	if p == nil {
		return []Point{}
	}
	return p
}
