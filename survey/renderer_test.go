package survey

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
)

func TestInventoryRenderer_Render(t *testing.T) {
	inv := &Inventory{
		Shapes: []Shape{shape("Zone Alpha",
			orb.Point{24.70, 46.70}, orb.Point{24.80, 46.70},
			orb.Point{24.80, 46.80}, orb.Point{24.70, 46.70})},
		Routes: []Route{{Name: "Corridor", Coords: orb.LineString{{24.72, 46.72}, {24.78, 46.78}}}},
		Points: []Point{{Name: "Helipad", Lat: 24.75, Lng: 46.75}},
	}

	r := NewInventoryRenderer(inv)
	img, err := r.Render()
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	bounds := img.Bounds()
	if bounds.Max.X != r.Width {
		t.Errorf("width = %d, want %d", bounds.Max.X, r.Width)
	}
	if bounds.Max.Y <= 2*r.Padding {
		t.Errorf("height = %d, want more than the padding", bounds.Max.Y)
	}

	// At least one non-white pixel must have been drawn.
	drawn := false
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 255 || img.Pix[i+1] != 255 || img.Pix[i+2] != 255 {
			drawn = true
			break
		}
	}
	if !drawn {
		t.Error("rendered image is entirely white")
	}
}

func TestInventoryRenderer_EmptyInventory(t *testing.T) {
	r := NewInventoryRenderer(&Inventory{})
	if _, err := r.Render(); err == nil {
		t.Fatal("expected error for empty inventory")
	}
}

func TestInventoryRenderer_SavePNG(t *testing.T) {
	inv := &Inventory{
		Points: []Point{
			{Name: "P1", Lat: 24.7, Lng: 46.7},
			{Name: "P2", Lat: 24.8, Lng: 46.8},
		},
	}

	path := filepath.Join(t.TempDir(), "map.png")
	if err := NewInventoryRenderer(inv).SavePNG(path); err != nil {
		t.Fatalf("SavePNG() error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() == 0 {
		t.Error("PNG file is empty")
	}
}
