package survey

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"github.com/paulmach/orb"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// InventoryRenderer draws the inventory as a labeled overview PNG: shape
// outlines, route polylines, and GPS point markers.
type InventoryRenderer struct {
	Inventory *Inventory
	Width     int  // output width in pixels (height follows the aspect ratio)
	Padding   int  // padding around the drawing, in pixels
	Labels    bool // draw feature names next to shapes and points
}

// NewInventoryRenderer creates a renderer with default settings.
func NewInventoryRenderer(inv *Inventory) *InventoryRenderer {
	return &InventoryRenderer{
		Inventory: inv,
		Width:     1200,
		Padding:   40,
		Labels:    true,
	}
}

var (
	shapeColor = color.RGBA{0, 0, 139, 255}    // dark blue outlines
	routeColor = color.RGBA{184, 134, 11, 255} // dark goldenrod paths
	pointColor = color.RGBA{139, 0, 0, 255}    // dark red markers
	labelColor = color.RGBA{40, 40, 40, 255}
)

// bounds returns the lat/lng bounding box of every feature in the inventory.
func (r *InventoryRenderer) bounds() (orb.Bound, bool) {
	b := orb.Bound{
		Min: orb.Point{math.Inf(1), math.Inf(1)},
		Max: orb.Point{math.Inf(-1), math.Inf(-1)},
	}
	found := false

	extend := func(p orb.Point) {
		b = b.Extend(p)
		found = true
	}
	for _, s := range r.Inventory.Shapes {
		for _, c := range s.Coords {
			extend(c)
		}
	}
	for _, rt := range r.Inventory.Routes {
		for _, c := range rt.Coords {
			extend(c)
		}
	}
	for _, p := range r.Inventory.Points {
		extend(orb.Point{p.Lat, p.Lng})
	}
	return b, found
}

// Render draws the inventory into an RGBA image.
func (r *InventoryRenderer) Render() (*image.RGBA, error) {
	b, ok := r.bounds()
	if !ok {
		return nil, fmt.Errorf("rendering inventory: no features to draw")
	}

	// Stored pairs are [lat, lng]: x is longitude, y is latitude, and the
	// image y axis points down while latitude grows north.
	spanLng := b.Max[1] - b.Min[1]
	spanLat := b.Max[0] - b.Min[0]
	if spanLng == 0 {
		spanLng = 1e-6
	}
	if spanLat == 0 {
		spanLat = 1e-6
	}

	drawW := r.Width - 2*r.Padding
	scale := float64(drawW) / spanLng
	drawH := int(spanLat * scale)
	if drawH < 1 {
		drawH = 1
	}
	width := r.Width
	height := drawH + 2*r.Padding

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = 255 // white background
	}

	toPixel := func(p orb.Point) (int, int) {
		x := r.Padding + int((p[1]-b.Min[1])*scale)
		y := r.Padding + int((b.Max[0]-p[0])*scale)
		return x, y
	}

	for _, s := range r.Inventory.Shapes {
		drawRing(img, s.Coords, toPixel, shapeColor)
		if r.Labels {
			cx, cy := toPixel(orb.Point{s.Center[0], s.Center[1]})
			drawLabel(img, cx-len(s.Name)*3, cy, s.Name, labelColor)
		}
	}
	for _, rt := range r.Inventory.Routes {
		drawPolyline(img, rt.Coords, toPixel, routeColor)
	}
	for _, p := range r.Inventory.Points {
		x, y := toPixel(orb.Point{p.Lat, p.Lng})
		drawMarker(img, x, y, 4, pointColor)
		if r.Labels {
			drawLabel(img, x+6, y+4, p.Name, labelColor)
		}
	}

	return img, nil
}

// SavePNG renders the inventory and writes it to a PNG file.
func (r *InventoryRenderer) SavePNG(path string) error {
	img, err := r.Render()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encoding PNG: %w", err)
	}
	return nil
}

func drawRing(img *image.RGBA, ring orb.Ring, toPixel func(orb.Point) (int, int), c color.RGBA) {
	drawPolyline(img, orb.LineString(ring), toPixel, c)
	// Close the ring when the export left it open.
	if len(ring) > 2 && ring[0] != ring[len(ring)-1] {
		x0, y0 := toPixel(ring[len(ring)-1])
		x1, y1 := toPixel(ring[0])
		drawLine(img, x0, y0, x1, y1, c)
	}
}

func drawPolyline(img *image.RGBA, line orb.LineString, toPixel func(orb.Point) (int, int), c color.RGBA) {
	for i := 0; i+1 < len(line); i++ {
		x0, y0 := toPixel(line[i])
		x1, y1 := toPixel(line[i+1])
		drawLine(img, x0, y0, x1, y1, c)
	}
}

// drawLine draws a line using Bresenham's algorithm.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	for {
		setPixel(img, x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// drawMarker draws a filled circle marker.
func drawMarker(img *image.RGBA, cx, cy, radius int, c color.RGBA) {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= radius*radius {
				setPixel(img, cx+dx, cy+dy, c)
			}
		}
	}
}

// drawLabel draws text with the fixed 7x13 bitmap font.
func drawLabel(img *image.RGBA, x, y int, text string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

func setPixel(img *image.RGBA, x, y int, c color.RGBA) {
	if x >= 0 && x < img.Bounds().Max.X && y >= 0 && y < img.Bounds().Max.Y {
		img.Set(x, y, c)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
