package survey

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"sort"
	"time"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"github.com/tdewolff/canvas/renderers/svg"
)

// statusColors match the frontend's site legend.
var statusColors = map[string]color.RGBA{
	"Suitable":   {76, 175, 80, 255},
	"Unsuitable": {107, 114, 128, 255},
	"New SFLA":   {244, 67, 54, 255},
}

var (
	reportDark = color.RGBA{40, 40, 40, 255}
	reportMid  = color.RGBA{120, 120, 120, 255}
)

// RecordLister is the slice of the remote record store the report needs.
// *AirtableClient satisfies it.
type RecordLister interface {
	List(ctx context.Context, table, filterFormula string) ([]Record, error)
}

// MonthlyReport aggregates the remote site records for one month.
type MonthlyReport struct {
	Month        time.Time
	Sites        []Record       // all sites, sorted by name
	StatusCounts map[string]int // per-status totals
	NewThisMonth []Record       // sites created within Month, sorted by name
}

// BuildMonthlyReport aggregates records into a report for the month containing
// ref. Records whose createdTime does not parse are counted but never appear
// in NewThisMonth.
func BuildMonthlyReport(records []Record, ref time.Time) *MonthlyReport {
	start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	report := &MonthlyReport{
		Month:        start,
		Sites:        append([]Record(nil), records...),
		StatusCounts: make(map[string]int),
	}
	sort.Slice(report.Sites, func(i, j int) bool {
		return report.Sites[i].Name() < report.Sites[j].Name()
	})

	for _, rec := range report.Sites {
		status := rec.Status()
		if status == "" {
			status = "Unknown"
		}
		report.StatusCounts[status]++

		created, err := time.Parse(time.RFC3339, rec.CreatedTime)
		if err != nil {
			continue
		}
		if !created.Before(start) && created.Before(end) {
			report.NewThisMonth = append(report.NewThisMonth, rec)
		}
	}

	return report
}

// FetchMonthlyReport pulls all site records and aggregates them.
func FetchMonthlyReport(ctx context.Context, lister RecordLister, table string, ref time.Time) (*MonthlyReport, error) {
	records, err := lister.List(ctx, table, "")
	if err != nil {
		return nil, fmt.Errorf("fetching site records: %w", err)
	}
	return BuildMonthlyReport(records, ref), nil
}

// Statuses returns the report's status names sorted by descending count,
// ties broken by name.
func (r *MonthlyReport) Statuses() []string {
	names := make([]string, 0, len(r.StatusCounts))
	for name := range r.StatusCounts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if r.StatusCounts[names[i]] != r.StatusCounts[names[j]] {
			return r.StatusCounts[names[i]] > r.StatusCounts[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

// A4 page size in millimeters; canvas places the origin at the bottom left.
const (
	pageWidth  = 210.0
	pageHeight = 297.0
	pageMargin = 12.0
)

// reportRenderer is the subset of canvas.Renderer shared by the PDF and SVG
// backends.
type reportRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
	RenderText(text *canvas.Text, m canvas.Matrix)
}

// RenderPDF writes the report as a single-page A4 PDF.
func (r *MonthlyReport) RenderPDF(w io.Writer) error {
	fonts, err := loadReportFonts()
	if err != nil {
		return err
	}
	p := pdf.New(w, pageWidth, pageHeight, nil)
	r.renderTo(p, fonts)
	if err := p.Close(); err != nil {
		return fmt.Errorf("writing PDF: %w", err)
	}
	return nil
}

// RenderSVG writes the report as an A4-sized SVG.
func (r *MonthlyReport) RenderSVG(w io.Writer) error {
	fonts, err := loadReportFonts()
	if err != nil {
		return err
	}
	s := svg.New(w, pageWidth, pageHeight, nil)
	r.renderTo(s, fonts)
	if err := s.Close(); err != nil {
		return fmt.Errorf("writing SVG: %w", err)
	}
	return nil
}

type reportFonts struct {
	title *canvas.FontFace
	head  *canvas.FontFace
	body  *canvas.FontFace
	small *canvas.FontFace
}

func loadReportFonts() (*reportFonts, error) {
	family := canvas.NewFontFamily("sans")
	if err := family.LoadSystemFont("sans-serif", canvas.FontRegular); err != nil {
		return nil, fmt.Errorf("loading report font: %w", err)
	}
	return &reportFonts{
		title: family.Face(16.0, reportDark, canvas.FontBold, canvas.FontNormal),
		head:  family.Face(11.0, reportDark, canvas.FontBold, canvas.FontNormal),
		body:  family.Face(9.0, reportDark, canvas.FontRegular, canvas.FontNormal),
		small: family.Face(7.0, reportMid, canvas.FontItalic, canvas.FontNormal),
	}, nil
}

// renderTo draws the report onto a renderer (shared logic for PDF and SVG).
func (r *MonthlyReport) renderTo(renderer reportRenderer, fonts *reportFonts) {
	// White page background.
	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	renderer.RenderPath(canvas.Rectangle(pageWidth, pageHeight), bgStyle, canvas.Identity)

	y := pageHeight - pageMargin - 6.0

	text := func(x, baseline float64, face *canvas.FontFace, s string) {
		renderer.RenderText(canvas.NewTextLine(face, s, canvas.Left), canvas.Identity.Translate(x, baseline))
	}
	swatch := func(x, baseline float64, c color.RGBA) {
		style := canvas.DefaultStyle
		style.Fill = canvas.Paint{Color: c}
		renderer.RenderPath(canvas.Rectangle(3.0, 3.0), style, canvas.Identity.Translate(x, baseline))
	}

	text(pageMargin, y, fonts.title, "Riyadh UAM SFLA Report")
	y -= 6.0
	text(pageMargin, y, fonts.body, r.Month.Format("January 2006"))
	y -= 4.0

	ruleStyle := canvas.DefaultStyle
	ruleStyle.Fill = canvas.Paint{Color: color.RGBA{200, 200, 200, 255}}
	renderer.RenderPath(canvas.Rectangle(pageWidth-2*pageMargin, 0.3), ruleStyle, canvas.Identity.Translate(pageMargin, y))
	y -= 10.0

	text(pageMargin, y, fonts.head, fmt.Sprintf("Site Status (%d sites)", len(r.Sites)))
	y -= 7.0
	for _, status := range r.Statuses() {
		c, ok := statusColors[status]
		if !ok {
			c = reportMid
		}
		swatch(pageMargin, y, c)
		text(pageMargin+5.0, y, fonts.body, fmt.Sprintf("%s: %d", status, r.StatusCounts[status]))
		y -= 5.5
	}
	y -= 6.0

	text(pageMargin, y, fonts.head, fmt.Sprintf("New Sites in %s (%d)", r.Month.Format("January"), len(r.NewThisMonth)))
	y -= 7.0
	if len(r.NewThisMonth) == 0 {
		text(pageMargin, y, fonts.body, "No new sites this month.")
		y -= 5.5
	}
	for i, rec := range r.NewThisMonth {
		if y < pageMargin+15.0 {
			text(pageMargin, y, fonts.body, fmt.Sprintf("... and %d more", len(r.NewThisMonth)-i))
			y -= 5.5
			break
		}
		swatch(pageMargin, y, statusColors["New SFLA"])
		text(pageMargin+5.0, y, fonts.body, rec.Name())
		y -= 5.5
	}

	text(pageMargin, pageMargin, fonts.small,
		fmt.Sprintf("Generated %s | THC SFLA Tracker", time.Now().Format("2006-01-02 15:04")))
}
