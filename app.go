package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/willslawrence/sfla-tracker/survey"
)

// App encapsulates the application configuration and dependencies
type App struct {
	Config *survey.Config

	// Remote overrides the Airtable client, and Notifier the MQTT
	// notifier; both are built from Config when nil. Used by tests.
	Remote   *survey.AirtableClient
	Notifier *survey.Notifier
}

func (a *App) remoteClient() *survey.AirtableClient {
	if a.Remote != nil {
		return a.Remote
	}
	return survey.NewAirtableClient(a.Config.Airtable.BaseID, a.Config.Airtable.APIKey)
}

// RunSync diffs a KML/KMZ export against the current inventory, and applies
// the merge when apply is true.
func (a *App) RunSync(path string, apply bool) error {
	mode := "DRY RUN"
	if apply {
		mode = "APPLYING"
	}
	fmt.Printf("%s: Syncing from %s\n", mode, filepath.Base(path))
	fmt.Println(strings.Repeat("=", 60))

	text, err := survey.LoadDocumentText(path)
	if err != nil {
		return err
	}
	doc, err := survey.ParseKML(text)
	if err != nil {
		return err
	}
	inventory, err := survey.LoadInventory(a.Config.ShapesPath)
	if err != nil {
		return err
	}

	summary := survey.Summarize(inventory, doc)
	a.printSummary(summary)

	if !summary.NeedsApply() {
		if len(summary.Report.Removed) == 0 {
			fmt.Println("\nNo changes detected.")
		} else {
			fmt.Println("\nOnly removals detected. Shapes NOT auto-deleted (safety).")
			fmt.Println("To remove, manually delete from Airtable and re-run with full KMZ.")
		}
		return nil
	}

	if !apply {
		fmt.Println("\nRun with -apply to apply these changes.")
		return nil
	}

	fmt.Println("\nApplying changes...")

	reconciler := &survey.Reconciler{
		StorePath: a.Config.ShapesPath,
		Remote:    a.remoteClient(),
		Table:     a.Config.Airtable.SitesTable,
	}

	result, applyErr := reconciler.Apply(context.Background(), inventory, doc, summary.Report)
	if result != nil && result.Inventory != nil {
		fmt.Printf("  Updated %s: %d shapes, %d routes, %d GPS points\n",
			a.Config.ShapesPath,
			len(result.Inventory.Shapes), len(result.Inventory.Routes), len(result.Inventory.Points))
		for _, name := range result.Created {
			fmt.Printf("  Airtable: Created '%s' as %s\n", name, survey.DefaultSiteStatus)
		}
	}
	if applyErr != nil {
		return applyErr
	}

	if removed := summary.Report.Removed; len(removed) > 0 {
		fmt.Printf("  Note: %d shapes in current but not in KML (NOT deleted)\n", len(removed))
		fmt.Printf("  Remove manually from Airtable if no longer needed: %s\n", strings.Join(removed, ", "))
	}

	a.notify(path, summary, result)

	fmt.Println("\nDone!")
	return nil
}

func (a *App) printSummary(s *survey.Summary) {
	fmt.Printf("\nShapes in KML:     %d\n", s.IncomingShapes)
	fmt.Printf("Shapes in current: %d\n", s.CurrentShapes)
	fmt.Printf("  Added:     %d\n", len(s.Report.Added))
	fmt.Printf("  Removed:   %d\n", len(s.Report.Removed))
	fmt.Printf("  Modified:  %d\n", len(s.Report.Modified))
	fmt.Printf("  Unchanged: %d\n", len(s.Report.Unchanged))

	if len(s.Points) > 0 {
		fmt.Printf("\nGPS Points: %d\n", len(s.Points))
		for _, p := range s.Points {
			fmt.Printf("  %s (%.6f, %.6f)\n", p.Name, p.Lat, p.Lng)
		}
	}
	if len(s.Routes) > 0 {
		fmt.Printf("\nRoutes: %d\n", len(s.Routes))
		for _, r := range s.Routes {
			fmt.Printf("  %s (%d points)\n", r.Name, len(r.Coords))
		}
	}
	if len(s.Report.Added) > 0 {
		fmt.Println("\n+ ADDED shapes:")
		for _, n := range s.Report.Added {
			fmt.Printf("  + %s\n", n)
		}
	}
	if len(s.Report.Removed) > 0 {
		fmt.Println("\n- REMOVED shapes (kept in shapes.js + Airtable, just flagged):")
		for _, n := range s.Report.Removed {
			fmt.Printf("  - %s\n", n)
		}
	}
	if len(s.Report.Modified) > 0 {
		fmt.Println("\n~ MODIFIED shapes (coords updated, Airtable data preserved):")
		for _, n := range s.Report.Modified {
			fmt.Printf("  ~ %s\n", n)
		}
	}
}

// notify publishes a sync event when MQTT is configured. Notification
// failures are warnings; the sync itself already succeeded.
func (a *App) notify(path string, s *survey.Summary, result *survey.ApplyResult) {
	notifier := a.Notifier
	if notifier == nil {
		if a.Config.MQTT == nil {
			return
		}
		var err error
		notifier, err = survey.ConnectNotifier(a.Config.MQTT)
		if err != nil {
			log.Printf("Warning: %v", err)
			return
		}
	}

	event := &survey.SyncEvent{
		Source:    filepath.Base(path),
		Added:     len(s.Report.Added),
		Removed:   len(s.Report.Removed),
		Modified:  len(s.Report.Modified),
		Unchanged: len(s.Report.Unchanged),
		Shapes:    len(result.Inventory.Shapes),
		Routes:    len(result.Inventory.Routes),
		Points:    len(result.Inventory.Points),
	}
	if err := notifier.PublishSyncEvent(event); err != nil {
		log.Printf("Warning: publishing sync event: %v", err)
	}
}

// RunReport generates the monthly site status report.
func (a *App) RunReport(month, output string) error {
	ref := time.Now().UTC()
	if month != "" {
		parsed, err := time.Parse("2006-01", month)
		if err != nil {
			return fmt.Errorf("invalid month %q (want YYYY-MM): %w", month, err)
		}
		ref = parsed
	}

	report, err := survey.FetchMonthlyReport(context.Background(), a.remoteClient(), a.Config.Airtable.SitesTable, ref)
	if err != nil {
		return err
	}

	fmt.Printf("Report for %s: %d sites, %d new this month\n",
		report.Month.Format("January 2006"), len(report.Sites), len(report.NewThisMonth))

	f, err := createFile(output)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if strings.HasSuffix(strings.ToLower(output), ".svg") {
		err = report.RenderSVG(f)
	} else {
		err = report.RenderPDF(f)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Created: %s\n", output)
	return nil
}

func createFile(path string) (*os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return f, nil
}

// RunRender draws the current inventory to a PNG.
func (a *App) RunRender(output string) error {
	inventory, err := survey.LoadInventory(a.Config.ShapesPath)
	if err != nil {
		return err
	}

	renderer := survey.NewInventoryRenderer(inventory)
	if err := renderer.SavePNG(output); err != nil {
		return err
	}

	fmt.Printf("Created: %s (%d shapes, %d routes, %d GPS points)\n",
		output, len(inventory.Shapes), len(inventory.Routes), len(inventory.Points))
	return nil
}
