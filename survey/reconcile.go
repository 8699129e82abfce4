package survey

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// DefaultSiteStatus is the status assigned to newly discovered shapes in the
// remote tracker.
const DefaultSiteStatus = "New SFLA"

// RecordCreator is the slice of the remote record store the apply path needs.
// *AirtableClient satisfies it.
type RecordCreator interface {
	Create(ctx context.Context, table string, records []Record) ([]Record, error)
}

// Summary is the dry-run view of a reconciliation: the diff report plus the
// incoming point and route collections for display. Producing it has no side
// effects beyond the reads that fed it.
type Summary struct {
	CurrentShapes  int
	IncomingShapes int
	Report         DiffReport
	Points         []Point
	Routes         []Route
}

// NeedsApply reports whether committing would change anything. A
// removal-only diff is a no-op on apply: shapes are never deleted
// automatically, so an incomplete export cannot destroy inventory.
func (s *Summary) NeedsApply() bool {
	return len(s.Report.Added) > 0 || len(s.Report.Modified) > 0 ||
		len(s.Points) > 0 || len(s.Routes) > 0
}

// Summarize builds the dry-run summary for a parsed document against the
// current inventory.
func Summarize(current *Inventory, incoming *Document) *Summary {
	return &Summary{
		CurrentShapes:  len(current.Shapes),
		IncomingShapes: len(incoming.Shapes),
		Report:         Diff(current.Shapes, incoming.Shapes),
		Points:         incoming.Points,
		Routes:         incoming.Routes,
	}
}

// Merge produces the post-apply inventory. Current shapes keep their order,
// with shapes named in added or modified replaced from the incoming document;
// added shapes are appended in sorted order. Removed names are retained
// verbatim. Points and routes are whole-collection replace-or-keep: the
// incoming collection wins only when non-empty.
func Merge(current *Inventory, incoming *Document, report DiffReport) *Inventory {
	inc := shapesByName(incoming.Shapes)
	replace := make(map[string]bool, len(report.Added)+len(report.Modified))
	for _, name := range report.Added {
		replace[name] = true
	}
	for _, name := range report.Modified {
		replace[name] = true
	}

	merged := make([]Shape, 0, len(current.Shapes)+len(report.Added))
	seen := make(map[string]bool, len(current.Shapes))
	for _, s := range current.Shapes {
		if seen[s.Name] {
			continue
		}
		seen[s.Name] = true
		if replace[s.Name] {
			merged = append(merged, inc[s.Name])
		} else {
			merged = append(merged, s)
		}
	}
	added := append([]string(nil), report.Added...)
	sort.Strings(added)
	for _, name := range added {
		if !seen[name] {
			merged = append(merged, inc[name])
		}
	}

	result := &Inventory{
		Shapes: merged,
		Routes: current.Routes,
		Points: current.Points,
	}
	if len(incoming.Routes) > 0 {
		result.Routes = incoming.Routes
	}
	if len(incoming.Points) > 0 {
		result.Points = incoming.Points
	}
	return result
}

// BatchError reports a failed remote creation batch, naming the records it
// carried so the operator can retry just that subset.
type BatchError struct {
	Names []string
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("creating remote records [%s]: %v", strings.Join(e.Names, ", "), e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// Reconciler applies a reconciliation: it writes the merged inventory and
// propagates newly added shapes to the remote record store.
type Reconciler struct {
	StorePath string
	Remote    RecordCreator
	Table     string
	Status    string // initial status for created records; DefaultSiteStatus if empty
	BatchSize int    // MaxCreateBatch if zero
}

// ApplyResult describes what a committed run did. Created lists the names
// confirmed by the remote store; on a batch failure it still holds the names
// from batches that succeeded before the failure.
type ApplyResult struct {
	Inventory *Inventory
	Created   []string
}

// Apply commits a reconciliation. The merged inventory is written first; a
// store write failure aborts before any remote call. Remote creations for
// added shapes are then issued in order, BatchSize names at a time, stopping
// at the first failed batch.
//
// Creation is at-least-once: a re-run after a partial failure can duplicate
// remote records for names that were created before the failing batch.
func (r *Reconciler) Apply(ctx context.Context, current *Inventory, incoming *Document, report DiffReport) (*ApplyResult, error) {
	merged := Merge(current, incoming, report)
	if err := SaveInventory(r.StorePath, merged); err != nil {
		return nil, err
	}

	result := &ApplyResult{Inventory: merged}

	added := append([]string(nil), report.Added...)
	sort.Strings(added)
	if len(added) == 0 || r.Remote == nil {
		return result, nil
	}

	status := r.Status
	if status == "" {
		status = DefaultSiteStatus
	}
	batchSize := r.BatchSize
	if batchSize <= 0 {
		batchSize = MaxCreateBatch
	}

	for start := 0; start < len(added); start += batchSize {
		end := start + batchSize
		if end > len(added) {
			end = len(added)
		}
		names := added[start:end]

		records := make([]Record, len(names))
		for i, name := range names {
			records[i] = Record{Fields: map[string]interface{}{
				"Name":   name,
				"Status": status,
			}}
		}

		created, err := r.Remote.Create(ctx, r.Table, records)
		if err != nil {
			return result, &BatchError{Names: names, Err: err}
		}
		for _, rec := range created {
			result.Created = append(result.Created, rec.Name())
		}
	}

	return result, nil
}
