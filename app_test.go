package main

import (
	"encoding/json"
	"flag"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/willslawrence/sfla-tracker/survey"
)

const testShapesJS = `const SHAPES = [{"name":"A","coords":[[1,1],[2,2],[1,1]],"center":[1.333333,1.333333]},{"name":"C","coords":[[7,7],[8,8],[7,7]],"center":[7.333333,7.333333]}];
const ROUTES = [];
const GPS_POINTS = [];
`

// testKML carries shape A unchanged and a new shape B; C is absent.
const testKML = `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2">
  <Document>
    <Placemark>
      <name>A</name>
      <Polygon><outerBoundaryIs><LinearRing>
        <coordinates>1,1,0 2,2,0 1,1,0</coordinates>
      </LinearRing></outerBoundaryIs></Polygon>
    </Placemark>
    <Placemark>
      <name>B</name>
      <Polygon><outerBoundaryIs><LinearRing>
        <coordinates>5,5,0 6,6,0 5,5,0</coordinates>
      </LinearRing></outerBoundaryIs></Polygon>
    </Placemark>
  </Document>
</kml>`

func setupSync(t *testing.T) (shapesPath, kmlPath string) {
	t.Helper()
	dir := t.TempDir()

	shapesPath = filepath.Join(dir, "shapes.js")
	if err := os.WriteFile(shapesPath, []byte(testShapesJS), 0o644); err != nil {
		t.Fatal(err)
	}
	kmlPath = filepath.Join(dir, "export.kml")
	if err := os.WriteFile(kmlPath, []byte(testKML), 0o644); err != nil {
		t.Fatal(err)
	}
	return shapesPath, kmlPath
}

func newTestApp(shapesPath string, remote *survey.AirtableClient) *App {
	return &App{
		Config: &survey.Config{
			Airtable:   survey.AirtableConfig{BaseID: "base", APIKey: "key", SitesTable: "Sites"},
			ShapesPath: shapesPath,
		},
		Remote:   remote,
		Notifier: survey.NewNotifier(nil, ""),
	}
}

func TestRunSync_DryRunDoesNotMutate(t *testing.T) {
	shapesPath, kmlPath := setupSync(t)

	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	remote := survey.NewAirtableClient("base", "key",
		survey.WithBaseURL(srv.URL), survey.WithHTTPClient(srv.Client()))
	app := newTestApp(shapesPath, remote)

	if err := app.RunSync(kmlPath, false); err != nil {
		t.Fatalf("RunSync() error: %v", err)
	}

	after, err := os.ReadFile(shapesPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(after) != testShapesJS {
		t.Error("dry run mutated shapes.js")
	}
	if n := requests.Load(); n != 0 {
		t.Errorf("dry run issued %d remote requests", n)
	}
}

func TestRunSync_Apply(t *testing.T) {
	shapesPath, kmlPath := setupSync(t)

	var createdNames []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected %s request", r.Method)
		}
		var body struct {
			Records []survey.Record `json:"records"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding body: %v", err)
		}
		for _, rec := range body.Records {
			createdNames = append(createdNames, rec.Name())
		}
		_ = json.NewEncoder(w).Encode(body)
	}))
	defer srv.Close()

	remote := survey.NewAirtableClient("base", "key",
		survey.WithBaseURL(srv.URL), survey.WithHTTPClient(srv.Client()))
	app := newTestApp(shapesPath, remote)

	if err := app.RunSync(kmlPath, true); err != nil {
		t.Fatalf("RunSync() error: %v", err)
	}

	t.Run("new shape created remotely", func(t *testing.T) {
		if len(createdNames) != 1 || createdNames[0] != "B" {
			t.Errorf("created = %v, want [B]", createdNames)
		}
	})

	t.Run("removed shape retained in store", func(t *testing.T) {
		inv, err := survey.LoadInventory(shapesPath)
		if err != nil {
			t.Fatalf("LoadInventory() error: %v", err)
		}
		names := make([]string, len(inv.Shapes))
		for i, s := range inv.Shapes {
			names[i] = s.Name
		}
		if strings.Join(names, ",") != "A,C,B" {
			t.Errorf("shapes after apply = %v, want [A C B]", names)
		}
	})
}

func TestRunSync_RemovalOnlyIsNoOp(t *testing.T) {
	shapesPath, _ := setupSync(t)
	dir := filepath.Dir(shapesPath)

	// Export containing only A: C becomes a removal, nothing else changes.
	removalKML := `<kml><Placemark><name>A</name>
		<Polygon><outerBoundaryIs><LinearRing>
			<coordinates>1,1,0 2,2,0 1,1,0</coordinates>
		</LinearRing></outerBoundaryIs></Polygon>
	</Placemark></kml>`
	kmlPath := filepath.Join(dir, "removal.kml")
	if err := os.WriteFile(kmlPath, []byte(removalKML), 0o644); err != nil {
		t.Fatal(err)
	}

	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
	}))
	defer srv.Close()

	remote := survey.NewAirtableClient("base", "key",
		survey.WithBaseURL(srv.URL), survey.WithHTTPClient(srv.Client()))
	app := newTestApp(shapesPath, remote)

	// Even with -apply, a removal-only diff must not touch anything.
	if err := app.RunSync(kmlPath, true); err != nil {
		t.Fatalf("RunSync() error: %v", err)
	}

	after, err := os.ReadFile(shapesPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(after) != testShapesJS {
		t.Error("removal-only apply mutated shapes.js")
	}
	if n := requests.Load(); n != 0 {
		t.Errorf("removal-only apply issued %d remote requests", n)
	}
}

func TestParseArgs_FlagsAfterPositional(t *testing.T) {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	apply := fs.Bool("apply", false, "")

	positional, err := parseArgs(fs, []string{"export.kmz", "-apply"})
	if err != nil {
		t.Fatalf("parseArgs() error: %v", err)
	}
	if len(positional) != 1 || positional[0] != "export.kmz" {
		t.Errorf("positional = %v", positional)
	}
	if !*apply {
		t.Error("-apply after the positional was not parsed")
	}
}
