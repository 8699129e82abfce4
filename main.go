package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/willslawrence/sfla-tracker/survey"
)

// Version is set at build time via -ldflags
var Version = "dev"

func printUsage() {
	fmt.Fprintf(os.Stderr, `SFLA Tracker %s

Usage:
  sfla-tracker sync <path-to-kml-or-kmz> [-apply] [-config config.yaml]
        Diff a KML/KMZ export against the current inventory. Dry run by
        default; -apply merges shapes.js and creates new Airtable sites.

  sfla-tracker report [-month YYYY-MM] [-o report.pdf] [-config config.yaml]
        Generate the monthly site status report (PDF, or SVG by extension).

  sfla-tracker render [-o map.png] [-config config.yaml]
        Render the current inventory as a labeled overview PNG.
`, Version)
}

// parseArgs parses a flag set that also takes positional arguments, accepting
// flags both before and after the positionals (sync <path> -apply).
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	var positional []string
	for fs.NArg() > 0 {
		positional = append(positional, fs.Arg(0))
		if err := fs.Parse(fs.Args()[1:]); err != nil {
			return nil, err
		}
	}
	return positional, nil
}

func newApp(configPath string) (*App, error) {
	config, err := survey.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return &App{Config: config}, nil
}

func runSync(args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to configuration file")
	apply := fs.Bool("apply", false, "Apply the changes instead of reporting them")

	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		fs.Usage()
		return fmt.Errorf("sync requires exactly one KML/KMZ path")
	}

	app, err := newApp(*configFile)
	if err != nil {
		return err
	}
	return app.RunSync(positional[0], *apply)
}

func runReport(args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to configuration file")
	month := fs.String("month", "", "Report month as YYYY-MM (default: current month)")
	output := fs.String("o", "report.pdf", "Output file (.pdf or .svg)")

	if _, err := parseArgs(fs, args); err != nil {
		return err
	}

	app, err := newApp(*configFile)
	if err != nil {
		return err
	}
	return app.RunReport(*month, *output)
}

func runRender(args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to configuration file")
	output := fs.String("o", "map.png", "Output PNG file")

	if _, err := parseArgs(fs, args); err != nil {
		return err
	}

	app, err := newApp(*configFile)
	if err != nil {
		return err
	}
	return app.RunRender(*output)
}

func main() {
	log.SetFlags(0)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "sync":
		err = runSync(os.Args[2:])
	case "report":
		err = runReport(os.Args[2:])
	case "render":
		err = runRender(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}
