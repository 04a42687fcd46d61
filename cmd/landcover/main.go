// Command landcover runs the land cover classification pipeline and
// manages its run history database.
//
// Usage:
//
//	landcover run -config run.json
//	landcover migrate <up|down|version> [-db runs.db] [-migrations dir]
//	landcover history [-db runs.db] [-n 20]
//	landcover serve [-db runs.db] [-artifacts out] [-addr :8080]
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/meridian-geo/landcover.report/internal/api"
	"github.com/meridian-geo/landcover.report/internal/config"
	"github.com/meridian-geo/landcover.report/internal/pipeline"
	"github.com/meridian-geo/landcover.report/internal/store"
	"github.com/meridian-geo/landcover.report/internal/version"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runCommand(os.Args[2:])
	case "migrate":
		migrateCommand(os.Args[2:])
	case "history":
		historyCommand(os.Args[2:])
	case "serve":
		serveCommand(os.Args[2:])
	case "version":
		fmt.Printf("landcover %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
	case "help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage:
  landcover run -config <run.json>        Run a classification
  landcover migrate <up|down|version>     Manage the run history schema
  landcover history [-n 20]               List recent runs
  landcover serve [-addr :8080]           Serve run history and artifacts
  landcover version                       Print version`)
}

func runCommand(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "run.json", "run configuration file")
	noHistory := fs.Bool("no-history", false, "skip recording the run in the history database")
	migrations := fs.String("migrations", "internal/store/migrations", "migrations directory")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	p := pipeline.New(cfg)
	if !*noHistory {
		st, err := store.Open(cfg.GetHistoryDB())
		if err != nil {
			log.Fatalf("Failed to open run history: %v", err)
		}
		defer st.Close()
		if err := st.MigrateUp(*migrations); err != nil {
			log.Fatalf("Failed to migrate run history: %v", err)
		}
		p = p.WithStore(st)
	}

	start := time.Now()
	res, err := p.Run()
	if err != nil {
		log.Fatalf("Run failed: %v", err)
	}

	fmt.Printf("Run %s finished in %s\n", res.RunID, time.Since(start).Round(time.Millisecond))
	fmt.Printf("  raster:    %dx%d, %d bands\n", res.Rows, res.Cols, res.Bands)
	fmt.Printf("  accuracy:  %.3f\n", res.Accuracy)
	fmt.Printf("  labels:    %s\n", res.LabelPath)
	fmt.Printf("  report:    %s\n", res.ReportPath)
}

func migrateCommand(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: landcover migrate <up|down|version> [-db runs.db] [-migrations dir]")
		os.Exit(1)
	}
	action := args[0]

	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	dbPath := fs.String("db", "runs.db", "run history database")
	migrations := fs.String("migrations", "internal/store/migrations", "migrations directory")
	fs.Parse(args[1:])

	st, err := store.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer st.Close()

	switch action {
	case "up":
		if err := st.MigrateUp(*migrations); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migrations applied")
	case "down":
		if err := st.MigrateDown(*migrations); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Rolled back one migration")
	case "version":
		version, dirty, err := st.MigrateVersion(*migrations)
		if err != nil {
			log.Fatalf("Failed to read version: %v", err)
		}
		fmt.Printf("version %d, dirty=%v\n", version, dirty)
	default:
		fmt.Printf("Unknown migrate action: %s\n", action)
		os.Exit(1)
	}
}

func serveCommand(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	dbPath := fs.String("db", "runs.db", "run history database")
	artifacts := fs.String("artifacts", "out", "artifact directory to serve")
	addr := fs.String("addr", ":8080", "listen address")
	fs.Parse(args)

	st, err := store.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer st.Close()

	if err := api.NewServer(st, *artifacts).ListenAndServe(*addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func historyCommand(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	dbPath := fs.String("db", "runs.db", "run history database")
	limit := fs.Int("n", 20, "number of runs to list")
	fs.Parse(args)

	st, err := store.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer st.Close()

	runs, err := st.ListRecent(*limit)
	if err != nil {
		log.Fatalf("Failed to list runs: %v", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded")
		return
	}

	for _, r := range runs {
		created := time.Unix(0, r.CreatedAt).Format(time.RFC3339)
		fmt.Printf("%s  %s  %s  %dx%d/%d  acc=%.3f  %s\n",
			created, r.RunID, r.Classifier, r.Rows, r.Cols, r.Bands, r.Accuracy, r.RasterPath)
	}
}
