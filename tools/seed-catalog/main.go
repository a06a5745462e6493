package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apicus/apicus/internal/catalog"
	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
)

// main loads one or more catalog files, normalizes plan order, and either
// upserts the documents into Postgres or writes them to a single JSON file.
//
// Fail-fast: if any source fails to load, nothing is written.
func main() {
	_ = godotenv.Load()

	sources := flag.String("source", "", "Comma-separated catalog files (.json, .yaml)")
	databaseURL := flag.String("database-url", os.Getenv("APICUS_DATABASE_URL"), "Postgres URL (defaults to APICUS_DATABASE_URL)")
	table := flag.String("table", catalog.DefaultTable, "Catalog table")
	out := flag.String("out", "", "Write a normalized JSON catalog here instead of seeding Postgres")
	flag.Parse()

	services, err := loadSources(*sources)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load catalog: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	switch {
	case *out != "":
		err = writeCatalog(services, *out)
	case *databaseURL != "":
		err = seed(ctx, services, *databaseURL, *table)
	default:
		err = fmt.Errorf("either --out or --database-url is required")
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadSources reads every file in the comma-separated list. Later files win
// on duplicate service IDs.
func loadSources(list string) ([]catalog.Service, error) {
	var paths []string
	for _, p := range strings.Split(list, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no --source files given")
	}

	byID := make(map[string]int)
	var services []catalog.Service
	for _, path := range paths {
		loaded, err := catalog.FileStore{Path: path}.Load(context.Background())
		if err != nil {
			return nil, err
		}
		for _, svc := range loaded {
			if svc.ID == "" {
				fmt.Printf("Skipping service without _id in %s\n", path)
				continue
			}
			normalized, reordered := catalog.Normalize(svc)
			if reordered {
				fmt.Printf("Reordered plans of %s by base price\n", svc.ID)
			}
			if i, ok := byID[svc.ID]; ok {
				services[i] = normalized
				continue
			}
			byID[svc.ID] = len(services)
			services = append(services, normalized)
		}
		fmt.Printf("Loaded %d services from %s\n", len(loaded), path)
	}
	return services, nil
}

func writeCatalog(services []catalog.Service, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := json.MarshalIndent(services, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Printf("Wrote %s (%d services)\n", path, len(services))
	return nil
}

func seed(ctx context.Context, services []catalog.Service, databaseURL, table string) error {
	pool, err := catalog.NewPostgresPool(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	store := catalog.NewPostgresStore(pool, table)
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	n, err := store.Save(ctx, services)
	if err != nil {
		return err
	}
	fmt.Printf("Seeded %d services into %s\n", n, store)
	return nil
}
