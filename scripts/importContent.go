package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/config"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/content"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/database"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/logger"
)

// Usage: go run ./scripts [bundle.yaml | dir ...]
// Directories are scanned for *.yaml and *.yml files. Defaults to ./content.
func main() {
	// Load config and connect to database
	cfg := config.LoadConfig()
	logg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logg.Sync()

	db, err := database.ConnectDb(cfg, logg)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}

	args := os.Args[1:]
	if len(args) == 0 {
		args = []string{"content"}
	}
	files, err := bundleFiles(args)
	if err != nil {
		log.Fatalf("Failed to list bundles: %v", err)
	}
	if len(files) == 0 {
		log.Fatal("No content bundles found")
	}
	log.Printf("Total bundles to import: %d", len(files))

	importer := content.NewImporter(db, logg)
	failed := 0
	for _, path := range files {
		rep, err := importer.ImportFile(context.Background(), path)
		if err != nil {
			log.Printf("Error importing %s: %v", path, err)
			failed++
			continue
		}
		log.Printf("%s: courses=%d modules=%d lessons=%d quizzes=%d sequences=%d emails=%d unpublished=%d",
			path, rep.Courses, rep.Modules, rep.Lessons, rep.Quizzes, rep.Sequences, rep.Emails, rep.UnpublishedLessons)
	}

	log.Printf("Import completed: %d imported, %d failed", len(files)-failed, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func bundleFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		for _, pattern := range []string{"*.yaml", "*.yml"} {
			matches, err := filepath.Glob(filepath.Join(arg, pattern))
			if err != nil {
				return nil, err
			}
			files = append(files, matches...)
		}
	}
	sort.Strings(files)
	return files, nil
}
