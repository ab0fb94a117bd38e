package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/dodeck/internal/formatter"
	"github.com/desertthunder/dodeck/internal/models"
	"github.com/desertthunder/dodeck/internal/shared"
	"golang.org/x/time/rate"
)

// DeckSource lists decks and their dos. [services.DeckClient] implements it.
type DeckSource interface {
	DeckLister
	DosLister
}

// ExportOpts contains configuration for bulk deck exports.
type ExportOpts struct {
	Format     formatter.Format // txt, csv, md or json (default)
	OutputDir  string           // Base output directory (default: dodeck_export_{epoch})
	Search     string           // Only export decks whose name starts with this
	NumWorkers int              // Concurrent file writers (default: 4, max 10)
	RateLimit  float64          // Dos requests per second (default: 5)
}

// DeckExportResult is the outcome for one deck.
type DeckExportResult struct {
	DeckID   string   `json:"deckId"`
	DeckName string   `json:"name"`
	Success  bool     `json:"success"`
	Files    []string `json:"files,omitempty"`
	Error    string   `json:"error,omitempty"`
	index    int
}

// ExportResult summarizes a bulk export; it is also written as the manifest.
type ExportResult struct {
	TotalDecks        int                `json:"totalDecks"`
	SuccessfulExports int                `json:"successful"`
	FailedExports     int                `json:"failed"`
	OutputDirectory   string             `json:"outputDirectory"`
	ManifestPath      string             `json:"-"`
	Results           []DeckExportResult `json:"results"`
}

type exportJob struct {
	index  int
	export *models.DeckExport
}

// ExportDecks writes every visible deck with its dos to opts.OutputDir.
//
// Dos are fetched one deck at a time under a rate limit while a worker pool writes files.
// A deck whose dos cannot be fetched is recorded as failed without stopping the export.
// An export_manifest.json summarizing the run is written last.
func ExportDecks(ctx context.Context, prog chan<- ProgressUpdate, src DeckSource, opts ExportOpts) (*ExportResult, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: deck client not initialized", shared.ErrServiceUnavailable)
	}

	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("dodeck_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	sendProgress(prog, fetchingDecksUpdate(opts.Search))
	decks, err := src.ListDecks(ctx, opts.Search)
	if err != nil {
		return nil, fmt.Errorf("failed to list decks: %w", err)
	}
	sendProgress(prog, foundDecksUpdate(len(decks)))

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &ExportResult{
		TotalDecks:      len(decks),
		OutputDirectory: opts.OutputDir,
		Results:         make([]DeckExportResult, 0, len(decks)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan exportJob, len(decks))
	results := make(chan DeckExportResult, len(decks))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go exportWorker(ctx, &wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i, deck := range decks {
			if err := limiter.Wait(ctx); err != nil {
				return
			}

			sendProgress(prog, fetchingDosUpdate(i+1, len(decks), deck.Name))
			dos, err := src.ListDos(ctx, deck.ID)
			if err != nil {
				results <- DeckExportResult{
					DeckID:   deck.ID,
					DeckName: deck.Name,
					Error:    fmt.Sprintf("failed to fetch dos: %v", err),
					index:    i,
				}
				continue
			}
			jobs <- exportJob{index: i, export: &models.DeckExport{Deck: deck, Dos: dos}}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			sendProgress(prog, exportCompletedUpdate(completed, len(decks), res.DeckName, len(res.Files)))
		} else {
			result.FailedExports++
			sendProgress(prog, exportFailedUpdate(completed, len(decks), res.DeckName, fmt.Errorf("%s", res.Error)))
		}
	}

	sort.Slice(result.Results, func(i, j int) bool { return result.Results[i].index < result.Results[j].index })

	if err := ctx.Err(); err != nil {
		return result, err
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	sendProgress(prog, manifestUpdate(manifestPath))
	return result, nil
}

// exportWorker writes decks from the jobs channel until it closes.
func exportWorker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan exportJob, results chan<- DeckExportResult, opts ExportOpts) {
	defer wg.Done()

	for job := range jobs {
		if ctx.Err() != nil {
			results <- DeckExportResult{
				DeckID:   job.export.Deck.ID,
				DeckName: job.export.Deck.Name,
				Error:    ctx.Err().Error(),
				index:    job.index,
			}
			continue
		}
		results <- exportSingleDeck(job, opts)
	}
}

// exportSingleDeck writes one deck in the configured format.
func exportSingleDeck(j exportJob, opts ExportOpts) DeckExportResult {
	deck := j.export.Deck
	result := DeckExportResult{DeckID: deck.ID, DeckName: deck.Name, Files: []string{}, index: j.index}
	base := filepath.Join(opts.OutputDir, fileBase(deck, j.index))

	switch opts.Format {
	case formatter.FormatCSV:
		res, err := formatter.WriteCSVExport(j.export, base)
		if err != nil {
			result.Error = fmt.Sprintf("CSV export failed: %v", err)
			return result
		}
		result.Files = []string{res.DosFile, res.MetadataFile}
	case formatter.FormatMarkdown:
		path, err := formatter.WriteMarkdownExport(j.export, base)
		if err != nil {
			result.Error = fmt.Sprintf("markdown export failed: %v", err)
			return result
		}
		result.Files = []string{path}
	case formatter.FormatText:
		path, err := formatter.WriteTextExport(j.export, base+"_dos.txt")
		if err != nil {
			result.Error = fmt.Sprintf("text export failed: %v", err)
			return result
		}
		result.Files = []string{path}
	default:
		path, err := formatter.WriteJSONExport(j.export, base+".json")
		if err != nil {
			result.Error = err.Error()
			return result
		}
		result.Files = []string{path}
	}

	result.Success = true
	return result
}

var unsafeFileChars = regexp.MustCompile(`[^a-z0-9]+`)

// fileBase names a deck's files by id, falling back to a slug of its name.
func fileBase(deck models.Deck, index int) string {
	if deck.ID != "" && !strings.ContainsAny(deck.ID, `/\`) {
		return deck.ID
	}
	slug := strings.Trim(unsafeFileChars.ReplaceAllString(strings.ToLower(deck.Name), "-"), "-")
	if slug == "" {
		slug = "deck"
	}
	return fmt.Sprintf("%03d-%s", index+1, slug)
}
