package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/dodeck/internal/formatter"
	"github.com/desertthunder/dodeck/internal/models"
	"github.com/desertthunder/dodeck/internal/tasks"
	"github.com/urfave/cli/v3"
)

// DecksList lists the decks visible to the signed-in user.
func (r *Runner) DecksList(ctx context.Context, cmd *cli.Command) error {
	search := cmd.String("search")

	client, err := r.deckClient(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("listing decks", "search", search)
	decks, err := client.ListDecks(ctx, search)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{"items": decks}, cmd.Bool("pretty"))
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	switch format {
	case formatter.FormatCSV:
		data, err := formatter.DecksToCSV(decks)
		if err != nil {
			return err
		}
		return r.writeBytes(data)
	case formatter.FormatMarkdown:
		return r.writeBytes(formatter.DecksToMarkdown(decks))
	case formatter.FormatJSON:
		return r.writeJSON(map[string]any{"items": decks}, cmd.Bool("pretty"))
	default:
		if len(decks) == 0 {
			return r.writePlain("No decks yet.\n")
		}
		return r.writeBytes(formatter.DecksToText(decks))
	}
}

// DecksShow prints one deck with its dos.
func (r *Runner) DecksShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.String("id")

	client, err := r.deckClient(ctx)
	if err != nil {
		return err
	}

	deck, err := client.GetDeck(ctx, id)
	if err != nil {
		return err
	}
	dos, err := client.ListDos(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(struct {
			*models.DeckDetail
			Dos []models.Do `json:"dos"`
		}{deck, dos}, true)
	}

	export := &models.DeckExport{
		Deck: models.Deck{ID: deck.ID, Name: deck.Name, IsOwner: deck.IsOwner, Collaborators: len(deck.Collaborators)},
		Dos:  dos,
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	switch format {
	case formatter.FormatCSV:
		data, err := formatter.ExportToCSV(export)
		if err != nil {
			return err
		}
		return r.writeBytes(data)
	case formatter.FormatMarkdown:
		return r.writeBytes(formatter.ExportToMarkdown(export))
	case formatter.FormatJSON:
		return r.writeJSON(export, true)
	}

	if err := r.writeBytes(formatter.ExportToText(export)); err != nil {
		return err
	}
	if len(deck.Collaborators) > 0 {
		return r.writePlain("Collaborators: %s\n", strings.Join(deck.Collaborators, ", "))
	}
	return nil
}

// DecksExport writes every deck with its dos to files, reporting progress as it goes.
func (r *Runner) DecksExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	client, err := r.deckClient(ctx)
	if err != nil {
		return err
	}

	opts := tasks.ExportOpts{
		Format:     format,
		OutputDir:  cmd.String("dir"),
		Search:     cmd.String("search"),
		NumWorkers: cmd.Int("workers"),
		RateLimit:  cmd.Float("rate"),
	}

	prog := make(chan tasks.ProgressUpdate, 32)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range prog {
			switch u.Phase {
			case tasks.ExportDeck:
				r.writePlain("[%d/%d] %s\n", u.Step, u.Total, u.Message)
			default:
				r.logger.Info(u.Message, "phase", u.Phase)
			}
		}
	}()

	result, err := tasks.ExportDecks(ctx, prog, client, opts)
	close(prog)
	<-done
	if err != nil {
		return err
	}

	r.writePlainln("✓ Exported %d/%d decks to %s", result.SuccessfulExports, result.TotalDecks, result.OutputDirectory)
	if result.FailedExports > 0 {
		r.writePlain("✗ %d decks failed:\n", result.FailedExports)
		for _, res := range result.Results {
			if !res.Success {
				r.writePlain("  • %s: %s\n", res.DeckName, res.Error)
			}
		}
	}
	if result.ManifestPath != "" {
		r.writePlain("Manifest: %s\n", result.ManifestPath)
	}
	return nil
}

// DosList prints the dos of a deck.
func (r *Runner) DosList(ctx context.Context, cmd *cli.Command) error {
	deckID := cmd.String("deck")

	client, err := r.deckClient(ctx)
	if err != nil {
		return err
	}

	dos, err := client.ListDos(ctx, deckID)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{"items": dos}, true)
	}
	if len(dos) == 0 {
		return r.writePlain("No dos yet.\n")
	}
	for _, d := range dos {
		mark := " "
		if d.Completed {
			mark = "x"
		}
		r.writePlain("[%s] %s\n", mark, d.Text)
	}
	return r.writePlain("\n%s\n", fmt.Sprintf("%d dos", len(dos)))
}
