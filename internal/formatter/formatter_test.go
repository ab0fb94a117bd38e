package formatter

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/dodeck/internal/models"
	"github.com/desertthunder/dodeck/internal/shared"
	th "github.com/desertthunder/dodeck/internal/testing"
)

func testExport() *models.DeckExport {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return &models.DeckExport{
		Deck: models.Deck{ID: "deck1", Name: "Groceries", IsOwner: true, Collaborators: 1},
		Dos: []models.Do{
			{ID: "do1", DeckID: "deck1", Text: "Milk", Completed: true, CreatedAt: created},
			{ID: "do2", DeckID: "deck1", Text: "Eggs, large", CreatedAt: created.Add(time.Minute)},
		},
	}
}

func testDecks() []models.Deck {
	return []models.Deck{
		{ID: "d1", Name: "Groceries", IsOwner: true, Collaborators: 2},
		{ID: "d2", Name: "Garden", IsOwner: false},
	}
}

func TestParseFormat(t *testing.T) {
	tc := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatText},
		{in: "txt", want: FormatText},
		{in: "csv", want: FormatCSV},
		{in: "md", want: FormatMarkdown},
		{in: "markdown", want: FormatMarkdown},
		{in: "json", want: FormatJSON},
		{in: "xml", wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidArgument) {
					t.Errorf("expected ErrInvalidArgument, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseFormat(%q) = %v, %v", tt.in, got, err)
			}
		})
	}
}

func TestDeckListFormats(t *testing.T) {
	t.Run("DecksToCSV", func(t *testing.T) {
		data, err := DecksToCSV(testDecks())
		if err != nil {
			t.Fatalf("DecksToCSV failed: %v", err)
		}
		output := string(data)
		if !strings.HasPrefix(output, "ID,Name,Owner,Collaborators\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "d1,Groceries,true,2") {
			t.Errorf("CSV missing first deck, got: %s", output)
		}
	})

	t.Run("DecksToMarkdown", func(t *testing.T) {
		output := string(DecksToMarkdown(testDecks()))
		if !strings.Contains(output, "| Groceries | owner | 2 |") || !strings.Contains(output, "| Garden | shared | 0 |") {
			t.Errorf("unexpected markdown: %s", output)
		}
	})

	t.Run("DecksToText", func(t *testing.T) {
		output := string(DecksToText(testDecks()))
		if !strings.Contains(output, "1. Groceries (owner, 2 collaborators)") {
			t.Errorf("unexpected text: %s", output)
		}
		if !strings.Contains(output, "2. Garden (shared)") {
			t.Errorf("unexpected text: %s", output)
		}
	})

	t.Run("empty lists", func(t *testing.T) {
		if !strings.Contains(string(DecksToText(nil)), "No decks yet.") {
			t.Error("expected empty text list message")
		}
		if !strings.Contains(string(DecksToMarkdown(nil)), "No decks yet.") {
			t.Error("expected empty markdown list message")
		}
	})
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(testExport())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}
		output := string(data)

		if !strings.Contains(output, "ID,Text,Completed,Created") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "do1,Milk,true,2025-03-01T12:00:00Z") {
			t.Errorf("CSV missing first do, got: %s", output)
		}
		if !strings.Contains(output, `"Eggs, large"`) {
			t.Errorf("CSV should quote text containing commas, got: %s", output)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		output := string(ExportToMarkdown(testExport()))

		for _, want := range []string{"# Groceries", "**Dos**: 2 (1 done)", "**Access**: owner", "- [x] Milk", "- [ ] Eggs, large"} {
			if !strings.Contains(output, want) {
				t.Errorf("markdown missing %q, got: %s", want, output)
			}
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		output := string(ExportToText(testExport()))

		for _, want := range []string{"Deck: Groceries", "Dos: 2", "1. [x] Milk", "2. [ ] Eggs, large"} {
			if !strings.Contains(output, want) {
				t.Errorf("text missing %q, got: %s", want, output)
			}
		}
	})
}

func TestWriters(t *testing.T) {
	t.Run("WriteCSVExport", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "deck1")
		res, err := WriteCSVExport(testExport(), base)
		if err != nil {
			t.Fatalf("WriteCSVExport failed: %v", err)
		}
		th.AssertFileExists(t, res.DosFile)
		th.AssertFileExists(t, res.MetadataFile)

		var deck models.Deck
		if err := json.Unmarshal([]byte(th.MustReadFile(t, res.MetadataFile)), &deck); err != nil {
			t.Fatalf("metadata is not JSON: %v", err)
		}
		if deck.Name != "Groceries" {
			t.Errorf("unexpected metadata %+v", deck)
		}
	})

	t.Run("WriteMarkdownExport", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "deck1")
		path, err := WriteMarkdownExport(testExport(), dir)
		if err != nil {
			t.Fatalf("WriteMarkdownExport failed: %v", err)
		}
		th.AssertDirExists(t, dir)
		if !strings.Contains(th.MustReadFile(t, path), "# Groceries") {
			t.Error("README missing title")
		}
	})

	t.Run("WriteTextExport", func(t *testing.T) {
		path, err := WriteTextExport(testExport(), filepath.Join(t.TempDir(), "deck1.txt"))
		if err != nil {
			t.Fatalf("WriteTextExport failed: %v", err)
		}
		if !strings.Contains(th.MustReadFile(t, path), "Deck: Groceries") {
			t.Error("text export missing title")
		}
	})

	t.Run("WriteJSONExport", func(t *testing.T) {
		path, err := WriteJSONExport(testExport(), filepath.Join(t.TempDir(), "deck1.json"))
		if err != nil {
			t.Fatalf("WriteJSONExport failed: %v", err)
		}
		var export models.DeckExport
		if err := json.Unmarshal([]byte(th.MustReadFile(t, path)), &export); err != nil {
			t.Fatalf("export is not JSON: %v", err)
		}
		if len(export.Dos) != 2 {
			t.Errorf("expected 2 dos, got %d", len(export.Dos))
		}
	})

	t.Run("WriteManifest", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "manifest.json")
		if err := WriteManifest(map[string]int{"decks": 2}, path); err != nil {
			t.Fatalf("WriteManifest failed: %v", err)
		}
		if !strings.Contains(th.MustReadFile(t, path), `"decks": 2`) {
			t.Error("manifest missing content")
		}
	})

	t.Run("write into missing directory fails", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "missing", "deck1.txt")
		if _, err := WriteTextExport(testExport(), missing); err == nil {
			t.Error("expected error writing into a missing directory")
		}
	})
}
