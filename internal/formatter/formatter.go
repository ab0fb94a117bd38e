// package formatter renders decks and dos as CSV, Markdown and plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/desertthunder/dodeck/internal/models"
	"github.com/desertthunder/dodeck/internal/shared"
)

// Format names an output format.
type Format string

const (
	FormatText     Format = "txt"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatJSON     Format = "json"
)

// ParseFormat accepts txt, csv, md (or markdown) and json.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "txt", "text":
		return FormatText, nil
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
	}
}

func ownership(isOwner bool) string {
	if isOwner {
		return "owner"
	}
	return "shared"
}

func checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

// DecksToCSV renders a deck list with columns: ID, Name, Owner, Collaborators
func DecksToCSV(decks []models.Deck) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"ID", "Name", "Owner", "Collaborators"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, d := range decks {
		record := []string{d.ID, d.Name, strconv.FormatBool(d.IsOwner), strconv.Itoa(d.Collaborators)}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// DecksToMarkdown renders a deck list as a Markdown table.
func DecksToMarkdown(decks []models.Deck) []byte {
	var buf bytes.Buffer

	buf.WriteString("# Decks\n\n")
	if len(decks) == 0 {
		buf.WriteString("No decks yet.\n")
		return buf.Bytes()
	}

	buf.WriteString("| Name | Access | Collaborators |\n")
	buf.WriteString("|------|--------|---------------|\n")
	for _, d := range decks {
		fmt.Fprintf(&buf, "| %s | %s | %d |\n", d.Name, ownership(d.IsOwner), d.Collaborators)
	}
	return buf.Bytes()
}

// DecksToText renders a deck list one deck per line.
func DecksToText(decks []models.Deck) []byte {
	var buf bytes.Buffer
	if len(decks) == 0 {
		buf.WriteString("No decks yet.\n")
		return buf.Bytes()
	}
	for i, d := range decks {
		fmt.Fprintf(&buf, "%d. %s (%s", i+1, d.Name, ownership(d.IsOwner))
		if d.Collaborators > 0 {
			fmt.Fprintf(&buf, ", %d collaborators", d.Collaborators)
		}
		buf.WriteString(")\n")
	}
	return buf.Bytes()
}

// ExportToCSV converts a DeckExport to CSV format with columns: ID, Text, Completed, Created
func ExportToCSV(export *models.DeckExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Text", "Completed", "Created"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, do := range export.Dos {
		record := []string{
			do.ID,
			do.Text,
			strconv.FormatBool(do.Completed),
			do.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a DeckExport to a Markdown checklist
func ExportToMarkdown(export *models.DeckExport) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.Deck.Name)
	fmt.Fprintf(&buf, "**Dos**: %d (%d done)\n", len(export.Dos), export.Completed())
	fmt.Fprintf(&buf, "**Access**: %s\n\n", ownership(export.Deck.IsOwner))

	buf.WriteString("## Dos\n\n")
	for _, do := range export.Dos {
		fmt.Fprintf(&buf, "- %s %s\n", checkbox(do.Completed), do.Text)
	}

	return buf.Bytes()
}

// ExportToText converts a DeckExport to plain text format
func ExportToText(export *models.DeckExport) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Deck: %s\n", export.Deck.Name)
	fmt.Fprintf(&buf, "Dos: %d\n\n", len(export.Dos))

	for i, do := range export.Dos {
		fmt.Fprintf(&buf, "%d. %s %s\n", i+1, checkbox(do.Completed), do.Text)
	}

	return buf.Bytes()
}

// ToMetadataJSON generates a JSON representation of deck metadata (without dos)
func ToMetadataJSON(deck models.Deck) ([]byte, error) {
	return shared.MarshalJSON(deck, true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	DosFile      string
	MetadataFile string
}

// WriteCSVExport exports a deck to CSV format with accompanying metadata JSON file.
//
// Creates {base}_dos.csv and {base}_metadata.json; base defaults to the deck ID.
func WriteCSVExport(export *models.DeckExport, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = export.Deck.ID
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	dosFile := baseFilepath + "_dos.csv"
	if err := os.WriteFile(dosFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(export.Deck)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{DosFile: dosFile, MetadataFile: metadataFile}, nil
}

// WriteMarkdownExport writes {outputDir}/README.md, creating the directory.
//
// Directory name defaults to the deck ID.
func WriteMarkdownExport(export *models.DeckExport, outputDir string) (string, error) {
	if outputDir == "" {
		outputDir = export.Deck.ID
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, ExportToMarkdown(export), 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown file: %w", err)
	}
	return mdFile, nil
}

// WriteTextExport exports a deck to plain text format.
//
// Defaults to {deck.ID}_dos.txt as the filename.
func WriteTextExport(export *models.DeckExport, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_dos.txt", export.Deck.ID)
	}

	if err := os.WriteFile(path, ExportToText(export), 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

// WriteJSONExport writes the deck and its dos as indented JSON.
func WriteJSONExport(export *models.DeckExport, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s.json", export.Deck.ID)
	}

	data, err := shared.MarshalJSON(export, true)
	if err != nil {
		return "", fmt.Errorf("JSON marshal failed: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("JSON write failed: %w", err)
	}
	return path, nil
}

// WriteManifest writes v as the export manifest at path.
func WriteManifest(v any, path string) error {
	data, err := shared.MarshalJSON(v, true)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
