package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchDecks Phase = iota
	FetchDos
	ExportDeck
	WriteManifest
)

func (p Phase) String() string {
	switch p {
	case FetchDecks:
		return "fetch_decks"
	case FetchDos:
		return "fetch_dos"
	case ExportDeck:
		return "export_deck"
	case WriteManifest:
		return "write_manifest"
	default:
		return ""
	}
}

// sendProgress never blocks; updates are dropped when the reader lags.
func sendProgress(ch chan<- ProgressUpdate, u ProgressUpdate) {
	if ch == nil {
		return
	}
	select {
	case ch <- u:
	default:
	}
}

func fetchingDecksUpdate(search string) ProgressUpdate {
	msg := "Fetching decks..."
	if search != "" {
		msg = fmt.Sprintf("Fetching decks matching %q...", search)
	}
	return ProgressUpdate{Phase: FetchDecks, Step: 1, Total: 1, Message: msg}
}

func foundDecksUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchDecks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d decks", total),
		Data:    total,
	}
}

func fetchingDosUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchDos,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetching dos: %s...", step, total, name),
	}
}

func exportCompletedUpdate(step, total int, name string, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportDeck,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, name, filesCount),
	}
}

func exportFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportDeck,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}

func manifestUpdate(path string) ProgressUpdate {
	return ProgressUpdate{Phase: WriteManifest, Step: 1, Total: 1, Message: fmt.Sprintf("Manifest written to %s", path)}
}
