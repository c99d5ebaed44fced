package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/refile/refile/internal/executor"
	"github.com/refile/refile/internal/scan"
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
}

// UpdateResponse is the response for config set commands.
type UpdateResponse struct {
	Status string `json:"status"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

// printPlansHuman prints scan plans as a table.
func printPlansHuman(plans []scan.Plan) {
	if len(plans) == 0 {
		fmt.Println("No PDF files found.")
		return
	}
	rows := make([][]string, 0, len(plans))
	for _, p := range plans {
		rows = append(rows, []string{
			p.OriginalName,
			p.ProposedName,
			p.Source,
			strconv.FormatFloat(p.Confidence, 'f', 2, 64),
		})
	}
	fmt.Println(renderTable(
		[]string{"Current", "Proposed", "Source", "Confidence"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
	))
}

// printBatchHuman prints an execute result per file.
func printBatchHuman(batch *executor.BatchResult) {
	for _, r := range batch.Results {
		switch {
		case r.Success && r.NoOp:
			fmt.Printf("= %s (already named)\n", r.OriginalPath)
		case r.Success:
			fmt.Printf("+ %s -> %s\n", r.OriginalPath, r.NewPath)
		default:
			fmt.Printf("! %s: %s\n", r.OriginalPath, r.Error)
		}
	}
	fmt.Printf("\n%d renamed, %d failed (session %s)\n", batch.Succeeded, batch.Failed, batch.SessionID)
}

// printUndoHuman prints undo results per entry.
func printUndoHuman(results []executor.UndoResult) {
	restored := 0
	for _, r := range results {
		if r.Success {
			restored++
			fmt.Printf("+ %s -> %s\n", r.NewPath, r.OriginalPath)
		} else {
			fmt.Printf("! %s: %s\n", r.NewPath, r.Error)
		}
	}
	fmt.Printf("\n%d restored, %d failed\n", restored, len(results)-restored)
}
