package reportutils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"

	"github.com/rnative/rnative-client/sdk/history"
	"github.com/rnative/rnative-client/sdk/models"
)

// WriteTable renders the table as a grid. A table without headers and rows is
// written as "(empty)".
func WriteTable(w io.Writer, table models.TableData) {
	if len(table.Headers) == 0 && table.Len() == 0 {
		fmt.Fprintln(w, "(empty)")
		return
	}

	writeGrid(w, table.Headers, table.StringRows())
}

func writeGrid(w io.Writer, headers []string, rows [][]string) {
	tw := tablewriter.NewWriter(w)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetRowLine(true)
	if len(headers) > 0 {
		tw.SetHeader(headers)
	}
	tw.AppendBulk(rows)
	tw.Render()
}

func writeSection(w io.Writer, title string, table models.TableData) {
	fmt.Fprintf(w, "\n%s:\n", title)
	WriteTable(w, table)
}

func writeDotBracket(w io.Writer, dotBracket string) {
	fmt.Fprintf(w, "\nDotBracket:\n%s\n", dotBracket)
}

// WriteResultSet prints the consensus tables followed by the detailed result
// of every model, in the order the service ranked them.
func WriteResultSet(w io.Writer, rs *models.ResultSet) {
	writeSection(w, "Model Rankings", rs.Ranking)
	writeSection(w, "Canonical Base Pairs", rs.CanonicalPairs)
	writeSection(w, "Non-canonical Base Pairs", rs.NonCanonicalPairs)
	writeSection(w, "Stackings", rs.Stackings)
	writeDotBracket(w, rs.DotBracket)

	for _, name := range rs.FileNames {
		model := rs.Model(name)
		if model == nil {
			continue
		}
		WriteModelResult(w, name, model)
	}
}

// WriteModelResult prints the detailed result of one model.
func WriteModelResult(w io.Writer, fileName string, model *models.ModelResult) {
	fmt.Fprintf(w, "\nDetailed results for %s:\n", fileName)
	writeSection(w, "Canonical Base Pairs", model.CanonicalPairs)
	writeSection(w, "Non-canonical Base Pairs", model.NonCanonicalPairs)
	writeSection(w, "Stackings", model.Stackings)
	writeDotBracket(w, model.DotBracket)
}

// WriteStatus prints a task status, its progress and the models removed from
// consensus with their reasons. now anchors the relative creation time.
func WriteStatus(w io.Writer, status *models.TaskStatus, now time.Time) {
	if status.TaskID != "" {
		fmt.Fprintf(w, "Task: %s\n", status.TaskID)
	}
	fmt.Fprintf(w, "Status: %s\n", status.Status)
	if status.CreatedAt != nil {
		fmt.Fprintf(w, "Created: %s (%s)\n", status.CreatedAt.Format(time.RFC3339), humanize.RelTime(*status.CreatedAt, now, "ago", "from now"))
	}
	if status.HasProgress() {
		fmt.Fprintf(w, "Progress: %s\n", progressText(status))
	}
	if status.Message != "" {
		fmt.Fprintf(w, "Message: %s\n", status.Message)
	}

	removed := status.RemovedModels()
	if len(removed) == 0 {
		return
	}
	fmt.Fprintln(w, "\nRemoved models:")
	for _, model := range removed {
		fmt.Fprintf(w, "\n  %s:\n", model)
		for _, reason := range status.RemovalReasons[model] {
			fmt.Fprintf(w, "    - %s\n", reason)
		}
	}
}

func progressText(status *models.TaskStatus) string {
	text := fmt.Sprintf("%d/%d", status.CurrentProgress, status.TotalProgressSteps)
	if status.ProgressMessage != "" {
		text += " " + status.ProgressMessage
	}
	return text
}

// SaveVisualization writes the diagram to path byte for byte and returns a
// one-line summary for the operator.
func SaveVisualization(path string, content []byte) (string, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("unable to create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("unable to save visualization: %w", err)
	}

	logrus.Debugf("Wrote %d bytes to %s.", len(content), path)
	return fmt.Sprintf("Saved visualization to %s (%s)", path, humanize.Bytes(uint64(len(content)))), nil
}

// WriteMolProbity lists the MolProbity response of every model, or the raw
// JSON of each when raw is set.
func WriteMolProbity(w io.Writer, responses map[string]string, raw bool) {
	names := make([]string, 0, len(responses))
	for name := range responses {
		names = append(names, name)
	}
	sort.Strings(names)

	if raw {
		for _, name := range names {
			fmt.Fprintf(w, "\n%s:\n%s\n", name, strings.TrimSpace(responses[name]))
		}
		return
	}

	rows := make([][]string, len(names))
	for i, name := range names {
		rows[i] = []string{name, humanize.Bytes(uint64(len(responses[name])))}
	}
	writeGrid(w, []string{"Model", "Response size"}, rows)
}

// WriteSplitFiles lists the model files extracted by the split endpoint.
func WriteSplitFiles(w io.Writer, files []models.SplitFile) {
	rows := make([][]string, len(files))
	for i, f := range files {
		sequence := ""
		if f.Sequence != nil {
			sequence = *f.Sequence
		}
		kind := "text"
		if f.IsBinary {
			kind = "binary"
		}
		rows[i] = []string{f.Name, kind, humanize.Bytes(uint64(len(f.Content))), sequence}
	}
	writeGrid(w, []string{"File name", "Type", "Size", "Sequence"}, rows)
}

// WriteHistory lists locally recorded tasks, newest first.
func WriteHistory(w io.Writer, entries []history.Entry, now time.Time) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No tasks recorded.")
		return
	}

	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{
			e.TaskID,
			e.Status,
			humanize.RelTime(e.SubmittedAt, now, "ago", "from now"),
			e.Analyzer,
			e.ConsensusMode,
			strings.Join(e.FileNames, ", "),
		}
	}
	writeGrid(w, []string{"Task", "Status", "Submitted", "Analyzer", "Consensus", "Files"}, rows)
}

// WriteHistoryEntry prints what the local history knows about a task.
func WriteHistoryEntry(w io.Writer, entry *history.Entry, now time.Time) {
	fmt.Fprintf(w, "Submitted: %s with %s, consensus %s\n",
		humanize.RelTime(entry.SubmittedAt, now, "ago", "from now"), entry.Analyzer, entry.ConsensusMode)
	fmt.Fprintf(w, "Files: %s\n", strings.Join(entry.FileNames, ", "))
}
