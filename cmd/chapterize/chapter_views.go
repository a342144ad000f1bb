package main

import (
	"fmt"
	"io"
	"strconv"

	"chapterize/internal/chapters"
)

type chapterView struct {
	Position int    `json:"position"`
	Timecode string `json:"timecode"`
	StartMS  int64  `json:"start_ms"`
	Title    string `json:"title"`
}

type diagnosticView struct {
	Line   int    `json:"line"`
	Text   string `json:"text"`
	Reason string `json:"reason"`
}

func chapterViews(list chapters.List) []chapterView {
	views := make([]chapterView, 0, len(list))
	for i, entry := range list {
		views = append(views, chapterView{
			Position: i + 1,
			Timecode: entry.Timecode,
			StartMS:  entry.StartMS,
			Title:    entry.Title,
		})
	}
	return views
}

func diagnosticViews(diags []chapters.Diagnostic) []diagnosticView {
	views := make([]diagnosticView, 0, len(diags))
	for _, d := range diags {
		views = append(views, diagnosticView{Line: d.Line, Text: d.Text, Reason: d.Reason})
	}
	return views
}

func renderChapterTable(list chapters.List) string {
	rows := make([][]string, 0, len(list))
	for i, entry := range list {
		rows = append(rows, []string{strconv.Itoa(i + 1), entry.Timecode, entry.Title})
	}
	return renderTable(tableSpec{
		headers:   []string{"#", "Timecode", "Title"},
		aligns:    []columnAlignment{alignRight, alignLeft, alignLeft},
		maxWidths: []int{0, 0, 60},
	}, rows)
}

// printDiagnostics writes skipped lines and warnings to w, which is stderr
// for every command so stdout stays parseable.
func printDiagnostics(w io.Writer, diags []chapters.Diagnostic, warnings []string) {
	for _, d := range diags {
		fmt.Fprintf(w, "skipped %s\n", d)
	}
	for _, warning := range warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
}

func orderWarnings(list chapters.List) []string {
	positions := chapters.OutOfOrder(list)
	if len(positions) == 0 {
		return nil
	}
	return []string{fmt.Sprintf("chapters out of order at positions %v", positions)}
}
