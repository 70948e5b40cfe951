package main

import (
	"fmt"
	"io"

	"neurolint/internal/diff"
	"neurolint/internal/driver"
)

// writeDiffs renders a unified-style diff for every changed file in
// report using the line-level diff engine, for operators who want to
// see exactly what a run touched before trusting its report summary.
func writeDiffs(w io.Writer, report *driver.RunReport) {
	for _, f := range report.Files {
		before, after, ok := fileBeforeAfter(f)
		if !ok {
			continue
		}
		fd := diff.ComputeDiff(f.Path, f.Path, string(before), string(after))
		if len(fd.Hunks) == 0 {
			continue
		}
		fmt.Fprintf(w, "--- %s\n+++ %s\n", f.Path, f.Path)
		for _, hunk := range fd.Hunks {
			fmt.Fprintf(w, "@@ -%d,%d +%d,%d @@\n", hunk.OldStart, hunk.OldCount, hunk.NewStart, hunk.NewCount)
			for _, line := range hunk.Lines {
				switch line.Type {
				case diff.LineAdded:
					fmt.Fprintf(w, "+%s\n", line.Content)
				case diff.LineRemoved:
					fmt.Fprintf(w, "-%s\n", line.Content)
				default:
					fmt.Fprintf(w, " %s\n", line.Content)
				}
			}
		}
	}
}

// fileBeforeAfter reconstructs a file's pre-run and post-run content
// from its ordered LayerResults: the first result's OriginalCode is the
// file as read, the last successful result's Code is the file as
// written.
func fileBeforeAfter(f driver.FileReport) (before, after []byte, ok bool) {
	if len(f.LayerResults) == 0 {
		return nil, nil, false
	}
	before = f.LayerResults[0].OriginalCode
	after = before
	changed := false
	for _, r := range f.LayerResults {
		if r.Success {
			after = r.Code
		}
		if r.Success && r.Changed() {
			changed = true
		}
	}
	return before, after, changed
}
