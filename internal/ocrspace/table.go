package ocrspace

import (
	"sort"
	"strings"
)

// Tableize reconstructs a visual row/column grid from the overlay's
// position-only data. Lines are sorted by upper bound, then grouped into a
// row while they vertically overlap the FIRST line of the current row (the
// anchor is fixed at row creation, not a rolling union of bounds — a known
// approximation). Each finished row is sorted left to right, including the
// final one. Lines without words are excluded up front since their bounds
// are undefined.
func Tableize(o Overlay) [][]Line {
	sorted := o.LinesByUpperBound()
	var rows [][]Line
	for _, line := range sorted {
		if len(rows) == 0 {
			rows = append(rows, []Line{line})
			continue
		}
		last := len(rows) - 1
		anchor := rows[last][0]
		same, err := anchor.SameRow(line)
		if err == nil && same {
			rows[last] = append(rows[last], line)
			continue
		}
		sortRowByLeftBound(rows[last])
		rows = append(rows, []Line{line})
	}
	if len(rows) > 0 {
		sortRowByLeftBound(rows[len(rows)-1])
	}
	return rows
}

// RenderTable renders the reconstructed grid as text, one row per line with
// columns joined by "|", for diagnostic inspection.
func RenderTable(rows [][]Line) string {
	var b strings.Builder
	for i, row := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		for j, line := range row {
			if j > 0 {
				b.WriteByte('|')
			}
			b.WriteString(line.Text)
		}
	}
	return b.String()
}

func sortRowByLeftBound(row []Line) {
	sort.SliceStable(row, func(i, j int) bool {
		return row[i].LeftBound() < row[j].LeftBound()
	})
}

func sortLinesStable(lines []Line, less func(a, b Line) bool) {
	sort.SliceStable(lines, func(i, j int) bool {
		return less(lines[i], lines[j])
	})
}
