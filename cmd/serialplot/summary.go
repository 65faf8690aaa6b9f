package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/serial-plotter/backend/internal/models"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

var summaryColumns = []string{"NAME", "LABEL", "COLOR", "COUNT", "MIN", "MAX", "CURRENT"}

// renderSummary writes one row per variable, in insertion order.
func renderSummary(w io.Writer, vars []models.Variable, stats []models.SeriesStats) {
	if len(vars) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("no variables"))
		return
	}

	byName := make(map[string]models.SeriesStats, len(stats))
	for _, st := range stats {
		byName[st.Name] = st
	}

	rows := make([][]string, 0, len(vars))
	for _, v := range vars {
		row := []string{v.Name, v.DisplayName, v.Color, "0", "-", "-", "-"}
		if st, ok := byName[v.Name]; ok {
			row[3] = strconv.Itoa(st.Count)
			row[4] = formatValue(st.Min)
			row[5] = formatValue(st.Max)
			row[6] = formatValue(st.Current)
		}
		rows = append(rows, row)
	}

	widths := make([]int, len(summaryColumns))
	for i, h := range summaryColumns {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			n := len(cell)
			if i == 2 {
				n += 2 // swatch
			}
			widths[i] = max(widths[i], n)
		}
	}

	header := make([]string, len(summaryColumns))
	for i, h := range summaryColumns {
		header[i] = headerStyle.Render(pad(h, widths[i]))
	}
	fmt.Fprintln(w, strings.Join(header, "  "))

	for i, row := range rows {
		color := lipgloss.Color(vars[i].Color)
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = pad(cell, widths[j])
		}
		cells[0] = lipgloss.NewStyle().Bold(true).Foreground(color).Render(cells[0])
		cells[2] = lipgloss.NewStyle().Foreground(color).Render("■") + " " + pad(row[2], widths[2]-2)
		fmt.Fprintln(w, strings.TrimRight(strings.Join(cells, "  "), " "))
	}
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}
