package ui

import (
	"github.com/pterm/pterm"
)

// Table renders rows below a header line.
func Table(header []string, rows [][]string) error {
	data := pterm.TableData{header}
	data = append(data, rows...)
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

// Section prints a section heading.
func Section(title string) {
	pterm.DefaultSection.Println(title)
}
