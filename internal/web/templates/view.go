// Package templates renders the HTML pages of the web UI. Pages are templ
// components; run `templ generate` after editing a .templ file.
package templates

import (
	"strconv"

	"github.com/JonMunkholm/ImageFinder/internal/core"
)

// ColumnParams feeds ColumnPage.
type ColumnParams struct {
	SessionID string
	FileName  string
	Headers   []string
	Preview   [][]string
	RowCount  int
}

// ProcessParams feeds ProcessPage.
type ProcessParams struct {
	SessionID  string
	FileName   string
	Column     string
	WindowSize int
	Snapshot   core.Snapshot
}

// nextLabel is the caption of the window button.
func (p ProcessParams) nextLabel() string {
	if p.Snapshot.InFlight {
		return "Processing..."
	}
	return "Next " + strconv.Itoa(p.WindowSize)
}

func (p ProcessParams) nextDisabled() bool {
	return !p.Snapshot.HasNext || p.Snapshot.InFlight
}

// columnLabel names a header cell, falling back to its position.
func columnLabel(i int, name string) string {
	if name == "" {
		return "Column " + strconv.Itoa(i+1)
	}
	return name
}

// cell returns row[i], or "" for short rows.
func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func itemAnchor(itemID int) string {
	return "item-" + strconv.Itoa(itemID)
}

func imageAlt(name string, i int) string {
	return name + " option " + strconv.Itoa(i+1)
}
