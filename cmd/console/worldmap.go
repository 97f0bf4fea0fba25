package main

import (
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"

	"github.com/jwebster45206/world-engine/pkg/world"
)

const (
	glyphEmpty      = ' '
	glyphWilderness = '.'
	glyphSelected   = '@'
)

var (
	wildernessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("28"))            // dark green
	placeStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))            // teal
	selectedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true) // pink
)

// mapGrid lays out the cols x rows cells of area centred on center. Row 0
// is the northernmost row.
func mapGrid(locs []*world.Location, area string, center world.Coordinates, selected world.LocationID, cols, rows int) [][]rune {
	cells := make(map[[2]int]*world.Location)
	for _, loc := range locs {
		if loc.HasCoordinates() && loc.Coordinates.Area == area {
			cells[[2]int{loc.Coordinates.X, loc.Coordinates.Y}] = loc
		}
	}

	left := center.X - cols/2
	top := center.Y + rows/2
	grid := make([][]rune, rows)
	for r := range grid {
		grid[r] = make([]rune, cols)
		for c := range grid[r] {
			grid[r][c] = glyphFor(cells[[2]int{left + c, top - r}], selected)
		}
	}
	return grid
}

func glyphFor(loc *world.Location, selected world.LocationID) rune {
	switch {
	case loc == nil:
		return glyphEmpty
	case loc.ID == selected:
		return glyphSelected
	case loc.IsWilderness:
		return glyphWilderness
	}
	for _, r := range loc.Name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToUpper(r)
		}
	}
	return '#'
}

// renderMap draws the grid with a space between columns so cells read as squares.
func renderMap(grid [][]rune) string {
	var b strings.Builder
	for i, row := range grid {
		if i > 0 {
			b.WriteByte('\n')
		}
		for j, g := range row {
			if j > 0 {
				b.WriteByte(' ')
			}
			switch g {
			case glyphEmpty:
				b.WriteRune(g)
			case glyphWilderness:
				b.WriteString(wildernessStyle.Render(string(g)))
			case glyphSelected:
				b.WriteString(selectedStyle.Render(string(g)))
			default:
				b.WriteString(placeStyle.Render(string(g)))
			}
		}
	}
	return b.String()
}
