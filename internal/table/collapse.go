// Package table collapses repeated label cells of a text grid into spanning
// cells, the way printed reports show a group label once beside all of its
// rows.
package table

// Cell is one position of a collapsed grid.
type Cell struct {
	Text string

	// RowSpan is the number of rows this cell covers (1 for ordinary cells).
	RowSpan int

	// ColSpan is the number of columns this cell covers (1 for ordinary cells).
	ColSpan int

	// Hidden marks a position covered by a span that starts above it.
	Hidden bool
}

// Collapse merges, in each of the first columns columns independently,
// every maximal run of consecutive identical non-empty values into one cell
// spanning the run. Covered positions are kept in the grid with Hidden set so
// row and column indexes stay stable. Columns beyond columns are copied as
// ordinary cells. Empty strings never start or extend a span.
func Collapse(grid [][]string, columns int) [][]Cell {
	out := make([][]Cell, len(grid))
	for r, row := range grid {
		out[r] = make([]Cell, len(row))
		for c, text := range row {
			out[r][c] = Cell{Text: text, RowSpan: 1, ColSpan: 1}
		}
	}

	for c := 0; c < columns; c++ {
		start := -1
		for r := 0; r <= len(grid); r++ {
			text, ok := at(grid, r, c)
			if start >= 0 {
				startText, _ := at(grid, start, c)
				if ok && text == startText {
					continue
				}
				if n := r - start; n > 1 {
					out[start][c].RowSpan = n
					for k := start + 1; k < r; k++ {
						out[k][c].Hidden = true
					}
				}
				start = -1
			}
			if ok && text != "" {
				start = r
			}
		}
	}

	return out
}

// Expand renders a collapsed grid back into text, repeating each spanning
// cell's text into the rows it covers. Collapse(Expand(c), n) == c for any
// grid c produced by Collapse with the same n.
func Expand(cells [][]Cell) [][]string {
	type span struct {
		text string
		left int
	}
	open := make(map[int]span)

	out := make([][]string, len(cells))
	for r, row := range cells {
		out[r] = make([]string, len(row))
		for c, cell := range row {
			if s, ok := open[c]; ok && cell.Hidden && s.left > 0 {
				out[r][c] = s.text
				s.left--
				open[c] = s
				continue
			}
			out[r][c] = cell.Text
			if cell.RowSpan > 1 {
				open[c] = span{text: cell.Text, left: cell.RowSpan - 1}
			} else {
				delete(open, c)
			}
		}
	}
	return out
}

func at(grid [][]string, r, c int) (string, bool) {
	if r >= len(grid) || c >= len(grid[r]) {
		return "", false
	}
	return grid[r][c], true
}
