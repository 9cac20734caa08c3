package gui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/qnkhuat/chessterm/pkg/chess"
	"github.com/qnkhuat/chessterm/pkg/notation"
)

const (
	numRows = 8
	numCols = 8
	// movesShown is how many move pairs the move list displays.
	movesShown = 10
)

var glyphs = map[chess.Color][]rune{
	chess.White: {' ', '♙', '♖', '♘', '♗', '♕', '♔'},
	chess.Black: {' ', '♟', '♜', '♞', '♝', '♛', '♚'},
}

func glyph(k chess.Kind, c chess.Color) rune {
	g := glyphs[c]
	if int(k) < len(g) {
		return g[k]
	}
	return '?'
}

// cellPosition maps a table cell to the board square shown there. Column 0
// holds the rank labels and row 8 the file labels. The view color's pieces
// are at the bottom.
func cellPosition(row, col int, view chess.Color) chess.Position {
	if row < 0 || row >= numRows || col < 1 || col > numCols {
		return chess.NoPosition
	}
	file, rank := col-1, numRows-1-row
	if view == chess.Black {
		file, rank = numCols-1-file, row
	}
	return chess.Pos(file, rank)
}

// cellOf is the inverse of cellPosition.
func cellOf(p chess.Position, view chess.Color) (row, col int) {
	if view == chess.Black {
		return p.Rank, numCols - p.File
	}
	return numRows - 1 - p.Rank, p.File + 1
}

// squareBg returns the theme's color corresponding to the square
func squareBg(sq chess.Square, last chess.Move, hasLast bool, t Theme) tcell.Color {
	switch {
	case sq.Selected:
		return t.SquareSelected
	case sq.Highlighted:
		return t.SquareHint
	case sq.Check:
		return t.SquareCheck
	case hasLast && (sq.Position == last.Src || sq.Position == last.Dst):
		return t.SquareHigh
	case (sq.Position.File+sq.Position.Rank)%2 == 0:
		return t.SquareDark
	default:
		return t.SquareLight
	}
}

// renderBoard redraws every cell of the board table.
func renderBoard(table *tview.Table, squares [chess.NumSquares]chess.Square, history []chess.Action, view chess.Color, t Theme) {
	var last chess.Move
	hasLast := len(history) > 0
	if hasLast {
		last = history[len(history)-1].Move
	}

	for row := 0; row < numRows; row++ {
		rank := cellPosition(row, 1, view).Rank
		table.SetCell(row, 0, tview.NewTableCell(fmt.Sprintf("%d ", rank+1)).
			SetTextColor(t.Rank).
			SetSelectable(false))
	}
	table.SetCell(numRows, 0, tview.NewTableCell("").SetSelectable(false))
	for col := 1; col <= numCols; col++ {
		file := cellPosition(0, col, view).File
		table.SetCell(numRows, col, tview.NewTableCell(fmt.Sprintf(" %c", 'a'+file)).
			SetTextColor(t.File).
			SetAlign(tview.AlignCenter).
			SetSelectable(false))
	}

	for _, sq := range squares {
		row, col := cellOf(sq.Position, view)
		text := "  "
		fg := t.White
		if sq.Kind != chess.None {
			text = fmt.Sprintf(" %c", glyph(sq.Kind, sq.Color))
			if sq.Color == chess.Black {
				fg = t.Black
			}
		}
		table.SetCell(row, col, tview.NewTableCell(text).
			SetAlign(tview.AlignCenter).
			SetTextColor(fg).
			SetBackgroundColor(squareBg(sq, last, hasLast, t)))
	}
}

// moveList formats the most recent move pairs, numbered from the start of
// the game.
func moveList(history []chess.Action) string {
	var rows []string
	for i := 0; i < len(history); i += 2 {
		row := fmt.Sprintf("%3d. %-6s", i/2+1, notation.UCI(history[i].Move))
		if i+1 < len(history) {
			row += " " + notation.UCI(history[i+1].Move)
		}
		rows = append(rows, row)
	}
	if len(rows) > movesShown {
		rows = rows[len(rows)-movesShown:]
	}
	return strings.Join(rows, "\n")
}

// capturedList renders the glyphs of captured pieces.
func capturedList(pieces []chess.Piece) string {
	var sb strings.Builder
	for _, p := range pieces {
		sb.WriteRune(glyph(p.Effective(), p.Color))
	}
	return sb.String()
}
