package chess

import (
	"fmt"
	"strings"
)

// Move describes one piece movement and every side effect needed to apply
// and revert it.
type Move struct {
	Src Position
	Dst Position
	// Captured is the taken piece. For en passant it does not stand on Dst.
	Captured Key
	// Rook, RookSrc and RookDst are set on castling moves.
	Rook    Key
	RookSrc Position
	RookDst Position
	Promote Kind
	// FirstMove records that the piece had never moved before this move, so
	// undo can clear its moved flag again.
	FirstMove bool
}

func newMove(src, dst Position) Move {
	return Move{Src: src, Dst: dst, RookSrc: NoPosition, RookDst: NoPosition}
}

// IsCastle reports whether the move also relocates a rook.
func (m Move) IsCastle() bool {
	return m.Rook != NoKey
}

// IsCapture reports whether the move takes a piece.
func (m Move) IsCapture() bool {
	return m.Captured != NoKey
}

// Same reports whether m and o describe the same movement, ignoring the
// promotion choice and the first move flag which are decided on application.
func (m Move) Same(o Move) bool {
	return m.Src == o.Src && m.Dst == o.Dst && m.Captured == o.Captured &&
		m.Rook == o.Rook && (m.Rook == NoKey || (m.RookSrc == o.RookSrc && m.RookDst == o.RookDst))
}

func (m Move) String() string {
	var sb strings.Builder
	sb.WriteString(m.Src.String())
	if m.IsCapture() {
		sb.WriteByte('x')
	} else {
		sb.WriteByte('-')
	}
	sb.WriteString(m.Dst.String())
	if m.Promote != None {
		fmt.Fprintf(&sb, "=%c", m.Promote.Letter())
	}
	if m.IsCastle() {
		fmt.Fprintf(&sb, " (rook %s-%s)", m.RookSrc, m.RookDst)
	}
	return sb.String()
}

// Action is one entry of the game history.
type Action struct {
	Piece Key
	Move  Move
}

func (a Action) String() string {
	return fmt.Sprintf("%s %s", a.Piece, a.Move)
}
