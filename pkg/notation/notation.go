// Package notation renders games of the rules engine in standard chess
// notations. PGN export replays the history through github.com/notnil/chess,
// which also rejects any move our engine should not have allowed.
package notation

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/notnil/chess"

	engine "github.com/qnkhuat/chessterm/pkg/chess"
)

// UCI returns the move in long algebraic form, e.g. "e2e4" or "e7e8q".
// Castling is the king's two square step.
func UCI(m engine.Move) string {
	s := m.Src.String() + m.Dst.String()
	if m.Promote != engine.None {
		s += string(unicode.ToLower(rune(m.Promote.Letter())))
	}
	return s
}

// FEN renders the current position of g.
func FEN(g *engine.Game) string {
	b := g.Board()
	history := g.History()

	var sb strings.Builder
	for r := 7; r >= 0; r-- {
		empty := 0
		for f := 0; f < 8; f++ {
			p := b.PieceAt(engine.Pos(f, r))
			if p == nil {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteByte(fenLetter(p))
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if r > 0 {
			sb.WriteByte('/')
		}
	}

	if g.Turn() == engine.White {
		sb.WriteString(" w ")
	} else {
		sb.WriteString(" b ")
	}
	sb.WriteString(castlingRights(&b))
	sb.WriteByte(' ')
	sb.WriteString(enPassantTarget(&b, history))
	fmt.Fprintf(&sb, " %d %d", halfmoveClock(&b, history), len(history)/2+1)
	return sb.String()
}

func fenLetter(p *engine.Piece) byte {
	l := p.Effective().Letter()
	if p.Color == engine.Black {
		l = byte(unicode.ToLower(rune(l)))
	}
	return l
}

func castlingRights(b *engine.Board) string {
	var sb strings.Builder
	for _, c := range []engine.Color{engine.White, engine.Black} {
		rank := 0
		if c == engine.Black {
			rank = 7
		}
		king := b.PieceAt(engine.Pos(4, rank))
		if king == nil || king.Kind != engine.King || king.Color != c || king.Moved {
			continue
		}
		for _, side := range []struct {
			file   int
			letter byte
		}{{7, 'K'}, {0, 'Q'}} {
			rook := b.PieceAt(engine.Pos(side.file, rank))
			if rook == nil || rook.Kind != engine.Rook || rook.Color != c || rook.Moved {
				continue
			}
			l := side.letter
			if c == engine.Black {
				l = byte(unicode.ToLower(rune(l)))
			}
			sb.WriteByte(l)
		}
	}
	if sb.Len() == 0 {
		return "-"
	}
	return sb.String()
}

// enPassantTarget is the square a pawn skipped on the last move, if that
// move was a double push.
func enPassantTarget(b *engine.Board, history []engine.Action) string {
	if len(history) == 0 {
		return "-"
	}
	last := history[len(history)-1]
	p := b.Piece(last.Piece)
	m := last.Move
	if p == nil || p.Kind != engine.Pawn || p.Promoted != engine.None {
		return "-"
	}
	if d := m.Dst.Rank - m.Src.Rank; d != 2 && d != -2 {
		return "-"
	}
	return engine.Pos(m.Src.File, (m.Src.Rank+m.Dst.Rank)/2).String()
}

func halfmoveClock(b *engine.Board, history []engine.Action) int {
	n := 0
	for i := len(history) - 1; i >= 0; i-- {
		a := history[i]
		if a.Move.IsCapture() {
			break
		}
		// Kind is the original kind, so a since promoted pawn still counts.
		if p := b.Piece(a.Piece); p != nil && p.Kind == engine.Pawn {
			break
		}
		n++
	}
	return n
}

// Replay plays the history from the initial position into a notnil/chess
// game. The first move the library refuses is reported with its ply.
func Replay(history []engine.Action) (*chess.Game, error) {
	game := chess.NewGame()
	for i, a := range history {
		s := UCI(a.Move)
		m, err := chess.UCINotation{}.Decode(game.Position(), s)
		if err != nil {
			return nil, fmt.Errorf("ply %d %s: %w", i+1, s, err)
		}
		if err := game.Move(m); err != nil {
			return nil, fmt.Errorf("ply %d %s: %w", i+1, s, err)
		}
	}
	return game, nil
}

// PGN returns the movetext of the history in standard algebraic notation,
// followed by the result when the game has ended.
func PGN(history []engine.Action) (string, error) {
	game, err := Replay(history)
	if err != nil {
		return "", err
	}
	return game.String(), nil
}
