package chess

type direction struct {
	df, dr int
}

var (
	orthogonal = []direction{{0, 1}, {1, 0}, {0, -1}, {-1, 0}}
	diagonal   = []direction{{1, 1}, {1, -1}, {-1, -1}, {-1, 1}}
	allLines   = append(append([]direction{}, orthogonal...), diagonal...)

	knightOffsets = []direction{
		{1, 2}, {2, 1}, {2, -1}, {1, -2},
		{-1, -2}, {-2, -1}, {-2, 1}, {-1, 2},
	}
	kingOffsets = allLines
)

// PossibleMoves returns the pseudo-legal moves of the piece k: moves that
// respect its movement rules and board occupancy but may leave its own king
// in check. A dead or unknown piece has none.
func PossibleMoves(b *Board, k Key, history []Action) []Move {
	return possibleMoves(b, k, history, true)
}

// possibleMoves dispatches on the kind the piece currently behaves as, so a
// promoted pawn moves like its promotion. Castling is skipped during attack
// scans since it never captures.
func possibleMoves(b *Board, k Key, history []Action, castling bool) []Move {
	p := b.Piece(k)
	if p == nil || !p.Alive {
		return nil
	}
	switch p.Effective() {
	case Pawn:
		return pawnMoves(b, p, history)
	case Knight:
		return stepMoves(b, p, knightOffsets)
	case Bishop:
		return slideMoves(b, p, diagonal)
	case Rook:
		return slideMoves(b, p, orthogonal)
	case Queen:
		return slideMoves(b, p, allLines)
	case King:
		moves := stepMoves(b, p, kingOffsets)
		if castling {
			moves = append(moves, castleMoves(b, p)...)
		}
		return moves
	}
	return nil
}

// target classifies dst for a piece of color c. ok is false when the square
// is off the board or holds a friendly piece.
func target(b *Board, c Color, src, dst Position) (Move, bool) {
	if !dst.Valid() {
		return Move{}, false
	}
	m := newMove(src, dst)
	occ := b.PieceAt(dst)
	if occ == nil {
		return m, true
	}
	if occ.Color == c {
		return Move{}, false
	}
	m.Captured = occ.Key()
	return m, true
}

func stepMoves(b *Board, p *Piece, offsets []direction) []Move {
	var moves []Move
	for _, d := range offsets {
		if m, ok := target(b, p.Color, p.Position, p.Position.Add(d.df, d.dr)); ok {
			moves = append(moves, m)
		}
	}
	return moves
}

func slideMoves(b *Board, p *Piece, dirs []direction) []Move {
	var moves []Move
	for _, d := range dirs {
		for dst := p.Position.Add(d.df, d.dr); dst.Valid(); dst = dst.Add(d.df, d.dr) {
			m, ok := target(b, p.Color, p.Position, dst)
			if !ok {
				break
			}
			moves = append(moves, m)
			if m.IsCapture() {
				break
			}
		}
	}
	return moves
}

func pawnDirection(c Color) int {
	if c == White {
		return 1
	}
	return -1
}

func pawnHomeRank(c Color) int {
	if c == White {
		return 1
	}
	return numRanks - 2
}

// enPassantRank is the pawn's fifth rank, three ranks past its home rank.
func enPassantRank(c Color) int {
	return pawnHomeRank(c) + 3*pawnDirection(c)
}

func lastRank(c Color) int {
	if c == White {
		return numRanks - 1
	}
	return 0
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func pawnMoves(b *Board, p *Piece, history []Action) []Move {
	var moves []Move
	dir := pawnDirection(p.Color)
	src := p.Position

	if one := src.Add(0, dir); one.Valid() && b.At(one) == NoKey {
		moves = append(moves, newMove(src, one))
		if two := one.Add(0, dir); src.Rank == pawnHomeRank(p.Color) && two.Valid() && b.At(two) == NoKey {
			moves = append(moves, newMove(src, two))
		}
	}

	for _, df := range []int{-1, 1} {
		diag := src.Add(df, dir)
		occ := b.PieceAt(diag)
		if occ == nil || occ.Color == p.Color {
			continue
		}
		m := newMove(src, diag)
		m.Captured = occ.Key()
		moves = append(moves, m)
	}

	if m, ok := enPassant(b, p, history); ok {
		moves = append(moves, m)
	}
	return moves
}

// enPassant returns the capture of an adjacent enemy pawn whose double push
// was the last action of the game.
func enPassant(b *Board, p *Piece, history []Action) (Move, bool) {
	if len(history) == 0 || p.Position.Rank != enPassantRank(p.Color) {
		return Move{}, false
	}
	last := history[len(history)-1]
	victim := b.Piece(last.Piece)
	if victim == nil || !victim.Alive || victim.Color == p.Color || victim.Effective() != Pawn {
		return Move{}, false
	}
	lm := last.Move
	if abs(lm.Dst.Rank-lm.Src.Rank) != 2 || lm.Dst != victim.Position {
		return Move{}, false
	}
	if victim.Position.Rank != p.Position.Rank || abs(victim.Position.File-p.Position.File) != 1 {
		return Move{}, false
	}
	dst := Pos(victim.Position.File, p.Position.Rank+pawnDirection(p.Color))
	if b.At(dst) != NoKey {
		return Move{}, false
	}
	m := newMove(p.Position, dst)
	m.Captured = victim.Key()
	return m, true
}

// castleMoves offers castling toward each corner rook of the king's rank.
// Only occupancy is checked here; attacked squares are the legality filter's
// concern.
func castleMoves(b *Board, king *Piece) []Move {
	if king.Moved {
		return nil
	}
	var moves []Move
	rank := king.Position.Rank
	for _, side := range []int{-1, 1} {
		corner := Pos(0, rank)
		if side > 0 {
			corner = Pos(numFiles-1, rank)
		}
		rook := b.PieceAt(corner)
		if rook == nil || rook.Color != king.Color || rook.Kind != Rook || rook.Moved {
			continue
		}
		if !pathClear(b, king.Position, corner) {
			continue
		}
		// The king must not land on or beyond the rook's corner.
		dst := king.Position.Add(2*side, 0)
		if abs(corner.File-king.Position.File) < 3 {
			continue
		}
		m := newMove(king.Position, dst)
		m.Rook = rook.Key()
		m.RookSrc = corner
		m.RookDst = king.Position.Add(side, 0)
		moves = append(moves, m)
	}
	return moves
}

// pathClear reports whether every square strictly between a and b on the
// same rank is empty.
func pathClear(b *Board, a, c Position) bool {
	lo, hi := a.File, c.File
	if lo > hi {
		lo, hi = hi, lo
	}
	for f := lo + 1; f < hi; f++ {
		if b.At(Pos(f, a.Rank)) != NoKey {
			return false
		}
	}
	return true
}

// PromotionEligible reports whether m takes an unpromoted pawn to its last
// rank.
func PromotionEligible(p *Piece, m Move) bool {
	return p != nil && p.Kind == Pawn && p.Promoted == None && m.Dst.Rank == lastRank(p.Color)
}
