package chess

// simulate applies the occupancy effects of m on b: the captured piece is
// taken off its own square and marked dead, the mover lands on Dst and a
// castling rook is relocated. Moved flags, promotion and history are left
// alone since they never change who attacks what.
func (b *Board) simulate(k Key, m Move) {
	if m.Captured != NoKey {
		if c := b.Piece(m.Captured); c != nil {
			b.detach(m.Captured)
			c.Alive = false
		}
	}
	b.detach(k)
	b.attach(k, m.Dst)
	if m.Rook != NoKey {
		b.detach(m.Rook)
		b.attach(m.Rook, m.RookDst)
	}
}

// IsKingInCheck reports whether some live piece of the other side has a
// pseudo-legal move capturing c's king.
func IsKingInCheck(b *Board, c Color) bool {
	king := b.King(c)
	if kp := b.Piece(king); kp == nil || !kp.Alive {
		return false
	}
	for _, k := range b.Pieces(c.Opposite()) {
		for _, m := range possibleMoves(b, k, nil, false) {
			if m.Captured == king {
				return true
			}
		}
	}
	return false
}

// IsLegal reports whether playing m with k leaves k's side out of check.
// Castling additionally requires the king not to be in check before the
// move nor on the square it crosses.
func IsLegal(b *Board, k Key, m Move) bool {
	p := b.Piece(k)
	if p == nil || !p.Alive {
		return false
	}
	if m.IsCastle() {
		if IsKingInCheck(b, p.Color) {
			return false
		}
		crossing := *b
		crossing.detach(k)
		crossing.attach(k, m.RookDst)
		if IsKingInCheck(&crossing, p.Color) {
			return false
		}
	}
	scratch := *b
	scratch.simulate(k, m)
	return !IsKingInCheck(&scratch, p.Color)
}

// LegalMoves returns the pseudo-legal moves of k that pass IsLegal.
func LegalMoves(b *Board, k Key, history []Action) []Move {
	var legal []Move
	for _, m := range PossibleMoves(b, k, history) {
		if IsLegal(b, k, m) {
			legal = append(legal, m)
		}
	}
	return legal
}

// HasLegalMove reports whether side c can move at all.
func HasLegalMove(b *Board, c Color, history []Action) bool {
	for _, k := range b.Pieces(c) {
		for _, m := range PossibleMoves(b, k, history) {
			if IsLegal(b, k, m) {
				return true
			}
		}
	}
	return false
}
