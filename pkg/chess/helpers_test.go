package chess

import (
	"testing"
)

func mustPos(t *testing.T, s string) Position {
	t.Helper()
	p, err := ParsePosition(s)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

type placement struct {
	square string
	kind   Kind
	color  Color
}

func setup(t *testing.T, pieces ...placement) Board {
	t.Helper()
	b := EmptyBoard()
	for _, pl := range pieces {
		if _, err := b.Place(pl.kind, pl.color, mustPos(t, pl.square)); err != nil {
			t.Fatal(err)
		}
	}
	return b
}

func promotionKind(c byte) Kind {
	switch c {
	case 'q':
		return Queen
	case 'r':
		return Rook
	case 'b':
		return Bishop
	case 'n':
		return Knight
	}
	return None
}

// find returns the legal move described by a UCI string such as "e2e4" or
// "a7a8n".
func find(t *testing.T, g *Game, s string) (Key, Move) {
	t.Helper()
	src, dst := mustPos(t, s[0:2]), mustPos(t, s[2:4])
	b := g.Board()
	k := b.At(src)
	if k == NoKey {
		t.Fatalf("%s: no piece on %s", s, src)
	}
	for _, m := range LegalMoves(&b, k, g.History()) {
		if m.Dst != dst {
			continue
		}
		if len(s) == 5 {
			m.Promote = promotionKind(s[4])
		}
		return k, m
	}
	t.Fatalf("%s is not a legal move\n%s", s, b.Draw())
	return NoKey, Move{}
}

func play(t *testing.T, g *Game, moves ...string) {
	t.Helper()
	for _, s := range moves {
		k, m := find(t, g, s)
		if err := g.ApplyMove(k, m); err != nil {
			t.Fatalf("%s: %v", s, err)
		}
	}
}

// destinations lists the destination squares of moves in generation order.
func destinations(moves []Move) []string {
	out := []string{}
	for _, m := range moves {
		out = append(out, m.Dst.String())
	}
	return out
}

type recorder struct {
	sounds  []Sound
	redraws int
}

func (r *recorder) PlaySound(s Sound) { r.sounds = append(r.sounds, s) }
func (r *recorder) Redraw()           { r.redraws++ }
