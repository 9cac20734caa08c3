package notation

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/notnil/chess"

	engine "github.com/qnkhuat/chessterm/pkg/chess"
)

func play(t *testing.T, g *engine.Game, moves ...string) {
	t.Helper()
	for _, s := range moves {
		src, err := engine.ParsePosition(s[0:2])
		if err != nil {
			t.Fatal(err)
		}
		dst, err := engine.ParsePosition(s[2:4])
		if err != nil {
			t.Fatal(err)
		}
		b := g.Board()
		k := b.At(src)
		found := false
		for _, m := range engine.LegalMoves(&b, k, g.History()) {
			if m.Dst != dst {
				continue
			}
			if len(s) == 5 {
				m.Promote = map[byte]engine.Kind{'q': engine.Queen, 'r': engine.Rook, 'b': engine.Bishop, 'n': engine.Knight}[s[4]]
			}
			if err := g.ApplyMove(k, m); err != nil {
				t.Fatalf("%s: %v", s, err)
			}
			found = true
			break
		}
		if !found {
			t.Fatalf("%s is not legal", s)
		}
	}
}

func TestUCI(t *testing.T) {
	g := engine.NewGame()
	play(t, g, "e2e4", "d7d5", "e4d5")
	var got []string
	for _, a := range g.History() {
		got = append(got, UCI(a.Move))
	}
	if diff := cmp.Diff([]string{"e2e4", "d7d5", "e4d5"}, got); diff != "" {
		t.Errorf("UCI mismatch (-want +got):\n%s", diff)
	}

	m := engine.Move{Src: engine.Pos(0, 6), Dst: engine.Pos(0, 7), Promote: engine.Knight}
	if got := UCI(m); got != "a7a8n" {
		t.Errorf("UCI(promotion) = %q, want a7a8n", got)
	}
}

func TestFEN(t *testing.T) {
	tests := []struct {
		name  string
		moves []string
		want  string
	}{
		{
			name: "initial",
			want: "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		},
		{
			name:  "double push sets en passant target",
			moves: []string{"e2e4"},
			want:  "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1",
		},
		{
			name:  "knight moves count toward the halfmove clock",
			moves: []string{"g1f3", "g8f6", "h1g1"},
			want:  "rnbqkb1r/pppppppp/5n2/8/8/5N2/PPPPPPPP/RNBQKBR1 b Qkq - 3 2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := engine.NewGame()
			play(t, g, tt.moves...)
			if diff := cmp.Diff(tt.want, FEN(g)); diff != "" {
				t.Errorf("FEN mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// The FEN we produce must describe the same position as the library after
// replaying the same moves.
func TestFENMatchesReplay(t *testing.T) {
	g := engine.NewGame()
	moves := []string{"e2e4", "c7c5", "g1f3", "d7d6", "f1b5", "c8d7", "e1g1", "d7b5"}
	play(t, g, moves...)
	ref, err := Replay(g.History())
	if err != nil {
		t.Fatal(err)
	}
	want := strings.Fields(ref.Position().String())
	got := strings.Fields(FEN(g))
	if diff := cmp.Diff(want[:3], got[:3]); diff != "" {
		t.Errorf("placement, turn and castling mismatch (-want +got):\n%s", diff)
	}
}

func TestPGN(t *testing.T) {
	g := engine.NewGame()
	play(t, g, "f2f3", "e7e5", "g2g4", "d8h4")
	pgn, err := PGN(g.History())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"1.f3 e5", "2.g4 Qh4#", "0-1"} {
		if !strings.Contains(pgn, want) {
			t.Errorf("PGN %q does not contain %q", pgn, want)
		}
	}

	lib := chess.NewGame()
	for _, san := range []string{"f3", "e5", "g4", "Qh4#"} {
		if err := lib.MoveStr(san); err != nil {
			t.Fatal(err)
		}
	}
	if diff := cmp.Diff(lib.String(), pgn); diff != "" {
		t.Errorf("PGN mismatch (-want +got):\n%s", diff)
	}

	ref, err := Replay(g.History())
	if err != nil {
		t.Fatal(err)
	}
	if ref.Method() != chess.Checkmate {
		t.Errorf("replayed method = %s, want Checkmate", ref.Method())
	}
}

func TestReplayRejectsImpossibleHistory(t *testing.T) {
	history := []engine.Action{{
		Piece: engine.KeyOf(engine.Pos(4, 1)),
		Move:  engine.Move{Src: engine.Pos(4, 1), Dst: engine.Pos(4, 4)},
	}}
	if _, err := Replay(history); err == nil {
		t.Error("Replay accepted e2e5")
	}
}
