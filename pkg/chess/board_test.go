package chess

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestKeyRoundTrip(t *testing.T) {
	for i := 0; i < NumSquares; i++ {
		p := PositionFromIndex(i)
		k := KeyOf(p)
		if !k.Valid() {
			t.Errorf("KeyOf(%s) = %s is not valid", p, k)
		}
		if got := k.Initial(); got != p {
			t.Errorf("KeyOf(%s).Initial() = %s", p, got)
		}
	}
	if got := KeyOf(Pos(4, 0)); got != 0xC0 {
		t.Errorf("white king key = %#x, want 0xc0", uint8(got))
	}
	if NoKey.Valid() {
		t.Error("NoKey must not be valid")
	}
}

func TestParsePosition(t *testing.T) {
	tests := []struct {
		in      string
		want    Position
		wantErr bool
	}{
		{in: "a1", want: Pos(0, 0)},
		{in: "e4", want: Pos(4, 3)},
		{in: "h8", want: Pos(7, 7)},
		{in: "i1", wantErr: true},
		{in: "a9", wantErr: true},
		{in: "e", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePosition(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePosition(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParsePosition(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewBoard(t *testing.T) {
	b := NewBoard()
	if err := b.Validate(); err != nil {
		t.Fatal(err)
	}
	for _, c := range []Color{White, Black} {
		if n := len(b.Pieces(c)); n != 16 {
			t.Errorf("%s has %d pieces, want 16", c, n)
		}
	}
	want := "8 r n b q k b n r \n" +
		"7 p p p p p p p p \n" +
		"6 . . . . . . . . \n" +
		"5 . . . . . . . . \n" +
		"4 . . . . . . . . \n" +
		"3 . . . . . . . . \n" +
		"2 P P P P P P P P \n" +
		"1 R N B Q K B N R \n" +
		"  a b c d e f g h"
	if diff := cmp.Diff(want, b.Draw()); diff != "" {
		t.Errorf("Draw() mismatch (-want +got):\n%s", diff)
	}
	if got := b.King(Black); got != KeyOf(Pos(4, 7)) {
		t.Errorf("King(Black) = %s", got)
	}
}

func TestPlaceOccupied(t *testing.T) {
	b := EmptyBoard()
	if _, err := b.Place(Rook, White, Pos(0, 0)); err != nil {
		t.Fatal(err)
	}
	_, err := b.Place(Knight, Black, Pos(0, 0))
	if !errors.Is(err, ErrSquareOccupied) {
		t.Errorf("Place on occupied square error = %v, want %v", err, ErrSquareOccupied)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	g := NewGame()
	play(t, g, "e2e4", "d7d5", "e4d5", "g8f6", "f1b5", "c7c6")
	b := g.Board()

	restored, err := b.Restore(b.Serialize())
	if err != nil {
		t.Fatal(err)
	}
	if err := restored.Validate(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(b.Serialize(), restored.Serialize()); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
	for i := 0; i < NumSquares; i++ {
		p := PositionFromIndex(i)
		if b.At(p) != restored.At(p) {
			t.Errorf("square %s: %s != %s", p, b.At(p), restored.At(p))
		}
	}
	if got := len(restored.Captured(Black)); got != 1 {
		t.Errorf("restored board has %d captured black pieces, want 1", got)
	}
}

func TestRestoreRejects(t *testing.T) {
	b := NewBoard()

	unknown := b.Serialize()
	unknown[Pos(4, 3).Index()] = byte(KeyOf(Pos(4, 3)))
	if _, err := b.Restore(unknown); !errors.Is(err, ErrUnknownPiece) {
		t.Errorf("unknown key: error = %v, want %v", err, ErrUnknownPiece)
	}

	dup := b.Serialize()
	dup[Pos(4, 3).Index()] = byte(KeyOf(Pos(4, 1)))
	if _, err := b.Restore(dup); !errors.Is(err, ErrInvalidBoard) {
		t.Errorf("duplicate key: error = %v, want %v", err, ErrInvalidBoard)
	}
}

func TestValidateDetectsBrokenBackReference(t *testing.T) {
	b := NewBoard()
	b.squares[Pos(4, 3).Index()] = KeyOf(Pos(4, 1))
	if err := b.Validate(); !errors.Is(err, ErrInvalidBoard) {
		t.Errorf("Validate() = %v, want %v", err, ErrInvalidBoard)
	}
}
