package chess

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
)

var (
	ErrUnknownPiece   = errors.New("unknown piece key")
	ErrInvalidBoard   = errors.New("board invariant violated")
	ErrSquareOccupied = errors.New("square occupied")
)

// Piece is one record of the board's piece arena. Its Position is the square
// that references it; a captured piece keeps the square it was taken on.
type Piece struct {
	Kind     Kind
	Color    Color
	Initial  Position
	Position Position
	Alive    bool
	Moved    bool
	// Promoted is set on a pawn that reached the last rank. Move generation
	// and rendering follow it, the key stays the pawn's.
	Promoted Kind
}

// Key returns the piece's identity.
func (p *Piece) Key() Key {
	return KeyOf(p.Initial)
}

// Effective returns the kind the piece currently behaves as.
func (p *Piece) Effective() Kind {
	if p.Kind == Pawn && p.Promoted != None {
		return p.Promoted
	}
	return p.Kind
}

func (p *Piece) String() string {
	return fmt.Sprintf("%s %s@%s", p.Color, p.Effective(), p.Position)
}

// Board is the 8x8 grid plus the arena of every piece created for the game.
// Squares and the arena are both indexed row-major; the arena by the
// piece's initial square. Board is a value: assigning it makes an
// independent copy, which is what the legality filter simulates on.
type Board struct {
	squares [NumSquares]Key
	pieces  [NumSquares]Piece
}

// EmptyBoard returns a board without pieces.
func EmptyBoard() Board {
	return Board{}
}

var backRank = [numFiles]Kind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// NewBoard returns the standard initial layout.
func NewBoard() Board {
	b := EmptyBoard()
	for f := 0; f < numFiles; f++ {
		b.mustPlace(backRank[f], White, Pos(f, 0))
		b.mustPlace(Pawn, White, Pos(f, 1))
		b.mustPlace(Pawn, Black, Pos(f, 6))
		b.mustPlace(backRank[f], Black, Pos(f, 7))
	}
	return b
}

func (b *Board) mustPlace(kind Kind, c Color, p Position) {
	if _, err := b.Place(kind, c, p); err != nil {
		panic(err)
	}
}

// Place creates a piece on an empty square. The square becomes the piece's
// initial position and therefore its key.
func (b *Board) Place(kind Kind, c Color, p Position) (Key, error) {
	if !p.Valid() {
		return NoKey, fmt.Errorf("place %s: position off board", p)
	}
	if kind == None {
		return NoKey, fmt.Errorf("place %s: no kind", p)
	}
	if b.squares[p.Index()] != NoKey || b.pieces[p.Index()].Kind != None {
		return NoKey, fmt.Errorf("place %s: %w", p, ErrSquareOccupied)
	}
	b.pieces[p.Index()] = Piece{
		Kind:     kind,
		Color:    c,
		Initial:  p,
		Position: p,
		Alive:    true,
	}
	k := KeyOf(p)
	b.squares[p.Index()] = k
	return k, nil
}

// Piece returns the arena record for k, or nil if no such piece exists.
func (b *Board) Piece(k Key) *Piece {
	if !k.Valid() {
		return nil
	}
	p := &b.pieces[k.Initial().Index()]
	if p.Kind == None {
		return nil
	}
	return p
}

// At returns the key of the piece standing on p, NoKey if none.
func (b *Board) At(p Position) Key {
	if !p.Valid() {
		return NoKey
	}
	return b.squares[p.Index()]
}

// PieceAt returns the live piece standing on p, or nil.
func (b *Board) PieceAt(p Position) *Piece {
	return b.Piece(b.At(p))
}

// Pieces returns the keys of the live pieces of color c in arena order.
func (b *Board) Pieces(c Color) []Key {
	var keys []Key
	for i := range b.pieces {
		p := &b.pieces[i]
		if p.Kind != None && p.Alive && p.Color == c {
			keys = append(keys, p.Key())
		}
	}
	return keys
}

// King returns the key of c's king, NoKey if there is none.
func (b *Board) King(c Color) Key {
	for i := range b.pieces {
		p := &b.pieces[i]
		if p.Kind == King && p.Color == c {
			return p.Key()
		}
	}
	return NoKey
}

// Captured returns the pieces of color c that are no longer alive, in
// arena order.
func (b *Board) Captured(c Color) []Piece {
	var out []Piece
	for i := range b.pieces {
		p := b.pieces[i]
		if p.Kind != None && !p.Alive && p.Color == c {
			out = append(out, p)
		}
	}
	return out
}

// detach clears the square referencing k.
func (b *Board) detach(k Key) {
	p := b.Piece(k)
	if p == nil {
		return
	}
	if p.Position.Valid() && b.squares[p.Position.Index()] == k {
		b.squares[p.Position.Index()] = NoKey
	}
}

// attach puts k on pos and updates its back reference.
func (b *Board) attach(k Key, pos Position) {
	p := b.Piece(k)
	if p == nil || !pos.Valid() {
		return
	}
	b.squares[pos.Index()] = k
	p.Position = pos
}

// Validate checks that every live piece is referenced by exactly the square
// it records, and that no square references a dead or missing piece.
func (b *Board) Validate() error {
	for i, k := range b.squares {
		if k == NoKey {
			continue
		}
		p := b.Piece(k)
		if p == nil {
			return fmt.Errorf("%w: square %s holds %s", ErrUnknownPiece, PositionFromIndex(i), k)
		}
		if !p.Alive {
			return fmt.Errorf("%w: square %s holds dead piece %s", ErrInvalidBoard, PositionFromIndex(i), k)
		}
		if p.Position.Index() != i {
			return fmt.Errorf("%w: %s recorded at %s but found on %s", ErrInvalidBoard, k, p.Position, PositionFromIndex(i))
		}
	}
	for i := range b.pieces {
		p := &b.pieces[i]
		if p.Kind == None || !p.Alive {
			continue
		}
		if b.At(p.Position) != p.Key() {
			return fmt.Errorf("%w: live piece %s not on its square %s", ErrInvalidBoard, p.Key(), p.Position)
		}
	}
	return nil
}

// Snapshot is the 64 byte board serialization: one byte per square in
// row-major order, 0 when empty, else the occupant's key.
type Snapshot [NumSquares]byte

// Serialize returns the board's snapshot.
func (b *Board) Serialize() Snapshot {
	var s Snapshot
	for i, k := range b.squares {
		s[i] = byte(k)
	}
	return s
}

// Restore returns a copy of b whose occupancy follows s. The receiver's arena
// is the roster: every key in s must name one of its pieces. Pieces absent
// from s are marked captured.
func (b *Board) Restore(s Snapshot) (Board, error) {
	out := *b
	out.squares = [NumSquares]Key{}
	for i := range out.pieces {
		if out.pieces[i].Kind != None {
			out.pieces[i].Alive = false
		}
	}
	for i, raw := range s {
		k := Key(raw)
		if k == NoKey {
			continue
		}
		p := out.Piece(k)
		if p == nil {
			return Board{}, fmt.Errorf("restore square %s: %w %s", PositionFromIndex(i), ErrUnknownPiece, k)
		}
		if p.Alive {
			return Board{}, fmt.Errorf("restore square %s: %w: %s appears twice", PositionFromIndex(i), ErrInvalidBoard, k)
		}
		p.Alive = true
		out.attach(k, PositionFromIndex(i))
	}
	return out, nil
}

// Draw renders the board as text, rank 8 at the top.
func (b *Board) Draw() string {
	return b.draw(func(p *Piece, s string) string { return s })
}

var (
	whitePieceColor = color.New(color.FgHiWhite, color.Bold)
	blackPieceColor = color.New(color.FgHiRed, color.Bold)
)

// DrawColor renders the board like Draw with ANSI colored pieces.
func (b *Board) DrawColor() string {
	return b.draw(func(p *Piece, s string) string {
		if p.Color == White {
			return whitePieceColor.Sprint(s)
		}
		return blackPieceColor.Sprint(s)
	})
}

func (b *Board) draw(paint func(*Piece, string) string) string {
	var sb strings.Builder
	for r := numRanks - 1; r >= 0; r-- {
		fmt.Fprintf(&sb, "%d ", r+1)
		for f := 0; f < numFiles; f++ {
			p := b.PieceAt(Pos(f, r))
			if p == nil {
				sb.WriteString(". ")
				continue
			}
			letter := p.Effective().Letter()
			if p.Color == Black {
				letter += 'a' - 'A'
			}
			sb.WriteString(paint(p, string(letter)))
			sb.WriteByte(' ')
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("  a b c d e f g h")
	return sb.String()
}
