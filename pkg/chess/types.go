// Package chess is the rules engine: board model, pseudo-legal move
// generation per piece kind, the legality filter and the game controller.
package chess

import (
	"fmt"
)

const (
	numFiles   = 8
	numRanks   = 8
	NumSquares = numFiles * numRanks
)

type Color uint8

const (
	White Color = iota
	Black
)

func (c Color) String() string {
	switch c {
	case White:
		return "White"
	case Black:
		return "Black"
	default:
		return "Unknown"
	}
}

// Opposite returns the other side.
func (c Color) Opposite() Color {
	if c == White {
		return Black
	}
	return White
}

// Valid reports whether c is one of the two playing colors.
func (c Color) Valid() bool {
	return c == White || c == Black
}

// Kind is a piece kind. The numeric values are part of the wire format.
type Kind uint8

const (
	None Kind = iota
	Pawn
	Rook
	Knight
	Bishop
	Queen
	King
)

func (k Kind) String() string {
	switch k {
	case None:
		return "None"
	case Pawn:
		return "Pawn"
	case Rook:
		return "Rook"
	case Knight:
		return "Knight"
	case Bishop:
		return "Bishop"
	case Queen:
		return "Queen"
	case King:
		return "King"
	default:
		return "Unknown"
	}
}

// Letter returns the upper case letter of the kind, 'P' for pawns.
func (k Kind) Letter() byte {
	letters := []byte{' ', 'P', 'R', 'N', 'B', 'Q', 'K'}
	if int(k) < len(letters) {
		return letters[k]
	}
	return '?'
}

// Promotable reports whether a pawn may promote into k.
func (k Kind) Promotable() bool {
	return k == Rook || k == Knight || k == Bishop || k == Queen
}

// Position is a (file, rank) pair. File 0 is the a-file and rank 0 is
// White's back rank.
type Position struct {
	File int
	Rank int
}

// NoPosition marks an absent position, e.g. the rook squares of a move that
// is not a castle.
var NoPosition = Position{File: -1, Rank: -1}

func Pos(file, rank int) Position {
	return Position{File: file, Rank: rank}
}

// Valid reports whether p lies on the board.
func (p Position) Valid() bool {
	return p.File >= 0 && p.File < numFiles && p.Rank >= 0 && p.Rank < numRanks
}

// Index is the row-major square index used by Board and the wire snapshot.
func (p Position) Index() int {
	return p.Rank*numFiles + p.File
}

// Add offsets p by (df, dr). The result may be off the board.
func (p Position) Add(df, dr int) Position {
	return Position{File: p.File + df, Rank: p.Rank + dr}
}

func (p Position) String() string {
	if !p.Valid() {
		return "-"
	}
	return fmt.Sprintf("%c%d", 'a'+p.File, p.Rank+1)
}

// PositionFromIndex is the inverse of Position.Index.
func PositionFromIndex(i int) Position {
	return Position{File: i % numFiles, Rank: i / numFiles}
}

// ParsePosition parses algebraic square names such as "e4".
func ParsePosition(s string) (Position, error) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return NoPosition, fmt.Errorf("invalid square %q", s)
	}
	return Position{File: int(s[0] - 'a'), Rank: int(s[1] - '1')}, nil
}

// Key identifies a piece for its whole lifetime. It is derived from the
// piece's initial square: 0x80 | file<<4 | rank. The zero Key means no piece.
type Key uint8

const NoKey Key = 0

const keyFlag = 0x80

// KeyOf returns the key of the piece that starts on p.
func KeyOf(p Position) Key {
	return Key(keyFlag | p.File<<4 | p.Rank)
}

// Valid reports whether k could have been produced by KeyOf.
func (k Key) Valid() bool {
	return k&keyFlag != 0 && k&0x08 == 0
}

// Initial returns the starting square encoded in k.
func (k Key) Initial() Position {
	return Position{File: int(k>>4) & 0x07, Rank: int(k) & 0x07}
}

func (k Key) String() string {
	if k == NoKey {
		return "none"
	}
	return fmt.Sprintf("0x%02x(%s)", uint8(k), k.Initial())
}
