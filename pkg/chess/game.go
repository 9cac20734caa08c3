package chess

import (
	"errors"
	"fmt"
)

var (
	ErrIllegalMove = errors.New("illegal move")
	ErrNoHistory   = errors.New("no move to undo")
	ErrGameOver    = errors.New("game is over")
	ErrWrongTurn   = errors.New("not this side's turn")
)

type State int

const (
	InProgress State = iota
	Checkmate
	Stalemate
)

func (s State) String() string {
	switch s {
	case InProgress:
		return "InProgress"
	case Checkmate:
		return "Checkmate"
	case Stalemate:
		return "Stalemate"
	default:
		return "Unknown"
	}
}

// Over reports whether no further move can be played.
func (s State) Over() bool {
	return s == Checkmate || s == Stalemate
}

// Sound is the audio cue the controller asks its observer to play.
type Sound int

const (
	SoundMove Sound = iota
	SoundCapture
	SoundCastle
	SoundPromote
	SoundCheck
	SoundGameOver
	SoundIllegal
)

func (s Sound) String() string {
	switch s {
	case SoundMove:
		return "Move"
	case SoundCapture:
		return "Capture"
	case SoundCastle:
		return "Castle"
	case SoundPromote:
		return "Promote"
	case SoundCheck:
		return "Check"
	case SoundGameOver:
		return "GameOver"
	case SoundIllegal:
		return "Illegal"
	default:
		return "Unknown"
	}
}

// Observer is notified after every change of the game that a renderer may
// want to show.
type Observer interface {
	PlaySound(Sound)
	Redraw()
}

// PromotionChooser picks the kind a pawn promotes into. Returning a kind a
// pawn cannot become falls back to Queen.
type PromotionChooser func(pawn Key, m Move) Kind

// Game is the controller of a single game: the canonical board, whose turn
// it is, the action history and the selection state of the local player.
// Game is not safe for concurrent use.
type Game struct {
	board   Board
	turn    Color
	state   State
	history []Action

	// player restricts selection to one side when bound; an unbound game is
	// played from one seat by both sides.
	player Color
	bound  bool

	selected Position
	targets  []Move

	observer Observer
}

// NewGame returns a game on the standard initial board with White to move.
func NewGame() *Game {
	return NewGameFromBoard(NewBoard(), White)
}

// NewGameFromBoard starts a game from an arbitrary position.
func NewGameFromBoard(b Board, turn Color) *Game {
	g := &Game{board: b, turn: turn, selected: NoPosition}
	g.updateState()
	return g
}

// SetPlayer binds the local seat to color c: only c's pieces can be selected
// and only on c's turn.
func (g *Game) SetPlayer(c Color) {
	g.player = c
	g.bound = true
}

// Player returns the bound local color and whether one is bound.
func (g *Game) Player() (Color, bool) {
	return g.player, g.bound
}

func (g *Game) SetObserver(o Observer) {
	g.observer = o
}

func (g *Game) notify(s Sound) {
	if g.observer == nil {
		return
	}
	g.observer.PlaySound(s)
	g.observer.Redraw()
}

func (g *Game) redraw() {
	if g.observer != nil {
		g.observer.Redraw()
	}
}

func (g *Game) clearSelection() {
	g.selected = NoPosition
	g.targets = nil
}

// SelectSource selects the piece on pos if the local side may move it now and
// computes its legal moves for highlighting. Any earlier selection is
// dropped.
func (g *Game) SelectSource(pos Position) bool {
	g.clearSelection()
	if !pos.Valid() || g.state.Over() {
		g.redraw()
		return false
	}
	if g.bound && g.turn != g.player {
		g.redraw()
		return false
	}
	p := g.board.PieceAt(pos)
	if p == nil || p.Color != g.turn {
		g.redraw()
		return false
	}
	g.selected = pos
	g.targets = LegalMoves(&g.board, p.Key(), g.history)
	g.redraw()
	return true
}

// SelectDestination completes a selection. When pos is the destination of a
// legal move of the selected piece the action is returned for submission;
// the move is not applied. The selection is cleared in every case.
func (g *Game) SelectDestination(pos Position, choose PromotionChooser) (Action, bool) {
	if !g.selected.Valid() {
		return Action{}, false
	}
	src, targets := g.selected, g.targets
	g.clearSelection()
	if pos == src || !pos.Valid() {
		g.redraw()
		return Action{}, false
	}
	k := g.board.At(src)
	p := g.board.Piece(k)
	for _, m := range targets {
		if m.Dst != pos {
			continue
		}
		if PromotionEligible(p, m) {
			m.Promote = Queen
			if choose != nil {
				if kind := choose(k, m); kind.Promotable() {
					m.Promote = kind
				}
			}
		}
		m.FirstMove = !p.Moved
		g.redraw()
		return Action{Piece: k, Move: m}, true
	}
	g.notify(SoundIllegal)
	return Action{}, false
}

// Resolve maps a move received from elsewhere onto this game's own pieces.
// The mover, captured piece and rook are looked up by key, the move must be
// one of the mover's legal moves, and the promotion kind must fit. The
// returned move is the locally generated one.
func (g *Game) Resolve(k Key, m Move) (Move, error) {
	if g.state.Over() {
		return Move{}, ErrGameOver
	}
	p := g.board.Piece(k)
	if p == nil || !p.Alive {
		return Move{}, fmt.Errorf("%w: mover %s", ErrUnknownPiece, k)
	}
	if p.Color != g.turn {
		return Move{}, fmt.Errorf("%w: %s is %s", ErrWrongTurn, k, p.Color)
	}
	if m.Captured != NoKey {
		if c := g.board.Piece(m.Captured); c == nil || !c.Alive || c.Color == p.Color {
			return Move{}, fmt.Errorf("%w: captured %s", ErrIllegalMove, m.Captured)
		}
	}
	if m.Rook != NoKey {
		if r := g.board.Piece(m.Rook); r == nil || !r.Alive || r.Color != p.Color {
			return Move{}, fmt.Errorf("%w: rook %s", ErrIllegalMove, m.Rook)
		}
	}
	for _, lm := range LegalMoves(&g.board, k, g.history) {
		if !lm.Same(m) {
			continue
		}
		switch {
		case PromotionEligible(p, lm) && !m.Promote.Promotable():
			return Move{}, fmt.Errorf("%w: %s cannot promote to %s", ErrIllegalMove, lm, m.Promote)
		case !PromotionEligible(p, lm) && m.Promote != None:
			return Move{}, fmt.Errorf("%w: %s is not a promotion", ErrIllegalMove, lm)
		}
		lm.Promote = m.Promote
		lm.FirstMove = !p.Moved
		return lm, nil
	}
	return Move{}, fmt.Errorf("%w: %s %s", ErrIllegalMove, k, m)
}

// ApplyMove plays m with the piece k after checking it against the legal
// moves of k. Nothing changes when an error is returned.
func (g *Game) ApplyMove(k Key, m Move) error {
	lm, err := g.Resolve(k, m)
	if err != nil {
		return err
	}
	g.processMove(k, lm)
	return nil
}

// processMove performs an already validated move.
func (g *Game) processMove(k Key, m Move) {
	p := g.board.Piece(k)
	m.FirstMove = !p.Moved
	sound := SoundMove

	if m.Captured != NoKey {
		c := g.board.Piece(m.Captured)
		g.board.detach(m.Captured)
		c.Alive = false
		sound = SoundCapture
	}
	g.board.detach(k)
	g.board.attach(k, m.Dst)
	p.Moved = true

	if m.Rook != NoKey {
		r := g.board.Piece(m.Rook)
		g.board.detach(m.Rook)
		g.board.attach(m.Rook, m.RookDst)
		r.Moved = true
		sound = SoundCastle
	}
	if m.Promote != None {
		p.Promoted = m.Promote
		sound = SoundPromote
	}

	g.history = append(g.history, Action{Piece: k, Move: m})
	g.turn = g.turn.Opposite()
	g.updateState()
	g.clearSelection()

	switch {
	case g.state.Over():
		sound = SoundGameOver
	case IsKingInCheck(&g.board, g.turn):
		sound = SoundCheck
	}
	g.notify(sound)
}

// UndoMove reverts the last action.
func (g *Game) UndoMove() error {
	if len(g.history) == 0 {
		return ErrNoHistory
	}
	a := g.history[len(g.history)-1]
	g.history = g.history[:len(g.history)-1]
	m := a.Move

	p := g.board.Piece(a.Piece)
	g.board.detach(a.Piece)
	g.board.attach(a.Piece, m.Src)
	if m.FirstMove {
		p.Moved = false
	}
	if m.Promote != None {
		p.Promoted = None
	}
	if m.Rook != NoKey {
		r := g.board.Piece(m.Rook)
		g.board.detach(m.Rook)
		g.board.attach(m.Rook, m.RookSrc)
		r.Moved = false
	}
	// The captured piece kept the square it was taken on.
	if m.Captured != NoKey {
		c := g.board.Piece(m.Captured)
		c.Alive = true
		g.board.attach(m.Captured, c.Position)
	}

	g.turn = g.turn.Opposite()
	g.state = InProgress
	g.clearSelection()
	g.notify(SoundMove)
	return nil
}

// Reset starts over from the initial position.
func (g *Game) Reset() {
	g.board = NewBoard()
	g.turn = White
	g.state = InProgress
	g.history = nil
	g.clearSelection()
	g.redraw()
}

func (g *Game) updateState() {
	switch {
	case HasLegalMove(&g.board, g.turn, g.history):
		g.state = InProgress
	case IsKingInCheck(&g.board, g.turn):
		g.state = Checkmate
	default:
		g.state = Stalemate
	}
}

// Board returns a copy of the current board.
func (g *Game) Board() Board {
	return g.board
}

func (g *Game) Turn() Color {
	return g.turn
}

func (g *Game) State() State {
	return g.state
}

// Winner returns the side that delivered checkmate.
func (g *Game) Winner() (Color, bool) {
	if g.state != Checkmate {
		return White, false
	}
	return g.turn.Opposite(), true
}

// History returns a copy of the played actions, oldest first.
func (g *Game) History() []Action {
	return append([]Action(nil), g.history...)
}

// LastAction returns the most recent action.
func (g *Game) LastAction() (Action, bool) {
	if len(g.history) == 0 {
		return Action{}, false
	}
	return g.history[len(g.history)-1], true
}

// Captured returns the pieces of color c taken so far.
func (g *Game) Captured(c Color) []Piece {
	return g.board.Captured(c)
}

func (g *Game) InCheck(c Color) bool {
	return IsKingInCheck(&g.board, c)
}

// Piece returns a copy of the piece record for k.
func (g *Game) Piece(k Key) (Piece, bool) {
	p := g.board.Piece(k)
	if p == nil {
		return Piece{}, false
	}
	return *p, true
}

// Selected returns the selected square, NoPosition if none.
func (g *Game) Selected() Position {
	return g.selected
}

// Targets returns the legal moves of the selected piece.
func (g *Game) Targets() []Move {
	return append([]Move(nil), g.targets...)
}

func (g *Game) Serialize() Snapshot {
	return g.board.Serialize()
}

// ValidateSnapshot reports whether s equals the current serialization.
func (g *Game) ValidateSnapshot(s Snapshot) bool {
	return g.board.Serialize() == s
}

// Square is the render view of one board square.
type Square struct {
	Position    Position
	Key         Key
	Kind        Kind
	Color       Color
	Selected    bool
	Highlighted bool
	// Check marks the square of a king that is in check.
	Check bool
}

// Squares returns the render view of the board, row-major.
func (g *Game) Squares() [NumSquares]Square {
	var out [NumSquares]Square
	for i := range out {
		pos := PositionFromIndex(i)
		sq := Square{Position: pos, Key: g.board.At(pos), Selected: pos == g.selected}
		if p := g.board.Piece(sq.Key); p != nil {
			sq.Kind = p.Effective()
			sq.Color = p.Color
			sq.Check = p.Kind == King && IsKingInCheck(&g.board, p.Color)
		}
		out[i] = sq
	}
	for _, m := range g.targets {
		out[m.Dst.Index()].Highlighted = true
	}
	return out
}
