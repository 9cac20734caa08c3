package server

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/qnkhuat/chessterm/pkg/chess"
	"github.com/qnkhuat/chessterm/pkg/notation"
	"github.com/qnkhuat/chessterm/pkg/protocol"
)

var (
	ErrDesync      = errors.New("board snapshot out of sync")
	ErrNotInMatch  = errors.New("player is not in this match")
	ErrNotYourTurn = errors.New("not the player's turn")
	ErrMatchOver   = errors.New("match is over")
	ErrRejected    = errors.New("move rejected")
)

// Match is one game between two paired players. The lock is taken blocking
// for every command, so concurrent submissions are applied one after the
// other and none is dropped.
type Match struct {
	Name    string
	Started time.Time

	mu      sync.Mutex
	game    *chess.Game
	players [2]*Player
	over    bool
}

func NewMatch(name string, white, black *Player) *Match {
	return &Match{
		Name:    name,
		Started: time.Now(),
		game:    chess.NewGame(),
		players: [2]*Player{white, black},
	}
}

// Player returns the player of color c.
func (m *Match) Player(c chess.Color) *Player {
	return m.players[c]
}

// ColorOf returns the side p plays.
func (m *Match) ColorOf(p *Player) (chess.Color, bool) {
	for i, mp := range m.players {
		if mp == p {
			return chess.Color(i), true
		}
	}
	return chess.White, false
}

// Opponent returns the other player of the match.
func (m *Match) Opponent(p *Player) *Player {
	c, ok := m.ColorOf(p)
	if !ok {
		return nil
	}
	return m.players[c.Opposite()]
}

// Play validates and applies a command of p. The submitted snapshot must
// equal the current board before anything else is looked at; on any error
// the game is left untouched.
func (m *Match) Play(p *Player, cmd protocol.Command) (protocol.Relay, chess.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.over {
		return protocol.Relay{}, m.game.State(), ErrMatchOver
	}
	c, ok := m.ColorOf(p)
	if !ok {
		return protocol.Relay{}, m.game.State(), ErrNotInMatch
	}
	if c != m.game.Turn() {
		return protocol.Relay{}, m.game.State(), fmt.Errorf("%w: %s to move", ErrNotYourTurn, m.game.Turn())
	}
	if !m.game.ValidateSnapshot(cmd.Snapshot) {
		return protocol.Relay{}, m.game.State(), ErrDesync
	}
	mv, err := m.game.Resolve(cmd.Piece, cmd.Move)
	if err != nil {
		return protocol.Relay{}, m.game.State(), fmt.Errorf("%w: %w", ErrRejected, err)
	}
	if err := m.game.ApplyMove(cmd.Piece, mv); err != nil {
		return protocol.Relay{}, m.game.State(), fmt.Errorf("%w: %w", ErrRejected, err)
	}

	state := m.game.State()
	m.over = state.Over()
	if !m.over {
		m.players[m.game.Turn()].touch()
	}
	return protocol.Relay{
		Piece:    cmd.Piece,
		Move:     mv,
		Snapshot: m.game.Serialize(),
		Turn:     m.game.Turn(),
	}, state, nil
}

// OnMove reports whether the match is waiting for a command from p.
func (m *Match) OnMove(p *Player) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.ColorOf(p)
	return ok && !m.over && c == m.game.Turn()
}

// Snapshot returns the current board serialization.
func (m *Match) Snapshot() chess.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.game.Serialize()
}

// Draw renders the board with colored pieces for the debug log.
func (m *Match) Draw() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.game.Board()
	return b.DrawColor()
}

// Result describes how the game ended, e.g. "0-1 checkmate".
func (m *Match) Result() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.game.State() {
	case chess.Checkmate:
		if winner, _ := m.game.Winner(); winner == chess.White {
			return "1-0 checkmate"
		}
		return "0-1 checkmate"
	case chess.Stalemate:
		return "1/2-1/2 stalemate"
	default:
		return "*"
	}
}

// PGN returns the moves played so far.
func (m *Match) PGN() (string, error) {
	m.mu.Lock()
	history := m.game.History()
	m.mu.Unlock()
	return notation.PGN(history)
}
