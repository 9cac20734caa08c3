// Package client keeps a local copy of a networked game in step with the
// server. Moves chosen by the local player are sent as commands and applied
// only when the server relays them back.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/qnkhuat/chessterm/pkg/chess"
	"github.com/qnkhuat/chessterm/pkg/notation"
	"github.com/qnkhuat/chessterm/pkg/protocol"
)

const ConnQueueSize = 10

var (
	ErrDesync = errors.New("client: board out of sync with server")
	ErrClosed = errors.New("client: connection closed")
)

type Client struct {
	Nick  string
	conn  net.Conn
	color chess.Color
	log   zerolog.Logger

	mu   sync.Mutex
	game *chess.Game
	// awaiting is set from sending a command until its relay arrives.
	awaiting  bool
	promotion *protocol.Command

	out       chan protocol.Command
	done      chan struct{}
	closeOnce sync.Once
	err       error
}

// Connect dials the server and waits until it has paired us and sent our
// color. Cancelling ctx abandons the wait.
func Connect(ctx context.Context, addr, nick string, log zerolog.Logger) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
	})
	color, err := protocol.ReadColor(conn)
	if !stop() {
		conn.Close()
		return nil, ctx.Err()
	}
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("waiting for color: %w", err)
	}
	return newClient(conn, nick, color, chess.NewGame(), log), nil
}

func newClient(conn net.Conn, nick string, color chess.Color, g *chess.Game, log zerolog.Logger) *Client {
	g.SetPlayer(color)
	c := &Client{
		Nick:  nick,
		conn:  conn,
		color: color,
		game:  g,
		out:   make(chan protocol.Command, ConnQueueSize),
		done:  make(chan struct{}),
	}
	c.log = log.With().Str("nick", nick).Stringer("color", color).Logger()
	c.log.Info().Str("server", conn.RemoteAddr().String()).Msg("paired")
	return c
}

// Run serves the connection until the session ends or ctx is cancelled and
// returns why it ended: a protocol.Notice from the server, ErrDesync, a
// transport error, or nil after Close.
func (c *Client) Run(ctx context.Context) error {
	go c.HandleWrite()
	go func() {
		select {
		case <-ctx.Done():
			c.close(ctx.Err())
		case <-c.done:
		}
	}()
	c.close(c.HandleRead())
	return c.Err()
}

// HandleRead applies relays from the server until it sends a notice or the
// connection fails.
func (c *Client) HandleRead() error {
	for {
		msg, err := protocol.ReadServerMessage(c.conn)
		if errors.Is(err, io.EOF) {
			return ErrClosed
		}
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		switch m := msg.(type) {
		case protocol.Relay:
			if err := c.apply(m); err != nil {
				c.log.Error().Err(err).Msg("desync")
				return err
			}
		case protocol.Notice:
			c.log.Info().Stringer("reason", m.Reason).Msg("session ended by server")
			return m
		}
	}
}

func (c *Client) apply(r protocol.Relay) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.game.ApplyMove(r.Piece, r.Move); err != nil {
		return fmt.Errorf("%w: relayed %s %s: %w", ErrDesync, r.Piece, r.Move, err)
	}
	if !c.game.ValidateSnapshot(r.Snapshot) || c.game.Turn() != r.Turn {
		return fmt.Errorf("%w: position after %s", ErrDesync, notation.UCI(r.Move))
	}
	c.awaiting = false
	c.promotion = nil
	c.log.Debug().Str("move", notation.UCI(r.Move)).Stringer("turn", r.Turn).Msg("applied relay")
	return nil
}

// HandleWrite sends queued commands until the session ends.
func (c *Client) HandleWrite() {
	for {
		select {
		case <-c.done:
			return
		case cmd := <-c.out:
			if err := protocol.Write(c.conn, cmd); err != nil {
				c.close(fmt.Errorf("send command: %w", err))
				return
			}
			c.log.Debug().Str("move", notation.UCI(cmd.Move)).Msg("sent command")
		}
	}
}

// Click handles a click of the local player on pos. The first click selects
// a piece, the second picks its destination and sends the move. It returns
// true when the move is a promotion waiting for Promote.
func (c *Client) Click(pos chess.Position) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ended() || c.awaiting || c.promotion != nil || c.game.Turn() != c.color {
		return false
	}
	selected := c.game.Selected()
	if !selected.Valid() {
		c.game.SelectSource(pos)
		return false
	}
	b := c.game.Board()
	if p := b.PieceAt(pos); p != nil && p.Color == c.color && pos != selected {
		c.game.SelectSource(pos)
		return false
	}

	asked := false
	action, ok := c.game.SelectDestination(pos, func(chess.Key, chess.Move) chess.Kind {
		asked = true
		return chess.Queen
	})
	if !ok {
		return false
	}
	cmd := protocol.Command{Snapshot: c.game.Serialize(), Piece: action.Piece, Move: action.Move}
	if asked {
		c.promotion = &cmd
		return true
	}
	c.submit(cmd)
	return false
}

// Promote sends the pending promotion as kind. It reports false when there
// is none or a pawn cannot become kind.
func (c *Client) Promote(kind chess.Kind) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.promotion == nil || !kind.Promotable() {
		return false
	}
	cmd := *c.promotion
	c.promotion = nil
	cmd.Move.Promote = kind
	c.submit(cmd)
	return true
}

func (c *Client) CancelPromotion() {
	c.mu.Lock()
	c.promotion = nil
	c.mu.Unlock()
}

// submit must be called with mu held. At most one command is ever queued.
func (c *Client) submit(cmd protocol.Command) {
	select {
	case c.out <- cmd:
		c.awaiting = true
	case <-c.done:
	}
}

func (c *Client) ended() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Client) close(err error) {
	c.closeOnce.Do(func() {
		c.err = err
		close(c.done)
		c.conn.Close()
	})
}

// Close ends the session from our side.
func (c *Client) Close() error {
	c.close(nil)
	return nil
}

// Done is closed when the session has ended.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns why the session ended, nil while it is running.
func (c *Client) Err() error {
	if !c.ended() {
		return nil
	}
	return c.err
}

// Notice returns the server's termination notice, if that is what ended the
// session.
func (c *Client) Notice() (protocol.Notice, bool) {
	var n protocol.Notice
	return n, errors.As(c.Err(), &n)
}

// SetObserver forwards game events such as sounds and redraws to o.
func (c *Client) SetObserver(o chess.Observer) {
	c.mu.Lock()
	c.game.SetObserver(o)
	c.mu.Unlock()
}

func (c *Client) Color() chess.Color {
	return c.color
}

func (c *Client) Turn() chess.Color {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.game.Turn()
}

func (c *Client) State() chess.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.game.State()
}

func (c *Client) Winner() (chess.Color, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.game.Winner()
}

func (c *Client) InCheck() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.game.InCheck(c.game.Turn())
}

// Awaiting reports whether a sent move has not been relayed back yet.
func (c *Client) Awaiting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.awaiting
}

func (c *Client) PendingPromotion() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.promotion != nil
}

func (c *Client) Squares() [chess.NumSquares]chess.Square {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.game.Squares()
}

// Captured returns the pieces of color col taken so far.
func (c *Client) Captured(col chess.Color) []chess.Piece {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.game.Captured(col)
}

func (c *Client) History() []chess.Action {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.game.History()
}

func (c *Client) Board() chess.Board {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.game.Board()
}

// PGN returns the moves played so far as PGN text.
func (c *Client) PGN() (string, error) {
	return notation.PGN(c.History())
}
