package server

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/qnkhuat/chessterm/pkg/protocol"
)

var ErrClosed = errors.New("connection closing")

// Player is one accepted connection. It is owned by a single worker, which
// is the only goroutine that unregisters and closes it.
type Player struct {
	ID   uuid.UUID
	Name string

	conn   net.Conn
	worker *worker
	log    zerolog.Logger

	mu       sync.Mutex
	outbuf   []byte
	draining bool
	wake     chan struct{}

	done      chan struct{}
	closeOnce sync.Once
	turnStart atomic.Int64
}

func newPlayer(conn net.Conn, name string, log zerolog.Logger) *Player {
	p := &Player{
		ID:   uuid.New(),
		Name: name,
		conn: conn,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	p.log = log.With().Str("player", p.Name).Str("id", p.ID.String()).Logger()
	p.touch()
	return p
}

func (p *Player) String() string {
	return p.Name
}

// touch restarts the idle clock. It is called when the player's turn starts.
func (p *Player) touch() {
	p.turnStart.Store(time.Now().UnixNano())
}

// Idle returns how long the player has been on the move.
func (p *Player) Idle(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, p.turnStart.Load()))
}

func (p *Player) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Send appends m to the outbound buffer and wakes the writer. It never
// blocks on the network.
func (p *Player) Send(m protocol.Message) error {
	data, err := m.MarshalBinary()
	if err != nil {
		return err
	}
	p.mu.Lock()
	if p.draining {
		p.mu.Unlock()
		return ErrClosed
	}
	p.outbuf = append(p.outbuf, data...)
	p.mu.Unlock()
	p.signal()
	return nil
}

// Terminate queues the notice as the last message. The writer flushes it and
// then hands the player back to its worker to be closed. Only the first call
// has an effect.
func (p *Player) Terminate(reason protocol.Reason) {
	data, _ := protocol.Notice{Reason: reason}.MarshalBinary()
	p.mu.Lock()
	if p.draining {
		p.mu.Unlock()
		return
	}
	p.outbuf = append(p.outbuf, data...)
	p.draining = true
	p.mu.Unlock()
	p.log.Debug().Stringer("reason", reason).Msg("terminating")
	p.signal()
}

// Terminating reports whether Terminate was called.
func (p *Player) Terminating() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.draining
}

func (p *Player) close() {
	p.closeOnce.Do(func() {
		close(p.done)
		p.conn.Close()
	})
}

// readLoop parks on the socket and posts one event per complete frame.
func (p *Player) readLoop() {
	for {
		cmd, err := protocol.ReadCommand(p.conn)
		if err != nil {
			p.worker.post(event{kind: eventError, player: p, err: err}, p.done)
			return
		}
		if !p.worker.post(event{kind: eventCommand, player: p, cmd: cmd}, p.done) {
			return
		}
	}
}

// writeLoop drains the outbound buffer each time it is signalled. When the
// buffer ends with the termination notice, or a write fails, the worker is
// asked to close the player.
func (p *Player) writeLoop(timeout time.Duration) {
	defer p.worker.post(event{kind: eventClosed, player: p}, nil)
	for {
		select {
		case <-p.wake:
		case <-p.done:
			return
		}

		p.mu.Lock()
		buf, draining := p.outbuf, p.draining
		p.outbuf = nil
		p.mu.Unlock()

		if len(buf) > 0 {
			if timeout > 0 {
				p.conn.SetWriteDeadline(time.Now().Add(timeout))
			}
			if _, err := p.conn.Write(buf); err != nil {
				p.log.Debug().Err(err).Msg("write failed")
				return
			}
		}
		if draining {
			return
		}
	}
}
