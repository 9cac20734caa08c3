package server

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/qnkhuat/chessterm/pkg/protocol"
)

type eventKind int

const (
	eventJoin eventKind = iota
	eventCommand
	eventError
	eventClosed
)

func (k eventKind) String() string {
	switch k {
	case eventJoin:
		return "join"
	case eventCommand:
		return "command"
	case eventError:
		return "error"
	case eventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type event struct {
	kind   eventKind
	player *Player
	cmd    protocol.Command
	err    error
}

// worker owns the players assigned to it by the accept loop. Its events
// channel is the readiness set of those players: their readers and writers
// post to it and the worker runs the protocol handler for each event.
type worker struct {
	id      int
	srv     *Server
	events  chan event
	players map[uuid.UUID]*Player
	log     zerolog.Logger
	ctx     context.Context
}

func newWorker(id int, srv *Server, ctx context.Context) *worker {
	return &worker{
		id:      id,
		srv:     srv,
		events:  make(chan event, srv.cfg.QueueSize),
		players: make(map[uuid.UUID]*Player),
		log:     srv.log.With().Int("worker", id).Logger(),
		ctx:     ctx,
	}
}

// post hands ev to the worker. It gives up and returns false when cancel is
// closed or the worker is stopping.
func (w *worker) post(ev event, cancel <-chan struct{}) bool {
	select {
	case w.events <- ev:
		return true
	case <-cancel:
		return false
	case <-w.ctx.Done():
		return false
	}
}

func (w *worker) run() {
	var tick <-chan time.Time
	if idle := w.srv.cfg.IdleTimeout; idle > 0 {
		interval := idle / 4
		if interval < 10*time.Millisecond {
			interval = 10 * time.Millisecond
		}
		t := time.NewTicker(interval)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case ev := <-w.events:
			w.handle(ev)
		case now := <-tick:
			w.reapIdle(now)
		case <-w.ctx.Done():
			for _, p := range w.players {
				w.drop(p)
			}
			return
		}
	}
}

func (w *worker) handle(ev event) {
	p := ev.player
	if ev.kind == eventJoin {
		w.players[p.ID] = p
		go p.readLoop()
		go p.writeLoop(w.srv.cfg.WriteTimeout)
		w.srv.join(p)
		return
	}
	if _, ok := w.players[p.ID]; !ok {
		// Late event of a player that is already gone.
		return
	}

	switch ev.kind {
	case eventCommand:
		w.srv.handleCommand(p, ev.cmd)
	case eventError:
		w.srv.handleReadError(p, ev.err)
	case eventClosed:
		w.srv.teardown(p, protocol.ReasonOpponentLeft)
		w.drop(p)
	}
}

// drop unregisters p and then closes its socket.
func (w *worker) drop(p *Player) {
	delete(w.players, p.ID)
	p.close()
	w.srv.dropped(p)
	w.log.Debug().Str("player", p.Name).Msg("dropped")
}

// reapIdle ends the sessions of players that sat on their turn for longer
// than the idle timeout. Waiting players and players whose opponent is
// thinking are left alone.
func (w *worker) reapIdle(now time.Time) {
	for _, p := range w.players {
		if p.Terminating() {
			continue
		}
		m := w.srv.lobby.MatchOf(p)
		if m == nil || !m.OnMove(p) || p.Idle(now) < w.srv.cfg.IdleTimeout {
			continue
		}
		p.log.Info().Dur("idle", p.Idle(now)).Msg("idle timeout")
		w.srv.teardown(p, protocol.ReasonIdleTimeout)
	}
}
