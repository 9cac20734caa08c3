// Package server pairs incoming connections into matches and referees the
// games played over the binary protocol.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	petname "github.com/dustinkirkland/golang-petname"
	"github.com/rs/zerolog"

	"github.com/qnkhuat/chessterm/pkg/chess"
	"github.com/qnkhuat/chessterm/pkg/protocol"
)

type Server struct {
	cfg   Config
	log   zerolog.Logger
	lobby *Lobby

	workers []*worker
	next    atomic.Uint64
	wg      sync.WaitGroup
	// conns counts players accepted but not yet dropped.
	conns   sync.WaitGroup
	closing atomic.Bool
}

func New(cfg Config, log zerolog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Server{
		cfg:   cfg,
		log:   log,
		lobby: NewLobby(),
	}, nil
}

// ListenAndServe listens on the configured address and serves until ctx is
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled or the listener
// fails. On the way out every player gets a shutdown notice and the workers
// are stopped.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.log.Info().Str("addr", ln.Addr().String()).Int("workers", s.cfg.Workers).Msg("listening")

	wctx, stop := context.WithCancel(context.Background())
	defer stop()
	s.workers = make([]*worker, s.cfg.Workers)
	for i := range s.workers {
		w := newWorker(i, s, wctx)
		s.workers[i] = w
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			w.run()
		}()
	}

	acceptErr := make(chan error, 1)
	go func() {
		acceptErr <- s.acceptLoop(ln)
	}()

	var err error
	select {
	case <-ctx.Done():
	case err = <-acceptErr:
	}
	ln.Close()

	s.shutdown()
	stop()
	s.wg.Wait()
	s.log.Info().Msg("server stopped")

	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func (s *Server) acceptLoop(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				s.log.Warn().Err(err).Msg("accept")
				time.Sleep(10 * time.Millisecond)
				continue
			}
			return err
		}

		p := newPlayer(conn, petname.Generate(2, "-"), s.log)
		w := s.workers[(s.next.Add(1)-1)%uint64(len(s.workers))]
		p.worker = w
		s.conns.Add(1)
		p.log.Info().Str("remote", conn.RemoteAddr().String()).Int("worker", w.id).Msg("connected")
		if !w.post(event{kind: eventJoin, player: p}, nil) {
			conn.Close()
			s.conns.Done()
			return net.ErrClosed
		}
	}
}

func (s *Server) shutdown() {
	s.closing.Store(true)
	players := s.lobby.Players()
	for _, p := range players {
		s.lobby.Unpair(p)
		p.Terminate(protocol.ReasonShutdown)
	}
	if len(players) == 0 {
		return
	}

	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(s.cfg.ShutdownWait):
		s.log.Warn().Int("players", len(s.lobby.Players())).Msg("shutdown wait expired")
	}
}

// join runs on the player's worker right after registration.
func (s *Server) join(p *Player) {
	m := s.lobby.Join(p, func(white, black *Player) *Match {
		// White's clock starts before the match becomes visible to the reapers.
		white.touch()
		return NewMatch(petname.Generate(3, "-"), white, black)
	})
	if s.closing.Load() {
		// Joined after shutdown took its roster.
		s.lobby.Unpair(p)
		p.Terminate(protocol.ReasonShutdown)
		if m != nil {
			m.Opponent(p).Terminate(protocol.ReasonShutdown)
		}
		return
	}
	if m == nil {
		p.log.Info().Msg("waiting for an opponent")
		return
	}

	white, black := m.Player(chess.White), m.Player(chess.Black)
	for _, c := range []chess.Color{chess.White, chess.Black} {
		if err := m.Player(c).Send(protocol.ColorAssignment{Color: c}); err != nil {
			m.Player(c).log.Debug().Err(err).Msg("color not sent")
		}
	}
	s.log.Info().
		Str("match", m.Name).
		Str("white", white.Name).
		Str("black", black.Name).
		Msg("match started")
}

func (s *Server) handleCommand(p *Player, cmd protocol.Command) {
	m := s.lobby.MatchOf(p)
	if m == nil {
		p.log.Warn().Msg("command outside of a match")
		s.teardown(p, protocol.ReasonProtocolError)
		return
	}

	relay, state, err := m.Play(p, cmd)
	if err != nil {
		reason := protocol.ReasonProtocolError
		if errors.Is(err, ErrDesync) {
			reason = protocol.ReasonDesync
		}
		p.log.Warn().Err(err).Str("match", m.Name).Msg("command refused")
		s.teardown(p, reason)
		return
	}

	p.log.Debug().Str("match", m.Name).Stringer("move", relay.Move).Msg("move played")
	if s.log.GetLevel() <= zerolog.DebugLevel {
		s.log.Debug().Str("match", m.Name).Msg("board\n" + m.Draw())
	}
	for _, c := range []chess.Color{chess.White, chess.Black} {
		m.Player(c).Send(relay)
	}

	if !state.Over() {
		return
	}
	ev := s.log.Info().Str("match", m.Name).Str("result", m.Result())
	if pgn, err := m.PGN(); err != nil {
		ev = ev.AnErr("pgn", err)
	} else {
		ev = ev.Str("pgn", pgn)
	}
	ev.Msg("match over")
	for _, c := range []chess.Color{chess.White, chess.Black} {
		s.lobby.Unpair(m.Player(c))
		m.Player(c).Terminate(protocol.ReasonGameOver)
	}
}

func (s *Server) handleReadError(p *Player, err error) {
	switch {
	case errors.Is(err, protocol.ErrFraming):
		p.log.Warn().Err(err).Msg("framing error")
		s.teardown(p, protocol.ReasonProtocolError)
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		p.log.Info().Msg("disconnected")
		s.teardown(p, protocol.ReasonOpponentLeft)
	default:
		p.log.Info().Err(err).Msg("read failed")
		s.teardown(p, protocol.ReasonOpponentLeft)
	}
}

// teardown ends p's session with reason and its opponent's with
// OpponentLeft. Both stay registered until their writers have flushed the
// notice.
func (s *Server) teardown(p *Player, reason protocol.Reason) {
	m := s.lobby.Unpair(p)
	p.Terminate(reason)
	if m == nil {
		return
	}
	if opp := m.Opponent(p); opp != nil && !opp.Terminating() {
		opp.log.Info().Str("match", m.Name).Msg("opponent left")
		opp.Terminate(protocol.ReasonOpponentLeft)
	}
}

// dropped is called by the worker once p is unregistered and closed.
func (s *Server) dropped(p *Player) {
	s.lobby.Leave(p)
	s.conns.Done()
}

func (s *Server) Stats() Stats {
	return s.lobby.Stats()
}
