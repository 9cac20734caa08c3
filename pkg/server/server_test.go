package server

import (
	"context"
	"errors"
	"net"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/qnkhuat/chessterm/pkg/chess"
	"github.com/qnkhuat/chessterm/pkg/protocol"
)

const ioTimeout = 5 * time.Second

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	cfg.Workers = 2
	cfg.IdleTimeout = 0
	cfg.ShutdownWait = time.Second
	return cfg
}

func testLogger(t *testing.T) zerolog.Logger {
	if testing.Verbose() {
		return zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel)
	}
	return zerolog.Nop()
}

// startServer serves on a loopback port and returns a stop function that
// cancels the server and waits for Serve to return.
func startServer(t *testing.T, cfg Config) (*Server, string, func()) {
	t.Helper()
	s, err := New(cfg, testLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Serve(ctx, ln)
	}()

	stopped := false
	stop := func() {
		if stopped {
			return
		}
		stopped = true
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Serve() = %v", err)
			}
		case <-time.After(ioTimeout):
			t.Error("server did not stop")
		}
	}
	t.Cleanup(stop)
	return s, ln.Addr().String(), stop
}

func dial(t *testing.T, addr string) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, ioTimeout)
	if err != nil {
		t.Fatal(err)
	}
	conn.SetDeadline(time.Now().Add(ioTimeout))
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(ioTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// pair connects two clients one after the other and returns them with the
// colors they were told.
func pair(t *testing.T, s *Server, addr string) (white, black net.Conn) {
	t.Helper()
	first := dial(t, addr)
	waitFor(t, "first player to wait", func() bool { return s.Stats().Waiting == 1 })
	second := dial(t, addr)

	c1, err := protocol.ReadColor(first)
	if err != nil {
		t.Fatal(err)
	}
	c2, err := protocol.ReadColor(second)
	if err != nil {
		t.Fatal(err)
	}
	if c1 != chess.White || c2 != chess.Black {
		t.Fatalf("colors = %s, %s, want White, Black", c1, c2)
	}
	return first, second
}

// command builds the command for a UCI move on the mirror game.
func command(t *testing.T, g *chess.Game, uci string) protocol.Command {
	t.Helper()
	src, err := chess.ParsePosition(uci[0:2])
	if err != nil {
		t.Fatal(err)
	}
	dst, err := chess.ParsePosition(uci[2:4])
	if err != nil {
		t.Fatal(err)
	}
	b := g.Board()
	k := b.At(src)
	for _, m := range chess.LegalMoves(&b, k, g.History()) {
		if m.Dst == dst {
			return protocol.Command{Snapshot: g.Serialize(), Piece: k, Move: m}
		}
	}
	t.Fatalf("%s is not legal", uci)
	return protocol.Command{}
}

func send(t *testing.T, conn net.Conn, cmd protocol.Command) {
	t.Helper()
	if err := protocol.Write(conn, cmd); err != nil {
		t.Fatal(err)
	}
}

func readRelay(t *testing.T, conn net.Conn) protocol.Relay {
	t.Helper()
	msg, err := protocol.ReadServerMessage(conn)
	if err != nil {
		t.Fatal(err)
	}
	relay, ok := msg.(protocol.Relay)
	if !ok {
		t.Fatalf("got %#v, want a relay", msg)
	}
	return relay
}

func expectNotice(t *testing.T, conn net.Conn, want protocol.Reason) {
	t.Helper()
	msg, err := protocol.ReadServerMessage(conn)
	if err != nil {
		t.Fatalf("waiting for %s notice: %v", want, err)
	}
	n, ok := msg.(protocol.Notice)
	if !ok || n.Reason != want {
		t.Fatalf("got %#v, want %s notice", msg, want)
	}
}

func TestPairingSendsOneColorEach(t *testing.T) {
	s, addr, _ := startServer(t, testConfig())
	white, black := pair(t, s, addr)

	// Nothing else may follow the color byte before a move is made.
	for _, conn := range []net.Conn{white, black} {
		conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		var b [1]byte
		if n, err := conn.Read(b[:]); n != 0 || !errors.Is(err, os.ErrDeadlineExceeded) {
			t.Errorf("extra data after color: n=%d err=%v", n, err)
		}
		conn.SetReadDeadline(time.Now().Add(ioTimeout))
	}

	want := Stats{Connected: 2, Waiting: 0, Matches: 1}
	if diff := cmp.Diff(want, s.Stats()); diff != "" {
		t.Errorf("Stats() mismatch (-want +got):\n%s", diff)
	}
}

func TestMoveIsRelayedToBothPlayers(t *testing.T) {
	s, addr, _ := startServer(t, testConfig())
	white, black := pair(t, s, addr)

	mirror := chess.NewGame()
	for i, uci := range []string{"e2e4", "d7d5", "e4d5"} {
		mover := white
		if i%2 == 1 {
			mover = black
		}
		send(t, mover, command(t, mirror, uci))

		var relays []protocol.Relay
		for _, conn := range []net.Conn{white, black} {
			relays = append(relays, readRelay(t, conn))
		}
		if diff := cmp.Diff(relays[0], relays[1]); diff != "" {
			t.Fatalf("%s: players got different relays (-white +black):\n%s", uci, diff)
		}
		if err := mirror.ApplyMove(relays[0].Piece, relays[0].Move); err != nil {
			t.Fatalf("%s: mirror rejected relay: %v", uci, err)
		}
		if relays[0].Snapshot != mirror.Serialize() || relays[0].Turn != mirror.Turn() {
			t.Fatalf("%s: relay does not match the mirror game", uci)
		}
	}
	if n := len(mirror.Captured(chess.Black)); n != 1 {
		t.Errorf("black lost %d pieces, want 1", n)
	}
}

func TestDesyncTearsDownBoth(t *testing.T) {
	s, addr, _ := startServer(t, testConfig())
	white, black := pair(t, s, addr)

	mirror := chess.NewGame()
	cmd := command(t, mirror, "e2e4")
	cmd.Snapshot[0] = 0
	send(t, white, cmd)

	expectNotice(t, white, protocol.ReasonDesync)
	expectNotice(t, black, protocol.ReasonOpponentLeft)
	waitFor(t, "both players dropped", func() bool { return s.Stats().Connected == 0 })
}

func TestRejectedCommands(t *testing.T) {
	tests := []struct {
		name  string
		frame func(t *testing.T) (fromWhite bool, data []byte)
	}{
		{
			name: "move out of turn",
			frame: func(t *testing.T) (bool, []byte) {
				g := chess.NewGame()
				cmd := command(t, g, "e2e4")
				cmd.Piece = chess.KeyOf(chess.Pos(4, 6))
				cmd.Move = chess.Move{Src: chess.Pos(4, 6), Dst: chess.Pos(4, 4), RookSrc: chess.NoPosition, RookDst: chess.NoPosition}
				data, err := cmd.MarshalBinary()
				if err != nil {
					t.Fatal(err)
				}
				return false, data
			},
		},
		{
			name: "illegal move",
			frame: func(t *testing.T) (bool, []byte) {
				g := chess.NewGame()
				cmd := command(t, g, "e2e4")
				cmd.Move.Dst = chess.Pos(4, 4)
				data, err := cmd.MarshalBinary()
				if err != nil {
					t.Fatal(err)
				}
				return true, data
			},
		},
		{
			name: "unknown tag",
			frame: func(t *testing.T) (bool, []byte) {
				return true, []byte{0x42}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, addr, _ := startServer(t, testConfig())
			white, black := pair(t, s, addr)

			fromWhite, data := tt.frame(t)
			offender, other := white, black
			if !fromWhite {
				offender, other = black, white
			}
			if _, err := offender.Write(data); err != nil {
				t.Fatal(err)
			}
			expectNotice(t, offender, protocol.ReasonProtocolError)
			expectNotice(t, other, protocol.ReasonOpponentLeft)
		})
	}
}

func TestDisconnectNotifiesOpponent(t *testing.T) {
	s, addr, _ := startServer(t, testConfig())
	white, black := pair(t, s, addr)

	white.Close()
	expectNotice(t, black, protocol.ReasonOpponentLeft)
	waitFor(t, "lobby to empty", func() bool { return s.Stats() == Stats{} })
}

func TestGameOver(t *testing.T) {
	s, addr, _ := startServer(t, testConfig())
	white, black := pair(t, s, addr)

	mirror := chess.NewGame()
	for i, uci := range []string{"f2f3", "e7e5", "g2g4", "d8h4"} {
		mover := white
		if i%2 == 1 {
			mover = black
		}
		send(t, mover, command(t, mirror, uci))
		relay := readRelay(t, white)
		readRelay(t, black)
		if err := mirror.ApplyMove(relay.Piece, relay.Move); err != nil {
			t.Fatal(err)
		}
	}
	if mirror.State() != chess.Checkmate {
		t.Fatalf("mirror state = %s", mirror.State())
	}
	expectNotice(t, white, protocol.ReasonGameOver)
	expectNotice(t, black, protocol.ReasonGameOver)
	waitFor(t, "lobby to empty", func() bool { return s.Stats() == Stats{} })
}

// expectSilence fails if anything arrives on conn within d.
func expectSilence(t *testing.T, conn net.Conn, d time.Duration) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(d))
	msg, err := protocol.ReadServerMessage(conn)
	var ne net.Error
	if !errors.As(err, &ne) || !ne.Timeout() {
		t.Fatalf("got %#v, %v, want nothing", msg, err)
	}
	conn.SetReadDeadline(time.Now().Add(ioTimeout))
}

func TestIdleTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.IdleTimeout = 150 * time.Millisecond
	s, addr, _ := startServer(t, cfg)

	white, black := pair(t, s, addr)
	expectNotice(t, white, protocol.ReasonIdleTimeout)
	expectNotice(t, black, protocol.ReasonOpponentLeft)
	waitFor(t, "lobby to empty", func() bool { return s.Stats() == Stats{} })
}

func TestIdleTimeoutSparesWaitingPlayer(t *testing.T) {
	cfg := testConfig()
	cfg.IdleTimeout = 50 * time.Millisecond
	s, addr, _ := startServer(t, cfg)

	conn := dial(t, addr)
	waitFor(t, "player to wait", func() bool { return s.Stats().Waiting == 1 })
	expectSilence(t, conn, 300*time.Millisecond)
	if got := s.Stats().Waiting; got != 1 {
		t.Errorf("waiting = %d, want 1", got)
	}
}

func TestIdleClockRestartsWhenTurnStarts(t *testing.T) {
	cfg := testConfig()
	cfg.IdleTimeout = 600 * time.Millisecond
	s, addr, _ := startServer(t, cfg)
	white, black := pair(t, s, addr)

	mirror := chess.NewGame()
	move := func(mover net.Conn, uci string) {
		t.Helper()
		send(t, mover, command(t, mirror, uci))
		relay := readRelay(t, white)
		readRelay(t, black)
		if err := mirror.ApplyMove(relay.Piece, relay.Move); err != nil {
			t.Fatal(err)
		}
	}

	move(white, "e2e4")
	// Black thinks for most of the window while White waits.
	time.Sleep(450 * time.Millisecond)
	move(black, "e7e5")

	// White's turn only just began.
	expectSilence(t, white, 300*time.Millisecond)
	move(white, "g1f3")
}

func TestShutdownNotifiesPlayers(t *testing.T) {
	s, addr, stop := startServer(t, testConfig())
	conn := dial(t, addr)
	waitFor(t, "player to wait", func() bool { return s.Stats().Waiting == 1 })

	stop()
	_, err := protocol.ReadColor(conn)
	var n protocol.Notice
	if !errors.As(err, &n) || n.Reason != protocol.ReasonShutdown {
		t.Errorf("ReadColor() = %v, want shutdown notice", err)
	}
}

func TestJoinDuringShutdown(t *testing.T) {
	s, err := New(testConfig(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	waiting := offlinePlayer("waiting")
	s.join(waiting)
	if got := s.Stats().Waiting; got != 1 {
		t.Fatalf("waiting = %d, want 1", got)
	}

	s.shutdown()
	if !waiting.Terminating() {
		t.Error("waiting player was not told about the shutdown")
	}
	if got := s.Stats().Waiting; got != 0 {
		t.Errorf("waiting = %d after shutdown, want 0", got)
	}

	late := offlinePlayer("late")
	s.join(late)
	if !late.Terminating() {
		t.Error("player joining during shutdown was not told")
	}
	if got := s.Stats(); got.Waiting != 0 || got.Matches != 0 {
		t.Errorf("stats after late join = %+v, want no waiting players or matches", got)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Workers = 0
	if _, err := New(cfg, zerolog.Nop()); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("New() = %v, want %v", err, ErrInvalidConfig)
	}
}
