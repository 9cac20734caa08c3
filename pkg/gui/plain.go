package gui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/qnkhuat/chessterm/pkg/chess"
	"github.com/qnkhuat/chessterm/pkg/client"
)

var (
	msgColor  = color.New(color.FgRed)
	infoColor = color.New(color.FgCyan)
)

const plainHelp = `squares   e2 then e4, or e2e4 at once (e7e8q promotes)
q r b n   pick the promotion piece when asked
board     print the board
moves     print the moves so far
quit      leave the game`

// session is what the line mode needs from a client.
type session interface {
	StatusSource
	Click(chess.Position) bool
	Promote(chess.Kind) bool
	Board() chess.Board
	History() []chess.Action
}

// Plain plays a session by typing squares instead of clicking them.
type Plain struct {
	s      session
	out    io.Writer
	sounds chan chess.Sound
}

func NewPlain(s session, out io.Writer) *Plain {
	return &Plain{s: s, out: out, sounds: make(chan chess.Sound, 16)}
}

// PlaySound is called with the client locked; the event is printed later by
// Run.
func (p *Plain) PlaySound(s chess.Sound) {
	select {
	case p.sounds <- s:
	default:
	}
}

func (p *Plain) Redraw() {}

// Run reads commands from rl until the player quits or c's session ends.
func (p *Plain) Run(c *client.Client, rl *readline.Instance) error {
	c.SetObserver(p)
	go func() {
		for {
			select {
			case s := <-p.sounds:
				p.report(s)
			case <-c.Done():
				p.printStatus()
				rl.Close()
				return
			}
		}
	}()

	p.printBoard()
	fmt.Fprintln(p.out, plainHelp)
	for {
		rl.SetPrompt(p.prompt())
		line, err := rl.Readline()
		if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
			return nil
		}
		if err != nil {
			return err
		}
		if p.Exec(line) {
			return nil
		}
	}
}

func (p *Plain) prompt() string {
	return fmt.Sprintf("%s> ", p.s.Color())
}

func (p *Plain) report(s chess.Sound) {
	if s == chess.SoundIllegal {
		msgColor.Fprintln(p.out, "illegal move")
		return
	}
	p.printBoard()
	p.printStatus()
}

func (p *Plain) printBoard() {
	b := p.s.Board()
	fmt.Fprintln(p.out, b.DrawColor())
}

func (p *Plain) printStatus() {
	infoColor.Fprintln(p.out, Status(p.s))
}

// Exec runs one input line and reports whether the player asked to quit.
func (p *Plain) Exec(line string) bool {
	line = strings.ToLower(strings.TrimSpace(line))
	switch line {
	case "":
		return false
	case "quit", "exit":
		return true
	case "help":
		fmt.Fprintln(p.out, plainHelp)
		return false
	case "board":
		p.printBoard()
		return false
	case "moves":
		fmt.Fprintln(p.out, moveList(p.s.History()))
		return false
	}

	if len(line) == 1 {
		if k, ok := kindFromLetter(line[0]); ok && p.s.Promote(k) {
			return false
		}
		msgColor.Fprintf(p.out, "unknown command %q, try help\n", line)
		return false
	}

	var squares []chess.Position
	for len(line) >= 2 {
		pos, err := chess.ParsePosition(line[:2])
		if err != nil {
			break
		}
		squares = append(squares, pos)
		line = line[2:]
	}
	if len(squares) == 0 || len(squares) > 2 || len(line) > 1 {
		msgColor.Fprintf(p.out, "unknown command, try help\n")
		return false
	}

	promoting := false
	for _, sq := range squares {
		promoting = p.s.Click(sq)
	}
	switch {
	case promoting && line != "":
		k, ok := kindFromLetter(line[0])
		if !ok || !p.s.Promote(k) {
			msgColor.Fprintf(p.out, "cannot promote to %q\n", line)
		}
	case promoting:
		infoColor.Fprintln(p.out, "promote to? (q r b n)")
	}
	return false
}

func kindFromLetter(b byte) (chess.Kind, bool) {
	switch b {
	case 'q':
		return chess.Queen, true
	case 'r':
		return chess.Rook, true
	case 'b':
		return chess.Bishop, true
	case 'n':
		return chess.Knight, true
	default:
		return chess.None, false
	}
}
