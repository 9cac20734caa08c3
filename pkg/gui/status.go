package gui

import (
	"errors"

	"github.com/qnkhuat/chessterm/pkg/chess"
	"github.com/qnkhuat/chessterm/pkg/client"
	"github.com/qnkhuat/chessterm/pkg/protocol"
)

type Label string

const (
	LabelYourTurn     Label = "Your move"
	LabelTheirTurn    Label = "Opponent's move"
	LabelAwaiting     Label = "Sending move..."
	LabelCheck        Label = "Check!"
	LabelPromote      Label = "Promote to?"
	LabelWin          Label = "Win"
	LabelLose         Label = "Lose"
	LabelDraw         Label = "Draw"
	LabelExit         Label = "Exit"
	LabelOpponentLeft Label = "Opponent left"
	LabelDesync       Label = "Board out of sync with the server"
	LabelRejected     Label = "Move rejected by the server"
	LabelShutdown     Label = "Server is shutting down"
	LabelIdle         Label = "Disconnected for inactivity"
	LabelDisconnected Label = "Disconnected"
)

// StatusSource is the session state the status line is computed from.
type StatusSource interface {
	Color() chess.Color
	Turn() chess.Color
	State() chess.State
	Winner() (chess.Color, bool)
	InCheck() bool
	Awaiting() bool
	PendingPromotion() bool
	Err() error
}

// Status describes the session from the local player's point of view.
func Status(s StatusSource) Label {
	if st := s.State(); st.Over() {
		return result(s)
	}
	if err := s.Err(); err != nil {
		var n protocol.Notice
		if !errors.As(err, &n) {
			if errors.Is(err, client.ErrDesync) {
				return LabelDesync
			}
			return LabelDisconnected
		}
		switch n.Reason {
		case protocol.ReasonOpponentLeft:
			return LabelOpponentLeft
		case protocol.ReasonDesync:
			return LabelDesync
		case protocol.ReasonProtocolError:
			return LabelRejected
		case protocol.ReasonShutdown:
			return LabelShutdown
		case protocol.ReasonIdleTimeout:
			return LabelIdle
		default:
			return LabelDisconnected
		}
	}
	switch {
	case s.PendingPromotion():
		return LabelPromote
	case s.Awaiting():
		return LabelAwaiting
	case s.Turn() != s.Color():
		return LabelTheirTurn
	case s.InCheck():
		return LabelCheck
	default:
		return LabelYourTurn
	}
}

func result(s StatusSource) Label {
	w, ok := s.Winner()
	switch {
	case !ok:
		return LabelDraw
	case w == s.Color():
		return LabelWin
	default:
		return LabelLose
	}
}
