// Package protocol is the binary wire format spoken between the chessterm
// server and its clients.
//
// Every field is a single byte so there is no byte order to agree on.
//
//	position      2   file, rank; 0xFF 0xFF when absent
//	move record  12   src(2) dst(2) captured(1) rookSrc(2) rookDst(2) rook(1) promote(1) firstMove(1)
//	snapshot     64   one byte per square, row-major from a1, 0 or the occupant's key
//
// Client to server:
//
//	command      78   0x55 snapshot(64) piece(1) record(12)
//
// Server to client:
//
//	color         1   0 White, 1 Black; sent once after pairing
//	relay        79   0x55 piece(1) record(12) snapshot(64) turn(1)
//	notice        2   0xEE reason(1); the server closes the connection afterwards
package protocol

import (
	"github.com/qnkhuat/chessterm/pkg/chess"
)

const (
	TagMove   byte = 0x55
	TagNotice byte = 0xEE

	PositionSize   = 2
	MoveRecordSize = 12
	SnapshotSize   = chess.NumSquares
	CommandSize    = 1 + SnapshotSize + 1 + MoveRecordSize
	RelaySize      = 1 + 1 + MoveRecordSize + SnapshotSize + 1
	NoticeSize     = 2
	ColorSize      = 1

	absent byte = 0xFF
)

type MessageType int

const (
	TypeCommand MessageType = iota
	TypeRelay
	TypeColor
	TypeNotice
)

func (m MessageType) String() string {
	switch m {
	case TypeCommand:
		return "TypeCommand"
	case TypeRelay:
		return "TypeRelay"
	case TypeColor:
		return "TypeColor"
	case TypeNotice:
		return "TypeNotice"
	default:
		return "Unknown MessageType"
	}
}

// Message is anything that travels on the wire.
type Message interface {
	Type() MessageType
	MarshalBinary() ([]byte, error)
}

// Command is a move submitted by a client together with the board it was
// computed on.
type Command struct {
	Snapshot chess.Snapshot
	Piece    chess.Key
	Move     chess.Move
}

func (c Command) Type() MessageType {
	return TypeCommand
}

func (c Command) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, CommandSize)
	buf = append(buf, TagMove)
	buf = append(buf, c.Snapshot[:]...)
	buf = append(buf, byte(c.Piece))
	rec, err := EncodeMove(c.Move)
	if err != nil {
		return nil, err
	}
	return append(buf, rec[:]...), nil
}

// Relay announces an accepted move and the resulting position to both
// players of a match.
type Relay struct {
	Piece    chess.Key
	Move     chess.Move
	Snapshot chess.Snapshot
	Turn     chess.Color
}

func (r Relay) Type() MessageType {
	return TypeRelay
}

func (r Relay) MarshalBinary() ([]byte, error) {
	rec, err := EncodeMove(r.Move)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, RelaySize)
	buf = append(buf, TagMove, byte(r.Piece))
	buf = append(buf, rec[:]...)
	buf = append(buf, r.Snapshot[:]...)
	return append(buf, byte(r.Turn)), nil
}

// ColorAssignment tells a client which side it plays.
type ColorAssignment struct {
	Color chess.Color
}

func (c ColorAssignment) Type() MessageType {
	return TypeColor
}

func (c ColorAssignment) MarshalBinary() ([]byte, error) {
	if !c.Color.Valid() {
		return nil, ErrInvalidField
	}
	return []byte{byte(c.Color)}, nil
}

type Reason uint8

const (
	ReasonGameOver Reason = iota + 1
	ReasonOpponentLeft
	ReasonDesync
	ReasonProtocolError
	ReasonShutdown
	ReasonIdleTimeout
)

func (r Reason) String() string {
	switch r {
	case ReasonGameOver:
		return "game over"
	case ReasonOpponentLeft:
		return "opponent left"
	case ReasonDesync:
		return "board out of sync"
	case ReasonProtocolError:
		return "protocol error"
	case ReasonShutdown:
		return "server shutting down"
	case ReasonIdleTimeout:
		return "idle timeout"
	default:
		return "unknown reason"
	}
}

// Notice is the last message of a session. It doubles as the error a
// reader returns when the server ends the session.
type Notice struct {
	Reason Reason
}

func (n Notice) Type() MessageType {
	return TypeNotice
}

func (n Notice) MarshalBinary() ([]byte, error) {
	return []byte{TagNotice, byte(n.Reason)}, nil
}

func (n Notice) Error() string {
	return "session ended: " + n.Reason.String()
}
