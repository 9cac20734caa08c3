package protocol

import (
	"errors"
	"fmt"
	"io"

	"github.com/qnkhuat/chessterm/pkg/chess"
)

var (
	// ErrFraming is returned for any stream that does not follow the framing
	// rules. It is fatal for the connection.
	ErrFraming      = errors.New("protocol framing error")
	ErrUnknownTag   = errors.New("unknown message tag")
	ErrInvalidField = errors.New("invalid field")
)

func encodePosition(p chess.Position) ([PositionSize]byte, error) {
	if p == chess.NoPosition {
		return [PositionSize]byte{absent, absent}, nil
	}
	if !p.Valid() {
		return [PositionSize]byte{}, fmt.Errorf("%w: position %d,%d", ErrInvalidField, p.File, p.Rank)
	}
	return [PositionSize]byte{byte(p.File), byte(p.Rank)}, nil
}

func decodePosition(b []byte) (chess.Position, error) {
	if b[0] == absent && b[1] == absent {
		return chess.NoPosition, nil
	}
	p := chess.Pos(int(b[0]), int(b[1]))
	if !p.Valid() {
		return chess.NoPosition, fmt.Errorf("%w: position %#x %#x", ErrInvalidField, b[0], b[1])
	}
	return p, nil
}

// EncodeMove packs m into a move record.
func EncodeMove(m chess.Move) ([MoveRecordSize]byte, error) {
	var rec [MoveRecordSize]byte
	positions := []chess.Position{m.Src, m.Dst, m.RookSrc, m.RookDst}
	offsets := []int{0, 2, 5, 7}
	for i, p := range positions {
		enc, err := encodePosition(p)
		if err != nil {
			return rec, err
		}
		copy(rec[offsets[i]:], enc[:])
	}
	rec[4] = byte(m.Captured)
	rec[9] = byte(m.Rook)
	rec[10] = byte(m.Promote)
	if m.FirstMove {
		rec[11] = 1
	}
	return rec, nil
}

// DecodeMove unpacks a move record. Only the shape is checked here; whether
// the keys name real pieces is up to the game that resolves the move.
func DecodeMove(rec []byte) (chess.Move, error) {
	if len(rec) != MoveRecordSize {
		return chess.Move{}, fmt.Errorf("%w: move record of %d bytes", ErrFraming, len(rec))
	}
	var (
		m   chess.Move
		err error
	)
	if m.Src, err = decodePosition(rec[0:2]); err != nil {
		return chess.Move{}, err
	}
	if m.Dst, err = decodePosition(rec[2:4]); err != nil {
		return chess.Move{}, err
	}
	if m.RookSrc, err = decodePosition(rec[5:7]); err != nil {
		return chess.Move{}, err
	}
	if m.RookDst, err = decodePosition(rec[7:9]); err != nil {
		return chess.Move{}, err
	}
	if !m.Src.Valid() || !m.Dst.Valid() {
		return chess.Move{}, fmt.Errorf("%w: move without source or destination", ErrInvalidField)
	}
	m.Captured, err = decodeKey(rec[4])
	if err != nil {
		return chess.Move{}, err
	}
	m.Rook, err = decodeKey(rec[9])
	if err != nil {
		return chess.Move{}, err
	}
	m.Promote = chess.Kind(rec[10])
	if m.Promote > chess.King {
		return chess.Move{}, fmt.Errorf("%w: piece kind %d", ErrInvalidField, rec[10])
	}
	switch rec[11] {
	case 0:
	case 1:
		m.FirstMove = true
	default:
		return chess.Move{}, fmt.Errorf("%w: first move flag %d", ErrInvalidField, rec[11])
	}
	return m, nil
}

func decodeKey(b byte) (chess.Key, error) {
	k := chess.Key(b)
	if k != chess.NoKey && !k.Valid() {
		return chess.NoKey, fmt.Errorf("%w: piece key %#x", ErrInvalidField, b)
	}
	return k, nil
}

// readFrame reads n bytes following an already consumed tag. A stream that
// ends inside the frame is a framing error.
func readFrame(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: truncated frame: %v", ErrFraming, err)
		}
		return nil, err
	}
	return buf, nil
}

func readTag(r io.Reader) (byte, error) {
	var tag [1]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		return 0, err
	}
	return tag[0], nil
}

// ReadCommand reads one client command. io.EOF is returned unwrapped when
// the stream ends cleanly between frames.
func ReadCommand(r io.Reader) (Command, error) {
	tag, err := readTag(r)
	if err != nil {
		return Command{}, err
	}
	if tag != TagMove {
		return Command{}, fmt.Errorf("%w: %w %#x", ErrFraming, ErrUnknownTag, tag)
	}
	buf, err := readFrame(r, CommandSize-1)
	if err != nil {
		return Command{}, err
	}
	return UnmarshalCommand(append([]byte{tag}, buf...))
}

// UnmarshalCommand decodes a complete command frame, tag included.
func UnmarshalCommand(frame []byte) (Command, error) {
	if len(frame) != CommandSize || frame[0] != TagMove {
		return Command{}, fmt.Errorf("%w: command frame of %d bytes", ErrFraming, len(frame))
	}
	var c Command
	copy(c.Snapshot[:], frame[1:1+SnapshotSize])
	k, err := decodeKey(frame[1+SnapshotSize])
	if err != nil {
		return Command{}, fmt.Errorf("%w: %w", ErrFraming, err)
	}
	c.Piece = k
	if c.Move, err = DecodeMove(frame[2+SnapshotSize:]); err != nil {
		return Command{}, fmt.Errorf("%w: %w", ErrFraming, err)
	}
	return c, nil
}

// ReadServerMessage reads one relay or notice.
func ReadServerMessage(r io.Reader) (Message, error) {
	tag, err := readTag(r)
	if err != nil {
		return nil, err
	}
	switch tag {
	case TagMove:
		buf, err := readFrame(r, RelaySize-1)
		if err != nil {
			return nil, err
		}
		return unmarshalRelay(buf)
	case TagNotice:
		return readNotice(r)
	default:
		return nil, fmt.Errorf("%w: %w %#x", ErrFraming, ErrUnknownTag, tag)
	}
}

func unmarshalRelay(buf []byte) (Relay, error) {
	var rl Relay
	k, err := decodeKey(buf[0])
	if err != nil {
		return Relay{}, fmt.Errorf("%w: %w", ErrFraming, err)
	}
	rl.Piece = k
	if rl.Move, err = DecodeMove(buf[1 : 1+MoveRecordSize]); err != nil {
		return Relay{}, fmt.Errorf("%w: %w", ErrFraming, err)
	}
	copy(rl.Snapshot[:], buf[1+MoveRecordSize:1+MoveRecordSize+SnapshotSize])
	rl.Turn = chess.Color(buf[len(buf)-1])
	if !rl.Turn.Valid() {
		return Relay{}, fmt.Errorf("%w: %w: turn %d", ErrFraming, ErrInvalidField, buf[len(buf)-1])
	}
	return rl, nil
}

func readNotice(r io.Reader) (Notice, error) {
	buf, err := readFrame(r, NoticeSize-1)
	if err != nil {
		return Notice{}, err
	}
	return Notice{Reason: Reason(buf[0])}, nil
}

// ReadColor reads the color assignment sent after pairing. If the server
// ends the session first, the Notice is returned as the error.
func ReadColor(r io.Reader) (chess.Color, error) {
	b, err := readTag(r)
	if err != nil {
		return chess.White, err
	}
	if b == TagNotice {
		n, err := readNotice(r)
		if err != nil {
			return chess.White, err
		}
		return chess.White, n
	}
	c := chess.Color(b)
	if !c.Valid() {
		return chess.White, fmt.Errorf("%w: %w: color %d", ErrFraming, ErrInvalidField, b)
	}
	return c, nil
}

// Write marshals m and writes it in a single call.
func Write(w io.Writer, m Message) error {
	data, err := m.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal %s: %w", m.Type(), err)
	}
	_, err = w.Write(data)
	return err
}
