package server

import (
	"sync"

	"github.com/google/uuid"
)

// Lobby is the matchmaking state. connMu guards the connected set; matchMu
// guards the waiting list, the pairing table and the match map. The two are
// never held at the same time.
type Lobby struct {
	connMu    sync.Mutex
	connected map[uuid.UUID]*Player

	matchMu sync.Mutex
	waiting []*Player
	pairs   map[uuid.UUID]uuid.UUID
	matches map[uuid.UUID]*Match
}

func NewLobby() *Lobby {
	return &Lobby{
		connected: make(map[uuid.UUID]*Player),
		pairs:     make(map[uuid.UUID]uuid.UUID),
		matches:   make(map[uuid.UUID]*Match),
	}
}

// Join registers p. If someone is already waiting, the longest waiting
// player is paired with p and the new match is returned; the waiting player
// takes White. Otherwise p waits and Join returns nil.
func (l *Lobby) Join(p *Player, newMatch func(white, black *Player) *Match) *Match {
	l.connMu.Lock()
	l.connected[p.ID] = p
	l.connMu.Unlock()

	l.matchMu.Lock()
	defer l.matchMu.Unlock()
	if len(l.waiting) == 0 {
		l.waiting = append(l.waiting, p)
		return nil
	}
	white := l.waiting[0]
	l.waiting = l.waiting[1:]

	m := newMatch(white, p)
	l.pairs[white.ID] = p.ID
	l.pairs[p.ID] = white.ID
	l.matches[white.ID] = m
	l.matches[p.ID] = m
	return m
}

// Unpair removes p from the waiting list and dissolves its pairing, if any.
// It returns the match p was playing.
func (l *Lobby) Unpair(p *Player) *Match {
	l.matchMu.Lock()
	defer l.matchMu.Unlock()

	for i, w := range l.waiting {
		if w.ID == p.ID {
			l.waiting = append(l.waiting[:i], l.waiting[i+1:]...)
			break
		}
	}
	m := l.matches[p.ID]
	if opp, ok := l.pairs[p.ID]; ok {
		delete(l.pairs, opp)
		delete(l.matches, opp)
	}
	delete(l.pairs, p.ID)
	delete(l.matches, p.ID)
	return m
}

// Leave forgets p entirely.
func (l *Lobby) Leave(p *Player) *Match {
	m := l.Unpair(p)
	l.connMu.Lock()
	delete(l.connected, p.ID)
	l.connMu.Unlock()
	return m
}

// MatchOf returns the live match of p, nil when p is not paired.
func (l *Lobby) MatchOf(p *Player) *Match {
	l.matchMu.Lock()
	defer l.matchMu.Unlock()
	return l.matches[p.ID]
}

// Players returns the connected players in no particular order.
func (l *Lobby) Players() []*Player {
	l.connMu.Lock()
	defer l.connMu.Unlock()
	out := make([]*Player, 0, len(l.connected))
	for _, p := range l.connected {
		out = append(out, p)
	}
	return out
}

type Stats struct {
	Connected int `json:"connected"`
	Waiting   int `json:"waiting"`
	Matches   int `json:"matches"`
}

func (l *Lobby) Stats() Stats {
	var s Stats
	l.connMu.Lock()
	s.Connected = len(l.connected)
	l.connMu.Unlock()

	l.matchMu.Lock()
	s.Waiting = len(l.waiting)
	s.Matches = len(l.pairs) / 2
	l.matchMu.Unlock()
	return s
}
