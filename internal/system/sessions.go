package system

import "github.com/bossraid/server/internal/net"

// SessionTable is the game loop's view of live transport sessions, shared
// by the input and output systems. Game-loop goroutine only.
type SessionTable struct {
	sessions map[uint64]*net.Session
}

func NewSessionTable() *SessionTable {
	return &SessionTable{sessions: make(map[uint64]*net.Session, 8)}
}

func (t *SessionTable) Add(s *net.Session)         { t.sessions[s.ID] = s }
func (t *SessionTable) Get(id uint64) *net.Session { return t.sessions[id] }
func (t *SessionTable) Remove(id uint64)           { delete(t.sessions, id) }
func (t *SessionTable) Len() int                   { return len(t.sessions) }

func (t *SessionTable) Each(fn func(*net.Session)) {
	for _, s := range t.sessions {
		fn(s)
	}
}
