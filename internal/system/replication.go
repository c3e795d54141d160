package system

import (
	"time"

	"github.com/bossraid/server/internal/core/event"
	sys "github.com/bossraid/server/internal/core/system"
	"github.com/bossraid/server/internal/net"
	"github.com/bossraid/server/internal/net/packet"
	"github.com/bossraid/server/internal/syncvar"
)

// fieldsPerPacket caps one S_FIELDS batch so a burst of updates never
// produces an oversized frame.
const fieldsPerPacket = 48

// Replicator collects committed field changes during the tick. It is the
// world's replication sink; the output system drains it once per tick.
type Replicator struct {
	pending []syncvar.FieldUpdate
}

func NewReplicator() *Replicator { return &Replicator{} }

func (r *Replicator) QueueUpdate(u syncvar.FieldUpdate) {
	r.pending = append(r.pending, u)
}

// Drain returns the updates collected since the last drain.
func (r *Replicator) Drain() []syncvar.FieldUpdate {
	out := r.pending
	r.pending = nil
	return out
}

// Pending reports the queued update count, for tests.
func (r *Replicator) Pending() int { return len(r.pending) }

// OutputSystem broadcasts the tick's state changes and flushes every
// session's output buffer. Gameplay events picked up from the bus (life
// state notices, animation triggers, scene switches) are turned into
// packets here so nothing upstream knows about the wire format.
type OutputSystem struct {
	repl     *Replicator
	sessions *SessionTable
}

// NewOutputSystem wires the broadcast subscriptions. They live as long as
// the bus; the output system is never torn down mid-run.
func NewOutputSystem(repl *Replicator, sessions *SessionTable, bus *event.Bus) *OutputSystem {
	s := &OutputSystem{repl: repl, sessions: sessions}

	event.Subscribe(bus, func(ev event.LifeStateChanged) {
		w := packet.NewWriter(packet.S_LIFESTATE)
		w.WriteQ(uint64(ev.Entity))
		w.WriteD(int32(ev.Old))
		w.WriteD(int32(ev.New))
		s.broadcast(w.Bytes())
	})
	event.Subscribe(bus, func(ev event.ActionStarted) {
		if ev.AnimTrigger == "" {
			return
		}
		w := packet.NewWriter(packet.S_ACTION_ANIM)
		w.WriteQ(uint64(ev.Entity))
		w.WriteD(ev.ActionID)
		w.WriteS(ev.AnimTrigger)
		s.broadcast(w.Bytes())
	})
	event.Subscribe(bus, func(ev event.SceneLoadRequested) {
		if !ev.NetworkSynced {
			return
		}
		w := packet.NewWriter(packet.S_SCENE)
		w.WriteS(ev.SceneID)
		s.broadcast(w.Bytes())
	})

	return s
}

func (s *OutputSystem) Phase() sys.Phase { return sys.PhaseOutput }

func (s *OutputSystem) Update(time.Duration) {
	updates := s.repl.Drain()
	for start := 0; start < len(updates); start += fieldsPerPacket {
		end := start + fieldsPerPacket
		if end > len(updates) {
			end = len(updates)
		}
		batch := updates[start:end]

		w := packet.NewWriter(packet.S_FIELDS)
		w.WriteH(uint16(len(batch)))
		buf := make([]byte, 0, len(batch)*22)
		for _, u := range batch {
			buf = u.Encode(buf)
		}
		w.WriteBytes(buf)
		s.broadcast(w.Bytes())
	}

	s.sessions.Each(func(sess *net.Session) { sess.FlushOutput() })
}

func (s *OutputSystem) broadcast(data []byte) {
	s.sessions.Each(func(sess *net.Session) { sess.Send(data) })
}
