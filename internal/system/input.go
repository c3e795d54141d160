package system

import (
	"context"
	"errors"
	"time"

	"github.com/bossraid/server/internal/action"
	"github.com/bossraid/server/internal/conn"
	"github.com/bossraid/server/internal/core/event"
	"github.com/bossraid/server/internal/core/sched"
	sys "github.com/bossraid/server/internal/core/system"
	"github.com/bossraid/server/internal/net"
	"github.com/bossraid/server/internal/net/packet"
	"github.com/bossraid/server/internal/world"
	"go.uber.org/zap"
)

// Player entity template. Players share one fixed stat line; AI entities
// get theirs from archetypes.
const (
	playerMaxHP     = 1000
	playerMoveSpeed = 4
	playerSpawnX    = 0
	playerSpawnY    = 0
)

// rejectFlushDelay gives the output phase time to deliver the reject packet
// before the host drops the transport.
const rejectFlushDelay = 500 * time.Millisecond

// InputSystem drains transport channels and session in-queues into game
// commands. Runs first in the tick. Per-session packet handling is capped
// per tick so one chatty client cannot starve the rest.
type InputSystem struct {
	ctx      context.Context
	srv      *net.Server
	sessions *SessionTable
	world    *world.State
	ctrl     *action.Controller
	approver *conn.Approver
	registry *conn.Registry
	machine  *conn.Machine
	bus      *event.Bus
	sched    *sched.Scheduler
	perTick  int
	log      *zap.Logger
}

func NewInputSystem(
	ctx context.Context,
	srv *net.Server,
	sessions *SessionTable,
	ws *world.State,
	ctrl *action.Controller,
	approver *conn.Approver,
	registry *conn.Registry,
	machine *conn.Machine,
	bus *event.Bus,
	sc *sched.Scheduler,
	maxPacketsPerTick int,
	log *zap.Logger,
) *InputSystem {
	return &InputSystem{
		ctx:      ctx,
		srv:      srv,
		sessions: sessions,
		world:    ws,
		ctrl:     ctrl,
		approver: approver,
		registry: registry,
		machine:  machine,
		bus:      bus,
		sched:    sc,
		perTick:  maxPacketsPerTick,
		log:      log,
	}
}

func (s *InputSystem) Phase() sys.Phase { return sys.PhaseInput }

func (s *InputSystem) Update(time.Duration) {
	s.drainNew()
	s.drainDead()
	s.sessions.Each(s.drainSession)
}

func (s *InputSystem) drainNew() {
	for {
		select {
		case sess := <-s.srv.NewSessions():
			s.sessions.Add(sess)
		default:
			return
		}
	}
}

func (s *InputSystem) drainDead() {
	for {
		select {
		case id := <-s.srv.DeadSessions():
			s.sessions.Remove(id)
			if cs := s.approver.Disconnect(id, time.Now()); cs != nil {
				// The entity stays in the world; its owner may reattach.
				s.log.Info("player transport lost",
					zap.String("player", cs.PlayerID.String()),
					zap.String("name", cs.Name),
				)
			}
		default:
			return
		}
	}
}

func (s *InputSystem) drainSession(sess *net.Session) {
	for i := 0; i < s.perTick; i++ {
		select {
		case payload := <-sess.InQueue:
			s.handle(sess, payload)
		default:
			return
		}
	}
}

func (s *InputSystem) handle(sess *net.Session, payload []byte) {
	r := packet.NewReader(payload)
	switch r.Opcode() {
	case packet.C_HELLO:
		s.handleHello(sess, r)
	case packet.C_ACTION:
		s.handleAction(sess, r)
	case packet.C_CANCEL:
		s.handleCancel(sess)
	case packet.C_BYE:
		s.handleBye(sess)
	default:
		s.log.Debug("unknown opcode",
			zap.Uint64("session", sess.ID),
			zap.Uint8("op", r.Opcode()),
		)
	}
}

func (s *InputSystem) handleHello(sess *net.Session, r *packet.Reader) {
	// A host that is shutting down (or never finished setup) keeps its
	// listener briefly; refuse hellos instead of approving into limbo.
	if s.machine.Current() != conn.Hosting {
		s.reject(sess, conn.RejectNotHosting)
		return
	}

	hello := conn.Hello{
		TransportID:  sess.ID,
		PayloadBytes: r.Len(),
		PlayerID:     r.ReadS(),
		Name:         r.ReadS(),
		Password:     r.ReadS(),
		BuildTag:     r.ReadS(),
	}

	verdict, err := s.approver.Approve(s.ctx, hello)
	if err != nil {
		s.log.Error("approval failed", zap.Uint64("session", sess.ID), zap.Error(err))
		s.reject(sess, conn.RejectBadCredentials)
		return
	}
	if verdict.Reason != conn.RejectNone {
		s.reject(sess, verdict.Reason)
		return
	}

	cs := verdict.Session
	if verdict.Reconnect {
		if e := s.world.Get(cs.EntityID); e != nil {
			e.SessionID = sess.ID
		}
	} else {
		e := s.world.Spawn(world.EntitySpec{
			Name:      cs.Name,
			Kind:      world.KindPlayer,
			X:         playerSpawnX,
			Y:         playerSpawnY,
			MoveSpeed: playerMoveSpeed,
			MaxHP:     playerMaxHP,
			SessionID: sess.ID,
		})
		cs.EntityID = e.ID
	}

	w := packet.NewWriter(packet.S_WELCOME)
	w.WriteS(cs.PlayerID.String())
	w.WriteQ(uint64(cs.EntityID))
	sess.Send(w.Bytes())

	s.log.Info("player joined",
		zap.String("player", cs.PlayerID.String()),
		zap.String("name", cs.Name),
		zap.Bool("reconnect", verdict.Reconnect),
	)
	if err := event.Publish(s.bus, conn.ConnectionApproved{
		TransportID: sess.ID,
		PlayerID:    cs.PlayerID,
		Reconnect:   verdict.Reconnect,
	}); err != nil {
		s.log.Error("approved event", zap.Error(err))
	}
}

func (s *InputSystem) reject(sess *net.Session, reason conn.RejectReason) {
	w := packet.NewWriter(packet.S_REJECT)
	w.WriteC(byte(reason))
	w.WriteS(reason.Message())
	sess.Send(w.Bytes())

	// Close after the output phase has flushed the packet.
	s.sched.After(rejectFlushDelay, sess.Close)

	if err := event.Publish(s.bus, conn.ConnectionRejected{
		TransportID: sess.ID,
		Reason:      reason,
	}); err != nil {
		s.log.Error("rejected event", zap.Error(err))
	}
}

func (s *InputSystem) handleAction(sess *net.Session, r *packet.Reader) {
	e := s.entityFor(sess)
	if e == nil || !e.Alive() {
		return
	}

	actionID := r.ReadD()
	count := int(r.ReadC())
	var hints []world.EntityID
	for i := 0; i < count; i++ {
		hints = append(hints, world.EntityID(r.ReadQ()))
	}

	if _, err := s.ctrl.Request(e, actionID, hints); err != nil {
		if errors.Is(err, action.ErrOnCooldown) || errors.Is(err, action.ErrUnknownAction) {
			w := packet.NewWriter(packet.S_ACTION_FAIL)
			w.WriteD(actionID)
			sess.Send(w.Bytes())
		}
	}
}

func (s *InputSystem) handleCancel(sess *net.Session) {
	if e := s.entityFor(sess); e != nil {
		s.ctrl.CancelActive(e)
	}
}

// handleBye ends the player's session for good: the entity is destroyed and
// the reconnect slot released.
func (s *InputSystem) handleBye(sess *net.Session) {
	cs := s.registry.ByTransport(sess.ID)
	if cs != nil {
		s.registry.End(cs.PlayerID)
		if e := s.world.Get(cs.EntityID); e != nil {
			s.ctrl.CancelAll(e)
			s.world.MarkForDestruction(e.ID)
		}
		s.log.Info("player left",
			zap.String("player", cs.PlayerID.String()),
			zap.String("name", cs.Name),
		)
	}
	sess.Close()
}

func (s *InputSystem) entityFor(sess *net.Session) *world.Entity {
	cs := s.registry.ByTransport(sess.ID)
	if cs == nil {
		return nil
	}
	return s.world.Get(cs.EntityID)
}
