package battle

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// OutboundQueue is the per-session unbounded FIFO of ServerEvent described
// in spec.md §3/§5: producers (the Orchestrator, the Session Registry,
// the Lobby Registry) never block on Push, even if the consuming writer
// pump is slow or stalled. Adapted from the teacher's ChannelSession
// (internal/multiplayer/session.go), which uses a fixed-size buffered
// channel with a drop-oldest policy; that policy is wrong for this spec
// (events must not be silently dropped), so the bounded channel is
// replaced with a mutex-guarded growable slice plus a sync.Cond wakeup.
type OutboundQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buffer []ServerEvent
	closed bool
}

// NewOutboundQueue creates an empty, open queue.
func NewOutboundQueue() *OutboundQueue {
	q := &OutboundQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push enqueues evt. Never blocks. A Push after Close is a silent no-op.
func (q *OutboundQueue) Push(evt ServerEvent) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.buffer = append(q.buffer, evt)
	q.cond.Signal()
}

// Next blocks until an event is available or the queue is closed. The
// second return value is false once the queue is closed and drained.
func (q *OutboundQueue) Next() (ServerEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.buffer) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.buffer) == 0 {
		return nil, false
	}
	evt := q.buffer[0]
	q.buffer[0] = nil
	q.buffer = q.buffer[1:]
	return evt, true
}

// Close marks the queue closed and wakes any blocked consumer. Safe to
// call more than once.
func (q *OutboundQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.cond.Broadcast()
}

const (
	// DefaultLivenessProbeInterval and DefaultLivenessTimeout are used
	// when a caller has no configured override (see
	// appconfig.ServerConfig.LivenessProbeInterval/LivenessTimeout).
	DefaultLivenessProbeInterval = 5 * time.Second
	DefaultLivenessTimeout       = 10 * time.Second

	// inboundRateLimit caps how often one session's frames are decoded
	// and dispatched, a bit above the ~62.5Hz tick rate so a client
	// sending one Input per tick is never throttled, while a runaway or
	// malicious client can't flood the Orchestrator's command channel.
	inboundRateLimit = 120
	inboundBurst     = 60
)

// Dispatcher routes a decoded ClientCommand from a Session into the
// Lobby/Session/Channel Registries and the Match Orchestrator. Sessions
// are injected with a Dispatcher rather than reaching for ambient
// singletons, per spec.md §9's testability note.
type Dispatcher interface {
	HandleConnect(s *Session)
	Dispatch(s *Session, cmd ClientCommand)
	HandleDisconnect(s *Session)
}

// Session is one Connection Session: the per-client goroutine pair
// (reader + writer) around a *websocket.Conn. Grounded on the teacher's
// ChannelSession/SessionHandle split, adapted from an in-process Go
// channel bridge to an actual network transport.
type Session struct {
	playerID   string
	matchingID string // optional pre-bound match, from the ?matching_id= query param
	conn       *websocket.Conn
	outbound   *OutboundQueue
	dispatcher Dispatcher
	logger     *log.Logger
	limiter    *rate.Limiter

	livenessProbeInterval time.Duration
	livenessTimeout       time.Duration

	lastActiveUnixNano atomic.Int64

	done     chan struct{}
	doneOnce sync.Once
}

// NewSession wraps an upgraded connection. playerID and matchingID come
// from query parameters per spec.md §6; matchingID may be empty.
// livenessProbeInterval/livenessTimeout govern the keep-alive loop;
// callers with no configured override should pass
// DefaultLivenessProbeInterval/DefaultLivenessTimeout.
func NewSession(conn *websocket.Conn, playerID, matchingID string, dispatcher Dispatcher, livenessProbeInterval, livenessTimeout time.Duration, logger *log.Logger) *Session {
	s := &Session{
		playerID:              playerID,
		matchingID:            matchingID,
		conn:                  conn,
		outbound:              NewOutboundQueue(),
		dispatcher:            dispatcher,
		logger:                logger,
		limiter:               rate.NewLimiter(rate.Limit(inboundRateLimit), inboundBurst),
		livenessProbeInterval: livenessProbeInterval,
		livenessTimeout:       livenessTimeout,
		done:                  make(chan struct{}),
	}
	s.touch()
	return s
}

// ID returns the bound player id.
func (s *Session) ID() string {
	return s.playerID
}

// MatchingID returns the pre-bound match id from the connection query
// parameters, or "" if the session connected without one.
func (s *Session) MatchingID() string {
	return s.matchingID
}

// Send enqueues evt for delivery; never blocks.
func (s *Session) Send(evt ServerEvent) {
	s.outbound.Push(evt)
}

// Queue returns the session's OutboundQueue, for registration into the
// Lobby and Channel Registries.
func (s *Session) Queue() *OutboundQueue {
	return s.outbound
}

// Done returns a channel closed once the session has torn down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) touch() {
	s.lastActiveUnixNano.Store(time.Now().UnixNano())
}

func (s *Session) idleFor(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastActiveUnixNano.Load()))
}

// Run drives the session until the connection closes, the liveness
// probe times out, or Close is called. It starts the
// writer and liveness goroutines and blocks in the read loop; callers
// invoke Run directly in the goroutine accepted from the HTTP handler.
func (s *Session) Run() {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.writePump()
	}()
	go func() {
		defer wg.Done()
		s.livenessLoop()
	}()

	s.readPump()
	s.Close()
	wg.Wait()
}

// readPump decodes inbound frames and dispatches them. Decode failures
// produce an ErrorEvent reply without closing the session, per
// spec.md §4.1/§7.
func (s *Session) readPump() {
	s.conn.SetPongHandler(func(string) error {
		s.touch()
		return nil
	})
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		s.touch()

		if !s.limiter.Allow() {
			s.Send(ErrorEvent{Message: "rate limit exceeded"})
			continue
		}

		cmd, err := DecodeClientCommand(raw)
		if err != nil {
			s.Send(ErrorEvent{Message: err.Error()})
			continue
		}
		s.dispatcher.Dispatch(s, cmd)
	}
}

// writePump drains the OutboundQueue and writes each event as a text
// frame. It exits once the queue is closed.
func (s *Session) writePump() {
	for {
		evt, ok := s.outbound.Next()
		if !ok {
			return
		}
		data, err := EncodeServerEvent(evt)
		if err != nil {
			s.logger.Error("encode outbound event", "player_id", s.playerID, "err", err)
			continue
		}
		if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

// livenessLoop sends a keep-alive ping every livenessProbeInterval (5s by
// default) and closes the session if no inbound frame, message or pong,
// has been observed within livenessTimeout (10s by default) of the last
// seen activity.
func (s *Session) livenessLoop() {
	ticker := time.NewTicker(s.livenessProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			if s.idleFor(now) > s.livenessTimeout {
				s.logger.Debug("session idle timeout", "player_id", s.playerID)
				s.Close()
				return
			}
			if err := s.conn.WriteControl(websocket.PingMessage, nil, now.Add(time.Second)); err != nil {
				return
			}
		}
	}
}

// Close tears the session down: it closes the outbound queue (ending
// writePump), closes the done channel (ending livenessLoop), and closes
// the underlying connection (ending readPump's blocking read). It
// invokes the dispatcher's disconnect hook exactly once.
func (s *Session) Close() {
	s.doneOnce.Do(func() {
		close(s.done)
		s.outbound.Close()
		_ = s.conn.Close()
		s.dispatcher.HandleDisconnect(s)
	})
}
