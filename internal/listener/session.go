package listener

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pixil98/go-voxel/internal/game"
	"github.com/pixil98/go-voxel/internal/messaging"
	"github.com/pixil98/go-voxel/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

// outbound is one frame for the write pump. A closing frame flushes
// everything queued before it and then ends the session.
type outbound struct {
	data    []byte
	closing bool
}

type session struct {
	cm       *ConnectionManager
	conn     *websocket.Conn
	id       game.ConnectionId
	serverId game.ServerId

	send      chan outbound
	done      chan struct{}
	closeOnce sync.Once
}

func newSession(cm *ConnectionManager, conn *websocket.Conn, id game.ConnectionId, serverId game.ServerId) *session {
	return &session{
		cm:       cm,
		conn:     conn,
		id:       id,
		serverId: serverId,
		send:     make(chan outbound, sendBuffer),
		done:     make(chan struct{}),
	}
}

func (s *session) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	unsubs, err := s.subscribe()
	defer func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}()
	defer s.cleanup(ctx)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "connection opened", "conn", s.id, "server", s.serverId)

	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		s.writePump(ctx)
	}()

	s.readLoop(ctx)
	s.stop()
	cancel()
	<-pumpDone
	return nil
}

func (s *session) subscribe() ([]func(), error) {
	var unsubs []func()
	subjects := map[string]func([]byte){
		messaging.ConnectionSubject(s.id):         s.deliverDirect,
		messaging.InstanceSubject(s.serverId):     s.deliver,
		messaging.InstanceTickSubject(s.serverId): s.deliver,
		messaging.SubjectAll:                      s.deliver,
	}
	for subject, handler := range subjects {
		unsub, err := s.cm.subscriber.Subscribe(subject, handler)
		if err != nil {
			return unsubs, fmt.Errorf("subscribing to %s: %w", subject, err)
		}
		unsubs = append(unsubs, unsub)
	}
	return unsubs, nil
}

// cleanup releases everything the connection holds. It runs on a context
// detached from the connection so store writes complete after a disconnect.
func (s *session) cleanup(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)

	if c, ok := s.cm.registry.Lookup(s.id); ok && c.Identified() {
		s.cm.world.RemovePlayer(ctx, s.serverId, c.UserId, s.id)
	}
	s.cm.registry.Unregister(ctx, s.id)

	if err := s.conn.Close(); err != nil {
		slog.DebugContext(ctx, "closing websocket", "conn", s.id, "error", err)
	}
	slog.InfoContext(ctx, "connection closed", "conn", s.id, "server", s.serverId)
}

// deliver queues an already encoded envelope. A client too slow to drain its
// buffer is disconnected.
func (s *session) deliver(data []byte) {
	s.enqueue(outbound{data: data})
}

// deliverDirect handles the per-connection subject, where a kick ends the session.
func (s *session) deliverDirect(data []byte) {
	env, err := protocol.Decode(data)
	if err == nil && env.Event == protocol.EventKick {
		s.enqueue(outbound{closing: true})
		return
	}
	s.enqueue(outbound{data: data})
}

func (s *session) enqueue(o outbound) {
	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.send <- o:
	case <-s.done:
	default:
		slog.Warn("send buffer full, dropping connection", "conn", s.id)
		s.stop()
	}
}

// reply encodes and queues a message for this connection only.
func (s *session) reply(ctx context.Context, event string, data any) {
	msg, err := protocol.Encode(event, data)
	if err != nil {
		slog.ErrorContext(ctx, "encoding reply", "event", event, "error", err)
		return
	}
	s.enqueue(outbound{data: msg})
}

func (s *session) replyError(ctx context.Context, err error) {
	s.reply(ctx, protocol.EventError, protocol.Error{Message: game.MessageOf(err)})
}

// disconnect flushes pending replies and then closes the connection.
func (s *session) disconnect() {
	s.enqueue(outbound{closing: true})
}

func (s *session) stop() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *session) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	// unblock the read loop whichever way the pump ends
	defer func() { _ = s.conn.Close() }()

	for {
		select {
		case <-ctx.Done():
			s.writeClose(websocket.CloseGoingAway)
			return
		case <-s.done:
			return
		case o := <-s.send:
			if o.closing {
				s.writeClose(websocket.CloseNormalClosure)
				s.stop()
				return
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, o.data); err != nil {
				slog.DebugContext(ctx, "writing to websocket", "conn", s.id, "error", err)
				s.stop()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.stop()
				return
			}
		}
	}
}

func (s *session) writeClose(code int) {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""))
}

// readLoop handles client messages in arrival order until the socket fails.
func (s *session) readLoop(ctx context.Context) {
	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.DebugContext(ctx, "reading from websocket", "conn", s.id, "error", err)
			}
			return
		}

		select {
		case <-s.done:
			return
		default:
		}

		env, err := protocol.Decode(payload)
		if err != nil {
			slog.InfoContext(ctx, "discarding malformed message", "conn", s.id, "error", err)
			continue
		}
		s.handle(ctx, env)
	}
}
