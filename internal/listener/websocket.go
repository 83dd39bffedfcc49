package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pixil98/go-voxel/internal/game"
)

const (
	DefaultPath   = "/socket"
	ServerIdParam = "serverId"
)

type WebsocketListener struct {
	port     uint16
	path     string
	cm       *ConnectionManager
	upgrader websocket.Upgrader

	mu          sync.Mutex
	stopping    bool
	wg          sync.WaitGroup
	connCtx     context.Context
	cancelConns context.CancelFunc
}

func NewWebsocketListener(port uint16, path string, cm *ConnectionManager) *WebsocketListener {
	if path == "" {
		path = DefaultPath
	}
	// Create a cancelable context for all connections
	connCtx, cancelConns := context.WithCancel(context.Background())
	return &WebsocketListener{
		port: port,
		path: path,
		cm:   cm,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		connCtx:     connCtx,
		cancelConns: cancelConns,
	}
}

// Handler serves the websocket endpoint on the configured path.
func (l *WebsocketListener) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(l.path, l.serveWs)
	return mux
}

func (l *WebsocketListener) serveWs(w http.ResponseWriter, r *http.Request) {
	serverId := game.ServerId(r.URL.Query().Get(ServerIdParam))

	l.mu.Lock()
	if l.stopping {
		l.mu.Unlock()
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	l.wg.Add(1)
	l.mu.Unlock()
	defer l.wg.Done()

	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.WarnContext(r.Context(), "websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	// Use the shared context so all connections are canceled together
	l.cm.AcceptConnection(l.connCtx, conn, serverId)
}

func (l *WebsocketListener) Start(ctx context.Context) error {
	svr := &http.Server{
		Addr:              fmt.Sprintf(":%d", l.port),
		Handler:           l.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	// done signals that Start is returning (either success or failure)
	done := make(chan struct{})
	defer close(done)
	stopped := make(chan struct{})

	// When parent context is canceled, stop accepting and cancel all connections
	go func() {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := svr.Shutdown(shutdownCtx); err != nil {
				slog.Warn("shutting down websocket listener", "error", err)
			}
			l.Stop()
			close(stopped)
		case <-done:
			// Start returned (likely with error) - nothing to stop
		}
	}()

	slog.InfoContext(ctx, "websocket listener started", "port", l.port, "path", l.path)
	err := svr.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		<-stopped
		return nil
	}
	if errors.Is(err, syscall.EADDRINUSE) {
		return fmt.Errorf("port %d is already in use (another server running?)", l.port)
	}
	return fmt.Errorf("serving websocket on port %d: %w", l.port, err)
}

// Stop refuses new sessions, cancels every open one and waits for them to
// finish cleanup.
func (l *WebsocketListener) Stop() {
	l.mu.Lock()
	l.stopping = true
	l.mu.Unlock()

	l.cancelConns()
	l.wg.Wait()
}
