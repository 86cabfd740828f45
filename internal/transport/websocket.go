// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	applog "minipiano/internal/log"

	"github.com/gorilla/websocket"
)

// WebSocketPath is the endpoint clients connect to for spectrum frames.
const WebSocketPath = "/spectrum"

// WebSocketTransport broadcasts frames as JSON to every connected client.
//
// Thread Safety:
// - Send never blocks, frames are dropped when the broadcast queue is full
// - Uses mutex for client map access
// - Frames closer together than minInterval are skipped
type WebSocketTransport struct {
	upgrader    websocket.Upgrader
	clients     map[*websocket.Conn]bool
	clientsMu   sync.Mutex
	broadcast   chan *Frame
	server      *http.Server
	listener    net.Listener
	minInterval time.Duration
	lastSend    time.Time // Only touched by Send callers, which are serialized by the publisher.
	closeOnce   sync.Once
	done        chan struct{}
}

// NewWebSocketTransport binds addr (e.g. ":8080") and starts serving.
// minInterval rate-limits broadcasts; zero disables the limit.
func NewWebSocketTransport(addr string, minInterval time.Duration) (*WebSocketTransport, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	wst := &WebSocketTransport{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Local visualizers are served from anywhere.
			},
		},
		clients:     make(map[*websocket.Conn]bool),
		broadcast:   make(chan *Frame, 16),
		listener:    listener,
		minInterval: minInterval,
		done:        make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(WebSocketPath, wst.handleWebSocket)
	wst.server = &http.Server{Handler: mux}

	go func() {
		applog.Infof("WebSocketTransport: Serving %s on %s", WebSocketPath, listener.Addr())
		if err := wst.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Errorf("WebSocketTransport: Server error: %v", err)
		}
	}()
	go wst.handleBroadcasts()

	return wst, nil
}

// Addr returns the address the server is listening on.
func (wst *WebSocketTransport) Addr() net.Addr {
	return wst.listener.Addr()
}

// ClientCount returns the number of connected clients.
func (wst *WebSocketTransport) ClientCount() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

// handleWebSocket upgrades HTTP connections and registers the client until
// its read side fails.
func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("WebSocketTransport: Upgrade error: %v", err)
		return
	}

	wst.clientsMu.Lock()
	wst.clients[conn] = true
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	applog.Infof("WebSocketTransport: Client connected, total: %d", total)

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				wst.removeClient(conn)
				return
			}
		}
	}()
}

func (wst *WebSocketTransport) removeClient(conn *websocket.Conn) {
	wst.clientsMu.Lock()
	_, ok := wst.clients[conn]
	delete(wst.clients, conn)
	total := len(wst.clients)
	wst.clientsMu.Unlock()

	if ok {
		conn.Close()
		applog.Infof("WebSocketTransport: Client disconnected, total: %d", total)
	}
}

// handleBroadcasts sends queued frames to all connected clients.
func (wst *WebSocketTransport) handleBroadcasts() {
	for {
		select {
		case frame := <-wst.broadcast:
			wst.clientsMu.Lock()
			for client := range wst.clients {
				if err := client.WriteJSON(frame); err != nil {
					applog.Warnf("WebSocketTransport: Error sending to client: %v", err)
					client.Close()
					delete(wst.clients, client)
				}
			}
			wst.clientsMu.Unlock()
		case <-wst.done:
			return
		}
	}
}

// Send queues a copy of frame for broadcast.
func (wst *WebSocketTransport) Send(frame *Frame) error {
	now := time.Now()
	if now.Sub(wst.lastSend) < wst.minInterval {
		return nil
	}
	wst.lastSend = now

	select {
	case wst.broadcast <- frame.Clone():
	case <-wst.done:
		return errors.New("websocket transport is closed")
	default:
		// Channel full, drop frame.
	}
	return nil
}

// Close disconnects every client and shuts the server down. It is safe to
// call more than once.
func (wst *WebSocketTransport) Close() error {
	var err error
	wst.closeOnce.Do(func() {
		applog.Infof("WebSocketTransport: Closing server")
		close(wst.done)

		wst.clientsMu.Lock()
		for client := range wst.clients {
			client.Close()
		}
		wst.clients = make(map[*websocket.Conn]bool)
		wst.clientsMu.Unlock()

		err = wst.server.Close()
	})
	return err
}

// Ensure WebSocketTransport satisfies the interface
var _ Transport = (*WebSocketTransport)(nil)
