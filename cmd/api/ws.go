package main

import (
    "net/http"
    "sync"
    "time"

    "github.com/gorilla/websocket"
    "go.uber.org/zap"

    "stockdash/pkg/logger"
)

const wsWriteWait = 10 * time.Second

var upgrader = websocket.Upgrader{
    ReadBufferSize:  1024,
    WriteBufferSize: 4096,
    // The dashboard is served from arbitrary origins in development.
    CheckOrigin: func(r *http.Request) bool { return true },
}

// wsSubscriber adapts one websocket connection to the broadcast hub.
// Writes are serialized; the hub may deliver from a different goroutine
// than the initial snapshot.
type wsSubscriber struct {
    mu   sync.Mutex
    conn *websocket.Conn
}

func (s *wsSubscriber) Send(data []byte) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
    return s.conn.WriteMessage(websocket.TextMessage, data)
}

// wsHandler upgrades the connection, sends an immediate snapshot, and keeps
// the subscriber registered until the peer goes away.
func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
    conn, err := upgrader.Upgrade(w, r, nil)
    if err != nil {
        logger.Log.Warn("websocket upgrade failed", zap.Error(err))
        return
    }

    // Clear the deadline inherited from the server's read timeout; the
    // connection stays open for as long as the client keeps it alive.
    conn.SetReadDeadline(time.Time{})

    sub := &wsSubscriber{conn: conn}

    // Greet the client with current data before the first tick.
    if data, err := s.hub.Snapshot(r.Context()); err == nil {
        if err := sub.Send(data); err != nil {
            conn.Close()
            return
        }
    }

    s.hub.Register(sub)
    defer func() {
        s.hub.Unregister(sub)
        conn.Close()
    }()

    // Drain the read side to detect disconnects; inbound messages carry no
    // meaning on this endpoint.
    for {
        if _, _, err := conn.ReadMessage(); err != nil {
            return
        }
    }
}
