// internal/handlers/server.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"chaarchitti/internal/game"
)

// Server bridges websocket connections and game rooms. It tracks one client
// per seated player; the room itself never sees the transport beyond the raw
// connection handle stored on the seat.
type Server struct {
	Registry *game.Registry
	Log      *logrus.Logger

	mu      sync.Mutex
	clients map[uuid.UUID]*client
}

// client is one live websocket session bound to a seat. Outbound frames go
// through the buffered out channel; the write pump drains it.
type client struct {
	conn     *websocket.Conn
	out      chan []byte
	playerID uuid.UUID
	room     *game.Room
}

// NewServer wires a registry so every new room broadcasts through this server.
func NewServer(logger *logrus.Logger) *Server {
	srv := &Server{
		Log:     logger,
		clients: make(map[uuid.UUID]*client),
	}
	srv.Registry = game.NewRegistry(logger)
	srv.Registry.OnCreate = func(room *game.Room) {
		room.BroadcastFn = func(ev game.Event) { srv.broadcastEvent(room, ev) }
		room.OnSync = func() { srv.syncViews(room) }
	}
	return srv
}

// register binds a client to a seat, displacing any previous session for the
// same player. The displaced session keeps its goroutines; its out channel
// simply stops receiving and its connection has already been closed by the
// room's rebind.
func (srv *Server) register(cl *client, playerID uuid.UUID, room *game.Room) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	cl.playerID = playerID
	cl.room = room
	srv.clients[playerID] = cl
}

// unregister drops the client and marks the seat disconnected, unless a newer
// session has already taken the seat over.
func (srv *Server) unregister(cl *client) {
	srv.mu.Lock()
	current, ok := srv.clients[cl.playerID]
	if ok && current == cl {
		delete(srv.clients, cl.playerID)
	} else {
		ok = false
	}
	srv.mu.Unlock()

	if ok && cl.room != nil {
		cl.room.Disconnect(cl.playerID)
		srv.syncViews(cl.room)
	}
}

// broadcastEvent fans an event out to every session in the room. Called from
// inside the room with its lock held, so it must not call back into the room.
func (srv *Server) broadcastEvent(room *game.Room, ev game.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		srv.Log.WithError(err).Warn("failed to marshal event")
		return
	}
	srv.mu.Lock()
	defer srv.mu.Unlock()
	for _, cl := range srv.clients {
		if cl.room == room {
			cl.push(data, srv.Log)
		}
	}
}

// syncViews sends each session its personalized room snapshot. Must be called
// without the room lock held; ViewFor takes it.
func (srv *Server) syncViews(room *game.Room) {
	srv.mu.Lock()
	members := make([]*client, 0, 4)
	for _, cl := range srv.clients {
		if cl.room == room {
			members = append(members, cl)
		}
	}
	srv.mu.Unlock()

	for _, cl := range members {
		view, err := room.ViewFor(cl.playerID)
		if err != nil {
			continue
		}
		cl.send(stateFrame{Type: "state", View: view}, srv.Log)
	}
}

type stateFrame struct {
	Type string     `json:"type"`
	View *game.View `json:"view"`
}

// push queues a pre-marshaled frame, dropping it if the client's buffer is
// full. A client that cannot keep up loses intermediate frames, not the
// connection; the next state sync restores it.
func (cl *client) push(data []byte, log *logrus.Logger) {
	select {
	case cl.out <- data:
	default:
		log.WithField("player", cl.playerID).Warn("outbound buffer full, dropping frame")
	}
}

func (cl *client) send(v interface{}, log *logrus.Logger) {
	data, err := json.Marshal(v)
	if err != nil {
		log.WithError(err).Warn("failed to marshal outbound frame")
		return
	}
	cl.push(data, log)
}

// writePump drains the out channel onto the wire and pings periodically to
// detect dead peers.
func (cl *client) writePump(ctx context.Context, log *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-cl.out:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := cl.conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				log.WithError(err).Debug("websocket write failed")
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := cl.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				log.WithError(err).Debug("websocket ping failed, assuming disconnect")
				return
			}
		}
	}
}

// HealthHandler reports liveness and the current room count.
func (srv *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "ok",
			"rooms":  srv.Registry.Count(),
		})
	}
}
