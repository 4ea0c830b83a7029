// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"chaarchitti/internal/auth"
	"chaarchitti/internal/game"
	"chaarchitti/internal/middleware"
)

// ClientMessage is the envelope for every inbound frame. Type selects the
// action; the remaining fields are action-specific.
type ClientMessage struct {
	Type     string `json:"type"`
	Name     string `json:"name,omitempty"`
	RoomCode string `json:"roomCode,omitempty"`
	CardID   string `json:"cardId,omitempty"`
	Token    string `json:"token,omitempty"`
}

// WSHandler upgrades the connection and runs the session loop. A session
// starts unseated; the first create_room, join_room, or reconnect binds it to
// a seat, after which game actions are accepted.
func WSHandler(logger *logrus.Logger, srv *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remoteAddr := r.RemoteAddr
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"chaarchitti"},
			OriginPatterns: []string{"*"}, // tighten in production
		})
		if err != nil {
			logger.Warnf("websocket accept error from %s: %v", remoteAddr, err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "chaarchitti" {
			c.Close(websocket.StatusPolicyViolation, "client must speak the chaarchitti subprotocol")
			return
		}
		middleware.LogWebSocketConnect(logger, remoteAddr)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		cl := &client{
			conn: c,
			out:  make(chan []byte, 16),
		}
		go cl.writePump(ctx, logger)

		readErr := srv.readPump(ctx, cl)
		middleware.LogWebSocketDisconnect(logger, remoteAddr, readErr)
		srv.unregister(cl)
	}
}

// readPump reads frames until the connection dies, dispatching each one.
func (srv *Server) readPump(ctx context.Context, cl *client) error {
	for {
		typ, msg, err := cl.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				return nil
			}
			if strings.Contains(err.Error(), "context canceled") {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			continue
		}
		var m ClientMessage
		if err := json.Unmarshal(msg, &m); err != nil {
			cl.sendError("bad_request", "invalid JSON", srv.Log)
			continue
		}
		srv.dispatch(cl, &m)
	}
}

// dispatch routes one message. Rejections go back to the sender only; valid
// actions broadcast their events from inside the room and are followed by a
// full view sync to every member.
func (srv *Server) dispatch(cl *client, m *ClientMessage) {
	switch m.Type {
	case "create_room":
		srv.handleCreate(cl, m)
	case "join_room":
		srv.handleJoin(cl, m)
	case "reconnect":
		srv.handleReconnect(cl, m)
	case "leave_room":
		srv.roomAction(cl, func(room *game.Room) error {
			return room.Leave(cl.playerID)
		})
	case "start_game":
		srv.roomAction(cl, func(room *game.Room) error {
			return room.Start(cl.playerID)
		})
	case "continue_game":
		srv.roomAction(cl, func(room *game.Room) error {
			return room.Continue(cl.playerID)
		})
	case "pass_card":
		cardID, err := uuid.Parse(m.CardID)
		if err != nil {
			cl.sendError("bad_request", "invalid card id", srv.Log)
			return
		}
		srv.roomAction(cl, func(room *game.Room) error {
			return room.Pass(cl.playerID, cardID)
		})
	case "declare_set":
		srv.roomAction(cl, func(room *game.Room) error {
			return room.DeclareSet(cl.playerID)
		})
	case "click_hand":
		srv.roomAction(cl, func(room *game.Room) error {
			_, err := room.ClickHand(cl.playerID)
			return err
		})
	default:
		cl.sendError("bad_request", "unknown message type "+m.Type, srv.Log)
	}
}

func (srv *Server) handleCreate(cl *client, m *ClientMessage) {
	if m.Name == "" {
		cl.sendError("bad_request", "name is required", srv.Log)
		return
	}
	room, host, err := srv.Registry.CreateRoom(m.Name, cl.conn)
	if err != nil {
		cl.sendRejection(err, srv.Log)
		return
	}
	srv.register(cl, host.ID, room)
	cl.sendSeatAck("room_created", room.Code, host.ID, srv.Log)
	srv.syncViews(room)
}

func (srv *Server) handleJoin(cl *client, m *ClientMessage) {
	if m.Name == "" || m.RoomCode == "" {
		cl.sendError("bad_request", "name and roomCode are required", srv.Log)
		return
	}
	room, p, err := srv.Registry.JoinRoom(strings.ToUpper(m.RoomCode), m.Name, cl.conn)
	if err != nil {
		cl.sendRejection(err, srv.Log)
		return
	}
	srv.register(cl, p.ID, room)
	cl.sendSeatAck("room_joined", room.Code, p.ID, srv.Log)
	srv.syncViews(room)
}

// handleReconnect resumes a seat from its opaque token. The token pins both
// the player id and the room code, so a stale token for an evicted room fails
// with room_not_found rather than seating the player somewhere else.
func (srv *Server) handleReconnect(cl *client, m *ClientMessage) {
	playerID, roomCode, err := auth.AuthenticateSeatToken(m.Token)
	if err != nil {
		cl.sendError("invalid_token", "reconnect token rejected", srv.Log)
		return
	}
	room, err := srv.Registry.Get(roomCode)
	if err != nil {
		cl.sendRejection(err, srv.Log)
		return
	}
	if err := room.Reconnect(playerID, cl.conn); err != nil {
		cl.sendRejection(err, srv.Log)
		return
	}
	srv.register(cl, playerID, room)
	cl.sendSeatAck("reconnected", room.Code, playerID, srv.Log)
	srv.syncViews(room)
}

// roomAction runs a seat-bound action and syncs views on success.
func (srv *Server) roomAction(cl *client, fn func(*game.Room) error) {
	srv.mu.Lock()
	room := cl.room
	srv.mu.Unlock()
	if room == nil {
		cl.sendError("not_in_room", "join a room first", srv.Log)
		return
	}
	if err := fn(room); err != nil {
		cl.sendRejection(err, srv.Log)
		return
	}
	srv.syncViews(room)
}

// sendSeatAck confirms a seat binding and includes a fresh reconnect token.
// Token minting failure downgrades to an ack without a token; the session
// still works, it just cannot resume after a drop.
func (cl *client) sendSeatAck(frameType, roomCode string, playerID uuid.UUID, log *logrus.Logger) {
	token, err := auth.CreateSeatToken(playerID, roomCode)
	if err != nil {
		log.WithError(err).Warn("failed to mint seat token")
	}
	cl.send(map[string]interface{}{
		"type":     frameType,
		"roomCode": roomCode,
		"playerId": playerID.String(),
		"token":    token,
	}, log)
}

func (cl *client) sendError(code, message string, log *logrus.Logger) {
	cl.send(map[string]interface{}{
		"type":    "error",
		"code":    code,
		"message": message,
	}, log)
}

// sendRejection maps a game rejection onto the error frame, preserving its
// stable code. Non-rejection errors surface as internal_error.
func (cl *client) sendRejection(err error, log *logrus.Logger) {
	var rej *game.Rejection
	if errors.As(err, &rej) {
		cl.sendError(rej.Code, rej.Message, log)
		return
	}
	log.WithError(err).Error("unexpected action error")
	cl.sendError("internal_error", "internal error", log)
}
