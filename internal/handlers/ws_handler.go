package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"linguaquest/internal/broadcast"
)

const wsWriteTimeout = 5 * time.Second

// WSHandler upgrades authenticated requests to websocket sessions and pumps
// hub events to them. The socket is push-only; client frames are discarded.
type WSHandler struct {
	hub *broadcast.Hub
}

// NewWSHandler creates a new websocket handler
func NewWSHandler(hub *broadcast.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// Connect registers the caller with the hub and streams events until the
// client disconnects or the session channel closes.
func (h *WSHandler) Connect(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Printf("Websocket accept failed for user %s: %v", userID, err)
		return
	}

	session := h.hub.Register(userID)
	defer h.hub.Unregister(session)

	// CloseRead keeps control frames flowing and cancels the context when
	// the peer goes away.
	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case msg, ok := <-session.Send():
			if !ok {
				conn.Close(websocket.StatusGoingAway, "session closed")
				return
			}
			if err := writeWithTimeout(ctx, conn, msg); err != nil {
				log.Printf("Websocket write failed for user %s: %v", userID, err)
				conn.Close(websocket.StatusAbnormalClosure, "write failed")
				return
			}
		}
	}
}

func writeWithTimeout(ctx context.Context, conn *websocket.Conn, msg []byte) error {
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, msg)
}
