package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"quickscribe/internal/api"
	"quickscribe/internal/logging"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	// Inbound frames are join messages only.
	maxInboundBytes = 512
	sendBuffer      = 16
)

// wsConn adapts a websocket connection to the rooms.Subscriber
// interface. Outbound writes go through a buffered channel; a full
// buffer drops the frame rather than blocking the dispatcher.
type wsConn struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

func (c *wsConn) Send(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *wsConn) Close() {
	c.once.Do(func() { close(c.done) })
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", logging.Error(err))
		return
	}

	client := newWSConn(conn)
	go s.writePump(client)

	if jobID := mux.Vars(r)["jobID"]; jobID != "" {
		if err := s.dispatcher.Subscribe(r.Context(), jobID, client); err != nil {
			s.logger.Error("subscribe failed", logging.Error(err),
				logging.String(logging.FieldJobID, jobID))
			client.Close()
			return
		}
	}

	s.readPump(client)
}

// readPump consumes inbound frames until the connection dies. The only
// meaningful inbound frame is a join message selecting a job room.
func (s *Server) readPump(client *wsConn) {
	defer func() {
		s.dispatcher.Unsubscribe(client)
		client.Close()
	}()

	client.conn.SetReadLimit(maxInboundBytes)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket closed unexpectedly", logging.Error(err))
			}
			return
		}

		var join api.JoinMessage
		if err := json.Unmarshal(payload, &join); err != nil || join.Type != "join" || join.JobID == "" {
			continue
		}
		if err := s.dispatcher.Subscribe(context.Background(), join.JobID, client); err != nil {
			s.logger.Error("join failed", logging.Error(err),
				logging.String(logging.FieldJobID, join.JobID))
		}
	}
}

// writePump owns all writes on the connection: queued updates, pings,
// and the final close frame.
func (s *Server) writePump(client *wsConn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case payload := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				client.Close()
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				client.Close()
				return
			}
		case <-client.done:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = client.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
