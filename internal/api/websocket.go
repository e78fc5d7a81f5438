package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/matzehuels/flowkeeper/pkg/command"
	"github.com/matzehuels/flowkeeper/pkg/errors"
	"github.com/matzehuels/flowkeeper/pkg/flow"
	"github.com/matzehuels/flowkeeper/pkg/session"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = 54 * time.Second

	// Largest command message accepted from the peer
	maxMessageBytes = 1 << 20
)

// wsMessage is every frame the server sends. Exactly one payload is set.
type wsMessage struct {
	Kind    string                `json:"kind"` // "project", "outcome", "error"
	Project *flow.ProjectSnapshot `json:"project,omitempty"`
	Outcome *command.Outcome      `json:"outcome,omitempty"`
	Error   string                `json:"error,omitempty"`
}

// handleWebSocket streams the project after every change and accepts
// commands (the JSON form of command.Encode) from the peer.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	// updates holds at most the latest project; older ones are dropped.
	updates := make(chan flow.ProjectSnapshot, 1)
	unsubscribe := sess.Subscribe(func(p flow.ProjectSnapshot) {
		select {
		case <-updates:
		default:
		}
		updates <- p
	})
	defer unsubscribe()

	replies := make(chan wsMessage, 8)
	done := make(chan struct{})
	quit := make(chan struct{})
	defer close(quit)

	// Reader goroutine - dispatches commands, handles pongs and close messages
	go func() {
		defer close(done)
		conn.SetReadLimit(maxMessageBytes)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			select {
			case replies <- dispatchFrame(r.Context(), sess, data):
			case <-quit:
				return
			}
		}
	}()

	p := sess.Project()
	if !s.send(conn, wsMessage{Kind: "project", Project: &p}) {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case p := <-updates:
			if !s.send(conn, wsMessage{Kind: "project", Project: &p}) {
				return
			}
		case msg := <-replies:
			if !s.send(conn, msg) {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatchFrame decodes and dispatches one command frame.
func dispatchFrame(ctx context.Context, sess *session.Session, data []byte) wsMessage {
	cmd, err := command.Decode(data)
	if err != nil {
		return wsMessage{Kind: "error", Error: err.Error()}
	}
	out, err := sess.Dispatch(ctx, cmd)
	if err != nil {
		return wsMessage{Kind: "error", Error: errors.UserMessage(err)}
	}
	return wsMessage{Kind: "outcome", Outcome: &out}
}

func (s *Server) send(conn *websocket.Conn, msg wsMessage) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("ws encode failed", "err", err)
		return true
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Debug("ws write failed", "err", err)
		return false
	}
	return true
}
