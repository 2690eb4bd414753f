package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coder/websocket"

	"github.com/mesh-intelligence/todos/pkg/types"
)

// Client message types beyond the list actions.
const (
	MessageSearch = "search"
	MessageLoad   = "load"
	MessageRender = "render"
)

// ClientMessage is one UI event sent by the page.
type ClientMessage struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Text  string `json:"text,omitempty"`
	Query string `json:"query,omitempty"`
}

// RenderMessage carries the re-rendered list after each client message.
// Input is set only in replies to add, the one event that owns the input
// field; the page leaves the field alone when it is absent.
type RenderMessage struct {
	Type    string  `json:"type"`
	HTML    string  `json:"html"`
	Input   *string `json:"input,omitempty"`
	Items   int     `json:"items"`
	Visible int     `json:"visible"`
	Error   string  `json:"error,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	s.connsMu.Lock()
	s.conns[conn] = struct{}{}
	s.connsMu.Unlock()
	s.logger.Debug("websocket connected")

	sess.sockets.Add(1)
	defer func() {
		sess.touch()
		sess.sockets.Add(-1)
	}()

	sess.mu.Lock()
	if !sess.loaded {
		sess.load(s.ctx)
	}
	reply := s.render(sess, nil, false)
	sess.mu.Unlock()
	if err := s.write(conn, reply); err != nil {
		s.removeConn(conn)
		return
	}

	s.readLoop(conn, sess)
}

// readLoop handles the connection's messages in order until it closes.
func (s *Server) readLoop(conn *websocket.Conn, sess *uiSession) {
	defer s.removeConn(conn)

	for {
		_, data, err := conn.Read(s.ctx)
		if err != nil {
			return
		}

		sess.touch()

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Warn("invalid client message", "err", err)
			continue
		}

		sess.mu.Lock()
		err = s.handleMessage(s.ctx, sess, msg)
		reply := s.render(sess, err, msg.Type == string(types.ActionAdd))
		sess.mu.Unlock()

		if err := s.write(conn, reply); err != nil {
			return
		}
	}
}

// handleMessage applies one client message to the session's controller.
func (s *Server) handleMessage(ctx context.Context, sess *uiSession, msg ClientMessage) error {
	switch msg.Type {
	case MessageSearch:
		sess.ctrl.Search(msg.Query)
		return nil
	case MessageLoad:
		return sess.ctrl.Load(ctx)
	}

	kind, err := types.ParseActionKind(msg.Type)
	if err != nil {
		s.logger.Warn("unknown client message", "type", msg.Type)
		return err
	}
	err = sess.ctrl.Dispatch(ctx, types.Action{Kind: kind, ID: msg.ID, Text: msg.Text})
	if err != nil && !errors.Is(err, types.ErrWriteFailure) {
		s.logger.Warn("action rejected", "type", kind, "id", msg.ID, "err", err)
	}
	return err
}

// render builds the reply for the session's current state. The caller holds
// sess.mu.
func (s *Server) render(sess *uiSession, cause error, withInput bool) RenderMessage {
	items := sess.ctrl.Items()
	reply := RenderMessage{
		Type:    MessageRender,
		Items:   len(items),
		Visible: sess.ctrl.Visible(),
	}
	if withInput {
		input := sess.ctrl.Input()
		reply.Input = &input
	}
	if cause != nil {
		reply.Error = cause.Error()
	}

	var buf bytes.Buffer
	if err := s.renderer.RenderList(&buf, items); err != nil {
		s.logger.Error("error rendering list", "err", err)
	}
	reply.HTML = buf.String()
	return reply
}

func (s *Server) write(conn *websocket.Conn, msg RenderMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(s.ctx, writeTimeout)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		s.logger.Debug("websocket write failed", "err", err)
		return err
	}
	return nil
}

func (s *Server) removeConn(conn *websocket.Conn) {
	s.connsMu.Lock()
	_, ok := s.conns[conn]
	delete(s.conns, conn)
	s.connsMu.Unlock()
	if ok {
		_ = conn.Close(websocket.StatusNormalClosure, "")
		s.logger.Debug("websocket disconnected")
	}
}
