package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xhad/ragflow/internal/models"
	"github.com/xhad/ragflow/internal/types"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is the envelope for both directions on /ws.
type Message struct {
	Type    string          `json:"type"`
	Content string          `json:"content,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

const (
	msgRunWorkflow = "run-workflow"
	msgAsk         = "ask"

	msgStatus   = "status"
	msgResponse = "response"
	msgError    = "error"
)

// handleWebSocket serves interactive runs. Messages on one connection are
// handled in order.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("Error reading message", zap.Error(err))
			}
			return
		}

		if !s.limiter.Allow() {
			s.sendMessage(conn, Message{Type: msgError, Content: "Too many requests"})
			continue
		}
		s.handleMessage(r, conn, msg)
	}
}

func (s *Server) handleMessage(r *http.Request, conn *websocket.Conn, msg Message) {
	ctx := r.Context()

	switch msg.Type {
	case msgRunWorkflow:
		var wf models.Workflow
		if err := json.Unmarshal(msg.Data, &wf); err != nil {
			s.sendMessage(conn, Message{Type: msgError, Content: "Invalid workflow: " + err.Error()})
			return
		}

		s.sendMessage(conn, Message{Type: msgStatus, Content: "Running workflow"})
		result := s.deps.Runner.Execute(ctx, wf)

		data, err := json.Marshal(result)
		if err != nil {
			s.sendMessage(conn, Message{Type: msgError, Content: err.Error()})
			return
		}
		s.sendMessage(conn, Message{Type: msgResponse, Content: result.Result, Data: data})

	case msgAsk:
		s.sendMessage(conn, Message{Type: msgStatus, Content: "Generating response"})
		answer, err := s.deps.Generator.Generate(ctx, types.GenerateRequest{Prompt: msg.Content})
		if err != nil {
			s.sendMessage(conn, Message{Type: msgError, Content: err.Error()})
			return
		}
		s.sendMessage(conn, Message{Type: msgResponse, Content: answer})

	default:
		s.sendMessage(conn, Message{Type: msgError, Content: "Unknown message type: " + msg.Type})
	}
}

func (s *Server) sendMessage(conn *websocket.Conn, msg Message) {
	if err := conn.WriteJSON(msg); err != nil {
		s.log.Warn("Error sending message", zap.Error(err))
	}
}
