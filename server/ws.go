package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Same-origin only. Cross-origin clients use the HTTP endpoints.
		origin := r.Header.Get("Origin")
		return origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host
	},
}

type wsAsk struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	Question  string `json:"question"`
}

type wsAnswer struct {
	Answer string `json:"answer,omitempty"`
	Error  string `json:"error,omitempty"`
}

// handleWS answers asks over a websocket, one question per message.
// Questions are processed sequentially so answers arrive in ask order.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	conn.SetReadLimit(1 << 20)

	for {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Minute))

		var req wsAsk
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[SERVER] WebSocket read: %v", err)
			}
			return
		}

		start := time.Now()
		answer, err := s.asker.Ask(r.Context(), req.SessionID, req.UserID, req.Question)
		s.metrics.AskDuration.Observe(time.Since(start).Seconds())

		var resp wsAnswer
		if err != nil {
			s.metrics.AsksTotal.WithLabelValues(outcomeFor(err)).Inc()
			_, resp.Error = statusFor(err)
		} else {
			s.metrics.AsksTotal.WithLabelValues("ok").Inc()
			resp.Answer = answer
		}

		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(resp); err != nil {
			log.Printf("[SERVER] WebSocket write: %v", err)
			return
		}
	}
}
