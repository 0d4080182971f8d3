package server

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/zeusync/drgpu/internal/core/observability/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// handleWebSocket serves /ws: every JSON Request read from the connection is answered by
// one Response carrying the same ID, in order.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", log.Error(err))
		return
	}
	defer conn.Close()

	s.metrics.ConnectionOpened()
	defer s.metrics.ConnectionClosed()

	client := conn.RemoteAddr().String()
	s.logger.Debug("Websocket client connected", log.String("client", client))
	conn.SetReadLimit(s.config.MaxReportSize)

	ctx := r.Context()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("Websocket read failed", log.String("client", client), log.Error(err))
			}
			return
		}

		var req Request
		resp := Response{}
		if err := decodeJSON(data, &req); err != nil {
			resp.Error = err.Error()
		} else if doc, err := s.analyzer.Analyze(ctx, &req); err != nil {
			resp.ID, resp.Error = req.ID, err.Error()
		} else {
			resp.ID, resp.Result = req.ID, doc
		}
		if err := conn.WriteJSON(resp); err != nil {
			s.logger.Warn("Websocket write failed", log.String("client", client), log.Error(err))
			return
		}
	}
}
