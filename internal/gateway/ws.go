package gateway

import (
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// handleWS serves the activity feed over a WebSocket. The connection is
// one-way: client reads are drained and discarded.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	opts := &websocket.AcceptOptions{}
	if s.cfg.Cfg.CORS.Enabled {
		opts.OriginPatterns = s.cfg.Cfg.CORS.AllowedOrigins
	}
	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		s.cfg.Logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx := conn.CloseRead(r.Context())

	sub := s.cfg.Bus.Subscribe("activity.")
	defer s.cfg.Bus.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case event, open := <-sub.Ch():
			if !open {
				return
			}
			frame := streamFrame{Type: eventType(event.Topic), Payload: event.Payload}
			if err := wsjson.Write(ctx, conn, frame); err != nil {
				return
			}
		}
	}
}
