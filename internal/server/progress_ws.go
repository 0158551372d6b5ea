package server

import (
	"context"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// handleProgressStream streams metrics batch progress events over a
// websocket. The connection stays open across batches; clients see every
// run that starts while they are subscribed.
// GET /api/batch/progress
func (s *Server) handleProgressStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	events, cancel := s.hub.Subscribe()
	defer cancel()

	ctx := r.Context()
	s.log.Debug().Msg("Progress stream subscriber connected")

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			writeCtx, done := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, ev)
			done()
			if err != nil {
				s.log.Debug().Err(err).Msg("Progress stream subscriber dropped")
				return
			}
		}
	}
}
