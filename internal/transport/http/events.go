package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	eventWriteTimeout = 5 * time.Second
	eventPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleEvents streams workflow transitions of one account.
//
// @Summary     Stream state transitions
// @Description Upgrades to a WebSocket and pushes one JSON transition per state change of the account's
// @Description music and image requests. Client frames are ignored.
// @Tags        music
// @Param       account  path  string  true  "Account ID"
// @Success     101
// @Router      /v1/accounts/{account}/events [get]
func (t *Transport) handleEvents(w http.ResponseWriter, r *http.Request) {
	s, ok := t.session(w, r)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	events, cancel := s.Subscribe()
	defer cancel()

	logger := slog.With("account", s.AccountID(), "remote", r.RemoteAddr)
	logger.Debug("event stream opened")

	// Reader: detects client close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(eventPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			logger.Debug("event stream closed by client")
			return
		case <-r.Context().Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(time.Second))
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(eventWriteTimeout)); err != nil {
				return
			}
		case tr, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
			if err := conn.WriteJSON(tr); err != nil {
				logger.Debug("event stream write failed", "error", err)
				return
			}
		}
	}
}
