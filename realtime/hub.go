package realtime

import (
	"net/http"
	"time"

	"github.com/Vinubaba/TOUCH-API/claims"
	"github.com/Vinubaba/TOUCH-API/registry"
	. "github.com/Vinubaba/TOUCH-API/shared"

	"github.com/gorilla/websocket"
)

const (
	subscriberBuffer = 64
	writeWait        = 10 * time.Second
	pingPeriod       = 30 * time.Second
)

// Hub streams the store changes of the authenticated parent over a websocket.
type Hub struct {
	Broadcaster *registry.Broadcaster `inject:""`
	Config      *AppConfig            `inject:""`
	Logger      *Logger               `inject:""`
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerId := claims.GetUserId(ctx)
	if ownerId == "" {
		HttpError(w, NewError("not authenticated"), http.StatusUnauthorized)
		return
	}

	// subscribe before the handshake completes so no event is lost once the client is connected
	events, unsubscribe := h.Broadcaster.Subscribe(ownerId, subscriberBuffer)
	defer unsubscribe()

	upgrader := websocket.Upgrader{CheckOrigin: h.checkOrigin}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Warn(ctx, "failed to upgrade connection", "err", err)
		return
	}
	defer conn.Close()
	h.Logger.Debug(ctx, "event stream opened")

	// the client never sends anything, reading only detects the close
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			h.Logger.Debug(ctx, "event stream closed")
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				h.Logger.Warn(ctx, "failed to write event", "err", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || h.Config == nil {
		return true
	}
	for _, allowed := range h.Config.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
