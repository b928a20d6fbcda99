// Package feed streams order changes to admin dashboards over websockets.
package feed

import (
	"context"
	"net/http"
	"time"

	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/orders-service/internal/domain"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/docstore"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = pongWait * 9 / 10
	sendBuffer   = 64
)

type Watcher interface {
	Watch(ctx context.Context, onChange func(domain.Order)) (*docstore.Subscription, error)
}

// Update is one message on the stream.
type Update struct {
	Type  string       `json:"type"`
	Order domain.Order `json:"order"`
}

type Feed struct {
	watcher  Watcher
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewFeed(watcher Watcher, log zerolog.Logger) *Feed {
	return &Feed{
		watcher: watcher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The gateway is the only public origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

// ServeHTTP upgrades the request and pushes every order write until the
// client disconnects. Slow clients lose updates rather than block the store.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	send := make(chan domain.Order, sendBuffer)
	sub, err := f.watcher.Watch(ctx, func(o domain.Order) {
		select {
		case send <- o:
		default:
			f.log.Warn().Str("order_id", o.ID).Msg("feed client too slow, update dropped")
		}
	})
	if err != nil {
		f.log.Error().Err(err).Msg("order watch failed")
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "watch unavailable"),
			time.Now().Add(writeWait))
		return
	}
	defer sub.Close()

	go f.readPump(conn, cancel)
	f.writePump(ctx, conn, sub, send)
}

// readPump only handles control frames; it cancels the stream once the
// client goes away.
func (f *Feed) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (f *Feed) writePump(ctx context.Context, conn *websocket.Conn, sub *docstore.Subscription, send <-chan domain.Order) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done():
			if err := sub.Err(); err != nil {
				f.log.Error().Err(err).Msg("order watch stopped")
			}
			return
		case o := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(Update{Type: "order", Order: o}); err != nil {
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
