package bridge

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	logs "github.com/danmuck/igtlctl/internal/logging"
)

const writeWait = 5 * time.Second

// Handler upgrades viewers to websocket, replays the latest poses and then
// streams hub broadcasts until either side closes. Browser pages from another
// origin are refused.
func Handler(h *Hub) http.HandlerFunc {
	var upgrader websocket.Upgrader
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logs.Warnf("bridge.Handler upgrade remote=%q err=%v", r.RemoteAddr, err)
			return
		}
		defer conn.Close()

		ctx := r.Context()
		ch, ok := h.Subscribe(ctx)
		if !ok {
			return
		}
		logs.Infof("bridge.Handler subscribe remote=%q", r.RemoteAddr)

		for _, msg := range h.Latest() {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				h.Unsubscribe(ctx, ch)
				return
			}
		}

		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-closed:
				h.Unsubscribe(ctx, ch)
				logs.Infof("bridge.Handler closed remote=%q", r.RemoteAddr)
				return
			case msg, ok := <-ch:
				if !ok {
					_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(msg); err != nil {
					h.Unsubscribe(ctx, ch)
					return
				}
			}
		}
	}
}
