package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/lookoutar/lookout/internal/adapters/nats"
	"github.com/lookoutar/lookout/internal/core/domain"
	"github.com/lookoutar/lookout/internal/pkg/metrics"
)

// WebSocketHandler returns a handler for the per-session sensor/frame channel.
// The client streams raw sensor readings as JSON text frames:
//
//	{"heading":123.4,"pitch":-2.1,"roll":0.3,"location":{"lat":48.8584,"lon":2.2945}}
//
// and receives composed overlay frames relayed from NATS as they are
// published by the session's frame driver.
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		sessionID := c.Params("id")
		if _, err := deps.Sessions.Get(sessionID); err != nil {
			_ = c.WriteMessage(websocket.TextMessage, []byte(`{"error":"unknown session"}`))
			return
		}

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()
		slog.Info("ws client connected", "session", sessionID, "remote", c.RemoteAddr().String())

		// Writes come from the NATS callback and the ping ticker.
		var mu sync.Mutex
		writeText := func(data []byte) error {
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		var sub *nats.Subscription
		if deps.NATS != nil {
			subject := natsadapter.FrameSubjectPrefix + sessionID
			s, err := deps.NATS.Subscribe(subject, func(msg *nats.Msg) {
				_ = writeText(msg.Data)
			})
			if err != nil {
				slog.Warn("ws frame subscribe failed", "session", sessionID, "error", err)
			} else {
				sub = s
				defer func() { _ = sub.Unsubscribe() }()
			}
		}

		// Keep-alive ping
		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		// Inbound sensor readings until the client goes away.
		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}
			var reading domain.SensorReading
			if err := json.Unmarshal(msg, &reading); err != nil {
				_ = writeText([]byte(`{"error":"invalid JSON"}`))
				continue
			}
			if err := deps.Sessions.UpdateSensors(sessionID, reading); err != nil {
				out, _ := json.Marshal(map[string]string{"error": err.Error()})
				_ = writeText(out)
			}
		}

		slog.Info("ws client disconnected", "session", sessionID)
	}
}
