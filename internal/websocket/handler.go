package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"trade-intel-be/internal/pkg/logger"
	"trade-intel-be/pkg/chatstream"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// StreamHandler serves a chat job's event stream over a websocket, as an
// alternative to the SSE endpoint. One connection carries exactly one job.
type StreamHandler struct {
	orchestrator *chatstream.Orchestrator
	log          logger.ILogger
}

func NewStreamHandler(orchestrator *chatstream.Orchestrator, log logger.ILogger) *StreamHandler {
	return &StreamHandler{
		orchestrator: orchestrator,
		log:          log,
	}
}

// Handle runs inside the fiber websocket upgrade. The stream token rides in
// the path, mirroring the SSE route; it is burned on admission either way.
func (h *StreamHandler) Handle(c *websocket.Conn) {
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job, err := h.orchestrator.Admit(ctx, c.Params("token"))
	if err != nil {
		h.closeWith(c, websocket.ClosePolicyViolation, "invalid or expired stream token")
		return
	}

	// Reads only serve pong bookkeeping and disconnect detection.
	c.SetReadDeadline(time.Now().Add(pongWait))
	c.SetPongHandler(func(string) error {
		c.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var writeMu sync.Mutex
	write := func(messageType int, payload []byte) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		c.SetWriteDeadline(time.Now().Add(writeWait))
		return c.WriteMessage(messageType, payload)
	}

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := write(websocket.PingMessage, nil); err != nil {
					cancel()
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	sink := func(ev chatstream.StreamEvent) error {
		payload, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		return write(websocket.TextMessage, payload)
	}

	if err := h.orchestrator.Stream(ctx, job, sink); err != nil {
		if errors.Is(err, chatstream.ErrPoolSaturated) {
			h.closeWith(c, websocket.CloseTryAgainLater, "too many concurrent streams")
			return
		}
		h.log.Warn("websocket", "stream ended with error", map[string]interface{}{
			"job_id": job.Id.String(),
			"error":  err.Error(),
		})
		return
	}

	write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *StreamHandler) closeWith(c *websocket.Conn, code int, reason string) {
	c.SetWriteDeadline(time.Now().Add(writeWait))
	c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
}
