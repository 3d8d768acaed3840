package stream

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/assembly-coach/internal/coach"
	"github.com/ashureev/assembly-coach/internal/domain"
	"github.com/ashureev/assembly-coach/internal/identity"
	"github.com/coder/websocket"
)

const (
	// MaxFrameBytes bounds a single binary frame message.
	MaxFrameBytes = 8 << 20

	writeTimeout = 10 * time.Second
)

// Processor runs frames through the coaching session.
type Processor interface {
	ProcessFrame(ctx context.Context, frame domain.Frame, taskID *string) (coach.Result, error)
}

// Handler upgrades /ws/frames requests and serves one frame stream per
// connection.
type Handler struct {
	svc           Processor
	mgr           *Manager
	allowedOrigin string
	isDev         bool
}

// NewHandler creates a new frame stream handler.
func NewHandler(svc Processor, mgr *Manager, allowedOrigin string, isDev bool) *Handler {
	return &Handler{
		svc:           svc,
		mgr:           mgr,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// message is a text control message from the client.
type message struct {
	Type   string `json:"type"`
	TaskID string `json:"task_id,omitempty"`
}

// reply is every message the server sends.
type reply struct {
	Type   string        `json:"type"`
	Result *coach.Result `json:"result,omitempty"`
	TaskID string        `json:"task_id,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	remote := identity.IPFromRequest(r)
	slog.Info("Frame stream request", "ip", remote)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "ip", remote)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "stream ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "ip", remote)
		}
	}()
	ws.SetReadLimit(MaxFrameBytes)

	h.mgr.Register(ws, remote)
	defer h.mgr.Unregister(ws)

	var taskID *string
	if id, ok := identity.TaskIDFromContext(r.Context()); ok {
		taskID = &id
	}

	h.readLoop(r.Context(), ws, taskID)
	slog.Info("Frame stream ended", "ip", remote)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" || origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, taskID *string) {
	for {
		typ, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "status", websocket.CloseStatus(err))
			} else if ctx.Err() == nil {
				slog.Warn("WebSocket read error", "error", err)
			}
			return
		}

		if typ == websocket.MessageBinary {
			if err := h.processFrame(ctx, ws, data, taskID); err != nil {
				return
			}
			continue
		}

		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = h.writeJSON(ctx, ws, reply{Type: "error", Error: "invalid_message"})
			continue
		}

		switch msg.Type {
		case "task":
			id, ok := identity.SanitizeTaskID(msg.TaskID)
			if !ok {
				_ = h.writeJSON(ctx, ws, reply{Type: "error", Error: "invalid_task_id"})
				continue
			}
			taskID = &id
			err = h.writeJSON(ctx, ws, reply{Type: "task", TaskID: id})
		case "ping":
			err = h.writeJSON(ctx, ws, reply{Type: "pong"})
		case "close":
			_ = h.writeJSON(ctx, ws, reply{Type: "closed"})
			return
		default:
			err = h.writeJSON(ctx, ws, reply{Type: "error", Error: "unknown_type"})
		}
		if err != nil {
			slog.Debug("Failed to send control reply", "type", msg.Type, "error", err)
			return
		}
	}
}

// processFrame runs one binary frame and writes the result. Only write
// failures end the stream; frame errors are reported to the client.
func (h *Handler) processFrame(ctx context.Context, ws *websocket.Conn, data []byte, taskID *string) error {
	if len(data) == 0 {
		return h.writeJSON(ctx, ws, reply{Type: "error", Error: "empty_frame"})
	}
	frame := domain.Frame{Data: data, ContentType: http.DetectContentType(data)}

	res, err := h.svc.ProcessFrame(ctx, frame, taskID)
	if err != nil {
		code := "processing_failed"
		if errors.Is(err, coach.ErrDetectorUnavailable) {
			code = "detector_unavailable"
		}
		return h.writeJSON(ctx, ws, reply{Type: "error", Error: code})
	}
	return h.writeJSON(ctx, ws, reply{Type: "result", Result: &res})
}

func (h *Handler) writeJSON(ctx context.Context, ws *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, data)
}
