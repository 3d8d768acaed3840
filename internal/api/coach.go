package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/ashureev/assembly-coach/internal/assets"
	"github.com/ashureev/assembly-coach/internal/coach"
	"github.com/ashureev/assembly-coach/internal/domain"
	"github.com/ashureev/assembly-coach/internal/identity"
	"github.com/go-chi/chi/v5"
)

const (
	// MaxFrameBytes bounds a single uploaded camera frame.
	MaxFrameBytes = 8 << 20

	defaultEventLimit = 50
	maxEventLimit     = 500
	frameFormField    = "frame"
)

var errEmptyFrame = errors.New("empty frame")

// CoachHandler serves the frame ingestion and session inspection endpoints.
type CoachHandler struct {
	*Handler
	imageDir string
}

// NewCoachHandler creates a coach handler. Reference images are served from
// imageDir when it is non-empty.
func NewCoachHandler(base *Handler, imageDir string) *CoachHandler {
	return &CoachHandler{Handler: base, imageDir: imageDir}
}

// RegisterRoutes registers coach routes.
func (h *CoachHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.With(identity.Middleware).Post("/frame", h.PostFrame)
		r.Get("/session", h.GetSession)
		r.Get("/steps", h.GetSteps)
		r.Get("/events", h.ListEvents)
	})
	if h.imageDir != "" {
		r.Handle(assets.ImageRoute+"*", http.StripPrefix(assets.ImageRoute, http.FileServer(http.Dir(h.imageDir))))
	}
}

// PostFrame runs one camera frame through the session and returns the
// resulting instruction and detections.
func (h *CoachHandler) PostFrame(w http.ResponseWriter, r *http.Request) {
	frame, err := readFrame(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, "frame too large")
			return
		}
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.svc.ProcessFrame(r.Context(), frame, identity.TaskIDPtr(r.Context()))
	if err != nil {
		if errors.Is(err, coach.ErrDetectorUnavailable) {
			Error(w, http.StatusBadGateway, "detector unavailable")
			return
		}
		slog.Error("Failed to process frame", "error", err, "remote_ip", identity.IPFromRequest(r))
		Error(w, http.StatusInternalServerError, "failed to process frame")
		return
	}

	if res.Instruction.RetryAfterMs != nil {
		secs := (*res.Instruction.RetryAfterMs + 999) / 1000
		w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
	}
	JSON(w, http.StatusOK, res)
}

// GetSession returns the live session state.
func (h *CoachHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"session_id": h.svc.SessionID(),
		"state":      h.svc.Snapshot(),
	})
}

// GetSteps returns the step table.
func (h *CoachHandler) GetSteps(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.svc.Steps())
}

// ListEvents returns recent journal events, newest first. ?session=current
// restricts the list to this process's session.
func (h *CoachHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxEventLimit)
	}

	session := r.URL.Query().Get("session")
	if session == "current" {
		session = h.svc.SessionID()
	}

	events, err := h.repo.ListEvents(r.Context(), session, limit)
	if err != nil {
		slog.Error("Failed to list events", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []domain.Event{}
	}
	JSON(w, http.StatusOK, events)
}

// readFrame accepts either a raw image body or a multipart form with a
// "frame" file field.
func readFrame(w http.ResponseWriter, r *http.Request) (domain.Frame, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxFrameBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		file, header, err := r.FormFile(frameFormField)
		if err != nil {
			return domain.Frame{}, fmt.Errorf("read %q form field: %w", frameFormField, err)
		}
		defer func() { _ = file.Close() }()

		data, err := io.ReadAll(file)
		if err != nil {
			return domain.Frame{}, err
		}
		if len(data) == 0 {
			return domain.Frame{}, errEmptyFrame
		}
		return domain.Frame{Data: data, ContentType: header.Header.Get("Content-Type")}, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return domain.Frame{}, err
	}
	if len(data) == 0 {
		return domain.Frame{}, errEmptyFrame
	}
	if mediaType == "" || strings.HasPrefix(mediaType, "application/octet-stream") {
		mediaType = http.DetectContentType(data)
	}
	return domain.Frame{Data: data, ContentType: mediaType}, nil
}
