package coach

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/assembly-coach/internal/domain"
	"github.com/google/uuid"
)

// Recorder persists journal events.
type Recorder interface {
	RecordEvent(ctx context.Context, event domain.Event) error
}

// Service is the single live coaching session shared by every transport.
// It serialises access to the Machine and journals what each frame did.
type Service struct {
	mu        sync.Mutex
	machine   *Machine
	journal   Recorder
	sessionID string
	logger    *slog.Logger
}

// NewService wraps m. journal may be nil.
func NewService(m *Machine, journal Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	sessionID := uuid.NewString()
	return &Service{
		machine:   m,
		journal:   journal,
		sessionID: sessionID,
		logger:    logger.With("session_id", sessionID),
	}
}

// SessionID identifies this process's session in the journal.
func (s *Service) SessionID() string { return s.sessionID }

// ProcessFrame runs one frame through the session.
func (s *Service) ProcessFrame(ctx context.Context, frame domain.Frame, taskID *string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.machine.ProcessFrame(ctx, frame, taskID)
	if err != nil {
		s.logger.Warn("Frame failed", "frame", res.FrameIndex, "step", res.From, "error", err)
		return res, err
	}

	if res.Advanced {
		s.logger.Info("Step advanced", "from", res.From, "step", res.Step, "frame", res.FrameIndex)
	}
	s.record(ctx, res, taskID)
	return res, nil
}

// record journals frames that changed something or said something. Journal
// failures never fail the frame.
func (s *Service) record(ctx context.Context, res Result, taskID *string) {
	if s.journal == nil {
		return
	}
	if !res.Advanced && !res.Reset && res.Hold == 0 && !res.Instruction.HasGuidance() {
		return
	}

	e := domain.Event{
		ID:         uuid.NewString(),
		SessionID:  s.sessionID,
		FrameIndex: res.FrameIndex,
		FromStep:   string(res.From),
		ToStep:     string(res.Step),
		Advanced:   res.Advanced,
		Reset:      res.Reset,
		HoldMillis: res.Hold.Milliseconds(),
		CreatedAt:  time.Now(),
	}
	if taskID != nil {
		e.TaskID = *taskID
	}
	if res.Instruction.Speech != nil {
		e.Speech = *res.Instruction.Speech
	}

	if err := s.journal.RecordEvent(ctx, e); err != nil {
		s.logger.Warn("Failed to journal event", "frame", e.FrameIndex, "step", e.FromStep, "error", err)
	}
}

// Snapshot returns the current session state.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Snapshot()
}

// Steps returns the configured step table.
func (s *Service) Steps() []StepInfo {
	return s.machine.Steps()
}
