package coach

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/assembly-coach/internal/assets"
	"github.com/ashureev/assembly-coach/internal/detector"
	"github.com/ashureev/assembly-coach/internal/domain"
	"github.com/ashureev/assembly-coach/internal/pacing"
	"github.com/ashureev/assembly-coach/internal/stability"
)

const completeSpeech = "Great job! We've finished assembling the wheels and gear train!"

// Config tunes a Machine.
type Config struct {
	// InitialStep is where a new session starts. Defaults to StepStart.
	InitialStep StepID

	BufferCapacity   int
	StableThreshold  float64
	CompareThreshold float64
	ClassVote        stability.ClassVote

	// TimeUnit is the length of one pacing unit.
	TimeUnit time.Duration

	// IncludeLayoutSteps routes start through the wheel layout steps.
	IncludeLayoutSteps bool
}

// DefaultConfig returns the settings the coach ships with.
func DefaultConfig() Config {
	return Config{
		InitialStep:      StepStart,
		BufferCapacity:   stability.DefaultCapacity,
		StableThreshold:  stability.DefaultStableThreshold,
		CompareThreshold: 15,
		ClassVote:        stability.VoteFirstSeen,
		TimeUnit:         time.Second,
	}
}

// Result is everything a single ProcessFrame call produced.
type Result struct {
	Detections  []domain.DetectedObject `json:"detections"`
	Instruction domain.Instruction      `json:"instruction"`
	// From is the step the frame was dispatched to; Step is the current step
	// afterwards.
	From       StepID        `json:"from"`
	Step       StepID        `json:"step"`
	FrameIndex int           `json:"frame"`
	Advanced   bool          `json:"advanced"`
	Reset      bool          `json:"reset"`
	Hold       time.Duration `json:"-"`
}

// Snapshot is a read-only view of the session state.
type Snapshot struct {
	Step            StepID   `json:"step"`
	TaskID          *string  `json:"task_id,omitempty"`
	Introduced      []StepID `json:"introduced"`
	FrameCount      int      `json:"frame_count"`
	HoldRemainingMs int64    `json:"hold_remaining_ms"`
}

// Machine is the session state machine. It is not safe for concurrent use;
// Service serialises access to it.
type Machine struct {
	cfg      Config
	det      detector.Detector
	assets   assets.Resolver
	clock    pacing.Clock
	logger   *slog.Logger
	handlers map[StepID]Handler

	step       StepID
	taskID     string
	taskSeen   bool
	introduced map[StepID]bool
	hold       pacing.Hold
	frameCount int
}

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// WithClock overrides the clock used for holds.
func WithClock(c pacing.Clock) MachineOption {
	return func(m *Machine) { m.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) MachineOption {
	return func(m *Machine) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewMachine creates a session positioned at cfg.InitialStep.
func NewMachine(cfg Config, det detector.Detector, res assets.Resolver, opts ...MachineOption) (*Machine, error) {
	def := DefaultConfig()
	if cfg.InitialStep == "" {
		cfg.InitialStep = def.InitialStep
	}
	if _, ok := lookup(cfg.InitialStep); !ok {
		return nil, fmt.Errorf("initial step %q: %w", cfg.InitialStep, ErrUnknownStep)
	}
	if cfg.BufferCapacity <= 0 {
		cfg.BufferCapacity = def.BufferCapacity
	}
	if cfg.StableThreshold <= 0 {
		cfg.StableThreshold = def.StableThreshold
	}
	if cfg.CompareThreshold <= 0 {
		cfg.CompareThreshold = def.CompareThreshold
	}
	if cfg.ClassVote == "" {
		cfg.ClassVote = def.ClassVote
	}
	if cfg.TimeUnit <= 0 {
		cfg.TimeUnit = def.TimeUnit
	}

	m := &Machine{
		cfg:        cfg,
		det:        det,
		assets:     res,
		clock:      pacing.RealClock{},
		logger:     slog.Default(),
		step:       cfg.InitialStep,
		introduced: make(map[StepID]bool),
	}
	for _, opt := range opts {
		opt(m)
	}

	newBuffer := func() *stability.Buffer {
		return stability.New(cfg.BufferCapacity,
			stability.WithStableThreshold(cfg.StableThreshold),
			stability.WithClassVote(cfg.ClassVote),
		)
	}
	m.handlers = newHandlers(cfg, newBuffer)
	return m, nil
}

func newHandlers(cfg Config, newBuffer bufferFactory) map[StepID]Handler {
	combine := func() Handler {
		return &videoGateStep{
			speech: "Well done. Now assemble the tires and rims as shown in the video.",
			video:  "tire-rim-combine.mp4",
		}
	}
	return map[StepID]Handler{
		StepLayoutWheelsRims1:   newLayoutStep(1, cfg.CompareThreshold, newBuffer),
		StepCombineWheelRim1:    combine(),
		StepLayoutWheelsRims2:   newLayoutStep(2, cfg.CompareThreshold, newBuffer),
		StepCombineWheelRim2:    combine(),
		StepAxleIntoWheel1:      newAxleIntoWheelStep(1, newBuffer),
		StepAcquireBlackFrame:   newBlackFrameStep(newBuffer),
		StepInsertGreenWasher1:  newGreenWasherStep(1, newBuffer),
		StepInsertGoldWasher1:   newGoldWasherStep(1, newBuffer),
		StepInsertPinkGearFront: newPinkGearFrontStep(newBuffer),
		StepInsertAxle1:         newAxleStep(1, newBuffer),
		StepInsertGreenWasher2:  newGreenWasherStep(2, newBuffer),
		StepInsertGoldWasher2:   newGoldWasherStep(2, newBuffer),
		StepPressWheel1:         newPressWheelStep(1, newBuffer),
		StepInsertGreenWasher3:  newGreenWasherStep(3, newBuffer),
		StepInsertGoldWasher3:   newGoldWasherStep(3, newBuffer),
		StepInsertBrownGear:     newBrownGearStep(newBuffer),
		StepInsertPinkGearBack:  newPinkGearBackStep(newBuffer),
		StepInsertAxle2:         newAxleStep(2, newBuffer),
		StepInsertGreenWasher4:  newGreenWasherStep(4, newBuffer),
		StepInsertGoldWasher4:   newGoldWasherStep(4, newBuffer),
		StepPressWheel2:         newPressWheelStep(2, newBuffer),
		StepAddGearAxle:         newGearAxleStep(newBuffer),
		StepFinalCheck:          newFinalCheckStep(cfg.CompareThreshold, newBuffer),
	}
}

// Step returns the current step.
func (m *Machine) Step() StepID { return m.step }

// ProcessFrame runs one frame through the session.
//
// A non-nil taskID that differs from the last one seen restarts the session
// from StepStart with every step un-introduced. While a hold is pending the
// call returns a waiting instruction without touching the detector.
func (m *Machine) ProcessFrame(ctx context.Context, frame domain.Frame, taskID *string) (Result, error) {
	var res Result
	if taskID != nil {
		switch {
		case !m.taskSeen:
			m.taskID, m.taskSeen = *taskID, true
		case m.taskID != *taskID:
			m.logger.Info("Task changed, restarting session", "from_task", m.taskID, "task_id", *taskID, "step", m.step)
			m.taskID = *taskID
			m.restart()
			res.Reset = true
		}
	}

	now := m.clock.Now()
	if !m.hold.Ready(now) {
		remaining := m.hold.Remaining(now).Milliseconds()
		res.Instruction = domain.Instruction{Status: domain.StatusWaiting, RetryAfterMs: &remaining}
		res.From, res.Step = m.step, m.step
		res.FrameIndex = m.frameCount
		return res, nil
	}

	m.frameCount++
	res.FrameIndex = m.frameCount
	res.From = m.step

	fc := &frameContext{frame: frame, index: m.frameCount, det: m.det}
	out, err := m.dispatch(ctx, fc)
	if err != nil {
		return res, fmt.Errorf("step %s frame %d: %w", m.step, m.frameCount, err)
	}

	if out.Advance {
		m.step = successor(m.step, m.cfg.IncludeLayoutSteps)
		res.Advanced = true
	}
	if out.HoldUnits > 0 {
		// Measured from the end of dispatch so detector latency is not
		// deducted from the hold.
		res.Hold = time.Duration(out.HoldUnits) * m.cfg.TimeUnit
		m.hold.Arm(m.clock.Now(), res.Hold)
	}
	res.Step = m.step
	res.Instruction = m.instruction(out)

	res.Detections, err = m.det.AllDetections(ctx, frame, fc.index)
	if err != nil {
		return res, fmt.Errorf("%w: all detections frame %d: %w", ErrDetectorUnavailable, fc.index, err)
	}

	m.logger.Debug("Frame processed",
		"frame", res.FrameIndex,
		"from", res.From,
		"step", res.Step,
		"advanced", res.Advanced,
		"detections", len(res.Detections),
	)
	return res, nil
}

func (m *Machine) dispatch(ctx context.Context, fc *frameContext) (Outcome, error) {
	switch m.step {
	case StepStart:
		return Outcome{Advance: true}, nil
	case StepComplete:
		if m.introduced[StepComplete] {
			return Outcome{}, nil
		}
		m.introduced[StepComplete] = true
		return Outcome{Speech: completeSpeech, Advance: true}, nil
	case StepNothing:
		clear(m.introduced)
		return Outcome{Advance: true, HoldUnits: restartHoldUnits}, nil
	}

	h, ok := m.handlers[m.step]
	if !ok {
		// Only reachable if the table and handler set disagree.
		return Outcome{}, fmt.Errorf("no handler for step %s: %w", m.step, ErrUnknownStep)
	}
	if !m.introduced[m.step] {
		m.introduced[m.step] = true
		h.Reset()
		return h.Introduction(), nil
	}
	out, err := h.Verify(ctx, fc)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %w", ErrDetectorUnavailable, err)
	}
	return out, nil
}

func (m *Machine) instruction(out Outcome) domain.Instruction {
	in := domain.Instruction{Status: domain.StatusSuccess}
	if out.Speech != "" {
		speech := out.Speech
		in.Speech = &speech
	}
	if out.Image != "" {
		img := m.assets.Image(out.Image)
		in.Image = &img
	}
	if out.Video != "" {
		vid := m.assets.Video(out.Video)
		in.Video = &vid
	}
	return in
}

// restart returns to StepStart and forgets every introduction. A pending hold
// is left armed.
func (m *Machine) restart() {
	m.step = StepStart
	clear(m.introduced)
	for _, h := range m.handlers {
		h.Reset()
	}
}

// Snapshot returns the current session state.
func (m *Machine) Snapshot() Snapshot {
	s := Snapshot{
		Step:            m.step,
		Introduced:      make([]StepID, 0, len(m.introduced)),
		FrameCount:      m.frameCount,
		HoldRemainingMs: m.hold.Remaining(m.clock.Now()).Milliseconds(),
	}
	if m.taskSeen {
		id := m.taskID
		s.TaskID = &id
	}
	for _, t := range transitions {
		if m.introduced[t.ID] {
			s.Introduced = append(s.Introduced, t.ID)
		}
	}
	return s
}

// Steps returns the step table as configured for this machine.
func (m *Machine) Steps() []StepInfo {
	return Steps(m.cfg.IncludeLayoutSteps)
}
