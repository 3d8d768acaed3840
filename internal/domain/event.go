package domain

import "time"

// Event is one journal row describing what a dispatched frame did to the
// session. Events are an audit trail only; the session is never rebuilt from
// them.
type Event struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	TaskID     string    `json:"task_id,omitempty"`
	FrameIndex int       `json:"frame"`
	FromStep   string    `json:"from_step"`
	ToStep     string    `json:"to_step"`
	Speech     string    `json:"speech,omitempty"`
	Advanced   bool      `json:"advanced"`
	Reset      bool      `json:"reset"`
	HoldMillis int64     `json:"hold_ms,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
