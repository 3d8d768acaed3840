package domain

// Instruction statuses.
const (
	StatusSuccess = "success"
	StatusWaiting = "waiting"
)

// Asset is a resolved reference image or demonstration video.
type Asset struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Instruction is the payload handed back to the client for one frame. Absent
// guidance is a nil field, never an empty string.
type Instruction struct {
	Status       string  `json:"status"`
	Speech       *string `json:"speech,omitempty"`
	Image        *Asset  `json:"image,omitempty"`
	Video        *Asset  `json:"video,omitempty"`
	RetryAfterMs *int64  `json:"retry_after_ms,omitempty"`
}

// HasGuidance reports whether the instruction carries anything to show or say.
func (i Instruction) HasGuidance() bool {
	return i.Speech != nil || i.Image != nil || i.Video != nil
}
