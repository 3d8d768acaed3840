// Package stability implements the sliding-window debounce buffer used to
// decide when a detection has settled.
package stability

import (
	"fmt"
	"strings"

	"github.com/ashureev/assembly-coach/internal/domain"
	"github.com/ashureev/assembly-coach/internal/geometry"
	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultCapacity is the number of consecutive frames a slot must hold.
	DefaultCapacity = 5
	// DefaultStableThreshold bounds the extent distance between neighbours.
	DefaultStableThreshold = 20.0
)

// ClassVote selects how AveragedClass picks a label.
type ClassVote string

const (
	// VoteFirstSeen deduplicates labels before counting, so every label counts
	// once and the first distinct label observed wins.
	VoteFirstSeen ClassVote = "first_seen"
	// VoteMajority counts every buffered detection; ties go to the label seen
	// first.
	VoteMajority ClassVote = "majority"
)

// ParseClassVote parses a ClassVote name. The empty string maps to
// VoteFirstSeen.
func ParseClassVote(s string) (ClassVote, error) {
	switch ClassVote(strings.ToLower(strings.TrimSpace(s))) {
	case "", VoteFirstSeen:
		return VoteFirstSeen, nil
	case VoteMajority:
		return VoteMajority, nil
	default:
		return "", fmt.Errorf("unknown class vote %q", s)
	}
}

// Buffer is a fixed-capacity window of recent detections for one tracking
// slot. When full, adding overwrites the oldest entry. Not safe for
// concurrent use; a Buffer belongs to exactly one step.
type Buffer struct {
	items     []domain.DetectedObject
	size      int
	start     int // index of the oldest entry
	n         int
	grace     int
	threshold float64
	vote      ClassVote
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithStableThreshold sets the extent-distance threshold (default 20).
func WithStableThreshold(t float64) Option {
	return func(b *Buffer) {
		if t > 0 {
			b.threshold = t
		}
	}
}

// WithClassVote sets the AveragedClass strategy (default VoteFirstSeen).
func WithClassVote(v ClassVote) Option {
	return func(b *Buffer) {
		if v != "" {
			b.vote = v
		}
	}
}

// New creates a buffer holding up to capacity detections.
func New(capacity int, opts ...Option) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	b := &Buffer{
		items:     make([]domain.DetectedObject, capacity),
		size:      capacity,
		threshold: DefaultStableThreshold,
		vote:      VoteFirstSeen,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Add appends obj, evicting the oldest entry when full, and resets the grace
// counter.
func (b *Buffer) Add(obj domain.DetectedObject) {
	if b.n < b.size {
		b.items[(b.start+b.n)%b.size] = obj
		b.n++
	} else {
		b.items[b.start] = obj
		b.start = (b.start + 1) % b.size
	}
	b.grace = 0
}

// IsStable reports whether the buffer is full and every adjacent pair, in
// window order, has an extent distance below the threshold.
func (b *Buffer) IsStable() bool {
	if b.n != b.size {
		return false
	}
	prev := b.at(0)
	for i := 1; i < b.n; i++ {
		cur := b.at(i)
		if geometry.ExtentDistance(prev.Box, cur.Box) >= b.threshold {
			return false
		}
		prev = cur
	}
	return true
}

// AddAndCheckStable is Add followed by IsStable.
func (b *Buffer) AddAndCheckStable(obj domain.DetectedObject) bool {
	b.Add(obj)
	return b.IsStable()
}

// StagedClear records one missed frame. After more than Capacity consecutive
// misses the buffer is emptied.
func (b *Buffer) StagedClear() {
	b.grace++
	if b.grace > b.size {
		b.Clear()
	}
}

// Clear empties the buffer and resets the grace counter.
func (b *Buffer) Clear() {
	b.start = 0
	b.n = 0
	b.grace = 0
}

// AveragedBBox returns the elementwise mean of the buffered boxes. ok is
// false when the buffer is empty.
func (b *Buffer) AveragedBBox() (box domain.BBox, ok bool) {
	if b.n == 0 {
		return domain.BBox{}, false
	}
	column := make([]float64, b.n)
	for k := range box {
		for i := 0; i < b.n; i++ {
			column[i] = b.at(i).Box[k]
		}
		box[k] = stat.Mean(column, nil)
	}
	return box, true
}

// AveragedClass returns the label chosen by the buffer's ClassVote. ok is
// false when the buffer is empty.
func (b *Buffer) AveragedClass() (label string, ok bool) {
	if b.n == 0 {
		return "", false
	}

	var distinct []string
	counts := make(map[string]int)
	for i := 0; i < b.n; i++ {
		name := b.at(i).ClassName
		if _, seen := counts[name]; !seen {
			distinct = append(distinct, name)
		}
		counts[name]++
	}

	if b.vote != VoteMajority {
		return distinct[0], true
	}

	best := distinct[0]
	for _, name := range distinct[1:] {
		if counts[name] > counts[best] {
			best = name
		}
	}
	return best, true
}

// Len returns the number of buffered detections.
func (b *Buffer) Len() int { return b.n }

// Capacity returns the window size.
func (b *Buffer) Capacity() int { return b.size }

// Grace returns the number of consecutive staged clears since the last Add.
func (b *Buffer) Grace() int { return b.grace }

// Snapshot returns the buffered detections, oldest first.
func (b *Buffer) Snapshot() []domain.DetectedObject {
	out := make([]domain.DetectedObject, b.n)
	for i := range out {
		out[i] = b.at(i)
	}
	return out
}

func (b *Buffer) at(i int) domain.DetectedObject {
	return b.items[(b.start+i)%b.size]
}
