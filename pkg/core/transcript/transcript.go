// Package transcript holds the ordered turn log for one session.
//
// Turns are immutable once appended; ordering is append-only and monotonic in
// creation order. Study-mode reconciliation may replace the whole sequence
// with the server's canonical one, but never reorders entries in place.
package transcript

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind identifies a turn variant.
type Kind int

const (
	KindQuestion Kind = iota
	KindAnswer
	KindFeedback
	KindChat
)

var kindNames = [...]string{
	KindQuestion: "question",
	KindAnswer:   "answer",
	KindFeedback: "feedback",
	KindChat:     "chat",
}

func (k Kind) String() string {
	if k < KindQuestion || k > KindChat {
		return "invalid"
	}
	return kindNames[k]
}

// Delivery tracks whether a locally-originated turn has been observed in a
// server snapshot yet.
type Delivery int

const (
	// Delivered turns carry a server-issued id or were confirmed by a
	// reconciliation snapshot.
	Delivered Delivery = iota
	// Pending turns were appended optimistically and await confirmation.
	Pending
	// Failed turns could not be delivered; they stay in the transcript and
	// are rendered distinctly.
	Failed
)

// Turn is one immutable transcript entry.
type Turn struct {
	ID          string
	Kind        Kind
	Text        string
	AudioURL    string
	Correct     bool
	Mood        string
	FromStudent bool
	CreatedAt   time.Time
	Delivery    Delivery
}

// TempID generates a client-side id for a turn awaiting a server id.
func TempID() string {
	return "local-" + uuid.NewString()
}

// Log is an append-only turn sequence safe for concurrent readers.
type Log struct {
	mu    sync.Mutex
	turns []Turn
}

// NewLog creates an empty transcript.
func NewLog() *Log {
	return &Log{turns: make([]Turn, 0, 16)}
}

// Append adds a turn at the end. Turns whose id is already present are
// dropped, which keeps answer and feedback ids unique across rapid
// double-invocation. It reports whether the turn was added.
func (l *Log) Append(t Turn) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t.ID != "" {
		for _, existing := range l.turns {
			if existing.ID == t.ID && existing.Kind == t.Kind {
				return false
			}
		}
	}
	l.turns = append(l.turns, t)
	return true
}

// Replace swaps the whole sequence for the server's canonical one.
func (l *Log) Replace(turns []Turn) {
	next := make([]Turn, len(turns))
	copy(next, turns)
	l.mu.Lock()
	l.turns = next
	l.mu.Unlock()
}

// MarkDelivery updates the delivery status of the turn with the given id.
func (l *Log) MarkDelivery(id string, d Delivery) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.turns {
		if l.turns[i].ID == id {
			l.turns[i].Delivery = d
			return
		}
	}
}

// Snapshot returns a copy of the current sequence.
func (l *Log) Snapshot() []Turn {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

// Len returns the number of turns.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.turns)
}

// Count returns the number of turns of one kind.
func (l *Log) Count(k Kind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, t := range l.turns {
		if t.Kind == k {
			n++
		}
	}
	return n
}

// Last returns the most recent turn, if any.
func (l *Log) Last() (Turn, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.turns) == 0 {
		return Turn{}, false
	}
	return l.turns[len(l.turns)-1], true
}
