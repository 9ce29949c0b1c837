// Package activity defines the mood/activity state consumed by the teacher
// visualization.
package activity

// State is the closed set of visualization states. The zero value is Waiting.
type State int

const (
	Waiting State = iota
	Thinking
	Evaluating
	Speaking
	Happy
	Sad
)

var names = [...]string{
	Waiting:    "waiting",
	Thinking:   "thinking",
	Evaluating: "evaluating",
	Speaking:   "speaking",
	Happy:      "happy",
	Sad:        "sad",
}

func (s State) String() string {
	if !s.Valid() {
		return "invalid"
	}
	return names[s]
}

// Valid reports whether s is a member of the closed set.
func (s State) Valid() bool {
	return s >= Waiting && s <= Sad
}

// FromVerdict maps a grading verdict to the post-feedback mood.
func FromVerdict(correct bool) State {
	if correct {
		return Happy
	}
	return Sad
}
