package activity

import "testing"

func TestState_String(t *testing.T) {
	cases := []struct {
		state State
		want  string
	}{
		{Waiting, "waiting"},
		{Thinking, "thinking"},
		{Evaluating, "evaluating"},
		{Speaking, "speaking"},
		{Happy, "happy"},
		{Sad, "sad"},
		{State(99), "invalid"},
		{State(-1), "invalid"},
	}
	for _, tc := range cases {
		if got := tc.state.String(); got != tc.want {
			t.Errorf("String(%d) = %q, want %q", int(tc.state), got, tc.want)
		}
	}
}

func TestState_ZeroValueIsWaiting(t *testing.T) {
	var s State
	if s != Waiting {
		t.Errorf("zero value = %v, want Waiting", s)
	}
}

func TestState_Valid(t *testing.T) {
	for s := Waiting; s <= Sad; s++ {
		if !s.Valid() {
			t.Errorf("Valid(%v) = false, want true", s)
		}
	}
	if State(6).Valid() {
		t.Error("Valid(6) = true, want false")
	}
}

func TestFromVerdict(t *testing.T) {
	if got := FromVerdict(true); got != Happy {
		t.Errorf("FromVerdict(true) = %v, want Happy", got)
	}
	if got := FromVerdict(false); got != Sad {
		t.Errorf("FromVerdict(false) = %v, want Sad", got)
	}
}
