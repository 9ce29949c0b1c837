package transcript

import (
	"strings"
	"testing"
)

func TestLog_AppendPreservesOrder(t *testing.T) {
	log := NewLog()
	log.Append(Turn{ID: "q1", Kind: KindQuestion, Text: "first"})
	log.Append(Turn{ID: "a1", Kind: KindAnswer, FromStudent: true})
	log.Append(Turn{ID: "f1", Kind: KindFeedback, Text: "good"})

	turns := log.Snapshot()
	if len(turns) != 3 {
		t.Fatalf("Len = %d, want 3", len(turns))
	}
	if turns[0].ID != "q1" || turns[1].ID != "a1" || turns[2].ID != "f1" {
		t.Errorf("order = %s,%s,%s", turns[0].ID, turns[1].ID, turns[2].ID)
	}
}

func TestLog_AppendDropsDuplicateID(t *testing.T) {
	log := NewLog()
	if !log.Append(Turn{ID: "feedback-7", Kind: KindFeedback, Text: "first"}) {
		t.Fatal("first append rejected")
	}
	if log.Append(Turn{ID: "feedback-7", Kind: KindFeedback, Text: "second"}) {
		t.Error("duplicate id+kind was accepted")
	}
	if log.Len() != 1 {
		t.Errorf("Len = %d, want 1", log.Len())
	}
	last, _ := log.Last()
	if last.Text != "first" {
		t.Errorf("Text = %q, want the original turn", last.Text)
	}
}

func TestLog_AppendAllowsSameIDDifferentKind(t *testing.T) {
	log := NewLog()
	log.Append(Turn{ID: "7", Kind: KindQuestion})
	if !log.Append(Turn{ID: "7", Kind: KindChat}) {
		t.Error("same id under a different kind should append")
	}
}

func TestLog_Replace(t *testing.T) {
	log := NewLog()
	log.Append(Turn{ID: "local-1", Kind: KindChat, Text: "hi"})

	log.Replace([]Turn{
		{ID: "1", Kind: KindChat, Text: "hi", FromStudent: true},
		{ID: "2", Kind: KindChat, Text: "hello"},
	})

	turns := log.Snapshot()
	if len(turns) != 2 {
		t.Fatalf("Len = %d, want 2", len(turns))
	}
	if turns[0].ID != "1" || turns[1].ID != "2" {
		t.Errorf("ids = %s,%s, want 1,2", turns[0].ID, turns[1].ID)
	}
}

func TestLog_MarkDelivery(t *testing.T) {
	log := NewLog()
	log.Append(Turn{ID: "local-x", Kind: KindChat, Delivery: Pending})
	log.MarkDelivery("local-x", Failed)

	turns := log.Snapshot()
	if turns[0].Delivery != Failed {
		t.Errorf("Delivery = %v, want Failed", turns[0].Delivery)
	}
}

func TestLog_SnapshotIsACopy(t *testing.T) {
	log := NewLog()
	log.Append(Turn{ID: "q1", Kind: KindQuestion, Text: "original"})

	snap := log.Snapshot()
	snap[0].Text = "mutated"

	turns := log.Snapshot()
	if turns[0].Text != "original" {
		t.Error("mutating a snapshot leaked into the log")
	}
}

func TestLog_Count(t *testing.T) {
	log := NewLog()
	log.Append(Turn{ID: "q1", Kind: KindQuestion})
	log.Append(Turn{ID: "a1", Kind: KindAnswer})
	log.Append(Turn{ID: "q2", Kind: KindQuestion})
	if got := log.Count(KindQuestion); got != 2 {
		t.Errorf("Count(KindQuestion) = %d, want 2", got)
	}
	if got := log.Count(KindFeedback); got != 0 {
		t.Errorf("Count(KindFeedback) = %d, want 0", got)
	}
}

func TestTempID(t *testing.T) {
	a := TempID()
	b := TempID()
	if !strings.HasPrefix(a, "local-") {
		t.Errorf("TempID() = %q, want local- prefix", a)
	}
	if a == b {
		t.Error("TempID() returned the same id twice")
	}
}

func TestKind_String(t *testing.T) {
	if KindFeedback.String() != "feedback" {
		t.Errorf("String() = %q, want feedback", KindFeedback.String())
	}
	if Kind(42).String() != "invalid" {
		t.Errorf("String(42) = %q, want invalid", Kind(42).String())
	}
}
