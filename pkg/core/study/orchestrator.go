// Package study runs the free-form chat protocol: send a message, receive
// the teacher's reply, and reconcile the transcript against the server-held
// history in the background.
package study

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prepod-ai/tutor/pkg/core"
	"github.com/prepod-ai/tutor/pkg/core/activity"
	"github.com/prepod-ai/tutor/pkg/core/schedule"
	"github.com/prepod-ai/tutor/pkg/core/transcript"
	"github.com/prepod-ai/tutor/pkg/core/types"
)

// API is the study surface of the request pipeline.
type API interface {
	StartStudy(ctx context.Context, req *types.StudyStartRequest) (*types.StudyResponse, error)
	SendStudyMessage(ctx context.Context, req *types.StudyMessageRequest) (*types.StudyResponse, error)
	StudyMessages(ctx context.Context, sessionID int64) ([]types.StudyMessageResponse, error)
}

// Events are optional notifications to the UI layer.
type Events struct {
	OnActivity   func(activity.State)
	OnTranscript func([]transcript.Turn)
	OnError      func(error)
}

const (
	defaultSpeakWindow       = 2 * time.Second
	defaultReconcileInterval = 2 * time.Second
)

// Orchestrator owns one study session: its transcript, activity state, and
// the reconciliation poll.
type Orchestrator struct {
	api    API
	logger *slog.Logger
	events Events
	sched  *schedule.Queue

	speakWindow       time.Duration
	reconcileInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once

	mu        sync.Mutex
	starting  bool
	started   bool
	sessionID int64
	activity  activity.State

	log *transcript.Log
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithEvents sets UI notification callbacks.
func WithEvents(e Events) Option {
	return func(o *Orchestrator) { o.events = e }
}

// WithSpeakWindow overrides the fixed speaking display window.
func WithSpeakWindow(d time.Duration) Option {
	return func(o *Orchestrator) { o.speakWindow = d }
}

// WithReconcileInterval overrides the reconciliation poll cadence.
func WithReconcileInterval(d time.Duration) Option {
	return func(o *Orchestrator) { o.reconcileInterval = d }
}

// WithScheduleQueue substitutes the pacing task queue.
func WithScheduleQueue(q *schedule.Queue) Option {
	return func(o *Orchestrator) { o.sched = q }
}

// New creates an idle orchestrator.
func New(api API, opts ...Option) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		api:               api,
		logger:            slog.Default(),
		sched:             schedule.NewQueue(),
		speakWindow:       defaultSpeakWindow,
		reconcileInterval: defaultReconcileInterval,
		ctx:               ctx,
		cancel:            cancel,
		log:               transcript.NewLog(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Activity returns the current visualization state.
func (o *Orchestrator) Activity() activity.State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.activity
}

// SessionID returns the server-assigned session id, zero before Start.
func (o *Orchestrator) SessionID() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sessionID
}

// Transcript returns a copy of the turn log.
func (o *Orchestrator) Transcript() []transcript.Turn {
	return o.log.Snapshot()
}

// Start creates the session and seeds the transcript with the server's
// welcome message. On failure no session exists.
func (o *Orchestrator) Start(ctx context.Context, req *types.StudyStartRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	req.Materials = types.TrimMaterials(req.Materials)

	o.mu.Lock()
	if o.starting || o.started {
		o.mu.Unlock()
		return core.NewValidationError("study session already started")
	}
	o.starting = true
	o.mu.Unlock()
	o.setActivity(activity.Thinking)

	resp, err := o.api.StartStudy(ctx, req)
	if err != nil {
		o.mu.Lock()
		o.starting = false
		o.mu.Unlock()
		o.setActivity(activity.Waiting)
		return core.NewNetworkError("failed to start study session", err)
	}

	o.mu.Lock()
	o.starting = false
	o.started = true
	o.sessionID = resp.StudySessionID
	o.mu.Unlock()

	o.appendTurn(transcript.Turn{
		ID:        "welcome",
		Kind:      transcript.KindChat,
		Text:      resp.TeacherResponse,
		CreatedAt: time.Now(),
	})
	o.speakThenWait()
	go o.reconcileLoop()
	return nil
}

// Send appends the student's message optimistically, before any network
// round trip, then awaits the teacher's reply. A failed send keeps the
// optimistic message but marks it failed; delivery and reply are independent.
func (o *Orchestrator) Send(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return core.NewValidationError("message is empty")
	}

	o.mu.Lock()
	if !o.started {
		o.mu.Unlock()
		return core.NewValidationError("study session not started")
	}
	sessionID := o.sessionID
	o.mu.Unlock()

	tempID := transcript.TempID()
	o.appendTurn(transcript.Turn{
		ID:          tempID,
		Kind:        transcript.KindChat,
		Text:        text,
		FromStudent: true,
		CreatedAt:   time.Now(),
		Delivery:    transcript.Pending,
	})
	o.setActivity(activity.Thinking)

	go func() {
		resp, err := o.api.SendStudyMessage(o.ctx, &types.StudyMessageRequest{
			StudySessionID: sessionID,
			Message:        text,
		})
		if err != nil {
			o.log.MarkDelivery(tempID, transcript.Failed)
			o.notifyTranscript()
			o.setActivity(activity.Waiting)
			o.reportError(core.NewNetworkError("failed to send message", err))
			return
		}
		o.appendTurn(transcript.Turn{
			ID:        transcript.TempID(),
			Kind:      transcript.KindChat,
			Text:      resp.TeacherResponse,
			CreatedAt: time.Now(),
		})
		o.speakThenWait()
	}()
	return nil
}

// Close tears down the reconciliation poll and pacing timers.
func (o *Orchestrator) Close() {
	o.once.Do(func() {
		o.cancel()
		o.sched.Stop()
	})
}

func (o *Orchestrator) reconcileLoop() {
	ticker := time.NewTicker(o.reconcileInterval)
	defer ticker.Stop()
	for {
		select {
		case <-o.ctx.Done():
			return
		case <-ticker.C:
		}

		o.mu.Lock()
		sessionID := o.sessionID
		o.mu.Unlock()

		msgs, err := o.api.StudyMessages(o.ctx, sessionID)
		if err != nil {
			// Transient poll failure; the next tick retries.
			o.logger.Debug("reconciliation poll failed", "session_id", sessionID, "error", err)
			continue
		}
		o.applySnapshot(msgs)
	}
}

// applySnapshot replaces the local transcript wholesale with the server's
// canonical sequence. Locally-originated turns that the server has not
// echoed yet (pending or failed) are carried over at the tail so they stay
// visible until confirmed or retried.
func (o *Orchestrator) applySnapshot(msgs []types.StudyMessageResponse) {
	canonical := Reconcile(o.log.Snapshot(), msgs)
	o.log.Replace(canonical)
	o.notifyTranscript()
}

// Reconcile merges a server snapshot with the current local transcript. It
// is a pure function: applying the same snapshot twice yields the same
// result.
func Reconcile(local []transcript.Turn, msgs []types.StudyMessageResponse) []transcript.Turn {
	out := make([]transcript.Turn, 0, len(msgs)+2)
	// Each echoed student message confirms at most one local turn, so two
	// unconfirmed sends with the same text are not collapsed together.
	echoes := make(map[string]int, len(msgs))
	for _, m := range msgs {
		t := transcript.Turn{
			ID:          strconv.FormatInt(m.MessageID, 10),
			Kind:        transcript.KindChat,
			Text:        m.MessageText,
			FromStudent: m.IsFromStudent,
			CreatedAt:   parseServerTime(m.CreatedAt),
		}
		if m.IsFromStudent {
			echoes[m.MessageText]++
		}
		out = append(out, t)
	}
	for _, t := range local {
		if t.Delivery == transcript.Delivered {
			continue
		}
		if t.FromStudent {
			if n := echoes[t.Text]; n > 0 {
				// Confirmed by the snapshot under its server id.
				echoes[t.Text] = n - 1
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

func parseServerTime(raw string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	return time.Time{}
}

func (o *Orchestrator) speakThenWait() {
	o.setActivity(activity.Speaking)
	o.sched.After(o.speakWindow, func() {
		o.swapActivity(activity.Speaking, activity.Waiting)
	})
}

func (o *Orchestrator) setActivity(s activity.State) {
	o.mu.Lock()
	o.activity = s
	cb := o.events.OnActivity
	o.mu.Unlock()
	if cb != nil {
		cb(s)
	}
}

func (o *Orchestrator) swapActivity(from, to activity.State) {
	o.mu.Lock()
	if o.activity != from {
		o.mu.Unlock()
		return
	}
	o.activity = to
	cb := o.events.OnActivity
	o.mu.Unlock()
	if cb != nil {
		cb(to)
	}
}

func (o *Orchestrator) appendTurn(t transcript.Turn) {
	if !o.log.Append(t) {
		return
	}
	o.notifyTranscript()
}

func (o *Orchestrator) notifyTranscript() {
	o.mu.Lock()
	cb := o.events.OnTranscript
	o.mu.Unlock()
	if cb != nil {
		cb(o.log.Snapshot())
	}
}

func (o *Orchestrator) reportError(err error) {
	o.mu.Lock()
	cb := o.events.OnError
	o.mu.Unlock()
	o.logger.Error("study turn failed", "error", err)
	if cb != nil {
		cb(err)
	}
}
