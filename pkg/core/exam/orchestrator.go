// Package exam runs the turn-based voice exam protocol against the tutor
// service: ask question, play its audio, record an answer, upload, submit,
// receive feedback, advance or complete.
package exam

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prepod-ai/tutor/pkg/core"
	"github.com/prepod-ai/tutor/pkg/core/activity"
	"github.com/prepod-ai/tutor/pkg/core/audio"
	"github.com/prepod-ai/tutor/pkg/core/schedule"
	"github.com/prepod-ai/tutor/pkg/core/transcript"
	"github.com/prepod-ai/tutor/pkg/core/types"
)

// State is the exam session lifecycle.
type State int

const (
	Idle State = iota
	Starting
	AwaitingRecording
	Recording
	Uploading
	Evaluating
	NextQuestionPending
	Completed
)

var stateNames = [...]string{
	Idle:                "idle",
	Starting:            "starting",
	AwaitingRecording:   "awaiting_recording",
	Recording:           "recording",
	Uploading:           "uploading",
	Evaluating:          "evaluating",
	NextQuestionPending: "next_question_pending",
	Completed:           "completed",
}

func (s State) String() string {
	if s < Idle || s > Completed {
		return "invalid"
	}
	return stateNames[s]
}

// API is the exam surface of the request pipeline.
type API interface {
	StartExam(ctx context.Context, req *types.ExamStartRequest) (*types.QuestionResponse, error)
	SubmitAnswer(ctx context.Context, req *types.AnswerRequest) (*types.AnswerResponse, error)
	ExamStatus(ctx context.Context, sessionID int64) (*types.ExamStatusResponse, error)
}

// Uploader pushes a binary clip to remote storage and returns a stable
// reference.
type Uploader interface {
	UploadAudio(ctx context.Context, filename string, data []byte) (string, error)
}

// Events are optional notifications to the UI layer. Callbacks run outside
// the orchestrator lock and may arrive from multiple goroutines.
type Events struct {
	OnActivity   func(activity.State)
	OnTranscript func([]transcript.Turn)
	OnStatus     func(types.ExamStatusResponse)
	OnError      func(error)
	OnRecordTick func(seconds int)
	OnCompleted  func()
}

const (
	defaultFeedbackDelay  = 3 * time.Second
	defaultThinkDelay     = 2 * time.Second
	defaultStatusInterval = 3 * time.Second
	defaultTickInterval   = time.Second
)

// Orchestrator owns one exam session: its state machine, transcript,
// activity state, pacing timers, and status poll.
type Orchestrator struct {
	api      API
	uploader Uploader
	rec      audio.Recorder
	player   audio.Playback
	logger   *slog.Logger
	events   Events
	sched    *schedule.Queue

	feedbackDelay  time.Duration
	thinkDelay     time.Duration
	statusInterval time.Duration
	tickInterval   time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once

	mu            sync.Mutex
	state         State
	sessionID     int64
	current       *types.QuestionResponse
	activity      activity.State
	status        *types.ExamStatusResponse
	recordSeconds int
	recordStop    chan struct{}

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

// WithPacing overrides the feedback and thinking display delays.
func WithPacing(feedback, think time.Duration) Option {
	return func(o *Orchestrator) {
		o.feedbackDelay = feedback
		o.thinkDelay = think
	}
}

// WithStatusInterval overrides the status poll cadence.
func WithStatusInterval(d time.Duration) Option {
	return func(o *Orchestrator) { o.statusInterval = d }
}

// WithScheduleQueue substitutes the pacing task queue.
func WithScheduleQueue(q *schedule.Queue) Option {
	return func(o *Orchestrator) { o.sched = q }
}

// New creates an idle orchestrator. Nothing runs until Start.
func New(api API, uploader Uploader, rec audio.Recorder, player audio.Playback, opts ...Option) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		api:            api,
		uploader:       uploader,
		rec:            rec,
		player:         player,
		logger:         slog.Default(),
		sched:          schedule.NewQueue(),
		feedbackDelay:  defaultFeedbackDelay,
		thinkDelay:     defaultThinkDelay,
		statusInterval: defaultStatusInterval,
		tickInterval:   defaultTickInterval,
		ctx:            ctx,
		cancel:         cancel,
		log:            transcript.NewLog(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
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

// Status returns the last polled session telemetry, if any.
func (o *Orchestrator) Status() *types.ExamStatusResponse {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status == nil {
		return nil
	}
	st := *o.status
	return &st
}

// Start issues the start request and, on success, seeds the transcript with
// the first question and begins its audio playback. On failure no session
// exists and the orchestrator stays Idle.
func (o *Orchestrator) Start(ctx context.Context, req *types.ExamStartRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	req.Materials = types.TrimMaterials(req.Materials)

	o.mu.Lock()
	if o.state != Idle {
		state := o.state
		o.mu.Unlock()
		return core.NewValidationError(fmt.Sprintf("cannot start exam in state %s", state))
	}
	o.state = Starting
	o.mu.Unlock()
	o.setActivity(activity.Thinking)

	q, err := o.api.StartExam(ctx, req)
	if err != nil {
		o.mu.Lock()
		o.state = Idle
		o.mu.Unlock()
		o.setActivity(activity.Waiting)
		return core.NewNetworkError("failed to start exam", err)
	}

	o.mu.Lock()
	o.sessionID = q.ExamSessionID
	o.current = q
	o.state = AwaitingRecording
	o.mu.Unlock()

	o.appendTurn(questionTurn(q))
	go o.statusLoop()
	o.playQuestion(q)
	return nil
}

// Record enters the Recording state. It is rejected in any other state, so a
// rapid double-invocation of the record control cannot start a second
// recording cycle.
func (o *Orchestrator) Record() error {
	o.mu.Lock()
	if o.state != AwaitingRecording {
		state := o.state
		o.mu.Unlock()
		return core.NewValidationError(fmt.Sprintf("cannot record in state %s", state))
	}
	o.mu.Unlock()

	if err := o.rec.Begin(); err != nil {
		return err
	}

	o.mu.Lock()
	if o.state != AwaitingRecording {
		// Lost the race against Close; give the device back.
		o.mu.Unlock()
		o.rec.Cancel()
		return core.NewValidationError("session is no longer accepting recordings")
	}
	o.state = Recording
	o.recordSeconds = 0
	stop := make(chan struct{})
	o.recordStop = stop
	o.mu.Unlock()

	go o.recordTicker(stop)
	return nil
}

// StopAndSubmit ends the recording and runs upload + grading asynchronously.
// The Answer turn is appended only once the upload succeeds.
func (o *Orchestrator) StopAndSubmit() error {
	o.mu.Lock()
	if o.state != Recording {
		state := o.state
		o.mu.Unlock()
		return core.NewValidationError(fmt.Sprintf("no recording to submit in state %s", state))
	}
	o.stopRecordTickerLocked()

	clip, err := o.rec.End()
	if err != nil {
		o.state = AwaitingRecording
		o.mu.Unlock()
		return err
	}
	o.state = Uploading
	question := o.current
	sessionID := o.sessionID
	o.mu.Unlock()

	go o.submit(clip, sessionID, question)
	return nil
}

// CancelRecording discards the in-flight recording without appending
// anything.
func (o *Orchestrator) CancelRecording() {
	o.mu.Lock()
	if o.state != Recording {
		o.mu.Unlock()
		return
	}
	o.stopRecordTickerLocked()
	o.state = AwaitingRecording
	o.recordSeconds = 0
	o.mu.Unlock()
	o.rec.Cancel()
}

// PausePlayback stops the current question audio; the speaking sub-phase
// ends the same way it does on a natural finish.
func (o *Orchestrator) PausePlayback() {
	o.player.Pause()
}

// Close tears down timers, polls, playback, and any held microphone handle.
// The session is discarded client-side.
func (o *Orchestrator) Close() {
	o.once.Do(func() {
		o.cancel()
		o.sched.Stop()
		o.mu.Lock()
		recording := o.state == Recording
		o.stopRecordTickerLocked()
		o.state = Completed
		o.mu.Unlock()
		if recording {
			o.rec.Cancel()
		}
		o.player.Stop()
	})
}

func (o *Orchestrator) submit(clip *audio.Clip, sessionID int64, question *types.QuestionResponse) {
	url, err := o.uploader.UploadAudio(o.ctx, clip.Filename, clip.Data)
	if err != nil {
		o.failTurn(core.NewUploadError("failed to upload answer audio", err))
		return
	}

	answer := transcript.Turn{
		ID:          transcript.TempID(),
		Kind:        transcript.KindAnswer,
		AudioURL:    url,
		FromStudent: true,
		CreatedAt:   time.Now(),
	}
	o.appendTurn(answer)

	o.mu.Lock()
	if o.state != Uploading {
		o.mu.Unlock()
		return
	}
	o.state = Evaluating
	o.mu.Unlock()
	o.setActivity(activity.Evaluating)

	resp, err := o.api.SubmitAnswer(o.ctx, &types.AnswerRequest{
		ExamSessionID:  sessionID,
		QuestionID:     question.QuestionID,
		AnswerAudioURL: url,
	})
	if err != nil {
		// The audio reference is already durable, so the Answer turn stays.
		o.failTurn(core.NewNetworkError("failed to submit answer", err))
		return
	}
	o.handleVerdict(resp)
}

func (o *Orchestrator) handleVerdict(resp *types.AnswerResponse) {
	o.appendTurn(transcript.Turn{
		ID:        fmt.Sprintf("feedback-%d", resp.AnswerID),
		Kind:      transcript.KindFeedback,
		Text:      resp.AIFeedback,
		Correct:   resp.IsCorrect,
		Mood:      resp.TeacherMood,
		CreatedAt: time.Now(),
	})
	o.setActivity(activity.FromVerdict(resp.IsCorrect))

	switch {
	case resp.ExamCompleted:
		o.mu.Lock()
		o.state = NextQuestionPending
		o.mu.Unlock()
		o.sched.After(o.feedbackDelay, o.complete)
	case resp.NextQuestion != nil:
		next := resp.NextQuestion
		o.mu.Lock()
		o.state = NextQuestionPending
		o.mu.Unlock()
		o.sched.After(o.feedbackDelay, func() {
			o.setActivity(activity.Thinking)
			o.sched.After(o.thinkDelay, func() { o.advance(next) })
		})
	default:
		// Tolerated response shape: graded, but neither done nor advanced.
		o.mu.Lock()
		o.state = AwaitingRecording
		o.mu.Unlock()
		mood := activity.FromVerdict(resp.IsCorrect)
		o.sched.After(o.feedbackDelay, func() {
			o.swapActivity(mood, activity.Waiting)
		})
	}
}

func (o *Orchestrator) advance(next *types.QuestionResponse) {
	o.mu.Lock()
	if o.state != NextQuestionPending {
		o.mu.Unlock()
		return
	}
	o.current = next
	o.state = AwaitingRecording
	o.mu.Unlock()

	o.appendTurn(questionTurn(next))
	o.playQuestion(next)
}

func (o *Orchestrator) complete() {
	o.mu.Lock()
	if o.state == Completed {
		o.mu.Unlock()
		return
	}
	o.state = Completed
	cb := o.events.OnCompleted
	o.mu.Unlock()

	o.cancel()
	if cb != nil {
		cb()
	}
}

// failTurn recovers a failed upload or submission at the orchestrator
// boundary: the user sees the error, the transcript keeps whatever is
// already durable, and the session is immediately ready to record again.
func (o *Orchestrator) failTurn(err error) {
	o.mu.Lock()
	if o.state == Uploading || o.state == Evaluating {
		o.state = AwaitingRecording
	}
	cb := o.events.OnError
	o.mu.Unlock()
	o.setActivity(activity.Waiting)
	o.logger.Error("exam turn failed", "error", err)
	if cb != nil {
		cb(err)
	}
}

func (o *Orchestrator) playQuestion(q *types.QuestionResponse) {
	go func() {
		done, err := o.player.Play(o.ctx, q.QuestionAudioURL)
		if err != nil {
			o.logger.Warn("question audio playback failed", "question_id", q.QuestionID, "error", err)
			o.swapActivity(activity.Thinking, activity.Waiting)
			return
		}
		o.setActivity(activity.Speaking)
		select {
		case <-done:
		case <-o.ctx.Done():
			return
		}
		o.swapActivity(activity.Speaking, activity.Waiting)
	}()
}

func (o *Orchestrator) statusLoop() {
	ticker := time.NewTicker(o.statusInterval)
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

		st, err := o.api.ExamStatus(o.ctx, sessionID)
		if err != nil {
			// Best-effort telemetry; the next tick retries.
			o.logger.Debug("status poll failed", "session_id", sessionID, "error", err)
			continue
		}

		o.mu.Lock()
		o.status = st
		cb := o.events.OnStatus
		o.mu.Unlock()
		if cb != nil {
			cb(*st)
		}
	}
}

func (o *Orchestrator) recordTicker(stop chan struct{}) {
	ticker := time.NewTicker(o.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-o.ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
		}

		o.mu.Lock()
		if o.state != Recording {
			o.mu.Unlock()
			return
		}
		o.recordSeconds++
		n := o.recordSeconds
		cb := o.events.OnRecordTick
		o.mu.Unlock()
		if cb != nil {
			cb(n)
		}
	}
}

func (o *Orchestrator) stopRecordTickerLocked() {
	if o.recordStop != nil {
		close(o.recordStop)
		o.recordStop = nil
	}
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

// swapActivity writes to only if the current value is from. Activity is
// last-write-wins; a stale playback goroutine must not clobber a newer
// transition.
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
	o.mu.Lock()
	cb := o.events.OnTranscript
	o.mu.Unlock()
	if cb != nil {
		cb(o.log.Snapshot())
	}
}

func questionTurn(q *types.QuestionResponse) transcript.Turn {
	return transcript.Turn{
		ID:        fmt.Sprintf("question-%d", q.QuestionID),
		Kind:      transcript.KindQuestion,
		Text:      q.QuestionText,
		AudioURL:  q.QuestionAudioURL,
		CreatedAt: time.Now(),
	}
}
