package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/abdulachik/etrimage/internal/feedback"
	"github.com/abdulachik/etrimage/internal/health"
	"github.com/abdulachik/etrimage/internal/metrics"
	"github.com/google/uuid"
)

// State is a step of the generation lifecycle.
type State int

const (
	Idle State = iota
	AnalyzingText
	PromptReady
	AnalysisFailed
	RenderingImage
	ImageReady
	RenderFailed
	AwaitingFeedback
	Committed
)

var stateNames = [...]string{
	Idle:             "Idle",
	AnalyzingText:    "AnalyzingText",
	PromptReady:      "PromptReady",
	AnalysisFailed:   "AnalysisFailed",
	RenderingImage:   "RenderingImage",
	ImageReady:       "ImageReady",
	RenderFailed:     "RenderFailed",
	AwaitingFeedback: "AwaitingFeedback",
	Committed:        "Committed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}

// Busy reports whether a submission is in flight.
func (s State) Busy() bool {
	return s == AnalyzingText || s == PromptReady || s == RenderingImage || s == ImageReady
}

// Session holds one user's in-flight request between generation and feedback.
// It is safe for concurrent use; a second Submit while busy fails with ErrBusy.
type Session struct {
	id string
	p  *Pipeline

	mu          sync.Mutex
	state       State
	artifacts   Artifacts
	transitions []State
}

// NewSession creates an idle session.
func (p *Pipeline) NewSession() *Session {
	return &Session{
		id: uuid.NewString(),
		p:  p,
	}
}

// ID identifies the session in logs.
func (s *Session) ID() string {
	return s.id
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Artifacts returns a copy of what the last submission produced.
func (s *Session) Artifacts() Artifacts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.artifacts
}

// Transitions returns the states entered since the last submission began.
func (s *Session) Transitions() []State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]State(nil), s.transitions...)
}

// Reset discards an unrated result. It is a no-op while busy.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Busy() {
		return
	}
	s.state = Idle
	s.artifacts = Artifacts{}
	s.transitions = nil
}

// transition must be called with s.mu held.
func (s *Session) transition(to State) {
	from := s.state
	s.state = to
	s.transitions = append(s.transitions, to)
	s.p.metrics.Transition(to.String())
	slog.Debug("session transition", "session", s.id, "from", from, "to", to)
}

func (s *Session) advance(to State, update func(*Artifacts)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if update != nil {
		update(&s.artifacts)
	}
	s.transition(to)
}

// fail enters a terminal failure state. The session keeps no artifacts for a
// failed request; what was produced so far is returned to the caller.
func (s *Session) fail(to State) Artifacts {
	s.mu.Lock()
	defer s.mu.Unlock()
	partial := s.artifacts
	s.artifacts = Artifacts{}
	s.transition(to)
	return partial
}

// Submit runs a full generation for req. Validation failures leave the
// session untouched. Any other failure is terminal for the request: the
// session enters AnalysisFailed or RenderFailed with its artifacts cleared,
// and the partial artifacts are returned with the error. The caller may
// resubmit. On success the session awaits feedback.
func (s *Session) Submit(ctx context.Context, req GenerationRequest) (Artifacts, error) {
	system, err := s.p.prepare(req)
	if err != nil {
		return Artifacts{}, err
	}

	s.mu.Lock()
	if s.state.Busy() {
		s.mu.Unlock()
		return Artifacts{}, &Error{Kind: ValidationError, Op: "submit", Err: ErrBusy, Hint: "wait for the current generation to finish"}
	}
	req.SourceText = strings.TrimSpace(req.SourceText)
	s.artifacts = Artifacts{Request: req, SystemPromptUsed: system}
	s.transitions = nil
	s.transition(AnalyzingText)
	s.mu.Unlock()

	slog.Info("generation started",
		"session", s.id,
		"style", string(req.Style),
		"text_temperature", req.TextTemperature,
		"image_temperature", req.ImageTemperature,
	)

	parsed, usedFallback, err := s.p.analyze(ctx, req, system)
	if err != nil {
		return s.fail(AnalysisFailed), err
	}
	s.advance(PromptReady, func(a *Artifacts) {
		a.Reasoning = parsed.Reasoning
		a.FinalPrompt = parsed.FinalPrompt
		a.UsedFallback = usedFallback
	})

	s.advance(RenderingImage, nil)
	img, err := s.p.render(ctx, parsed.FinalPrompt, req)
	if err != nil {
		return s.fail(RenderFailed), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts.Image = img
	s.transition(ImageReady)
	s.transition(AwaitingFeedback)
	return s.artifacts, nil
}

// Commit records rating and comments for the awaiting image. On success the
// session returns to Idle with its artifacts cleared; on failure it keeps
// them so the user can rate again.
func (s *Session) Commit(ctx context.Context, rating feedback.Rating, comments string) (feedback.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != AwaitingFeedback || !s.artifacts.HasImage() {
		return feedback.Record{}, &Error{Kind: ValidationError, Op: "commit feedback", Err: ErrNothingToRate, Hint: "generate an image first"}
	}
	if !rating.Valid() {
		return feedback.Record{}, &Error{Kind: ValidationError, Op: "commit feedback", Err: fmt.Errorf("invalid rating %q", rating), Hint: hintValidation}
	}
	if s.p.recorder == nil {
		return feedback.Record{}, &Error{Kind: ConfigMissing, Op: "commit feedback", Err: errors.New("no feedback recorder configured"), Hint: hintConfig}
	}

	a := s.artifacts
	entry := feedback.Entry{
		SourceText:       a.Request.SourceText,
		SystemPrompt:     a.SystemPromptUsed,
		Style:            string(a.Request.Style),
		TextTemperature:  a.Request.TextTemperature,
		ImageTemperature: a.Request.ImageTemperature,
		Reasoning:        a.Reasoning,
		FinalPrompt:      a.FinalPrompt,
		Rating:           rating,
		Comments:         strings.TrimSpace(comments),
	}

	start := time.Now()
	rec, err := s.p.recorder.Record(ctx, entry, a.Image.Data)
	if err != nil {
		s.p.metrics.ObserveCall(metrics.StageFeedback, metrics.StatusError, time.Since(start))
		s.p.health.SetUnhealthy(health.FeedbackLog, err)
		slog.Error("failed to record feedback", "session", s.id, "error", err)
		return feedback.Record{}, &Error{Kind: PersistenceFailed, Op: "commit feedback", Err: err, Hint: hintPersistence}
	}

	s.p.metrics.ObserveCall(metrics.StageFeedback, metrics.StatusOK, time.Since(start))
	s.p.health.SetHealthy(health.FeedbackLog, rec.ImageFilename)
	s.p.metrics.FeedbackRecorded(string(rating))

	s.transition(Committed)
	s.artifacts = Artifacts{}
	s.transition(Idle)
	return rec, nil
}
