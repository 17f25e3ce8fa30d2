package session

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prepdesk/prepdesk-backend/internal/model"
	"github.com/prepdesk/prepdesk-backend/internal/scoring"
)

// State is the session lifecycle state. Finished is terminal.
type State string

const (
	StateNotStarted State = "NOT_STARTED"
	StateActive     State = "ACTIVE"
	StateFinished   State = "FINISHED"
)

// Feedback is the verdict briefly shown after an answer is submitted.
// Correct is nil when the session has no answer key.
type Feedback struct {
	Question int   `json:"question"`
	Correct  *bool `json:"correct,omitempty"`
}

// Config describes a session at creation time. Everything the engine needs
// arrives here explicitly — no ambient lookups.
type Config struct {
	Questions       []model.Question
	DurationSeconds int
	Key             map[int]string // by 1-based question number; nil = ungraded
	Mode            model.ScoringMode
	Plan            scoring.BandPlan
	Syllabus        string
	HomeworkSourced bool
	Reattempt       bool

	// Timing knobs. Zero values fall back to the defaults below; tests
	// shrink them to keep the suite fast.
	TickInterval       time.Duration
	FeedbackWithKey    time.Duration
	FeedbackWithoutKey time.Duration
}

const (
	defaultTickInterval       = time.Second
	defaultFeedbackWithKey    = 1500 * time.Millisecond
	defaultFeedbackWithoutKey = time.Second
)

// Session owns one timed run through an ordered question set. All state
// mutations are serialized on mu; the ticker goroutine and caller-initiated
// operations both re-check the lifecycle state under the lock, so a tick
// racing a manual finish can never double-fire.
type Session struct {
	ID      uuid.UUID
	OwnerID int

	mu    sync.Mutex
	cfg   Config
	sinks Sinks

	state       State
	pos         int
	answers     map[int]string
	timings     map[int]float64
	review      map[int]bool
	remaining   int
	createdAt   time.Time
	startedAt   time.Time
	finishedAt  time.Time
	visitStart  time.Time
	feedback    *Feedback
	navInFlight bool
	outcome     *Outcome

	done chan struct{}
	now  func() time.Time
}

// New builds a session in the NotStarted state.
func New(ownerID int, cfg Config, sinks Sinks) *Session {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaultTickInterval
	}
	if cfg.FeedbackWithKey <= 0 {
		cfg.FeedbackWithKey = defaultFeedbackWithKey
	}
	if cfg.FeedbackWithoutKey <= 0 {
		cfg.FeedbackWithoutKey = defaultFeedbackWithoutKey
	}
	if cfg.Mode == "" {
		cfg.Mode = model.ScoringModeAdHoc
	}

	return &Session{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		cfg:       cfg,
		sinks:     sinks,
		state:     StateNotStarted,
		answers:   make(map[int]string),
		timings:   make(map[int]float64),
		review:    make(map[int]bool),
		remaining: cfg.DurationSeconds,
		createdAt: time.Now(),
		done:      make(chan struct{}),
		now:       time.Now,
	}
}

// QuestionCount returns the number of questions in the session.
func (s *Session) QuestionCount() int {
	return len(s.cfg.Questions)
}

// Done returns a channel closed when the session reaches Finished. Useful for
// streaming consumers that must stop pushing state.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// currentNumber is the 1-based number of the question at the cursor.
// Callers hold mu.
func (s *Session) currentNumber() int {
	return s.cfg.Questions[s.pos].Number
}

// Start begins the countdown and moves the session to Active. It is a no-op
// unless the session is in NotStarted.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateNotStarted {
		return
	}

	now := s.now()
	s.startedAt = now
	s.visitStart = now
	s.state = StateActive

	go s.tickLoop()
}

func (s *Session) tickLoop() {
	t := time.NewTicker(s.cfg.TickInterval)
	defer t.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-t.C:
			s.tick()
		}
	}
}

func (s *Session) tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return
	}

	s.remaining--
	if s.remaining <= 0 {
		s.remaining = 0
		s.finishLocked()
	}
}

// SubmitAnswer records an answer for the current question and shows timed
// feedback before auto-advancing. Ignored while feedback is displayed, while
// a navigation is in flight, or outside the Active state.
func (s *Session) SubmitAnswer(value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive || s.feedback != nil || s.navInFlight {
		return
	}

	num := s.currentNumber()
	s.answers[num] = value

	fb := &Feedback{Question: num}
	delay := s.cfg.FeedbackWithoutKey

	if expected, ok := s.cfg.Key[num]; ok {
		correct := scoring.Equal(value, expected)
		fb.Correct = &correct
		delay = s.cfg.FeedbackWithKey

		if !correct {
			s.scheduleReattemptLocked(num)
		}
	}

	s.feedback = fb
	s.navInFlight = true
	time.AfterFunc(delay, s.resolveFeedback)
}

// scheduleReattemptLocked enqueues a next-day reattempt task for a wrong
// homework answer. Reattempt sessions never spawn further reattempts.
func (s *Session) scheduleReattemptLocked(num int) {
	if s.sinks.Task == nil || !s.cfg.HomeworkSourced || s.cfg.Reattempt {
		return
	}

	due := s.now().AddDate(0, 0, 1)
	due = time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, due.Location())

	s.sinks.Task.SaveTask(s.OwnerID, ReattemptTask{
		Question: num,
		Syllabus: s.cfg.Syllabus,
		DueDate:  due,
	})
}

// resolveFeedback clears the feedback window and advances the cursor.
func (s *Session) resolveFeedback() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return
	}

	s.feedback = nil
	s.navInFlight = false
	s.advanceLocked()
}

// advanceLocked moves to the next question, or finishes past the last one.
// Callers hold mu.
func (s *Session) advanceLocked() {
	s.flushTimingLocked()
	if s.pos+1 >= len(s.cfg.Questions) {
		s.finishLocked()
		return
	}
	s.pos++
}

// Navigate jumps the cursor to target (0-based). Out-of-range targets are
// ignored, except target == questionCount which finishes the session.
func (s *Session) Navigate(target int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive || s.feedback != nil || s.navInFlight {
		return
	}

	n := len(s.cfg.Questions)
	if target == n {
		s.finishLocked()
		return
	}
	if target < 0 || target > n {
		return
	}

	s.flushTimingLocked()
	s.pos = target
}

// MarkForReview toggles the current question's review mark and then advances
// as if the student pressed next.
func (s *Session) MarkForReview() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive || s.feedback != nil || s.navInFlight {
		return
	}

	num := s.currentNumber()
	if s.review[num] {
		delete(s.review, num)
	} else {
		s.review[num] = true
	}

	s.advanceLocked()
}

// ClearAnswer removes the current question's answer entry.
func (s *Session) ClearAnswer() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive || s.feedback != nil || s.navInFlight {
		return
	}

	delete(s.answers, s.currentNumber())
}

// Finish ends the session. Safe to call any number of times; everything
// after the first call is a no-op.
func (s *Session) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.finishLocked()
}

// flushTimingLocked adds the time spent on the current question since the
// last visit start. Callers hold mu.
func (s *Session) flushTimingLocked() {
	if s.state != StateActive || len(s.cfg.Questions) == 0 {
		return
	}

	now := s.now()
	delta := now.Sub(s.visitStart).Seconds()
	if delta < 0 {
		delta = 0
	}
	s.timings[s.currentNumber()] += delta
	s.visitStart = now
}

// finishLocked performs the single Active → Finished transition: stops the
// ticker, reports completion, grades, and logs the result. Callers hold mu.
func (s *Session) finishLocked() {
	if s.state != StateActive {
		return
	}

	s.flushTimingLocked()
	s.state = StateFinished
	s.finishedAt = s.now()
	s.feedback = nil
	s.navInFlight = false
	close(s.done)

	duration := int(s.finishedAt.Sub(s.startedAt).Seconds())

	solved := 0
	var skipped []int
	for _, q := range s.cfg.Questions {
		if v, ok := s.answers[q.Number]; ok && scoring.Attempted(v) {
			solved++
		} else {
			skipped = append(skipped, q.Number)
		}
	}
	sort.Ints(skipped)

	if s.sinks.Completion != nil {
		s.sinks.Completion.OnSessionComplete(s.ID.String(), s.OwnerID, duration, solved, skipped)
	}

	outcome := Outcome{Mode: s.cfg.Mode}
	outcome.Result.Timings = copyTimings(s.timings)
	outcome.Result.Syllabus = s.cfg.Syllabus

	if len(s.cfg.Key) > 0 {
		types := make(map[int]model.QuestionType, len(s.cfg.Questions))
		for _, q := range s.cfg.Questions {
			if q.Type != "" {
				types[q.Number] = q.Type
			}
		}

		graded := scoring.Grade(scoring.Input{
			Answers:       s.answers,
			Key:           s.cfg.Key,
			QuestionCount: len(s.cfg.Questions),
			Mode:          s.cfg.Mode,
			Plan:          s.cfg.Plan,
			Types:         types,
		})
		graded.Timings = outcome.Result.Timings
		graded.Syllabus = s.cfg.Syllabus

		outcome.Graded = true
		outcome.Result = graded
	}

	s.outcome = &outcome

	if s.sinks.Result != nil {
		s.sinks.Result.LogResult(s.ID.String(), s.OwnerID, outcome)
	}
}

func copyTimings(in map[int]float64) map[int]float64 {
	out := make(map[int]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Outcome returns the graded (or ungraded) result once the session is
// finished, and nil before that.
func (s *Session) Outcome() *Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.outcome == nil {
		return nil
	}
	o := *s.outcome
	return &o
}

// FinishedAt returns when the session entered Finished, or the zero time.
func (s *Session) FinishedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finishedAt
}

// Abandoned reports whether the session was created but never started and has
// outlived its full duration plus retain. Started sessions end themselves
// through the countdown, so only never-started ones can linger.
func (s *Session) Abandoned(now time.Time, retain time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateNotStarted {
		return false
	}
	deadline := s.createdAt.Add(time.Duration(s.cfg.DurationSeconds)*time.Second + retain)
	return now.After(deadline)
}
