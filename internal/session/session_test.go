package session_test

import (
	"sync"
	"testing"
	"time"

	"github.com/prepdesk/prepdesk-backend/internal/model"
	"github.com/prepdesk/prepdesk-backend/internal/scoring"
	"github.com/prepdesk/prepdesk-backend/internal/session"
)

// recorder implements every sink and records the calls.
type recorder struct {
	mu          sync.Mutex
	outcomes    []session.Outcome
	tasks       []session.ReattemptTask
	completions int
	duration    int
	solved      int
	skipped     []int
}

func (r *recorder) LogResult(sessionID string, userID int, o session.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

func (r *recorder) SaveTask(userID int, t session.ReattemptTask) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, t)
}

func (r *recorder) OnSessionComplete(sessionID string, userID int, durationSeconds, solved int, skipped []int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completions++
	r.duration = durationSeconds
	r.solved = solved
	r.skipped = skipped
}

func (r *recorder) snapshot() recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	return recorder{
		outcomes:    append([]session.Outcome(nil), r.outcomes...),
		tasks:       append([]session.ReattemptTask(nil), r.tasks...),
		completions: r.completions,
		duration:    r.duration,
		solved:      r.solved,
		skipped:     append([]int(nil), r.skipped...),
	}
}

func questions(n int) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{Number: i + 1}
	}
	return qs
}

// testConfig keeps the suite fast: long tick so the countdown never
// interferes, and feedback windows of a few milliseconds.
func testConfig(n int, key map[int]string) session.Config {
	return session.Config{
		Questions:          questions(n),
		DurationSeconds:    3600,
		Key:                key,
		Mode:               model.ScoringModeAdHoc,
		TickInterval:       time.Hour,
		FeedbackWithKey:    5 * time.Millisecond,
		FeedbackWithoutKey: 5 * time.Millisecond,
	}
}

// waitFor polls until cond is true or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestSession_HappyPathWithKey(t *testing.T) {
	rec := &recorder{}
	s := session.New(1, testConfig(2, map[int]string{1: "A", 2: "C"}), session.Sinks{
		Result: rec, Completion: rec,
	})

	snap := s.Snapshot()
	if snap.State != session.StateNotStarted {
		t.Fatalf("state = %s, want NOT_STARTED", snap.State)
	}
	if snap.Remaining != 3600 {
		t.Fatalf("remaining = %d, want the full duration before start", snap.Remaining)
	}

	s.Start()
	if snap := s.Snapshot(); snap.State != session.StateActive {
		t.Fatalf("state = %s, want ACTIVE", snap.State)
	}

	s.SubmitAnswer("1") // normalizes to "A" — correct

	snap = s.Snapshot()
	if snap.Feedback == nil || snap.Feedback.Correct == nil || !*snap.Feedback.Correct {
		t.Fatalf("expected correct feedback, got %+v", snap.Feedback)
	}

	waitFor(t, func() bool { return s.Snapshot().Position == 1 }, "never advanced past feedback")

	s.SubmitAnswer("B") // wrong — advancing past the last question finishes
	waitFor(t, func() bool { return s.Snapshot().State == session.StateFinished }, "never finished")

	got := rec.snapshot()
	if got.completions != 1 {
		t.Fatalf("completions = %d, want 1", got.completions)
	}
	if got.solved != 2 || len(got.skipped) != 0 {
		t.Errorf("solved = %d skipped = %v, want 2 and none", got.solved, got.skipped)
	}
	if len(got.outcomes) != 1 {
		t.Fatalf("outcomes = %d, want 1", len(got.outcomes))
	}

	o := got.outcomes[0]
	if !o.Graded {
		t.Fatal("expected graded outcome")
	}
	if o.Result.Score != 3 { // +4 −1
		t.Errorf("score = %d, want 3", o.Result.Score)
	}
	if o.Result.TotalMarks != 8 {
		t.Errorf("total = %d, want 8", o.Result.TotalMarks)
	}
}

func TestSession_DoubleFinishInvokesCompletionOnce(t *testing.T) {
	rec := &recorder{}
	s := session.New(1, testConfig(3, nil), session.Sinks{Result: rec, Completion: rec})

	s.Start()
	s.Finish()
	s.Finish()

	got := rec.snapshot()
	if got.completions != 1 {
		t.Errorf("completions = %d, want 1", got.completions)
	}
	if len(got.outcomes) != 1 {
		t.Errorf("outcomes = %d, want 1", len(got.outcomes))
	}
}

func TestSession_CountdownTriggersFinish(t *testing.T) {
	rec := &recorder{}
	cfg := testConfig(3, map[int]string{1: "A"})
	cfg.DurationSeconds = 3
	cfg.TickInterval = 5 * time.Millisecond

	s := session.New(1, cfg, session.Sinks{Result: rec, Completion: rec})
	s.Start()

	waitFor(t, func() bool { return s.Snapshot().State == session.StateFinished }, "countdown never finished the session")

	got := rec.snapshot()
	if got.completions != 1 {
		t.Errorf("completions = %d, want 1", got.completions)
	}
	// Same finish path as manual submission: a graded outcome with the full
	// Result shape.
	if len(got.outcomes) != 1 || !got.outcomes[0].Graded {
		t.Fatalf("expected one graded outcome, got %+v", got.outcomes)
	}
	if snap := s.Snapshot(); snap.Remaining != 0 {
		t.Errorf("remaining = %d, want 0", snap.Remaining)
	}
}

func TestSession_NavigationIgnoredDuringFeedback(t *testing.T) {
	s := session.New(1, testConfig(5, map[int]string{1: "A"}), session.Sinks{})
	s.Start()

	s.SubmitAnswer("B")
	if s.Snapshot().Feedback == nil {
		t.Fatal("expected feedback to be displayed")
	}

	// Both must be ignored while the feedback window is open.
	s.Navigate(4)
	s.SubmitAnswer("C")

	waitFor(t, func() bool { return s.Snapshot().Feedback == nil }, "feedback never cleared")

	snap := s.Snapshot()
	if snap.Position != 1 {
		t.Errorf("position = %d, want 1 (auto-advance only)", snap.Position)
	}
	if snap.Answers[1] != "B" {
		t.Errorf("answer = %q, want the first submission to stand", snap.Answers[1])
	}
}

func TestSession_NavigateOutOfRangeIsNoOp(t *testing.T) {
	s := session.New(1, testConfig(3, nil), session.Sinks{})
	s.Start()

	s.Navigate(-1)
	s.Navigate(7)

	snap := s.Snapshot()
	if snap.Position != 0 || snap.State != session.StateActive {
		t.Errorf("position = %d state = %s, want unchanged", snap.Position, snap.State)
	}
}

func TestSession_NavigatePastLastFinishes(t *testing.T) {
	rec := &recorder{}
	s := session.New(1, testConfig(3, nil), session.Sinks{Completion: rec})
	s.Start()

	s.Navigate(3)

	if snap := s.Snapshot(); snap.State != session.StateFinished {
		t.Fatalf("state = %s, want FINISHED", snap.State)
	}
	if rec.snapshot().completions != 1 {
		t.Error("expected one completion callback")
	}
}

func TestSession_TimingsAreNonNegativeAndCoverVisited(t *testing.T) {
	rec := &recorder{}
	s := session.New(1, testConfig(3, nil), session.Sinks{Result: rec})
	s.Start()

	s.Navigate(2)
	s.Navigate(1)
	s.Finish()

	got := rec.snapshot()
	if len(got.outcomes) != 1 {
		t.Fatal("expected an outcome")
	}
	for q, secs := range got.outcomes[0].Result.Timings {
		if secs < 0 {
			t.Errorf("timings[%d] = %f, want >= 0", q, secs)
		}
	}
	// Questions 1, 3 and 2 were all visited.
	for _, q := range []int{1, 2, 3} {
		if _, ok := got.outcomes[0].Result.Timings[q]; !ok {
			t.Errorf("timings missing visited question %d", q)
		}
	}
}

func TestSession_ReattemptTaskScheduling(t *testing.T) {
	rec := &recorder{}
	cfg := testConfig(2, map[int]string{1: "A", 2: "B"})
	cfg.HomeworkSourced = true

	s := session.New(1, cfg, session.Sinks{Task: rec})
	s.Start()
	s.SubmitAnswer("D") // wrong

	got := rec.snapshot()
	if len(got.tasks) != 1 {
		t.Fatalf("tasks = %d, want 1", len(got.tasks))
	}
	task := got.tasks[0]
	if task.Question != 1 {
		t.Errorf("task question = %d, want 1", task.Question)
	}
	tomorrow := time.Now().AddDate(0, 0, 1)
	if task.DueDate.Day() != tomorrow.Day() {
		t.Errorf("due = %v, want tomorrow", task.DueDate)
	}
}

func TestSession_ReattemptSessionDoesNotChain(t *testing.T) {
	rec := &recorder{}
	cfg := testConfig(2, map[int]string{1: "A"})
	cfg.HomeworkSourced = true
	cfg.Reattempt = true

	s := session.New(1, cfg, session.Sinks{Task: rec})
	s.Start()
	s.SubmitAnswer("D") // wrong, but this session is itself a reattempt

	if len(rec.snapshot().tasks) != 0 {
		t.Error("reattempt session must not schedule further reattempts")
	}
}

func TestSession_NoKeyMeansUngradedOutcome(t *testing.T) {
	rec := &recorder{}
	s := session.New(1, testConfig(2, nil), session.Sinks{Result: rec})
	s.Start()
	s.SubmitAnswer("A")
	waitFor(t, func() bool { return s.Snapshot().Position == 1 }, "never advanced")
	s.Finish()

	got := rec.snapshot()
	if len(got.outcomes) != 1 {
		t.Fatal("expected an outcome")
	}
	o := got.outcomes[0]
	if o.Graded {
		t.Error("outcome must be ungraded without an answer key")
	}
	if o.Result.Score != 0 || len(o.Result.Incorrect) != 0 {
		t.Errorf("ungraded outcome must carry no score, got %+v", o.Result)
	}
	if len(o.Result.Timings) == 0 {
		t.Error("timings must still be logged")
	}
}

func TestSession_OperationsBeforeStartAreNoOps(t *testing.T) {
	s := session.New(1, testConfig(3, nil), session.Sinks{})

	s.SubmitAnswer("A")
	s.Navigate(2)
	s.MarkForReview()
	s.ClearAnswer()
	s.Finish()

	snap := s.Snapshot()
	if snap.State != session.StateNotStarted || len(snap.Answers) != 0 || snap.Position != 0 {
		t.Errorf("pre-start operations must not mutate state, got %+v", snap)
	}
}

func TestSession_ClearAnswer(t *testing.T) {
	s := session.New(1, testConfig(3, nil), session.Sinks{})
	s.Start()

	s.SubmitAnswer("A")
	waitFor(t, func() bool { return s.Snapshot().Position == 1 }, "never advanced")

	s.Navigate(0)
	s.ClearAnswer()

	if ans := s.Snapshot().Answers; len(ans) != 0 {
		t.Errorf("answers = %v, want cleared", ans)
	}
}

func TestSession_MarkForReviewTogglesAndAdvances(t *testing.T) {
	s := session.New(1, testConfig(3, nil), session.Sinks{})
	s.Start()

	s.MarkForReview()

	snap := s.Snapshot()
	if snap.Position != 1 {
		t.Errorf("position = %d, want 1 after review-advance", snap.Position)
	}
	if len(snap.Review) != 1 || snap.Review[0] != 1 {
		t.Errorf("review = %v, want [1]", snap.Review)
	}

	// Toggling off from the same question.
	s.Navigate(0)
	s.MarkForReview()
	if rev := s.Snapshot().Review; len(rev) != 0 {
		t.Errorf("review = %v, want empty after toggle", rev)
	}
}

func TestSession_CompositeSubjectLabelFollowsBandPlan(t *testing.T) {
	plan := scoring.DefaultCompositePlan()
	cfg := session.Config{
		Questions:          questions(plan.QuestionCount()),
		DurationSeconds:    3600,
		Mode:               model.ScoringModeComposite,
		Plan:               plan,
		TickInterval:       time.Hour,
		FeedbackWithKey:    5 * time.Millisecond,
		FeedbackWithoutKey: 5 * time.Millisecond,
	}

	s := session.New(1, cfg, session.Sinks{})
	s.Start()

	if subj := s.Snapshot().Subject; subj != "Physics" {
		t.Errorf("subject = %q, want Physics", subj)
	}

	s.Navigate(30)
	if subj := s.Snapshot().Subject; subj != "Chemistry" {
		t.Errorf("subject = %q, want Chemistry", subj)
	}
}
