package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/prepdesk/prepdesk-backend/internal/aigrader"
	"github.com/prepdesk/prepdesk-backend/internal/config"
	"github.com/prepdesk/prepdesk-backend/internal/model"
	"github.com/prepdesk/prepdesk-backend/internal/repository"
	"github.com/prepdesk/prepdesk-backend/internal/scoring"
	"github.com/prepdesk/prepdesk-backend/internal/session"
)

// Practice service errors. Handlers map these to typed response codes.
var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionNotFinished  = errors.New("session not finished")
	ErrSessionUngraded     = errors.New("session has no answer key")
	ErrBadQuestionCount    = errors.New("composite sessions must match the band plan question count")
	ErrAIGradeInProgress   = errors.New("ai grading already in progress")
	ErrBadAnswerKeyEntries = errors.New("answer key entries must be keyed by question number")
)

// PracticeService owns live practice sessions and their grading flows.
type PracticeService struct {
	manager    *session.Manager
	resultRepo *repository.ResultRepository
	grader     aigrader.Grader
	sinks      *queueSinks
	rdb        *redis.Client
	cfg        *config.Config
	log        zerolog.Logger
}

// NewPracticeService creates a new PracticeService.
func NewPracticeService(
	manager *session.Manager,
	resultRepo *repository.ResultRepository,
	grader aigrader.Grader,
	rdb *redis.Client,
	cfg *config.Config,
	log zerolog.Logger,
) *PracticeService {
	return &PracticeService{
		manager:    manager,
		resultRepo: resultRepo,
		grader:     grader,
		sinks:      newQueueSinks(rdb, log),
		rdb:        rdb,
		cfg:        cfg,
		log:        log.With().Str("component", "practice_service").Logger(),
	}
}

// Create builds a session from the request and registers it. The session is
// NotStarted until the caller hits start.
func (s *PracticeService) Create(ctx context.Context, userID int, req model.CreateSessionRequest) (session.Snapshot, error) {
	mode := model.ScoringModeAdHoc
	if req.Mode != "" {
		mode = model.ScoringMode(req.Mode)
	}

	var plan scoring.BandPlan
	if mode == model.ScoringModeComposite {
		plan = scoring.DefaultCompositePlan()
	}

	questions, err := buildQuestions(req, plan)
	if err != nil {
		return session.Snapshot{}, err
	}

	key, err := parseAnswerKey(req.AnswerKey, len(questions))
	if err != nil {
		return session.Snapshot{}, err
	}

	sess := session.New(userID, session.Config{
		Questions:          questions,
		DurationSeconds:    req.DurationSeconds,
		Key:                key,
		Mode:               mode,
		Plan:               plan,
		Syllabus:           req.Syllabus,
		HomeworkSourced:    req.HomeworkSourced,
		Reattempt:          req.Reattempt,
		FeedbackWithKey:    s.cfg.FeedbackWithKey,
		FeedbackWithoutKey: s.cfg.FeedbackWithoutKey,
	}, session.Sinks{
		Result:     s.sinks,
		Task:       s.sinks,
		Completion: s.sinks,
	})

	s.manager.Add(sess)

	// TTL outlives the longest possible run so an abandoned session cannot
	// pin the key forever; completion deletes it early.
	ttl := time.Duration(req.DurationSeconds)*time.Second + time.Hour
	if err := s.rdb.Set(ctx, config.CacheKey.UserActiveSessionKey(userID), sess.ID.String(), ttl).Err(); err != nil {
		s.log.Warn().Err(err).Int("user_id", userID).Msg("Set active session key")
	}

	s.log.Info().
		Str("session_id", sess.ID.String()).
		Int("user_id", userID).
		Str("mode", string(mode)).
		Int("questions", len(questions)).
		Msg("Session created")

	return sess.Snapshot(), nil
}

// buildQuestions assembles the ordered question sequence from either rich
// inputs or a bare count. Composite sessions must cover the whole band plan.
func buildQuestions(req model.CreateSessionRequest, plan scoring.BandPlan) ([]model.Question, error) {
	n := req.QuestionCount
	if len(req.Questions) > 0 {
		n = len(req.Questions)
	}

	if plan != nil && n != plan.QuestionCount() {
		return nil, ErrBadQuestionCount
	}

	questions := make([]model.Question, n)
	for i := range questions {
		questions[i] = model.Question{Number: i + 1}
		if i < len(req.Questions) {
			in := req.Questions[i]
			questions[i].Prompt = in.Prompt
			questions[i].Options = in.Options
			questions[i].Type = model.QuestionType(in.Type)
		}
	}
	return questions, nil
}

// parseAnswerKey converts the request's string-keyed map to question-number
// keys. Entries outside [1, n] are rejected — the invariant is that every
// key entry maps to a question in the sequence.
func parseAnswerKey(raw map[string]string, n int) (map[int]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	key := make(map[int]string, len(raw))
	for k, v := range raw {
		num, err := strconv.Atoi(k)
		if err != nil || num < 1 || num > n {
			return nil, ErrBadAnswerKeyEntries
		}
		key[num] = v
	}
	return key, nil
}

// Get returns a live session after checking ownership.
func (s *PracticeService) Get(id uuid.UUID, userID int) (*session.Session, error) {
	sess, ok := s.manager.Get(id)
	if !ok || sess.OwnerID != userID {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Result returns the outcome of a finished session, falling back to the
// persisted row once the live session has been evicted.
func (s *PracticeService) Result(ctx context.Context, id uuid.UUID, userID int) (*model.PracticeResult, error) {
	if sess, ok := s.manager.Get(id); ok && sess.OwnerID == userID {
		o := sess.Outcome()
		if o == nil {
			return nil, ErrSessionNotFinished
		}
		return outcomeToResult(id, userID, o), nil
	}

	res, err := s.resultRepo.GetBySession(ctx, id)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	if res.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return res, nil
}

func outcomeToResult(id uuid.UUID, userID int, o *session.Outcome) *model.PracticeResult {
	incorrect, _ := json.Marshal(o.Result.Incorrect)
	timings, _ := json.Marshal(o.Result.Timings)

	res := &model.PracticeResult{
		SessionID: id,
		UserID:    userID,
		Syllabus:  o.Result.Syllabus,
		Mode:      o.Mode,
		Graded:    o.Graded,
		Score:     o.Result.Score,
		TotalMark: o.Result.TotalMarks,
		Incorrect: incorrect,
		Timings:   timings,
	}
	if o.Result.Analysis != nil {
		res.Analysis, _ = json.Marshal(o.Result.Analysis)
	}
	return res
}

// History returns a user's persisted results, newest first.
func (s *PracticeService) History(ctx context.Context, userID, page, perPage int) ([]model.PracticeResult, int64, error) {
	return s.resultRepo.ListByUser(ctx, userID, page, perPage)
}

// AIGrade runs the external grading flow for a finished session. A Redis
// guard key rejects a second request while one is outstanding; the session's
// locally computed result is never modified on failure. Needs the live
// session — per-question answers are not persisted, so grading is only
// available until the janitor evicts it.
func (s *PracticeService) AIGrade(ctx context.Context, id uuid.UUID, userID int, imageDataURL string) (*scoring.Analysis, error) {
	sess, err := s.Get(id, userID)
	if err != nil {
		return nil, err
	}

	outcome := sess.Outcome()
	if outcome == nil {
		return nil, ErrSessionNotFinished
	}

	lockKey := config.CacheKey.SessionAIGradeLockKey(id.String())
	locked, err := s.rdb.SetNX(ctx, lockKey, "1", 2*time.Minute).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire grade lock: %w", err)
	}
	if !locked {
		return nil, ErrAIGradeInProgress
	}
	defer s.rdb.Del(context.Background(), lockKey)

	snap := sess.Snapshot()

	answers := make(map[int]string, len(snap.Answers))
	for num, v := range snap.Answers {
		answers[num] = scoring.Normalize(v)
	}

	analysis, err := s.grader.Grade(ctx, aigrader.Request{
		AnswerKeyImage: imageDataURL,
		Answers:        answers,
		Timings:        outcome.Result.Timings,
		Syllabus:       outcome.Result.Syllabus,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("session_id", id.String()).Msg("AI grading failed")
		return nil, err
	}

	payload, err := json.Marshal(analysis)
	if err != nil {
		return nil, fmt.Errorf("marshal analysis: %w", err)
	}
	if err := s.resultRepo.SetAnalysis(ctx, id, payload); err != nil {
		// The analysis was produced; persisting it can be retried. Surface the
		// analysis anyway.
		s.log.Error().Err(err).Str("session_id", id.String()).Msg("Persist analysis failed")
	}

	return analysis, nil
}

// ActiveSessionID returns the user's active session, if any.
func (s *PracticeService) ActiveSessionID(ctx context.Context, userID int) (string, error) {
	id, err := s.rdb.Get(ctx, config.CacheKey.UserActiveSessionKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return id, err
}
