package scoring

import (
	"sort"

	"github.com/prepdesk/prepdesk-backend/internal/model"
)

// Marking scheme: +4 for a correct answer, −1 for a wrong attempt, 0 for an
// unattempted question. In composite mode a wrong numeric-entry answer also
// scores 0 — only wrong multiple-choice answers take the penalty.
const (
	MarksCorrect = 4
	MarksWrong   = -1
)

// Result is the outcome of grading a session. Score, TotalMarks and
// Incorrect come from Grade; Timings and Syllabus are stamped by the session
// engine; Analysis stays nil until AI grading succeeds.
type Result struct {
	Score      int             `json:"score"`
	TotalMarks int             `json:"total_marks"`
	Incorrect  []int           `json:"incorrect"`
	Timings    map[int]float64 `json:"timings"`
	Syllabus   string          `json:"syllabus"`
	Analysis   *Analysis       `json:"analysis,omitempty"`
}

// Analysis is the detailed breakdown produced by the AI grading service.
type Analysis struct {
	Score              int                `json:"score"`
	TotalMarks         int                `json:"total_marks"`
	IncorrectQuestions []int              `json:"incorrect_questions"`
	SubjectTimings     map[string]float64 `json:"subject_timings"`
	ChapterScores      map[string]float64 `json:"chapter_scores"`
	Suggestions        string             `json:"suggestions"`
}

// Input carries everything Grade needs. Answers and Key are keyed by 1-based
// question number. Types holds explicit per-question types; when a question
// has one it wins over positional band inference (Plan), which is only a
// fallback for sessions created without rich question objects.
type Input struct {
	Answers       map[int]string
	Key           map[int]string
	QuestionCount int
	Mode          model.ScoringMode
	Plan          BandPlan
	Types         map[int]model.QuestionType
}

// Grade computes the local score. It is a pure function of its input: the
// same answers, key and mode always produce the same Result.
func Grade(in Input) Result {
	res := Result{
		Incorrect: []int{},
	}

	if in.Mode == model.ScoringModeComposite {
		res.TotalMarks = CompositeTotalMarks
	} else {
		res.TotalMarks = MarksCorrect * in.QuestionCount
	}

	for num := 1; num <= in.QuestionCount; num++ {
		expected, hasKey := in.Key[num]
		if !hasKey {
			continue
		}

		submitted, ok := in.Answers[num]
		if !ok || !Attempted(submitted) {
			continue
		}

		if Equal(submitted, expected) {
			res.Score += MarksCorrect
			continue
		}

		res.Incorrect = append(res.Incorrect, num)
		if penalized(in, num) {
			res.Score += MarksWrong
		}
	}

	sort.Ints(res.Incorrect)
	return res
}

// penalized reports whether a wrong attempt at the given question number
// costs a mark under the session's scoring mode.
func penalized(in Input, num int) bool {
	if in.Mode != model.ScoringModeComposite {
		return true
	}
	return questionType(in, num) != model.QuestionTypeNumeric
}

// questionType resolves a question's type, preferring explicit metadata over
// the positional band plan.
func questionType(in Input, num int) model.QuestionType {
	if t, ok := in.Types[num]; ok && t != "" {
		return t
	}
	if in.Plan != nil {
		if _, t, ok := in.Plan.At(num - 1); ok {
			return t
		}
	}
	return model.QuestionTypeMCQ
}
