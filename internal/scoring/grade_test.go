package scoring

import (
	"reflect"
	"testing"

	"github.com/prepdesk/prepdesk-backend/internal/model"
)

func TestGrade_AdHoc(t *testing.T) {
	in := Input{
		Answers:       map[int]string{1: "A", 2: "B", 3: ""},
		Key:           map[int]string{1: "A", 2: "C", 3: "D"},
		QuestionCount: 3,
		Mode:          model.ScoringModeAdHoc,
	}

	res := Grade(in)

	if res.Score != 3 {
		t.Errorf("score = %d, want 3 (+4 −1 +0)", res.Score)
	}
	if res.TotalMarks != 12 {
		t.Errorf("total = %d, want 12", res.TotalMarks)
	}
	if !reflect.DeepEqual(res.Incorrect, []int{2}) {
		t.Errorf("incorrect = %v, want [2]", res.Incorrect)
	}
}

func TestGrade_NormalizedAnswersMatch(t *testing.T) {
	// "1" should grade identically to "a"/"A" against key "A".
	in := Input{
		Answers:       map[int]string{1: "1", 2: " a "},
		Key:           map[int]string{1: "A", 2: "A"},
		QuestionCount: 2,
		Mode:          model.ScoringModeAdHoc,
	}

	res := Grade(in)
	if res.Score != 8 {
		t.Errorf("score = %d, want 8", res.Score)
	}
	if len(res.Incorrect) != 0 {
		t.Errorf("incorrect = %v, want empty", res.Incorrect)
	}
}

func TestGrade_CompositeNumericBandNoPenalty(t *testing.T) {
	plan := DefaultCompositePlan()

	// Question 21 (0-based index 20) sits in the Physics numeric band;
	// question 1 is Physics MCQ.
	in := Input{
		Answers:       map[int]string{1: "B", 21: "17"},
		Key:           map[int]string{1: "A", 21: "23"},
		QuestionCount: plan.QuestionCount(),
		Mode:          model.ScoringModeComposite,
		Plan:          plan,
	}

	res := Grade(in)

	// Wrong MCQ: −1. Wrong numeric: 0.
	if res.Score != -1 {
		t.Errorf("score = %d, want -1", res.Score)
	}
	if res.TotalMarks != CompositeTotalMarks {
		t.Errorf("total = %d, want %d", res.TotalMarks, CompositeTotalMarks)
	}
	if !reflect.DeepEqual(res.Incorrect, []int{1, 21}) {
		t.Errorf("incorrect = %v, want [1 21]", res.Incorrect)
	}
}

func TestGrade_ExplicitTypeBeatsBandInference(t *testing.T) {
	plan := DefaultCompositePlan()

	// Index 0 is an MCQ band position, but the caller declared the question
	// numeric — explicit metadata wins, so no penalty.
	in := Input{
		Answers:       map[int]string{1: "9"},
		Key:           map[int]string{1: "8"},
		QuestionCount: plan.QuestionCount(),
		Mode:          model.ScoringModeComposite,
		Plan:          plan,
		Types:         map[int]model.QuestionType{1: model.QuestionTypeNumeric},
	}

	if res := Grade(in); res.Score != 0 {
		t.Errorf("score = %d, want 0", res.Score)
	}
}

func TestGrade_Deterministic(t *testing.T) {
	in := Input{
		Answers:       map[int]string{1: "A", 2: "D", 3: "2", 4: "C"},
		Key:           map[int]string{1: "A", 2: "B", 3: "B", 4: "C"},
		QuestionCount: 4,
		Mode:          model.ScoringModeAdHoc,
	}

	first := Grade(in)
	for i := 0; i < 10; i++ {
		if got := Grade(in); !reflect.DeepEqual(got, first) {
			t.Fatalf("grading is not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestGrade_WhitespaceOnlyAnswerIsUnattempted(t *testing.T) {
	in := Input{
		Answers:       map[int]string{1: "   "},
		Key:           map[int]string{1: "A"},
		QuestionCount: 1,
		Mode:          model.ScoringModeAdHoc,
	}

	res := Grade(in)
	if res.Score != 0 {
		t.Errorf("score = %d, want 0 for whitespace-only answer", res.Score)
	}
	if len(res.Incorrect) != 0 {
		t.Errorf("whitespace-only answer must not be listed as incorrect, got %v", res.Incorrect)
	}
}

func TestBandPlan_At(t *testing.T) {
	plan := DefaultCompositePlan()

	cases := []struct {
		index   int
		subject string
		qtype   model.QuestionType
		ok      bool
	}{
		{0, "Physics", model.QuestionTypeMCQ, true},
		{19, "Physics", model.QuestionTypeMCQ, true},
		{20, "Physics", model.QuestionTypeNumeric, true},
		{24, "Physics", model.QuestionTypeNumeric, true},
		{25, "Chemistry", model.QuestionTypeMCQ, true},
		{49, "Chemistry", model.QuestionTypeNumeric, true},
		{50, "Mathematics", model.QuestionTypeMCQ, true},
		{74, "Mathematics", model.QuestionTypeNumeric, true},
		{75, "", "", false},
		{-1, "", "", false},
	}

	for _, c := range cases {
		subject, qtype, ok := plan.At(c.index)
		if subject != c.subject || qtype != c.qtype || ok != c.ok {
			t.Errorf("At(%d) = (%q, %q, %v), want (%q, %q, %v)",
				c.index, subject, qtype, ok, c.subject, c.qtype, c.ok)
		}
	}

	if plan.QuestionCount() != 75 {
		t.Errorf("QuestionCount = %d, want 75", plan.QuestionCount())
	}
}
