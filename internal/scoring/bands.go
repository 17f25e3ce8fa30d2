package scoring

import "github.com/prepdesk/prepdesk-backend/internal/model"

// CompositeTotalMarks is the fixed possible score for the composite mock
// exam, regardless of how many questions were attempted.
const CompositeTotalMarks = 300

// Band is a contiguous run of questions sharing a subject and question type.
type Band struct {
	Subject string
	Type    model.QuestionType
	Count   int
}

// BandPlan maps 0-based question indexes to (subject, type) via contiguous
// bands. The same plan is consulted by scoring and by the subject label shown
// during a session, so the two cannot drift apart.
type BandPlan []Band

// DefaultCompositePlan returns the standard 75-question mock layout:
// three subjects, each 20 multiple-choice followed by 5 numeric-entry.
func DefaultCompositePlan() BandPlan {
	return BandPlan{
		{Subject: "Physics", Type: model.QuestionTypeMCQ, Count: 20},
		{Subject: "Physics", Type: model.QuestionTypeNumeric, Count: 5},
		{Subject: "Chemistry", Type: model.QuestionTypeMCQ, Count: 20},
		{Subject: "Chemistry", Type: model.QuestionTypeNumeric, Count: 5},
		{Subject: "Mathematics", Type: model.QuestionTypeMCQ, Count: 20},
		{Subject: "Mathematics", Type: model.QuestionTypeNumeric, Count: 5},
	}
}

// QuestionCount returns the total number of questions covered by the plan.
func (p BandPlan) QuestionCount() int {
	n := 0
	for _, b := range p {
		n += b.Count
	}
	return n
}

// At resolves a 0-based question index to its band. ok is false when the
// index falls outside the plan.
func (p BandPlan) At(index int) (subject string, qtype model.QuestionType, ok bool) {
	if index < 0 {
		return "", "", false
	}
	for _, b := range p {
		if index < b.Count {
			return b.Subject, b.Type, true
		}
		index -= b.Count
	}
	return "", "", false
}

// SubjectAt returns only the subject label for a 0-based index, or "" when
// the index is outside the plan.
func (p BandPlan) SubjectAt(index int) string {
	subject, _, _ := p.At(index)
	return subject
}
