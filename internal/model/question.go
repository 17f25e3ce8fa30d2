package model

// QuestionType distinguishes multiple-choice from numeric-entry questions.
type QuestionType string

const (
	QuestionTypeMCQ     QuestionType = "MCQ"
	QuestionTypeNumeric QuestionType = "NUMERIC"
)

// Question is one entry in a practice session's ordered sequence.
// Number is the 1-based position shown to the student. Prompt and Options are
// optional — ad-hoc sessions built from a scanned paper carry numbers only.
// Type, when present, overrides positional band inference during scoring.
type Question struct {
	Number  int          `json:"number"`
	Prompt  string       `json:"prompt,omitempty"`
	Options []string     `json:"options,omitempty"`
	Type    QuestionType `json:"type,omitempty"`
}

// QuestionInput is the request shape for a rich question supplied at session
// creation time.
type QuestionInput struct {
	Prompt  string   `json:"prompt" binding:"max=2000"`
	Options []string `json:"options" binding:"max=10,dive,max=500"`
	Type    string   `json:"type" binding:"omitempty,oneof=MCQ NUMERIC"`
}
