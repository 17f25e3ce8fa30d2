package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ScoringMode selects the marking scheme for a session.
type ScoringMode string

const (
	// ScoringModeAdHoc is free practice: +4/−1/0, total = 4 × question count.
	ScoringModeAdHoc ScoringMode = "AD_HOC"
	// ScoringModeComposite is the fixed-format full mock exam: wrong
	// numeric-entry answers score 0 and the total is a fixed constant.
	ScoringModeComposite ScoringMode = "COMPOSITE"
)

// PracticeResult is the persisted outcome of a completed session.
// Timings and Incorrect are stored as jsonb; Analysis is null until the
// session is AI-graded.
type PracticeResult struct {
	ID        uuid.UUID       `json:"id"`
	SessionID uuid.UUID       `json:"session_id"`
	UserID    int             `json:"user_id"`
	Syllabus  string          `json:"syllabus"`
	Mode      ScoringMode     `json:"mode"`
	Graded    bool            `json:"graded"`
	Score     int             `json:"score"`
	TotalMark int             `json:"total_marks"`
	Incorrect json.RawMessage `json:"incorrect"`
	Timings   json.RawMessage `json:"timings"`
	Analysis  json.RawMessage `json:"analysis,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
