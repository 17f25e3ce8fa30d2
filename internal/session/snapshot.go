package session

import (
	"sort"

	"github.com/prepdesk/prepdesk-backend/internal/model"
)

// Snapshot is a consistent read-only view of a session, safe to serialize.
type Snapshot struct {
	ID            string            `json:"id"`
	State         State             `json:"state"`
	Mode          model.ScoringMode `json:"mode"`
	Syllabus      string            `json:"syllabus"`
	Position      int               `json:"position"`
	QuestionCount int               `json:"question_count"`
	Subject       string            `json:"subject,omitempty"`
	Remaining     int               `json:"remaining_seconds"`
	Answers       map[int]string    `json:"answers"`
	Review        []int             `json:"review"`
	Feedback      *Feedback         `json:"feedback,omitempty"`
}

// Snapshot captures the session state under the lock.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	answers := make(map[int]string, len(s.answers))
	for k, v := range s.answers {
		answers[k] = v
	}

	review := make([]int, 0, len(s.review))
	for num := range s.review {
		review = append(review, num)
	}
	sort.Ints(review)

	var fb *Feedback
	if s.feedback != nil {
		f := *s.feedback
		fb = &f
	}

	snap := Snapshot{
		ID:            s.ID.String(),
		State:         s.state,
		Mode:          s.cfg.Mode,
		Syllabus:      s.cfg.Syllabus,
		Position:      s.pos,
		QuestionCount: len(s.cfg.Questions),
		Remaining:     s.remaining,
		Answers:       answers,
		Review:        review,
		Feedback:      fb,
	}

	if s.cfg.Plan != nil {
		snap.Subject = s.cfg.Plan.SubjectAt(s.pos)
	}

	return snap
}
