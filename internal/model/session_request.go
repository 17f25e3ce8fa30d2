package model

// CreateSessionRequest is the payload for creating a practice session. Either
// a bare question count (scanned-paper practice) or a list of rich questions
// must be supplied.
type CreateSessionRequest struct {
	QuestionCount   int               `json:"question_count" binding:"required_without=Questions,omitempty,min=1,max=200"`
	Questions       []QuestionInput   `json:"questions" binding:"omitempty,max=200,dive"`
	DurationSeconds int               `json:"duration_seconds" binding:"required,min=30,max=14400"`
	Mode            string            `json:"mode" binding:"omitempty,oneof=AD_HOC COMPOSITE"`
	Syllabus        string            `json:"syllabus" binding:"max=500"`
	AnswerKey       map[string]string `json:"answer_key"`
	HomeworkSourced bool              `json:"homework_sourced"`
	Reattempt       bool              `json:"reattempt"`
}

// SubmitAnswerRequest is the payload for answering the current question.
type SubmitAnswerRequest struct {
	Value string `json:"value" binding:"required,max=100"`
}

// NavigateRequest is the payload for jumping to a question (0-based index).
type NavigateRequest struct {
	Target *int `json:"target" binding:"required,min=0"`
}

// AIGradeRequest is the payload for requesting AI-assisted grading.
type AIGradeRequest struct {
	// AnswerKeyImage is a base64 data URL of the answer-key photo.
	AnswerKeyImage string `json:"answer_key_image" binding:"required"`
}
