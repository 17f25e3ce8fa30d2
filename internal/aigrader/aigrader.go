package aigrader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prepdesk/prepdesk-backend/internal/scoring"
)

// Grader produces a detailed analysis of a finished session by reading the
// student's answer-key photo. Implementations may call an LLM or return
// canned results (for tests).
type Grader interface {
	Grade(ctx context.Context, req Request) (*scoring.Analysis, error)
}

// Request carries everything the grading service needs.
type Request struct {
	// AnswerKeyImage is a data URL (base64) of the answer-key photo.
	AnswerKeyImage string
	Answers        map[int]string
	Timings        map[int]float64
	Syllabus       string
}

// GradeError is returned when grading fails so the caller can distinguish
// "the model returned garbage" from "the service was unreachable". Both are
// retryable from the student's point of view.
type GradeError struct {
	Reason  string
	Wrapped error
}

func (e *GradeError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("ai grading failed: %s: %v", e.Reason, e.Wrapped)
	}
	return fmt.Sprintf("ai grading failed: %s", e.Reason)
}

func (e *GradeError) Unwrap() error {
	return e.Wrapped
}

// Engine calls an OpenAI-compatible chat completions endpoint with the
// answer-key image attached.
type Engine struct {
	baseURL string
	apiKey  string
	model   string
	httpc   *http.Client
}

// Compile-time check: *Engine satisfies the Grader interface.
var _ Grader = (*Engine)(nil)

// New creates a grading engine for the given endpoint.
func New(baseURL, apiKey, model string) *Engine {
	return &Engine{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		httpc: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

const maxAttempts = 2

const systemPrompt = `You grade a student's practice test from a photo of the answer key.
You receive the student's answers (question number -> answer) and per-question
time spent in seconds, plus the syllabus label. Read the correct answers from
the image, compare after canonicalizing option labels (1/2/3/4 are the same as
A/B/C/D, case-insensitive), and return STRICT JSON only, no prose, matching:
{"score": int, "total_marks": int, "incorrect_questions": [int],
 "subject_timings": {"subject": seconds}, "chapter_scores": {"chapter": percent},
 "suggestions": "short actionable text"}`

// Grade asks the model for a detailed analysis. It retries once when the
// response cannot be parsed — vision models occasionally wrap the JSON in
// prose on the first try.
func (e *Engine) Grade(ctx context.Context, req Request) (*scoring.Analysis, error) {
	if e.apiKey == "" {
		return nil, &GradeError{Reason: "AI_API_KEY is empty"}
	}
	if req.AnswerKeyImage == "" {
		return nil, &GradeError{Reason: "answer key image is required"}
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		content, err := e.call(ctx, req)
		if err != nil {
			// Transport errors are not worth an immediate retry; surface them.
			return nil, &GradeError{Reason: "service call failed", Wrapped: err}
		}

		jsonStr := extractJSON(content)
		if jsonStr == "" {
			lastErr = &GradeError{Reason: "no JSON object found in model response"}
			continue
		}

		var analysis scoring.Analysis
		if err := json.Unmarshal([]byte(jsonStr), &analysis); err != nil {
			lastErr = &GradeError{Reason: "invalid JSON from model", Wrapped: err}
			continue
		}

		return &analysis, nil
	}

	return nil, &GradeError{
		Reason:  fmt.Sprintf("unparseable response after %d attempts", maxAttempts),
		Wrapped: lastErr,
	}
}

// ────────────────────────────────────────────────────────────────────────────
// Chat completions plumbing
// ────────────────────────────────────────────────────────────────────────────

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type imagePart struct {
	Type     string  `json:"type"`
	Text     string  `json:"text,omitempty"`
	ImageURL *imgURL `json:"image_url,omitempty"`
}

type imgURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (e *Engine) call(ctx context.Context, req Request) (string, error) {
	userPayload, err := json.Marshal(map[string]any{
		"answers":  req.Answers,
		"timings":  req.Timings,
		"syllabus": req.Syllabus,
	})
	if err != nil {
		return "", fmt.Errorf("marshal input: %w", err)
	}

	body := chatRequest{
		Model: e.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: []imagePart{
				{Type: "text", Text: "INPUT_JSON:\n" + string(userPayload)},
				{Type: "image_url", ImageURL: &imgURL{URL: req.AnswerKeyImage}},
			}},
		},
		Temperature: 0,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpc.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("service returned status %d", resp.StatusCode)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if len(chat.Choices) == 0 || chat.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("service returned no content")
	}

	return chat.Choices[0].Message.Content, nil
}

// extractJSON finds the outermost JSON object in a string. It handles nested
// braces and skips braces inside quoted strings.
func extractJSON(s string) string {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i, r := range s {
		if escaped {
			escaped = false
			continue
		}
		switch r {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				if depth == 0 {
					start = i
				}
				depth++
			}
		case '}':
			if !inString && depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					return s[start : i+1]
				}
			}
		}
	}

	return ""
}
