package aigrader

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func chatReply(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	return string(b)
}

func testRequest() Request {
	return Request{
		AnswerKeyImage: "data:image/png;base64,aGVsbG8=",
		Answers:        map[int]string{1: "A", 2: "3"},
		Timings:        map[int]float64{1: 42.5, 2: 13},
		Syllabus:       "Electrostatics",
	}
}

func TestEngine_Grade(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header = %q", got)
		}
		w.Write([]byte(chatReply(`{"score": 8, "total_marks": 12, "incorrect_questions": [2],
			"subject_timings": {"Physics": 55.5}, "chapter_scores": {"Electrostatics": 50},
			"suggestions": "Revise field lines."}`)))
	}))
	defer srv.Close()

	e := New(srv.URL, "test-key", "test-model")

	analysis, err := e.Grade(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if analysis.Score != 8 || analysis.TotalMarks != 12 {
		t.Errorf("score = %d/%d, want 8/12", analysis.Score, analysis.TotalMarks)
	}
	if len(analysis.IncorrectQuestions) != 1 || analysis.IncorrectQuestions[0] != 2 {
		t.Errorf("incorrect = %v, want [2]", analysis.IncorrectQuestions)
	}
	if analysis.Suggestions == "" {
		t.Error("expected suggestions")
	}
}

func TestEngine_Grade_WrapsJSONInProse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatReply("Here is your grade:\n" +
			`{"score": 4, "total_marks": 8, "incorrect_questions": []}` +
			"\nGood luck!")))
	}))
	defer srv.Close()

	e := New(srv.URL, "test-key", "m")

	analysis, err := e.Grade(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if analysis.Score != 4 {
		t.Errorf("score = %d, want 4", analysis.Score)
	}
}

func TestEngine_Grade_RetriesOnGarbage(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Write([]byte(chatReply("I cannot read the image clearly.")))
			return
		}
		w.Write([]byte(chatReply(`{"score": 0, "total_marks": 8}`)))
	}))
	defer srv.Close()

	e := New(srv.URL, "test-key", "m")

	if _, err := e.Grade(context.Background(), testRequest()); err != nil {
		t.Fatalf("Grade after retry: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestEngine_Grade_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	e := New(srv.URL, "test-key", "m")

	_, err := e.Grade(context.Background(), testRequest())
	if err == nil {
		t.Fatal("expected an error")
	}
	var ge *GradeError
	if !errors.As(err, &ge) {
		t.Errorf("error type = %T, want *GradeError", err)
	}
}

func TestEngine_Grade_RequiresImage(t *testing.T) {
	e := New("http://unused", "test-key", "m")

	req := testRequest()
	req.AnswerKeyImage = ""

	if _, err := e.Grade(context.Background(), req); err == nil {
		t.Fatal("expected an error without an image")
	}
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{`noise {"a":{"b":2}} tail`, `{"a":{"b":2}}`},
		{`{"s":"brace } inside"}`, `{"s":"brace } inside"}`},
		{`no json here`, ``},
		{`{"unterminated": 1`, ``},
	}

	for _, c := range cases {
		if got := extractJSON(c.in); got != c.want {
			t.Errorf("extractJSON(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
