package opentdb

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func newTestClient(rt http.RoundTripper) *Client {
	return NewClient(&http.Client{Transport: rt}, "")
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
		Header:     make(http.Header),
	}
}

func TestGenerateDraftBuildsQuiz(t *testing.T) {
	var seenAmount, seenType string
	client := newTestClient(roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		seenAmount = r.URL.Query().Get("amount")
		seenType = r.URL.Query().Get("type")
		return jsonResponse(http.StatusOK, `{"response_code":0,"results":[
			{"type":"multiple","question":"Who wrote &quot;Hamlet&quot;?","correct_answer":"Shakespeare",
			 "incorrect_answers":["Marlowe","Jonson","Kyd"]}]}`), nil
	}))

	draft, err := client.GenerateDraft(context.Background(), "literature", 1)
	if err != nil {
		t.Fatalf("GenerateDraft returned error: %v", err)
	}
	if seenAmount != "1" || seenType != "multiple" {
		t.Fatalf("unexpected query amount=%q type=%q", seenAmount, seenType)
	}
	if draft.Title != "Trivia: literature" {
		t.Fatalf("unexpected title %q", draft.Title)
	}
	if len(draft.Questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(draft.Questions))
	}
	q := draft.Questions[0]
	if q.QuestionText != `Who wrote "Hamlet"?` {
		t.Fatalf("expected unescaped question, got %q", q.QuestionText)
	}
	if len(q.Options) != 4 {
		t.Fatalf("expected 4 options, got %d", len(q.Options))
	}
	correct := 0
	for _, opt := range q.Options {
		if opt.IsCorrect {
			correct++
			if opt.OptionText != "Shakespeare" {
				t.Fatalf("wrong option marked correct: %q", opt.OptionText)
			}
		}
	}
	if correct != 1 {
		t.Fatalf("expected exactly one correct option, got %d", correct)
	}
	if err := draft.Validate(); err != nil {
		t.Fatalf("draft should validate: %v", err)
	}
}

func TestFetchQuestionsPropagatesNonOKStatus(t *testing.T) {
	client := newTestClient(roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusBadGateway, ""), nil
	}))

	if _, err := client.FetchQuestions(context.Background(), 5); err == nil {
		t.Fatalf("expected error for non-200 status")
	}
}

func TestFetchQuestionsJSONDecodeError(t *testing.T) {
	client := newTestClient(roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, "not-json"), nil
	}))

	if _, err := client.FetchQuestions(context.Background(), 3); err == nil {
		t.Fatalf("expected JSON decode error")
	}
}

func TestFetchQuestionsNonZeroResponseCode(t *testing.T) {
	client := newTestClient(roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"response_code":1,"results":[]}`), nil
	}))

	if _, err := client.GenerateDraft(context.Background(), "x", 50); err == nil {
		t.Fatalf("expected error for non-zero response code")
	}
}
