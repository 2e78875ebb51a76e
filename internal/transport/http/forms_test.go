package http

import (
	"errors"
	"net/url"
	"testing"

	"chapter-quiz-service/internal/domain"
)

func TestParseChapterDraftSingleQuestion(t *testing.T) {
	draft := ParseChapterDraft(mathForm())
	if draft.Title != "Math" || len(draft.Questions) != 1 {
		t.Fatalf("unexpected draft %+v", draft)
	}
	q := draft.Questions[0]
	if q.Text != "2+2?" || q.Options != [4]string{"3", "4", "5", "6"} || q.Correct != "B" {
		t.Fatalf("unexpected question %+v", q)
	}
}

func TestParseChapterDraftBracketedArrays(t *testing.T) {
	form := url.Values{
		"title":           {"Geo"},
		"questionText[]":  {"q1", "q2"},
		"optionA[]":       {"a1", "a2"},
		"optionB[]":       {"b1", "b2"},
		"optionC[]":       {"c1"},
		"optionD[]":       {"d1", "d2"},
		"correctChoice[]": {"A", "D"},
	}
	draft := ParseChapterDraft(form)
	if len(draft.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(draft.Questions))
	}
	if draft.Questions[1].Options[2] != "" || draft.Questions[1].Correct != "D" {
		t.Fatalf("expected missing option C at index 1 to be empty, got %+v", draft.Questions[1])
	}
	if err := draft.Validate(); err == nil {
		t.Fatalf("expected validation to reject the incomplete question")
	}
}

func TestParseChapterDraftNoQuestions(t *testing.T) {
	draft := ParseChapterDraft(url.Values{"title": {"Empty"}})
	if len(draft.Questions) != 0 {
		t.Fatalf("expected no questions, got %+v", draft.Questions)
	}
}

func TestParseChapterDraftSingleBlankQuestion(t *testing.T) {
	form := url.Values{"title": {"Empty"}, "questionText": {"  "}, "correctChoice": {"A"}}
	draft := ParseChapterDraft(form)
	if len(draft.Questions) != 0 {
		t.Fatalf("expected a lone blank question to be dropped, got %+v", draft.Questions)
	}
	var verr *domain.ValidationError
	if err := draft.Validate(); !errors.As(err, &verr) || verr.Kind != domain.ValidationMissingFields {
		t.Fatalf("expected missing fields, got %v", err)
	}

	// with several entries a blank one stays and is reported by position
	form = url.Values{"title": {"Two"}, "questionText": {"q1", ""}}
	if draft := ParseChapterDraft(form); len(draft.Questions) != 2 {
		t.Fatalf("expected both entries kept, got %d", len(draft.Questions))
	}
}

func TestParseAnswerSheet(t *testing.T) {
	form := url.Values{
		"answers[12]":  {"B"},
		"answers[13]":  {"Z"},
		"answers[abc]": {"A"},
		"other":        {"x"},
	}
	sheet := ParseAnswerSheet(form)
	if len(sheet) != 1 || sheet[12] != domain.ChoiceB {
		t.Fatalf("unexpected sheet %+v", sheet)
	}
}
