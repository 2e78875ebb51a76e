package http

import (
	"net/url"
	"strconv"
	"strings"

	"chapter-quiz-service/internal/domain"
)

// formList returns every value posted under name, accepting both repeated
// keys and the bracketed "name[]" form.
func formList(form url.Values, name string) []string {
	values := append([]string(nil), form[name]...)
	return append(values, form[name+"[]"]...)
}

func at(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}

// ParseChapterDraft turns the authoring form into an ordered list of question
// drafts. Per-question fields are aligned by position with questionText; a
// missing entry at an index is left empty and fails validation there. A lone
// blank questionText counts as no questions at all.
func ParseChapterDraft(form url.Values) domain.ChapterDraft {
	texts := formList(form, "questionText")
	if len(texts) == 1 && strings.TrimSpace(texts[0]) == "" {
		texts = nil
	}
	options := [4][]string{}
	for i, key := range domain.ChoiceKeys {
		options[i] = formList(form, "option"+string(key))
	}
	correct := formList(form, "correctChoice")

	draft := domain.ChapterDraft{
		Title:       form.Get("title"),
		Description: form.Get("description"),
		Questions:   make([]domain.QuestionDraft, 0, len(texts)),
	}
	for i, text := range texts {
		q := domain.QuestionDraft{Text: text, Correct: at(correct, i)}
		for k := range options {
			q.Options[k] = at(options[k], i)
		}
		draft.Questions = append(draft.Questions, q)
	}
	return draft
}

// ParseAnswerSheet reads answers[<questionId>]=<key> pairs. Malformed ids or
// keys are skipped and so count as unanswered.
func ParseAnswerSheet(form url.Values) domain.AnswerSheet {
	sheet := domain.AnswerSheet{}
	for name, values := range form {
		if !strings.HasPrefix(name, "answers[") || !strings.HasSuffix(name, "]") || len(values) == 0 {
			continue
		}
		id, err := strconv.ParseInt(name[len("answers["):len(name)-1], 10, 64)
		if err != nil {
			continue
		}
		if key, ok := domain.ParseChoiceKey(values[0]); ok {
			sheet[id] = key
		}
	}
	return sheet
}
