package app_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"chapter-quiz-service/internal/app"
	"chapter-quiz-service/internal/domain"
	"golang.org/x/sync/errgroup"
)

func TestGrade(t *testing.T) {
	keys := []domain.AnswerKey{{QuestionID: 1, Correct: "B"}, {QuestionID: 2, Correct: "C"}, {QuestionID: 3, Correct: "A"}}
	cases := []struct {
		name    string
		answers domain.AnswerSheet
		want    int
	}{
		{"all correct", domain.AnswerSheet{1: "B", 2: "C", 3: "A"}, 3},
		{"missing answers count as wrong", domain.AnswerSheet{1: "B"}, 1},
		{"unknown questions are ignored", domain.AnswerSheet{1: "B", 99: "A"}, 1},
		{"empty sheet", nil, 0},
	}
	for _, tc := range cases {
		if got := app.Grade(keys, tc.answers); got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}

func TestSubmitKeepsBestScoreAndRefreshesTimestamp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author", "")
	student := f.user(t, "sam", "Sam")
	id := f.chapter(t, author, mathDraft())
	q := f.questionIDs(t, id)[0]

	if err := f.scoring.Submit(ctx, id, student, domain.AnswerSheet{q: "B"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	first, err := f.store.GetScore(ctx, id, "sam")
	if err != nil {
		t.Fatalf("get score: %v", err)
	}
	if first.CorrectCount != 1 {
		t.Fatalf("expected 1 correct, got %d", first.CorrectCount)
	}

	f.clock.Advance(time.Minute)
	if err := f.scoring.Submit(ctx, id, student, domain.AnswerSheet{q: "A"}); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	second, err := f.store.GetScore(ctx, id, "sam")
	if err != nil {
		t.Fatalf("get score: %v", err)
	}
	if second.CorrectCount != 1 {
		t.Fatalf("expected best score 1 to be kept, got %d", second.CorrectCount)
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Fatalf("expected timestamp to move on a non-improving attempt: %v -> %v", first.UpdatedAt, second.UpdatedAt)
	}
}

func TestSubmitSameAnswersTwiceIsNotDoubleCounted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author", "")
	student := f.user(t, "sam", "")
	id := f.chapter(t, author, mathDraft())
	q := f.questionIDs(t, id)[0]

	for i := 0; i < 2; i++ {
		if err := f.scoring.Submit(ctx, id, student, domain.AnswerSheet{q: "B"}); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	rec, err := f.store.GetScore(ctx, id, "sam")
	if err != nil || rec.CorrectCount != 1 {
		t.Fatalf("expected count 1, got %+v %v", rec, err)
	}
}

func TestSubmitUnknownChapter(t *testing.T) {
	f := newFixture(t)
	student := f.user(t, "sam", "")
	err := f.scoring.Submit(context.Background(), 77, student, domain.AnswerSheet{1: "A"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestConcurrentSubmissionsKeepMaximum(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author", "")
	student := f.user(t, "sam", "")

	draft := mathDraft()
	for i := 0; i < 4; i++ {
		draft.Questions = append(draft.Questions, domain.QuestionDraft{
			Text:    fmt.Sprintf("extra %d", i),
			Options: [4]string{"a", "b", "c", "d"},
			Correct: "A",
		})
	}
	id := f.chapter(t, author, draft)
	ids := f.questionIDs(t, id)

	var g errgroup.Group
	for n := 0; n <= len(ids); n++ {
		sheet := domain.AnswerSheet{}
		for i, qid := range ids {
			if i >= n {
				break
			}
			if i == 0 {
				sheet[qid] = "B"
			} else {
				sheet[qid] = "A"
			}
		}
		g.Go(func() error {
			return f.scoring.Submit(ctx, id, student, sheet)
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("submit: %v", err)
	}

	rec, err := f.store.GetScore(ctx, id, "sam")
	if err != nil {
		t.Fatalf("get score: %v", err)
	}
	if rec.CorrectCount != len(ids) {
		t.Fatalf("expected maximum %d to win, got %d", len(ids), rec.CorrectCount)
	}
}
