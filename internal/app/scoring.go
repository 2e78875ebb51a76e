package app

import (
	"context"
	"errors"
	"time"

	"chapter-quiz-service/internal/domain"
	"chapter-quiz-service/internal/logger"
)

// RankingNotifier is told when a chapter's scores may have changed.
type RankingNotifier interface {
	Refresh(ctx context.Context, chapterID int64)
}

// ScoringService grades submissions and keeps each user's best score.
type ScoringService struct {
	answers  AnswerKeyRepository
	scores   ScoreStore
	notifier RankingNotifier
	now      func() time.Time
	log      *logger.Logger
}

// NewScoringService wires the grader. notifier may be nil.
func NewScoringService(answers AnswerKeyRepository, scores ScoreStore, notifier RankingNotifier, log *logger.Logger) *ScoringService {
	return NewScoringServiceWithClock(answers, scores, notifier, time.Now, log)
}

// NewScoringServiceWithClock is test-only for deterministic timestamps.
func NewScoringServiceWithClock(answers AnswerKeyRepository, scores ScoreStore, notifier RankingNotifier, now func() time.Time, log *logger.Logger) *ScoringService {
	return &ScoringService{
		answers:  answers,
		scores:   scores,
		notifier: notifier,
		now:      now,
		log:      log.With("service", "ScoringService"),
	}
}

// Submit grades the sheet against the chapter's answer key and records the
// result as the user's best score if it is not lower than the stored one.
// The update timestamp moves on every attempt.
func (s *ScoringService) Submit(ctx context.Context, chapterID int64, who domain.Identity, answers domain.AnswerSheet) error {
	keys, err := s.answers.AnswerKeys(ctx, chapterID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &domain.NotFoundError{Resource: "chapter", ID: chapterID}
		}
		s.log.Error("load answer key failed", "chapter_id", chapterID, "error", err)
		return &domain.PersistenceError{Op: "load answer key", Err: err}
	}
	if len(keys) == 0 {
		return &domain.NotFoundError{Resource: "chapter", ID: chapterID}
	}

	correct := Grade(keys, answers)
	record := domain.ScoreRecord{
		ChapterID:    chapterID,
		UserID:       who.UserID,
		CorrectCount: correct,
		UpdatedAt:    s.now().UTC(),
	}
	if err := s.scores.UpsertBestScore(ctx, record); err != nil {
		s.log.Error("record score failed", "chapter_id", chapterID, "user_id", who.UserID, "error", err)
		return &domain.PersistenceError{Op: "record score", Err: err}
	}

	s.log.Info("submission graded", "chapter_id", chapterID, "user_id", who.UserID, "correct", correct, "total", len(keys))
	if s.notifier != nil {
		s.notifier.Refresh(ctx, chapterID)
	}
	return nil
}

// Grade counts answer-key entries matched exactly by the sheet. Answers for
// unknown question ids are ignored; missing answers count as incorrect.
func Grade(keys []domain.AnswerKey, answers domain.AnswerSheet) int {
	correct := 0
	for _, key := range keys {
		if chosen, ok := answers[key.QuestionID]; ok && chosen == key.Correct {
			correct++
		}
	}
	return correct
}
