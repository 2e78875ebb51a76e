package app

import (
	"context"
	"errors"

	"chapter-quiz-service/internal/domain"
	"chapter-quiz-service/internal/logger"
)

// AuthoringService validates and persists new chapters.
type AuthoringService struct {
	chapters ChapterStore
	log      *logger.Logger
}

func NewAuthoringService(chapters ChapterStore, log *logger.Logger) *AuthoringService {
	return &AuthoringService{chapters: chapters, log: log.With("service", "AuthoringService")}
}

// CreateChapter validates the draft and stores it atomically on behalf of author.
// Validation failures never reach the store.
func (s *AuthoringService) CreateChapter(ctx context.Context, author domain.Identity, draft domain.ChapterDraft) (int64, error) {
	if err := draft.Validate(); err != nil {
		return 0, err
	}
	normalized := draft.Normalized()

	id, err := s.chapters.CreateChapter(ctx, author.UserID, normalized)
	if err != nil {
		// The store re-checks every question inside the transaction.
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			verr.Title = normalized.Title
			verr.Description = normalized.Description
			return 0, verr
		}
		s.log.Error("create chapter failed", "author", author.UserID, "error", err)
		return 0, &domain.PersistenceError{Op: "create chapter", Err: err}
	}

	s.log.Info("chapter created", "chapter_id", id, "author", author.UserID, "questions", len(normalized.Questions))
	return id, nil
}
