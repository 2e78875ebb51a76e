package app

import (
	"context"
	"errors"

	"chapter-quiz-service/internal/domain"
	"chapter-quiz-service/internal/logger"
)

// ChapterStore persists chapters and serves their read models (Postgres, SQLite).
type ChapterStore interface {
	// CreateChapter writes the chapter, its questions and their choices in one
	// transaction and returns the new chapter id.
	CreateChapter(ctx context.Context, createdBy string, draft domain.ChapterDraft) (int64, error)
	GetChapter(ctx context.Context, id int64) (domain.Chapter, error)
	ListChapters(ctx context.Context) ([]domain.Chapter, error)
	// QuizRows returns one row per choice, ordered by question id then choice key.
	QuizRows(ctx context.Context, chapterID int64) ([]domain.QuizRow, error)
}

// AnswerKeyRepository loads a chapter's answer key, from cache or backing store.
type AnswerKeyRepository interface {
	AnswerKeys(ctx context.Context, chapterID int64) ([]domain.AnswerKey, error)
}

// ScoreStore keeps best scores.
type ScoreStore interface {
	// UpsertBestScore inserts the record or keeps the greater count, always
	// refreshing the timestamp, in a single atomic statement.
	UpsertBestScore(ctx context.Context, record domain.ScoreRecord) error
	GetScore(ctx context.Context, chapterID int64, userID string) (domain.ScoreRecord, error)
	// ListScores returns entries ordered by count desc, updated asc, user id asc.
	ListScores(ctx context.Context, chapterID int64) ([]domain.RankingEntry, error)
}

// UserStore reads provisioned accounts.
type UserStore interface {
	GetUser(ctx context.Context, id string) (domain.User, error)
	CreateUser(ctx context.Context, user domain.User) error
}

// SessionRepository abstracts where login sessions live (in-memory, Redis).
type SessionRepository interface {
	Create(ctx context.Context, identity domain.Identity) (string, error)
	// Get returns domain.ErrUnauthorized for unknown or expired tokens.
	Get(ctx context.Context, token string) (domain.Identity, error)
	Delete(ctx context.Context, token string) error
}

func loadChapter(ctx context.Context, chapters ChapterStore, id int64, log *logger.Logger) (domain.Chapter, error) {
	chapter, err := chapters.GetChapter(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Chapter{}, &domain.NotFoundError{Resource: "chapter", ID: id}
		}
		log.Error("load chapter failed", "chapter_id", id, "error", err)
		return domain.Chapter{}, &domain.PersistenceError{Op: "load chapter", Err: err}
	}
	return chapter, nil
}
