package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chapter-quiz-service/internal/domain"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Store implements the chapter, score and user stores on Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CreateChapter writes the chapter, its questions and four choices per
// question in one transaction. Any failure leaves nothing behind.
func (s *Store) CreateChapter(ctx context.Context, createdBy string, draft domain.ChapterDraft) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var chapterID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO chapters (title, description, created_by, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		draft.Title, draft.Description, createdBy, time.Now().UTC(),
	).Scan(&chapterID)
	if err != nil {
		return 0, fmt.Errorf("insert chapter: %w", err)
	}

	for i, q := range draft.Questions {
		if err := q.Validate(i); err != nil {
			return 0, err
		}
		q = q.Normalized()
		correct, _ := domain.ParseChoiceKey(q.Correct)

		var questionID int64
		if err := tx.QueryRow(ctx,
			`INSERT INTO questions (chapter_id, question_text) VALUES ($1, $2) RETURNING id`,
			chapterID, q.Text,
		).Scan(&questionID); err != nil {
			return 0, fmt.Errorf("insert question %d: %w", i+1, err)
		}

		batch := &pgx.Batch{}
		for _, key := range domain.ChoiceKeys {
			batch.Queue(
				`INSERT INTO choices (question_id, choice_key, choice_text, is_correct) VALUES ($1, $2, $3, $4)`,
				questionID, string(key), q.Option(key), key == correct,
			)
		}
		results := tx.SendBatch(ctx, batch)
		for range domain.ChoiceKeys {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return 0, fmt.Errorf("insert choices of question %d: %w", i+1, err)
			}
		}
		if err := results.Close(); err != nil {
			return 0, fmt.Errorf("insert choices of question %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit chapter: %w", err)
	}
	return chapterID, nil
}

func (s *Store) GetChapter(ctx context.Context, id int64) (domain.Chapter, error) {
	var c domain.Chapter
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, description, created_by, created_at FROM chapters WHERE id = $1`, id,
	).Scan(&c.ID, &c.Title, &c.Description, &c.CreatedBy, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Chapter{}, domain.ErrNotFound
		}
		return domain.Chapter{}, fmt.Errorf("query chapter: %w", err)
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return c, nil
}

// ListChapters returns chapters newest first.
func (s *Store) ListChapters(ctx context.Context) ([]domain.Chapter, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, description, created_by, created_at FROM chapters ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query chapters: %w", err)
	}
	defer rows.Close()

	chapters := make([]domain.Chapter, 0)
	for rows.Next() {
		var c domain.Chapter
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.CreatedBy, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chapter: %w", err)
		}
		c.CreatedAt = c.CreatedAt.UTC()
		chapters = append(chapters, c)
	}
	return chapters, rows.Err()
}

func (s *Store) QuizRows(ctx context.Context, chapterID int64) ([]domain.QuizRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT q.id, q.question_text, c.choice_key, c.choice_text
		 FROM questions q
		 JOIN choices c ON c.question_id = q.id
		 WHERE q.chapter_id = $1
		 ORDER BY q.id, c.choice_key`, chapterID,
	)
	if err != nil {
		return nil, fmt.Errorf("query quiz rows: %w", err)
	}
	defer rows.Close()

	var out []domain.QuizRow
	for rows.Next() {
		var (
			r   domain.QuizRow
			key string
		)
		if err := rows.Scan(&r.QuestionID, &r.QuestionText, &key, &r.ChoiceText); err != nil {
			return nil, fmt.Errorf("scan quiz row: %w", err)
		}
		r.Key = domain.ChoiceKey(key)
		out = append(out, r)
	}
	return out, rows.Err()
}

// AnswerKeys returns the correct choice per question. An unknown chapter yields
// an empty slice.
func (s *Store) AnswerKeys(ctx context.Context, chapterID int64) ([]domain.AnswerKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT q.id, c.choice_key
		 FROM questions q
		 JOIN choices c ON c.question_id = q.id AND c.is_correct
		 WHERE q.chapter_id = $1
		 ORDER BY q.id`, chapterID,
	)
	if err != nil {
		return nil, fmt.Errorf("query answer keys: %w", err)
	}
	defer rows.Close()

	var out []domain.AnswerKey
	for rows.Next() {
		var (
			k   domain.AnswerKey
			key string
		)
		if err := rows.Scan(&k.QuestionID, &key); err != nil {
			return nil, fmt.Errorf("scan answer key: %w", err)
		}
		k.Correct = domain.ChoiceKey(key)
		out = append(out, k)
	}
	return out, rows.Err()
}

// UpsertBestScore keeps the greater count and always moves updated_at.
func (s *Store) UpsertBestScore(ctx context.Context, record domain.ScoreRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO chapter_scores (chapter_id, user_id, correct_count, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (chapter_id, user_id) DO UPDATE SET
		   correct_count = GREATEST(chapter_scores.correct_count, EXCLUDED.correct_count),
		   updated_at = EXCLUDED.updated_at`,
		record.ChapterID, record.UserID, record.CorrectCount, record.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert score: %w", err)
	}
	return nil
}

func (s *Store) GetScore(ctx context.Context, chapterID int64, userID string) (domain.ScoreRecord, error) {
	rec := domain.ScoreRecord{ChapterID: chapterID, UserID: userID}
	err := s.pool.QueryRow(ctx,
		`SELECT correct_count, updated_at FROM chapter_scores WHERE chapter_id = $1 AND user_id = $2`,
		chapterID, userID,
	).Scan(&rec.CorrectCount, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ScoreRecord{}, domain.ErrNotFound
		}
		return domain.ScoreRecord{}, fmt.Errorf("query score: %w", err)
	}
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return rec, nil
}

func (s *Store) ListScores(ctx context.Context, chapterID int64) ([]domain.RankingEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT cs.user_id, COALESCE(NULLIF(u.display_name, ''), cs.user_id), cs.correct_count, cs.updated_at
		 FROM chapter_scores cs
		 LEFT JOIN users u ON u.user_id = cs.user_id
		 WHERE cs.chapter_id = $1
		 ORDER BY cs.correct_count DESC, cs.updated_at ASC, cs.user_id ASC`, chapterID,
	)
	if err != nil {
		return nil, fmt.Errorf("query ranking: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.RankingEntry, 0)
	for rows.Next() {
		var e domain.RankingEntry
		if err := rows.Scan(&e.UserID, &e.DisplayName, &e.CorrectCount, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan ranking entry: %w", err)
		}
		e.UpdatedAt = e.UpdatedAt.UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) CreateUser(ctx context.Context, user domain.User) error {
	var displayName *string
	if user.DisplayName != "" {
		displayName = &user.DisplayName
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (user_id, display_name, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		user.ID, displayName, user.PasswordHash, user.CreatedAt.UTC(),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicateUser
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	var (
		u    domain.User
		name *string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, display_name, password_hash, created_at FROM users WHERE user_id = $1`, id,
	).Scan(&u.ID, &name, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("query user: %w", err)
	}
	if name != nil {
		u.DisplayName = *name
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}
