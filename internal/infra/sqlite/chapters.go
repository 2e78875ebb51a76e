package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"chapter-quiz-service/internal/domain"
)

// CreateChapter writes the chapter, its questions and four choices per
// question in one transaction. Any failure leaves nothing behind.
func (s *Store) CreateChapter(ctx context.Context, createdBy string, draft domain.ChapterDraft) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO chapters (title, description, created_by, created_at) VALUES (?, ?, ?, ?)`,
		draft.Title, draft.Description, createdBy, toNanos(time.Now()),
	)
	if err != nil {
		return 0, fmt.Errorf("insert chapter: %w", err)
	}
	chapterID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get chapter id: %w", err)
	}

	for i, q := range draft.Questions {
		if err := q.Validate(i); err != nil {
			return 0, err
		}
		q = q.Normalized()
		correct, _ := domain.ParseChoiceKey(q.Correct)

		res, err := tx.ExecContext(ctx,
			`INSERT INTO questions (chapter_id, question_text) VALUES (?, ?)`,
			chapterID, q.Text,
		)
		if err != nil {
			return 0, fmt.Errorf("insert question %d: %w", i+1, err)
		}
		questionID, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("get question id: %w", err)
		}

		for _, key := range domain.ChoiceKeys {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO choices (question_id, choice_key, choice_text, is_correct) VALUES (?, ?, ?, ?)`,
				questionID, string(key), q.Option(key), key == correct,
			); err != nil {
				return 0, fmt.Errorf("insert choice %s of question %d: %w", key, i+1, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit chapter: %w", err)
	}
	return chapterID, nil
}

func (s *Store) GetChapter(ctx context.Context, id int64) (domain.Chapter, error) {
	var (
		c       domain.Chapter
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, created_by, created_at FROM chapters WHERE id = ?`, id,
	).Scan(&c.ID, &c.Title, &c.Description, &c.CreatedBy, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Chapter{}, domain.ErrNotFound
		}
		return domain.Chapter{}, fmt.Errorf("query chapter: %w", err)
	}
	c.CreatedAt = fromNanos(created)
	return c, nil
}

// ListChapters returns chapters newest first.
func (s *Store) ListChapters(ctx context.Context) ([]domain.Chapter, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, description, created_by, created_at FROM chapters ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query chapters: %w", err)
	}
	defer rows.Close()

	chapters := make([]domain.Chapter, 0)
	for rows.Next() {
		var (
			c       domain.Chapter
			created int64
		)
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.CreatedBy, &created); err != nil {
			return nil, fmt.Errorf("scan chapter: %w", err)
		}
		c.CreatedAt = fromNanos(created)
		chapters = append(chapters, c)
	}
	return chapters, rows.Err()
}

func (s *Store) QuizRows(ctx context.Context, chapterID int64) ([]domain.QuizRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT q.id, q.question_text, c.choice_key, c.choice_text
		 FROM questions q
		 JOIN choices c ON c.question_id = q.id
		 WHERE q.chapter_id = ?
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
	rows, err := s.db.QueryContext(ctx,
		`SELECT q.id, c.choice_key
		 FROM questions q
		 JOIN choices c ON c.question_id = q.id AND c.is_correct = 1
		 WHERE q.chapter_id = ?
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
