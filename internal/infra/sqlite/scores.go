package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"chapter-quiz-service/internal/domain"
)

// UpsertBestScore keeps the greater count and always moves updated_at.
func (s *Store) UpsertBestScore(ctx context.Context, record domain.ScoreRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chapter_scores (chapter_id, user_id, correct_count, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (chapter_id, user_id) DO UPDATE SET
		   correct_count = MAX(chapter_scores.correct_count, excluded.correct_count),
		   updated_at = excluded.updated_at`,
		record.ChapterID, record.UserID, record.CorrectCount, toNanos(record.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert score: %w", err)
	}
	return nil
}

func (s *Store) GetScore(ctx context.Context, chapterID int64, userID string) (domain.ScoreRecord, error) {
	rec := domain.ScoreRecord{ChapterID: chapterID, UserID: userID}
	var updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT correct_count, updated_at FROM chapter_scores WHERE chapter_id = ? AND user_id = ?`,
		chapterID, userID,
	).Scan(&rec.CorrectCount, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ScoreRecord{}, domain.ErrNotFound
		}
		return domain.ScoreRecord{}, fmt.Errorf("query score: %w", err)
	}
	rec.UpdatedAt = fromNanos(updated)
	return rec, nil
}

func (s *Store) ListScores(ctx context.Context, chapterID int64) ([]domain.RankingEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cs.user_id, COALESCE(NULLIF(u.display_name, ''), cs.user_id), cs.correct_count, cs.updated_at
		 FROM chapter_scores cs
		 LEFT JOIN users u ON u.user_id = cs.user_id
		 WHERE cs.chapter_id = ?
		 ORDER BY cs.correct_count DESC, cs.updated_at ASC, cs.user_id ASC`, chapterID,
	)
	if err != nil {
		return nil, fmt.Errorf("query ranking: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.RankingEntry, 0)
	for rows.Next() {
		var (
			e       domain.RankingEntry
			updated int64
		)
		if err := rows.Scan(&e.UserID, &e.DisplayName, &e.CorrectCount, &updated); err != nil {
			return nil, fmt.Errorf("scan ranking entry: %w", err)
		}
		e.UpdatedAt = fromNanos(updated)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
