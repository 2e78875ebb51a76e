package app

import (
	"context"
	"sort"

	"chapter-quiz-service/internal/domain"
	"chapter-quiz-service/internal/logger"
)

// DeliveryService assembles quizzes for presentation. It never exposes correctness.
type DeliveryService struct {
	chapters ChapterStore
	log      *logger.Logger
}

func NewDeliveryService(chapters ChapterStore, log *logger.Logger) *DeliveryService {
	return &DeliveryService{chapters: chapters, log: log.With("service", "DeliveryService")}
}

// Chapters lists every chapter, newest first.
func (s *DeliveryService) Chapters(ctx context.Context) ([]domain.Chapter, error) {
	chapters, err := s.chapters.ListChapters(ctx)
	if err != nil {
		s.log.Error("list chapters failed", "error", err)
		return nil, &domain.PersistenceError{Op: "list chapters", Err: err}
	}
	return chapters, nil
}

// Quiz returns the chapter with its questions and ordered choices.
func (s *DeliveryService) Quiz(ctx context.Context, chapterID int64) (domain.Quiz, error) {
	chapter, err := loadChapter(ctx, s.chapters, chapterID, s.log)
	if err != nil {
		return domain.Quiz{}, err
	}

	rows, err := s.chapters.QuizRows(ctx, chapterID)
	if err != nil {
		s.log.Error("load quiz rows failed", "chapter_id", chapterID, "error", err)
		return domain.Quiz{}, &domain.PersistenceError{Op: "load quiz", Err: err}
	}

	return domain.Quiz{Chapter: chapter, Questions: GroupQuizRows(rows)}, nil
}

// GroupQuizRows folds one-row-per-choice reads into questions. Rows of the same
// question need not be adjacent. Questions come out by id ascending and choices
// by key ascending.
func GroupQuizRows(rows []domain.QuizRow) []domain.QuizQuestion {
	questions := make([]domain.QuizQuestion, 0)
	index := make(map[int64]int)
	for _, row := range rows {
		i, ok := index[row.QuestionID]
		if !ok {
			i = len(questions)
			index[row.QuestionID] = i
			questions = append(questions, domain.QuizQuestion{
				ID:      row.QuestionID,
				Text:    row.QuestionText,
				Choices: make([]domain.QuizChoice, 0, len(domain.ChoiceKeys)),
			})
		}
		questions[i].Choices = append(questions[i].Choices, domain.QuizChoice{Key: row.Key, Text: row.ChoiceText})
	}

	sort.SliceStable(questions, func(i, j int) bool { return questions[i].ID < questions[j].ID })
	for i := range questions {
		choices := questions[i].Choices
		sort.SliceStable(choices, func(a, b int) bool { return choices[a].Key < choices[b].Key })
	}
	return questions
}
