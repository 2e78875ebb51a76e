package app

import (
	"context"
	"sync"

	"chapter-quiz-service/internal/domain"
	"chapter-quiz-service/internal/logger"
)

// RankingService reads chapter leaderboards and fans out live updates.
type RankingService struct {
	chapters ChapterStore
	scores   ScoreStore
	log      *logger.Logger

	mu          sync.Mutex
	subscribers map[int64]map[chan domain.Ranking]struct{}
}

func NewRankingService(chapters ChapterStore, scores ScoreStore, log *logger.Logger) *RankingService {
	return &RankingService{
		chapters:    chapters,
		scores:      scores,
		log:         log.With("service", "RankingService"),
		subscribers: make(map[int64]map[chan domain.Ranking]struct{}),
	}
}

// Ranking returns the ordered leaderboard of a chapter with 1-based ranks.
// Users with equal counts and timestamps still get distinct consecutive ranks.
func (s *RankingService) Ranking(ctx context.Context, chapterID int64) (domain.Ranking, error) {
	chapter, err := loadChapter(ctx, s.chapters, chapterID, s.log)
	if err != nil {
		return domain.Ranking{}, err
	}

	entries, err := s.scores.ListScores(ctx, chapterID)
	if err != nil {
		s.log.Error("load ranking failed", "chapter_id", chapterID, "error", err)
		return domain.Ranking{}, &domain.PersistenceError{Op: "load ranking", Err: err}
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return domain.Ranking{Chapter: chapter, Entries: entries}, nil
}

// Subscribe returns a channel that receives ranking snapshots for a chapter,
// starting with the current one. The caller must invoke cancel to avoid leaks.
func (s *RankingService) Subscribe(ctx context.Context, chapterID int64) (<-chan domain.Ranking, func(), error) {
	initial, err := s.Ranking(ctx, chapterID)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan domain.Ranking, 8)
	s.mu.Lock()
	subs, ok := s.subscribers[chapterID]
	if !ok {
		subs = make(map[chan domain.Ranking]struct{})
		s.subscribers[chapterID] = subs
	}
	subs[ch] = struct{}{}
	ch <- initial
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		subs := s.subscribers[chapterID]
		if _, ok := subs[ch]; !ok {
			return
		}
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(s.subscribers, chapterID)
		}
	}
	return ch, cancel, nil
}

// Refresh pushes a fresh snapshot to every subscriber of the chapter. Failures
// are logged only; the stored scores stay authoritative.
func (s *RankingService) Refresh(ctx context.Context, chapterID int64) {
	if !s.hasSubscribers(chapterID) {
		return
	}
	ranking, err := s.Ranking(ctx, chapterID)
	if err != nil {
		s.log.Warn("ranking refresh failed", "chapter_id", chapterID, "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcastLocked(chapterID, ranking)
}

func (s *RankingService) hasSubscribers(chapterID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers[chapterID]) > 0
}

func (s *RankingService) broadcastLocked(chapterID int64, ranking domain.Ranking) {
	for ch := range s.subscribers[chapterID] {
		select {
		case ch <- ranking:
		default:
			// Slow reader: drop its oldest snapshot so broadcast never blocks.
			select {
			case <-ch:
			default:
			}
			ch <- ranking
		}
	}
}
