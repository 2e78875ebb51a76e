package app_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"chapter-quiz-service/internal/app"
	"chapter-quiz-service/internal/domain"
	"chapter-quiz-service/internal/infra/memory"
	"chapter-quiz-service/internal/infra/sqlite"
	"chapter-quiz-service/internal/logger"
	"golang.org/x/crypto/bcrypt"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store     *sqlite.Store
	clock     *fakeClock
	authoring *app.AuthoringService
	delivery  *app.DeliveryService
	scoring   *app.ScoringService
	ranking   *app.RankingService
	auth      *app.AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if _, err := store.Migrate(ctx, logger.Nop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	log := logger.Nop()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	ranking := app.NewRankingService(store, store, log)
	answers := memory.NewAnswerKeyRepository(store, time.Minute)
	return &fixture{
		store:     store,
		clock:     clock,
		authoring: app.NewAuthoringService(store, log),
		delivery:  app.NewDeliveryService(store, log),
		scoring:   app.NewScoringServiceWithClock(answers, store, ranking, clock.Now, log),
		ranking:   ranking,
		auth:      app.NewAuthService(store, memory.NewSessionStore(time.Hour), bcrypt.MinCost, log),
	}
}

func (f *fixture) user(t *testing.T, id, name string) domain.Identity {
	t.Helper()
	user, err := f.auth.Register(context.Background(), id, name, "secret-"+id)
	if err != nil {
		t.Fatalf("register %s: %v", id, err)
	}
	return domain.Identity{UserID: user.ID, DisplayName: user.Name()}
}

func mathDraft() domain.ChapterDraft {
	return domain.ChapterDraft{
		Title:       "Math",
		Description: "warm-up",
		Questions: []domain.QuestionDraft{
			{Text: "2+2?", Options: [4]string{"3", "4", "5", "6"}, Correct: "B"},
		},
	}
}

func (f *fixture) chapter(t *testing.T, author domain.Identity, draft domain.ChapterDraft) int64 {
	t.Helper()
	id, err := f.authoring.CreateChapter(context.Background(), author, draft)
	if err != nil {
		t.Fatalf("create chapter: %v", err)
	}
	return id
}

func (f *fixture) questionIDs(t *testing.T, chapterID int64) []int64 {
	t.Helper()
	quiz, err := f.delivery.Quiz(context.Background(), chapterID)
	if err != nil {
		t.Fatalf("quiz: %v", err)
	}
	ids := make([]int64, len(quiz.Questions))
	for i, q := range quiz.Questions {
		ids[i] = q.ID
	}
	return ids
}
