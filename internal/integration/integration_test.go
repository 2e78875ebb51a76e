package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"chapter-quiz-service/internal/app"
	"chapter-quiz-service/internal/domain"
	"chapter-quiz-service/internal/infra/postgres"
	pgmigrations "chapter-quiz-service/internal/infra/postgres/migrations"
	infraredis "chapter-quiz-service/internal/infra/redis"
	"chapter-quiz-service/internal/logger"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
)

func TestChapterLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateSchema(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()
	store := postgres.NewStore(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	log := logger.Nop()
	answers := infraredis.NewAnswerKeyRepository(redisClient, store, 5*time.Minute, log)
	sessions := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	auth := app.NewAuthService(store, sessions, bcrypt.MinCost, log)
	authoring := app.NewAuthoringService(store, log)
	delivery := app.NewDeliveryService(store, log)
	ranking := app.NewRankingService(store, store, log)
	scoring := app.NewScoringService(answers, store, ranking, log)

	for _, id := range []string{"author", "alice", "bob"} {
		if _, err := auth.Register(ctx, id, "", "pw-"+id); err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
	}
	author, token, err := auth.Login(ctx, "author", "pw-author")
	if err != nil || token == "" {
		t.Fatalf("login: %v", err)
	}

	// Incomplete second question: nothing may persist.
	bad := domain.ChapterDraft{
		Title: "Math",
		Questions: []domain.QuestionDraft{
			{Text: "2+2?", Options: [4]string{"3", "4", "5", "6"}, Correct: "B"},
			{Text: "3*3?", Options: [4]string{"6", "8", "", "12"}, Correct: "C"},
		},
	}
	var verr *domain.ValidationError
	if _, err := authoring.CreateChapter(ctx, author, bad); !errors.As(err, &verr) || verr.Index != 1 {
		t.Fatalf("expected invalid question 2, got %v", err)
	}

	good := bad
	good.Questions = []domain.QuestionDraft{bad.Questions[0], {Text: "3*3?", Options: [4]string{"6", "8", "9", "12"}, Correct: "C"}}
	chapterID, err := authoring.CreateChapter(ctx, author, good)
	if err != nil {
		t.Fatalf("create chapter: %v", err)
	}
	chapters, err := delivery.Chapters(ctx)
	if err != nil || len(chapters) != 1 {
		t.Fatalf("expected exactly one chapter, got %+v %v", chapters, err)
	}

	quiz, err := delivery.Quiz(ctx, chapterID)
	if err != nil {
		t.Fatalf("quiz: %v", err)
	}
	if len(quiz.Questions) != 2 || len(quiz.Questions[0].Choices) != 4 {
		t.Fatalf("unexpected quiz %+v", quiz)
	}
	q1, q2 := quiz.Questions[0].ID, quiz.Questions[1].ID

	alice := domain.Identity{UserID: "alice", DisplayName: "alice"}
	bob := domain.Identity{UserID: "bob", DisplayName: "bob"}

	// Concurrent attempts by the same user: the greatest count must win.
	var g errgroup.Group
	for _, sheet := range []domain.AnswerSheet{{q1: "B", q2: "C"}, {q1: "B"}, {q1: "A"}, {q1: "B", q2: "A"}} {
		g.Go(func() error { return scoring.Submit(ctx, chapterID, alice, sheet) })
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := scoring.Submit(ctx, chapterID, bob, domain.AnswerSheet{q1: "B"}); err != nil {
		t.Fatalf("submit bob: %v", err)
	}

	got, err := ranking.Ranking(ctx, chapterID)
	if err != nil {
		t.Fatalf("ranking: %v", err)
	}
	if len(got.Entries) != 2 || got.Entries[0].UserID != "alice" || got.Entries[0].CorrectCount != 2 || got.Entries[1].CorrectCount != 1 {
		t.Fatalf("unexpected ranking %+v", got.Entries)
	}

	// two questions plus the count field
	if n, err := redisClient.HLen(ctx, fmt.Sprintf("chapter:%d:answers", chapterID)).Result(); err != nil || n != 3 {
		t.Fatalf("expected answer key cached in redis, got %d %v", n, err)
	}

	if err := auth.Logout(ctx, token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := auth.Authenticate(ctx, token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected session gone, got %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateSchema(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
