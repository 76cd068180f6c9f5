package integration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"quizmaster-service/internal/app"
	"quizmaster-service/internal/cli"
	"quizmaster-service/internal/domain"
	pgstore "quizmaster-service/internal/infra/postgres"
	infraredis "quizmaster-service/internal/infra/redis"
)

func TestQuizLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := cli.RunMigrations(ctx, pgURL, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// A second run is a no-op.
	if err := cli.RunMigrations(ctx, pgURL, logger); err != nil {
		t.Fatalf("migrate again: %v", err)
	}

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	store := pgstore.NewQuizStore(pool)
	cached := infraredis.NewCachedQuizStore(store, redisClient, 5*time.Minute, logger)
	service := app.NewQuizService(cached, pgstore.NewLedger(pool),
		app.WithNotifier(infraredis.NewNotifier(redisClient)),
		app.WithLogger(logger),
	)

	quiz, err := service.CreateQuiz(ctx, capitals())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.CreateQuiz(ctx, capitals(), quiz.ShareCode); !errors.Is(err, domain.ErrShareCodeTaken) {
		t.Fatalf("expected unique violation to map to ErrShareCodeTaken, got %v", err)
	}

	public, err := service.GetQuiz(ctx, strings.ToLower(quiz.ShareCode))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(public.Questions) != 1 || public.Questions[0].Options[0].OptionText != "Paris" {
		t.Fatalf("unexpected public view %+v", public)
	}
	again, err := service.GetQuiz(ctx, quiz.ShareCode)
	if err != nil {
		t.Fatalf("get cached: %v", err)
	}
	if again.Questions[0].Options[1].ID != public.Questions[0].Options[1].ID {
		t.Fatalf("cached view differs from stored view")
	}

	updates, err := service.WatchRanking(ctx, quiz.ShareCode)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	<-updates

	question := public.Questions[0]
	paris, lyon := question.Options[0], question.Options[1]
	submit := func(player string, option int64, want int) {
		t.Helper()
		result, err := service.Submit(ctx, quiz.ShareCode, player, []domain.Answer{{QuestionID: question.ID, OptionID: option}})
		if err != nil {
			t.Fatalf("submit %s: %v", player, err)
		}
		if result.Score != want || result.TotalQuestions != 1 {
			t.Fatalf("submit %s: got %+v, want score %d", player, result, want)
		}
	}
	submit("Lyon fan", lyon.ID, 0)
	submit("Ana", paris.ID, 1)
	submit("Bo", paris.ID, 1)

	select {
	case <-updates:
	case <-time.After(5 * time.Second):
		t.Fatalf("expected ranking update over redis pub/sub")
	}

	ranking, err := service.Ranking(ctx, quiz.ShareCode)
	if err != nil {
		t.Fatalf("ranking: %v", err)
	}
	if len(ranking) != 3 || ranking[0].PlayerName != "Ana" || ranking[1].PlayerName != "Bo" || ranking[2].PlayerName != "Lyon fan" {
		t.Fatalf("unexpected ranking %+v", ranking)
	}

	summaries, err := service.ListQuizzes(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(summaries) != 1 || summaries[0].QuestionCount != 1 {
		t.Fatalf("unexpected summaries %+v", summaries)
	}

	if err := service.DeleteQuiz(ctx, quiz.ShareCode); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := service.GetQuiz(ctx, quiz.ShareCode); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	var leftovers int
	if err := pool.QueryRow(ctx, `SELECT (SELECT COUNT(*) FROM questions) + (SELECT COUNT(*) FROM options) + (SELECT COUNT(*) FROM submissions)`).Scan(&leftovers); err != nil {
		t.Fatalf("count leftovers: %v", err)
	}
	if leftovers != 0 {
		t.Fatalf("expected cascade delete, %d rows left", leftovers)
	}
}

func capitals() domain.NewQuiz {
	return domain.NewQuiz{
		Title: "Capitals",
		Questions: []domain.NewQuestion{
			{
				QuestionText: "Capital of France?",
				Options: []domain.NewOption{
					{OptionText: "Paris", IsCorrect: true},
					{OptionText: "Lyon"},
				},
			},
		},
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
