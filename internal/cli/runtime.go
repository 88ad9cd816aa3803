package cli

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"trivia-quiz/internal/app"
	"trivia-quiz/internal/config"
	"trivia-quiz/internal/domain"
	"trivia-quiz/internal/infra/file"
	"trivia-quiz/internal/infra/memory"
	"trivia-quiz/internal/infra/opentdb"
	"trivia-quiz/internal/infra/postgres"
	redisinfra "trivia-quiz/internal/infra/redis"
)

// runtime holds the collaborators every command shares.
type runtime struct {
	cfg    config.Config
	repo   app.StateRepository
	source app.QuestionSource
	auth   *app.AuthStore

	redis   *redis.Client
	pool    *pgxpool.Pool
	closers []func()
}

func loadRuntime(ctx context.Context, configPath string) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return newRuntime(ctx, cfg)
}

func newRuntime(ctx context.Context, cfg config.Config) (*runtime, error) {
	rt := &runtime{cfg: cfg}

	if cfg.Redis.Addr != "" {
		rt.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rt.closers = append(rt.closers, func() { _ = rt.redis.Close() })
		if err := rt.redis.Ping(ctx).Err(); err != nil {
			rt.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
	}

	if cfg.Postgres.URL != "" && (cfg.Storage.Backend == "postgres" || cfg.Source.Kind == "postgres") {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		rt.pool = pool
		rt.closers = append(rt.closers, pool.Close)
	}

	repo, err := rt.stateRepository()
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.repo = repo
	rt.source = rt.questionSource()
	rt.auth = app.NewAuthStore(ctx, rt.repo)
	return rt, nil
}

func (rt *runtime) stateRepository() (app.StateRepository, error) {
	switch rt.cfg.Storage.Backend {
	case "memory":
		return memory.NewStateStore(), nil
	case "redis":
		return redisinfra.NewStateStore(rt.redis, config.TTLDuration(rt.cfg.Redis.TTL, 7*24*time.Hour)), nil
	case "postgres":
		return postgres.NewStateStore(rt.pool), nil
	default:
		return file.NewStateStore(rt.cfg.Storage.Dir)
	}
}

func (rt *runtime) questionSource() app.QuestionSource {
	var source app.QuestionSource
	switch rt.cfg.Source.Kind {
	case "static":
		source = memory.NewStaticSource(memory.SampleQuestions())
	case "postgres":
		source = postgres.NewQuestionBank(rt.pool)
	default:
		source = opentdb.NewClient(rt.cfg.Source.URL, config.TTLDuration(rt.cfg.Source.Timeout, 10*time.Second))
	}
	if rt.cfg.Source.Cache && rt.redis != nil {
		source = redisinfra.NewQuestionCache(rt.redis, source, config.TTLDuration(rt.cfg.Redis.TTL, 7*24*time.Hour))
	}
	return source
}

// quizStore opens the persisted session.
func (rt *runtime) quizStore(ctx context.Context) *app.QuizStore {
	return app.NewQuizStore(ctx, rt.repo, app.WithDuration(rt.cfg.Quiz.Duration))
}

// controller builds a session controller over a freshly opened store.
func (rt *runtime) controller(ctx context.Context, opts ...app.ControllerOption) *app.Controller {
	difficulty, err := domain.ParseDifficulty(rt.cfg.Quiz.Difficulty)
	if err != nil {
		difficulty = domain.DifficultyMedium
	}
	seed := rt.cfg.Quiz.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	opts = append([]app.ControllerOption{
		app.WithShuffler(rand.New(rand.NewSource(seed))),
		app.WithAuthGate(rt.auth),
	}, opts...)

	return app.NewController(rt.quizStore(ctx), app.NewTimer(), rt.source, app.ControllerConfig{
		Amount:        rt.cfg.Quiz.Amount,
		Difficulty:    difficulty,
		FeedbackDelay: config.TTLDuration(rt.cfg.Quiz.FeedbackDelay, 500*time.Millisecond),
	}, opts...)
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}
