package suite

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-arena/internal/repository/migrations"
)

const (
	expireDuration  = 120
	maxWaitDuration = 120 * time.Second
)

const (
	redisPort  = "6379/tcp"
	redisImage = "redis"
	redisTag   = "alpine"

	postgresPort     = "5432/tcp"
	postgresImage    = "postgres"
	postgresTag      = "16-alpine"
	postgresUser     = "tictactoe"
	postgresPassword = "tictactoe"
	postgresDB       = "tictactoe"

	natsPort  = "4222/tcp"
	natsImage = "nats"
	natsTag   = "2-alpine"
)

type Suite struct {
	*testing.T
	Logger *slog.Logger

	Storage  *redis.Client
	Postgres *pgxpool.Pool
	NATSURL  string
}

// New - suite backed by a fresh redis container.
func New(t *testing.T) (context.Context, *Suite) {
	t.Helper()

	ctx, pool, st := setup(t)

	resource := run(t, pool, &dockertest.RunOptions{
		Repository: redisImage,
		Tag:        redisTag,
		Env:        []string{},
	})

	redisHost := resource.GetHostPort(redisPort)

	var redisClient *redis.Client
	if err := pool.Retry(func() error {
		redisClient = redis.NewClient(&redis.Options{
			Addr: redisHost,
		})
		return redisClient.Ping(ctx).Err()
	}); err != nil {
		t.Fatalf("could not connect to redis: %v", err)
	}

	if err := redisClient.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("could not flush database: %v", err)
	}

	t.Cleanup(func() {
		_ = redisClient.Close()
	})

	st.Storage = redisClient

	return ctx, st
}

// NewPostgres - suite backed by a fresh, migrated postgres container.
func NewPostgres(t *testing.T) (context.Context, *Suite) {
	t.Helper()

	ctx, pool, st := setup(t)

	resource := run(t, pool, &dockertest.RunOptions{
		Repository: postgresImage,
		Tag:        postgresTag,
		Env: []string{
			"POSTGRES_USER=" + postgresUser,
			"POSTGRES_PASSWORD=" + postgresPassword,
			"POSTGRES_DB=" + postgresDB,
		},
	})

	databaseURL := fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable",
		postgresUser, postgresPassword, resource.GetHostPort(postgresPort), postgresDB)

	var pgPool *pgxpool.Pool
	if err := pool.Retry(func() error {
		var err error
		if pgPool, err = pgxpool.New(ctx, databaseURL); err != nil {
			return err
		}

		if err = pgPool.Ping(ctx); err != nil {
			pgPool.Close()
			return err
		}

		return nil
	}); err != nil {
		t.Fatalf("could not connect to postgres: %v", err)
	}

	if err := migrations.Up(st.Logger, databaseURL); err != nil {
		t.Fatalf("could not migrate postgres: %v", err)
	}

	t.Cleanup(pgPool.Close)

	st.Postgres = pgPool

	return ctx, st
}

// NewNATS - suite backed by a fresh nats server.
func NewNATS(t *testing.T) (context.Context, *Suite) {
	t.Helper()

	ctx, pool, st := setup(t)

	resource := run(t, pool, &dockertest.RunOptions{
		Repository: natsImage,
		Tag:        natsTag,
	})

	natsURL := "nats://" + resource.GetHostPort(natsPort)

	if err := pool.Retry(func() error {
		conn, err := nats.Connect(natsURL)
		if err != nil {
			return err
		}

		conn.Close()
		return nil
	}); err != nil {
		t.Fatalf("could not connect to nats: %v", err)
	}

	st.NATSURL = natsURL

	return ctx, st
}

func setup(t *testing.T) (context.Context, *dockertest.Pool, *Suite) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container backed test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), maxWaitDuration)
	t.Cleanup(cancel)

	logger := slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelInfo}))

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("could not connect to docker: %v", err)
	}

	// exponential backoff-retry, because the application in the container might not be ready to accept connections yet
	pool.MaxWait = maxWaitDuration

	return ctx, pool, &Suite{
		T:      t,
		Logger: logger,
	}
}

// run - pulls an image, creates a container based on it and runs it until the test ends.
func run(t *testing.T, pool *dockertest.Pool, options *dockertest.RunOptions) *dockertest.Resource {
	t.Helper()

	resource, err := pool.RunWithOptions(options, func(config *docker.HostConfig) {
		// set AutoRemove to true so that stopped container goes away by itself
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("could not start resource: %v", err)
	}

	// never returns error
	_ = resource.Expire(expireDuration) // Tell docker to hard kill the container in 120 seconds

	t.Cleanup(func() {
		if err = pool.Purge(resource); err != nil {
			t.Errorf("could not purge resource: %v", err)
		}
	})

	return resource
}
