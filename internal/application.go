package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/rocketscienceinc/tictactoe-arena/internal/broker"
	"github.com/rocketscienceinc/tictactoe-arena/internal/config"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository/migrations"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-arena/internal/room"
	"github.com/rocketscienceinc/tictactoe-arena/internal/service"
	"github.com/rocketscienceinc/tictactoe-arena/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-arena/transport/middleware"
	"github.com/rocketscienceinc/tictactoe-arena/transport/rest"
	"github.com/rocketscienceinc/tictactoe-arena/transport/websocket"
)

const shutdownTimeout = 10 * time.Second

var (
	ErrAddrNotFound    = errors.New("redis address string is empty")
	ErrDatabaseURLNotFound = errors.New("postgres url is empty")
	ErrJWTSecretNotSet = errors.New("jwt secret key is empty")
)

// RunApp - runs the application until SIGINT or SIGTERM.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	if conf.JWT.SecretKey == "" {
		return ErrJWTSecretNotSet
	}

	if conf.Postgres.URL == "" {
		return ErrDatabaseURLNotFound
	}

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return ErrAddrNotFound
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrations.Up(logger, conf.Postgres.URL); err != nil {
		return fmt.Errorf("could not migrate postgres: %w", err)
	}

	pgPool, err := storage.NewPostgresStorage(ctx, conf.Postgres.URL)
	if err != nil {
		return fmt.Errorf("could not connect to postgres storage: %w", err)
	}
	defer pgPool.Close()

	redisStorage, err := storage.NewRedisStorage(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	publisher, err := broker.NewPublisher(logger, conf.NATS.URL)
	if err != nil {
		return fmt.Errorf("could not connect to nats: %w", err)
	}
	defer publisher.Close()

	authService := service.NewAuthService(conf.JWT.SecretKey, conf.JWT.TokenTTL)
	gameService := service.NewGameService(
		logger,
		repository.NewGameRepository(pgPool),
		repository.NewGameCacheRepository(redisStorage, conf.Redis.OutcomeTTL),
		publisher,
	)

	userUseCase := usecase.NewUserUseCase(logger, repository.NewUserRepository(pgPool), authService)
	roomUseCase := usecase.NewRoomUseCase(ctx, logger, room.NewRegistry(), gameService, publisher, room.Options{
		CommandBuffer:  conf.Room.CommandBuffer,
		IdleTimeout:    conf.Room.IdleTimeout,
		PersistTimeout: conf.Room.PersistTimeout,
	})

	server := rest.NewServer(logger)

	rest.NewHandlers(logger, userUseCase, roomUseCase, gameService).
		Register(server.Echo(), middleware.Auth(authService))

	websocket.NewGateway(logger, roomUseCase, websocket.Options{
		EventBuffer: conf.Room.EventBuffer,
		WriteWait:   conf.WebSocket.WriteWait,
		PongWait:    conf.WebSocket.PongWait,
		PingPeriod:  conf.WebSocket.PingPeriod,
	}).Register(server.Echo(), middleware.WebSocketAuth(authService))

	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := server.Start(conf.HTTPPort); httpErr != nil {
			httpErrCh <- httpErr
		}
	}()

	select {
	case err = <-httpErrCh:
		stop()
		roomUseCase.Wait()
		return fmt.Errorf("HTTP server error: %w", err)
	case <-ctx.Done():
		log.Info("Received signal, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err = server.Shutdown(shutdownCtx); err != nil {
		log.Error("could not shutdown HTTP server", "error", err)
	}

	// rooms stop on ctx, in-flight outcomes are persisted on their own timeout
	roomUseCase.Wait()

	log.Info("Application stopped")

	return nil
}
