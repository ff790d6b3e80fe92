package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

// GameService - records finished games and serves them back, cache first.
type GameService interface {
	Record(ctx context.Context, outcome *entity.Outcome) error
	GetOutcome(ctx context.Context, roomID uuid.UUID) (*entity.Outcome, error)
}

type gameStore interface {
	SaveOutcome(ctx context.Context, outcome *entity.Outcome) error
	GetByRoomID(ctx context.Context, roomID uuid.UUID) (*entity.Outcome, error)
}

type gameCache interface {
	CreateOrUpdate(ctx context.Context, outcome *entity.Outcome) error
	GetByID(ctx context.Context, roomID uuid.UUID) (*entity.Outcome, error)
}

type gamePublisher interface {
	GameFinished(outcome *entity.Outcome) error
}

type gameService struct {
	logger *slog.Logger

	store     gameStore
	cache     gameCache
	publisher gamePublisher
}

func NewGameService(logger *slog.Logger, store gameStore, cache gameCache, publisher gamePublisher) GameService {
	return &gameService{
		logger:    logger,
		store:     store,
		cache:     cache,
		publisher: publisher,
	}
}

// Record - every sink is tried even if an earlier one failed.
func (that *gameService) Record(ctx context.Context, outcome *entity.Outcome) error {
	log := that.logger.With("method", "Record", "room_id", outcome.RoomID)

	var errs []error

	if err := that.store.SaveOutcome(ctx, outcome); err != nil {
		errs = append(errs, fmt.Errorf("failed to save game: %w", err))
	}

	if err := that.cache.CreateOrUpdate(ctx, outcome); err != nil {
		errs = append(errs, fmt.Errorf("failed to cache game: %w", err))
	}

	if err := that.publisher.GameFinished(outcome); err != nil {
		errs = append(errs, fmt.Errorf("failed to publish game: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	log.Debug("game recorded", "moves", outcome.MovesCount, "draw", outcome.IsDraw())

	return nil
}

func (that *gameService) GetOutcome(ctx context.Context, roomID uuid.UUID) (*entity.Outcome, error) {
	log := that.logger.With("method", "GetOutcome", "room_id", roomID)

	outcome, err := that.cache.GetByID(ctx, roomID)
	if err == nil {
		return outcome, nil
	}

	if !errors.Is(err, apperror.ErrNotFound) {
		log.Warn("failed to read game from cache", "error", err)
	}

	outcome, err = that.store.GetByRoomID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	if err = that.cache.CreateOrUpdate(ctx, outcome); err != nil {
		log.Warn("failed to cache game", "error", err)
	}

	return outcome, nil
}
