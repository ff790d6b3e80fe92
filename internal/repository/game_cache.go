package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

// GameCacheRepository - short-lived copies of finished games, keyed by room id.
type GameCacheRepository interface {
	CreateOrUpdate(ctx context.Context, outcome *entity.Outcome) error
	GetByID(ctx context.Context, roomID uuid.UUID) (*entity.Outcome, error)
	DeleteByID(ctx context.Context, roomID uuid.UUID) error
}

type cacheGame struct {
	client *redis.Client
	ttl    time.Duration
}

func NewGameCacheRepository(client *redis.Client, ttl time.Duration) GameCacheRepository {
	return &cacheGame{
		client: client,
		ttl:    ttl,
	}
}

func gameKey(roomID uuid.UUID) string {
	return "game:" + roomID.String()
}

func (that *cacheGame) CreateOrUpdate(ctx context.Context, outcome *entity.Outcome) error {
	gameJSON, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("could not marshal game: %w", err)
	}

	if err = that.client.Set(ctx, gameKey(outcome.RoomID), gameJSON, that.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set game: %w", err)
	}

	return nil
}

func (that *cacheGame) GetByID(ctx context.Context, roomID uuid.UUID) (*entity.Outcome, error) {
	response, err := that.client.Get(ctx, gameKey(roomID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrGameNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get game by id: %w", err)
	}

	var outcome entity.Outcome
	if err = json.Unmarshal(response, &outcome); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game: %w", err)
	}

	return &outcome, nil
}

func (that *cacheGame) DeleteByID(ctx context.Context, roomID uuid.UUID) error {
	deleted, err := that.client.Del(ctx, gameKey(roomID)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete game by id: %w", err)
	}

	if deleted == 0 {
		return ErrGameNotFound
	}

	return nil
}
