package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/room"
)

type RoomUseCase interface {
	CreateRoom(ctx context.Context, ownerID uuid.UUID) (uuid.UUID, error)
	Lookup(roomID uuid.UUID) (*room.Handle, error)

	// Wait - blocks until every room started by this use case has stopped.
	Wait()
}

type roomPublisher interface {
	RoomCreated(roomID, ownerID uuid.UUID) error
}

type roomUseCase struct {
	// lifetime - rooms outlive the request that created them and stop with the application.
	lifetime context.Context
	logger   *slog.Logger

	registry  *room.Registry
	recorder  room.Recorder
	publisher roomPublisher
	opts      room.Options

	wg sync.WaitGroup
}

func NewRoomUseCase(
	lifetime context.Context,
	logger *slog.Logger,
	registry *room.Registry,
	recorder room.Recorder,
	publisher roomPublisher,
	opts room.Options,
) RoomUseCase {
	return &roomUseCase{
		lifetime:  lifetime,
		logger:    logger,
		registry:  registry,
		recorder:  recorder,
		publisher: publisher,
		opts:      opts,
	}
}

// CreateRoom - the room is registered before its actor starts, so the creator can join right away.
func (that *roomUseCase) CreateRoom(ctx context.Context, ownerID uuid.UUID) (uuid.UUID, error) {
	log := that.logger.With("method", "CreateRoom", "owner_id", ownerID)

	if err := ctx.Err(); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create room: %w", err)
	}

	if that.lifetime.Err() != nil {
		return uuid.Nil, apperror.ErrRoomClosed
	}

	roomID := uuid.New()
	actor := room.New(roomID, that.logger, that.registry, that.recorder, that.opts)

	that.registry.Insert(roomID, actor.Handle())

	that.wg.Add(1)
	go func() {
		defer that.wg.Done()
		actor.Run(that.lifetime)
	}()

	if err := that.publisher.RoomCreated(roomID, ownerID); err != nil {
		log.Warn("failed to publish room creation", "room_id", roomID, "error", err)
	}

	log.Info("room created", "room_id", roomID)

	return roomID, nil
}

func (that *roomUseCase) Lookup(roomID uuid.UUID) (*room.Handle, error) {
	handle, ok := that.registry.Lookup(roomID)
	if !ok {
		return nil, apperror.ErrRoomNotFound
	}

	return handle, nil
}

func (that *roomUseCase) Wait() {
	that.wg.Wait()
}
