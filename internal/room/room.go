package room

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

const (
	DefaultCommandBuffer  = 32
	DefaultEventBuffer    = 32
	DefaultPersistTimeout = 5 * time.Second
)

// Recorder - stores the outcome of a finished room.
type Recorder interface {
	Record(ctx context.Context, outcome *entity.Outcome) error
}

type Options struct {
	CommandBuffer int
	// IdleTimeout - a waiting room without clients is closed after this long. Zero disables eviction.
	IdleTimeout    time.Duration
	PersistTimeout time.Duration
}

// Handle - the only way to talk to a running room.
type Handle struct {
	id       uuid.UUID
	commands chan<- Command
	done     <-chan struct{}
}

func (that *Handle) ID() uuid.UUID {
	return that.id
}

// Submit - enqueues the command, waiting while the queue is full.
func (that *Handle) Submit(ctx context.Context, cmd Command) error {
	select {
	case <-that.done:
		return apperror.ErrRoomClosed
	default:
	}

	select {
	case that.commands <- cmd:
		return nil
	case <-that.done:
		return apperror.ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done - closed once the room has stopped.
func (that *Handle) Done() <-chan struct{} {
	return that.done
}

// Room - actor owning one game. Run is the single writer of the game and the client set.
type Room struct {
	id     uuid.UUID
	logger *slog.Logger

	registry *Registry
	recorder Recorder
	opts     Options

	commands chan Command
	done     chan struct{}
	handle   *Handle

	game      *entity.Game
	clients   map[uuid.UUID]chan<- Event
	moves     int
	startedAt time.Time
}

func New(id uuid.UUID, logger *slog.Logger, registry *Registry, recorder Recorder, opts Options) *Room {
	if opts.CommandBuffer <= 0 {
		opts.CommandBuffer = DefaultCommandBuffer
	}

	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = DefaultPersistTimeout
	}

	commands := make(chan Command, opts.CommandBuffer)
	done := make(chan struct{})

	return &Room{
		id:       id,
		logger:   logger.With("room_id", id),
		registry: registry,
		recorder: recorder,
		opts:     opts,
		commands: commands,
		done:     done,
		handle:   &Handle{id: id, commands: commands, done: done},
		game:     entity.NewGame(),
		clients:  make(map[uuid.UUID]chan<- Event),
	}
}

func (that *Room) Handle() *Handle {
	return that.handle
}

// Run - processes commands until the game finishes, the room idles out or ctx is canceled.
func (that *Room) Run(ctx context.Context) {
	log := that.logger.With("method", "Run")
	log.Debug("room started")

	defer that.shutdown()

	var (
		idle  *time.Timer
		idleC <-chan time.Time
	)

	if that.opts.IdleTimeout > 0 {
		idle = time.NewTimer(that.opts.IdleTimeout)
		defer idle.Stop()
		idleC = idle.C
	}

	for {
		select {
		case <-ctx.Done():
			log.Info("room stopped", "reason", ctx.Err())
			return

		case cmd := <-that.commands:
			that.process(cmd)

			if that.game.IsFinished() {
				log.Info("game finished", "moves", that.moves)
				return
			}

			if idle != nil {
				idle.Reset(that.opts.IdleTimeout)
			}

		case <-idleC:
			if that.game.IsWaiting() && len(that.clients) == 0 {
				log.Info("closing idle room", "idle_timeout", that.opts.IdleTimeout)
				return
			}

			idle.Reset(that.opts.IdleTimeout)
		}
	}
}

func (that *Room) process(cmd Command) {
	switch cmd := cmd.(type) {
	case Join:
		that.join(cmd)
	case Move:
		that.move(cmd)
	case Leave:
		that.leave(cmd)
	default:
		that.logger.Warn("unknown command", "command", cmd)
	}
}

func (that *Room) join(cmd Join) {
	log := that.logger.With("method", "join", "user_id", cmd.UserID)

	// rejoin: the seat is kept, only the channel changes
	if that.game.IsSeated(cmd.UserID) {
		that.register(cmd.UserID, cmd.Events)
		that.unicast(cmd.UserID, GameJoined{})
		that.broadcast(BoardUpdate{Board: that.game.Board})

		log.Info("player rejoined", "symbol", that.game.SymbolOf(cmd.UserID))
		return
	}

	symbol, err := that.game.Seat(cmd.UserID)
	if err != nil {
		log.Info("join rejected", "error", err)

		if cmd.Events != nil {
			deliver(cmd.Events, ErrorEvent{Message: err.Error()})
			close(cmd.Events)
		}
		return
	}

	that.register(cmd.UserID, cmd.Events)
	that.unicast(cmd.UserID, GameJoined{})
	that.broadcast(BoardUpdate{Board: that.game.Board})

	if symbol == entity.SymbolO {
		that.startedAt = time.Now()
		that.unicast(that.game.PlayerX, OpponentJoined{UserID: cmd.UserID})
	}

	log.Info("player joined", "symbol", symbol)
}

func (that *Room) move(cmd Move) {
	log := that.logger.With("method", "move", "user_id", cmd.UserID, "cell", cmd.Cell)

	if err := that.game.ConfirmActiveState(); err != nil {
		that.reject(cmd.UserID, err)
		return
	}

	if !that.game.IsTurn(cmd.UserID) {
		that.reject(cmd.UserID, apperror.ErrNotYourTurn)
		return
	}

	if err := that.game.ApplyMove(cmd.Cell); err != nil {
		log.Debug("move rejected", "error", err)
		that.reject(cmd.UserID, err)
		return
	}

	that.moves++

	if winner := that.game.CheckWinner(); winner != entity.NoSymbol {
		winnerID := that.game.PlayerOf(winner)
		that.finish(&winnerID, false)
		return
	}

	if that.game.IsDraw() {
		that.finish(nil, false)
		return
	}

	that.game.SwitchTurn()
	that.broadcast(BoardUpdate{Board: that.game.Board})
}

func (that *Room) leave(cmd Leave) {
	log := that.logger.With("method", "leave", "user_id", cmd.UserID)

	current, registered := that.clients[cmd.UserID]

	// a connection replaced by a rejoin must not take the new one down with it
	if cmd.Events != nil && (!registered || current != cmd.Events) {
		log.Debug("stale leave ignored")
		return
	}

	if registered {
		delete(that.clients, cmd.UserID)
		close(current)
	}

	if !that.game.IsActive() || !that.game.IsSeated(cmd.UserID) {
		log.Info("player left")
		return
	}

	winnerID := that.game.Opponent(cmd.UserID)
	log.Info("player forfeited", "winner", winnerID)

	that.finish(&winnerID, true)
}

func (that *Room) finish(winner *uuid.UUID, forfeit bool) {
	that.game.Finish()

	if !forfeit {
		that.broadcast(BoardUpdate{Board: that.game.Board})
	}

	that.broadcast(GameOver{Winner: winner})

	that.persist(&entity.Outcome{
		RoomID:     that.id,
		PlayerX:    that.game.PlayerX,
		PlayerO:    that.game.PlayerO,
		Winner:     winner,
		Board:      that.game.Board,
		MovesCount: that.moves,
		Forfeit:    forfeit,
		StartedAt:  that.startedAt,
		FinishedAt: time.Now(),
	})
}

// persist - fire and forget, the outcome has already reached the clients.
func (that *Room) persist(outcome *entity.Outcome) {
	if that.recorder == nil {
		return
	}

	log := that.logger.With("method", "persist")

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), that.opts.PersistTimeout)
		defer cancel()

		if err := that.recorder.Record(ctx, outcome); err != nil {
			log.Error("failed to record game outcome", "error", err)
		}
	}()
}

func (that *Room) register(userID uuid.UUID, events chan<- Event) {
	if old, ok := that.clients[userID]; ok && old != events {
		close(old)
	}

	that.clients[userID] = events
}

func (that *Room) reject(userID uuid.UUID, err error) {
	that.unicast(userID, ErrorEvent{Message: err.Error()})
}

func (that *Room) unicast(userID uuid.UUID, event Event) {
	events, ok := that.clients[userID]
	if !ok {
		return
	}

	if !deliver(events, event) {
		that.logger.Debug("event dropped", "user_id", userID)
	}
}

func (that *Room) broadcast(event Event) {
	for userID, events := range that.clients {
		if !deliver(events, event) {
			that.logger.Debug("event dropped", "user_id", userID)
		}
	}
}

// shutdown - deregisters the room, releases every client and turns away joins still in the queue.
func (that *Room) shutdown() {
	that.registry.Remove(that.id)

	for userID, events := range that.clients {
		close(events)
		delete(that.clients, userID)
	}

	close(that.done)

	for {
		select {
		case cmd := <-that.commands:
			if join, ok := cmd.(Join); ok && join.Events != nil {
				deliver(join.Events, ErrorEvent{Message: apperror.ErrRoomClosed.Error()})
				close(join.Events)
			}
		default:
			return
		}
	}
}

// deliver - never blocks the room on a slow client.
func deliver(events chan<- Event, event Event) bool {
	select {
	case events <- event:
		return true
	default:
		return false
	}
}
