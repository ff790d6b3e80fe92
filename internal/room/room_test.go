package room

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

const waitTimeout = time.Second

type recorderMock struct {
	mock.Mock
}

func (m *recorderMock) Record(ctx context.Context, outcome *entity.Outcome) error {
	args := m.Called(ctx, outcome)
	return args.Error(0)
}

type testRoom struct {
	handle   *Handle
	registry *Registry
	recorded chan *entity.Outcome
	cancel   context.CancelFunc
}

func startRoom(t *testing.T, opts Options) *testRoom {
	t.Helper()

	registry := NewRegistry()
	recorded := make(chan *entity.Outcome, 1)

	recorder := &recorderMock{}
	recorder.On("Record", mock.Anything, mock.AnythingOfType("*entity.Outcome")).
		Run(func(args mock.Arguments) {
			recorded <- args.Get(1).(*entity.Outcome)
		}).
		Return(nil).
		Maybe()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := New(uuid.New(), logger, registry, recorder, opts)
	registry.Insert(r.Handle().ID(), r.Handle())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go r.Run(ctx)

	return &testRoom{
		handle:   r.Handle(),
		registry: registry,
		recorded: recorded,
		cancel:   cancel,
	}
}

func (that *testRoom) join(t *testing.T, userID uuid.UUID) chan Event {
	t.Helper()

	events := make(chan Event, DefaultEventBuffer)
	that.submit(t, Join{UserID: userID, Events: events})

	return events
}

func (that *testRoom) submit(t *testing.T, cmd Command) {
	t.Helper()

	require.NoError(t, that.handle.Submit(context.Background(), cmd))
}

// seat - joins two players and consumes the join notifications.
func (that *testRoom) seat(t *testing.T) (uuid.UUID, chan Event, uuid.UUID, chan Event) {
	t.Helper()

	playerX, playerO := uuid.New(), uuid.New()

	eventsX := that.join(t, playerX)
	expectEvent(t, eventsX, GameJoined{})
	expectEvent(t, eventsX, BoardUpdate{})

	eventsO := that.join(t, playerO)
	expectEvent(t, eventsO, GameJoined{})
	expectEvent(t, eventsO, BoardUpdate{})
	expectEvent(t, eventsX, BoardUpdate{})
	expectEvent(t, eventsX, OpponentJoined{UserID: playerO})

	return playerX, eventsX, playerO, eventsO
}

func (that *testRoom) waitClosed(t *testing.T) {
	t.Helper()

	select {
	case <-that.handle.Done():
	case <-time.After(waitTimeout):
		t.Fatal("room did not stop")
	}

	_, ok := that.registry.Lookup(that.handle.ID())
	assert.False(t, ok, "room is still registered")
}

func (that *testRoom) waitOutcome(t *testing.T) *entity.Outcome {
	t.Helper()

	select {
	case outcome := <-that.recorded:
		return outcome
	case <-time.After(waitTimeout):
		t.Fatal("outcome was not recorded")
		return nil
	}
}

func expectEvent(t *testing.T, events <-chan Event, want Event) {
	t.Helper()

	select {
	case got, ok := <-events:
		require.True(t, ok, "channel closed while waiting for %#v", want)
		assert.Equal(t, want, got)
	case <-time.After(waitTimeout):
		t.Fatalf("timed out waiting for %#v", want)
	}
}

func expectClosed(t *testing.T, events <-chan Event) {
	t.Helper()

	select {
	case got, ok := <-events:
		require.False(t, ok, "unexpected event %#v", got)
	case <-time.After(waitTimeout):
		t.Fatal("channel was not closed")
	}
}

func expectNoEvent(t *testing.T, events <-chan Event) {
	t.Helper()

	select {
	case got := <-events:
		t.Fatalf("unexpected event %#v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRoom_Join(t *testing.T) {
	t.Run("First player is X and gets an empty board", func(t *testing.T) {
		// Given: a fresh room
		r := startRoom(t, Options{})

		// When: a player joins
		events := r.join(t, uuid.New())

		// Then: the player is acknowledged and sees the board, nobody else is notified
		expectEvent(t, events, GameJoined{})
		expectEvent(t, events, BoardUpdate{})
		expectNoEvent(t, events)
	})

	t.Run("Second player starts the game and X is told about the opponent", func(t *testing.T) {
		// Given/When: two players join
		r := startRoom(t, Options{})
		_, eventsX, _, eventsO := r.seat(t)

		// Then: no extra events are produced
		expectNoEvent(t, eventsX)
		expectNoEvent(t, eventsO)
	})

	t.Run("Third player is rejected and released", func(t *testing.T) {
		// Given: an active room
		r := startRoom(t, Options{})
		_, eventsX, _, eventsO := r.seat(t)

		// When: a third player joins
		events := r.join(t, uuid.New())

		// Then: only the third player gets the error and its channel is closed
		expectEvent(t, events, ErrorEvent{Message: apperror.ErrAlreadyStarted.Error()})
		expectClosed(t, events)
		expectNoEvent(t, eventsX)
		expectNoEvent(t, eventsO)
	})

	t.Run("Seated player rejoins without losing the seat", func(t *testing.T) {
		// Given: X is waiting in the room
		r := startRoom(t, Options{})
		playerX := uuid.New()
		oldEvents := r.join(t, playerX)
		expectEvent(t, oldEvents, GameJoined{})
		expectEvent(t, oldEvents, BoardUpdate{})

		// When: X joins again over a new connection
		newEvents := r.join(t, playerX)

		// Then: the old channel is released and the new one takes over
		expectClosed(t, oldEvents)
		expectEvent(t, newEvents, GameJoined{})
		expectEvent(t, newEvents, BoardUpdate{})

		// And: the next player still becomes O
		playerO := uuid.New()
		eventsO := r.join(t, playerO)
		expectEvent(t, eventsO, GameJoined{})
		expectEvent(t, eventsO, BoardUpdate{})
		expectEvent(t, newEvents, BoardUpdate{})
		expectEvent(t, newEvents, OpponentJoined{UserID: playerO})

		// And: a leave from the replaced connection does not end the game
		r.submit(t, Leave{UserID: playerX, Events: oldEvents})
		r.submit(t, Move{UserID: playerX, Cell: 0})

		board := entity.Board{}
		board[0] = entity.SymbolX
		expectEvent(t, newEvents, BoardUpdate{Board: board})
		expectEvent(t, eventsO, BoardUpdate{Board: board})
	})
}

func TestRoom_Move(t *testing.T) {
	t.Run("Move before the opponent arrives is rejected", func(t *testing.T) {
		// Given: a room with X only
		r := startRoom(t, Options{})
		playerX := uuid.New()
		events := r.join(t, playerX)
		expectEvent(t, events, GameJoined{})
		expectEvent(t, events, BoardUpdate{})

		// When: X moves
		r.submit(t, Move{UserID: playerX, Cell: 4})

		// Then: X gets an error
		expectEvent(t, events, ErrorEvent{Message: apperror.ErrGameIsNotStarted.Error()})
	})

	t.Run("Move out of turn is rejected", func(t *testing.T) {
		// Given: an active room
		r := startRoom(t, Options{})
		_, eventsX, playerO, eventsO := r.seat(t)

		// When: O moves first
		r.submit(t, Move{UserID: playerO, Cell: 4})

		// Then: only O is told it is not their turn
		expectEvent(t, eventsO, ErrorEvent{Message: apperror.ErrNotYourTurn.Error()})
		expectNoEvent(t, eventsX)
	})

	t.Run("Occupied and out of range cells are rejected", func(t *testing.T) {
		// Given: an active room where X took the center
		r := startRoom(t, Options{})
		playerX, eventsX, playerO, eventsO := r.seat(t)

		r.submit(t, Move{UserID: playerX, Cell: 4})
		board := entity.Board{}
		board[4] = entity.SymbolX
		expectEvent(t, eventsX, BoardUpdate{Board: board})
		expectEvent(t, eventsO, BoardUpdate{Board: board})

		// When: O plays the center and then a cell outside the board
		r.submit(t, Move{UserID: playerO, Cell: 4})
		r.submit(t, Move{UserID: playerO, Cell: 9})

		// Then: O gets both errors and X sees nothing
		expectEvent(t, eventsO, ErrorEvent{Message: apperror.ErrCellOccupied.Error()})
		expectEvent(t, eventsO, ErrorEvent{Message: apperror.ErrOutOfRange.Error() + ": 9"})
		expectNoEvent(t, eventsX)

		// And: O still has the turn
		r.submit(t, Move{UserID: playerO, Cell: 0})
		board[0] = entity.SymbolO
		expectEvent(t, eventsX, BoardUpdate{Board: board})
		expectEvent(t, eventsO, BoardUpdate{Board: board})
	})
}

func TestRoom_XWins(t *testing.T) {
	// Given: an active room
	r := startRoom(t, Options{})
	playerX, eventsX, playerO, eventsO := r.seat(t)

	moves := []struct {
		player uuid.UUID
		cell   int
		symbol entity.Symbol
	}{
		{playerX, 0, entity.SymbolX},
		{playerO, 4, entity.SymbolO},
		{playerX, 1, entity.SymbolX},
		{playerO, 5, entity.SymbolO},
		{playerX, 2, entity.SymbolX},
	}

	// When: X completes the top row
	board := entity.Board{}
	for _, move := range moves {
		r.submit(t, Move{UserID: move.player, Cell: move.cell})
		board[move.cell] = move.symbol

		expectEvent(t, eventsX, BoardUpdate{Board: board})
		expectEvent(t, eventsO, BoardUpdate{Board: board})
	}

	// Then: everyone learns X won and the room shuts down
	expectEvent(t, eventsX, GameOver{Winner: &playerX})
	expectEvent(t, eventsO, GameOver{Winner: &playerX})
	expectClosed(t, eventsX)
	expectClosed(t, eventsO)
	r.waitClosed(t)

	// And: the outcome is recorded
	outcome := r.waitOutcome(t)
	assert.Equal(t, r.handle.ID(), outcome.RoomID)
	assert.Equal(t, playerX, outcome.PlayerX)
	assert.Equal(t, playerO, outcome.PlayerO)
	require.NotNil(t, outcome.Winner)
	assert.Equal(t, playerX, *outcome.Winner)
	assert.Equal(t, board, outcome.Board)
	assert.Equal(t, 5, outcome.MovesCount)
	assert.False(t, outcome.Forfeit)

	// And: no further move is accepted
	err := r.handle.Submit(context.Background(), Move{UserID: playerO, Cell: 8})
	require.ErrorIs(t, err, apperror.ErrRoomClosed)
}

func TestRoom_Draw(t *testing.T) {
	// Given: an active room
	r := startRoom(t, Options{})
	playerX, eventsX, playerO, eventsO := r.seat(t)

	// When: the board is filled without a line
	cells := []int{0, 1, 2, 4, 3, 5, 7, 6, 8}
	for i, cell := range cells {
		player := playerX
		if i%2 == 1 {
			player = playerO
		}

		r.submit(t, Move{UserID: player, Cell: cell})
	}

	// Then: the final board is followed by a GameOver without a winner
	want := entity.Board{
		entity.SymbolX, entity.SymbolO, entity.SymbolX,
		entity.SymbolX, entity.SymbolO, entity.SymbolO,
		entity.SymbolO, entity.SymbolX, entity.SymbolX,
	}

	for _, events := range []chan Event{eventsX, eventsO} {
		var last Event
		for range cells {
			select {
			case last = <-events:
			case <-time.After(waitTimeout):
				t.Fatal("timed out waiting for board updates")
			}
		}

		assert.Equal(t, BoardUpdate{Board: want}, last)
		expectEvent(t, events, GameOver{})
		expectClosed(t, events)
	}

	r.waitClosed(t)

	outcome := r.waitOutcome(t)
	assert.Nil(t, outcome.Winner)
	assert.True(t, outcome.IsDraw())
	assert.Equal(t, len(cells), outcome.MovesCount)
}

func TestRoom_Leave(t *testing.T) {
	t.Run("Leaving an active game hands the win to the opponent", func(t *testing.T) {
		// Given: an active room
		r := startRoom(t, Options{})
		playerX, eventsX, playerO, eventsO := r.seat(t)

		// When: X leaves
		r.submit(t, Leave{UserID: playerX, Events: eventsX})

		// Then: X is released and O wins by forfeit
		expectClosed(t, eventsX)
		expectEvent(t, eventsO, GameOver{Winner: &playerO})
		expectClosed(t, eventsO)
		r.waitClosed(t)

		outcome := r.waitOutcome(t)
		require.NotNil(t, outcome.Winner)
		assert.Equal(t, playerO, *outcome.Winner)
		assert.True(t, outcome.Forfeit)
		assert.Zero(t, outcome.MovesCount)
	})

	t.Run("Leaving a waiting room keeps the room open", func(t *testing.T) {
		// Given: a room with X only
		r := startRoom(t, Options{})
		playerX := uuid.New()
		events := r.join(t, playerX)
		expectEvent(t, events, GameJoined{})
		expectEvent(t, events, BoardUpdate{})

		// When: X leaves
		r.submit(t, Leave{UserID: playerX})

		// Then: the channel is released but the room is still there
		expectClosed(t, events)

		_, ok := r.registry.Lookup(r.handle.ID())
		assert.True(t, ok)

		select {
		case <-r.handle.Done():
			t.Fatal("room stopped")
		default:
		}
	})

	t.Run("Rejected player leaving does not end the game", func(t *testing.T) {
		// Given: an active room and a rejected third player
		r := startRoom(t, Options{})
		playerX, eventsX, _, eventsO := r.seat(t)

		stranger := uuid.New()
		events := r.join(t, stranger)
		expectEvent(t, events, ErrorEvent{Message: apperror.ErrAlreadyStarted.Error()})
		expectClosed(t, events)

		// When: the rejected player's connection leaves
		r.submit(t, Leave{UserID: stranger, Events: events})

		// Then: the game goes on
		r.submit(t, Move{UserID: playerX, Cell: 8})

		board := entity.Board{}
		board[8] = entity.SymbolX
		expectEvent(t, eventsX, BoardUpdate{Board: board})
		expectEvent(t, eventsO, BoardUpdate{Board: board})
	})
}

func TestRoom_Lifecycle(t *testing.T) {
	t.Run("Idle room without players is closed", func(t *testing.T) {
		// Given: a room with a short idle timeout
		r := startRoom(t, Options{IdleTimeout: 50 * time.Millisecond})

		// When/Then: nobody joins and the room goes away
		r.waitClosed(t)
		assert.Zero(t, r.registry.Len())
	})

	t.Run("Waiting player keeps the room alive", func(t *testing.T) {
		// Given: a room with a short idle timeout and one player
		r := startRoom(t, Options{IdleTimeout: 20 * time.Millisecond})
		events := r.join(t, uuid.New())
		expectEvent(t, events, GameJoined{})

		// When: several idle periods pass
		time.Sleep(100 * time.Millisecond)

		// Then: the room is still running
		select {
		case <-r.handle.Done():
			t.Fatal("room stopped")
		default:
		}
	})

	t.Run("Canceled context stops the room without recording", func(t *testing.T) {
		// Given: an active room
		r := startRoom(t, Options{})
		_, eventsX, _, eventsO := r.seat(t)

		// When: the context is canceled
		r.cancel()

		// Then: clients are released and nothing is persisted
		expectClosed(t, eventsX)
		expectClosed(t, eventsO)
		r.waitClosed(t)
		assert.Empty(t, r.recorded)
	})
}
