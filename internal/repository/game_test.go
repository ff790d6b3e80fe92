package repository

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/testing/suite"
)

func TestGameRepository_SaveOutcome(t *testing.T) {
	ctx, st := suite.NewPostgres(t)

	userRepo := NewUserRepository(st.Postgres)
	gameRepo := NewGameRepository(st.Postgres)

	playerX := createUser(ctx, t, userRepo, "x-player")
	playerO := createUser(ctx, t, userRepo, "o-player")

	// Given: a game X won
	outcome := newOutcome()
	outcome.PlayerX, outcome.PlayerO = playerX.ID, playerO.ID
	outcome.Winner = &playerX.ID

	// When: it is saved twice
	require.NoError(t, gameRepo.SaveOutcome(ctx, outcome))
	require.NoError(t, gameRepo.SaveOutcome(ctx, outcome))

	// Then: stats are counted once
	statsX, err := userRepo.GetStats(ctx, playerX.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, statsX.GamesPlayed)
	assert.Equal(t, 1, statsX.GamesWon)
	assert.InDelta(t, 100.0, statsX.WinRate, 0.001)

	statsO, err := userRepo.GetStats(ctx, playerO.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, statsO.GamesPlayed)
	assert.Zero(t, statsO.GamesWon)
	assert.Zero(t, statsO.WinRate)

	// When: the same players draw in another room
	draw := newOutcome()
	draw.PlayerX, draw.PlayerO = playerX.ID, playerO.ID
	draw.Winner = nil
	require.NoError(t, gameRepo.SaveOutcome(ctx, draw))

	// Then: both played twice and X's win rate halves
	statsX, err = userRepo.GetStats(ctx, playerX.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, statsX.GamesPlayed)
	assert.Equal(t, 1, statsX.GamesWon)
	assert.InDelta(t, 50.0, statsX.WinRate, 0.001)

	// And: the leaderboard puts X first
	all, err := userRepo.ListStats(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, playerX.ID, all[0].UserID)
	assert.Equal(t, playerO.ID, all[1].UserID)
}

func TestGameRepository_GetByRoomID(t *testing.T) {
	ctx, st := suite.NewPostgres(t)

	gameRepo := NewGameRepository(st.Postgres)

	t.Run("GetByRoomID_Success", func(t *testing.T) {
		// Given: a forfeited game of unregistered players
		outcome := newOutcome()
		outcome.Forfeit = true
		require.NoError(t, gameRepo.SaveOutcome(ctx, outcome))

		// When: it is read back
		stored, err := gameRepo.GetByRoomID(ctx, outcome.RoomID)

		// Then: it matches
		require.NoError(t, err)
		assert.Equal(t, outcome.RoomID, stored.RoomID)
		assert.Equal(t, outcome.PlayerX, stored.PlayerX)
		assert.Equal(t, outcome.PlayerO, stored.PlayerO)
		require.NotNil(t, stored.Winner)
		assert.Equal(t, *outcome.Winner, *stored.Winner)
		assert.Equal(t, outcome.Board, stored.Board)
		assert.Equal(t, outcome.MovesCount, stored.MovesCount)
		assert.True(t, stored.Forfeit)
		assert.True(t, outcome.StartedAt.Equal(stored.StartedAt))
		assert.True(t, outcome.FinishedAt.Equal(stored.FinishedAt))
	})

	t.Run("GetByRoomID_NotFound", func(t *testing.T) {
		_, err := gameRepo.GetByRoomID(ctx, uuid.New())

		require.ErrorIs(t, err, ErrGameNotFound)
	})

	t.Run("Draw has no winner", func(t *testing.T) {
		// Given: a draw
		outcome := newOutcome()
		outcome.Winner = nil
		outcome.Board = entity.Board{
			entity.SymbolX, entity.SymbolO, entity.SymbolX,
			entity.SymbolX, entity.SymbolO, entity.SymbolO,
			entity.SymbolO, entity.SymbolX, entity.SymbolX,
		}
		require.NoError(t, gameRepo.SaveOutcome(ctx, outcome))

		// When: it is read back
		stored, err := gameRepo.GetByRoomID(ctx, outcome.RoomID)

		// Then: the winner is empty
		require.NoError(t, err)
		assert.Nil(t, stored.Winner)
		assert.True(t, stored.IsDraw())
	})
}
