package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

var ErrGameNotFound = fmt.Errorf("game %w", apperror.ErrNotFound)

// GameRepository - durable record of finished games and the player statistics derived from them.
type GameRepository interface {
	SaveOutcome(ctx context.Context, outcome *entity.Outcome) error
	GetByRoomID(ctx context.Context, roomID uuid.UUID) (*entity.Outcome, error)
}

type dbGame struct {
	pool *pgxpool.Pool
}

func NewGameRepository(pool *pgxpool.Pool) GameRepository {
	return &dbGame{
		pool: pool,
	}
}

// SaveOutcome - stores the game and updates both players' stats in one transaction.
// Saving the same room twice is a no-op.
func (that *dbGame) SaveOutcome(ctx context.Context, outcome *entity.Outcome) error {
	const insertGame = `
		INSERT INTO games (room_id, player_x_id, player_o_id, winner_id, board_state, moves_count, forfeit, status, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'finished', $8, $9)
		ON CONFLICT (room_id) DO NOTHING`

	const updateStats = `
		UPDATE users
		SET games_played = games_played + 1,
		    games_won    = games_won + $2,
		    win_rate     = ROUND(((games_won + $2)::numeric / (games_played + 1)) * 100, 2)
		WHERE id = $1`

	board, err := json.Marshal(outcome.Board)
	if err != nil {
		return fmt.Errorf("failed to marshal board: %w", err)
	}

	tx, err := that.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		// no-op after a successful commit
		_ = tx.Rollback(ctx)
	}()

	tag, err := tx.Exec(ctx, insertGame,
		outcome.RoomID,
		nullUUID(outcome.PlayerX),
		nullUUID(outcome.PlayerO),
		winnerUUID(outcome.Winner),
		board,
		outcome.MovesCount,
		outcome.Forfeit,
		nullTime(outcome.StartedAt),
		outcome.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert game: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return nil
	}

	for _, playerID := range outcome.Players() {
		won := 0
		if outcome.Winner != nil && *outcome.Winner == playerID {
			won = 1
		}

		if _, err = tx.Exec(ctx, updateStats, playerID, won); err != nil {
			return fmt.Errorf("failed to update stats of %s: %w", playerID, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit game: %w", err)
	}

	return nil
}

func (that *dbGame) GetByRoomID(ctx context.Context, roomID uuid.UUID) (*entity.Outcome, error) {
	const query = `
		SELECT room_id, player_x_id, player_o_id, winner_id, board_state, moves_count, forfeit, started_at, finished_at
		FROM games
		WHERE room_id = $1`

	var (
		outcome          entity.Outcome
		playerX, playerO uuid.NullUUID
		winner           uuid.NullUUID
		board            []byte
		startedAt        *time.Time
	)

	err := that.pool.QueryRow(ctx, query, roomID).Scan(
		&outcome.RoomID,
		&playerX,
		&playerO,
		&winner,
		&board,
		&outcome.MovesCount,
		&outcome.Forfeit,
		&startedAt,
		&outcome.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrGameNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get game by room id: %w", err)
	}

	if err = json.Unmarshal(board, &outcome.Board); err != nil {
		return nil, fmt.Errorf("failed to unmarshal board: %w", err)
	}

	outcome.PlayerX = playerX.UUID
	outcome.PlayerO = playerO.UUID

	if winner.Valid {
		outcome.Winner = &winner.UUID
	}

	if startedAt != nil {
		outcome.StartedAt = *startedAt
	}

	return &outcome, nil
}

func nullUUID(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}

func winnerUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}

	return nullUUID(*id)
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}

	return &t
}
