package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

const uniqueViolation = "23505"

var ErrUserNotFound = fmt.Errorf("user %w", apperror.ErrNotFound)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByUsername(ctx context.Context, username string) (*entity.User, error)

	GetStats(ctx context.Context, id uuid.UUID) (*entity.UserStats, error)
	ListStats(ctx context.Context) ([]*entity.UserStats, error)
}

type dbUser struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &dbUser{
		pool: pool,
	}
}

func (that *dbUser) Create(ctx context.Context, user *entity.User) error {
	const query = `INSERT INTO users (id, username, password) VALUES ($1, $2, $3)`

	_, err := that.pool.Exec(ctx, query, user.ID, user.Username, user.PasswordHash)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperror.ErrUserAlreadyExists
	}

	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

func (that *dbUser) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	const query = `SELECT id, username, password FROM users WHERE username = $1`

	var user entity.User

	err := that.pool.QueryRow(ctx, query, username).Scan(&user.ID, &user.Username, &user.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}

	return &user, nil
}

func (that *dbUser) GetStats(ctx context.Context, id uuid.UUID) (*entity.UserStats, error) {
	const query = `SELECT id, games_played, games_won, win_rate FROM users WHERE id = $1`

	var stats entity.UserStats

	err := that.pool.QueryRow(ctx, query, id).Scan(&stats.UserID, &stats.GamesPlayed, &stats.GamesWon, &stats.WinRate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}

	return &stats, nil
}

func (that *dbUser) ListStats(ctx context.Context) ([]*entity.UserStats, error) {
	const query = `
		SELECT id, games_played, games_won, win_rate
		FROM users
		ORDER BY win_rate DESC, games_won DESC, username`

	rows, err := that.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list user stats: %w", err)
	}
	defer rows.Close()

	stats := make([]*entity.UserStats, 0)
	for rows.Next() {
		var row entity.UserStats
		if err = rows.Scan(&row.UserID, &row.GamesPlayed, &row.GamesWon, &row.WinRate); err != nil {
			return nil, fmt.Errorf("failed to scan user stats: %w", err)
		}

		stats = append(stats, &row)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user stats: %w", err)
	}

	return stats, nil
}
