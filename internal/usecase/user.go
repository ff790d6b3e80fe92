package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

const (
	maxUsernameLength = 32
	minPasswordLength = 6
)

type UserUseCase interface {
	SignUp(ctx context.Context, username, password string) (*entity.User, error)
	SignIn(ctx context.Context, username, password string) (string, error)

	Stats(ctx context.Context, userID uuid.UUID) (*entity.UserStats, error)
	Leaderboard(ctx context.Context) ([]*entity.UserStats, error)
}

type userRepo interface {
	Create(ctx context.Context, user *entity.User) error
	FindByUsername(ctx context.Context, username string) (*entity.User, error)

	GetStats(ctx context.Context, id uuid.UUID) (*entity.UserStats, error)
	ListStats(ctx context.Context) ([]*entity.UserStats, error)
}

type credentials interface {
	GenerateToken(userID uuid.UUID) (string, error)
	HashPassword(password string) (string, error)
	ComparePassword(hash, password string) error
}

type userUseCase struct {
	logger *slog.Logger

	repo userRepo
	auth credentials
}

func NewUserUseCase(logger *slog.Logger, repo userRepo, auth credentials) UserUseCase {
	return &userUseCase{
		logger: logger,
		repo:   repo,
		auth:   auth,
	}
}

func (that *userUseCase) SignUp(ctx context.Context, username, password string) (*entity.User, error) {
	log := that.logger.With("method", "SignUp")

	username = strings.TrimSpace(username)

	if username == "" || len(username) > maxUsernameLength {
		return nil, fmt.Errorf("%w: username must be 1-%d characters", apperror.ErrInvalidInput, maxUsernameLength)
	}

	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", apperror.ErrInvalidInput, minPasswordLength)
	}

	hash, err := that.auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &entity.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: hash,
	}

	if err = that.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user into storage: %w", err)
	}

	log.Info("user signed up", "user_id", user.ID)

	return user, nil
}

// SignIn - returns a bearer token. Unknown users and wrong passwords look the same to the caller.
func (that *userUseCase) SignIn(ctx context.Context, username, password string) (string, error) {
	user, err := that.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, apperror.ErrNotFound) {
		return "", apperror.ErrInvalidCredentials
	}

	if err != nil {
		return "", fmt.Errorf("failed to find user into storage: %w", err)
	}

	if err = that.auth.ComparePassword(user.PasswordHash, password); err != nil {
		return "", err
	}

	token, err := that.auth.GenerateToken(user.ID)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return token, nil
}

func (that *userUseCase) Stats(ctx context.Context, userID uuid.UUID) (*entity.UserStats, error) {
	stats, err := that.repo.GetStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}

	return stats, nil
}

func (that *userUseCase) Leaderboard(ctx context.Context) ([]*entity.UserStats, error) {
	stats, err := that.repo.ListStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list user stats: %w", err)
	}

	return stats, nil
}
