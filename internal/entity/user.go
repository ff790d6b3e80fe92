package entity

import "github.com/google/uuid"

type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
}

type UserStats struct {
	UserID      uuid.UUID `json:"user_id"`
	GamesPlayed int       `json:"games_played"`
	GamesWon    int       `json:"games_won"`
	WinRate     float64   `json:"win_rate"`
}
