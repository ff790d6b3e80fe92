package entity

import (
	"time"

	"github.com/google/uuid"
)

// Outcome - terminal summary of a finished room. Winner is nil on a draw.
type Outcome struct {
	RoomID     uuid.UUID  `json:"room_id"`
	PlayerX    uuid.UUID  `json:"player_x_id"`
	PlayerO    uuid.UUID  `json:"player_o_id"`
	Winner     *uuid.UUID `json:"winner_id"`
	Board      Board      `json:"board_state"`
	MovesCount int        `json:"moves_count"`
	Forfeit    bool       `json:"forfeit"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
}

// Players - seated players of the finished game.
func (that *Outcome) Players() []uuid.UUID {
	players := make([]uuid.UUID, 0, 2)
	for _, id := range []uuid.UUID{that.PlayerX, that.PlayerO} {
		if id != uuid.Nil {
			players = append(players, id)
		}
	}

	return players
}

func (that *Outcome) IsDraw() bool {
	return that.Winner == nil
}
