package room

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

// Event - message delivered from the room to a client. Every event encodes itself
// as an externally tagged JSON value: a bare string for unit events, {"Name": payload} otherwise.
type Event interface {
	json.Marshaler
	event()
}

type GameJoined struct{}

type OpponentJoined struct {
	UserID uuid.UUID
}

type BoardUpdate struct {
	Board entity.Board
}

// GameOver - Winner is nil on a draw.
type GameOver struct {
	Winner *uuid.UUID
}

type ErrorEvent struct {
	Message string
}

func (GameJoined) event()     {}
func (OpponentJoined) event() {}
func (BoardUpdate) event()    {}
func (GameOver) event()       {}
func (ErrorEvent) event()     {}

func (GameJoined) MarshalJSON() ([]byte, error) {
	return json.Marshal("GameJoined")
}

func (that OpponentJoined) MarshalJSON() ([]byte, error) {
	return tagged("OpponentJoined", that.UserID)
}

func (that BoardUpdate) MarshalJSON() ([]byte, error) {
	return tagged("BoardUpdate", that.Board)
}

func (that GameOver) MarshalJSON() ([]byte, error) {
	return tagged("GameOver", struct {
		Winner *uuid.UUID `json:"winner"`
	}{Winner: that.Winner})
}

func (that ErrorEvent) MarshalJSON() ([]byte, error) {
	return tagged("Error", that.Message)
}

func tagged(name string, payload any) ([]byte, error) {
	return json.Marshal(map[string]any{name: payload})
}
