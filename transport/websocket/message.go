package websocket

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-arena/internal/room"
)

const actionMove = "move"

var (
	errUnknownAction  = errors.New("unknown action")
	errInvalidPayload = errors.New("invalid payload")
)

// clientMessage - inbound frame, e.g. {"action":"move","payload":4}.
type clientMessage struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

// decodeCommand - turns a text frame from userID into a room command.
func decodeCommand(userID uuid.UUID, frame []byte) (room.Command, error) {
	var msg clientMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}

	switch msg.Action {
	case actionMove:
		var cell int
		if err := json.Unmarshal(msg.Payload, &cell); err != nil {
			return nil, fmt.Errorf("%w: %s", errInvalidPayload, msg.Payload)
		}

		return room.Move{UserID: userID, Cell: cell}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownAction, msg.Action)
	}
}
