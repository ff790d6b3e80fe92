package entity

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
)

type (
	Symbol string
	Status string
)

const (
	StatusWaiting  Status = "waiting"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"

	SymbolX  Symbol = "X"
	SymbolO  Symbol = "O"
	NoSymbol Symbol = ""
)

const BoardSize = 9

// WinCombos - rows, then columns, then diagonals.
var WinCombos = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Board - 9 cells in row-major order. Serialized as an array of null|"X"|"O".
type Board [BoardSize]Symbol

func (that Board) MarshalJSON() ([]byte, error) {
	cells := make([]*string, len(that))
	for i, cell := range that {
		if cell == NoSymbol {
			continue
		}

		value := string(cell)
		cells[i] = &value
	}

	return json.Marshal(cells)
}

func (that *Board) UnmarshalJSON(data []byte) error {
	var cells []*string
	if err := json.Unmarshal(data, &cells); err != nil {
		return fmt.Errorf("failed to unmarshal board: %w", err)
	}

	if len(cells) != BoardSize {
		return fmt.Errorf("board must have %d cells, got %d", BoardSize, len(cells))
	}

	for i, cell := range cells {
		that[i] = NoSymbol
		if cell != nil {
			that[i] = Symbol(*cell)
		}
	}

	return nil
}

// Game - state machine of a single match. Not safe for concurrent use, the owning room serializes access.
type Game struct {
	Board   Board
	Turn    Symbol
	Status  Status
	PlayerX uuid.UUID
	PlayerO uuid.UUID
}

func NewGame() *Game {
	return &Game{
		Turn:   SymbolX,
		Status: StatusWaiting,
	}
}

// Seat - puts the player into the first empty seat, X before O. Filling the second seat starts the game.
func (that *Game) Seat(playerID uuid.UUID) (Symbol, error) {
	if !that.IsWaiting() {
		return NoSymbol, apperror.ErrAlreadyStarted
	}

	switch {
	case that.PlayerX == uuid.Nil:
		that.PlayerX = playerID
		return SymbolX, nil
	case that.PlayerO == uuid.Nil:
		that.PlayerO = playerID
		that.Status = StatusActive
		return SymbolO, nil
	default:
		return NoSymbol, apperror.ErrAlreadyStarted
	}
}

func (that *Game) IsTurn(playerID uuid.UUID) bool {
	seated := that.PlayerOf(that.Turn)
	return seated != uuid.Nil && seated == playerID
}

// ApplyMove - marks the cell with the current turn symbol. Turn switching and result checks are up to the caller.
func (that *Game) ApplyMove(cell int) error {
	if cell < 0 || cell >= BoardSize {
		return fmt.Errorf("%w: %d", apperror.ErrOutOfRange, cell)
	}

	if that.Board[cell] != NoSymbol {
		return apperror.ErrCellOccupied
	}

	that.Board[cell] = that.Turn

	return nil
}

func (that *Game) CheckWinner() Symbol {
	for _, combo := range WinCombos {
		a, b, c := that.Board[combo[0]], that.Board[combo[1]], that.Board[combo[2]]
		if a != NoSymbol && a == b && b == c {
			return a
		}
	}

	return NoSymbol
}

func (that *Game) IsDraw() bool {
	for _, cell := range that.Board {
		if cell == NoSymbol {
			return false
		}
	}

	return true
}

func (that *Game) SwitchTurn() {
	if that.Turn == SymbolX {
		that.Turn = SymbolO
	} else {
		that.Turn = SymbolX
	}
}

func (that *Game) Finish() {
	that.Status = StatusFinished
}

func (that *Game) SymbolOf(playerID uuid.UUID) Symbol {
	switch {
	case playerID == uuid.Nil:
		return NoSymbol
	case that.PlayerX == playerID:
		return SymbolX
	case that.PlayerO == playerID:
		return SymbolO
	default:
		return NoSymbol
	}
}

func (that *Game) PlayerOf(symbol Symbol) uuid.UUID {
	switch symbol {
	case SymbolX:
		return that.PlayerX
	case SymbolO:
		return that.PlayerO
	default:
		return uuid.Nil
	}
}

// Opponent - the other seated player, uuid.Nil if there is none.
func (that *Game) Opponent(playerID uuid.UUID) uuid.UUID {
	switch that.SymbolOf(playerID) {
	case SymbolX:
		return that.PlayerO
	case SymbolO:
		return that.PlayerX
	default:
		return uuid.Nil
	}
}

func (that *Game) IsSeated(playerID uuid.UUID) bool {
	return that.SymbolOf(playerID) != NoSymbol
}

func (that *Game) IsFinished() bool {
	return that.Status == StatusFinished
}

func (that *Game) IsActive() bool {
	return that.Status == StatusActive
}

func (that *Game) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func (that *Game) ConfirmActiveState() error {
	switch {
	case that.IsWaiting():
		return apperror.ErrGameIsNotStarted
	case that.IsFinished():
		return apperror.ErrGameFinished
	case that.IsActive():
		return nil
	default:
		return fmt.Errorf("unknown game status: %s", that.Status)
	}
}
