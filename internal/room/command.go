package room

import "github.com/google/uuid"

// Command - request processed by the room actor. The set is closed: Join, Move, Leave.
type Command interface {
	command()
}

// Join - seats the user and registers the channel the room will deliver events to.
type Join struct {
	UserID uuid.UUID
	Events chan<- Event
}

type Move struct {
	UserID uuid.UUID
	Cell   int
}

// Leave - Events identifies the connection that is leaving. A nil Events removes
// whatever registration the user has.
type Leave struct {
	UserID uuid.UUID
	Events chan<- Event
}

func (Join) command()  {}
func (Move) command()  {}
func (Leave) command() {}
