package broker

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

const (
	subjectRoomCreated  = "rooms.%s.created"
	subjectGameFinished = "rooms.%s.finished"
)

// Publisher - announces room lifecycle events to other services.
type Publisher interface {
	RoomCreated(roomID, ownerID uuid.UUID) error
	GameFinished(outcome *entity.Outcome) error
	Close()
}

type RoomCreatedMessage struct {
	RoomID    uuid.UUID `json:"room_id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

type natsPublisher struct {
	logger *slog.Logger
	conn   *nats.Conn
}

// NewPublisher - connects to NATS. An empty url yields a publisher that drops everything.
func NewPublisher(logger *slog.Logger, url string) (Publisher, error) {
	if url == "" {
		logger.Info("nats url is empty, room events will not be published")
		return nopPublisher{}, nil
	}

	conn, err := nats.Connect(
		url,
		nats.Name("tictactoe-arena"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.PingInterval(20*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			logger.Info("nats reconnected", "url", conn.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	return &natsPublisher{
		logger: logger,
		conn:   conn,
	}, nil
}

func (that *natsPublisher) RoomCreated(roomID, ownerID uuid.UUID) error {
	return that.publish(fmt.Sprintf(subjectRoomCreated, roomID), RoomCreatedMessage{
		RoomID:    roomID,
		OwnerID:   ownerID,
		CreatedAt: time.Now().UTC(),
	})
}

func (that *natsPublisher) GameFinished(outcome *entity.Outcome) error {
	return that.publish(fmt.Sprintf(subjectGameFinished, outcome.RoomID), outcome)
}

func (that *natsPublisher) Close() {
	if err := that.conn.Drain(); err != nil {
		that.logger.Error("failed to drain nats connection", "error", err)
	}
}

func (that *natsPublisher) publish(subject string, message any) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", subject, err)
	}

	if err = that.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}

	return nil
}

type nopPublisher struct{}

func (nopPublisher) RoomCreated(uuid.UUID, uuid.UUID) error { return nil }
func (nopPublisher) GameFinished(*entity.Outcome) error     { return nil }
func (nopPublisher) Close()                                 {}
