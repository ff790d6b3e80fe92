package websocket

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/room"
	appmiddleware "github.com/rocketscienceinc/tictactoe-arena/transport/middleware"
)

const maxMessageSize = 512

type roomLookup interface {
	Lookup(roomID uuid.UUID) (*room.Handle, error)
}

type Options struct {
	EventBuffer int
	WriteWait   time.Duration
	PongWait    time.Duration
	// PingPeriod - must be shorter than PongWait.
	PingPeriod time.Duration
}

// Gateway - bridges one websocket connection to one room.
type Gateway struct {
	logger *slog.Logger
	rooms  roomLookup
	opts   Options

	upgrader websocket.Upgrader
}

func NewGateway(logger *slog.Logger, rooms roomLookup, opts Options) *Gateway {
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = room.DefaultEventBuffer
	}

	return &Gateway{
		logger: logger,
		rooms:  rooms,
		opts:   opts,

		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},
	}
}

func (that *Gateway) Register(e *echo.Echo, auth echo.MiddlewareFunc) {
	e.GET("/ws/:room_id", that.Handle, auth)
}

// Handle - the join is submitted before the upgrade so that an unknown or closed room
// still gets a plain http answer.
func (that *Gateway) Handle(c echo.Context) error {
	log := that.logger.With("method", "Handle")

	userID, ok := appmiddleware.UserID(c)
	if !ok {
		return c.NoContent(http.StatusUnauthorized)
	}

	roomID, err := uuid.Parse(c.Param("room_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}

	handle, err := that.rooms.Lookup(roomID)
	if err != nil {
		if errors.Is(err, apperror.ErrRoomNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}

		log.Error("failed to lookup room", "room_id", roomID, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}

	ctx := c.Request().Context()
	events := make(chan room.Event, that.opts.EventBuffer)

	if err = handle.Submit(ctx, room.Join{UserID: userID, Events: events}); err != nil {
		log.Warn("failed to join room", "room_id", roomID, "user_id", userID, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "room is closed"})
	}

	conn, err := that.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already answered the client
		log.Warn("failed to upgrade connection", "room_id", roomID, "user_id", userID, "error", err)
		that.leave(handle, userID, events)
		return nil
	}

	log.Info("client connected", "room_id", roomID, "user_id", userID)

	that.serve(ctx, conn, handle, userID, events)

	log.Info("client disconnected", "room_id", roomID, "user_id", userID)

	return nil
}

// serve - the only writer on conn. Runs until the network side ends.
func (that *Gateway) serve(ctx context.Context, conn *websocket.Conn, handle *room.Handle, userID uuid.UUID, events chan room.Event) {
	log := that.logger.With("method", "serve", "room_id", handle.ID(), "user_id", userID)

	defer func() {
		that.leave(handle, userID, events)

		_ = conn.SetWriteDeadline(time.Now().Add(that.opts.WriteWait))
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	}()

	frames := make(chan []byte)
	readErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)

	go that.readPump(conn, frames, readErr, stop)

	ticker := time.NewTicker(that.opts.PingPeriod)
	defer ticker.Stop()

	inbox := (<-chan room.Event)(events)
	closed := handle.Done()
	heard := false

	for {
		select {
		case frame := <-frames:
			cmd, err := decodeCommand(userID, frame)
			if err != nil {
				log.Debug("dropping malformed frame", "error", err)
				continue
			}

			if err = handle.Submit(ctx, cmd); err != nil {
				log.Debug("failed to submit command", "error", err)
			}

		case err := <-readErr:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("connection closed unexpectedly", "error", err)
			}

			return

		case event, ok := <-inbox:
			if !ok {
				// the room let go of us; keep the socket until the client hangs up
				inbox = nil
				continue
			}

			heard = true

			if err := that.write(conn, event); err != nil {
				log.Warn("failed to write event", "error", err)
				return
			}

		case <-closed:
			closed = nil

			// a join that raced the room shutdown is never answered by the room
			if !heard && len(inbox) == 0 {
				inbox = nil
				if err := that.write(conn, room.ErrorEvent{Message: apperror.ErrRoomClosed.Error()}); err != nil {
					return
				}
			}

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(that.opts.WriteWait)); err != nil {
				log.Debug("failed to ping", "error", err)
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

func (that *Gateway) readPump(conn *websocket.Conn, frames chan<- []byte, readErr chan<- error, stop <-chan struct{}) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(that.opts.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(that.opts.PongWait))
	})

	for {
		messageType, frame, err := conn.ReadMessage()
		if err != nil {
			readErr <- err
			return
		}

		if messageType != websocket.TextMessage {
			continue
		}

		select {
		case frames <- frame:
		case <-stop:
			return
		}
	}
}

func (that *Gateway) write(conn *websocket.Conn, event room.Event) error {
	if err := conn.SetWriteDeadline(time.Now().Add(that.opts.WriteWait)); err != nil {
		return err
	}

	return conn.WriteJSON(event)
}

// leave - always sent, the room decides whether it still matters.
func (that *Gateway) leave(handle *room.Handle, userID uuid.UUID, events chan room.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), that.opts.WriteWait)
	defer cancel()

	if err := handle.Submit(ctx, room.Leave{UserID: userID, Events: events}); err != nil && !errors.Is(err, apperror.ErrRoomClosed) {
		that.logger.Warn("failed to leave room", "room_id", handle.ID(), "user_id", userID, "error", err)
	}
}
