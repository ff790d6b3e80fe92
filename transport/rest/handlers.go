package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	appmiddleware "github.com/rocketscienceinc/tictactoe-arena/transport/middleware"
)

type userUseCase interface {
	SignUp(ctx context.Context, username, password string) (*entity.User, error)
	SignIn(ctx context.Context, username, password string) (string, error)

	Stats(ctx context.Context, userID uuid.UUID) (*entity.UserStats, error)
	Leaderboard(ctx context.Context) ([]*entity.UserStats, error)
}

type roomCreator interface {
	CreateRoom(ctx context.Context, ownerID uuid.UUID) (uuid.UUID, error)
}

type gameReader interface {
	GetOutcome(ctx context.Context, roomID uuid.UUID) (*entity.Outcome, error)
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Handlers struct {
	logger *slog.Logger

	users userUseCase
	rooms roomCreator
	games gameReader
}

func NewHandlers(logger *slog.Logger, users userUseCase, rooms roomCreator, games gameReader) *Handlers {
	return &Handlers{
		logger: logger,
		users:  users,
		rooms:  rooms,
		games:  games,
	}
}

// Register - auth guards everything under /api.
func (that *Handlers) Register(e *echo.Echo, auth echo.MiddlewareFunc) {
	e.GET("/ping", that.Ping)
	e.POST("/signup", that.SignUp)
	e.POST("/signin", that.SignIn)
	e.GET("/stats", that.Leaderboard)

	api := e.Group("/api", auth)
	api.GET("/me", that.Me)
	api.GET("/me/stats", that.MyStats)
	api.POST("/room", that.CreateRoom)
	api.GET("/games/:room_id", that.GetGame)
}

func (that *Handlers) Ping(c echo.Context) error {
	return c.String(http.StatusOK, "pong")
}

func (that *Handlers) SignUp(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	user, err := that.users.SignUp(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return that.fail(c, "SignUp", err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "user created successfully",
		"id":      user.ID,
	})
}

func (that *Handlers) SignIn(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	token, err := that.users.SignIn(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return that.fail(c, "SignIn", err)
	}

	return c.JSON(http.StatusOK, echo.Map{"token": token})
}

func (that *Handlers) Me(c echo.Context) error {
	userID, ok := appmiddleware.UserID(c)
	if !ok {
		return c.NoContent(http.StatusUnauthorized)
	}

	return c.JSON(http.StatusOK, echo.Map{"user_id": userID})
}

func (that *Handlers) MyStats(c echo.Context) error {
	userID, ok := appmiddleware.UserID(c)
	if !ok {
		return c.NoContent(http.StatusUnauthorized)
	}

	stats, err := that.users.Stats(c.Request().Context(), userID)
	if err != nil {
		return that.fail(c, "MyStats", err)
	}

	return c.JSON(http.StatusOK, stats)
}

func (that *Handlers) Leaderboard(c echo.Context) error {
	stats, err := that.users.Leaderboard(c.Request().Context())
	if err != nil {
		return that.fail(c, "Leaderboard", err)
	}

	return c.JSON(http.StatusOK, stats)
}

func (that *Handlers) CreateRoom(c echo.Context) error {
	userID, ok := appmiddleware.UserID(c)
	if !ok {
		return c.NoContent(http.StatusUnauthorized)
	}

	roomID, err := that.rooms.CreateRoom(c.Request().Context(), userID)
	if err != nil {
		return that.fail(c, "CreateRoom", err)
	}

	return c.JSON(http.StatusOK, echo.Map{"room_id": roomID})
}

func (that *Handlers) GetGame(c echo.Context) error {
	roomID, err := uuid.Parse(c.Param("room_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}

	outcome, err := that.games.GetOutcome(c.Request().Context(), roomID)
	if err != nil {
		return that.fail(c, "GetGame", err)
	}

	return c.JSON(http.StatusOK, outcome)
}

func (that *Handlers) fail(c echo.Context, method string, err error) error {
	switch {
	case errors.Is(err, apperror.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, apperror.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	case errors.Is(err, apperror.ErrUserAlreadyExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "user already exists"})
	case errors.Is(err, apperror.ErrNotFound), errors.Is(err, apperror.ErrRoomNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, apperror.ErrRoomClosed):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "server is shutting down"})
	default:
		that.logger.Error("request failed", "method", method, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
}
