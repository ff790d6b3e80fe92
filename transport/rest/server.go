package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	appmiddleware "github.com/rocketscienceinc/tictactoe-arena/transport/middleware"
)

type Server struct {
	logger *slog.Logger
	echo   *echo.Echo
}

func NewServer(logger *slog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(appmiddleware.RequestLogger(logger))

	return &Server{
		logger: logger,
		echo:   e,
	}
}

// Echo - router to register handlers on.
func (that *Server) Echo() *echo.Echo {
	return that.echo
}

// Start - blocks until the server fails or is shut down.
func (that *Server) Start(port string) error {
	srv := &http.Server{
		Addr:         ":" + port,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	if err := that.echo.StartServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) Shutdown(ctx context.Context) error {
	if err := that.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}
