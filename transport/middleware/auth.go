package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	userIDKey  = "user_id"
	queryToken = "token"
)

type tokenParser interface {
	ParseToken(token string) (uuid.UUID, error)
}

// Auth - requires "Authorization: Bearer <token>" and stores the user id in the echo context.
func Auth(parser tokenParser) echo.MiddlewareFunc {
	return authenticate(parser, headerToken)
}

// WebSocketAuth - like Auth, but also accepts the token as a query parameter since browsers
// cannot set headers on websocket handshakes.
func WebSocketAuth(parser tokenParser) echo.MiddlewareFunc {
	return authenticate(parser, func(r *http.Request) string {
		if token := headerToken(r); token != "" {
			return token
		}

		return r.URL.Query().Get(queryToken)
	})
}

// UserID - the authenticated user of the request.
func UserID(c echo.Context) (uuid.UUID, bool) {
	userID, ok := c.Get(userIDKey).(uuid.UUID)
	return userID, ok
}

func authenticate(parser tokenParser, extract func(r *http.Request) string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extract(c.Request())
			if token == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}

			userID, err := parser.ParseToken(token)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			c.Set(userIDKey, userID)

			return next(c)
		}
	}
}

func headerToken(r *http.Request) string {
	header := r.Header.Get(echo.HeaderAuthorization)

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}

	return strings.TrimSpace(token)
}
