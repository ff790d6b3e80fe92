package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
)

type AuthService interface {
	GenerateToken(userID uuid.UUID) (string, error)
	ParseToken(token string) (uuid.UUID, error)

	HashPassword(password string) (string, error)
	ComparePassword(hash, password string) error
}

type authServiceImpl struct {
	secretKey []byte
	tokenTTL  time.Duration
}

func NewAuthService(secretKey string, tokenTTL time.Duration) AuthService {
	return &authServiceImpl{
		secretKey: []byte(secretKey),
		tokenTTL:  tokenTTL,
	}
}

// GenerateToken - HS256 token with the user id in "sub".
func (that *authServiceImpl) GenerateToken(userID uuid.UUID) (string, error) {
	claims := jwt.MapClaims{}
	claims["sub"] = userID.String()
	claims["exp"] = time.Now().Add(that.tokenTTL).Unix()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(that.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

func (that *authServiceImpl) ParseToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		return that.secretKey, nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", apperror.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return uuid.Nil, apperror.ErrInvalidToken
	}

	subject, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: missing subject", apperror.ErrInvalidToken)
	}

	userID, err := uuid.Parse(subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", apperror.ErrInvalidToken, err)
	}

	return userID, nil
}

func (that *authServiceImpl) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hash), nil
}

func (that *authServiceImpl) ComparePassword(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return apperror.ErrInvalidCredentials
	}

	if err != nil {
		return fmt.Errorf("failed to compare password: %w", err)
	}

	return nil
}
