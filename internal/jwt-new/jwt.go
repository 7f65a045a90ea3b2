package security

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/matintgp/ecommerce-proj/internal/domain/models"
)

// Типы токенов: access передаётся в Authorization, refresh только обменивается на новый access
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenPair - ответ на успешный вход
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Claims - данные, извлечённые из проверенного токена
type Claims struct {
	UserID  int64
	IsStaff bool
	Type    string
}

// Secret возвращает ключ подписи из переменной окружения JWT_SECRET.
func Secret() ([]byte, error) {
	secretStr := os.Getenv("JWT_SECRET")
	if secretStr == "" {
		return nil, errors.New("JWT_SECRET environment variable is not set")
	}
	return []byte(secretStr), nil
}

// NewToken генерирует JWT-токен заданного типа для пользователя с указанным временем жизни.
func NewToken(user *models.User, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   fmt.Sprintf("%d", user.ID),
		"email": user.Email,
		"staff": user.IsStaff,
		"type":  tokenType,
		"exp":   now.Add(ttl).Unix(),
		"iat":   now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	secret, err := Secret()
	if err != nil {
		return "", err
	}
	return token.SignedString(secret)
}

// NewTokenPair выпускает access и refresh токены
func NewTokenPair(user *models.User, accessTTL, refreshTTL time.Duration) (TokenPair, error) {
	access, err := NewToken(user, TypeAccess, accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := NewToken(user, TypeRefresh, refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// Parse проверяет подпись, срок действия и тип токена.
func Parse(tokenStr string, secret []byte, expectedType string) (*Claims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		// Проверка алгоритма
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	sub, ok := mc["sub"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: sub not found", ErrInvalidToken)
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id", ErrInvalidToken)
	}

	// токены без type считаются access
	tokenType, _ := mc["type"].(string)
	if tokenType == "" {
		tokenType = TypeAccess
	}
	if tokenType != expectedType {
		return nil, fmt.Errorf("%w: unexpected token type %q", ErrInvalidToken, tokenType)
	}
	staff, _ := mc["staff"].(bool)

	return &Claims{UserID: userID, IsStaff: staff, Type: tokenType}, nil
}
