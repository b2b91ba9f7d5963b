package jwt

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CustomClaims описывает пользовательские данные, хранящиеся в JWT.
// Subject содержит идентификатор пользователя, ID уникален для каждого токена.
type CustomClaims struct {
	Username             string    `json:"username"`
	Role                 string    `json:"role"`
	TokenType            TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// UserID возвращает идентификатор пользователя из Subject.
func (c *CustomClaims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// GenerateToken создает подписанный токен заданного типа.
func (j *MakerImpl) GenerateToken(userID int64, username, role string, tokenType TokenType) (string, error) {
	now := time.Now()
	claims := CustomClaims{
		Username:  username,
		Role:      role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl(tokenType))),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.secretKey))
}

// ParseToken проверяет подпись и срок действия токена и возвращает его claims.
func (j *MakerImpl) ParseToken(tokenStr string) (*CustomClaims, error) {
	const op = "jwt.ParseToken"
	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(j.secretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	if _, err := claims.UserID(); err != nil {
		return nil, fmt.Errorf("%s: bad subject: %w", op, err)
	}
	return claims, nil
}
