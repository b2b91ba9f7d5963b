// Package jwt реализует выпуск и разбор access и refresh токенов.
//
// Maker определяет интерфейс для создания и проверки токенов с идентификатором,
// именем и ролью пользователя. MakerImpl реализует его на HS256 с общим секретом.
package jwt

import (
	"time"
)

// TokenType различает access и refresh токены.
type TokenType string

const (
	// Access короткоживущий токен для запросов к API.
	Access TokenType = "access"
	// Refresh токен для получения нового access-токена.
	Refresh TokenType = "refresh"
)

// Maker описывает интерфейс для генерации и парсинга JWT токенов.
type Maker interface {
	GenerateToken(userID int64, username, role string, tokenType TokenType) (string, error)
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl реализует Maker с использованием секретного ключа
// и отдельных сроков жизни для access и refresh токенов.
type MakerImpl struct {
	secretKey  string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewJWTMaker создаёт новый экземпляр MakerImpl.
func NewJWTMaker(secretKey string, accessTTL, refreshTTL time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey:  secretKey,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func (j *MakerImpl) ttl(tokenType TokenType) time.Duration {
	if tokenType == Refresh {
		return j.refreshTTL
	}
	return j.accessTTL
}
