package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	vo "github.com/ignatzorin/service-marketplace/internal/domain/valueobject"
)

// TokenManager проверяет access токены. Выпуск токенов нужен инструментам и тестам,
// рабочие токены выдаёт модуль аутентификации.
type TokenManager struct {
	accessSecret []byte
	accessTTL    time.Duration
}

// NewTokenManager создаёт менеджер токенов.
func NewTokenManager(accessSecret string, accessTTL time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret: []byte(accessSecret),
		accessTTL:    accessTTL,
	}
}

// Issue выпускает access токен с ролью пользователя.
func (m *TokenManager) Issue(userID uuid.UUID, role vo.Role) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  userID.String(),
		"role": string(role),
		"iat":  now.Unix(),
		"exp":  now.Add(m.accessTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.accessSecret)
}

// ParseAccess извлекает вызывающего из access токена.
func (m *TokenManager) ParseAccess(token string) (Caller, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return m.accessSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Caller{}, err
	}
	if !parsed.Valid {
		return Caller{}, jwt.ErrTokenInvalidClaims
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Caller{}, jwt.ErrTokenInvalidClaims
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return Caller{}, jwt.ErrTokenInvalidClaims
	}

	userID, err := uuid.Parse(sub)
	if err != nil {
		return Caller{}, err
	}

	role, _ := claims["role"].(string)
	switch vo.Role(role) {
	case vo.RoleCustomer, vo.RoleVendor, vo.RoleAdmin:
	default:
		return Caller{}, jwt.ErrTokenInvalidClaims
	}

	return Caller{UserID: userID, Role: vo.Role(role)}, nil
}
