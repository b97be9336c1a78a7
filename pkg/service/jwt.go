package service

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	apperrors "field-service/pkg/errors"
)

type JwtCustomClaim struct {
	UserID uint64 `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type JWTService interface {
	GenerateToken(userID uint64, role string) (string, error)
	ValidateToken(tokenString string) (*JwtCustomClaim, error)
	GetAccessTokenTTL() time.Duration
}

type jwtService struct {
	SecretKey      string
	AccessTokenExp time.Duration
	now            func() time.Time
}

func NewJWTService(secretKey string, accessTokenExp time.Duration) JWTService {
	return &jwtService{
		SecretKey:      secretKey,
		AccessTokenExp: accessTokenExp,
		now:            time.Now,
	}
}

func (service *jwtService) GenerateToken(userID uint64, role string) (string, error) {
	now := service.now()
	claims := &JwtCustomClaim{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(service.AccessTokenExp)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signed, err := token.SignedString([]byte(service.SecretKey))
	if err != nil {
		return "", fmt.Errorf("не удалось подписать токен: %w", err)
	}
	return signed, nil
}

func (service *jwtService) GetAccessTokenTTL() time.Duration {
	return service.AccessTokenExp
}

func (service *jwtService) ValidateToken(tokenString string) (*JwtCustomClaim, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JwtCustomClaim{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperrors.ErrInvalidSigningMethod
		}
		return []byte(service.SecretKey), nil
	}, jwt.WithTimeFunc(service.now))

	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, apperrors.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return nil, apperrors.ErrTokenNotYetValid
	case errors.Is(err, apperrors.ErrInvalidSigningMethod):
		return nil, apperrors.ErrInvalidSigningMethod
	default:
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*JwtCustomClaim)
	if !ok || !token.Valid {
		return nil, apperrors.ErrInvalidToken
	}
	return claims, nil
}
