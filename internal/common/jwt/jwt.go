package jwt

import (
	"errors"
	"time"

	"social-im/internal/common/errcode"

	"github.com/golang-jwt/jwt/v5"
)

var defaultJWT *JWT

type Config struct {
	Key    string `json:"key" yaml:"key"`
	Expire int    `json:"expire" yaml:"expire"`
}

type JWT struct {
	config Config
}

type claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

func Init(config Config) {
	if config.Key == "" {
		panic("SigningKey is required")
	}
	if config.Expire <= 0 {
		config.Expire = 7 * 24 * 60
	}
	defaultJWT = &JWT{
		config: config,
	}
}

func GenerateToken(userID int64) (string, error) {
	now := time.Now()
	claims := claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(defaultJWT.config.Expire) * time.Minute)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(defaultJWT.config.Key))
}

func parseToken(tokenString string) (*claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(defaultJWT.config.Key), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errcode.ErrTokenExpired
		}
		return nil, errcode.ErrUnAuthorized
	}

	claims, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, errcode.ErrUnAuthorized
	}

	return claims, nil
}

func GetUserIDFromToken(tokenString string) (int64, error) {
	claims, err := parseToken(tokenString)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}
