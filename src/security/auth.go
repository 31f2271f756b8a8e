package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const MinSecretLength = 32

var ErrInvalidToken = errors.New("invalid token")

type AuthService struct {
	JWTSecret   string
	TokenExpiry time.Duration
	now         func() time.Time
}

func NewAuthService(secret string, expiry time.Duration) *AuthService {
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &AuthService{JWTSecret: secret, TokenExpiry: expiry, now: time.Now}
}

// GenerateToken issues an HS256 access token whose subject is the ledger
// owner id.
func (a *AuthService) GenerateToken(ownerID string) (string, error) {
	if ownerID == "" {
		return "", errors.New("owner id is required")
	}
	if len(a.JWTSecret) < MinSecretLength {
		return "", errors.New("JWT secret must be at least 32 bytes")
	}
	now := a.now()
	claims := jwt.MapClaims{
		"sub": ownerID,
		"exp": now.Add(a.TokenExpiry).Unix(),
		"iat": now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.JWTSecret))
}

// ValidateToken returns the owner id carried in the token's sub claim.
func (a *AuthService) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(a.JWTSecret), nil
	}, jwt.WithTimeFunc(a.now), jwt.WithExpirationRequired())
	if err != nil {
		return "", errors.Join(ErrInvalidToken, err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		sub, ok := claims["sub"].(string)
		if !ok || sub == "" {
			return "", errors.Join(ErrInvalidToken, errors.New("'sub' claim missing or not a string"))
		}
		return sub, nil
	}

	return "", ErrInvalidToken
}
