package services

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"fleet-analytics-api/config"
)

var ErrAccessDenied = errors.New("invalid access key")

// TokenService issues the signed session tokens that scope uploads. When an
// access key hash is configured, opening a session requires the key.
type TokenService struct {
	jwtSecret []byte
	expiryH   int
	keyHash   string
}

func NewTokenService(jwtCfg config.JWTConfig, access config.AccessConfig) *TokenService {
	return &TokenService{
		jwtSecret: []byte(jwtCfg.Secret),
		expiryH:   jwtCfg.ExpiryHours,
		keyHash:   access.KeyHash,
	}
}

// HashKey produces the value operators put in ACCESS_KEY_HASH.
func HashKey(plain string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	return string(bytes), err
}

func (s *TokenService) KeyRequired() bool {
	return s.keyHash != ""
}

func (s *TokenService) CheckKey(plain string) bool {
	if s.keyHash == "" {
		return true
	}
	return bcrypt.CompareHashAndPassword([]byte(s.keyHash), []byte(plain)) == nil
}

// TTL is the session lifetime; stored uploads expire with the token.
func (s *TokenService) TTL() time.Duration {
	return time.Duration(s.expiryH) * time.Hour
}

type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Open checks the access key and issues a token for a fresh session id.
func (s *TokenService) Open(accessKey string) (string, *Claims, error) {
	if !s.CheckKey(accessKey) {
		return "", nil, ErrAccessDenied
	}
	return s.GenerateToken(uuid.NewString())
}

func (s *TokenService) GenerateToken(sessionID string) (string, *Claims, error) {
	now := time.Now()
	claims := &Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TTL())),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

func (s *TokenService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{},
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return s.jwtSecret, nil
		},
	)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
