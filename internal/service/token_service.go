package service

import (
	"errors"
	"time"

	"e2ee-chat/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("service: invalid session token")

type TokenConfig struct {
	Issuer     string
	TTL        time.Duration
	SigningKey []byte // HS256 secret
}

// SessionClaims binds a token to a session row; the row stays the source
// of truth for revocation.
type SessionClaims struct {
	SID string `json:"sid"`
	jwt.RegisteredClaims
}

type TokenService struct {
	cfg TokenConfig
}

func NewTokenServiceHS256(cfg TokenConfig) *TokenService {
	return &TokenService{cfg: cfg}
}

func (t *TokenService) Sign(sessionID domain.SessionID, now time.Time) (string, error) {
	claims := SessionClaims{
		SID: sessionID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.cfg.TTL)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.cfg.SigningKey)
}

func (t *TokenService) Parse(token string) (domain.SessionID, error) {
	var claims SessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return t.cfg.SigningKey, nil
	}, jwt.WithIssuer(t.cfg.Issuer), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return uuid.Nil, ErrInvalidToken
	}
	sid, err := uuid.Parse(claims.SID)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return sid, nil
}
