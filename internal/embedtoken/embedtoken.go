// Package embedtoken issues signed tokens that let an external platform
// render a story at its consented share level. A token is minted on every
// grant and travels inside the consent.granted webhook payload.
package embedtoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	id "taleweave/pkg/domain"
)

const issuerName = "taleweave"

// DefaultTTL bounds how long an embed token stays usable before the platform
// must refresh it through the API.
const DefaultTTL = 24 * time.Hour

var (
	ErrInvalidToken = errors.New("invalid embed token")
	ErrExpiredToken = errors.New("embed token expired")
)

// Claims is the embed token payload.
type Claims struct {
	StoryID    string `json:"story_id"`
	AppID      string `json:"app_id"`
	ShareLevel string `json:"share_level"`
	jwt.RegisteredClaims
}

// Issuer mints and verifies embed tokens with a shared HMAC key.
type Issuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// Option configures the Issuer.
type Option func(*Issuer)

// WithTTL overrides the token lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(i *Issuer) {
		if ttl > 0 {
			i.ttl = ttl
		}
	}
}

// WithClock injects the time source. Tests use a fixed clock.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		if now != nil {
			i.now = now
		}
	}
}

// New creates an issuer from the signing key.
func New(key []byte, opts ...Option) *Issuer {
	i := &Issuer{key: key, ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Issue mints a token binding the story, app, and share level together.
func (i *Issuer) Issue(storyID id.StoryID, appID id.AppID, shareLevel string) (string, error) {
	now := i.now()
	claims := Claims{
		StoryID:    storyID.String(),
		AppID:      appID.String(),
		ShareLevel: shareLevel,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuerName,
			Subject:   storyID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("sign embed token: %w", err)
	}
	return token, nil
}

// Verify parses the token and returns its claims.
func (i *Issuer) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Header["alg"])
		}
		return i.key, nil
	}, jwt.WithIssuer(issuerName), jwt.WithTimeFunc(i.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
