package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const handleIssuer = "learnbytech"

// ErrInvalidHandle is returned for handles that are malformed, badly signed or expired.
var ErrInvalidHandle = errors.New("invalid session handle")

// HandleCodec signs session ids into opaque client-side handles and reads them back.
// The handle only proves the id was issued by this server; the session row
// remains the source of truth.
type HandleCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewHandleCodec returns a codec signing with secret. A zero ttl issues handles
// without an expiry.
func NewHandleCodec(secret string, ttl time.Duration) (*HandleCodec, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("session secret must be at least 16 bytes")
	}
	return &HandleCodec{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL reports how long issued handles stay valid.
func (c *HandleCodec) TTL() time.Duration {
	return c.ttl
}

// Encode returns the signed handle for sessionID.
func (c *HandleCodec) Encode(sessionID string) (string, error) {
	now := c.now()
	claims := jwt.RegisteredClaims{
		ID:       sessionID,
		Issuer:   handleIssuer,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if c.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(c.ttl))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session handle: %w", err)
	}
	return signed, nil
}

// Decode verifies handle and returns the session id it carries.
func (c *HandleCodec) Decode(handle string) (string, error) {
	if handle == "" {
		return "", ErrInvalidHandle
	}
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(handle, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(handleIssuer),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !token.Valid || claims.ID == "" {
		return "", ErrInvalidHandle
	}
	return claims.ID, nil
}
