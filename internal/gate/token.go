package gate

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "linkgate"

var ErrInvalidToken = errors.New("invalid site access token")

// SiteClaims is the payload of a site access token. PasswordFingerprint ties
// the token to the site password hash it was issued under, so changing the
// password revokes every outstanding token.
type SiteClaims struct {
	PasswordFingerprint string `json:"pwf"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies site access tokens (HS256).
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func fingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(sum[:8])
}

// Issue returns a token valid for the configured TTL.
func (t *TokenIssuer) Issue(passwordHash string) (string, time.Time, error) {
	now := t.now()
	expiresAt := now.Add(t.ttl)

	claims := &SiteClaims{
		PasswordFingerprint: fingerprint(passwordHash),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign site token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks the signature, expiry and that the token was issued under
// the current password hash.
func (t *TokenIssuer) Verify(token, passwordHash string) error {
	claims := &SiteClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.PasswordFingerprint != fingerprint(passwordHash) {
		return ErrInvalidToken
	}
	return nil
}
