package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)

// tokenPrefix versions the wire format: "ot1.<claims>.<mac>", both parts
// base64url without padding. The MAC covers the prefix too.
const tokenPrefix = "ot1"

// clockSkew is how far in the future an iat may sit before the token is
// refused.
const clockSkew = time.Minute

// AccessClaims describe the signed-in user of an access token.
type AccessClaims struct {
	UserID    string `json:"sub"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	TokenID   string `json:"jti"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

func (c AccessClaims) Expiry() time.Time {
	return time.Unix(c.ExpiresAt, 0)
}

func (c AccessClaims) complete() bool {
	return c.UserID != "" && c.TokenID != "" && c.IssuedAt > 0 && c.ExpiresAt > c.IssuedAt
}

// Signer issues and verifies HMAC-SHA256 access tokens with a fixed
// lifetime.
type Signer struct {
	key []byte
	ttl time.Duration
}

func NewSigner(secret string, ttl time.Duration) *Signer {
	return &Signer{key: []byte(secret), ttl: ttl}
}

// Issue signs claims for userID valid from now until now+ttl.
func (s *Signer) Issue(userID, name, email, tokenID string, now time.Time) (string, AccessClaims, error) {
	claims := AccessClaims{
		UserID:    userID,
		Name:      name,
		Email:     email,
		TokenID:   tokenID,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.ttl).Unix(),
	}
	if !claims.complete() {
		return "", AccessClaims{}, fmt.Errorf("issue token for %q: incomplete claims", userID)
	}
	raw, err := json.Marshal(claims)
	if err != nil {
		return "", AccessClaims{}, fmt.Errorf("encode claims: %w", err)
	}
	body := tokenPrefix + "." + base64.RawURLEncoding.EncodeToString(raw)
	return body + "." + s.mac(body), claims, nil
}

// Parse verifies token as of now. A bad MAC, a malformed body or an iat
// beyond the allowed skew is ErrInvalidToken; a past expiry is
// ErrExpiredToken.
func (s *Signer) Parse(token string, now time.Time) (AccessClaims, error) {
	cut := strings.LastIndexByte(token, '.')
	if cut <= 0 {
		return AccessClaims{}, ErrInvalidToken
	}
	body, mac := token[:cut], token[cut+1:]
	if !hmac.Equal([]byte(mac), []byte(s.mac(body))) {
		return AccessClaims{}, ErrInvalidToken
	}

	prefix, encoded, ok := strings.Cut(body, ".")
	if !ok || prefix != tokenPrefix {
		return AccessClaims{}, ErrInvalidToken
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return AccessClaims{}, ErrInvalidToken
	}
	var claims AccessClaims
	if err := json.Unmarshal(raw, &claims); err != nil || !claims.complete() {
		return AccessClaims{}, ErrInvalidToken
	}

	if time.Unix(claims.IssuedAt, 0).After(now.Add(clockSkew)) {
		return AccessClaims{}, ErrInvalidToken
	}
	if !now.Before(claims.Expiry()) {
		return AccessClaims{}, ErrExpiredToken
	}
	return claims, nil
}

func (s *Signer) mac(body string) string {
	h := hmac.New(sha256.New, s.key)
	_, _ = h.Write([]byte(body))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// HashToken keys refresh sessions; the raw refresh token is never stored.
func HashToken(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
