package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenExpired   = errors.New("token is expired")
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenSignature = errors.New("token signature is invalid")
	ErrTokenInvalid   = errors.New("token is invalid")
)

// Token kinds, carried in the audience claim.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

// AccessClaims is the payload of a short-lived access token. It is a bearer
// credential only; the live identity is always re-read from the store.
type AccessClaims struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"name"`
	Role        string `json:"role"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of a long-lived refresh token.
type RefreshClaims struct {
	ID string `json:"id"`
	jwt.RegisteredClaims
}

type signer struct {
	secret []byte
	ttl    time.Duration
	kind   string
}

// TokenCodec signs and verifies access and refresh tokens with independent
// secrets and expirations.
type TokenCodec struct {
	access  signer
	refresh signer
	now     func() time.Time
}

func NewTokenCodec(accessSecret string, accessTTL time.Duration, refreshSecret string, refreshTTL time.Duration) *TokenCodec {
	return &TokenCodec{
		access:  signer{secret: []byte(accessSecret), ttl: accessTTL, kind: KindAccess},
		refresh: signer{secret: []byte(refreshSecret), ttl: refreshTTL, kind: KindRefresh},
		now:     time.Now,
	}
}

// IssueAccess signs claims with the configured access TTL.
func (c *TokenCodec) IssueAccess(claims AccessClaims) (string, error) {
	return c.IssueAccessTTL(claims, c.access.ttl)
}

func (c *TokenCodec) IssueAccessTTL(claims AccessClaims, ttl time.Duration) (string, error) {
	if strings.TrimSpace(claims.ID) == "" {
		return "", errors.New("access claims require an id")
	}
	claims.RegisteredClaims = c.registered(c.access, claims.ID, ttl)
	return sign(&claims, c.access.secret)
}

// IssueRefresh signs a refresh token for id with the configured refresh TTL.
func (c *TokenCodec) IssueRefresh(id string) (string, error) {
	return c.IssueRefreshTTL(id, c.refresh.ttl)
}

func (c *TokenCodec) IssueRefreshTTL(id string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", errors.New("refresh claims require an id")
	}
	claims := RefreshClaims{ID: id, RegisteredClaims: c.registered(c.refresh, id, ttl)}
	return sign(&claims, c.refresh.secret)
}

func (c *TokenCodec) VerifyAccess(token string) (AccessClaims, error) {
	var claims AccessClaims
	if err := c.verify(token, c.access, &claims); err != nil {
		return AccessClaims{}, err
	}
	if strings.TrimSpace(claims.ID) == "" {
		return AccessClaims{}, ErrTokenInvalid
	}
	return claims, nil
}

func (c *TokenCodec) VerifyRefresh(token string) (RefreshClaims, error) {
	var claims RefreshClaims
	if err := c.verify(token, c.refresh, &claims); err != nil {
		return RefreshClaims{}, err
	}
	if strings.TrimSpace(claims.ID) == "" {
		return RefreshClaims{}, ErrTokenInvalid
	}
	return claims, nil
}

// jti is unique per token; two tokens minted in the same second must differ.
func (c *TokenCodec) registered(s signer, subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := c.now()
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subject,
		Audience:  jwt.ClaimStrings{s.kind},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (c *TokenCodec) verify(tokenString string, s signer, claims jwt.Claims) error {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return ErrTokenMalformed
	}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithAudience(s.kind),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return ErrTokenSignature
		case errors.Is(err, jwt.ErrTokenMalformed):
			return ErrTokenMalformed
		default:
			return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
		}
	}
	if !token.Valid {
		return ErrTokenInvalid
	}
	return nil
}

func sign(claims jwt.Claims, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
