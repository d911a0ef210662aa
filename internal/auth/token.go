// Package auth mints and verifies the signaling-channel tokens.
//
// Scoped tokens are short-lived HMAC JWTs derived from an already
// authenticated identity. They are stateless: validity is purely a
// function of signature and expiry, nothing is stored server-side.
package auth

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/interviewly/voicegate/internal/domain"
)

// ScopedTokenTTL bounds the exposure window of a scoped token.
// Revoking the primary token does not recall tokens already issued.
const ScopedTokenTTL = 5 * time.Minute

var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// NowFunc returns the current time. It can be overridden in tests.
var NowFunc = time.Now

// Claims is the identity bundle carried by both the primary and the
// scoped token. Both are signed with the same secret; the scoped one
// differs only in purpose and lifetime.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwtlib.RegisteredClaims
}

type Issuer struct {
	secret []byte
}

func NewIssuer(secret string) *Issuer {
	return &Issuer{secret: []byte(secret)}
}

// IssueScoped mints a signaling-channel credential for ident.
func (i *Issuer) IssueScoped(ident domain.Identity) (string, error) {
	now := NowFunc()
	claims := Claims{
		UserID: string(ident.UserID),
		Email:  ident.Email,
		Role:   ident.Role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ScopedTokenTTL)),
		},
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Verify checks signature and expiry and returns the immutable
// identity the token carries.
func (i *Issuer) Verify(raw string) (domain.Identity, error) {
	var claims Claims
	token, err := jwtlib.ParseWithClaims(raw, &claims,
		func(t *jwtlib.Token) (any, error) { return i.secret, nil },
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithTimeFunc(func() time.Time { return NowFunc() }),
	)
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return domain.Identity{}, ErrTokenExpired
		}
		return domain.Identity{}, ErrTokenInvalid
	}
	if !token.Valid || claims.UserID == "" {
		return domain.Identity{}, ErrTokenInvalid
	}
	return domain.Identity{
		UserID: domain.UserID(claims.UserID),
		Email:  claims.Email,
		Role:   claims.Role,
	}, nil
}
