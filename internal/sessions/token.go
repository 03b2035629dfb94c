package sessions

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	errTokenExpired = errors.New("session token expired")
	errTokenIssuer  = errors.New("session token issuer mismatch")
)

// Claims binds a token to one interview and invite. The jti is the
// RegisteredClaims ID and must match the invite's active session.
type Claims struct {
	InviteID string `json:"inv"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	issuer string
}

func NewTokenIssuer(secret, issuer string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), issuer: issuer}
}

func (i *TokenIssuer) Issue(jti, interviewID, inviteID string, issuedAt, expiresAt time.Time) (string, error) {
	claims := Claims{
		InviteID: inviteID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   interviewID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature first and only then checks issuer and expiry,
// so an expired token's claims are trustworthy. Expiry is reported with the
// claims so the caller can close the session.
func (i *TokenIssuer) Parse(token string, now time.Time) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, err
	}
	if claims.Issuer != i.issuer {
		return nil, errTokenIssuer
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, errors.New("session token missing jti or subject")
	}
	if claims.ExpiresAt == nil || now.After(claims.ExpiresAt.Time) {
		return claims, errTokenExpired
	}
	return claims, nil
}
