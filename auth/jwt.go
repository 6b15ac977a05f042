package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the JWT payload a JWTTicketIssuer signs, adapted from the
// teacher's internal/auth.Claims (go-server/internal/auth/jwt.go) to carry
// a WAMP authid/realm pair instead of an HTTP session's user/role fields.
type Claims struct {
	AuthID string `json:"authid"`
	Realm  string `json:"realm"`
	jwt.RegisteredClaims
}

// JWTTicketIssuer mints and verifies the JSON Web Tokens this client uses
// as WAMP-Ticket tickets, grounded on go-server/internal/auth/jwt.go's
// JWTManager (Generate/Verify pair over HS256).
type JWTTicketIssuer struct {
	secretKey []byte
	ttl       time.Duration
	issuer    string
}

// NewJWTTicketIssuer constructs an issuer signing with secretKey, minting
// tokens valid for ttl.
func NewJWTTicketIssuer(secretKey string, ttl time.Duration, issuer string) *JWTTicketIssuer {
	if issuer == "" {
		issuer = "aiowamp-client"
	}
	return &JWTTicketIssuer{secretKey: []byte(secretKey), ttl: ttl, issuer: issuer}
}

// Issue mints a ticket for authID on realm, usable as a TicketAuth.Ticket.
func (j *JWTTicketIssuer) Issue(authID, realm string) (string, error) {
	now := time.Now()
	claims := &Claims{
		AuthID: authID,
		Realm:  realm,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    j.issuer,
			Subject:   authID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secretKey)
}

// Verify parses and validates a ticket previously issued by Issue (or by
// the router, for symmetric deployments that share a secret).
func (j *JWTTicketIssuer) Verify(ticket string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(ticket, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method %v", t.Header["alg"])
		}
		return j.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("auth: invalid ticket: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("auth: invalid ticket claims")
	}
	return claims, nil
}

// Ticket mints a TicketAuth method whose ticket is a freshly issued JWT,
// bridging this issuer to the Method interface.
func (j *JWTTicketIssuer) Ticket(authID, realm string) (TicketAuth, error) {
	tok, err := j.Issue(authID, realm)
	if err != nil {
		return TicketAuth{}, err
	}
	return TicketAuth{Ticket: tok}, nil
}
