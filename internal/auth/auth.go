// Package auth issues and verifies the bearer tokens that carry an employee identity.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"taskDesk/internal/apperr"
	"taskDesk/internal/config"
	"taskDesk/internal/models/task"

	"github.com/golang-jwt/jwt/v4"
)

var ErrNoSecret = errors.New("auth secret is not configured")

type Claims struct {
	EmpID   int64  `json:"emp_id"`
	EmpName string `json:"emp_name"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(cfg config.AuthConfig) (*Issuer, error) {
	if cfg.Secret == "" {
		return nil, ErrNoSecret
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue signs a token for actor and returns it with its expiry.
func (i *Issuer) Issue(actor task.Actor) (string, time.Time, error) {
	now := i.now()
	expires := now.Add(i.ttl)
	claims := Claims{
		EmpID:   actor.EmpID,
		EmpName: actor.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   strconv.FormatInt(actor.EmpID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// Parse verifies token and returns the employee it was issued to.
func (i *Issuer) Parse(token string) (task.Actor, error) {
	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	})
	if err != nil {
		return task.Actor{}, apperr.Wrap(apperr.CodeUnauthenticated, "invalid token", err)
	}
	if i.issuer != "" && !claims.VerifyIssuer(i.issuer, true) {
		return task.Actor{}, apperr.New(apperr.CodeUnauthenticated, "token issued by someone else")
	}
	if claims.EmpID <= 0 {
		return task.Actor{}, apperr.New(apperr.CodeUnauthenticated, "token carries no employee")
	}
	return task.Actor{EmpID: claims.EmpID, Name: claims.EmpName}, nil
}

type contextKey struct{}

func WithActor(ctx context.Context, actor task.Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, actor)
}

func ActorFrom(ctx context.Context) (task.Actor, bool) {
	actor, ok := ctx.Value(contextKey{}).(task.Actor)
	return actor, ok
}
