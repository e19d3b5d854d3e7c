package identity

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/edutrack/core"
	"github.com/trezcool/edutrack/core/auth"
)

const audience = "EduTrack"

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Email        string `json:"email,omitempty"`
}

// TokenIssuer signs and checks session tokens.
type TokenIssuer struct {
	issuer            string
	signingKey        []byte
	method            jwt.SigningMethod
	expiration        time.Duration
	refreshExpiration time.Duration
}

func NewTokenIssuer(conf *core.Config) *TokenIssuer {
	return &TokenIssuer{
		issuer:            conf.AppName,
		signingKey:        []byte(conf.SecretKey),
		method:            jwt.SigningMethodHS256,
		expiration:        conf.Server.JWTExpirationDelta,
		refreshExpiration: conf.Server.JWTRefreshExpirationDelta,
	}
}

// Issue signs a new session for usr. origIat is the time of the sign-in the session descends from.
func (ti *TokenIssuer) Issue(usr auth.User, origIat time.Time) (auth.Session, error) {
	now := time.Now()
	exp := now.Add(ti.expiration)
	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.New().String(),
			Issuer:    ti.issuer,
			Subject:   usr.ID,
			Audience:  audience,
			ExpiresAt: exp.Unix(),
			IssuedAt:  now.Unix(),
		},
		OrigIssuedAt: origIat.Unix(),
		Email:        usr.Email,
	}

	ss, err := jwt.NewWithClaims(ti.method, claims).SignedString(ti.signingKey)
	if err != nil {
		return auth.Session{}, errors.Wrap(err, "signing token")
	}
	return auth.Session{
		AccessToken: ss,
		ExpiresAt:   time.Unix(exp.Unix(), 0).UTC(),
		User:        usr,
	}, nil
}

// Parse checks the signature and expiry of token.
func (ti *TokenIssuer) Parse(token string) (*Claims, error) {
	claims := new(Claims)
	tok, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != ti.method.Alg() {
			return nil, errors.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return ti.signingKey, nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	if !claims.VerifyAudience(audience, true) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// RefreshDeadline is the last moment a session descending from claims can be refreshed.
func (ti *TokenIssuer) RefreshDeadline(claims *Claims) time.Time {
	return time.Unix(claims.OrigIssuedAt, 0).Add(ti.refreshExpiration)
}
