package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token kinds.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrWrongKind    = errors.New("wrong token kind")
)

// TokenPair holds access and refresh tokens.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	AccessExp    time.Time `json:"access_expires_at"`
	RefreshExp   time.Time `json:"refresh_expires_at"`
}

// Claims represents JWT payload. RegisteredClaims.ID carries the login
// session id.
type Claims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	Kind   string `json:"kind"`
	jwt.RegisteredClaims
}

// SessionID returns the login session the token belongs to.
func (c Claims) SessionID() string { return c.ID }

// Tokens issues and validates HS256 tokens.
type Tokens struct {
	Issuer     string
	Key        []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	NowFunc    func() time.Time
}

func NewTokens(issuer, key string, accessTTL, refreshTTL time.Duration) *Tokens {
	return &Tokens{
		Issuer:     issuer,
		Key:        []byte(key),
		AccessTTL:  accessTTL,
		RefreshTTL: refreshTTL,
		NowFunc:    time.Now,
	}
}

// Issue issues signed access and refresh tokens for one login session.
func (t *Tokens) Issue(userID, role, sessionID string) (TokenPair, error) {
	now := t.NowFunc()
	accessExp := now.Add(t.AccessTTL)
	refreshExp := now.Add(t.RefreshTTL)

	accessToken, err := t.sign(userID, role, sessionID, KindAccess, now, accessExp)
	if err != nil {
		return TokenPair{}, err
	}
	refreshToken, err := t.sign(userID, role, sessionID, KindRefresh, now, refreshExp)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

func (t *Tokens) sign(userID, role, sessionID, kind string, now, exp time.Time) (string, error) {
	claims := Claims{
		UserID: userID,
		Role:   role,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Issuer:    t.Issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.Key)
}

// Parse validates a token of the given kind and returns claims.
func (t *Tokens) Parse(tokenStr, kind string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return t.Key, nil
	}, jwt.WithTimeFunc(t.NowFunc), jwt.WithIssuer(t.Issuer))
	if err != nil {
		return Claims{}, errors.Join(ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.ID == "" {
		return Claims{}, ErrInvalidToken
	}
	if claims.Kind != kind {
		return Claims{}, ErrWrongKind
	}
	return *claims, nil
}
