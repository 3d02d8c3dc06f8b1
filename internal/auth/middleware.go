package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"unismart/internal/identity"
)

// Context keys set by Authenticate.
const (
	ClaimsKey = "claims"
	UserKey   = "user"
)

// SessionStore loads the current user of a login session.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) (identity.User, error)
	Clear(ctx context.Context, sessionID string) error
}

// Roster is the source of truth for accounts.
type Roster interface {
	Get(ctx context.Context, id string) (identity.User, error)
}

// Authenticate enforces bearer access tokens and loads the session's user
// as it currently stands in the roster. Sessions of removed accounts are ended.
func Authenticate(tokens *Tokens, sessions SessionStore, roster Roster) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		claims, err := tokens.Parse(tokenStr, KindAccess)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		ctx := c.Request.Context()
		if _, err := sessions.Load(ctx, claims.SessionID()); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session ended"})
			return
		}
		user, err := roster.Get(ctx, claims.UserID)
		if errors.Is(err, identity.ErrNotFound) {
			_ = sessions.Clear(ctx, claims.SessionID())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account removed"})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.Set(ClaimsKey, claims)
		c.Set(UserKey, user)
		c.Next()
	}
}

// RequireRole lets only the listed roles through. It must run after
// Authenticate.
func RequireRole(roles ...identity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}
		for _, r := range roles {
			if u.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}

// CurrentUser returns the user loaded by Authenticate.
func CurrentUser(c *gin.Context) (identity.User, bool) {
	v, ok := c.Get(UserKey)
	if !ok {
		return identity.User{}, false
	}
	u, ok := v.(identity.User)
	return u, ok
}

// CurrentClaims returns the access token claims.
func CurrentClaims(c *gin.Context) (Claims, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return Claims{}, false
	}
	claims, ok := v.(Claims)
	return claims, ok
}
