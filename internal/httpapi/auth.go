package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"unismart/internal/auth"
	"unismart/internal/identity"
	"unismart/internal/navigation"
)

type sessionResponse struct {
	auth.TokenPair
	User identity.Profile `json:"user"`
	Tabs []navigation.Tab `json:"tabs"`
}

func (s *Server) login(c *gin.Context) {
	var req struct {
		Identifier string `json:"identifier" binding:"required"`
		Password   string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	u, err := s.Users.Login(c.Request.Context(), req.Identifier, req.Password)
	s.Metrics.RecordLogin(err == nil)
	if err != nil {
		s.handleServiceError(c, err)
		return
	}
	s.startSession(c, http.StatusOK, u)
}

func (s *Server) register(c *gin.Context) {
	var req identity.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	u, err := s.Users.Register(c.Request.Context(), req)
	if err != nil {
		s.handleServiceError(c, err)
		return
	}
	s.Metrics.RecordRegistration()
	s.Log.Info("user registered", "user", u.ID, "role", u.Role)
	s.startSession(c, http.StatusCreated, u)
}

// startSession writes the current-user record and issues tokens for it.
func (s *Server) startSession(c *gin.Context, status int, u identity.User) {
	sid := uuid.NewString()
	if err := s.Sessions.Save(c.Request.Context(), sid, u, s.Tokens.RefreshTTL); err != nil {
		s.handleServiceError(c, err)
		return
	}
	tokens, err := s.Tokens.Issue(u.ID, string(u.Role), sid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(status, sessionResponse{TokenPair: tokens, User: u.Profile(), Tabs: navigation.For(u.Role)})
}

func (s *Server) refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims, err := s.Tokens.Parse(req.RefreshToken, auth.KindRefresh)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	ctx := c.Request.Context()
	if _, err := s.Sessions.Load(ctx, claims.SessionID()); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session ended"})
		return
	}
	u, err := s.Users.Get(ctx, claims.UserID)
	if errors.Is(err, identity.ErrNotFound) {
		_ = s.Sessions.Clear(ctx, claims.SessionID())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "account removed"})
		return
	}
	if err != nil {
		s.handleServiceError(c, err)
		return
	}
	tokens, err := s.Tokens.Issue(u.ID, string(u.Role), claims.SessionID())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	if err := s.Sessions.Save(ctx, claims.SessionID(), u, s.Tokens.RefreshTTL); err != nil {
		s.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{TokenPair: tokens, User: u.Profile(), Tabs: navigation.For(u.Role)})
}

func (s *Server) logout(c *gin.Context) {
	claims, _ := auth.CurrentClaims(c)
	if err := s.Sessions.Clear(c.Request.Context(), claims.SessionID()); err != nil {
		s.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) me(c *gin.Context) {
	u := s.currentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"user":    u.Profile(),
		"initial": u.Initial(),
		"tabs":    navigation.For(u.Role),
	})
}
