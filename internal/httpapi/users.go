package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"unismart/internal/identity"
)

func (s *Server) listUsers(c *gin.Context) {
	f := identity.Filter{Search: c.Query("search")}
	if raw := c.Query("role"); raw != "" {
		role, err := identity.ParseRole(raw)
		if err != nil {
			s.handleServiceError(c, err)
			return
		}
		f.Role = role
	}

	ctx := c.Request.Context()
	users, err := s.Users.List(ctx, f)
	if err != nil {
		s.handleServiceError(c, err)
		return
	}
	counts, err := s.Users.Counts(ctx)
	if err != nil {
		s.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": identity.Profiles(users), "counts": counts})
}

func (s *Server) createUser(c *gin.Context) {
	var req identity.NewUser
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := s.Users.Create(c.Request.Context(), req)
	if err != nil {
		s.handleServiceError(c, err)
		return
	}
	s.Log.Info("user created", "user", u.ID, "role", u.Role)
	c.JSON(http.StatusCreated, u.Profile())
}

func (s *Server) deleteUser(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if err := s.Users.Delete(ctx, id); err != nil {
		s.handleServiceError(c, err)
		return
	}
	if err := s.Sessions.ClearUser(ctx, id); err != nil {
		s.Log.Warn("clear sessions of deleted user", "user", id, "error", err)
	}
	s.Log.Info("user deleted", "user", id)
	c.Status(http.StatusNoContent)
}

// importUsers adds structured records, or free text parsed by the advisor.
func (s *Server) importUsers(c *gin.Context) {
	var req struct {
		Text    string             `json:"text"`
		Records []identity.NewUser `json:"records"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	records := req.Records
	if req.Text != "" {
		records = s.Advisor.ParseRoster(ctx, req.Text)
	}
	if len(records) == 0 {
		c.JSON(http.StatusOK, identity.ImportResult{Added: []identity.User{}, Skipped: []string{}})
		return
	}

	res, err := s.Users.Import(ctx, records)
	if err != nil {
		s.handleServiceError(c, err)
		return
	}
	s.Log.Info("users imported", "added", len(res.Added), "skipped", len(res.Skipped))
	c.JSON(http.StatusOK, gin.H{"added": identity.Profiles(res.Added), "skipped": res.Skipped})
}
