package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) reports(c *gin.Context) {
	ov, err := s.Reports.Overview(c.Request.Context(), c.Query("subject_id"))
	if err != nil {
		s.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ov)
}

func (s *Server) advice(c *gin.Context) {
	ctx := c.Request.Context()
	standing, err := s.Reports.StandingOf(ctx, s.currentUser(c))
	if err != nil {
		s.handleServiceError(c, err)
		return
	}
	codes := make([]string, 0)
	for _, subj := range s.Catalog.List() {
		codes = append(codes, subj.Code)
	}
	c.JSON(http.StatusOK, gin.H{
		"absenceRate": standing.Rate,
		"isBarred":    standing.IsBarred,
		"advice":      s.Advisor.Advice(ctx, standing.Rate, strings.Join(codes, ", ")),
	})
}
