package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) listMeetings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"meetings": s.Classroom.List()})
}

func (s *Server) startMeeting(c *gin.Context) {
	var req struct {
		Title     string `json:"title"`
		SubjectID string `json:"subjectId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m, err := s.Classroom.Start(s.currentUser(c), req.Title, req.SubjectID)
	if err != nil {
		s.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}
