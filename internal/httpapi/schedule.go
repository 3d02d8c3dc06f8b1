package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"unismart/internal/identity"
	"unismart/internal/schedule"
)

func (s *Server) listSubjects(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"subjects": s.Catalog.List()})
}

func (s *Server) listSchedule(c *gin.Context) {
	items, err := s.Schedule.List(c.Request.Context())
	if err != nil {
		s.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) monitorSnapshot(c *gin.Context) {
	if s.Monitor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "monitor not running"})
		return
	}
	c.JSON(http.StatusOK, s.Monitor.Snapshot())
}

func (s *Server) addScheduleItem(c *gin.Context) {
	var req schedule.NewItem
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	item, err := s.Schedule.Add(c.Request.Context(), req)
	if err != nil {
		s.handleServiceError(c, err)
		return
	}
	s.Log.Info("schedule item added", "id", item.ID, "day", item.Day, "start", item.StartTime.String())
	c.JSON(http.StatusCreated, item)
}

func (s *Server) deleteScheduleItem(c *gin.Context) {
	if err := s.Schedule.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listInstructors(c *gin.Context) {
	users, err := s.Users.Instructors(c.Request.Context())
	if err != nil {
		s.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"instructors": identity.Profiles(users)})
}
