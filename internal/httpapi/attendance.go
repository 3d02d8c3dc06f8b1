package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"unismart/internal/attendance"
	"unismart/internal/report"
)

func (s *Server) activeSession(c *gin.Context) {
	override, err := s.override(c.Query("session_id"))
	if err != nil {
		s.handleServiceError(c, err)
		return
	}
	view, err := s.Attendance.ActiveSession(c.Request.Context(), s.currentUser(c), override)
	if err != nil {
		s.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) sessionCode(c *gin.Context) {
	code, decision, err := s.Attendance.Code(c.Request.Context(), s.currentUser(c), c.Param("id"))
	if errors.Is(err, attendance.ErrForbidden) {
		c.JSON(http.StatusForbidden, gin.H{"error": decision.Message, "gate": decision})
		return
	}
	if err != nil {
		s.handleServiceError(c, err)
		return
	}

	if c.Query("format") == "png" {
		png, err := attendance.RenderPNG(code.Token)
		if err != nil {
			s.handleServiceError(c, err)
			return
		}
		c.Data(http.StatusOK, "image/png", png)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": code, "gate": decision})
}

func (s *Server) scan(c *gin.Context) {
	var req struct {
		Code      string `json:"code"`
		SessionID string `json:"session_id"`
	}
	// the code is optional, so an empty body is a plain scan
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	override, err := s.override(req.SessionID)
	if err != nil {
		s.handleServiceError(c, err)
		return
	}

	res, err := s.Attendance.Scan(c.Request.Context(), s.currentUser(c), req.Code, override)
	if err != nil {
		s.handleServiceError(c, err)
		return
	}
	status := http.StatusCreated
	if res.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, res)
}

func (s *Server) attendanceRecords(c *gin.Context) {
	filter, err := report.ParseFilter(c.Query("filter"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	view, err := s.Reports.Records(c.Request.Context(), filter, c.Query("search"))
	if err != nil {
		s.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
