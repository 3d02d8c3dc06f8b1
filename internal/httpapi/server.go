// Package httpapi exposes the dashboard backend over HTTP.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"unismart/internal/advisor"
	"unismart/internal/attendance"
	"unismart/internal/auth"
	"unismart/internal/catalog"
	"unismart/internal/classroom"
	"unismart/internal/httpmiddleware"
	"unismart/internal/identity"
	"unismart/internal/metrics"
	"unismart/internal/report"
	"unismart/internal/schedule"
)

// ErrOverrideDisabled rejects session overrides when they are turned off.
var ErrOverrideDisabled = errors.New("session override is disabled")

// HealthCheck reports whether one backing service is reachable.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) bool
}

// Deps are the services served by the router.
type Deps struct {
	Log        *slog.Logger
	Metrics    *metrics.Metrics
	Gatherer   prometheus.Gatherer
	Tokens     *auth.Tokens
	Sessions   *identity.Sessions
	Users      *identity.Service
	Catalog    *catalog.Catalog
	Schedule   *schedule.Service
	Monitor    *schedule.Monitor
	Attendance *attendance.Service
	Reports    *report.Service
	Classroom  *classroom.Service
	Advisor    *advisor.Client
	Checks     []HealthCheck

	CORSOrigins     []string
	RateLimitPerMin int
	// AllowOverride lets clients pick the session with ?session_id / session_id.
	AllowOverride bool
}

// Server holds the handlers.
type Server struct {
	Deps
}

// NewRouter builds the gin engine with the middleware chain and every route.
func NewRouter(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}
	s := &Server{Deps: d}

	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}))
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(d.RateLimitPerMin, d.RateLimitPerMin).GinMiddleware(httpmiddleware.ClientIP))

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	r.GET("/healthz", s.health)

	s.RegisterRoutes(r)
	return r
}

// RegisterRoutes mounts the /v1 API.
func (s *Server) RegisterRoutes(r *gin.Engine) {
	public := r.Group("/v1/auth")
	public.POST("/login", s.login)
	public.POST("/register", s.register)
	public.POST("/refresh", s.refresh)

	v1 := r.Group("/v1", auth.Authenticate(s.Tokens, s.Sessions, s.Users))
	v1.POST("/auth/logout", s.logout)
	v1.GET("/me", s.me)
	v1.GET("/subjects", s.listSubjects)
	v1.GET("/schedule", s.listSchedule)
	v1.GET("/schedule/active", s.monitorSnapshot)
	v1.GET("/attendance/active", s.activeSession)
	v1.GET("/attendance/sessions/:id/code", s.sessionCode)
	v1.POST("/attendance/scan", s.scan)
	v1.GET("/classroom/meetings", s.listMeetings)
	v1.POST("/classroom/meetings", s.startMeeting)
	v1.GET("/advice", auth.RequireRole(identity.RoleStudent), s.advice)
	v1.GET("/reports", auth.RequireRole(identity.RoleAdmin, identity.RoleDoctor), s.reports)

	admin := v1.Group("/admin", auth.RequireRole(identity.RoleAdmin))
	admin.GET("/users", s.listUsers)
	admin.POST("/users", s.createUser)
	admin.DELETE("/users/:id", s.deleteUser)
	admin.POST("/users/import", s.importUsers)
	admin.POST("/schedule", s.addScheduleItem)
	admin.DELETE("/schedule/:id", s.deleteScheduleItem)
	admin.GET("/attendance/records", s.attendanceRecords)
	admin.GET("/instructors", s.listInstructors)
}

func (s *Server) health(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for _, hc := range s.Checks {
		ok := hc.Check(c.Request.Context())
		body[hc.Name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

func (s *Server) handleServiceError(c *gin.Context, err error) {
	var verr validator.ValidationErrors
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, identity.ErrIdentifierTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, identity.ErrAdminRegistration),
		errors.Is(err, ErrOverrideDisabled),
		errors.Is(err, attendance.ErrStudentsOnly),
		errors.Is(err, attendance.ErrForbidden),
		errors.Is(err, classroom.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, identity.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, schedule.ErrNotFound),
		errors.Is(err, attendance.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, attendance.ErrNoActiveSession):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &verr),
		errors.Is(err, identity.ErrInvalidRole),
		errors.Is(err, schedule.ErrInvalidClock),
		errors.Is(err, schedule.ErrInvalidWeekday),
		errors.Is(err, schedule.ErrInvalidType),
		errors.Is(err, schedule.ErrInvalidRange),
		errors.Is(err, schedule.ErrUnknownSubject),
		errors.Is(err, schedule.ErrInvalidInstructor),
		errors.Is(err, attendance.ErrCodeMismatch),
		errors.Is(err, attendance.ErrCodeExpired),
		errors.Is(err, classroom.ErrTitleRequired),
		errors.Is(err, classroom.ErrUnknownSubject):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.Log.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// override returns the requested session id, or ErrOverrideDisabled when
// one is given but overrides are off.
func (s *Server) override(id string) (string, error) {
	if id != "" && !s.AllowOverride {
		return "", ErrOverrideDisabled
	}
	return id, nil
}

func (s *Server) currentUser(c *gin.Context) identity.User {
	u, _ := auth.CurrentUser(c)
	return u
}
