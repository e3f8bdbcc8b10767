package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	sessiondomain "github.com/drivelane/drivelane/internal/session/domain"
)

type createSessionRequest struct {
	EnrollmentID string     `json:"enrollment_id"`
	MonitorID    *string    `json:"monitor_id"`
	Date         time.Time  `json:"date"`
	StartTime    *time.Time `json:"start_time"`
	EndTime      *time.Time `json:"end_time"`
	MeetingPoint string     `json:"meeting_point"`
	Notes        string     `json:"notes"`
	Status       string     `json:"status"`
}

type transitionSessionRequest struct {
	Status string `json:"status"`
}

func (s *Server) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	enrollmentID, ok := parseID(c, "enrollment_id", req.EnrollmentID)
	if !ok {
		return
	}

	var monitorID *snowflake.ID
	if req.MonitorID != nil && strings.TrimSpace(*req.MonitorID) != "" {
		id, ok := parseID(c, "monitor_id", *req.MonitorID)
		if !ok {
			return
		}
		monitorID = &id
	}

	resp, err := s.sessionSvc.Create(c.Request.Context(), sessiondomain.CreateSessionRequest{
		EnrollmentID: enrollmentID,
		MonitorID:    monitorID,
		Date:         req.Date,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		MeetingPoint: strings.TrimSpace(req.MeetingPoint),
		Notes:        strings.TrimSpace(req.Notes),
		Status:       sessiondomain.SessionStatus(strings.TrimSpace(req.Status)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSession(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	resp, err := s.sessionSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) TransitionSession(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req transitionSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.sessionSvc.Transition(c.Request.Context(), id, sessiondomain.SessionStatus(strings.TrimSpace(req.Status)))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteSession(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := s.sessionSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) ListSchoolSessions(c *gin.Context) {
	schoolID, ok := idParam(c, "id")
	if !ok {
		return
	}

	items, err := s.sessionSvc.ListBySchool(c.Request.Context(), schoolID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) ListMonitorSessions(c *gin.Context) {
	monitorID, ok := idParam(c, "id")
	if !ok {
		return
	}

	items, err := s.sessionSvc.ListByMonitor(c.Request.Context(), monitorID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) ListEnrollmentSessions(c *gin.Context) {
	enrollmentID, ok := idParam(c, "id")
	if !ok {
		return
	}

	items, err := s.sessionSvc.ListByEnrollment(c.Request.Context(), enrollmentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}
