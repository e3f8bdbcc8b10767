package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	enrollmentdomain "github.com/drivelane/drivelane/internal/enrollment/domain"
)

type createEnrollmentRequest struct {
	StudentID string `json:"student_id"`
	SchoolID  string `json:"school_id"`
	OfferID   string `json:"offer_id"`
}

func (s *Server) CreateEnrollment(c *gin.Context) {
	var req createEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	studentID, ok := parseID(c, "student_id", req.StudentID)
	if !ok {
		return
	}
	schoolID, ok := parseID(c, "school_id", req.SchoolID)
	if !ok {
		return
	}
	offerID, ok := parseID(c, "offer_id", req.OfferID)
	if !ok {
		return
	}

	resp, err := s.enrollmentSvc.Create(c.Request.Context(), enrollmentdomain.CreateEnrollmentRequest{
		StudentID: studentID,
		SchoolID:  schoolID,
		OfferID:   offerID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetEnrollment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	resp, err := s.enrollmentSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSchoolEnrollments(c *gin.Context) {
	schoolID, ok := idParam(c, "id")
	if !ok {
		return
	}

	items, err := s.enrollmentSvc.ListBySchool(c.Request.Context(), schoolID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) ListStudentEnrollments(c *gin.Context) {
	studentID, ok := idParam(c, "id")
	if !ok {
		return
	}

	items, err := s.enrollmentSvc.ListByStudent(c.Request.Context(), studentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}
