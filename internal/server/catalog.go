package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	catalogdomain "github.com/drivelane/drivelane/internal/catalog/domain"
)

type createSchoolRequest struct {
	Name    string `json:"name"`
	City    string `json:"city"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

type createOfferRequest struct {
	SchoolID    string `json:"school_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Hours       int    `json:"hours"`
	PermitType  string `json:"permit_type"`
}

type createMonitorRequest struct {
	SchoolID  string `json:"school_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

func (s *Server) CreateSchool(c *gin.Context) {
	var req createSchoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.catalogSvc.CreateSchool(c.Request.Context(), catalogdomain.CreateSchoolRequest{
		Name:    strings.TrimSpace(req.Name),
		City:    strings.TrimSpace(req.City),
		Address: strings.TrimSpace(req.Address),
		Phone:   strings.TrimSpace(req.Phone),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSchools(c *gin.Context) {
	items, err := s.catalogSvc.ListSchools(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) GetSchool(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	resp, err := s.catalogSvc.GetSchool(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateOffer(c *gin.Context) {
	var req createOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	schoolID, ok := parseID(c, "school_id", req.SchoolID)
	if !ok {
		return
	}

	resp, err := s.catalogSvc.CreateOffer(c.Request.Context(), catalogdomain.CreateOfferRequest{
		SchoolID:    schoolID,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price,
		Hours:       req.Hours,
		PermitType:  strings.TrimSpace(req.PermitType),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetOffer(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	resp, err := s.catalogSvc.GetOffer(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSchoolOffers(c *gin.Context) {
	schoolID, ok := idParam(c, "id")
	if !ok {
		return
	}

	items, err := s.catalogSvc.ListOffersBySchool(c.Request.Context(), schoolID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) CreateMonitor(c *gin.Context) {
	var req createMonitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	schoolID, ok := parseID(c, "school_id", req.SchoolID)
	if !ok {
		return
	}

	resp, err := s.catalogSvc.CreateMonitor(c.Request.Context(), catalogdomain.CreateMonitorRequest{
		SchoolID:  schoolID,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Phone:     strings.TrimSpace(req.Phone),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSchoolMonitors(c *gin.Context) {
	schoolID, ok := idParam(c, "id")
	if !ok {
		return
	}

	items, err := s.catalogSvc.ListMonitorsBySchool(c.Request.Context(), schoolID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func idParam(c *gin.Context, name string) (snowflake.ID, bool) {
	return parseID(c, name, c.Param(name))
}

func parseID(c *gin.Context, field, raw string) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil {
		AbortWithError(c, newValidationError(field, "invalid_id", "invalid "+field))
		return 0, false
	}
	return id, true
}
