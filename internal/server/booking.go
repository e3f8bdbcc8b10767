package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	bookingdomain "github.com/drivelane/drivelane/internal/booking/domain"
)

type createBookingRequest struct {
	UserID   string    `json:"user_id"`
	SchoolID string    `json:"school_id"`
	OfferID  string    `json:"offer_id"`
	Date     time.Time `json:"date"`
	Time     string    `json:"time"`
}

type updateBookingStatusRequest struct {
	Status string `json:"status"`
}

type settlePaymentRequest struct {
	Method    string `json:"method"`
	Reference string `json:"reference"`
}

func (s *Server) CreateBooking(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	userID, ok := parseID(c, "user_id", req.UserID)
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

	booking, invoice, err := s.bookingSvc.CreateBooking(c.Request.Context(), bookingdomain.CreateBookingRequest{
		UserID:   userID,
		SchoolID: schoolID,
		OfferID:  offerID,
		Date:     req.Date,
		Time:     strings.TrimSpace(req.Time),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"booking": booking,
		"invoice": invoice,
	}})
}

func (s *Server) GetBooking(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	resp, err := s.bookingSvc.GetBooking(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateBookingStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req updateBookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.bookingSvc.UpdateBookingStatus(c.Request.Context(), id, bookingdomain.BookingStatus(strings.TrimSpace(req.Status)))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetInvoice(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	resp, err := s.bookingSvc.GetInvoice(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SettlePayment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req settlePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.bookingSvc.SettlePayment(
		c.Request.Context(),
		id,
		bookingdomain.PaymentMethod(strings.TrimSpace(req.Method)),
		strings.TrimSpace(req.Reference),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListUserBookings(c *gin.Context) {
	userID, ok := idParam(c, "id")
	if !ok {
		return
	}

	items, err := s.bookingSvc.ListBookingsByUser(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) ListSchoolBookings(c *gin.Context) {
	schoolID, ok := idParam(c, "id")
	if !ok {
		return
	}

	items, err := s.bookingSvc.ListBookingsBySchool(c.Request.Context(), schoolID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) ListUserInvoices(c *gin.Context) {
	userID, ok := idParam(c, "id")
	if !ok {
		return
	}

	items, err := s.bookingSvc.ListInvoicesByUser(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}
