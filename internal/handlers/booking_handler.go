package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/campustransit/vehicle-booking-backend/internal/middleware"
	"github.com/campustransit/vehicle-booking-backend/internal/models"
	"github.com/campustransit/vehicle-booking-backend/internal/services"
)

// BookingHandler handles booking-related HTTP requests
type BookingHandler struct {
	bookings  *services.BookingService
	locations *services.LocationService
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookings *services.BookingService, locations *services.LocationService) *BookingHandler {
	return &BookingHandler{bookings: bookings, locations: locations}
}

// Create handles POST /api/v1/bookings
func (h *BookingHandler) Create(c *gin.Context) {
	user, exists := middleware.GetUser(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "Not authenticated"})
		return
	}

	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation",
			Message: "Invalid request body",
		})
		return
	}

	booking, err := h.bookings.CreateBooking(user, req, clientInfo(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Booking created",
		"booking": booking,
	})
}

// Mine handles GET /api/v1/bookings/mine
func (h *BookingHandler) Mine(c *gin.Context) {
	user, exists := middleware.GetUser(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "Not authenticated"})
		return
	}

	bookings, err := h.bookings.MyBookings(user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// Get handles GET /api/v1/bookings/:id
func (h *BookingHandler) Get(c *gin.Context) {
	user, exists := middleware.GetUser(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "Not authenticated"})
		return
	}

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation",
			Message: "Invalid booking id",
		})
		return
	}

	booking, err := h.bookings.GetBooking(bookingID, user)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// ForWatchman handles GET /api/v1/watchman/bookings. An optional ?date=
// narrows to one day; rejected bookings are never returned here.
func (h *BookingHandler) ForWatchman(c *gin.Context) {
	var day models.NullTime
	if dateStr := c.Query("date"); dateStr != "" {
		parsed, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "validation",
				Message: "date must be in YYYY-MM-DD format",
			})
			return
		}
		day = models.Time(parsed)
	}

	bookings, err := h.bookings.WatchmanBookings(day)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// UpdateStatus handles PATCH /api/v1/bookings/:id/status
func (h *BookingHandler) UpdateStatus(c *gin.Context) {
	user, exists := middleware.GetUser(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "Not authenticated"})
		return
	}

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation",
			Message: "Invalid booking id",
		})
		return
	}

	var req models.UpdateBookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation",
			Message: "Invalid request body",
		})
		return
	}

	booking, err := h.bookings.ChangeStatus(bookingID, user, req, clientInfo(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Booking status updated",
		"booking": booking,
	})
}

// Locations handles GET /api/v1/locations
func (h *BookingHandler) Locations(c *gin.Context) {
	locations, err := h.locations.List()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"locations": locations})
}
