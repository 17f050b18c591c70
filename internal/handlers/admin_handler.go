package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/campustransit/vehicle-booking-backend/internal/database"
	"github.com/campustransit/vehicle-booking-backend/internal/middleware"
	"github.com/campustransit/vehicle-booking-backend/internal/models"
	"github.com/campustransit/vehicle-booking-backend/internal/services"
)

// AdminHandler handles administrative HTTP requests: user management,
// location management, full booking control and the audit log surface
type AdminHandler struct {
	users     *services.UserService
	bookings  *services.BookingService
	locations *services.LocationService
	audit     *services.AuditService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	users *services.UserService,
	bookings *services.BookingService,
	locations *services.LocationService,
	audit *services.AuditService,
) *AdminHandler {
	return &AdminHandler{
		users:     users,
		bookings:  bookings,
		locations: locations,
		audit:     audit,
	}
}

// ListUsers handles GET /api/v1/admin/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	filter := models.UserFilter{
		Role:   models.Role(c.Query("role")),
		Status: models.UserStatus(c.Query("status")),
		Search: c.Query("search"),
	}

	users, err := h.users.List(filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// CreateUser handles POST /api/v1/admin/users
func (h *AdminHandler) CreateUser(c *gin.Context) {
	admin, _ := middleware.GetUser(c)

	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation", Message: "Invalid request body"})
		return
	}

	user, err := h.users.Create(admin, req, clientInfo(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// UpdateUser handles PUT /api/v1/admin/users/:id
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	admin, _ := middleware.GetUser(c)

	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation", Message: "Invalid user id"})
		return
	}

	var req models.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation", Message: "Invalid request body"})
		return
	}

	user, err := h.users.Update(admin, userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// setUserStatusRequest is the payload for activating or deactivating a user
type setUserStatusRequest struct {
	Status models.UserStatus `json:"status" binding:"required"`
}

// SetUserStatus handles PATCH /api/v1/admin/users/:id/status
func (h *AdminHandler) SetUserStatus(c *gin.Context) {
	admin, _ := middleware.GetUser(c)

	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation", Message: "Invalid user id"})
		return
	}

	var req setUserStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation", Message: "Invalid request body"})
		return
	}

	user, err := h.users.SetStatus(admin, userID, req.Status, clientInfo(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// DeleteUser handles DELETE /api/v1/admin/users/:id
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	admin, _ := middleware.GetUser(c)

	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation", Message: "Invalid user id"})
		return
	}

	if err := h.users.Delete(admin, userID, clientInfo(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

// ListBookings handles GET /api/v1/admin/bookings
func (h *AdminHandler) ListBookings(c *gin.Context) {
	filter := database.AdminBookingFilter{
		Status: models.BookingStatus(c.Query("status")),
	}
	if userIDStr := c.Query("userId"); userIDStr != "" {
		userID, err := uuid.Parse(userIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation", Message: "Invalid userId"})
			return
		}
		filter.UserID = models.UUID(userID)
	}
	if startStr := c.Query("startDate"); startStr != "" {
		start, err := time.Parse("2006-01-02", startStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation", Message: "startDate must be YYYY-MM-DD"})
			return
		}
		filter.StartDate = models.Time(start)
	}
	if endStr := c.Query("endDate"); endStr != "" {
		end, err := time.Parse("2006-01-02", endStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation", Message: "endDate must be YYYY-MM-DD"})
			return
		}
		filter.EndDate = models.Time(end)
	}

	bookings, err := h.bookings.AdminBookings(filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// EditBooking handles PUT /api/v1/admin/bookings/:id
func (h *AdminHandler) EditBooking(c *gin.Context) {
	admin, _ := middleware.GetUser(c)

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation", Message: "Invalid booking id"})
		return
	}

	var req models.EditBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation", Message: "Invalid request body"})
		return
	}

	booking, err := h.bookings.EditBooking(bookingID, admin, req, clientInfo(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// DeleteBooking handles DELETE /api/v1/admin/bookings/:id
func (h *AdminHandler) DeleteBooking(c *gin.Context) {
	admin, _ := middleware.GetUser(c)

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation", Message: "Invalid booking id"})
		return
	}

	if err := h.bookings.DeleteBooking(bookingID, admin, clientInfo(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Booking deleted"})
}

// CreateLocation handles POST /api/v1/admin/locations
func (h *AdminHandler) CreateLocation(c *gin.Context) {
	admin, _ := middleware.GetUser(c)

	var req models.LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation", Message: "Invalid request body"})
		return
	}

	location, err := h.locations.Create(admin, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"location": location})
}

// UpdateLocation handles PUT /api/v1/admin/locations/:id
func (h *AdminHandler) UpdateLocation(c *gin.Context) {
	locationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation", Message: "Invalid location id"})
		return
	}

	var req models.LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation", Message: "Invalid request body"})
		return
	}

	location, err := h.locations.Update(locationID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"location": location})
}

// DeleteLocation handles DELETE /api/v1/admin/locations/:id
func (h *AdminHandler) DeleteLocation(c *gin.Context) {
	locationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation", Message: "Invalid location id"})
		return
	}

	if err := h.locations.Delete(locationID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Location deleted"})
}

// AuditLogs handles GET /api/v1/admin/audit-logs
func (h *AdminHandler) AuditLogs(c *gin.Context) {
	filter := models.AuditLogFilter{
		Action: models.AuditAction(c.Query("action")),
		Email:  c.Query("email"),
	}
	if userIDStr := c.Query("userId"); userIDStr != "" {
		userID, err := uuid.Parse(userIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation", Message: "Invalid userId"})
			return
		}
		filter.UserID = models.UUID(userID)
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	logs, total, err := h.audit.List(filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"logs":  logs,
		"total": total,
	})
}
