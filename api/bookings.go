package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/avdonin/ridepool/internal/domain"
	"github.com/avdonin/ridepool/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/bookings", h.create)
	router.GET("/bookings", h.listMine)
	router.GET("/bookings/token/:token", h.getByToken)
	router.POST("/bookings/:id/accept", h.accept)
	router.POST("/bookings/:id/reject", h.reject)
	router.POST("/bookings/:id/cancel", h.cancel)
	router.POST("/bookings/:id/rating", h.rate)
	router.GET("/trips/:id/bookings", h.listForTrip)
	router.GET("/trips/:id/eligibility", h.eligibility)
}

type bookingResponse struct {
	ID            int64    `json:"id"`
	Token         string   `json:"token"`
	TripID        int64    `json:"trip_id"`
	PassengerID   int64    `json:"passenger_id"`
	Seats         int      `json:"seats"`
	PickupNote    string   `json:"pickup_note,omitempty"`
	PickupLat     *float64 `json:"pickup_lat,omitempty"`
	PickupLng     *float64 `json:"pickup_lng,omitempty"`
	DropoffNote   string   `json:"dropoff_note,omitempty"`
	DropoffLat    *float64 `json:"dropoff_lat,omitempty"`
	DropoffLng    *float64 `json:"dropoff_lng,omitempty"`
	Message       string   `json:"message,omitempty"`
	Status        string   `json:"status"`
	PaymentStatus string   `json:"payment_status"`
	RejectReason  string   `json:"reject_reason,omitempty"`
	Rating        *float64 `json:"rating,omitempty"`
	CreatedAt     string   `json:"created_at"`
}

func toBookingResponse(b *domain.TripBooking) bookingResponse {
	return bookingResponse{
		ID:            b.ID,
		Token:         b.Token,
		TripID:        b.TripID,
		PassengerID:   b.PassengerID,
		Seats:         b.Seats,
		PickupNote:    b.PickupNote,
		PickupLat:     b.PickupLat,
		PickupLng:     b.PickupLng,
		DropoffNote:   b.DropoffNote,
		DropoffLat:    b.DropoffLat,
		DropoffLng:    b.DropoffLng,
		Message:       b.Message,
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		RejectReason:  b.RejectReason,
		Rating:        b.Rating,
		CreatedAt:     b.CreatedAt.Format(time.RFC3339),
	}
}

func toBookingResponses(list []domain.TripBooking) []bookingResponse {
	out := make([]bookingResponse, 0, len(list))
	for i := range list {
		out = append(out, toBookingResponse(&list[i]))
	}
	return out
}

func (h *BookingHandler) create(c *gin.Context) {
	var req booking.CreateRequestInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.PassengerID = currentUserID(c)

	created, err := h.service.CreateRequest(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingResponse(created))
}

func (h *BookingHandler) listMine(c *gin.Context) {
	found, err := h.service.ListForPassenger(c.Request.Context(), currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponses(found))
}

func (h *BookingHandler) getByToken(c *gin.Context) {
	found, err := h.service.GetByToken(c.Request.Context(), c.Param("token"), currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(found))
}

func (h *BookingHandler) accept(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	updated, err := h.service.Accept(c.Request.Context(), id, currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(updated))
}

func (h *BookingHandler) reject(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	// Body is optional for rejections.
	_ = c.ShouldBindJSON(&req)

	updated, err := h.service.Reject(c.Request.Context(), id, currentUserID(c), req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(updated))
}

func (h *BookingHandler) cancel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	updated, err := h.service.Cancel(c.Request.Context(), id, currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(updated))
}

func (h *BookingHandler) rate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req struct {
		Rating float64 `json:"rating"`
		Review string  `json:"review"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.Rate(c.Request.Context(), id, currentUserID(c), req.Rating, req.Review); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *BookingHandler) listForTrip(c *gin.Context) {
	tripID, ok := pathID(c)
	if !ok {
		return
	}

	found, err := h.service.ListForTrip(c.Request.Context(), tripID, currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponses(found))
}

func (h *BookingHandler) eligibility(c *gin.Context) {
	tripID, ok := pathID(c)
	if !ok {
		return
	}

	result := h.service.CanUserBookTrip(c.Request.Context(), tripID, currentUserID(c))
	c.JSON(http.StatusOK, result)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
