package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/avdonin/ridepool/internal/domain"
	"github.com/avdonin/ridepool/internal/service/trips"
	"github.com/gin-gonic/gin"
)

type TripHandler struct {
	service trips.TripUseCase
}

func NewTripHandler(service trips.TripUseCase) *TripHandler {
	return &TripHandler{service: service}
}

func (h *TripHandler) Register(router *gin.RouterGroup) {
	router.POST("/routes", h.createRoute)
	router.GET("/routes/:id", h.getRoute)
	router.POST("/trips", h.publish)
	router.GET("/trips", h.search)
	router.GET("/trips/mine", h.listMine)
	router.GET("/trips/:id", h.get)
	router.POST("/trips/:id/cancel", h.cancel)
	router.POST("/trips/:id/start", h.start)
	router.POST("/trips/:id/complete", h.complete)
}

type routeResponse struct {
	ID              int64   `json:"id"`
	Origin          string  `json:"origin"`
	Destination     string  `json:"destination"`
	OriginLat       float64 `json:"origin_lat"`
	OriginLng       float64 `json:"origin_lng"`
	DestLat         float64 `json:"dest_lat"`
	DestLng         float64 `json:"dest_lng"`
	DistanceKm      float64 `json:"distance_km"`
	DurationMinutes int     `json:"duration_minutes"`
}

type tripResponse struct {
	ID             int64  `json:"id"`
	RouteID        int64  `json:"route_id"`
	DriverID       int64  `json:"driver_id"`
	CarID          int64  `json:"car_id"`
	DepartureTime  string `json:"departure_time"`
	PricePerSeat   int64  `json:"price_per_seat"`
	SeatsTotal     int    `json:"seats_total"`
	SeatsAvailable int    `json:"seats_available"`
	Status         string `json:"status"`
	Notes          string `json:"notes,omitempty"`
}

func toRouteResponse(r *domain.Route) routeResponse {
	return routeResponse{
		ID:              r.ID,
		Origin:          r.Origin,
		Destination:     r.Destination,
		OriginLat:       r.OriginLat,
		OriginLng:       r.OriginLng,
		DestLat:         r.DestLat,
		DestLng:         r.DestLng,
		DistanceKm:      r.DistanceKm,
		DurationMinutes: r.DurationMinutes,
	}
}

func toTripResponse(t *domain.Trip) tripResponse {
	return tripResponse{
		ID:             t.ID,
		RouteID:        t.RouteID,
		DriverID:       t.DriverID,
		CarID:          t.CarID,
		DepartureTime:  t.DepartureTime.Format(time.RFC3339),
		PricePerSeat:   t.PricePerSeat,
		SeatsTotal:     t.SeatsTotal,
		SeatsAvailable: t.SeatsAvailable,
		Status:         string(t.Status),
		Notes:          t.Notes,
	}
}

func toTripResponses(list []domain.Trip) []tripResponse {
	out := make([]tripResponse, 0, len(list))
	for i := range list {
		out = append(out, toTripResponse(&list[i]))
	}
	return out
}

func (h *TripHandler) createRoute(c *gin.Context) {
	var req trips.CreateRouteInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	route, err := h.service.CreateRoute(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toRouteResponse(route))
}

func (h *TripHandler) getRoute(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid route id"})
		return
	}

	route, err := h.service.GetRoute(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRouteResponse(route))
}

func (h *TripHandler) publish(c *gin.Context) {
	var req trips.PublishInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.DriverID = currentUserID(c)

	trip, err := h.service.Publish(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTripResponse(trip))
}

func (h *TripHandler) search(c *gin.Context) {
	var input trips.SearchInput

	if v, ok := parseFloatQuery(c, "origin_lat"); ok {
		input.OriginLat = v
	}
	if v, ok := parseFloatQuery(c, "origin_lng"); ok {
		input.OriginLng = v
	}
	if v, ok := parseFloatQuery(c, "dest_lat"); ok {
		input.DestLat = v
	}
	if v, ok := parseFloatQuery(c, "dest_lng"); ok {
		input.DestLng = v
	}
	if from := c.Query("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from timestamp"})
			return
		}
		input.From = t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to timestamp"})
			return
		}
		input.To = t
	}

	found, err := h.service.Search(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTripResponses(found))
}

func parseFloatQuery(c *gin.Context, name string) (*float64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, false
	}
	return &v, true
}

func (h *TripHandler) listMine(c *gin.Context) {
	found, err := h.service.ListByDriver(c.Request.Context(), currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTripResponses(found))
}

func (h *TripHandler) get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trip id"})
		return
	}

	trip, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTripResponse(trip))
}

func (h *TripHandler) cancel(c *gin.Context) {
	h.transition(c, h.service.Cancel)
}

func (h *TripHandler) start(c *gin.Context) {
	h.transition(c, h.service.Start)
}

func (h *TripHandler) complete(c *gin.Context) {
	h.transition(c, h.service.Complete)
}

func (h *TripHandler) transition(c *gin.Context, op func(ctx context.Context, tripID, driverID int64) (*domain.Trip, error)) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trip id"})
		return
	}

	trip, err := op(c.Request.Context(), id, currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTripResponse(trip))
}
