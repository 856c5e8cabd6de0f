package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/avdonin/ridepool/internal/domain"
	"github.com/avdonin/ridepool/internal/service/users"
	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	service users.UserUseCase
}

func NewUserHandler(service users.UserUseCase) *UserHandler {
	return &UserHandler{service: service}
}

func (h *UserHandler) RegisterPublic(router *gin.RouterGroup) {
	router.POST("/register", h.register)
	router.POST("/login", h.login)
}

func (h *UserHandler) RegisterProtected(router *gin.RouterGroup) {
	router.GET("/profile", h.getProfile)
	router.PUT("/profile", h.updateProfile)
	router.POST("/cars", h.registerCar)
	router.GET("/cars", h.listCars)
	router.PATCH("/cars/:id/active", h.setCarActive)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token   string          `json:"token"`
	UserID  int64           `json:"user_id"`
	Email   string          `json:"email"`
	Profile profileResponse `json:"profile"`
}

type profileResponse struct {
	UserID        int64   `json:"user_id"`
	FullName      string  `json:"full_name"`
	Phone         string  `json:"phone"`
	PhotoURL      string  `json:"photo_url"`
	Rating        float64 `json:"rating"`
	RatingCount   int     `json:"rating_count"`
	TripsAsDriver int     `json:"trips_as_driver"`
	TripsAsRider  int     `json:"trips_as_rider"`
}

type carResponse struct {
	ID        int64  `json:"id"`
	Make      string `json:"make"`
	Model     string `json:"model"`
	Plate     string `json:"plate"`
	Color     string `json:"color"`
	Seats     int    `json:"seats"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
}

func toProfileResponse(p *domain.Profile) profileResponse {
	return profileResponse{
		UserID:        p.UserID,
		FullName:      p.FullName,
		Phone:         p.Phone,
		PhotoURL:      p.PhotoURL,
		Rating:        p.Rating,
		RatingCount:   p.RatingCount,
		TripsAsDriver: p.TripsAsDriver,
		TripsAsRider:  p.TripsAsRider,
	}
}

func toCarResponse(car *domain.Car) carResponse {
	return carResponse{
		ID:        car.ID,
		Make:      car.Make,
		Model:     car.Model,
		Plate:     car.Plate,
		Color:     car.Color,
		Seats:     car.Seats,
		Active:    car.Active,
		CreatedAt: car.CreatedAt.Format(time.RFC3339),
	}
}

func (h *UserHandler) register(c *gin.Context) {
	var req users.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, authResponse{
		Token:   result.Token,
		UserID:  result.User.ID,
		Email:   result.User.Email,
		Profile: toProfileResponse(result.Profile),
	})
}

func (h *UserHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, authResponse{
		Token:   result.Token,
		UserID:  result.User.ID,
		Email:   result.User.Email,
		Profile: toProfileResponse(result.Profile),
	})
}

func (h *UserHandler) getProfile(c *gin.Context) {
	profile, err := h.service.GetProfile(c.Request.Context(), currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProfileResponse(profile))
}

func (h *UserHandler) updateProfile(c *gin.Context) {
	var req users.UpdateProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.service.UpdateProfile(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProfileResponse(profile))
}

func (h *UserHandler) registerCar(c *gin.Context) {
	var req users.RegisterCarInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	car, err := h.service.RegisterCar(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCarResponse(car))
}

func (h *UserHandler) listCars(c *gin.Context) {
	cars, err := h.service.ListCars(c.Request.Context(), currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]carResponse, 0, len(cars))
	for i := range cars {
		out = append(out, toCarResponse(&cars[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *UserHandler) setCarActive(c *gin.Context) {
	carID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid car id"})
		return
	}

	var req struct {
		Active bool `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.SetCarActive(c.Request.Context(), carID, currentUserID(c), req.Active); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
