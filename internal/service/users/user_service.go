package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/avdonin/ridepool/internal/auth"
	"github.com/avdonin/ridepool/internal/domain"
	"github.com/avdonin/ridepool/internal/repository"
	"github.com/sirupsen/logrus"
)

type UserUseCase interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	GetProfile(ctx context.Context, userID int64) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, userID int64, input UpdateProfileInput) (*domain.Profile, error)
	RegisterCar(ctx context.Context, ownerID int64, input RegisterCarInput) (*domain.Car, error)
	ListCars(ctx context.Context, ownerID int64) ([]domain.Car, error)
	SetCarActive(ctx context.Context, carID, ownerID int64, active bool) error
}

type UserService struct {
	users  repository.UserRepository
	cars   repository.CarRepository
	tokens *auth.TokenManager
	log    *logrus.Logger
}

func NewUserService(users repository.UserRepository, cars repository.CarRepository, tokens *auth.TokenManager, log *logrus.Logger) *UserService {
	return &UserService{users: users, cars: cars, tokens: tokens, log: log}
}

type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

type UpdateProfileInput struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	PhotoURL string `json:"photo_url"`
}

type RegisterCarInput struct {
	Make  string `json:"make"`
	Model string `json:"model"`
	Plate string `json:"plate"`
	Color string `json:"color"`
	Seats int    `json:"seats"`
}

// AuthResult is what register and login hand back to the transport layer.
type AuthResult struct {
	User    *domain.User
	Profile *domain.Profile
	Token   string
}

func (s *UserService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: valid email is required", domain.ErrInvalidState)
	}
	if len(input.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", domain.ErrInvalidState)
	}
	if strings.TrimSpace(input.FullName) == "" {
		return nil, fmt.Errorf("%w: full name is required", domain.ErrInvalidState)
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: hash,
		Provider:     "local",
		Status:       domain.AccountStatusActive,
	}
	profile := &domain.Profile{
		FullName: strings.TrimSpace(input.FullName),
		Phone:    strings.TrimSpace(input.Phone),
	}
	if err := s.users.Create(ctx, user, profile); err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID}).Info("user registered")
	return &AuthResult{User: user, Profile: profile, Token: token}, nil
}

func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if err == domain.ErrNotFound {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, domain.ErrUnauthorized
	}
	if user.Status != domain.AccountStatusActive {
		return nil, fmt.Errorf("%w: account is %s", domain.ErrUnauthorized, user.Status)
	}

	profile, err := s.users.GetProfile(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Profile: profile, Token: token}, nil
}

func (s *UserService) GetProfile(ctx context.Context, userID int64) (*domain.Profile, error) {
	return s.users.GetProfile(ctx, userID)
}

func (s *UserService) UpdateProfile(ctx context.Context, userID int64, input UpdateProfileInput) (*domain.Profile, error) {
	profile, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(input.FullName) != "" {
		profile.FullName = strings.TrimSpace(input.FullName)
	}
	if input.Phone != "" {
		profile.Phone = input.Phone
	}
	if input.PhotoURL != "" {
		profile.PhotoURL = input.PhotoURL
	}

	if err := s.users.UpdateProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *UserService) RegisterCar(ctx context.Context, ownerID int64, input RegisterCarInput) (*domain.Car, error) {
	if strings.TrimSpace(input.Plate) == "" {
		return nil, fmt.Errorf("%w: plate is required", domain.ErrInvalidState)
	}
	if input.Seats < 1 || input.Seats > 8 {
		return nil, fmt.Errorf("%w: seats must be between 1 and 8", domain.ErrInvalidState)
	}

	car := &domain.Car{
		OwnerID: ownerID,
		Make:    strings.TrimSpace(input.Make),
		Model:   strings.TrimSpace(input.Model),
		Plate:   strings.ToUpper(strings.TrimSpace(input.Plate)),
		Color:   input.Color,
		Seats:   input.Seats,
		Active:  true,
	}
	if err := s.cars.Create(ctx, car); err != nil {
		return nil, err
	}
	return car, nil
}

func (s *UserService) ListCars(ctx context.Context, ownerID int64) ([]domain.Car, error) {
	return s.cars.ListByOwner(ctx, ownerID)
}

func (s *UserService) SetCarActive(ctx context.Context, carID, ownerID int64, active bool) error {
	return s.cars.SetActive(ctx, carID, ownerID, active)
}

var _ UserUseCase = (*UserService)(nil)
