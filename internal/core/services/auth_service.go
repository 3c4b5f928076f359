package services

import (
	"errors"
	"log"

	"mpp-antrian/internal/adapters/persistence/models"
	"mpp-antrian/internal/adapters/persistence/repositories"
	"mpp-antrian/internal/config"
	"mpp-antrian/internal/core/domain"
	"mpp-antrian/internal/pkg/jwt"
	"mpp-antrian/internal/pkg/password"
)

// Auth errors
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserInactive       = errors.New("user account is inactive")
)

// AuthService handles login and account creation
type AuthService struct {
	userRepo *repositories.UserRepository
	cfg      *config.Config
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo *repositories.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		cfg:      cfg,
	}
}

// LoginInput represents a login request
type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse represents a successful login
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	User        *models.User `json:"user"`
}

// Login verifies credentials and issues an access token
func (s *AuthService) Login(input *LoginInput) (*LoginResponse, error) {
	user, err := s.userRepo.GetByUsername(input.Username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !password.Verify(input.Password, user.Password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	token, err := jwt.GenerateAccessToken(user.ID, user.Username, string(user.Role),
		s.cfg.JWT.Secret, s.cfg.JWT.AccessTokenMins)
	if err != nil {
		return nil, err
	}

	log.Printf("✅ User %s logged in (role: %s)", user.Username, user.Role)
	return &LoginResponse{AccessToken: token, User: user}, nil
}

// RegisterUserInput represents a visitor sign-up request
type RegisterUserInput struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterUser creates a visitor account
func (s *AuthService) RegisterUser(input *RegisterUserInput) (*models.User, error) {
	if input.Username == "" || input.FullName == "" {
		return nil, domain.Validationf("username and full_name are required")
	}
	if !password.ValidatePassword(input.Password) {
		return nil, domain.Validationf("password must be at least 8 characters")
	}

	taken, err := s.userRepo.ExistsByUsername(input.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, domain.Conflictf("username %s is taken", input.Username)
	}

	hashed, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username: input.Username,
		FullName: input.FullName,
		Password: hashed,
		Role:     domain.RoleVisitor,
		IsActive: true,
	}
	if input.Email != "" {
		user.Email = &input.Email
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	log.Printf("✅ Visitor account created: %s", user.Username)
	return user, nil
}
