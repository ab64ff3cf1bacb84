package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/opticstore/server/internal/domain"
	"github.com/opticstore/server/internal/models"
	"github.com/opticstore/server/internal/repository"
)

// AuthService defines registration, login and user management operations
type AuthService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.UserResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	GetUserByID(ctx context.Context, id int64) (*models.UserResponse, error)
	GetAllUsers(ctx context.Context, skip, limit int) ([]models.UserResponse, error)
	UpdateUser(ctx context.Context, id int64, req models.UserUpdateRequest) (*models.UserResponse, error)
	DeleteUser(ctx context.Context, id int64) error
}

// DefaultAuthService implements the AuthService interface
type DefaultAuthService struct {
	repo          repository.Repository
	jwtSecret     []byte
	tokenDuration time.Duration
}

// NewAuthService creates a new DefaultAuthService
func NewAuthService(repo repository.Repository, jwtSecret string, tokenDuration time.Duration) AuthService {
	return &DefaultAuthService{
		repo:          repo,
		jwtSecret:     []byte(jwtSecret),
		tokenDuration: tokenDuration,
	}
}

func (s *DefaultAuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.UserResponse, error) {
	// Check if the email is already taken
	existingUser, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("error checking user existence: %w", err)
	}

	if existingUser != nil {
		return nil, &domain.ConflictError{Message: "this email is already registered"}
	}

	// Hash the password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: string(hashedPassword),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	return userView(user), nil
}

func (s *DefaultAuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	user, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}

	// The same error whether the email is unknown or the password is
	// wrong, so callers cannot probe which emails are registered.
	if user == nil {
		return nil, &domain.AuthError{Message: "invalid email or password"}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, &domain.AuthError{Message: "invalid email or password"}
	}

	token, err := s.generateJWT(user)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	return &models.LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        *userView(user),
	}, nil
}

func (s *DefaultAuthService) GetUserByID(ctx context.Context, id int64) (*models.UserResponse, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}

	if user == nil {
		return nil, &domain.NotFoundError{Entity: "user"}
	}

	return userView(user), nil
}

func (s *DefaultAuthService) GetAllUsers(ctx context.Context, skip, limit int) ([]models.UserResponse, error) {
	users, err := s.repo.GetAllUsers(ctx, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("error getting users: %w", err)
	}

	views := make([]models.UserResponse, 0, len(users))
	for i := range users {
		views = append(views, *userView(&users[i]))
	}
	return views, nil
}

func (s *DefaultAuthService) UpdateUser(ctx context.Context, id int64, req models.UserUpdateRequest) (*models.UserResponse, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}

	if user == nil {
		return nil, &domain.NotFoundError{Entity: "user"}
	}

	// Apply only the supplied fields
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Password != nil {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("error hashing password: %w", err)
		}
		user.Password = string(hashedPassword)
	}

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	return userView(user), nil
}

func (s *DefaultAuthService) DeleteUser(ctx context.Context, id int64) error {
	return s.repo.DeleteUser(ctx, id)
}

// Helper methods
func (s *DefaultAuthService) generateJWT(user *models.User) (string, error) {
	expirationTime := time.Now().Add(s.tokenDuration)

	claims := jwt.MapClaims{
		"sub":     user.Email, // subject
		"user_id": user.ID,
		"exp":     expirationTime.Unix(),
		"iat":     time.Now().Unix(), // issued at
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func userView(user *models.User) *models.UserResponse {
	return &models.UserResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
	}
}
