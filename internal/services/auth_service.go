package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"hivley/config"
	"hivley/internal/domain"
	"hivley/internal/domain/user"
	"hivley/internal/repository"
	hivley_errors "hivley/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

type AuthService struct {
	userRepo       repository.UserRepository
	jwtSecret      []byte
	accessTTL      time.Duration
	allowedDomains []string
}

func NewAuthService(userRepo repository.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		userRepo:       userRepo,
		jwtSecret:      []byte(cfg.JWTSecret),
		accessTTL:      time.Duration(cfg.JWTExpiryMin) * time.Minute,
		allowedDomains: cfg.AllowedEmailDomains,
	}
}

type SignupInput struct {
	Email    string
	Password string
	FullName string
	Role     domain.Role
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   int64       `json:"expires_in"`
	User        CurrentUser `json:"user"`
}

// CurrentUser is the identity every write is attributed to.
type CurrentUser struct {
	ID      string      `json:"id"`
	Email   string      `json:"email"`
	Profile ProfileInfo `json:"profile"`
}

type ProfileInfo struct {
	FullName  string      `json:"full_name"`
	Role      domain.Role `json:"role"`
	AvatarURL string      `json:"avatar_url,omitempty"`
}

type AccessClaims struct {
	UserID string `json:"sub"`
	jwt.RegisteredClaims
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput) (AuthResponse, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)
	if err := s.validateSignup(in); err != nil {
		return AuthResponse{}, err
	}

	if _, err := s.userRepo.GetByEmail(ctx, in.Email); err == nil {
		return AuthResponse{}, hivley_errors.ErrAlreadyExists
	} else if !errors.Is(err, hivley_errors.ErrNotFound) {
		return AuthResponse{}, err
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return AuthResponse{}, err
	}

	profile := &user.Profile{
		Email:        in.Email,
		FullName:     in.FullName,
		Role:         in.Role,
		PasswordHash: hash,
	}
	if err := s.userRepo.Create(ctx, profile); err != nil {
		return AuthResponse{}, err
	}

	return s.issue(*profile)
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (AuthResponse, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Email == "" || in.Password == "" {
		return AuthResponse{}, hivley_errors.ErrInvalidInput
	}

	p, err := s.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, hivley_errors.ErrNotFound) {
			return AuthResponse{}, hivley_errors.ErrUnauthorized
		}
		return AuthResponse{}, err
	}

	if err := comparePassword(p.PasswordHash, in.Password); err != nil {
		return AuthResponse{}, hivley_errors.ErrUnauthorized
	}

	return s.issue(p)
}

func (s *AuthService) CurrentUser(ctx context.Context, userID uuid.UUID) (CurrentUser, error) {
	p, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return CurrentUser{}, err
	}
	return toCurrentUser(p), nil
}

func (s *AuthService) ParseAccessToken(tokenString string) (AccessClaims, error) {
	if tokenString == "" {
		return AccessClaims{}, hivley_errors.ErrUnauthorized
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, hivley_errors.ErrUnauthorized
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return AccessClaims{}, hivley_errors.ErrUnauthorized
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return AccessClaims{}, hivley_errors.ErrUnauthorized
	}

	return *claims, nil
}

func (s *AuthService) validateSignup(in SignupInput) error {
	if in.Email == "" || in.FullName == "" {
		return fmt.Errorf("%w: email and full name are required", hivley_errors.ErrInvalidInput)
	}
	at := strings.LastIndex(in.Email, "@")
	if at <= 0 || !s.domainAllowed(in.Email[at+1:]) {
		return fmt.Errorf("%w: email must belong to %s", hivley_errors.ErrInvalidInput, strings.Join(s.allowedDomains, " or "))
	}
	if len(in.Password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", hivley_errors.ErrInvalidInput, minPasswordLength)
	}
	if !in.Role.Valid() {
		return fmt.Errorf("%w: role must be provider or client", hivley_errors.ErrInvalidInput)
	}
	return nil
}

func (s *AuthService) domainAllowed(domainName string) bool {
	if len(s.allowedDomains) == 0 {
		return true
	}
	for _, d := range s.allowedDomains {
		if domainName == d {
			return true
		}
	}
	return false
}

func (s *AuthService) issue(p user.Profile) (AuthResponse, error) {
	now := time.Now()
	claims := AccessClaims{
		UserID: p.ID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return AuthResponse{}, err
	}

	return AuthResponse{
		AccessToken: signed,
		ExpiresIn:   int64(s.accessTTL.Seconds()),
		User:        toCurrentUser(p),
	}, nil
}

func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, hivley_errors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, hivley_errors.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, hivley_errors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, hivley_errors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, hivley_errors.ErrAlreadyExists), errors.Is(err, hivley_errors.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, hivley_errors.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, hivley_errors.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, hivley_errors.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type ctxKey string

var userIDKey ctxKey = "user_id"

func WithUserContext(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	value := ctx.Value(userIDKey)
	if value == nil {
		return uuid.Nil, false
	}
	userID, ok := value.(uuid.UUID)
	return userID, ok
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func comparePassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

func toCurrentUser(p user.Profile) CurrentUser {
	return CurrentUser{
		ID:    p.ID.String(),
		Email: p.Email,
		Profile: ProfileInfo{
			FullName:  p.FullName,
			Role:      p.Role,
			AvatarURL: p.AvatarURL,
		},
	}
}
