// Package service holds the application's use cases, independent of HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TokenConfig controls how access tokens are signed and checked.
type TokenConfig struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
}

// AuthService handles accounts, credentials and access tokens.
type AuthService struct {
	users  repository.UserRepository
	tokens TokenConfig
	now    func() time.Time
}

type SignupInput struct {
	Username string `json:"username" validate:"required,min=3,max=30,username"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileInput struct {
	UserID   string  `json:"-"`
	Username *string `json:"username" validate:"omitempty,min=3,max=30,username"`
	Bio      *string `json:"bio" validate:"omitempty,max=500"`
	Avatar   *string `json:"avatar" validate:"omitempty,max=500"`
}

// AuthResult is a user together with a freshly issued token.
type AuthResult struct {
	Token string
	User  *models.User
}

func NewAuthService(users repository.UserRepository, tokens TokenConfig) *AuthService {
	return &AuthService{users: users, tokens: tokens, now: time.Now}
}

// Signup creates an active account and signs the user in.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	// Report the colliding field before hashing; the unique indexes still guard races.
	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, models.NewDuplicateError("email", "email is already registered")
	} else if !models.IsNotFound(err) {
		return nil, err
	}
	if _, err := s.users.GetByUsername(ctx, in.Username); err == nil {
		return nil, models.NewDuplicateError("username", "username is already taken")
	} else if !models.IsNotFound(err) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username: in.Username,
		Email:    in.Email,
		Password: string(hashed),
		IsActive: true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return s.signIn(user)
}

// Login exchanges credentials for a token.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, models.NewValidationError("invalid credentials")
		}
		return nil, err
	}
	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); cmpErr != nil {
		return nil, models.NewValidationError("invalid credentials")
	}
	if !user.IsActive {
		return nil, models.NewValidationError("account is deactivated")
	}
	return s.signIn(user)
}

// Authenticate verifies token and resolves the active user it was issued to.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.ParseToken(token)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, models.NewUnauthorizedError("user not found")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, models.NewUnauthorizedError("account is deactivated")
	}
	return user, nil
}

// Profile returns the user by id.
func (s *AuthService) Profile(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

// UpdateProfile applies the supplied fields only.
func (s *AuthService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	if in.Username != nil {
		trimmed := strings.TrimSpace(*in.Username)
		in.Username = &trimmed
	}
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	if in.Username != nil && *in.Username != "" && *in.Username != user.Username {
		existing, lookupErr := s.users.GetByUsername(ctx, *in.Username)
		if lookupErr == nil && existing.ID != user.ID {
			return nil, models.NewDuplicateError("username", "username is already taken")
		}
		if lookupErr != nil && !models.IsNotFound(lookupErr) {
			return nil, lookupErr
		}
		user.Username = *in.Username
	}
	if in.Bio != nil {
		user.Bio = strings.TrimSpace(*in.Bio)
	}
	if in.Avatar != nil {
		user.Avatar = strings.TrimSpace(*in.Avatar)
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// IssueToken signs an access token for userID.
func (s *AuthService) IssueToken(userID string) (string, error) {
	if s.tokens.Secret == "" {
		return "", errors.New("JWT secret not configured")
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    s.tokens.Issuer,
		Audience:  jwt.ClaimStrings{s.tokens.Audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokens.TTL)),
		ID:        uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.tokens.Secret))
}

// ParseToken verifies signature, algorithm, issuer, audience and expiry and returns the subject.
func (s *AuthService) ParseToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(s.tokens.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.tokens.Issuer),
		jwt.WithAudience(s.tokens.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return "", models.NewUnauthorizedError("invalid or expired token")
	}
	if !models.ValidID(claims.Subject) {
		return "", models.NewUnauthorizedError("invalid subject claim")
	}
	return claims.Subject, nil
}

func (s *AuthService) signIn(user *models.User) (*AuthResult, error) {
	token, err := s.IssueToken(user.ID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
