package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Dan9191/loan-service/internal/eligibility"
	"github.com/Dan9191/loan-service/internal/models"
	"github.com/Dan9191/loan-service/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// Claims are carried in staff tokens; the subject is the user's email
type Claims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// NewUser is the input to CreateUser
type NewUser struct {
	Email    string      `json:"email"`
	Name     string      `json:"name"`
	Role     models.Role `json:"role"`
	Password string      `json:"password"`
}

// Login authenticates a staff user and returns a JWT token
func (s *Service) Login(ctx context.Context, emailAddr, password string) (string, *models.User, error) {
	user, err := s.store.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(emailAddr)))
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if !user.Active {
		return "", nil, ErrInvalidCredentials
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.JWTTTL)),
		},
	})
	tokenString, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}

	if err := s.store.TouchLastLogin(ctx, user.Email, now); err != nil {
		s.log.WithError(err).Warnf("Failed to record login for %s", user.Email)
	} else {
		user.LastLogin = &now
	}

	s.log.Infof("User logged in: %s", user.Email)
	return tokenString, user, nil
}

// ParseToken verifies a staff token and returns its claims
func (s *Service) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid || claims.Subject == "" || !claims.Role.Valid() {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// Authorize checks that claims carry one of roles
func (s *Service) Authorize(claims *Claims, roles ...models.Role) error {
	if claims == nil {
		return ErrForbidden
	}
	for _, r := range roles {
		if claims.Role == r {
			return nil
		}
	}
	return ErrForbidden
}

// CreateUser registers a staff member with a hashed password
func (s *Service) CreateUser(ctx context.Context, in NewUser) (*models.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	var fields []eligibility.FieldError
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		fields = append(fields, eligibility.FieldError{Field: "email", Message: "must be a valid email address"})
	}
	if !in.Role.Valid() {
		fields = append(fields, eligibility.FieldError{Field: "role", Message: "must be one of admin, officer, underwriter"})
	}
	if len(in.Password) < minPasswordLength {
		fields = append(fields, eligibility.FieldError{Field: "password", Message: fmt.Sprintf("must be at least %d characters", minPasswordLength)})
	}
	if len(fields) > 0 {
		return nil, &eligibility.ValidationError{Fields: fields}
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        in.Email,
		Name:         strings.TrimSpace(in.Name),
		Role:         in.Role,
		PasswordHash: string(hashedPassword),
		Active:       true,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.log.Infof("User created: %s (%s)", user.Email, user.Role)
	return user, nil
}

// EnsureAdmin creates the bootstrap admin account when it does not exist yet
func (s *Service) EnsureAdmin(ctx context.Context, emailAddr, password string) error {
	if emailAddr == "" {
		return nil
	}
	_, err := s.store.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(emailAddr)))
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	_, err = s.CreateUser(ctx, NewUser{Email: emailAddr, Name: "Administrator", Role: models.RoleAdmin, Password: password})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil
	}
	return err
}
