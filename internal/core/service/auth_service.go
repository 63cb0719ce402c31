package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/aurora-advisory/advisory-api/internal/core/domain"
	"github.com/aurora-advisory/advisory-api/internal/core/ports"
)

const (
	defaultTokenTTL = 30 * time.Minute
	tokenType       = "bearer"
)

// tokenClaims is the JWT payload; the subject is the user id.
type tokenClaims struct {
	Role  domain.Role `json:"role"`
	Email string      `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// AuthService implements registration, login and stateless token verification.
type AuthService struct {
	users     ports.UserRepository
	profiles  ports.ProfileRepository
	jwtSecret []byte
	tokenTTL  time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

func NewAuthService(users ports.UserRepository, profiles ports.ProfileRepository, jwtSecret string, tokenTTL time.Duration, logger zerolog.Logger) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	return &AuthService{
		users:     users,
		profiles:  profiles,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		logger:    logger,
		now:       time.Now,
	}
}

// Register creates a client account and its base profile.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	email := normalizeEmail(in.Email)
	firstName := strings.TrimSpace(in.FirstName)
	lastName := strings.TrimSpace(in.LastName)

	switch {
	case email == "":
		return nil, domain.Validationf("email is required")
	case firstName == "":
		return nil, domain.Validationf("first_name is required")
	case lastName == "":
		return nil, domain.Validationf("last_name is required")
	case in.Password == "":
		return nil, domain.Validationf("password is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, domain.Validationf("email must be a valid email")
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("register: lookup email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	created, err := s.users.Create(ctx, &domain.User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleClient,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	base := &domain.ClientProfile{
		UserID:    created.ID,
		FirstName: firstName,
		LastName:  lastName,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.profiles.CreateIfAbsent(ctx, base); err != nil {
		s.logger.Warn().Err(err).Str("user_id", created.ID).Msg("failed to create base profile")
	}

	s.logger.Info().Str("user_id", created.ID).Msg("user registered")
	return created, nil
}

// Login checks the credentials and issues a signed, time-limited token.
// Unknown email and wrong password fail identically.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.AccessToken, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, fmt.Errorf("login: sign token: %w", err)
	}
	return &ports.AccessToken{AccessToken: token, TokenType: tokenType}, nil
}

// Verify validates signature, algorithm and expiry and returns the caller.
func (s *AuthService) Verify(token string) (domain.Caller, error) {
	if strings.TrimSpace(token) == "" {
		return domain.Caller{}, domain.ErrMissingToken
	}

	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Caller{}, domain.ErrExpiredToken
		}
		return domain.Caller{}, domain.ErrInvalidToken
	}
	if !parsed.Valid || claims.Subject == "" || !claims.Role.Valid() {
		return domain.Caller{}, domain.ErrInvalidToken
	}

	return domain.Caller{UserID: claims.Subject, Role: claims.Role, Email: claims.Email}, nil
}

func (s *AuthService) generateToken(user *domain.User) (string, error) {
	now := s.now()
	claims := tokenClaims{
		Role:  user.Role,
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.jwtSecret)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
