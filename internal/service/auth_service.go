// internal/service/auth_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Password bounds. bcrypt only reads the first 72 bytes.
const (
	MinPasswordLength = 8
	MaxPasswordBytes  = 72
)

// DefaultTokenTTL is the lifetime of a login token when none is configured.
const DefaultTokenTTL = 24 * time.Hour

const (
	maxNameLength  = 100
	maxEmailLength = 255
)

// AuthService registers users, issues login tokens and checks that a token's owner may act.
type AuthService interface {
	Register(ctx context.Context, firstName, lastName, email, password string) (*domain.User, error)
	// Login returns the user and a signed HS256 token whose "sub" claim is the user id.
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
	// VerifyOwner returns util.ErrNotFound for an unknown owner and util.ErrUserInactive
	// for a deactivated one.
	VerifyOwner(ctx context.Context, ownerID string) error
}

type authService struct {
	dbExecutor repository.DBExecutor
	userRepo   repository.UserRepository
	secret     []byte
	tokenTTL   time.Duration
	hashCost   int
	now        func() time.Time
}

// NewAuthService creates a new instance of AuthService. A non-positive tokenTTL uses DefaultTokenTTL.
func NewAuthService(dbExecutor repository.DBExecutor, userRepo repository.UserRepository, secret string, tokenTTL time.Duration) AuthService {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &authService{
		dbExecutor: dbExecutor,
		userRepo:   userRepo,
		secret:     []byte(secret),
		tokenTTL:   tokenTTL,
		hashCost:   bcrypt.DefaultCost,
		now:        time.Now,
	}
}

// Register creates an active user with a bcrypt-hashed password.
func (s *authService) Register(ctx context.Context, firstName, lastName, email, password string) (*domain.User, error) {
	firstName, lastName = strings.TrimSpace(firstName), strings.TrimSpace(lastName)
	if firstName == "" || lastName == "" ||
		utf8.RuneCountInString(firstName) > maxNameLength || utf8.RuneCountInString(lastName) > maxNameLength {
		return nil, fmt.Errorf("%w: first and last name are required", util.ErrInvalidInput)
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(password) < MinPasswordLength || len(password) > MaxPasswordBytes {
		return nil, fmt.Errorf("%w: password must be at least %d characters and at most %d bytes",
			util.ErrInvalidInput, MinPasswordLength, MaxPasswordBytes)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("register: failed to hash password: %w", err)
	}

	user := domain.NewUser(firstName, lastName, email, string(hash))
	if err := s.userRepo.CreateUser(ctx, s.dbExecutor, user); err != nil {
		if errors.Is(err, util.ErrDuplicateEntry) {
			return nil, util.ErrEmailTaken
		}
		return nil, fmt.Errorf("register: failed to create user: %w", err)
	}
	return user, nil
}

// Login checks the credentials and signs a token for the user.
func (s *authService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, "", fmt.Errorf("%w: email and password are required", util.ErrInvalidInput)
	}

	user, err := s.userRepo.GetUserByEmail(ctx, s.dbExecutor, email)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return nil, "", util.ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("login: failed to get user: %w", err)
	}
	if !user.IsActive {
		return nil, "", util.ErrUserInactive
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, "", util.ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("login: failed to compare password: %w", err)
	}

	token, err := s.signToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *authService) signToken(user *domain.User) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(s.tokenTTL).Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("login: failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyOwner reports whether ownerID names an existing, active user.
func (s *authService) VerifyOwner(ctx context.Context, ownerID string) error {
	id, err := parseOwnerID(ownerID)
	if err != nil {
		return err
	}
	user, err := s.userRepo.GetUserByID(ctx, s.dbExecutor, id)
	if err != nil {
		return fmt.Errorf("verify owner %s: %w", id, err)
	}
	if !user.IsActive {
		return util.ErrUserInactive
	}
	return nil
}

func normalizeEmail(email string) (string, error) {
	email = domain.NormalizeEmail(email)
	if utf8.RuneCountInString(email) > maxEmailLength {
		return "", fmt.Errorf("%w: email is too long", util.ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: valid email is required", util.ErrInvalidInput)
	}
	return email, nil
}
