// Package service implements user registration, authentication, and profile
// management. Users live under the "users" storage key; passwords are stored
// as bcrypt hashes and sessions are issued as JWT access/refresh token pairs.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/mango0422/hwanbee-bank/internal/config"
	"github.com/mango0422/hwanbee-bank/internal/models"
	"github.com/mango0422/hwanbee-bank/internal/storage"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var (
	// ErrInvalidCredentials is returned for a wrong email/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken is returned when signing up with a registered email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUserNotFound is returned for lookups of unknown user IDs.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidToken is returned for expired or malformed tokens.
	ErrInvalidToken = errors.New("invalid token")
)

// TokenPair is the session material returned by login, signup, and refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// persistUser is the storage shape of a user; unlike models.User it carries
// the password hash.
type persistUser struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PhoneNumber  string    `json:"phoneNumber"`
	Address      string    `json:"address,omitempty"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Service handles authentication and user profiles.
type Service struct {
	store  storage.Store
	log    *logrus.Logger
	config *config.Config

	mu    sync.RWMutex
	users []*persistUser
}

// NewService loads the user collection; an empty store is seeded with the
// demo user (test@mail.com / test1234).
func NewService(store storage.Store, log *logrus.Logger, cfg *config.Config) (*Service, error) {
	s := &Service{store: store, log: log, config: cfg}

	data, err := store.Load(context.Background(), storage.KeyUsers)
	if err == storage.ErrKeyNotFound {
		if err := s.seed(); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	if err := json.Unmarshal(data, &s.users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return s, nil
}

func (s *Service) seed() error {
	hash, err := bcrypt.GenerateFromPassword([]byte("test1234"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash seed password: %w", err)
	}
	s.users = []*persistUser{{
		ID:           "1",
		Email:        "test@mail.com",
		Name:         "테스트 사용자",
		PhoneNumber:  "010-1234-5678",
		Address:      "서울시 강남구",
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}}
	if err := s.save(context.Background()); err != nil {
		return err
	}
	s.log.Info("Seeded demo user")
	return nil
}

// Register creates a new user with a hashed password.
func (s *Service) Register(ctx context.Context, email, password, name, phoneNumber, address string) (*models.User, error) {
	if email == "" || password == "" || name == "" {
		return nil, fmt.Errorf("%w: email, password and name are required", ErrInvalidCredentials)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return nil, ErrEmailTaken
		}
	}
	user := &persistUser{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PhoneNumber:  phoneNumber,
		Address:      address,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	s.users = append(s.users, user)

	if err := s.save(ctx); err != nil {
		s.users = s.users[:len(s.users)-1]
		return nil, err
	}

	s.log.Infof("User registered: %s", user.Email)
	return toModel(user), nil
}

// Login authenticates a user by email and password.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, error) {
	s.mu.RLock()
	user := s.findByEmailLocked(email)
	s.mu.RUnlock()
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	s.log.Infof("User logged in: %s", email)
	return toModel(user), nil
}

// GetUser returns the profile for a user ID.
func (s *Service) GetUser(id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u := s.findByIDLocked(id)
	if u == nil {
		return nil, ErrUserNotFound
	}
	return toModel(u), nil
}

// UpdateProfile changes name, phone number, and address. Empty fields are
// left untouched.
func (s *Service) UpdateProfile(ctx context.Context, id, name, phoneNumber, address string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.findByIDLocked(id)
	if u == nil {
		return nil, ErrUserNotFound
	}

	prev := *u
	if name != "" {
		u.Name = name
	}
	if phoneNumber != "" {
		u.PhoneNumber = phoneNumber
	}
	if address != "" {
		u.Address = address
	}

	if err := s.save(ctx); err != nil {
		*u = prev
		return nil, err
	}
	return toModel(u), nil
}

// ChangePassword verifies the current password before storing a new hash.
func (s *Service) ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: new password is required", ErrInvalidCredentials)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.findByIDLocked(id)
	if u == nil {
		return ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	prev := u.PasswordHash
	u.PasswordHash = string(hash)

	if err := s.save(ctx); err != nil {
		u.PasswordHash = prev
		return err
	}
	s.log.Infof("Password changed for user %s", id)
	return nil
}

// tokenClaims adds the token type to the registered JWT claims so refresh
// tokens cannot be replayed as access tokens.
type tokenClaims struct {
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// IssueTokens generates a fresh access/refresh pair for the user.
func (s *Service) IssueTokens(user *models.User) (TokenPair, error) {
	access, err := s.signToken(user.ID, tokenTypeAccess, accessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.signToken(user.ID, tokenTypeRefresh, refreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh validates a refresh token and issues a new token pair.
func (s *Service) Refresh(refreshToken string) (TokenPair, error) {
	claims, err := s.parseToken(refreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	if claims.TokenType != tokenTypeRefresh {
		return TokenPair{}, fmt.Errorf("%w: not a refresh token", ErrInvalidToken)
	}
	user, err := s.GetUser(claims.Subject)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: unknown subject", ErrInvalidToken)
	}
	return s.IssueTokens(user)
}

func (s *Service) signToken(subject, tokenType string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
	signed, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return signed, nil
}

func (s *Service) parseToken(raw string) (*tokenClaims, error) {
	token, err := jwt.ParseWithClaims(raw, &tokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*tokenClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *Service) findByEmailLocked(email string) *persistUser {
	for _, u := range s.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (s *Service) findByIDLocked(id string) *persistUser {
	for _, u := range s.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

// save persists the user collection. Callers hold mu (or own the only
// reference during startup).
func (s *Service) save(ctx context.Context) error {
	data, err := json.Marshal(s.users)
	if err != nil {
		return fmt.Errorf("failed to encode users: %w", err)
	}
	if err := s.store.Save(ctx, storage.KeyUsers, data); err != nil {
		return fmt.Errorf("failed to save users: %w", err)
	}
	return nil
}

func toModel(u *persistUser) *models.User {
	return &models.User{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		PhoneNumber: u.PhoneNumber,
		Address:     u.Address,
		CreatedAt:   u.CreatedAt,
	}
}
