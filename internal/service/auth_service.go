package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sensai/sensai-backend/internal/config"
	"github.com/sensai/sensai-backend/internal/model"
	"github.com/sensai/sensai-backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// ErrSessionInvalid is returned when a token's session was logged out or expired.
var ErrSessionInvalid = errors.New("session is no longer valid")

// Claims extends JWT standard claims with app-specific fields.
// The registered ID (jti) is the server-side session ID.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64      `json:"user_id"`
	Role   model.Role `json:"role"`
}

// AuthService handles accounts, JWT issuing and server-side sessions.
type AuthService struct {
	cfg      *config.Config
	rdb      *redis.Client
	users    *repository.UserRepository
	sessions *repository.SessionRepository
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, rdb *redis.Client, users *repository.UserRepository, sessions *repository.SessionRepository) *AuthService {
	return &AuthService{cfg: cfg, rdb: rdb, users: users, sessions: sessions}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Register creates a new instructor or student account.
func (s *AuthService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	hash, err := s.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if isPgCode(err, pgUniqueViolation) {
			return nil, fmt.Errorf("email %s: %w", req.Email, ErrConflict)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login verifies credentials, opens a session and returns the signed token for the cookie.
func (s *AuthService) Login(ctx context.Context, req *model.LoginRequest) (string, *model.User, time.Time, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if isNoRows(err) {
			return "", nil, time.Time{}, ErrInvalidCredentials
		}
		return "", nil, time.Time{}, fmt.Errorf("get user: %w", err)
	}
	if err := s.CheckPassword(user.PasswordHash, req.Password); err != nil {
		return "", nil, time.Time{}, err
	}

	now := time.Now()
	session := &model.Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		Role:      user.Role,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return "", nil, time.Time{}, fmt.Errorf("create session: %w", err)
	}

	// Cache miss is handled by ValidateSession, so a failed write is not fatal.
	_ = s.rdb.Set(ctx, config.CacheKey.SessionKey(session.ID.String()), user.ID, s.cfg.SessionTTL).Err()

	token, err := s.issueToken(user.ID, user.Role, session.ID, now)
	if err != nil {
		return "", nil, time.Time{}, err
	}
	return token, user, session.ExpiresAt, nil
}

// Logout ends the session behind the given claims.
func (s *AuthService) Logout(ctx context.Context, claims *Claims) error {
	sessionID, err := uuid.Parse(claims.ID)
	if err != nil {
		return ErrSessionInvalid
	}
	if err := s.rdb.Del(ctx, config.CacheKey.SessionKey(claims.ID)).Err(); err != nil {
		return fmt.Errorf("drop cached session: %w", err)
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Me returns the account behind the current session.
func (s *AuthService) Me(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *AuthService) issueToken(userID int64, role model.Role, sessionID uuid.UUID, now time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID.String(),
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.SessionTTL)),
		},
		UserID: userID,
		Role:   role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// ValidateSession checks that the token's session still exists. Redis is consulted
// first and refilled from PostgreSQL on a miss.
func (s *AuthService) ValidateSession(ctx context.Context, claims *Claims) error {
	key := config.CacheKey.SessionKey(claims.ID)

	stored, err := s.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		if stored != strconv.FormatInt(claims.UserID, 10) {
			return ErrSessionInvalid
		}
		return nil
	case !errors.Is(err, redis.Nil):
		return fmt.Errorf("check session cache: %w", err)
	}

	sessionID, err := uuid.Parse(claims.ID)
	if err != nil {
		return ErrSessionInvalid
	}
	session, err := s.sessions.GetActive(ctx, sessionID)
	if err != nil {
		if isNoRows(err) {
			return ErrSessionInvalid
		}
		return fmt.Errorf("load session: %w", err)
	}
	if session.UserID != claims.UserID {
		return ErrSessionInvalid
	}

	_ = s.rdb.Set(ctx, key, session.UserID, time.Until(session.ExpiresAt)).Err()
	return nil
}

// PurgeExpiredSessions deletes session rows whose expiry has passed.
func (s *AuthService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx, time.Now())
}
