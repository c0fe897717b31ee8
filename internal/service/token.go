package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"dumptrack-api/internal/cache"
	"dumptrack-api/internal/model"
)

const (
	// TokenPrefix is the prefix for all session tokens
	TokenPrefix = "dt_"

	// DefaultTokenTTL is the token lifetime when none is configured
	DefaultTokenTTL = 24 * time.Hour

	// tokenKeyPrefix namespaces tokens inside the cache
	tokenKeyPrefix = "token:"
)

// Token validation errors.
var (
	ErrTokenEmpty   = errors.New("empty token")
	ErrTokenFormat  = errors.New("invalid token format")
	ErrTokenExpired = errors.New("token not found or expired")
)

// TokenService issues and validates opaque session tokens.
type TokenService struct {
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewTokenService creates a token service storing tokens in c.
func NewTokenService(c cache.Cache, ttl time.Duration, logger *zap.Logger) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenService{cache: c, ttl: ttl, logger: logger, now: time.Now}
}

// GenerateToken creates a new session token for data.
func (s *TokenService) GenerateToken(ctx context.Context, data model.TokenData) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	token := TokenPrefix + hex.EncodeToString(tokenBytes)

	data.CreatedAt = s.now()
	data.ExpiresAt = data.CreatedAt.Add(s.ttl)

	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to serialize token data: %w", err)
	}
	if err := s.cache.Set(ctx, tokenKeyPrefix+token, payload, s.ttl); err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}

	s.logger.Debug("token issued", zap.String("user_id", data.UserID), zap.Time("expires_at", data.ExpiresAt))
	return token, nil
}

// ValidateToken returns the data stored for token.
func (s *TokenService) ValidateToken(ctx context.Context, token string) (*model.TokenData, error) {
	if token == "" {
		return nil, ErrTokenEmpty
	}
	if !strings.HasPrefix(token, TokenPrefix) {
		return nil, ErrTokenFormat
	}

	key := tokenKeyPrefix + token
	payload, err := s.cache.Get(ctx, key)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, ErrTokenExpired
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	var data model.TokenData
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("failed to parse token data: %w", err)
	}

	if s.now().After(data.ExpiresAt) {
		_ = s.cache.Delete(ctx, key)
		return nil, ErrTokenExpired
	}
	return &data, nil
}

// RevokeToken deletes a token.
func (s *TokenService) RevokeToken(ctx context.Context, token string) error {
	return s.cache.Delete(ctx, tokenKeyPrefix+token)
}

// RefreshToken extends the lifetime of an existing token.
func (s *TokenService) RefreshToken(ctx context.Context, token string) error {
	data, err := s.ValidateToken(ctx, token)
	if err != nil {
		return err
	}
	data.ExpiresAt = s.now().Add(s.ttl)

	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, tokenKeyPrefix+token, payload, s.ttl)
}
