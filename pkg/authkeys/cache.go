// Package authkeys caches the auth service's token-signing public key and
// verifies bearer tokens against it.
package authkeys

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

const (
	// TokenAudience is the audience claim issued by the auth service.
	TokenAudience = "peerflow_api"
	// TokenIssuer is the issuer claim of the auth service.
	TokenIssuer = "auth_service"
)

// Cache is a process-wide cache of the auth service's public key. The key is
// refreshed when older than the TTL; concurrent callers block on the same
// refresh instead of issuing duplicate fetches.
type Cache struct {
	serviceURL string
	ttl        time.Duration
	client     *http.Client
	logger     zerolog.Logger
	now        func() time.Time

	mu        sync.Mutex
	key       *ecdsa.PublicKey
	fetchedAt time.Time
}

// New builds a key cache for the auth service at serviceURL. fetchTimeout
// bounds each key fetch so callers never hang on a slow auth service.
func New(serviceURL string, ttl, fetchTimeout time.Duration, logger zerolog.Logger) *Cache {
	return &Cache{
		serviceURL: serviceURL,
		ttl:        ttl,
		client:     &http.Client{Timeout: fetchTimeout},
		logger:     logger.With().Str("component", "authkeys_cache").Logger(),
		now:        time.Now,
	}
}

func (c *Cache) expired() bool {
	return c.key == nil || c.now().Sub(c.fetchedAt) > c.ttl
}

// Key returns the cached public key, refreshing it when stale. Exactly one
// caller performs the fetch; the double check after acquiring the lock keeps
// the rest from repeating it.
func (c *Cache) Key(ctx context.Context) (*ecdsa.PublicKey, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.expired() {
		return c.key, nil
	}

	if err := c.fetchLocked(ctx); err != nil {
		return nil, err
	}

	return c.key, nil
}

// ForceRefresh discards the cached key and fetches a fresh one.
func (c *Cache) ForceRefresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fetchLocked(ctx)
}

func (c *Cache) fetchLocked(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serviceURL+"/public-key", nil)
	if err != nil {
		return fmt.Errorf("failed to build public key request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch public key: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("auth service returned status %d for public key", resp.StatusCode)
	}

	var payload struct {
		PublicKey string `json:"public_key"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("failed to decode public key response: %w", err)
	}

	key, err := jwt.ParseECPublicKeyFromPEM([]byte(payload.PublicKey))
	if err != nil {
		return fmt.Errorf("failed to parse public key: %w", err)
	}

	c.key = key
	c.fetchedAt = c.now()
	c.logger.Info().Time("fetched_at", c.fetchedAt).Msg("auth public key refreshed")

	return nil
}

// VerifyToken validates an ES256 bearer token issued by the auth service and
// returns its claims.
func (c *Cache) VerifyToken(ctx context.Context, tokenString string) (jwt.MapClaims, error) {
	key, err := c.Key(ctx)
	if err != nil {
		return nil, err
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return key, nil
	}, jwt.WithAudience(TokenAudience), jwt.WithIssuer(TokenIssuer))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}
