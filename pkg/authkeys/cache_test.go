package authkeys

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestKeyServer(t *testing.T) (*ecdsa.PrivateKey, *httptest.Server, *int64) {
	t.Helper()

	private, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&private.PublicKey)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	var fetches int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/public-key", r.URL.Path)
		atomic.AddInt64(&fetches, 1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"public_key": string(pemBytes)})
	}))
	t.Cleanup(server.Close)

	return private, server, &fetches
}

func signToken(t *testing.T, private *ecdsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	signed, err := token.SignedString(private)
	require.NoError(t, err)

	return signed
}

func studentClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":  "stu-1",
		"role": "student",
		"aud":  TokenAudience,
		"iss":  TokenIssuer,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
}

func TestCacheKeyReusesFreshKey(t *testing.T) {
	_, server, fetches := newTestKeyServer(t)

	cache := New(server.URL, time.Minute, time.Second, zerolog.Nop())

	first, err := cache.Key(context.Background())
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := cache.Key(context.Background())
	require.NoError(t, err)
	require.Same(t, first, second)
	require.EqualValues(t, 1, atomic.LoadInt64(fetches))
}

func TestCacheKeyRefreshesWhenStale(t *testing.T) {
	_, server, fetches := newTestKeyServer(t)

	cache := New(server.URL, time.Minute, time.Second, zerolog.Nop())

	current := time.Now()
	cache.now = func() time.Time { return current }

	_, err := cache.Key(context.Background())
	require.NoError(t, err)

	current = current.Add(2 * time.Minute)

	_, err = cache.Key(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, atomic.LoadInt64(fetches))
}

func TestCacheForceRefresh(t *testing.T) {
	_, server, fetches := newTestKeyServer(t)

	cache := New(server.URL, time.Minute, time.Second, zerolog.Nop())

	_, err := cache.Key(context.Background())
	require.NoError(t, err)

	require.NoError(t, cache.ForceRefresh(context.Background()))
	require.EqualValues(t, 2, atomic.LoadInt64(fetches))
}

func TestCacheKeyFetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	cache := New(server.URL, time.Minute, time.Second, zerolog.Nop())

	_, err := cache.Key(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 500")
}

func TestVerifyToken(t *testing.T) {
	private, server, _ := newTestKeyServer(t)

	cache := New(server.URL, time.Minute, time.Second, zerolog.Nop())

	claims, err := cache.VerifyToken(context.Background(), signToken(t, private, studentClaims()))
	require.NoError(t, err)
	require.Equal(t, "stu-1", claims["sub"])
	require.Equal(t, "student", claims["role"])
}

func TestVerifyTokenRejectsWrongAudience(t *testing.T) {
	private, server, _ := newTestKeyServer(t)

	cache := New(server.URL, time.Minute, time.Second, zerolog.Nop())

	claims := studentClaims()
	claims["aud"] = "other_service"

	_, err := cache.VerifyToken(context.Background(), signToken(t, private, claims))
	require.Error(t, err)
}

func TestVerifyTokenRejectsWrongIssuer(t *testing.T) {
	private, server, _ := newTestKeyServer(t)

	cache := New(server.URL, time.Minute, time.Second, zerolog.Nop())

	claims := studentClaims()
	claims["iss"] = "not_the_auth_service"

	_, err := cache.VerifyToken(context.Background(), signToken(t, private, claims))
	require.Error(t, err)
}

func TestVerifyTokenRejectsWrongAlgorithm(t *testing.T) {
	_, server, _ := newTestKeyServer(t)

	cache := New(server.URL, time.Minute, time.Second, zerolog.Nop())

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, studentClaims())
	signed, err := token.SignedString([]byte("shared-secret"))
	require.NoError(t, err)

	_, err = cache.VerifyToken(context.Background(), signed)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unexpected signing method")
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	private, server, _ := newTestKeyServer(t)

	cache := New(server.URL, time.Minute, time.Second, zerolog.Nop())

	claims := studentClaims()
	claims["exp"] = time.Now().Add(-time.Hour).Unix()

	_, err := cache.VerifyToken(context.Background(), signToken(t, private, claims))
	require.Error(t, err)
}
