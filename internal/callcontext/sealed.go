package callcontext

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	sealedTokenPrefix = "v1."
	sealInfo          = "callbridge call context v1"
)

var sealedAD = []byte(sealedTokenPrefix)

type sealedPayload struct {
	ExpiresAt int64       `json:"exp"`
	Context   CallContext `json:"ctx"`
}

// SealedStore hands out self-contained encrypted tokens so that the context
// survives the trip through the call-flow webhook without shared storage.
// Keys that are not tokens (call ids) are kept in process memory.
type SealedStore struct {
	aead  cipherAEAD
	local *MemoryStore
	now   func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time
}

type cipherAEAD interface {
	NonceSize() int
	Overhead() int
	Seal(dst, nonce, plaintext, additionalData []byte) []byte
	Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
}

// NewSealedStore derives an XChaCha20-Poly1305 key from secret.
func NewSealedStore(secret string) (*SealedStore, error) {
	if secret == "" {
		return nil, errors.New("sealed store requires a non-empty secret")
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(sealInfo)), key); err != nil {
		return nil, fmt.Errorf("failed to derive seal key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	local := NewMemoryStore()
	return &SealedStore{
		aead:    aead,
		local:   local,
		now:     time.Now,
		revoked: make(map[string]time.Time),
	}, nil
}

func (s *SealedStore) Set(ctx context.Context, key string, cc CallContext, ttl time.Duration) error {
	if isSealedToken(key) {
		return fmt.Errorf("%w: tokens are issued, not set", ErrInvalidToken)
	}
	return s.local.Set(ctx, key, cc, ttl)
}

func (s *SealedStore) Get(ctx context.Context, key string) (CallContext, error) {
	if !isSealedToken(key) {
		return s.local.Get(ctx, key)
	}

	payload, err := s.open(key)
	if err != nil {
		return CallContext{}, err
	}
	if s.isRevoked(key) {
		return CallContext{}, ErrNotFound
	}
	return payload.Context, nil
}

func (s *SealedStore) Delete(ctx context.Context, key string) error {
	if !isSealedToken(key) {
		return s.local.Delete(ctx, key)
	}

	payload, err := s.open(key)
	if err != nil {
		// Nothing to revoke for tokens that no longer open.
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneRevoked()
	s.revoked[key] = time.Unix(payload.ExpiresAt, 0)
	return nil
}

func (s *SealedStore) Issue(_ context.Context, cc CallContext, ttl time.Duration) (string, error) {
	raw, err := json.Marshal(sealedPayload{
		ExpiresAt: s.now().Add(ttl).Unix(),
		Context:   cc,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode call context: %w", err)
	}

	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(raw)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, raw, sealedAD)
	return sealedTokenPrefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (s *SealedStore) open(token string) (sealedPayload, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(token, sealedTokenPrefix))
	if err != nil || len(sealed) < s.aead.NonceSize()+s.aead.Overhead() {
		return sealedPayload{}, ErrInvalidToken
	}

	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	raw, err := s.aead.Open(nil, nonce, ciphertext, sealedAD)
	if err != nil {
		return sealedPayload{}, ErrInvalidToken
	}

	var payload sealedPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return sealedPayload{}, ErrInvalidToken
	}
	if !s.now().Before(time.Unix(payload.ExpiresAt, 0)) {
		return sealedPayload{}, fmt.Errorf("%w: %w", ErrNotFound, ErrTokenExpired)
	}
	return payload, nil
}

func (s *SealedStore) isRevoked(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[token]
	return ok
}

// pruneRevoked forgets revocations of tokens that have expired anyway. Callers hold mu.
func (s *SealedStore) pruneRevoked() {
	now := s.now()
	for token, expiresAt := range s.revoked {
		if !now.Before(expiresAt) {
			delete(s.revoked, token)
		}
	}
}

func isSealedToken(key string) bool {
	return strings.HasPrefix(key, sealedTokenPrefix)
}
