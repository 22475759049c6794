package apikey

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidKey = errors.New("invalid api key")
	ErrRevokedKey = errors.New("revoked api key")
)

const keyScheme = "mg"

// Record is what an issuer keeps about a key. The secret itself is never
// stored, only its hash.
type Record struct {
	ID        string
	Owner     string
	Prefix    string
	KeyHash   string
	CreatedAt time.Time
	RevokedAt *time.Time
}

// Issuer issues, checks and revokes API keys
type Issuer interface {
	Issue(ctx context.Context, owner string) (key string, record Record, err error)
	Validate(ctx context.Context, key string) (Record, error)
	Revoke(ctx context.Context, key string) error
}

// Generate creates a new key of the form mg_<prefix>.<secret> and returns
// it with its lookup prefix and hash
func Generate() (fullKey, prefix, hash string, err error) {
	prefix, err = generatePrefix()
	if err != nil {
		return "", "", "", err
	}
	secret, err := generateSecret()
	if err != nil {
		return "", "", "", err
	}
	return fmt.Sprintf("%s_%s.%s", keyScheme, prefix, secret), prefix, Hash(prefix, secret), nil
}

// Parse splits a key into its prefix and secret
func Parse(key string) (prefix, secret string, err error) {
	head, secret, ok := strings.Cut(key, ".")
	if !ok || secret == "" {
		return "", "", ErrInvalidKey
	}
	scheme, prefix, ok := strings.Cut(head, "_")
	if !ok || scheme != keyScheme || prefix == "" {
		return "", "", ErrInvalidKey
	}
	return prefix, secret, nil
}

// Hash returns the stored form of a key
func Hash(prefix, secret string) string {
	sum := sha256.Sum256([]byte(prefix + "." + secret))
	return hex.EncodeToString(sum[:])
}

// Verify checks key against record
func Verify(key string, record Record) error {
	prefix, secret, err := Parse(key)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(Hash(prefix, secret)), []byte(record.KeyHash)) != 1 {
		return ErrInvalidKey
	}
	if record.RevokedAt != nil {
		return ErrRevokedKey
	}
	return nil
}

func generatePrefix() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	return strings.ToLower(enc.EncodeToString(buf)), nil
}

func generateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// MemoryIssuer keeps records in process memory; keys do not survive a
// restart
type MemoryIssuer struct {
	mu       sync.RWMutex
	byPrefix map[string]Record
	now      func() time.Time
}

func NewMemoryIssuer() *MemoryIssuer {
	return &MemoryIssuer{
		byPrefix: make(map[string]Record),
		now:      time.Now,
	}
}

func (m *MemoryIssuer) Issue(_ context.Context, owner string) (string, Record, error) {
	key, prefix, hash, err := Generate()
	if err != nil {
		return "", Record{}, fmt.Errorf("failed to generate api key: %w", err)
	}

	rec := Record{
		ID:        uuid.NewString(),
		Owner:     owner,
		Prefix:    prefix,
		KeyHash:   hash,
		CreatedAt: m.now(),
	}

	m.mu.Lock()
	m.byPrefix[prefix] = rec
	m.mu.Unlock()

	return key, rec, nil
}

func (m *MemoryIssuer) Validate(_ context.Context, key string) (Record, error) {
	prefix, _, err := Parse(key)
	if err != nil {
		return Record{}, err
	}

	m.mu.RLock()
	rec, ok := m.byPrefix[prefix]
	m.mu.RUnlock()
	if !ok {
		return Record{}, ErrInvalidKey
	}

	if err := Verify(key, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (m *MemoryIssuer) Revoke(ctx context.Context, key string) error {
	rec, err := m.Validate(ctx, key)
	if err != nil {
		return err
	}

	now := m.now()
	rec.RevokedAt = &now

	m.mu.Lock()
	m.byPrefix[rec.Prefix] = rec
	m.mu.Unlock()
	return nil
}

// Len returns the number of issued keys, revoked ones included
func (m *MemoryIssuer) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byPrefix)
}
