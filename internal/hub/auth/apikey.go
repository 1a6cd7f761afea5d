package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/bdobrica/Ruriko/internal/hub/store"
)

// APIKeyPrefix begins every generated bearer token, matching
// omni_local_[A-Za-z0-9_-]{43}.
const APIKeyPrefix = "omni_local_"

const apiKeyRandomLen = 43

var apiKeyAlphabet = []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-")

// ErrInvalidAPIKey is returned for a malformed or unknown bearer token.
var ErrInvalidAPIKey = errors.New("auth: invalid api key")

// APIKeyIssuer mints and validates bearer tokens backed by store.APIKey
// rows. Only a SHA-256 hash of the raw key is ever persisted.
type APIKeyIssuer struct {
	store *store.Store
}

// NewAPIKeyIssuer wraps s.
func NewAPIKeyIssuer(s *store.Store) *APIKeyIssuer {
	return &APIKeyIssuer{store: s}
}

// Issue generates a new bearer token for userID and persists its hash,
// returning the raw key exactly once — callers must surface it to the
// user immediately, it cannot be recovered afterward.
func (i *APIKeyIssuer) Issue(ctx context.Context, userID, label string) (string, error) {
	suffix, err := randomAPIKeySuffix()
	if err != nil {
		return "", fmt.Errorf("auth: generate api key: %w", err)
	}
	raw := APIKeyPrefix + suffix

	rec := &store.APIKey{
		ID:      uuid.NewString(),
		UserID:  userID,
		KeyHash: hashAPIKey(raw),
		Prefix:  raw[:len(APIKeyPrefix)+6],
		Label:   label,
	}
	if err := i.store.CreateAPIKey(ctx, rec); err != nil {
		return "", err
	}
	return raw, nil
}

// Validate resolves a raw bearer token to the Identity it belongs to.
func (i *APIKeyIssuer) Validate(ctx context.Context, raw string, lookupIdentity func(ctx context.Context, userID string) (*Identity, error)) (*Identity, error) {
	if !strings.HasPrefix(raw, APIKeyPrefix) {
		return nil, ErrInvalidAPIKey
	}
	rec, err := i.store.GetAPIKeyByHash(ctx, hashAPIKey(raw))
	if errors.Is(err, store.ErrAPIKeyNotFound) {
		return nil, ErrInvalidAPIKey
	}
	if err != nil {
		return nil, err
	}

	identity, err := lookupIdentity(ctx, rec.UserID)
	if err != nil {
		return nil, err
	}

	_ = i.store.TouchAPIKey(ctx, rec.ID) // best-effort usage tracking

	return identity, nil
}

// Revoke disables a previously issued key.
func (i *APIKeyIssuer) Revoke(ctx context.Context, keyID string) error {
	return i.store.RevokeAPIKey(ctx, keyID)
}

func hashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func randomAPIKeySuffix() (string, error) {
	buf := make([]byte, apiKeyRandomLen)
	randBytes := make([]byte, apiKeyRandomLen)
	if _, err := rand.Read(randBytes); err != nil {
		return "", err
	}
	for i, b := range randBytes {
		buf[i] = apiKeyAlphabet[int(b)%len(apiKeyAlphabet)]
	}
	return string(buf), nil
}
