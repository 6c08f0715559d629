package auth

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-jose/go-jose/v4"
	"github.com/google/uuid"
)

// SigningKey is the server-held HMAC secret plus its key id.
type SigningKey struct {
	ID  string
	Key []byte
}

// LoadOrGenerateSigningKey reads an oct JWK from keyPath, or generates a fresh
// 256-bit key and persists it there (mode 0600) when the file does not exist.
func LoadOrGenerateSigningKey(keyPath string) (*SigningKey, error) {
	if keyPath == "" {
		return nil, errors.New("signing key path is empty")
	}

	data, err := os.ReadFile(keyPath)
	if err == nil {
		return decodeSigningKey(data)
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read signing key file: %w", err)
	}

	secret := make([]byte, MinSigningKeyLength)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}

	jwk := jose.JSONWebKey{
		Key:       secret,
		KeyID:     uuid.NewString(),
		Algorithm: string(jose.HS256),
		Use:       "sig",
	}
	encoded, err := json.MarshalIndent(jwk, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode signing key: %w", err)
	}

	if dir := filepath.Dir(keyPath); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create signing key directory: %w", err)
		}
	}
	if err := os.WriteFile(keyPath, encoded, 0o600); err != nil {
		return nil, fmt.Errorf("save signing key to disk: %w", err)
	}

	return &SigningKey{ID: jwk.KeyID, Key: secret}, nil
}

func decodeSigningKey(data []byte) (*SigningKey, error) {
	var jwk jose.JSONWebKey
	if err := json.Unmarshal(data, &jwk); err != nil {
		return nil, fmt.Errorf("parse signing key: %w", err)
	}
	secret, ok := jwk.Key.([]byte)
	if !ok {
		return nil, fmt.Errorf("signing key must be a symmetric (oct) key, got %T", jwk.Key)
	}
	if jwk.Algorithm != "" && jwk.Algorithm != string(jose.HS256) {
		return nil, fmt.Errorf("signing key algorithm %q is not supported", jwk.Algorithm)
	}
	if len(secret) < MinSigningKeyLength {
		return nil, fmt.Errorf("signing key must be at least %d bytes, got %d", MinSigningKeyLength, len(secret))
	}
	return &SigningKey{ID: jwk.KeyID, Key: secret}, nil
}
