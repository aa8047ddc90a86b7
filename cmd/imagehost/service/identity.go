package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"github.com/lyzr/imagehost/common/config"
)

// IdentityDeriver names an upload in both stores
type IdentityDeriver interface {
	Derive(data []byte) string
	// Deduplicates reports whether equal payloads always get equal identities
	Deduplicates() bool
}

// ContentIdentity derives the identity from the SHA-256 of the payload
type ContentIdentity struct{}

// Derive computes the lowercase hex digest
func (ContentIdentity) Derive(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Deduplicates is true: equal payloads share one identity
func (ContentIdentity) Deduplicates() bool { return true }

// RandomIdentity assigns a fresh UUIDv4 to every upload
type RandomIdentity struct{}

// Derive ignores the payload and returns a new UUID
func (RandomIdentity) Derive([]byte) string { return uuid.NewString() }

// Deduplicates is false: every upload is stored separately
func (RandomIdentity) Deduplicates() bool { return false }

// NewIdentityDeriver selects the deriver for a configured policy
func NewIdentityDeriver(policy string) (IdentityDeriver, error) {
	switch policy {
	case config.PolicyContent:
		return ContentIdentity{}, nil
	case config.PolicyRandom:
		return RandomIdentity{}, nil
	default:
		return nil, fmt.Errorf("unknown identity policy: %s", policy)
	}
}
