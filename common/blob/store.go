package blob

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrNotFound is returned when no blob exists under a name
	ErrNotFound = errors.New("blob not found")

	// ErrInvalidName is returned for identities or extensions that cannot form a safe name
	ErrInvalidName = errors.New("invalid blob name")
)

var (
	identityPattern  = regexp.MustCompile(`^[A-Za-z0-9-]{1,128}$`)
	extensionPattern = regexp.MustCompile(`^[a-z0-9]{1,10}$`)
)

// Store persists whole image payloads named {identity}.{ext}.
// Implementations must be safe for concurrent use.
type Store interface {
	// Put writes data atomically. It reports created=false and writes nothing
	// if the name already exists.
	Put(ctx context.Context, identity, ext string, data []byte) (created bool, err error)
	Get(ctx context.Context, identity, ext string) ([]byte, error)
	Delete(ctx context.Context, identity, ext string) error
}

// Name returns the stored file name for identity and extension (without dot)
func Name(identity, ext string) string {
	return identity + "." + ext
}

// ValidateName rejects identities and extensions that could escape the store
func ValidateName(identity, ext string) error {
	if !identityPattern.MatchString(identity) {
		return fmt.Errorf("%w: identity %q", ErrInvalidName, identity)
	}
	if !extensionPattern.MatchString(ext) {
		return fmt.Errorf("%w: extension %q", ErrInvalidName, ext)
	}
	return nil
}
