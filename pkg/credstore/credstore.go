// Package credstore exposes TLS credential bundles to the running feature
// process. The converger only registers resolved bundle paths under a stable
// identity; it never handles the cryptographic material itself.
package credstore

import (
	"encoding/json"
	"fmt"

	"github.com/zalando/go-keyring"
)

// Bundle is a resolved TLS credential bundle: concrete filesystem paths for
// the client key, certificate, and CA, registered under an identity string.
type Bundle struct {
	Identity string `json:"identity"`
	KeyPath  string `json:"key_path"`
	CertPath string `json:"cert_path"`
	CAPath   string `json:"ca_path"`
}

// Store registers credential bundles for the feature process.
type Store interface {
	Put(bundle Bundle) error
	Get(identity string) (Bundle, bool, error)
}

// service is the keyring service name all bundle entries live under.
const service = "ido-converge"

// KeyringStore keeps bundles in the system keyring.
type KeyringStore struct{}

// NewKeyringStore creates a system-keyring backed store.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

// Put stores the bundle under its identity.
func (s *KeyringStore) Put(bundle Bundle) error {
	if bundle.Identity == "" {
		return fmt.Errorf("bundle identity is required")
	}
	data, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("failed to encode bundle: %w", err)
	}
	if err := keyring.Set(service, bundle.Identity, string(data)); err != nil {
		return fmt.Errorf("failed to store bundle %s: %w", bundle.Identity, err)
	}
	return nil
}

// Get retrieves the bundle registered under identity.
func (s *KeyringStore) Get(identity string) (Bundle, bool, error) {
	data, err := keyring.Get(service, identity)
	if err == keyring.ErrNotFound {
		return Bundle{}, false, nil
	}
	if err != nil {
		return Bundle{}, false, fmt.Errorf("failed to read bundle %s: %w", identity, err)
	}
	var bundle Bundle
	if err := json.Unmarshal([]byte(data), &bundle); err != nil {
		return Bundle{}, false, fmt.Errorf("failed to decode bundle %s: %w", identity, err)
	}
	return bundle, true, nil
}

// MemoryStore keeps bundles in memory. Used in tests and dry runs.
type MemoryStore struct {
	bundles map[string]Bundle
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bundles: make(map[string]Bundle)}
}

// Put stores the bundle under its identity.
func (s *MemoryStore) Put(bundle Bundle) error {
	if bundle.Identity == "" {
		return fmt.Errorf("bundle identity is required")
	}
	s.bundles[bundle.Identity] = bundle
	return nil
}

// Get retrieves the bundle registered under identity.
func (s *MemoryStore) Get(identity string) (Bundle, bool, error) {
	bundle, ok := s.bundles[identity]
	return bundle, ok, nil
}
